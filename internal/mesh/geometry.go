// Package mesh holds triangle geometry: OBJ loading, de-indexing, normals, wireframe edges
// and per-face coloring from an intersection index.
package mesh

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Color is a linear RGB triple in [0,1].
type Color struct{ R, G, B float32 }

var (
	White = Color{1, 1, 1}
	Red   = Color{1, 0, 0}
	Black = Color{0, 0, 0}
)

// Geometry is a triangle mesh. When Index is nil the geometry is non-indexed and every three
// consecutive positions form one face.
type Geometry struct {
	Positions []r3.Vec
	Normals   []r3.Vec
	Colors    []Color
	Index     []int
}

// Indexed reports whether faces reference shared vertices through Index.
func (g *Geometry) Indexed() bool { return g.Index != nil }

// FaceCount is the number of triangles.
func (g *Geometry) FaceCount() int {
	if g.Indexed() {
		return len(g.Index) / 3
	}
	return len(g.Positions) / 3
}

// Face returns the vertex indices of triangle i.
func (g *Geometry) Face(i int) (a, b, c int) {
	if g.Indexed() {
		return g.Index[3*i], g.Index[3*i+1], g.Index[3*i+2]
	}
	return 3 * i, 3*i + 1, 3*i + 2
}

// ToNonIndexed expands g so every face owns three contiguous, unshared vertices. Face order
// is preserved, so face i of the result is face i of g. A non-indexed g is copied.
func (g *Geometry) ToNonIndexed() *Geometry {
	n := g.FaceCount()
	out := &Geometry{Positions: make([]r3.Vec, 0, 3*n)}
	if len(g.Normals) > 0 {
		out.Normals = make([]r3.Vec, 0, 3*n)
	}
	if len(g.Colors) > 0 {
		out.Colors = make([]Color, 0, 3*n)
	}
	for f := 0; f < n; f++ {
		a, b, c := g.Face(f)
		for _, v := range [3]int{a, b, c} {
			out.Positions = append(out.Positions, g.Positions[v])
			if out.Normals != nil {
				out.Normals = append(out.Normals, g.Normals[v])
			}
			if out.Colors != nil {
				out.Colors = append(out.Colors, g.Colors[v])
			}
		}
	}
	return out
}

// ComputeVertexNormals accumulates area-weighted face normals into each vertex and normalizes
// them. For non-indexed geometry every vertex gets its face normal.
func (g *Geometry) ComputeVertexNormals() {
	g.Normals = make([]r3.Vec, len(g.Positions))
	for f := 0; f < g.FaceCount(); f++ {
		a, b, c := g.Face(f)
		pa, pb, pc := g.Positions[a], g.Positions[b], g.Positions[c]
		n := r3.Cross(r3.Sub(pc, pb), r3.Sub(pa, pb))
		g.Normals[a] = r3.Add(g.Normals[a], n)
		g.Normals[b] = r3.Add(g.Normals[b], n)
		g.Normals[c] = r3.Add(g.Normals[c], n)
	}
	for i, n := range g.Normals {
		if l := r3.Norm(n); l > 0 {
			g.Normals[i] = r3.Scale(1/l, n)
		}
	}
}

// Edges lists every triangle edge once per face, as vertex index pairs, for the wireframe
// overlay.
func (g *Geometry) Edges() [][2]int {
	out := make([][2]int, 0, 3*g.FaceCount())
	for f := 0; f < g.FaceCount(); f++ {
		a, b, c := g.Face(f)
		out = append(out, [2]int{a, b}, [2]int{b, c}, [2]int{c, a})
	}
	return out
}

// Bounds returns the axis-aligned bounding box of the positions.
func (g *Geometry) Bounds() (min, max r3.Vec) {
	if len(g.Positions) == 0 {
		return
	}
	min, max = g.Positions[0], g.Positions[0]
	for _, p := range g.Positions[1:] {
		min = r3.Vec{X: minf(min.X, p.X), Y: minf(min.Y, p.Y), Z: minf(min.Z, p.Z)}
		max = r3.Vec{X: maxf(max.X, p.X), Y: maxf(max.Y, p.Y), Z: maxf(max.Z, p.Z)}
	}
	return
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
