package raster

import (
	"image"
	"image/color"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/coreman2200/funtimes-meshgrid/internal/camera"
	"github.com/coreman2200/funtimes-meshgrid/internal/clip"
	"github.com/coreman2200/funtimes-meshgrid/internal/mesh"
	"github.com/coreman2200/funtimes-meshgrid/internal/scene"
)

// depthUnit is the smallest resolvable depth step used by polygon offset units.
const depthUnit = 1.0 / (1 << 24)

// vertex carries everything interpolated across a clipped primitive.
type vertex struct {
	world r3.Vec
	view  r3.Vec
	col   mesh.Color
}

type screenVertex struct {
	x, y, z float64
	col     mesh.Color
}

// Render clears the scissor area to the scene background and draws the scene's fill and
// wireframe with cam. An unloaded scene draws background only.
func (s *Surface) Render(sc *scene.Scene, cam *camera.Camera) {
	s.Clear(sc.Lighting.Background)
	if !sc.Loaded() || s.scissor.Empty() || s.viewport.Empty() {
		return
	}
	s.drawFill(sc, cam)
	s.drawWire(sc, cam)
}

func (s *Surface) drawFill(sc *scene.Scene, cam *camera.Camera) {
	g := sc.Geometry
	m := sc.Fill
	light := r3.Unit(sc.Lighting.LightPosition)
	hasNormals := len(g.Normals) == len(g.Positions)
	hasColors := m.VertexColors && len(g.Colors) == len(g.Positions)

	for f := 0; f < g.FaceCount(); f++ {
		idx := [3]int{}
		idx[0], idx[1], idx[2] = g.Face(f)
		pa, pb, pc := g.Positions[idx[0]], g.Positions[idx[1]], g.Positions[idx[2]]
		fn := r3.Cross(r3.Sub(pc, pb), r3.Sub(pa, pb))
		front := r3.Dot(fn, r3.Sub(cam.Position, pa)) >= 0
		if !front && !m.DoubleSided {
			continue
		}

		poly := make([]vertex, 3)
		for k, v := range idx {
			n := fn
			if hasNormals {
				n = g.Normals[v]
			}
			if !front {
				n = r3.Scale(-1, n)
			}
			base := m.Color
			if hasColors {
				base = g.Colors[v]
			}
			p := g.Positions[v]
			poly[k] = vertex{world: p, view: cam.ToView(p), col: shade(base, n, light, sc.Lighting)}
		}

		poly = clipPlane(poly, m.Clip)
		poly = clipNear(poly, cam.Near)
		if len(poly) < 3 {
			continue
		}
		sv := s.project(poly, cam)
		for i := 1; i+1 < len(sv); i++ {
			s.triangle(sv[0], sv[i], sv[i+1], m)
		}
	}
}

func (s *Surface) drawWire(sc *scene.Scene, cam *camera.Camera) {
	g := sc.Geometry
	c := toRGBA(sc.Wire.Color)
	for _, e := range sc.Edges {
		a, b := g.Positions[e[0]], g.Positions[e[1]]
		seg := []vertex{{world: a, view: cam.ToView(a)}, {world: b, view: cam.ToView(b)}}
		var ok bool
		if seg, ok = clipSegment(seg, func(v vertex) float64 { return planeDist(sc.Wire.Clip, v) }); !ok {
			continue
		}
		if seg, ok = clipSegment(seg, func(v vertex) float64 { return -v.view.Z - cam.Near }); !ok {
			continue
		}
		sv := s.project(seg, cam)
		s.line(sv[0], sv[1], c)
	}
}

// shade is ambient plus lambert lighting of a base color.
func shade(base mesh.Color, n, light r3.Vec, l scene.Lighting) mesh.Color {
	if nn := r3.Norm(n); nn > 0 {
		n = r3.Scale(1/nn, n)
	}
	d := math.Max(0, r3.Dot(n, light)) * l.Directional
	k := func(b, amb, dir float32) float32 {
		return b * (float32(l.Ambient)*amb + float32(d)*dir)
	}
	return mesh.Color{
		R: k(base.R, l.AmbientColor.R, l.DirectionalColor.R),
		G: k(base.G, l.AmbientColor.G, l.DirectionalColor.G),
		B: k(base.B, l.AmbientColor.B, l.DirectionalColor.B),
	}
}

func planeDist(p *clip.Plane, v vertex) float64 {
	if p == nil {
		return 1
	}
	return p.Distance(v.world)
}

func clipPlane(poly []vertex, p *clip.Plane) []vertex {
	if p == nil {
		return poly
	}
	return clipPoly(poly, func(v vertex) float64 { return planeDist(p, v) })
}

func clipNear(poly []vertex, near float64) []vertex {
	return clipPoly(poly, func(v vertex) float64 { return -v.view.Z - near })
}

// clipPoly keeps the part of a convex polygon where dist >= 0 (Sutherland-Hodgman).
func clipPoly(in []vertex, dist func(vertex) float64) []vertex {
	if len(in) == 0 {
		return in
	}
	out := make([]vertex, 0, len(in)+2)
	prev := in[len(in)-1]
	dp := dist(prev)
	for _, cur := range in {
		dc := dist(cur)
		switch {
		case dc >= 0 && dp >= 0:
			out = append(out, cur)
		case dc >= 0:
			out = append(out, lerp(prev, cur, dp/(dp-dc)), cur)
		case dp >= 0:
			out = append(out, lerp(prev, cur, dp/(dp-dc)))
		}
		prev, dp = cur, dc
	}
	return out
}

func clipSegment(seg []vertex, dist func(vertex) float64) ([]vertex, bool) {
	da, db := dist(seg[0]), dist(seg[1])
	switch {
	case da < 0 && db < 0:
		return nil, false
	case da < 0:
		seg[0] = lerp(seg[0], seg[1], da/(da-db))
	case db < 0:
		seg[1] = lerp(seg[0], seg[1], da/(da-db))
	}
	return seg, true
}

func lerp(a, b vertex, t float64) vertex {
	ft := float32(t)
	return vertex{
		world: r3.Add(a.world, r3.Scale(t, r3.Sub(b.world, a.world))),
		view:  r3.Add(a.view, r3.Scale(t, r3.Sub(b.view, a.view))),
		col: mesh.Color{
			R: a.col.R + ft*(b.col.R-a.col.R),
			G: a.col.G + ft*(b.col.G-a.col.G),
			B: a.col.B + ft*(b.col.B-a.col.B),
		},
	}
}

// project maps view-space vertices into viewport pixels with depth in [0,1].
func (s *Surface) project(in []vertex, cam *camera.Camera) []screenVertex {
	vp := s.viewport
	out := make([]screenVertex, len(in))
	for i, v := range in {
		ndc, _ := cam.ProjectView(v.view)
		out[i] = screenVertex{
			x:   float64(vp.Min.X) + (ndc.X+1)/2*float64(vp.Dx()),
			y:   float64(vp.Min.Y) + (1-ndc.Y)/2*float64(vp.Dy()),
			z:   (ndc.Z + 1) / 2,
			col: v.col,
		}
	}
	return out
}

func edge(a, b screenVertex, px, py float64) float64 {
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

func (s *Surface) triangle(a, b, c screenVertex, m scene.Material) {
	area := edge(a, b, c.x, c.y)
	if math.Abs(area) < 1e-12 {
		return
	}
	offset := 0.0
	if m.PolygonOffset {
		dzdx := ((b.z-a.z)*(c.y-a.y) - (c.z-a.z)*(b.y-a.y)) / area
		dzdy := ((c.z-a.z)*(b.x-a.x) - (b.z-a.z)*(c.x-a.x)) / area
		offset = m.OffsetFactor*math.Max(math.Abs(dzdx), math.Abs(dzdy)) + m.OffsetUnits*depthUnit
	}

	minX := int(math.Floor(math.Min(a.x, math.Min(b.x, c.x))))
	maxX := int(math.Ceil(math.Max(a.x, math.Max(b.x, c.x))))
	minY := int(math.Floor(math.Min(a.y, math.Min(b.y, c.y))))
	maxY := int(math.Ceil(math.Max(a.y, math.Max(b.y, c.y))))
	sc := s.scissor
	minX, maxX = max(minX, sc.Min.X), min(maxX, sc.Max.X-1)
	minY, maxY = max(minY, sc.Min.Y), min(maxY, sc.Max.Y-1)

	for y := minY; y <= maxY; y++ {
		py := float64(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float64(x) + 0.5
			w0 := edge(b, c, px, py) / area
			w1 := edge(c, a, px, py) / area
			w2 := edge(a, b, px, py) / area
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			z := w0*a.z + w1*b.z + w2*c.z
			if z < 0 || z > 1 {
				continue
			}
			col := mesh.Color{
				R: float32(w0)*a.col.R + float32(w1)*b.col.R + float32(w2)*c.col.R,
				G: float32(w0)*a.col.G + float32(w1)*b.col.G + float32(w2)*c.col.G,
				B: float32(w0)*a.col.B + float32(w1)*b.col.B + float32(w2)*c.col.B,
			}
			s.plot(x, y, z+offset, toRGBA(col))
		}
	}
}

func (s *Surface) line(a, b screenVertex, c color.RGBA) {
	a, b, ok := clipToRect(a, b, s.scissor)
	if !ok {
		return
	}
	dx, dy := b.x-a.x, b.y-a.y
	steps := int(math.Ceil(math.Max(math.Abs(dx), math.Abs(dy))))
	if steps == 0 {
		steps = 1
	}
	for k := 0; k <= steps; k++ {
		t := float64(k) / float64(steps)
		z := a.z + t*(b.z-a.z)
		if z < 0 || z > 1 {
			continue
		}
		s.plot(int(math.Floor(a.x+t*dx)), int(math.Floor(a.y+t*dy)), z, c)
	}
}

// clipToRect trims segment ab to r with Liang-Barsky, so stepping is bounded by the rect
// size rather than the projected length.
func clipToRect(a, b screenVertex, r image.Rectangle) (screenVertex, screenVertex, bool) {
	for _, v := range [4]float64{a.x, a.y, b.x, b.y} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return a, b, false
		}
	}
	dx, dy := b.x-a.x, b.y-a.y
	t0, t1 := 0.0, 1.0
	for _, e := range [4][2]float64{
		{-dx, a.x - float64(r.Min.X)},
		{dx, float64(r.Max.X) - a.x},
		{-dy, a.y - float64(r.Min.Y)},
		{dy, float64(r.Max.Y) - a.y},
	} {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return a, b, false
			}
			continue
		}
		t := q / p
		if p < 0 {
			t0 = math.Max(t0, t)
		} else {
			t1 = math.Min(t1, t)
		}
		if t0 > t1 {
			return a, b, false
		}
	}
	at := func(t float64) screenVertex {
		return screenVertex{x: a.x + t*dx, y: a.y + t*dy, z: a.z + t*(b.z-a.z), col: a.col}
	}
	return at(t0), at(t1), true
}
