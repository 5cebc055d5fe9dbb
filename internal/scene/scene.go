// Package scene keeps one scene per grid cell: lighting, the loaded mesh, its materials and
// the row's intersection index.
package scene

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/coreman2200/funtimes-meshgrid/internal/clip"
	"github.com/coreman2200/funtimes-meshgrid/internal/layout"
	"github.com/coreman2200/funtimes-meshgrid/internal/mesh"
)

// Lighting is the light setup shared by every scene.
type Lighting struct {
	Background       mesh.Color
	AmbientColor     mesh.Color
	Ambient          float64
	DirectionalColor mesh.Color
	Directional      float64
	// LightPosition is where the directional light sits; it shines toward the origin.
	LightPosition r3.Vec
}

// DefaultLighting is a white background with white ambient and key lights.
func DefaultLighting() Lighting {
	return Lighting{
		Background:       mesh.White,
		AmbientColor:     mesh.White,
		Ambient:          0.6,
		DirectionalColor: mesh.White,
		Directional:      0.8,
		LightPosition:    r3.Vec{X: 5, Y: 10, Z: 5},
	}
}

// Material describes how a scene's geometry is drawn.
type Material struct {
	Color        mesh.Color
	VertexColors bool
	DoubleSided  bool
	// Polygon offset pushes fills back in depth so the wireframe stays on top.
	PolygonOffset bool
	OffsetFactor  float64
	OffsetUnits   float64
	// Clip is the row's plane. It is shared, never copied, so slider moves apply at once.
	Clip *clip.Plane
}

// Scene is the content of one cell.
type Scene struct {
	Row, Col int
	Label    string
	Lighting Lighting

	// Geometry is what gets drawn; nil until a mesh arrives.
	Geometry *mesh.Geometry
	Edges    [][2]int
	Fill     Material
	Wire     Material

	raw *mesh.Geometry
}

// Loaded reports whether a mesh has been attached.
func (s *Scene) Loaded() bool { return s.Geometry != nil }

// Colored reports whether the scene shows intersection colors.
func (s *Scene) Colored() bool { return s.Fill.VertexColors }

// Option configures a Registry.
type Option func(*Registry)

// WithColumnLabels names each column; cell labels repeat down the rows.
func WithColumnLabels(labels []string) Option {
	return func(r *Registry) { r.labels = labels }
}

// Registry owns the scenes of the grid, row-major.
type Registry struct {
	grid   layout.Grid
	refCol int
	clip   *clip.Controller
	labels []string

	scenes []*Scene
	index  []*mesh.FaceSet
}

// NewRegistry creates an empty scene for every cell. refCol is the column holding the
// reference mesh that intersection colors are applied to; -1 disables coloring.
func NewRegistry(grid layout.Grid, refCol int, clipCtl *clip.Controller, light Lighting, opts ...Option) (*Registry, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	if clipCtl == nil || clipCtl.Rows() != grid.Rows {
		return nil, fmt.Errorf("scene: clip controller does not cover %d rows", grid.Rows)
	}
	r := &Registry{
		grid:   grid,
		refCol: refCol,
		clip:   clipCtl,
		scenes: make([]*Scene, grid.Count()),
		index:  make([]*mesh.FaceSet, grid.Rows),
	}
	for _, o := range opts {
		o(r)
	}
	for i := range r.scenes {
		row, col := grid.RowCol(i)
		s := &Scene{Row: row, Col: col, Lighting: light}
		if col < len(r.labels) {
			s.Label = r.labels[col]
		}
		r.scenes[i] = s
	}
	return r, nil
}

func (r *Registry) Len() int { return len(r.scenes) }

// Scene returns the scene of cell i.
func (r *Registry) Scene(i int) *Scene { return r.scenes[i] }

// Loaded reports whether cell i has its mesh.
func (r *Registry) Loaded(i int) bool { return r.scenes[i].Loaded() }

// HasIndex reports whether row's intersection index has arrived.
func (r *Registry) HasIndex(row int) bool {
	return row >= 0 && row < len(r.index) && r.index[row] != nil
}

// RefCol is the reference column.
func (r *Registry) RefCol() int { return r.refCol }

// AttachMesh populates cell (row, col) with geom. A cell accepts exactly one mesh.
func (r *Registry) AttachMesh(row, col int, geom *mesh.Geometry) error {
	if row < 0 || row >= r.grid.Rows || col < 0 || col >= r.grid.Cols {
		return fmt.Errorf("scene: cell %d,%d out of range", row, col)
	}
	if geom == nil {
		return fmt.Errorf("scene: nil geometry for cell %d,%d", row, col)
	}
	s := r.scenes[r.grid.Index(row, col)]
	if s.raw != nil {
		return fmt.Errorf("scene: cell %d,%d already loaded", row, col)
	}
	s.raw = geom
	r.build(s)
	return nil
}

// SetIntersections stores row's intersection index and recolors the reference cell if its
// mesh is already present.
func (r *Registry) SetIntersections(row int, faces []int) error {
	if row < 0 || row >= len(r.index) {
		return fmt.Errorf("scene: row %d out of range", row)
	}
	r.index[row] = mesh.NewFaceSet(faces)
	if r.refCol < 0 || r.refCol >= r.grid.Cols {
		return nil
	}
	if s := r.scenes[r.grid.Index(row, r.refCol)]; s.raw != nil {
		r.build(s)
	}
	return nil
}

// build derives the drawable geometry and materials of s from its raw mesh and, for the
// reference cell, the row's index. Both arrival orders end in the same state.
func (r *Registry) build(s *Scene) {
	plane := r.clip.Plane(s.Row)
	s.Fill = Material{
		Color:         mesh.White,
		DoubleSided:   true,
		PolygonOffset: true,
		OffsetFactor:  1,
		OffsetUnits:   1,
		Clip:          plane,
	}
	s.Wire = Material{Color: mesh.Black, Clip: plane}

	g := s.raw.ToNonIndexed()
	g.ComputeVertexNormals()
	if set := r.index[s.Row]; s.Col == r.refCol && set != nil {
		// g is freshly de-indexed so this cannot fail.
		_ = mesh.ColorFaces(g, set)
		s.Fill.VertexColors = true
	}
	s.Geometry = g
	s.Edges = s.Geometry.Edges()
}
