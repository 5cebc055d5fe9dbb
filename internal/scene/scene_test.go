package scene

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/coreman2200/funtimes-meshgrid/internal/clip"
	"github.com/coreman2200/funtimes-meshgrid/internal/layout"
	"github.com/coreman2200/funtimes-meshgrid/internal/mesh"
)

const twoFaceOBJ = "v 0 0 0\nv 1 0 0\nv 1 1 0\nv 0 1 0\nf 1 2 3\nf 1 3 4\n"

func newRegistry(t *testing.T, mode clip.Mode) (*Registry, *clip.Controller) {
	t.Helper()
	g, err := layout.New(2, 3, 50, 300, 40, 20)
	require.NoError(t, err)
	c, err := clip.New(mode, 2, r3.Vec{X: -1}, -5, 5)
	require.NoError(t, err)
	r, err := NewRegistry(g, 0, c, DefaultLighting(), WithColumnLabels([]string{"Original", "PyMeshFix", "PyMesh"}))
	require.NoError(t, err)
	return r, c
}

func twoFaces(t *testing.T) *mesh.Geometry {
	t.Helper()
	g, err := mesh.ParseOBJ(strings.NewReader(twoFaceOBJ))
	require.NoError(t, err)
	return g
}

func TestScenesStartEmpty(t *testing.T) {
	r, _ := newRegistry(t, clip.PerRow)
	assert.Equal(t, 6, r.Len())
	for i := 0; i < r.Len(); i++ {
		assert.False(t, r.Loaded(i))
		assert.Nil(t, r.Scene(i).Geometry)
	}
	assert.Equal(t, "PyMesh", r.Scene(5).Label)
	assert.Equal(t, 1, r.Scene(5).Row)
	assert.Equal(t, 2, r.Scene(5).Col)
}

func TestColoringIsOrderIndependent(t *testing.T) {
	meshFirst, _ := newRegistry(t, clip.PerRow)
	require.NoError(t, meshFirst.AttachMesh(1, 0, twoFaces(t)))
	assert.False(t, meshFirst.Scene(3).Colored())
	require.NoError(t, meshFirst.SetIntersections(1, []int{1}))

	indexFirst, _ := newRegistry(t, clip.PerRow)
	require.NoError(t, indexFirst.SetIntersections(1, []int{1}))
	require.NoError(t, indexFirst.AttachMesh(1, 0, twoFaces(t)))

	a, b := meshFirst.Scene(3), indexFirst.Scene(3)
	require.True(t, a.Colored())
	require.True(t, b.Colored())
	assert.Equal(t, a.Geometry.Colors, b.Geometry.Colors)
	assert.Equal(t, a.Geometry.Positions, b.Geometry.Positions)
	assert.Equal(t, a.Edges, b.Edges)
}

func TestReferenceCellColors(t *testing.T) {
	r, _ := newRegistry(t, clip.PerRow)
	require.NoError(t, r.SetIntersections(0, []int{1}))
	require.NoError(t, r.AttachMesh(0, 0, twoFaces(t)))

	g := r.Scene(0).Geometry
	assert.False(t, g.Indexed())
	require.Len(t, g.Colors, 6)
	for v := 0; v < 3; v++ {
		assert.Equal(t, mesh.Color{R: 1, G: 1, B: 1}, g.Colors[v])
	}
	for v := 3; v < 6; v++ {
		assert.Equal(t, mesh.Color{R: 1, G: 0, B: 0}, g.Colors[v])
	}
	assert.Len(t, g.Normals, 6)
}

func TestNonReferenceCellsStayWhite(t *testing.T) {
	r, _ := newRegistry(t, clip.PerRow)
	require.NoError(t, r.SetIntersections(0, []int{0, 1}))
	require.NoError(t, r.AttachMesh(0, 1, twoFaces(t)))

	s := r.Scene(1)
	assert.False(t, s.Colored())
	assert.Nil(t, s.Geometry.Colors)
	assert.Equal(t, mesh.White, s.Fill.Color)
	assert.True(t, s.Fill.DoubleSided)
	assert.True(t, s.Fill.PolygonOffset)
	assert.Equal(t, mesh.Black, s.Wire.Color)
	assert.Len(t, s.Edges, 6)
}

func TestReferenceWithoutIndexIsUniform(t *testing.T) {
	r, _ := newRegistry(t, clip.PerRow)
	require.NoError(t, r.AttachMesh(1, 0, twoFaces(t)))
	assert.False(t, r.HasIndex(1))
	assert.False(t, r.Scene(3).Colored())
	assert.False(t, r.Scene(3).Geometry.Indexed())
	assert.Nil(t, r.Scene(3).Geometry.Colors)
}

func TestEveryCellIsDeIndexed(t *testing.T) {
	r, _ := newRegistry(t, clip.PerRow)
	require.NoError(t, r.AttachMesh(0, 1, twoFaces(t)))
	g := r.Scene(1).Geometry
	assert.False(t, g.Indexed())
	assert.Len(t, g.Positions, 6)
	assert.Len(t, g.Normals, 6)

	// a late index leaves the reference cell's positions and normals where they were
	require.NoError(t, r.AttachMesh(1, 0, twoFaces(t)))
	before := r.Scene(3).Geometry
	require.NoError(t, r.SetIntersections(1, []int{0}))
	after := r.Scene(3).Geometry
	assert.Equal(t, before.Positions, after.Positions)
	assert.Equal(t, before.Normals, after.Normals)
	assert.True(t, r.Scene(3).Colored())
}

func TestHugeIndexEntriesAreIgnored(t *testing.T) {
	r, _ := newRegistry(t, clip.PerRow)
	faces, err := mesh.DecodeFaceIndex([]byte(`[1, 4611686018427387904]`))
	require.NoError(t, err)
	require.NoError(t, r.SetIntersections(0, faces))
	require.NoError(t, r.AttachMesh(0, 0, twoFaces(t)))

	g := r.Scene(0).Geometry
	assert.Equal(t, mesh.White, g.Colors[0])
	assert.Equal(t, mesh.Red, g.Colors[3])
}

func TestMaterialsShareRowPlane(t *testing.T) {
	r, c := newRegistry(t, clip.PerRow)
	for col := 0; col < 3; col++ {
		require.NoError(t, r.AttachMesh(1, col, twoFaces(t)))
	}
	for col := 0; col < 3; col++ {
		s := r.Scene(3 + col)
		assert.Same(t, c.Plane(1), s.Fill.Clip)
		assert.Same(t, c.Plane(1), s.Wire.Clip)
	}

	_, err := c.SetOffset(1, 1.2)
	require.NoError(t, err)
	assert.Equal(t, 1.2, r.Scene(4).Fill.Clip.Constant)
}

func TestGlobalPlaneSharedAcrossRows(t *testing.T) {
	r, c := newRegistry(t, clip.Global)
	require.NoError(t, r.AttachMesh(0, 2, twoFaces(t)))
	require.NoError(t, r.AttachMesh(1, 2, twoFaces(t)))
	assert.Same(t, r.Scene(2).Fill.Clip, r.Scene(5).Fill.Clip)
	assert.Same(t, c.Plane(0), r.Scene(5).Fill.Clip)
}

func TestAttachMeshErrors(t *testing.T) {
	r, _ := newRegistry(t, clip.PerRow)
	assert.Error(t, r.AttachMesh(2, 0, twoFaces(t)))
	assert.Error(t, r.AttachMesh(0, 3, twoFaces(t)))
	assert.Error(t, r.AttachMesh(0, 0, nil))

	require.NoError(t, r.AttachMesh(0, 0, twoFaces(t)))
	assert.Error(t, r.AttachMesh(0, 0, twoFaces(t)), "scenes load once")

	assert.Error(t, r.SetIntersections(5, nil))
}

func TestNewRegistryRejectsMismatchedClip(t *testing.T) {
	g, _ := layout.New(3, 2, 0, 100, 0, 0)
	c, _ := clip.New(clip.PerRow, 2, r3.Vec{X: -1}, -5, 5)
	_, err := NewRegistry(g, 0, c, DefaultLighting())
	assert.Error(t, err)
}
