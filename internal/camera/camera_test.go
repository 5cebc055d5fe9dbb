package camera

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/coreman2200/funtimes-meshgrid/internal/diagnostics"
)

func newTestRig(t *testing.T, n int) (*Rig, *Orbit) {
	t.Helper()
	proto := New(45, 0.1, 1000)
	proto.Position = r3.Vec{Y: 3, Z: 10}
	r, err := NewRig(n, proto)
	require.NoError(t, err)
	return r, NewOrbit(r.Master(), r3.Vec{}, 0.05)
}

func TestNewRigRejectsEmpty(t *testing.T) {
	_, err := NewRig(0, New(45, 0.1, 1000))
	var ce *diagnostics.ConfigurationError
	assert.True(t, errors.As(err, &ce))
}

func TestSyncCopiesMasterPose(t *testing.T) {
	r, o := newTestRig(t, 6)
	o.Rotate(0.4, -0.2)
	o.Pan(30, 10, 300)
	for i := 0; i < 10; i++ {
		o.Update()
	}
	r.Sync()

	m := r.Master()
	for i := 1; i < r.Len(); i++ {
		f := r.Camera(i)
		assert.Equal(t, m.Position, f.Position, "camera %d", i)
		assert.Equal(t, m.Orientation, f.Orientation, "camera %d", i)
		assert.True(t, f.WorldDirty())
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	r, o := newTestRig(t, 4)
	o.Rotate(1, 0.3)
	o.Update()
	r.Sync()

	first := make([]Camera, r.Len())
	for i := range first {
		first[i] = *r.Camera(i)
	}
	r.Sync()
	for i := 1; i < r.Len(); i++ {
		assert.Equal(t, first[i].Position, r.Camera(i).Position)
		assert.Equal(t, first[i].Orientation, r.Camera(i).Orientation)
	}
}

func TestFollowersIgnoreTheirOwnDrift(t *testing.T) {
	r, _ := newTestRig(t, 3)
	r.Camera(2).Position = r3.Vec{X: 99}
	r.Sync()
	assert.Equal(t, r.Master().Position, r.Camera(2).Position)
}

func TestSetAspectRecomputesProjection(t *testing.T) {
	r, _ := newTestRig(t, 2)
	require.NoError(t, r.SetAspect(1, 400, 200))

	c := r.Camera(1)
	assert.Equal(t, 2.0, c.Aspect)
	f := 1 / math.Tan(45*math.Pi/360)
	assert.InDelta(t, f/2, c.Projection().At(0, 0), 1e-9)
	assert.InDelta(t, f, c.Projection().At(1, 1), 1e-9)
	// other cameras untouched
	assert.Equal(t, 1.0, r.Camera(0).Aspect)

	assert.Error(t, r.SetAspect(2, 1, 1))
	assert.Error(t, r.SetAspect(0, 0, 100))
}

func TestLookAtPointsDownNegativeZ(t *testing.T) {
	c := New(45, 0.1, 1000)
	c.Position = r3.Vec{Y: 3, Z: 10}
	c.LookAt(r3.Vec{})

	v := c.ToView(r3.Vec{})
	assert.InDelta(t, 0, v.X, 1e-9)
	assert.InDelta(t, 0, v.Y, 1e-9)
	assert.InDelta(t, -math.Sqrt(109), v.Z, 1e-9)

	ndc, w := c.Project(r3.Vec{})
	assert.Greater(t, w, 0.0)
	assert.InDelta(t, 0, ndc.X, 1e-9)
	assert.InDelta(t, 0, ndc.Y, 1e-9)
	assert.True(t, ndc.Z > -1 && ndc.Z < 1)
}

func TestMatrixWorldMatchesPose(t *testing.T) {
	c := New(45, 0.1, 1000)
	c.Position = r3.Vec{X: 1, Y: 2, Z: 3}
	c.LookAt(r3.Vec{})
	m := c.MatrixWorld()
	assert.False(t, c.WorldDirty())
	assert.Equal(t, 1.0, m.At(0, 3))
	assert.Equal(t, 2.0, m.At(1, 3))
	assert.Equal(t, 3.0, m.At(2, 3))
	assert.Equal(t, 1.0, m.At(3, 3))
}

func TestOrbitDampingConverges(t *testing.T) {
	_, o := newTestRig(t, 1)
	start := o.Camera.Position
	radius := r3.Norm(start)

	o.Rotate(math.Pi/2, 0)
	moved := 0
	for i := 0; i < 800; i++ {
		if o.Update() {
			moved++
		}
	}
	assert.Greater(t, moved, 10)
	assert.False(t, o.Update(), "deltas should have decayed")
	assert.InDelta(t, radius, r3.Norm(o.Camera.Position), 1e-6)
	assert.NotEqual(t, start, o.Camera.Position)
}

func TestOrbitWithoutInputDoesNotMove(t *testing.T) {
	_, o := newTestRig(t, 1)
	o.Update()
	assert.False(t, o.Update())
}

func TestOrbitDolly(t *testing.T) {
	_, o := newTestRig(t, 1)
	r0 := r3.Norm(o.Camera.Position)
	o.Dolly(0.5)
	o.Update()
	assert.InDelta(t, r0/2, r3.Norm(o.Camera.Position), 1e-9)
}

func TestOrbitPolarClamp(t *testing.T) {
	_, o := newTestRig(t, 1)
	o.Damping = 0
	o.Rotate(0, 10)
	o.Update()
	assert.Greater(t, o.Camera.Position.Y, 0.0)
	assert.InDelta(t, 0, o.Camera.Position.X, 1e-3)
}
