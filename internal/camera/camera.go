// Package camera holds the perspective cameras of the grid and keeps the followers locked to
// the master camera.
package camera

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Up is the world up axis.
var Up = r3.Vec{Y: 1}

// Camera is a perspective camera looking down its local -Z axis.
type Camera struct {
	FOV    float64 // vertical field of view, degrees
	Near   float64
	Far    float64
	Aspect float64

	Position    r3.Vec
	Orientation quat.Number

	projection *mat.Dense
	world      *mat.Dense
	worldDirty bool
}

// New returns a camera at the origin with identity orientation and aspect 1.
func New(fov, near, far float64) *Camera {
	c := &Camera{
		FOV:         fov,
		Near:        near,
		Far:         far,
		Aspect:      1,
		Orientation: quat.Number{Real: 1},
		projection:  mat.NewDense(4, 4, nil),
		world:       mat.NewDense(4, 4, nil),
		worldDirty:  true,
	}
	c.UpdateProjectionMatrix()
	return c
}

// Clone copies lens, pose and aspect into a new camera.
func (c *Camera) Clone() *Camera {
	n := New(c.FOV, c.Near, c.Far)
	n.Aspect = c.Aspect
	n.Position = c.Position
	n.Orientation = c.Orientation
	n.UpdateProjectionMatrix()
	return n
}

// UpdateProjectionMatrix recomputes the projection from FOV, Aspect, Near and Far.
func (c *Camera) UpdateProjectionMatrix() {
	top := c.Near * math.Tan(c.FOV*math.Pi/360)
	aspect := c.Aspect
	if aspect <= 0 {
		aspect = 1
	}
	fr := c.Far - c.Near
	c.projection.Zero()
	c.projection.Set(0, 0, c.Near/(top*aspect))
	c.projection.Set(1, 1, c.Near/top)
	c.projection.Set(2, 2, -(c.Far+c.Near)/fr)
	c.projection.Set(2, 3, -2*c.Far*c.Near/fr)
	c.projection.Set(3, 2, -1)
}

// Projection returns the projection matrix. Callers must not modify it.
func (c *Camera) Projection() mat.Matrix { return c.projection }

// SetPose sets position and orientation and marks the world matrix dirty.
func (c *Camera) SetPose(pos r3.Vec, q quat.Number) {
	c.Position = pos
	c.Orientation = q
	c.worldDirty = true
}

// LookAt orients the camera so that -Z points at target.
func (c *Camera) LookAt(target r3.Vec) {
	z := r3.Sub(c.Position, target)
	if r3.Norm(z) == 0 {
		return
	}
	z = r3.Unit(z)
	up := Up
	if math.Abs(r3.Dot(up, z)) > 1-1e-9 {
		up = r3.Vec{Z: 1}
	}
	x := r3.Unit(r3.Cross(up, z))
	y := r3.Cross(z, x)
	c.Orientation = fromBasis(x, y, z)
	c.worldDirty = true
}

// UpdateMatrixWorld rebuilds the world matrix from the pose.
func (c *Camera) UpdateMatrixWorld() {
	x := rotate(c.Orientation, r3.Vec{X: 1})
	y := rotate(c.Orientation, r3.Vec{Y: 1})
	z := rotate(c.Orientation, r3.Vec{Z: 1})
	c.world.Zero()
	for i, v := range []r3.Vec{x, y, z, c.Position} {
		c.world.Set(0, i, v.X)
		c.world.Set(1, i, v.Y)
		c.world.Set(2, i, v.Z)
	}
	c.world.Set(3, 3, 1)
	c.worldDirty = false
}

// MatrixWorld returns the up-to-date world matrix.
func (c *Camera) MatrixWorld() mat.Matrix {
	if c.worldDirty {
		c.UpdateMatrixWorld()
	}
	return c.world
}

// WorldDirty reports whether the pose changed since the last UpdateMatrixWorld.
func (c *Camera) WorldDirty() bool { return c.worldDirty }

// ToView transforms a world point into camera space.
func (c *Camera) ToView(p r3.Vec) r3.Vec {
	return rotate(quat.Conj(c.Orientation), r3.Sub(p, c.Position))
}

// ProjectView projects a camera-space point. ndc is only meaningful for w > 0.
func (c *Camera) ProjectView(v r3.Vec) (ndc r3.Vec, w float64) {
	p := c.projection
	w = -v.Z
	if w == 0 {
		return r3.Vec{}, 0
	}
	ndc = r3.Vec{
		X: p.At(0, 0) * v.X / w,
		Y: p.At(1, 1) * v.Y / w,
		Z: (p.At(2, 2)*v.Z + p.At(2, 3)) / w,
	}
	return ndc, w
}

// Project transforms a world point to normalized device coordinates.
func (c *Camera) Project(p r3.Vec) (ndc r3.Vec, w float64) {
	return c.ProjectView(c.ToView(p))
}

// Right and Upward are the camera's local axes in world space.
func (c *Camera) Right() r3.Vec  { return rotate(c.Orientation, r3.Vec{X: 1}) }
func (c *Camera) Upward() r3.Vec { return rotate(c.Orientation, r3.Vec{Y: 1}) }

func rotate(q quat.Number, v r3.Vec) r3.Vec {
	p := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return r3.Vec{X: p.Imag, Y: p.Jmag, Z: p.Kmag}
}

// fromBasis converts an orthonormal basis (matrix columns x, y, z) to a unit quaternion.
func fromBasis(x, y, z r3.Vec) quat.Number {
	m00, m01, m02 := x.X, y.X, z.X
	m10, m11, m12 := x.Y, y.Y, z.Y
	m20, m21, m22 := x.Z, y.Z, z.Z

	var q quat.Number
	switch tr := m00 + m11 + m22; {
	case tr > 0:
		s := 0.5 / math.Sqrt(tr+1)
		q = quat.Number{Real: 0.25 / s, Imag: (m21 - m12) * s, Jmag: (m02 - m20) * s, Kmag: (m10 - m01) * s}
	case m00 > m11 && m00 > m22:
		s := 2 * math.Sqrt(1+m00-m11-m22)
		q = quat.Number{Real: (m21 - m12) / s, Imag: 0.25 * s, Jmag: (m01 + m10) / s, Kmag: (m02 + m20) / s}
	case m11 > m22:
		s := 2 * math.Sqrt(1+m11-m00-m22)
		q = quat.Number{Real: (m02 - m20) / s, Imag: (m01 + m10) / s, Jmag: 0.25 * s, Kmag: (m12 + m21) / s}
	default:
		s := 2 * math.Sqrt(1+m22-m00-m11)
		q = quat.Number{Real: (m10 - m01) / s, Imag: (m02 + m20) / s, Jmag: (m12 + m21) / s, Kmag: 0.25 * s}
	}
	return quat.Scale(1/quat.Abs(q), q)
}
