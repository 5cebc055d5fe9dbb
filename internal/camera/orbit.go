package camera

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	minPolar = 1e-6
	eps      = 1e-9
)

// Orbit drives a single camera around a target with damped rotate, pan and dolly input.
// Input accumulates into deltas which Update consumes a fraction of per tick.
type Orbit struct {
	Camera  *Camera
	Target  r3.Vec
	Damping float64 // 0 disables damping

	MinDistance, MaxDistance float64

	dTheta, dPhi float64
	scale        float64
	pan          r3.Vec
}

// NewOrbit attaches an orbit controller to c, looking at target.
func NewOrbit(c *Camera, target r3.Vec, damping float64) *Orbit {
	o := &Orbit{
		Camera:      c,
		Target:      target,
		Damping:     damping,
		MaxDistance: math.Inf(1),
		scale:       1,
	}
	c.LookAt(target)
	return o
}

// Rotate queues an azimuth (around world Y) and polar rotation in radians.
func (o *Orbit) Rotate(azimuth, polar float64) {
	o.dTheta -= azimuth
	o.dPhi -= polar
}

// Drag converts a pointer drag in pixels into a rotation, one full turn per viewport height.
func (o *Orbit) Drag(dx, dy, viewportHeight float64) {
	if viewportHeight <= 0 {
		return
	}
	o.Rotate(2*math.Pi*dx/viewportHeight, 2*math.Pi*dy/viewportHeight)
}

// Pan queues a screen-space pan in pixels for a viewport of the given height.
func (o *Orbit) Pan(dx, dy, viewportHeight float64) {
	if viewportHeight <= 0 {
		return
	}
	c := o.Camera
	dist := r3.Norm(r3.Sub(c.Position, o.Target)) * math.Tan(c.FOV*math.Pi/360)
	left := r3.Scale(-2*dx*dist/viewportHeight, c.Right())
	up := r3.Scale(2*dy*dist/viewportHeight, c.Upward())
	o.pan = r3.Add(o.pan, r3.Add(left, up))
}

// Dolly scales the orbit radius on the next Update; factor < 1 moves closer.
func (o *Orbit) Dolly(factor float64) {
	if factor > 0 {
		o.scale *= factor
	}
}

// Update applies pending input to the camera. It reports whether the camera moved.
func (o *Orbit) Update() bool {
	c := o.Camera
	before, beforeQ := c.Position, c.Orientation

	off := r3.Sub(c.Position, o.Target)
	radius := r3.Norm(off)
	theta := math.Atan2(off.X, off.Z)
	phi := 0.0
	if radius > 0 {
		phi = math.Acos(clamp(off.Y/radius, -1, 1))
	}

	f := 1.0
	if o.Damping > 0 {
		f = o.Damping
	}
	theta += o.dTheta * f
	phi += o.dPhi * f
	phi = clamp(phi, minPolar, math.Pi-minPolar)

	radius = clamp(radius*o.scale, o.MinDistance, o.MaxDistance)
	o.Target = r3.Add(o.Target, r3.Scale(f, o.pan))

	sp := math.Sin(phi)
	off = r3.Vec{
		X: radius * sp * math.Sin(theta),
		Y: radius * math.Cos(phi),
		Z: radius * sp * math.Cos(theta),
	}
	c.Position = r3.Add(o.Target, off)
	c.LookAt(o.Target)

	if o.Damping > 0 {
		o.dTheta *= 1 - o.Damping
		o.dPhi *= 1 - o.Damping
		o.pan = r3.Scale(1-o.Damping, o.pan)
	} else {
		o.dTheta, o.dPhi = 0, 0
		o.pan = r3.Vec{}
	}
	o.scale = 1

	moved := r3.Norm(r3.Sub(c.Position, before)) > eps
	dq := c.Orientation.Real*beforeQ.Real + c.Orientation.Imag*beforeQ.Imag +
		c.Orientation.Jmag*beforeQ.Jmag + c.Orientation.Kmag*beforeQ.Kmag
	return moved || 8*(1-math.Abs(dq)) > eps
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
