package camera

import (
	"fmt"

	"github.com/coreman2200/funtimes-meshgrid/internal/diagnostics"
)

// Rig owns one camera per cell. Camera 0 is the master; the rest follow it and are never
// handed to input handlers.
type Rig struct {
	cams []*Camera
}

// NewRig clones proto n times.
func NewRig(n int, proto *Camera) (*Rig, error) {
	if n <= 0 {
		return nil, diagnostics.Configf("camera.count", "must be > 0, got %d", n)
	}
	r := &Rig{cams: make([]*Camera, n)}
	for i := range r.cams {
		r.cams[i] = proto.Clone()
	}
	return r, nil
}

func (r *Rig) Len() int { return len(r.cams) }

// Master is the only camera that accepts user input.
func (r *Rig) Master() *Camera { return r.cams[0] }

// Camera returns the camera of cell i.
func (r *Rig) Camera(i int) *Camera { return r.cams[i] }

// Sync copies the master pose into every follower and marks their world matrices dirty.
func (r *Rig) Sync() {
	m := r.cams[0]
	for _, f := range r.cams[1:] {
		f.SetPose(m.Position, m.Orientation)
	}
}

// SetAspect updates the projection of camera i for a w x h cell.
func (r *Rig) SetAspect(i int, w, h float64) error {
	if i < 0 || i >= len(r.cams) {
		return fmt.Errorf("camera index %d out of range [0,%d)", i, len(r.cams))
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("camera %d: degenerate cell %vx%v", i, w, h)
	}
	c := r.cams[i]
	c.Aspect = w / h
	c.UpdateProjectionMatrix()
	return nil
}
