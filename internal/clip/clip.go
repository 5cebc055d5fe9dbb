// Package clip owns the slicing planes applied to the grid's materials.
package clip

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/coreman2200/funtimes-meshgrid/internal/diagnostics"
)

// Plane is n·p + Constant = 0. Points with negative signed distance are clipped away.
type Plane struct {
	Normal   r3.Vec
	Constant float64
}

// Distance is the signed distance of p for a unit normal.
func (p *Plane) Distance(v r3.Vec) float64 { return r3.Dot(p.Normal, v) + p.Constant }

// Keeps reports whether v survives the plane.
func (p *Plane) Keeps(v r3.Vec) bool { return p.Distance(v) >= 0 }

// Intersect returns t in [0,1] where segment a->b crosses the plane.
func (p *Plane) Intersect(a, b r3.Vec) float64 {
	da, db := p.Distance(a), p.Distance(b)
	if da == db {
		return 0
	}
	return da / (da - db)
}

// Mode selects between one plane per row and one plane shared by every row.
type Mode string

const (
	PerRow Mode = "row"
	Global Mode = "global"
)

// Controller holds the planes and their bounded offsets.
type Controller struct {
	mode     Mode
	rows     int
	min, max float64
	planes   []*Plane
}

// New builds a controller for rows rows. normal is normalised; offsets start at 0 clamped
// into [min, max].
func New(mode Mode, rows int, normal r3.Vec, min, max float64) (*Controller, error) {
	if rows <= 0 {
		return nil, diagnostics.Configf("clip.rows", "must be > 0, got %d", rows)
	}
	if min > max {
		return nil, diagnostics.Configf("clip.range", "min %v > max %v", min, max)
	}
	if r3.Norm(normal) == 0 {
		return nil, diagnostics.Configf("clip.normal", "must be non-zero")
	}
	n := 1
	switch mode {
	case PerRow:
		n = rows
	case Global:
	default:
		return nil, diagnostics.Configf("clip.mode", "unknown mode %q", mode)
	}
	c := &Controller{mode: mode, rows: rows, min: min, max: max, planes: make([]*Plane, n)}
	start := clampf(0, min, max)
	for i := range c.planes {
		c.planes[i] = &Plane{Normal: r3.Unit(normal), Constant: start}
	}
	return c, nil
}

func (c *Controller) Mode() Mode { return c.mode }
func (c *Controller) Rows() int  { return c.rows }

// Range returns the slider bounds.
func (c *Controller) Range() (min, max float64) { return c.min, c.max }

// Plane returns the plane materials of row must reference. In Global mode every row gets the
// same pointer.
func (c *Controller) Plane(row int) *Plane {
	if c.mode == Global {
		return c.planes[0]
	}
	if row < 0 || row >= len(c.planes) {
		return nil
	}
	return c.planes[row]
}

// SetOffset moves the plane of row to v, clamped into range, and returns the applied value.
func (c *Controller) SetOffset(row int, v float64) (float64, error) {
	if row < 0 || row >= c.rows {
		return 0, fmt.Errorf("clip row %d out of range [0,%d)", row, c.rows)
	}
	v = clampf(v, c.min, c.max)
	c.Plane(row).Constant = v
	return v, nil
}

// Offset is the current plane constant of row.
func (c *Controller) Offset(row int) float64 {
	if p := c.Plane(row); p != nil {
		return p.Constant
	}
	return 0
}

func clampf(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
