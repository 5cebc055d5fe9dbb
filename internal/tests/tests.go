// Package tests paints calibration patterns over the grid cells so the
// viewport layout can be checked without any meshes loaded.
package tests

import (
	"image"
	"image/color"
	"image/draw"
)

type Kind string

const (
	None      Kind = ""
	CellSweep Kind = "cell_sweep"
	RGBTest   Kind = "rgb_channels"
	RowSweep  Kind = "row_sweep"
)

// Parse maps a pattern name to its Kind. ok is false for unknown names.
func Parse(name string) (Kind, bool) {
	switch k := Kind(name); k {
	case CellSweep, RGBTest, RowSweep:
		return k, true
	}
	return None, false
}

type Plan struct{ Kind Kind }

type Runner struct {
	plan Plan
	step int
}

func NewRunner(plan Plan) *Runner { return &Runner{plan: plan} }
func (r *Runner) Kind() Kind      { return r.plan.Kind }
func (r *Runner) Step() int       { return r.step }

var (
	off  = color.RGBA{A: 255}
	on   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	cyan = color.RGBA{G: 255, B: 255, A: 255}
)

// Next paints the next frame of the pattern into the cell rectangles of img.
// cells are in row-major order, cols per row. Returns false when complete.
func (r *Runner) Next(img *image.RGBA, cells []image.Rectangle, cols int) bool {
	n := len(cells)
	if n == 0 || cols <= 0 {
		return false
	}
	for _, c := range cells {
		fill(img, c, off)
	}

	switch r.plan.Kind {
	case CellSweep:
		if r.step >= n {
			return false
		}
		fill(img, cells[r.step], on)
	case RGBTest:
		if r.step >= 3 {
			return false
		}
		c := off
		switch r.step {
		case 0:
			c.R = 255
		case 1:
			c.G = 255
		case 2:
			c.B = 255
		}
		for _, rect := range cells {
			fill(img, rect, c)
		}
	case RowSweep:
		rows := (n + cols - 1) / cols
		if r.step >= rows {
			return false
		}
		for i := r.step * cols; i < min(n, (r.step+1)*cols); i++ {
			fill(img, cells[i], cyan)
		}
	default:
		return false
	}
	r.step++
	return true
}

func fill(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	draw.Draw(img, r, &image.Uniform{C: c}, image.Point{}, draw.Src)
}
