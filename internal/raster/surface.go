// Package raster is the software output surface the grid is drawn into: one RGBA canvas with
// a depth buffer, a movable viewport and a scissor rectangle.
package raster

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/coreman2200/funtimes-meshgrid/internal/mesh"
)

// Surface is a z-buffered RGBA canvas. Viewport and scissor are top-left pixel rectangles.
type Surface struct {
	img   *image.RGBA
	depth []float64

	viewport image.Rectangle
	scissor  image.Rectangle
}

// New allocates a w x h surface with viewport and scissor covering all of it.
func New(w, h int) *Surface {
	s := &Surface{}
	s.Resize(w, h)
	return s
}

// Resize reallocates the canvas. Contents are discarded.
func (s *Surface) Resize(w, h int) {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	s.img = image.NewRGBA(image.Rect(0, 0, w, h))
	s.depth = make([]float64, w*h)
	for i := range s.depth {
		s.depth[i] = math.Inf(1)
	}
	s.viewport = s.img.Bounds()
	s.scissor = s.img.Bounds()
}

func (s *Surface) Bounds() image.Rectangle { return s.img.Bounds() }

// Image returns the backing canvas. It is reused across frames.
func (s *Surface) Image() *image.RGBA { return s.img }

// SetViewport maps NDC [-1,1] onto r.
func (s *Surface) SetViewport(r image.Rectangle) { s.viewport = r }

// SetScissor restricts every write to r.
func (s *Surface) SetScissor(r image.Rectangle) { s.scissor = r.Intersect(s.img.Bounds()) }

func (s *Surface) Viewport() image.Rectangle { return s.viewport }
func (s *Surface) Scissor() image.Rectangle  { return s.scissor }

// Clear fills the scissor rectangle with c and resets its depth.
func (s *Surface) Clear(c mesh.Color) {
	draw.Draw(s.img, s.scissor, image.NewUniform(toRGBA(c)), image.Point{}, draw.Src)
	w := s.img.Bounds().Dx()
	for y := s.scissor.Min.Y; y < s.scissor.Max.Y; y++ {
		row := s.depth[y*w+s.scissor.Min.X : y*w+s.scissor.Max.X]
		for i := range row {
			row[i] = math.Inf(1)
		}
	}
}

// Fill paints r (clipped to the scissor) with c without touching depth.
func (s *Surface) Fill(r image.Rectangle, c color.Color) {
	draw.Draw(s.img, r.Intersect(s.scissor), image.NewUniform(c), image.Point{}, draw.Src)
}

// plot writes c at (x, y) if it passes the scissor and a less-or-equal depth test.
func (s *Surface) plot(x, y int, z float64, c color.RGBA) {
	if !(image.Point{X: x, Y: y}).In(s.scissor) {
		return
	}
	i := y*s.img.Bounds().Dx() + x
	if z > s.depth[i] {
		return
	}
	s.depth[i] = z
	o := s.img.PixOffset(x, y)
	s.img.Pix[o], s.img.Pix[o+1], s.img.Pix[o+2], s.img.Pix[o+3] = c.R, c.G, c.B, c.A
}

func toRGBA(c mesh.Color) color.RGBA {
	return color.RGBA{R: unit8(c.R), G: unit8(c.G), B: unit8(c.B), A: 0xff}
}

func unit8(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 0xff
	}
	return uint8(v*255 + 0.5)
}
