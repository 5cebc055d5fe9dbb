// Package solid is a headless render.Surface that paints each cell a flat color and records
// every viewport it was given.
package solid

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/coreman2200/funtimes-meshgrid/internal/camera"
	"github.com/coreman2200/funtimes-meshgrid/internal/scene"
)

// Call is one Render as seen by the surface.
type Call struct {
	Viewport image.Rectangle
	Scissor  image.Rectangle
	Row, Col int
	Aspect   float64
	Loaded   bool
}

// Surface fills the scissor with Loaded for scenes holding a mesh and with the scene
// background otherwise.
type Surface struct {
	Loaded color.RGBA
	Calls  []Call

	img      *image.RGBA
	viewport image.Rectangle
	scissor  image.Rectangle
}

func New(w, h int) *Surface {
	s := &Surface{Loaded: color.RGBA{0x80, 0x80, 0x80, 0xff}}
	s.Resize(w, h)
	return s
}

func (s *Surface) Bounds() image.Rectangle { return s.img.Bounds() }

func (s *Surface) Resize(w, h int) {
	s.img = image.NewRGBA(image.Rect(0, 0, w, h))
	s.viewport, s.scissor = s.img.Bounds(), s.img.Bounds()
}

func (s *Surface) SetViewport(r image.Rectangle) { s.viewport = r }
func (s *Surface) SetScissor(r image.Rectangle)  { s.scissor = r.Intersect(s.img.Bounds()) }
func (s *Surface) Image() *image.RGBA            { return s.img }

func (s *Surface) Render(sc *scene.Scene, cam *camera.Camera) {
	s.Calls = append(s.Calls, Call{
		Viewport: s.viewport,
		Scissor:  s.scissor,
		Row:      sc.Row,
		Col:      sc.Col,
		Aspect:   cam.Aspect,
		Loaded:   sc.Loaded(),
	})
	c := s.Loaded
	if !sc.Loaded() {
		bg := sc.Lighting.Background
		c = color.RGBA{uint8(bg.R * 255), uint8(bg.G * 255), uint8(bg.B * 255), 0xff}
	}
	draw.Draw(s.img, s.scissor, image.NewUniform(c), image.Point{}, draw.Src)
}

// Reset forgets recorded calls.
func (s *Surface) Reset() { s.Calls = s.Calls[:0] }
