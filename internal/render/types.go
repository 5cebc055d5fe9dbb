package render

import (
	"image"

	"github.com/coreman2200/funtimes-meshgrid/internal/camera"
	"github.com/coreman2200/funtimes-meshgrid/internal/scene"
)

// Surface is the shared output the cells are drawn into. Rectangles are top-left pixels.
type Surface interface {
	Bounds() image.Rectangle
	Resize(w, h int)
	SetViewport(r image.Rectangle)
	SetScissor(r image.Rectangle)
	// Render clears the scissor area to the scene background, then draws the scene.
	Render(sc *scene.Scene, cam *camera.Camera)
	Image() *image.RGBA
}

// Label is the method name overlay of one cell, positioned in canvas (Y down) space.
type Label struct {
	Row  int     `json:"row"`
	Col  int     `json:"col"`
	Text string  `json:"text"`
	Left float64 `json:"left"`
	Top  float64 `json:"top"`
}

// Heading is the per-row title strip.
type Heading struct {
	Row  int     `json:"row"`
	Text string  `json:"text"`
	Left float64 `json:"left"`
	Top  float64 `json:"top"`
}

// PostPipeline groups the stages run on the finished canvas before presentation. All are
// optional.
type PostPipeline struct {
	// Pattern paints over the cells before anything else, for layout test patterns.
	Pattern func(img *image.RGBA, cells []image.Rectangle)
	Overlay func(img *image.RGBA, labels []Label, headings []Heading)
	Borders func(img *image.RGBA, cells []image.Rectangle)
}
