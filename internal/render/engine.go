package render

import (
	"fmt"
	"image"
	"image/draw"
	"time"

	"periph.io/x/conn/v3/display"

	"github.com/coreman2200/funtimes-meshgrid/internal/camera"
	"github.com/coreman2200/funtimes-meshgrid/internal/diagnostics"
	"github.com/coreman2200/funtimes-meshgrid/internal/layout"
	"github.com/coreman2200/funtimes-meshgrid/internal/scene"
)

// DefaultLabelInset is the gap between a cell's top-left corner and its label.
const DefaultLabelInset = 5

// Engine draws every cell of the grid into one surface, repositions the labels, runs post
// stages, then presents the frame to an optional drawer.
type Engine struct {
	Grid   layout.Grid
	Rig    *camera.Rig
	Scenes *scene.Registry
	Surf   Surface
	Drv    display.Drawer

	width    float64
	inset    float64
	labels   []Label
	headings []Heading
	cells    []image.Rectangle

	requests chan struct{}
	post     PostPipeline
	frames   uint64

	// metrics (last durations in ms)
	Last struct {
		RenderMS  float64
		PostMS    float64
		PresentMS float64
		TotalMS   float64
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithDrawer presents each finished frame to d.
func WithDrawer(d display.Drawer) Option { return func(e *Engine) { e.Drv = d } }

// WithPost replaces the default post pipeline.
func WithPost(p PostPipeline) Option { return func(e *Engine) { e.post = p } }

// WithLabelInset overrides DefaultLabelInset.
func WithLabelInset(px float64) Option { return func(e *Engine) { e.inset = px } }

// NewEngine wires a grid, one camera and one scene per cell, and a surface sized to width by
// the grid's canvas height.
func NewEngine(grid layout.Grid, width float64, rig *camera.Rig, scenes *scene.Registry, surf Surface, opts ...Option) (*Engine, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	if width <= 0 {
		return nil, diagnostics.Configf("render.width", "must be > 0, got %v", width)
	}
	n := grid.Count()
	if rig == nil || rig.Len() != n {
		return nil, fmt.Errorf("render: need %d cameras", n)
	}
	if scenes == nil || scenes.Len() != n {
		return nil, fmt.Errorf("render: need %d scenes", n)
	}
	if surf == nil {
		return nil, fmt.Errorf("render: nil surface")
	}
	e := &Engine{
		Grid:     grid,
		Rig:      rig,
		Scenes:   scenes,
		Surf:     surf,
		width:    width,
		inset:    DefaultLabelInset,
		labels:   make([]Label, n),
		headings: make([]Heading, grid.Rows),
		cells:    make([]image.Rectangle, n),
		requests: make(chan struct{}, 1),
		post: PostPipeline{
			Overlay: DefaultOverlay,
		},
	}
	for _, o := range opts {
		o(e)
	}
	for i := range e.labels {
		row, col := grid.RowCol(i)
		e.labels[i] = Label{Row: row, Col: col, Text: scenes.Scene(i).Label}
	}
	for r := range e.headings {
		left, top := grid.Heading(r)
		e.headings[r] = Heading{Row: r, Text: fmt.Sprintf("Case %d", r+1), Left: left, Top: top}
	}
	e.resizeSurface()
	return e, nil
}

func (e *Engine) resizeSurface() {
	w, h := e.canvasSize()
	if b := e.Surf.Bounds(); b.Dx() != w || b.Dy() != h {
		e.Surf.Resize(w, h)
	}
}

func (e *Engine) canvasSize() (int, int) {
	return int(e.width + 0.5), int(e.Grid.CanvasHeight() + 0.5)
}

// Width is the current container width.
func (e *Engine) Width() float64 { return e.width }

// Resize changes the container width. Vertical placement never depends on width.
func (e *Engine) Resize(width float64) error {
	if width <= 0 {
		return diagnostics.Configf("render.width", "must be > 0, got %v", width)
	}
	e.width = width
	e.resizeSurface()
	e.RequestRender()
	return nil
}

// RequestRender marks the frame dirty. Requests coalesce until the loop drains them.
func (e *Engine) RequestRender() {
	select {
	case e.requests <- struct{}{}:
	default:
	}
}

// Requests delivers at most one pending render request.
func (e *Engine) Requests() <-chan struct{} { return e.requests }

// RenderAll draws every cell in row-major order: aspect, viewport, scissor, scene, label.
func (e *Engine) RenderAll() error {
	start := time.Now()
	canvasH := e.Grid.CanvasHeight()
	// headings, row spacing and margin are page background; cells clear their own scissor
	draw.Draw(e.Surf.Image(), e.Surf.Bounds(), image.White, image.Point{}, draw.Src)
	for i := 0; i < e.Grid.Count(); i++ {
		row, col := e.Grid.RowCol(i)
		rect := e.Grid.Cell(e.width, row, col)
		if err := e.Rig.SetAspect(i, rect.W, rect.H); err != nil {
			return err
		}
		px := rect.Pixels(canvasH)
		e.cells[i] = px
		e.Surf.SetViewport(px)
		e.Surf.SetScissor(px)
		e.Surf.Render(e.Scenes.Scene(i), e.Rig.Camera(i))

		left, top := e.Grid.LabelPos(e.width, row, col, e.inset)
		e.labels[i].Left, e.labels[i].Top = left, top
	}
	e.Surf.SetScissor(e.Surf.Bounds())
	e.Surf.SetViewport(e.Surf.Bounds())
	e.Last.RenderMS = ms(time.Since(start))

	postStart := time.Now()
	img := e.Surf.Image()
	if e.post.Pattern != nil {
		e.post.Pattern(img, e.cells)
	}
	if e.post.Borders != nil {
		e.post.Borders(img, e.cells)
	}
	if e.post.Overlay != nil {
		e.post.Overlay(img, e.labels, e.headings)
	}
	e.Last.PostMS = ms(time.Since(postStart))

	presentStart := time.Now()
	if e.Drv != nil {
		if err := e.Drv.Draw(e.Drv.Bounds(), img, image.Point{}); err != nil {
			return err
		}
	}
	e.Last.PresentMS = ms(time.Since(presentStart))
	e.Last.TotalMS = ms(time.Since(start))
	e.frames++
	return nil
}

func (e *Engine) SetPost(p PostPipeline) { e.post = p }

// Post returns the current post pipeline.
func (e *Engine) Post() PostPipeline { return e.post }

// Labels returns the label positions of the last RenderAll.
func (e *Engine) Labels() []Label { return append([]Label(nil), e.labels...) }

// Headings returns the row heading strips.
func (e *Engine) Headings() []Heading { return append([]Heading(nil), e.headings...) }

// Cells returns the pixel rectangles used by the last RenderAll.
func (e *Engine) Cells() []image.Rectangle { return append([]image.Rectangle(nil), e.cells...) }

// Frame is the canvas of the last RenderAll. It is overwritten by the next one.
func (e *Engine) Frame() *image.RGBA { return e.Surf.Image() }

// Frames counts completed RenderAll passes.
func (e *Engine) Frames() uint64 { return e.frames }

func ms(d time.Duration) float64 { return float64(d.Microseconds()) / 1000.0 }
