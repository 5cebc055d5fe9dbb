package app

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/coreman2200/funtimes-meshgrid/internal/clip"
	"github.com/coreman2200/funtimes-meshgrid/internal/diagnostics"
	"github.com/coreman2200/funtimes-meshgrid/internal/render"
	"github.com/coreman2200/funtimes-meshgrid/internal/sequence"
	"github.com/coreman2200/funtimes-meshgrid/internal/tests"
)

// The input methods below must run on the loop goroutine. Only the master camera takes
// input; followers pick the pose up on the next Sync.

// Drag rotates the master camera by a pointer drag in pixels.
func (c *Core) Drag(dx, dy float64) {
	c.Orbit.Drag(dx, dy, c.Grid.CellHeight)
	c.dirty = true
}

// Pan moves the master camera and its target in screen space.
func (c *Core) Pan(dx, dy float64) {
	c.Orbit.Pan(dx, dy, c.Grid.CellHeight)
	c.dirty = true
}

// Zoom scales the orbit distance; factor < 1 moves closer.
func (c *Core) Zoom(factor float64) {
	c.Orbit.Dolly(factor)
	c.dirty = true
}

// SetClip moves the clip plane of row, or of every row when row < 0, and returns the applied
// (clamped) value. In global mode every row shares one plane.
func (c *Core) SetClip(row int, v float64) (float64, error) {
	if row < 0 {
		row = 0
		if c.Clip.Mode() == clip.PerRow {
			var applied float64
			for r := 0; r < c.Grid.Rows; r++ {
				applied, _ = c.Clip.SetOffset(r, v)
			}
			c.dirty = true
			return applied, nil
		}
	}
	applied, err := c.Clip.SetOffset(row, v)
	if err != nil {
		return 0, err
	}
	c.dirty = true
	return applied, nil
}

// Resize changes the canvas width. Vertical placement does not depend on it.
func (c *Core) Resize(width float64) error {
	if err := c.Eng.Resize(width); err != nil {
		return err
	}
	c.Cfg.Layout.Width = width
	return nil
}

// StartSweep plays a clip sweep over the full slider range.
func (c *Core) StartSweep(seconds float64) error {
	rows := c.Grid.Rows
	if c.Clip.Mode() == clip.Global {
		rows = 0
	}
	lo, hi := c.Clip.Range()
	return c.play(sequence.ClipSweep(rows, lo, hi, seconds))
}

// StartTurntable spins the master camera around its target.
func (c *Core) StartTurntable(seconds float64, loop bool) error {
	return c.play(sequence.Turntable(seconds, loop))
}

// PlayProgram loads and starts a JSON sequence program.
func (c *Core) PlayProgram(data []byte) error {
	prog, err := sequence.Decode(data)
	if err != nil {
		return err
	}
	return c.play(prog)
}

func (c *Core) play(prog sequence.Program) error {
	if err := c.Seq.Load(prog); err != nil {
		return err
	}
	c.yaw = 0
	c.Seq.Start()
	return nil
}

// StopSequence halts playback where it is.
func (c *Core) StopSequence() { c.Seq.Stop() }

// RunPattern paints a layout test pattern over the cells, one step per frame.
func (c *Core) RunPattern(name string) error {
	kind, ok := tests.Parse(name)
	if !ok {
		return fmt.Errorf("unknown test pattern %q", name)
	}
	c.runner = tests.NewRunner(tests.Plan{Kind: kind})
	pipe := c.basePost
	pipe.Pattern = c.patternStage
	c.Eng.SetPost(pipe)
	c.emit(diagnostics.Diagnostic{Severity: diagnostics.Info, Code: "TEST.RUNNING", Summary: "Running test", Detail: name})
	return nil
}

// PatternActive reports whether a test pattern is still running.
func (c *Core) PatternActive() bool { return c.runner != nil }

func (c *Core) patternStage(img *image.RGBA, cells []image.Rectangle) {
	if c.runner == nil {
		return
	}
	if !c.runner.Next(img, cells, c.Grid.Cols) {
		c.runner = nil
		c.emit(diagnostics.Diagnostic{Severity: diagnostics.Info, Code: "TEST.DONE", Summary: "Test complete"})
	}
}

// Topology describes the grid for clients that lay out their own overlays.
type Topology struct {
	Width    float64           `json:"width"`
	Height   float64           `json:"height"`
	Rows     int               `json:"rows"`
	Cols     int               `json:"cols"`
	RefCol   int               `json:"ref_col"`
	ClipMode string            `json:"clip_mode"`
	ClipMin  float64           `json:"clip_min"`
	ClipMax  float64           `json:"clip_max"`
	ClipStep float64           `json:"clip_step"`
	Clip     []float64         `json:"clip"`
	Labels   []render.Label    `json:"labels"`
	Headings []render.Heading  `json:"headings"`
	Cells    []image.Rectangle `json:"cells"`
	Loaded   []bool            `json:"loaded"`
	Frames   uint64            `json:"frames"`
}

func (c *Core) Topology() Topology {
	lo, hi := c.Clip.Range()
	t := Topology{
		Width:    c.Eng.Width(),
		Height:   c.Grid.CanvasHeight(),
		Rows:     c.Grid.Rows,
		Cols:     c.Grid.Cols,
		RefCol:   c.Scenes.RefCol(),
		ClipMode: string(c.Clip.Mode()),
		ClipMin:  lo,
		ClipMax:  hi,
		ClipStep: c.Cfg.Clip.Step,
		Clip:     make([]float64, c.Grid.Rows),
		Labels:   c.Eng.Labels(),
		Headings: c.Eng.Headings(),
		Cells:    c.Eng.Cells(),
		Loaded:   make([]bool, c.Grid.Count()),
		Frames:   c.Eng.Frames(),
	}
	for r := range t.Clip {
		t.Clip[r] = c.Clip.Offset(r)
	}
	for i := range t.Loaded {
		t.Loaded[i] = c.Scenes.Loaded(i)
	}
	return t
}

// Snapshot encodes the last rendered frame as PNG.
func (c *Core) Snapshot() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, c.Eng.Frame()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
