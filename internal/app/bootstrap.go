package app

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/spatial/r3"
	"periph.io/x/conn/v3/display"

	"github.com/coreman2200/funtimes-meshgrid/internal/camera"
	"github.com/coreman2200/funtimes-meshgrid/internal/clip"
	"github.com/coreman2200/funtimes-meshgrid/internal/config"
	"github.com/coreman2200/funtimes-meshgrid/internal/diagnostics"
	"github.com/coreman2200/funtimes-meshgrid/internal/driver/strip"
	"github.com/coreman2200/funtimes-meshgrid/internal/feed"
	"github.com/coreman2200/funtimes-meshgrid/internal/layout"
	"github.com/coreman2200/funtimes-meshgrid/internal/mesh"
	"github.com/coreman2200/funtimes-meshgrid/internal/render"
	"github.com/coreman2200/funtimes-meshgrid/internal/render/post"
	"github.com/coreman2200/funtimes-meshgrid/internal/scene"
	"github.com/coreman2200/funtimes-meshgrid/internal/sequence"
	"github.com/coreman2200/funtimes-meshgrid/internal/tests"
)

// inboxSize bounds the callbacks queued for the loop before Post blocks.
const inboxSize = 256

// Core owns every piece of viewer state. Everything except Post and Do must be called on the
// loop goroutine, i.e. from Run or from a function passed to Post or Do.
type Core struct {
	Cfg    *config.Config
	Grid   layout.Grid
	Rig    *camera.Rig
	Orbit  *camera.Orbit
	Clip   *clip.Controller
	Scenes *scene.Registry
	Eng    *render.Engine
	Seq    *sequence.Player
	Feed   *feed.Feed
	Strip  *strip.Strip

	inbox chan func()
	done  chan struct{}
	diag  func(diagnostics.Diagnostic)
	log   zerolog.Logger

	basePost render.PostPipeline
	runner   *tests.Runner
	yaw      float64
	dirty    bool
	failures int
}

type Option func(*Core)

// WithDrawer presents every frame to d.
func WithDrawer(d display.Drawer) Option { return func(c *Core) { c.Eng.Drv = d } }

// WithStrip mirrors cell load status onto s.
func WithStrip(s *strip.Strip) Option { return func(c *Core) { c.Strip = s } }

// WithDiagnostics forwards load failures and loop events to fn. fn runs on the loop goroutine.
func WithDiagnostics(fn func(diagnostics.Diagnostic)) Option { return func(c *Core) { c.diag = fn } }

func WithLogger(l zerolog.Logger) Option { return func(c *Core) { c.log = l } }

func vec(v config.Vec3) r3.Vec { return r3.Vec{X: v.X, Y: v.Y, Z: v.Z} }

func lighting(l config.Lighting) scene.Lighting {
	bg, _ := config.ParseColor(l.Background)
	amb, _ := config.ParseColor(l.AmbientColor)
	dir, _ := config.ParseColor(l.DirectionalColor)
	return scene.Lighting{
		Background:       bg,
		AmbientColor:     amb,
		Ambient:          l.Ambient,
		DirectionalColor: dir,
		Directional:      l.Directional,
		LightPosition:    vec(l.Position),
	}
}

// InitCore validates cfg and builds the grid, cameras, clip planes, scenes, render engine,
// sequencer and asset feed. Nothing is fetched until Load.
func InitCore(cfg *config.Config, surf render.Surface, src feed.Source, opts ...Option) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	// 1) Grid
	grid, err := layout.New(len(cfg.Cases), len(cfg.Methods),
		cfg.Layout.HeadingHeight, cfg.Layout.CellHeight, cfg.Layout.RowSpacing, cfg.Layout.Margin)
	if err != nil {
		return nil, err
	}

	// 2) Cameras, all starting from the same pose
	target := vec(cfg.Camera.Target)
	proto := camera.New(cfg.Camera.FOV, cfg.Camera.Near, cfg.Camera.Far)
	proto.Position = vec(cfg.Camera.Position)
	proto.LookAt(target)
	rig, err := camera.NewRig(grid.Count(), proto)
	if err != nil {
		return nil, err
	}
	orbit := camera.NewOrbit(rig.Master(), target, cfg.Camera.Damping)

	// 3) Clip planes and scenes
	cc, err := clip.New(clip.Mode(cfg.Clip.Mode), grid.Rows, vec(cfg.Clip.Normal), cfg.Clip.Min, cfg.Clip.Max)
	if err != nil {
		return nil, err
	}
	scenes, err := scene.NewRegistry(grid, cfg.RefCol(), cc, lighting(cfg.Lighting), scene.WithColumnLabels(cfg.Labels()))
	if err != nil {
		return nil, err
	}

	// 4) Engine
	pipe, ok := post.ByName(cfg.Post)
	if !ok {
		log.Warn().Str("post", cfg.Post).Msg("unknown post pipeline; using labels")
	}
	eng, err := render.NewEngine(grid, cfg.Layout.Width, rig, scenes, surf,
		render.WithPost(pipe), render.WithLabelInset(cfg.Layout.LabelInset))
	if err != nil {
		return nil, err
	}

	c := &Core{
		Cfg:      cfg,
		Grid:     grid,
		Rig:      rig,
		Orbit:    orbit,
		Clip:     cc,
		Scenes:   scenes,
		Eng:      eng,
		inbox:    make(chan func(), inboxSize),
		done:     make(chan struct{}),
		log:      log.Logger,
		basePost: pipe,
	}

	// 5) Sequencer wiring (hooks -> core)
	c.Seq = sequence.NewPlayer(sequence.Hooks{
		SetParam: c.applyParam,
		Segment: func(i int, name string) {
			c.log.Debug().Int("index", i).Str("segment", name).Msg("sequence segment")
		},
		Done: func() {
			c.emit(diagnostics.Diagnostic{Severity: diagnostics.Info, Code: "SEQ.DONE", Summary: "Sequence complete"})
		},
	})

	// 6) Feed results come back through the loop
	c.Feed = feed.New(src, cfg.Feed.MaxConcurrent, c.Post)

	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Load starts fetching every intersection index and mesh. It returns at once; results are
// applied on the loop as they arrive, in any order.
func (c *Core) Load(ctx context.Context) {
	if c.Cfg.Feed.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(c.Cfg.Feed.TimeoutMs)*time.Millisecond)
		go func() {
			c.Feed.Wait()
			cancel()
		}()
	}
	c.Feed.Start(ctx, c.Cfg.Cases, c.Cfg.MethodFiles(), feed.Handlers{
		OnIndex: c.onIndex,
		OnMesh:  c.onMesh,
		OnError: c.onError,
	})
}

func (c *Core) onIndex(row int, faces []int) {
	if err := c.Scenes.SetIntersections(row, faces); err != nil {
		c.report(err)
		return
	}
	if ref := c.Scenes.RefCol(); ref >= 0 && c.Scenes.Loaded(c.Grid.Index(row, ref)) {
		c.setStatus(c.Grid.Index(row, ref), strip.Colored)
	}
	c.Eng.RequestRender()
}

func (c *Core) onMesh(row, col int, g *mesh.Geometry) {
	if err := c.Scenes.AttachMesh(row, col, g); err != nil {
		c.report(err)
		return
	}
	i := c.Grid.Index(row, col)
	st := strip.Loaded
	if c.Scenes.Scene(i).Colored() {
		st = strip.Colored
	}
	c.setStatus(i, st)
	c.Eng.RequestRender()
}

func (c *Core) onError(err error) {
	c.failures++
	var fe *diagnostics.AssetFetchError
	if errors.As(err, &fe) && fe.Col >= 0 {
		c.setStatus(c.Grid.Index(fe.Row, fe.Col), strip.Failed)
	}
	c.emit(diagnostics.FromError(err))
}

func (c *Core) setStatus(i int, st strip.Status) {
	if c.Strip == nil || i >= c.Strip.Len() {
		return
	}
	if err := c.Strip.Set(i, st); err != nil {
		c.log.Debug().Err(err).Msg("strip status")
		return
	}
	if err := c.Strip.Present(); err != nil {
		c.log.Debug().Err(err).Msg("strip present")
	}
}

// Failures counts asset fetch errors reported so far.
func (c *Core) Failures() int { return c.failures }

func (c *Core) report(err error) {
	c.log.Warn().Err(err).Msg("viewer error")
	c.emit(diagnostics.FromError(err))
}

func (c *Core) emit(d diagnostics.Diagnostic) {
	if c.diag != nil {
		c.diag(d)
	}
}

// Post queues fn to run on the loop goroutine. It is safe from any goroutine and drops fn
// once the loop has exited.
func (c *Core) Post(fn func()) {
	select {
	case c.inbox <- fn:
	case <-c.done:
	}
}

// Do runs fn on the loop goroutine and waits for its result.
func (c *Core) Do(ctx context.Context, fn func() error) error {
	res := make(chan error, 1)
	select {
	case c.inbox <- func() { res <- fn() }:
	case <-c.done:
		return errors.New("viewer loop stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-res:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain runs every queued callback without blocking and returns how many ran. It is for
// callers that drive Step themselves instead of Run.
func (c *Core) Drain() int {
	n := 0
	for {
		select {
		case fn := <-c.inbox:
			fn()
			n++
		default:
			return n
		}
	}
}

// Run is the frame loop. It applies queued callbacks, and every 1/FPS seconds advances the
// orbit, syncs the followers, ticks the sequencer and renders. Returns when ctx ends.
func (c *Core) Run(ctx context.Context) error {
	defer close(c.done)
	fps := max(1, c.Cfg.FPS)
	dt := time.Second / time.Duration(fps)
	tick := time.NewTicker(dt)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-c.inbox:
			fn()
		case <-c.Eng.Requests():
			c.dirty = true
		case <-tick.C:
			if err := c.Step(dt.Seconds()); err != nil {
				c.report(err)
			}
		}
	}
}

// Step runs one frame of the loop. The grid is redrawn when continuous rendering is on, the
// camera moved, or something asked for a render since the last frame.
func (c *Core) Step(dt float64) error {
	moved := c.Orbit.Update()
	c.Rig.Sync()
	c.Seq.Tick(dt)
	select {
	case <-c.Eng.Requests():
		c.dirty = true
	default:
	}
	if !(c.Cfg.Continuous || moved || c.dirty || c.runner != nil) {
		return nil
	}
	c.dirty = false
	err := c.Eng.RenderAll()
	if c.runner == nil && c.Eng.Post().Pattern != nil {
		c.Eng.SetPost(c.basePost)
	}
	return err
}

func (c *Core) applyParam(name string, v float64) {
	p, err := sequence.ParseParam(name)
	if err != nil {
		c.log.Debug().Err(err).Msg("sequence param")
		return
	}
	switch {
	case p.Clip && p.Row < 0:
		for r := 0; r < c.Grid.Rows; r++ {
			_, _ = c.Clip.SetOffset(r, v)
		}
	case p.Clip:
		if _, err := c.Clip.SetOffset(p.Row, v); err != nil {
			c.log.Debug().Err(err).Msg("sequence param")
			return
		}
	default:
		// absolute yaw from the envelope, applied as the shortest delta
		delta := math.Remainder(v-c.yaw, 2*math.Pi)
		c.Orbit.Rotate(delta, 0)
		c.yaw = v
	}
	c.dirty = true
}
