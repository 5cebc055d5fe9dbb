package app

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/display/displaytest"

	"github.com/coreman2200/funtimes-meshgrid/internal/config"
	"github.com/coreman2200/funtimes-meshgrid/internal/diagnostics"
	"github.com/coreman2200/funtimes-meshgrid/internal/driver/strip"
	"github.com/coreman2200/funtimes-meshgrid/internal/feed"
	"github.com/coreman2200/funtimes-meshgrid/internal/render/fake/solid"
)

const tri = "v -1 -1 0\nv 1 -1 0\nv 0 1 0\nf 1 2 3\n"

func smallConfig() *config.Config {
	c := config.Default()
	c.Cases = []string{"a", "b"}
	c.Methods = []config.Method{{File: "m0.obj", Label: "M0"}, {File: "m1.obj", Label: "M1"}}
	c.Reference = "m0.obj"
	c.Layout.Width = 400
	c.Continuous = false
	return c
}

func newCore(t *testing.T, cfg *config.Config, fsys fstest.MapFS, opts ...Option) *Core {
	t.Helper()
	c, err := InitCore(cfg, solid.New(1, 1), feed.FSSource(fsys), opts...)
	require.NoError(t, err)
	return c
}

func TestCoreLoadsAssetsThroughLoop(t *testing.T) {
	fsys := fstest.MapFS{
		"a/intersection.json": {Data: []byte(`[0]`)},
		"a/m0.obj":            {Data: []byte(tri)},
		"a/m1.obj":            {Data: []byte(tri)},
		"b/m0.obj":            {Data: []byte(tri)},
	}
	drv := &displaytest.Drawer{Img: image.NewNRGBA(image.Rect(0, 0, 4, 1))}
	st := strip.New(drv, 4)
	var diags []diagnostics.Diagnostic
	c := newCore(t, smallConfig(), fsys,
		WithStrip(st),
		WithDiagnostics(func(d diagnostics.Diagnostic) { diags = append(diags, d) }))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	c.Load(ctx)
	c.Feed.Wait()

	var (
		top      Topology
		failures int
		statuses []strip.Status
		codes    []string
	)
	require.NoError(t, c.Do(ctx, func() error {
		top = c.Topology()
		failures = c.Failures()
		for i := 0; i < st.Len(); i++ {
			statuses = append(statuses, st.Status(i))
		}
		for _, d := range diags {
			codes = append(codes, d.Code)
		}
		return nil
	}))

	assert.Equal(t, []bool{true, true, true, false}, top.Loaded)
	assert.Equal(t, 2, failures)
	assert.Equal(t, []strip.Status{strip.Colored, strip.Loaded, strip.Loaded, strip.Failed}, statuses)
	assert.Equal(t, []string{"ASSET.FETCH", "ASSET.FETCH"}, codes)
}

func TestStepRendersOnDemand(t *testing.T) {
	c := newCore(t, smallConfig(), fstest.MapFS{})
	require.NoError(t, c.Step(1.0/60))
	frames := c.Eng.Frames()

	require.NoError(t, c.Step(1.0/60))
	assert.Equal(t, frames, c.Eng.Frames())

	_, err := c.SetClip(1, 2.5)
	require.NoError(t, err)
	require.NoError(t, c.Step(1.0/60))
	assert.Equal(t, frames+1, c.Eng.Frames())

	c.Eng.RequestRender()
	require.NoError(t, c.Step(1.0/60))
	assert.Equal(t, frames+2, c.Eng.Frames())
}

func TestSetClipRows(t *testing.T) {
	c := newCore(t, smallConfig(), fstest.MapFS{})

	v, err := c.SetClip(1, 9)
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)
	assert.Equal(t, 0.0, c.Clip.Offset(0))

	_, err = c.SetClip(-1, -2)
	require.NoError(t, err)
	assert.Equal(t, -2.0, c.Clip.Offset(0))
	assert.Equal(t, -2.0, c.Clip.Offset(1))

	_, err = c.SetClip(7, 0)
	assert.Error(t, err)
}

func TestSweepDrivesEveryRow(t *testing.T) {
	c := newCore(t, smallConfig(), fstest.MapFS{})
	require.NoError(t, c.StartSweep(2))
	require.NoError(t, c.Step(1))
	assert.Equal(t, -5.0, c.Clip.Offset(0))
	assert.Equal(t, -5.0, c.Clip.Offset(1))
	require.NoError(t, c.Step(1))
	assert.Equal(t, 5.0, c.Clip.Offset(1))
}

func TestTurntableTracksYaw(t *testing.T) {
	c := newCore(t, smallConfig(), fstest.MapFS{})
	require.NoError(t, c.StartTurntable(4, false))
	require.NoError(t, c.Step(1))
	assert.InDelta(t, math.Pi/2, c.yaw, 1e-9)

	assert.Error(t, c.PlayProgram([]byte(`{"segments":[]}`)))
}

func TestRunPattern(t *testing.T) {
	c := newCore(t, smallConfig(), fstest.MapFS{})
	assert.Error(t, c.RunPattern("nope"))

	require.NoError(t, c.RunPattern("cell_sweep"))
	require.NoError(t, c.Step(1.0/60))
	cells := c.Eng.Cells()
	frame := c.Eng.Frame()
	c0, c1 := cells[0].Min, cells[1].Min
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, frame.RGBAAt(c0.X+100, c0.Y+150))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, frame.RGBAAt(c1.X+100, c1.Y+150))

	for i := 0; i < 4; i++ {
		require.NoError(t, c.Step(1.0/60))
	}
	assert.False(t, c.PatternActive())
	assert.Nil(t, c.Eng.Post().Pattern)
}

func TestResizeAndSnapshot(t *testing.T) {
	c := newCore(t, smallConfig(), fstest.MapFS{})
	h := c.Topology().Height

	var ce *diagnostics.ConfigurationError
	assert.True(t, errors.As(c.Resize(0), &ce))

	require.NoError(t, c.Resize(800))
	require.NoError(t, c.Step(1.0/60))
	top := c.Topology()
	assert.Equal(t, 800.0, top.Width)
	assert.Equal(t, h, top.Height)
	assert.Equal(t, 800.0, c.Cfg.Layout.Width)

	b, err := c.Snapshot()
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 800, 800), img.Bounds())
}

func TestInitCoreRejectsBadConfig(t *testing.T) {
	cfg := smallConfig()
	cfg.Cases = nil
	_, err := InitCore(cfg, solid.New(1, 1), feed.FSSource(fstest.MapFS{}))
	var ce *diagnostics.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "cases", ce.Field)
}
