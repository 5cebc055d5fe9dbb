// Command gridsnap renders the comparison grid headlessly and writes it as PNG. With -sweep it
// also writes one frame per step of a clip sweep.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-meshgrid/internal/app"
	"github.com/coreman2200/funtimes-meshgrid/internal/config"
	"github.com/coreman2200/funtimes-meshgrid/internal/driver/fake"
	"github.com/coreman2200/funtimes-meshgrid/internal/feed"
	"github.com/coreman2200/funtimes-meshgrid/internal/raster"
)

func main() {
	var (
		configPath = flag.String("config", "", "optional meshgrid.yaml or .toml")
		root       = flag.String("root", ".", "asset root directory")
		out        = flag.String("out", "grid.png", "output PNG")
		width      = flag.Float64("width", 1200, "canvas width in pixels")
		post       = flag.String("post", "annotated", "post pipeline: labels | annotated | bare")
		clipAt     = flag.Float64("clip", 0, "clip plane offset applied to every row")
		sweep      = flag.Float64("sweep", 0, "clip sweep length in seconds; 0 disables")
		frames     = flag.Int("frames", 30, "frames written for -sweep")
		framesDir  = flag.String("frames-dir", "frames", "directory for -sweep frames")
		timeout    = flag.Duration("timeout", 30*time.Second, "give up waiting for assets after this")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	cfg := config.Default()
	if *configPath != "" {
		c, err := config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("config load failed")
		}
		cfg = c
	}
	cfg.Layout.Width = *width
	cfg.Post = *post
	cfg.Feed.Source, cfg.Feed.Root = "fs", *root
	cfg.Continuous = true

	drv := &fake.Driver{Log: log.Logger}
	core, err := app.InitCore(cfg, raster.New(1, 1), feed.FSSource(os.DirFS(cfg.Feed.Root)), app.WithDrawer(drv))
	if err != nil {
		log.Fatal().Err(err).Msg("init failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	core.Load(ctx)
	waitLoaded(ctx, core)
	log.Info().Int("failures", core.Failures()).Msg("assets settled")

	if _, err := core.SetClip(-1, *clipAt); err != nil {
		log.Fatal().Err(err).Msg("clip")
	}
	if err := core.Step(0); err != nil {
		log.Fatal().Err(err).Msg("render failed")
	}
	b, err := core.Snapshot()
	if err != nil {
		log.Fatal().Err(err).Msg("encode failed")
	}
	if err := os.WriteFile(*out, b, 0644); err != nil {
		log.Fatal().Err(err).Msg("write failed")
	}
	log.Info().Str("out", *out).Float64("render_ms", core.Eng.Last.RenderMS).Msg("snapshot written")

	if *sweep <= 0 || *frames <= 0 {
		return
	}
	if err := os.MkdirAll(*framesDir, 0755); err != nil {
		log.Fatal().Err(err).Msg("frames dir")
	}
	drv.Dir = *framesDir
	if err := core.StartSweep(*sweep); err != nil {
		log.Fatal().Err(err).Msg("sweep")
	}
	first := drv.Count
	dt := *sweep / float64(*frames)
	for i := 0; i < *frames; i++ {
		if err := core.Step(dt); err != nil {
			log.Fatal().Err(err).Int("frame", i).Msg("render failed")
		}
	}
	log.Info().Int("frames", drv.Count-first).Str("dir", *framesDir).Msg("sweep written")
}

// waitLoaded applies feed results on this goroutine until every fetch has finished.
func waitLoaded(ctx context.Context, core *app.Core) {
	done := make(chan struct{})
	go func() {
		core.Feed.Wait()
		close(done)
	}()
	tick := time.NewTicker(5 * time.Millisecond)
	defer tick.Stop()
	for {
		core.Drain()
		select {
		case <-done:
			core.Drain()
			return
		case <-ctx.Done():
			log.Warn().Err(ctx.Err()).Msg("stopped waiting for assets")
			return
		case <-tick.C:
		}
	}
}
