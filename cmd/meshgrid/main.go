package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-meshgrid/internal/app"
	"github.com/coreman2200/funtimes-meshgrid/internal/config"
	"github.com/coreman2200/funtimes-meshgrid/internal/diagnostics"
	"github.com/coreman2200/funtimes-meshgrid/internal/driver/preview"
	"github.com/coreman2200/funtimes-meshgrid/internal/driver/strip"
	"github.com/coreman2200/funtimes-meshgrid/internal/feed"
	"github.com/coreman2200/funtimes-meshgrid/internal/raster"
	"github.com/coreman2200/funtimes-meshgrid/internal/ws"
)

func main() {
	// ---- Flags (explicitly set flags override the config file) ----
	configPath := flag.String("config", "meshgrid.yaml", "path to meshgrid.yaml or .toml")
	verbose := flag.Bool("v", false, "debug logging")
	flag.String("addr", ":8080", "HTTP listen address")
	flag.Float64("width", 1200, "canvas width in pixels")
	flag.Int("fps", 60, "target frames per second")
	flag.String("source", "fs", "asset source: fs | http")
	flag.String("root", ".", "asset root directory for -source fs")
	flag.String("base-url", "", "asset base URL for -source http")
	flag.String("post", "labels", "post pipeline: labels | annotated | bare")
	flag.String("clip-mode", "row", "clip plane mode: row | global")
	flag.Bool("strip", false, "mirror cell load status onto an LED strip")
	flag.String("spi", "", "SPI port for -strip; \"console\" prints instead")
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// ---- Config (defaults, then file, then flags given on the command line) ----
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with defaults")
		cfg = config.Default()
	}
	applyFlags(flag.CommandLine, cfg)
	if err := cfg.Validate(); err != nil {
		d := diagnostics.FromError(err)
		log.Fatal().Err(err).Strs("fixes", d.SuggestedFixes).Msg("invalid configuration")
	}

	src := feed.FSSource(os.DirFS(cfg.Feed.Root))
	if cfg.Feed.Source == "http" {
		src = feed.HTTPSource(cfg.Feed.BaseURL, &http.Client{Timeout: time.Duration(cfg.Feed.TimeoutMs) * time.Millisecond})
	}

	// ---- Core, preview and optional strip ----
	var state *ws.State
	prev := preview.New(50*time.Millisecond, func(b []byte) { state.BroadcastFrame(b) })
	opts := []app.Option{
		app.WithDrawer(prev),
		app.WithDiagnostics(func(d diagnostics.Diagnostic) { state.PushDiag(d) }),
	}
	driverName := "preview"
	if cfg.Strip.Enabled {
		n := len(cfg.Cases) * len(cfg.Methods)
		st, err := strip.Open(n, cfg.Strip.SPI)
		if err != nil {
			log.Warn().Err(err).Str("spi", cfg.Strip.SPI).Msg("strip init failed; continuing without it")
		} else {
			defer st.Close()
			opts = append(opts, app.WithStrip(st))
			driverName = "preview+strip"
			if st.SPI {
				driverName = "preview+spi"
			}
		}
	}

	core, err := app.InitCore(cfg, raster.New(1, 1), src, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("viewer init failed")
	}
	state = ws.NewState(core)
	state.ConfigPath = *configPath
	state.Driver = driverName

	// ---- HTTP server ----
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      state.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ---- Run loop, feed & server ----
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := core.Run(ctx); err != nil {
			log.Error().Err(err).Msg("loop stopped")
		}
	}()
	core.Load(ctx)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("driver", driverName).
			Int("rows", core.Grid.Rows).Int("cols", core.Grid.Cols).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server crashed")
		}
	}()

	// ---- Graceful shutdown ----
	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// applyFlags copies the flags that were set on fs into cfg. Unset flags leave the file's
// values alone.
func applyFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.Visit(func(f *flag.Flag) {
		g, ok := f.Value.(flag.Getter)
		if !ok {
			return
		}
		v := g.Get()
		switch f.Name {
		case "addr":
			cfg.Addr = v.(string)
		case "width":
			cfg.Layout.Width = v.(float64)
		case "fps":
			cfg.FPS = v.(int)
		case "source":
			cfg.Feed.Source = v.(string)
		case "root":
			cfg.Feed.Root = v.(string)
		case "base-url":
			cfg.Feed.BaseURL = v.(string)
		case "post":
			cfg.Post = v.(string)
		case "clip-mode":
			cfg.Clip.Mode = v.(string)
		case "strip":
			cfg.Strip.Enabled = v.(bool)
		case "spi":
			cfg.Strip.SPI = v.(string)
		}
	})
}
