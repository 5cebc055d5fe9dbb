package main

import (
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-meshgrid/internal/sequence"
)

// seqsim plays a sequence program without a viewer and logs every parameter change.
func main() {
	var (
		programPath = flag.String("program", "", "path to program JSON (seq.v1)")
		sweep       = flag.Float64("sweep", 0, "instead of -program, play a clip sweep of this many seconds")
		rows        = flag.Int("rows", 4, "rows for -sweep; 0 uses the shared plane")
		fps         = flag.Int("fps", 10, "simulation frames per second")
		realtime    = flag.Bool("realtime", false, "tick on a wall-clock ticker instead of as fast as possible")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	var prog sequence.Program
	switch {
	case *programPath != "":
		data, err := os.ReadFile(*programPath)
		if err != nil {
			log.Fatal().Err(err).Msg("read program")
		}
		if prog, err = sequence.Decode(data); err != nil {
			log.Fatal().Err(err).Msg("decode program")
		}
	case *sweep > 0:
		prog = sequence.ClipSweep(*rows, -5, 5, *sweep)
	default:
		log.Fatal().Msg("provide -program or -sweep")
	}
	if prog.Loop {
		log.Warn().Msg("program loops; stop with Ctrl-C")
	}

	done := false
	player := sequence.NewPlayer(sequence.Hooks{
		SetParam: func(name string, v float64) {
			log.Info().Str("param", name).Float64("v", v).Msg("set")
		},
		Segment: func(i int, name string) {
			log.Info().Int("index", i).Str("segment", name).Msg("segment")
		},
		Done: func() { done = true },
	})
	if err := player.Load(prog); err != nil {
		log.Fatal().Err(err).Msg("load")
	}
	player.Start()

	dt := time.Second / time.Duration(max(1, *fps))
	var tick <-chan time.Time
	if *realtime {
		t := time.NewTicker(dt)
		defer t.Stop()
		tick = t.C
	}
	for !done {
		if tick != nil {
			<-tick
		}
		player.Tick(dt.Seconds())
	}
	log.Info().Float64("t", player.Now()).Msg("done")
}
