package sequence

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// NewPlayer constructs a Player with provided hooks.
func NewPlayer(h Hooks) *Player {
	return &Player{State: Idle, hooks: h}
}

// Load replaces the current program. Resets time and state to Idle.
func (p *Player) Load(prog Program) error {
	if len(prog.Segments) == 0 {
		return errors.New("program has no segments")
	}
	for i, s := range prog.Segments {
		if s.DurationS <= 0 {
			return fmt.Errorf("segment %d (%s): duration must be > 0", i, s.Name)
		}
		for name, env := range s.Params {
			if !env.Sorted() {
				return fmt.Errorf("segment %d (%s): param %s keys out of order", i, s.Name, name)
			}
			if _, err := ParseParam(name); err != nil {
				return fmt.Errorf("segment %d (%s): %w", i, s.Name, err)
			}
		}
	}
	p.prog = prog
	p.nowS = 0
	p.idx = 0
	p.State = Idle
	return nil
}

// Program returns the loaded program.
func (p *Player) Program() Program { return p.prog }

// Start moves to Running and primes the first segment.
func (p *Player) Start() {
	if p.State == Running || len(p.prog.Segments) == 0 {
		return
	}
	p.State = Running
	p.enter()
	p.emit(0)
}

// Pause pauses playback.
func (p *Player) Pause() {
	if p.State == Running {
		p.State = Paused
	}
}

// Resume resumes playback.
func (p *Player) Resume() {
	if p.State == Paused {
		p.State = Running
	}
}

// Stop stops and resets to start.
func (p *Player) Stop() {
	p.State = Idle
	p.nowS = 0
	p.idx = 0
}

// Now is the position within the program in seconds.
func (p *Player) Now() float64 { return p.nowS }

// Seek jumps to absolute program time t. Clamps into [0, totalDur).
func (p *Player) Seek(t float64) {
	if len(p.prog.Segments) == 0 {
		return
	}
	if t < 0 {
		t = 0
	}
	total := p.totalDuration()
	if t >= total {
		t = math.Nextafter(total, -1)
	}
	acc := 0.0
	for i, s := range p.prog.Segments {
		if t < acc+s.DurationS {
			p.idx = i
			break
		}
		acc += s.DurationS
	}
	p.nowS = t
	p.enter()
	p.emit(t - acc)
}

// Tick advances the sequencer by dt seconds and emits parameter hooks.
func (p *Player) Tick(dt float64) {
	if p.State != Running || len(p.prog.Segments) == 0 || dt <= 0 {
		return
	}
	p.nowS += dt

	seg, localT := p.current()
	if localT >= seg.DurationS {
		// settle on the final values before moving on
		p.emit(seg.DurationS)
		p.advance()
		return
	}
	p.emit(localT)
}

func (p *Player) emit(localT float64) {
	if p.hooks.SetParam == nil {
		return
	}
	seg := p.prog.Segments[p.idx]
	names := make([]string, 0, len(seg.Params))
	for name := range seg.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p.hooks.SetParam(name, seg.Params[name].Eval(localT))
	}
}

func (p *Player) enter() {
	if p.hooks.Segment != nil {
		p.hooks.Segment(p.idx, p.prog.Segments[p.idx].Name)
	}
}

func (p *Player) current() (Segment, float64) {
	acc := 0.0
	for i := 0; i < p.idx; i++ {
		acc += p.prog.Segments[i].DurationS
	}
	return p.prog.Segments[p.idx], p.nowS - acc
}

func (p *Player) totalDuration() float64 {
	total := 0.0
	for _, s := range p.prog.Segments {
		total += s.DurationS
	}
	return total
}

func (p *Player) advance() {
	next := p.idx + 1
	if next >= len(p.prog.Segments) {
		if !p.prog.Loop {
			p.State = Idle
			if p.hooks.Done != nil {
				p.hooks.Done()
			}
			return
		}
		next = 0
		p.nowS -= p.totalDuration()
		if p.nowS < 0 {
			p.nowS = 0
		}
	}
	p.idx = next
	p.enter()
}
