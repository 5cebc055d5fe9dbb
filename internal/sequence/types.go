package sequence

// Keyframe represents a value at time T (seconds) with an easing function
// that applies to the segment starting at this keyframe.
type Keyframe struct {
	T    float64 `json:"t"`
	V    float64 `json:"v"`
	Ease string  `json:"ease,omitempty"` // "linear","smooth","cubic"
}

// Envelope is a sorted list of keyframes; Eval(t) interpolates a value.
type Envelope struct {
	Keys []Keyframe `json:"keys"`
}

// Segment is one stretch of a program: a duration and the parameters automated during it.
// Parameter names are "clip.<row>", "clip.all" and "orbit.yaw".
type Segment struct {
	Name      string              `json:"name"`
	DurationS float64             `json:"durationS"`
	Params    map[string]Envelope `json:"params"`
}

// Program is a full sequence of segments.
type Program struct {
	Version  string    `json:"version"` // "seq.v1"
	Loop     bool      `json:"loop,omitempty"`
	Segments []Segment `json:"segments"`
}

// PlayerState enumerates sequencer states.
type PlayerState string

const (
	Idle    PlayerState = "idle"
	Running PlayerState = "running"
	Paused  PlayerState = "paused"
)

// Hooks are dependency-injected callbacks into the viewer.
type Hooks struct {
	SetParam func(name string, v float64)
	// Segment is called when a segment becomes current.
	Segment func(index int, name string)
	// Done is called when a non-looping program runs out.
	Done func()
}

// Player owns the current Program timeline and uses Hooks to drive the viewer.
type Player struct {
	State PlayerState

	prog Program
	nowS float64 // position within program
	idx  int     // current segment index

	hooks Hooks
}
