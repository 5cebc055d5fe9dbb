package sequence

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

const (
	ParamClipAll  = "clip.all"
	ParamOrbitYaw = "orbit.yaw"
)

// Param is a parsed parameter name. Row is -1 for "clip.all" and for non-clip params.
type Param struct {
	Clip bool
	Row  int
}

// ParseParam validates a parameter name.
func ParseParam(name string) (Param, error) {
	switch {
	case name == ParamOrbitYaw:
		return Param{Row: -1}, nil
	case name == ParamClipAll:
		return Param{Clip: true, Row: -1}, nil
	case strings.HasPrefix(name, "clip."):
		row, err := strconv.Atoi(strings.TrimPrefix(name, "clip."))
		if err != nil || row < 0 {
			return Param{}, fmt.Errorf("bad clip param %q", name)
		}
		return Param{Clip: true, Row: row}, nil
	}
	return Param{}, fmt.Errorf("unknown param %q", name)
}

// ClipParam names the clip offset param of row.
func ClipParam(row int) string { return "clip." + strconv.Itoa(row) }

// ClipSweep moves the clip planes from max down to min and back over seconds. rows <= 0
// sweeps the shared "clip.all" param instead of one param per row.
func ClipSweep(rows int, min, max, seconds float64) Program {
	env := Envelope{Keys: []Keyframe{
		{T: 0, V: max, Ease: "smooth"},
		{T: seconds / 2, V: min, Ease: "smooth"},
		{T: seconds, V: max},
	}}
	params := map[string]Envelope{}
	if rows <= 0 {
		params[ParamClipAll] = env
	} else {
		for r := 0; r < rows; r++ {
			params[ClipParam(r)] = env
		}
	}
	return Program{
		Version:  "seq.v1",
		Segments: []Segment{{Name: "clip-sweep", DurationS: seconds, Params: params}},
	}
}

// Turntable spins the master camera one full turn around the target over seconds.
func Turntable(seconds float64, loop bool) Program {
	return Program{
		Version: "seq.v1",
		Loop:    loop,
		Segments: []Segment{{
			Name:      "turntable",
			DurationS: seconds,
			Params: map[string]Envelope{
				ParamOrbitYaw: {Keys: []Keyframe{{T: 0, V: 0}, {T: seconds, V: 2 * math.Pi}}},
			},
		}},
	}
}

// Decode parses a JSON program.
func Decode(data []byte) (Program, error) {
	var p Program
	if err := json.Unmarshal(data, &p); err != nil {
		return Program{}, err
	}
	if p.Version != "" && p.Version != "seq.v1" {
		return Program{}, fmt.Errorf("unsupported program version %q", p.Version)
	}
	return p, nil
}
