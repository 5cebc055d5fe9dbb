package sequence

import "math"

// clamp01 clamps x in [0,1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// smootherstep (cubic-ish) for ease="cubic"
func smootherstep(x float64) float64 {
	// 6x^5 - 15x^4 + 10x^3
	return x * x * x * (x*(x*6-15) + 10)
}

func easeApply(kind string, x float64) float64 {
	switch kind {
	case "smooth":
		return x * x * (3 - 2*x)
	case "cubic":
		return smootherstep(x)
	case "sine":
		return 0.5 - 0.5*math.Cos(math.Pi*x)
	default:
		return x
	}
}

// Eval returns the value of the envelope at time t (seconds).
// No keys yield 0, one key yields its value. Keys must be sorted by T.
func (e Envelope) Eval(t float64) float64 {
	n := len(e.Keys)
	if n == 0 {
		return 0
	}
	if t <= e.Keys[0].T {
		return e.Keys[0].V
	}
	if t >= e.Keys[n-1].T {
		return e.Keys[n-1].V
	}
	for i := 0; i < n-1; i++ {
		a, b := e.Keys[i], e.Keys[i+1]
		if t >= a.T && t <= b.T {
			den := b.T - a.T
			if den <= 0 {
				return b.V
			}
			u := easeApply(a.Ease, clamp01((t-a.T)/den))
			return a.V + (b.V-a.V)*u
		}
	}
	return e.Keys[n-1].V
}

// Sorted reports whether keys are in ascending time order.
func (e Envelope) Sorted() bool {
	for i := 1; i < len(e.Keys); i++ {
		if e.Keys[i].T < e.Keys[i-1].T {
			return false
		}
	}
	return true
}
