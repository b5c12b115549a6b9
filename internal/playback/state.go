package playback

import "math"

// State is the observable lifecycle of the [Transport].
type State int

const (
	Idle State = iota
	Loading
	Ready
	Playing
	Paused
	Ended
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}

// Bound reports whether a source is attached in this state.
func (s State) Bound() bool {
	return s == Ready || s == Playing || s == Paused || s == Ended
}

// Transition is one observed state change.
type Transition struct {
	From State
	To   State
}

// Rates lists the supported playback rates in cycling order.
var Rates = []float64{1, 1.25, 1.5, 2}

// ValidRate reports whether r is one of [Rates].
func ValidRate(r float64) bool {
	for _, v := range Rates {
		if v == r {
			return true
		}
	}
	return false
}

// NextRate returns the rate after r in [Rates], wrapping around. Unknown rates restart at 1.
func NextRate(r float64) float64 {
	for i, v := range Rates {
		if v == r {
			return Rates[(i+1)%len(Rates)]
		}
	}
	return Rates[0]
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clampOffset bounds an offset to [0, duration], or to [0, ∞) when duration is unknown.
func clampOffset(v, duration float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case duration > 0 && v > duration:
		return duration
	case math.IsInf(v, 1):
		return 0
	}
	return v
}
