package bars

import "time"

// Result is the output of one scan.
//
// GroupIDs and ThresholdTrace have one entry per input tick. Boundaries has
// one entry per completed bar, followed by one Partial entry when the
// trailing partial bar is kept.
type Result struct {
	GroupIDs       []int
	ThresholdTrace []float64
	Boundaries     []Boundary
	Degenerate     []DegenerateEstimate
	Final          EstimatorState
}

// Completed returns the number of bars that closed on a threshold crossing.
func (r *Result) Completed() int {
	n := len(r.Boundaries)
	if n > 0 && r.Boundaries[n-1].Partial {
		n--
	}
	return n
}

// HasPartial reports whether a trailing partial bar was kept.
func (r *Result) HasPartial() bool {
	return len(r.Boundaries) > 0 && r.Boundaries[len(r.Boundaries)-1].Partial
}

func (r *Result) BarLengths() []int {
	out := make([]int, len(r.Boundaries))
	for i, b := range r.Boundaries {
		out[i] = b.TicksInBar
	}
	return out
}

func (r *Result) ThetasAbsolute() []float64 {
	out := make([]float64, len(r.Boundaries))
	for i, b := range r.Boundaries {
		out[i] = b.ThetaAbsolute
	}
	return out
}

func (r *Result) ThetasSigned() []float64 {
	out := make([]float64, len(r.Boundaries))
	for i, b := range r.Boundaries {
		out[i] = b.ThetaSigned
	}
	return out
}

// Thresholds returns the threshold in force at each bar's close.
func (r *Result) Thresholds() []float64 {
	out := make([]float64, len(r.Boundaries))
	for i, b := range r.Boundaries {
		out[i] = b.ThresholdAtClose
	}
	return out
}

// BoundaryTimestamps returns the representative timestamp of each bar, the
// timestamp of its first tick.
func (r *Result) BoundaryTimestamps() []time.Time {
	out := make([]time.Time, len(r.Boundaries))
	for i, b := range r.Boundaries {
		out[i] = b.StartTime
	}
	return out
}
