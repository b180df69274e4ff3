// Package report writes the output files of a bar computation run: OHLCV
// bars, per-bar diagnostics, the per-tick threshold trace, a JSON report per
// bar type and a plain-text summary.
package report

import "infobars/internal/bars"

// Stats summarizes one bar type's result.
type Stats struct {
	Bars           int     `json:"bars"`
	Completed      int     `json:"completed"`
	Partial        bool    `json:"partial"`
	MeanLength     float64 `json:"mean_ticks_per_bar"`
	MinLength      int     `json:"min_ticks_per_bar"`
	MaxLength      int     `json:"max_ticks_per_bar"`
	FirstThreshold float64 `json:"first_threshold"`
	LastThreshold  float64 `json:"last_threshold"`
	Degenerate     int     `json:"degenerate_estimates"`
}

// ComputeStats derives Stats from res.
func ComputeStats(res *bars.Result) Stats {
	s := Stats{
		Bars:       len(res.Boundaries),
		Completed:  res.Completed(),
		Partial:    res.HasPartial(),
		Degenerate: len(res.Degenerate),
	}
	if n := len(res.ThresholdTrace); n > 0 {
		s.FirstThreshold = res.ThresholdTrace[0]
		s.LastThreshold = res.ThresholdTrace[n-1]
	}

	lengths := res.BarLengths()
	if len(lengths) == 0 {
		return s
	}
	total := 0
	s.MinLength = lengths[0]
	for _, l := range lengths {
		total += l
		s.MinLength = min(s.MinLength, l)
		s.MaxLength = max(s.MaxLength, l)
	}
	s.MeanLength = float64(total) / float64(len(lengths))
	return s
}
