package bars

import (
	"fmt"
	"math"
)

// EstimatorState holds the adaptive statistics behind the threshold.
type EstimatorState struct {
	ExpectedTicks     float64 `json:"expected_ticks"`
	ExpectedImbalance float64 `json:"expected_imbalance"`
}

// Threshold is the imbalance magnitude that closes the next bar.
func (s EstimatorState) Threshold() float64 {
	return s.ExpectedTicks * s.ExpectedImbalance
}

// BarStats are the realized statistics of a just-closed bar.
type BarStats struct {
	Ticks   int
	AbsMass float64 // sum of |value| over the bar's ticks
}

// Estimator updates EstimatorState after each bar close. It holds only
// configuration, so one Estimator may be shared by concurrent scans.
type Estimator struct {
	alpha float64
	mode  ImbalanceMode
}

// NewEstimator returns an estimator with smoothing factor alpha in (0,1].
func NewEstimator(alpha float64, mode ImbalanceMode) (Estimator, error) {
	if !(alpha > 0 && alpha <= 1) {
		return Estimator{}, fmt.Errorf("%w: smoothing factor must be in (0,1], got %v", ErrInvalidInput, alpha)
	}
	if mode != ImbalanceFixed && mode != ImbalanceSmoothed {
		return Estimator{}, fmt.Errorf("%w: unrecognized imbalance mode %q", ErrInvalidInput, mode)
	}
	return Estimator{alpha: alpha, mode: mode}, nil
}

// Update returns the state to use for the next bar. old is not modified.
func (e Estimator) Update(old EstimatorState, bar BarStats) EstimatorState {
	next := old
	if bar.Ticks <= 0 {
		return next
	}
	next.ExpectedTicks = e.alpha*float64(bar.Ticks) + (1-e.alpha)*old.ExpectedTicks
	if e.mode == ImbalanceSmoothed && bar.AbsMass > 0 {
		perTick := bar.AbsMass / float64(bar.Ticks)
		next.ExpectedImbalance = e.alpha*perTick + (1-e.alpha)*old.ExpectedImbalance
	}
	return next
}

// Seed computes the initial expected per-tick imbalance for ticks.
func Seed(ticks []SignedTick, opts Options) (float64, error) {
	if len(ticks) == 0 {
		return 0, fmt.Errorf("%w: empty sequence", ErrInvalidInput)
	}
	var seed float64
	switch opts.SeedMode {
	case SeedMeanAbs, "":
		seed = meanAbs(ticks)
	case SeedAbsMean:
		var sum float64
		for _, t := range ticks {
			sum += t.Value
		}
		seed = math.Abs(sum / float64(len(ticks)))
	case SeedWarmup:
		if opts.WarmupTicks <= 0 {
			return 0, fmt.Errorf("%w: warmup ticks must be positive, got %d", ErrInvalidInput, opts.WarmupTicks)
		}
		seed = meanAbs(ticks[:min(len(ticks), opts.WarmupTicks)])
	default:
		return 0, fmt.Errorf("%w: unrecognized seed mode %q", ErrInvalidInput, opts.SeedMode)
	}
	if !(seed > 0) || math.IsInf(seed, 0) {
		return 0, fmt.Errorf("%w: expected imbalance seed is %v, threshold undefined", ErrInvalidInput, seed)
	}
	return seed, nil
}

func meanAbs(ticks []SignedTick) float64 {
	var sum float64
	for _, t := range ticks {
		sum += math.Abs(t.Value)
	}
	return sum / float64(len(ticks))
}
