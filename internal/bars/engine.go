package bars

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Engine runs the adaptive imbalance scan. An Engine holds configuration
// only; every call to Run or Scan owns its running and estimator state.
type Engine struct {
	opts      Options
	estimator Estimator
	metrics   MetricsInterface
	logger    zerolog.Logger
}

// NewEngine validates opts and returns an engine. m may be nil.
func NewEngine(opts Options, m MetricsInterface) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	est, err := NewEstimator(opts.SmoothingFactor, opts.ImbalanceMode)
	if err != nil {
		return nil, err
	}
	return &Engine{
		opts:      opts,
		estimator: est,
		metrics:   m,
		logger:    log.Logger,
	}, nil
}

// SetLogger replaces the logger used for bar and estimate events.
func (e *Engine) SetLogger(l zerolog.Logger) {
	e.logger = l
}

// Run seeds the expected imbalance from ticks according to the seed mode and
// scans them.
func (e *Engine) Run(ticks []SignedTick, initialExpectedTicks int) (*Result, error) {
	seed, err := Seed(ticks, e.opts)
	if err != nil {
		return nil, err
	}
	return e.Scan(ticks, initialExpectedTicks, seed)
}

// ComputeThresholds scans ticks with an explicit imbalance seed.
func ComputeThresholds(ticks []SignedTick, initialExpectedTicks int, imbalanceSeed float64, opts Options) (*Result, error) {
	e, err := NewEngine(opts, nil)
	if err != nil {
		return nil, err
	}
	return e.Scan(ticks, initialExpectedTicks, imbalanceSeed)
}

// Scan performs the single forward pass. Input is fully validated before the
// first tick is consumed; a rejected scan produces no output.
func (e *Engine) Scan(ticks []SignedTick, initialExpectedTicks int, imbalanceSeed float64) (*Result, error) {
	if err := validateTicks(ticks); err != nil {
		return nil, err
	}
	if initialExpectedTicks <= 0 {
		return nil, fmt.Errorf("%w: initial expected ticks must be positive, got %d", ErrInvalidInput, initialExpectedTicks)
	}
	if !(imbalanceSeed > 0) || math.IsInf(imbalanceSeed, 0) {
		return nil, fmt.Errorf("%w: expected imbalance seed is %v, threshold undefined", ErrInvalidInput, imbalanceSeed)
	}

	n := len(ticks)
	maxTicks := math.Max(1, e.opts.MaxTicksMultiple*float64(n))
	res := &Result{
		ThresholdTrace: make([]float64, 0, n),
	}

	state := EstimatorState{
		ExpectedTicks:     float64(initialExpectedTicks),
		ExpectedImbalance: imbalanceSeed,
	}
	state = e.clamp(state, maxTicks, 0, res)
	threshold := state.Threshold()
	if math.IsInf(threshold, 0) {
		return nil, fmt.Errorf("%w: initial threshold overflows", ErrInvalidInput)
	}

	asm := newAssembler(n)
	var (
		theta   float64
		absMass float64
		count   int
		first   int
	)

	for i, t := range ticks {
		if count == 0 {
			first = i
		}
		theta += t.Value
		absMass += math.Abs(t.Value)
		count++
		res.ThresholdTrace = append(res.ThresholdTrace, threshold)
		id := asm.assign(t.Timestamp)

		if math.Abs(theta) < threshold {
			continue
		}

		b := Boundary{
			StartIndex:       ticks[first].Index,
			EndIndex:         t.Index,
			StartTime:        asm.starts[id],
			EndTime:          t.Timestamp,
			ThetaSigned:      theta,
			ThetaAbsolute:    math.Abs(theta),
			TicksInBar:       count,
			ThresholdAtClose: threshold,
		}
		res.Boundaries = append(res.Boundaries, b)
		asm.close()

		state = e.estimator.Update(state, BarStats{Ticks: count, AbsMass: absMass})
		state = e.clamp(state, maxTicks, id+1, res)
		threshold = state.Threshold()

		e.logger.Debug().
			Int("bar", id).
			Int("end_index", b.EndIndex).
			Int("ticks", count).
			Float64("theta", theta).
			Float64("next_threshold", threshold).
			Msg("Bar closed")
		if e.metrics != nil {
			e.metrics.BarsClosedInc()
			e.metrics.BarLengthObserve(float64(count))
			e.metrics.ThresholdSet(threshold)
		}

		theta, absMass, count = 0, 0, 0
	}

	if count > 0 {
		e.finishPartial(ticks, first, theta, count, threshold, asm, res)
	}

	res.GroupIDs = asm.groupIDs
	res.Final = state
	if e.metrics != nil {
		e.metrics.TicksScannedAdd(n)
	}
	return res, nil
}

func (e *Engine) finishPartial(ticks []SignedTick, first int, theta float64, count int, threshold float64, asm *assembler, res *Result) {
	if e.opts.PartialBar == PartialDrop {
		asm.dropOpen()
		e.logger.Debug().Int("ticks", count).Msg("Dropped trailing partial bar")
		return
	}
	last := ticks[len(ticks)-1]
	res.Boundaries = append(res.Boundaries, Boundary{
		StartIndex:       ticks[first].Index,
		EndIndex:         last.Index,
		StartTime:        asm.starts[asm.current],
		EndTime:          last.Timestamp,
		ThetaSigned:      theta,
		ThetaAbsolute:    math.Abs(theta),
		TicksInBar:       count,
		ThresholdAtClose: threshold,
		Partial:          true,
	})
	if e.metrics != nil {
		e.metrics.PartialBarsInc()
	}
}

// clamp bounds the expected bar length so the next bar can close within the
// input. barID is the bar the estimate will apply to.
func (e *Engine) clamp(s EstimatorState, maxTicks float64, barID int, res *Result) EstimatorState {
	if s.ExpectedTicks <= maxTicks {
		return s
	}
	d := DegenerateEstimate{BarID: barID, Requested: s.ExpectedTicks, Capped: maxTicks}
	res.Degenerate = append(res.Degenerate, d)
	e.logger.Warn().
		Int("bar", barID).
		Float64("requested", d.Requested).
		Float64("capped", d.Capped).
		Msg("Expected ticks per bar exceeds cap, clamping")
	if e.metrics != nil {
		e.metrics.DegenerateEstimatesInc()
	}
	s.ExpectedTicks = maxTicks
	return s
}

func validateTicks(ticks []SignedTick) error {
	if len(ticks) == 0 {
		return fmt.Errorf("%w: empty sequence", ErrInvalidInput)
	}
	for i, t := range ticks {
		if math.IsNaN(t.Value) || math.IsInf(t.Value, 0) {
			return fmt.Errorf("%w: non-finite value at position %d", ErrInvalidInput, i)
		}
		if i > 0 && t.Index <= ticks[i-1].Index {
			return fmt.Errorf("%w: index %d at position %d does not increase", ErrInvalidInput, t.Index, i)
		}
	}
	return nil
}
