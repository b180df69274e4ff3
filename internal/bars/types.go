// Package bars implements information-driven bar sampling. A signed tick
// sequence is scanned once; signed imbalance accumulates until its magnitude
// reaches an adaptive threshold, at which point a bar closes and the
// threshold for the next bar is re-estimated from realized bar statistics.
//
// The package is agnostic to bar type: callers hand it an already-signed
// sequence (see internal/features). Each scan owns its state, so independent
// scans may run concurrently without coordination.
package bars

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidInput is returned, wrapped with a reason, when a scan is rejected
// before it starts.
var ErrInvalidInput = errors.New("invalid input")

// Unassigned is the group id given to trailing ticks when the partial bar is
// dropped.
const Unassigned = -1

const (
	DefaultSmoothingFactor  = 0.2
	DefaultMaxTicksMultiple = 1.0
	DefaultWarmupTicks      = 100
)

// SignedTick is one element of the extracted sequence.
type SignedTick struct {
	Index     int
	Timestamp time.Time
	Value     float64
}

// BarType selects which signed field the extractor reads.
type BarType string

const (
	TickBars   BarType = "tick"
	VolumeBars BarType = "volume"
	DollarBars BarType = "dollar"
)

// ParseBarType parses a bar type name, case-insensitively.
func ParseBarType(s string) (BarType, error) {
	switch bt := BarType(strings.ToLower(strings.TrimSpace(s))); bt {
	case TickBars, VolumeBars, DollarBars:
		return bt, nil
	default:
		return "", fmt.Errorf("%w: unrecognized bar type %q", ErrInvalidInput, s)
	}
}

// ImbalanceMode controls whether the expected per-tick imbalance is
// re-estimated after each bar close.
type ImbalanceMode string

const (
	ImbalanceFixed    ImbalanceMode = "fixed"
	ImbalanceSmoothed ImbalanceMode = "smoothed"
)

// PartialBarPolicy decides what happens to ticks after the last close.
type PartialBarPolicy string

const (
	PartialInclude PartialBarPolicy = "include"
	PartialDrop    PartialBarPolicy = "drop"
)

// SeedMode selects how the initial expected imbalance is computed.
type SeedMode string

const (
	SeedMeanAbs SeedMode = "mean_abs" // mean(|x|) over the whole sequence
	SeedAbsMean SeedMode = "abs_mean" // |mean(x)| over the whole sequence
	SeedWarmup  SeedMode = "warmup"   // mean(|x|) over the first WarmupTicks
)

// Options configures a scan. The zero value is not valid; start from
// DefaultOptions.
type Options struct {
	SmoothingFactor  float64          `json:"smoothing_factor"`
	ImbalanceMode    ImbalanceMode    `json:"imbalance_mode"`
	PartialBar       PartialBarPolicy `json:"partial_bar"`
	SeedMode         SeedMode         `json:"seed_mode"`
	WarmupTicks      int              `json:"warmup_ticks"`
	MaxTicksMultiple float64          `json:"max_ticks_multiple"`
}

// DefaultOptions returns the documented defaults: α=0.2, fixed imbalance,
// trailing partial bar kept, imbalance seeded from mean(|x|).
func DefaultOptions() Options {
	return Options{
		SmoothingFactor:  DefaultSmoothingFactor,
		ImbalanceMode:    ImbalanceFixed,
		PartialBar:       PartialInclude,
		SeedMode:         SeedMeanAbs,
		WarmupTicks:      DefaultWarmupTicks,
		MaxTicksMultiple: DefaultMaxTicksMultiple,
	}
}

// Validate reports the first invalid option.
func (o Options) Validate() error {
	if !(o.SmoothingFactor > 0 && o.SmoothingFactor <= 1) {
		return fmt.Errorf("%w: smoothing factor must be in (0,1], got %v", ErrInvalidInput, o.SmoothingFactor)
	}
	switch o.ImbalanceMode {
	case ImbalanceFixed, ImbalanceSmoothed:
	default:
		return fmt.Errorf("%w: unrecognized imbalance mode %q", ErrInvalidInput, o.ImbalanceMode)
	}
	switch o.PartialBar {
	case PartialInclude, PartialDrop:
	default:
		return fmt.Errorf("%w: unrecognized partial bar policy %q", ErrInvalidInput, o.PartialBar)
	}
	switch o.SeedMode {
	case SeedMeanAbs, SeedAbsMean:
	case SeedWarmup:
		if o.WarmupTicks <= 0 {
			return fmt.Errorf("%w: warmup ticks must be positive, got %d", ErrInvalidInput, o.WarmupTicks)
		}
	default:
		return fmt.Errorf("%w: unrecognized seed mode %q", ErrInvalidInput, o.SeedMode)
	}
	if !(o.MaxTicksMultiple > 0) {
		return fmt.Errorf("%w: max ticks multiple must be positive, got %v", ErrInvalidInput, o.MaxTicksMultiple)
	}
	return nil
}

// Boundary is the record emitted when a bar closes. The trailing partial bar,
// when kept, is reported with Partial set and ThresholdAtClose holding the
// threshold that was in force.
type Boundary struct {
	StartIndex       int
	EndIndex         int
	StartTime        time.Time
	EndTime          time.Time
	ThetaSigned      float64
	ThetaAbsolute    float64
	TicksInBar       int
	ThresholdAtClose float64
	Partial          bool
}

// DegenerateEstimate records an expected-ticks estimate that was clamped
// because bars sized by it could not close within the input.
type DegenerateEstimate struct {
	BarID     int     `json:"bar_id"` // bar the estimate applies to
	Requested float64 `json:"requested"`
	Capped    float64 `json:"capped"`
}

// MetricsInterface receives scan events. A nil MetricsInterface is allowed.
type MetricsInterface interface {
	BarsClosedInc()
	PartialBarsInc()
	DegenerateEstimatesInc()
	TicksScannedAdd(n int)
	BarLengthObserve(ticks float64)
	ThresholdSet(threshold float64)
}
