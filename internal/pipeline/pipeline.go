// Package pipeline runs one information-driven bar computation over a trade
// history for every configured bar type.
//
// Trades are labeled once. Each bar type then gets its own engine, scanned
// concurrently over the shared read-only labeled ticks.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"infobars/internal/bars"
	"infobars/internal/cfg"
	"infobars/internal/features"
	"infobars/internal/metrics"
	"infobars/internal/ohlcv"
	"infobars/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Config selects what one run computes.
type Config struct {
	Symbol               string
	BarTypes             []bars.BarType
	InitialExpectedTicks int
	Options              bars.Options
}

// ConfigFromSettings builds a run configuration from loaded settings.
func ConfigFromSettings(s *cfg.Settings) Config {
	return Config{
		Symbol:               s.Symbol,
		BarTypes:             s.BarTypes,
		InitialExpectedTicks: s.InitialExpectedTicks,
		Options:              s.BarOptions(),
	}
}

// BarSet is the outcome of one bar type.
type BarSet struct {
	BarType  bars.BarType
	Result   *bars.Result
	Bars     []ohlcv.Bar
	Duration time.Duration
}

// Output collects all bar sets of a run, ordered as Config.BarTypes.
type Output struct {
	RunID     string
	Symbol    string
	CreatedAt time.Time
	StartTime time.Time
	EndTime   time.Time
	Trades    int
	Config    Config
	Sets      []BarSet
}

// Set returns the bar set for bt.
func (o *Output) Set(bt bars.BarType) (BarSet, bool) {
	for _, s := range o.Sets {
		if s.BarType == bt {
			return s, true
		}
	}
	return BarSet{}, false
}

// Run computes bars for every bar type in conf. trades must be ordered by
// timestamp. m may be nil. The first failing bar type cancels the rest.
func Run(ctx context.Context, conf Config, trades []features.Trade, m *metrics.Metrics) (*Output, error) {
	if len(trades) == 0 {
		return nil, fmt.Errorf("%w: no trades", bars.ErrInvalidInput)
	}
	if len(conf.BarTypes) == 0 {
		return nil, fmt.Errorf("%w: no bar types configured", bars.ErrInvalidInput)
	}
	if err := conf.Options.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &Output{
		RunID:     uuid.New().String(),
		Symbol:    conf.Symbol,
		CreatedAt: time.Now().UTC(),
		StartTime: trades[0].Timestamp,
		EndTime:   trades[len(trades)-1].Timestamp,
		Trades:    len(trades),
		Config:    conf,
		Sets:      make([]BarSet, len(conf.BarTypes)),
	}

	labeled := features.Label(trades)

	g, gctx := errgroup.WithContext(ctx)
	for i, bt := range conf.BarTypes {
		i, bt := i, bt
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			set, err := runOne(labeled, bt, conf, out.RunID, m)
			if err != nil {
				return fmt.Errorf("%s bars: %w", bt, err)
			}
			out.Sets[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info().
		Str("run_id", out.RunID).
		Str("symbol", out.Symbol).
		Int("trades", out.Trades).
		Int("bar_types", len(out.Sets)).
		Msg("Bar computation complete")

	return out, nil
}

func runOne(labeled []features.LabeledTick, bt bars.BarType, conf Config, runID string, m *metrics.Metrics) (BarSet, error) {
	var w *metrics.Wrapper
	var engineMetrics bars.MetricsInterface
	if m != nil {
		w = metrics.NewWrapper(m, string(bt))
		engineMetrics = w
	}

	signed, err := features.Extract(labeled, bt)
	if err != nil {
		return BarSet{}, err
	}

	engine, err := bars.NewEngine(conf.Options, engineMetrics)
	if err != nil {
		return BarSet{}, err
	}
	logger := log.With().Str("run_id", runID).Str("bar_type", string(bt)).Logger()
	engine.SetLogger(logger)

	start := time.Now()
	res, err := engine.Run(signed, conf.InitialExpectedTicks)
	elapsed := time.Since(start)
	if err != nil {
		if w != nil {
			w.ScanErrorsInc()
		}
		return BarSet{}, err
	}
	if w != nil {
		w.ScanDurationObserve(elapsed.Seconds())
	}

	bs, err := ohlcv.FromResult(labeled, res)
	if err != nil {
		return BarSet{}, fmt.Errorf("aggregate: %w", err)
	}

	logger.Info().
		Int("bars", len(bs)).
		Int("completed", res.Completed()).
		Bool("partial", res.HasPartial()).
		Int("degenerate", len(res.Degenerate)).
		Dur("elapsed", elapsed).
		Msg("Bars computed")

	return BarSet{BarType: bt, Result: res, Bars: bs, Duration: elapsed}, nil
}

// Persist stores every bar set of out under its run id.
func Persist(store *storage.Store, out *Output) error {
	for _, set := range out.Sets {
		run := storage.RunRecord{
			RunID:     out.RunID,
			Symbol:    out.Symbol,
			BarType:   string(set.BarType),
			CreatedAt: out.CreatedAt,
		}
		if err := store.StoreRun(run, set.Bars); err != nil {
			return fmt.Errorf("persist %s bars: %w", set.BarType, err)
		}
	}

	log.Info().Str("run_id", out.RunID).Int("bar_sets", len(out.Sets)).Msg("Bars persisted")
	return nil
}
