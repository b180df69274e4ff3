// Package features turns raw trades into the signed sequences consumed by
// the bar engine, and provides the small per-bar statistics (tick imbalance,
// VWAP) used when bars are aggregated.
package features

import (
	"fmt"
	"time"

	"infobars/internal/bars"
)

// Trade is one executed trade.
type Trade struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
}

// LabeledTick is a trade with its tick-rule label and the derived signed
// fields for each bar type.
type LabeledTick struct {
	Index         int
	Timestamp     time.Time
	Price         float64
	Volume        float64
	Label         int8
	VolumeLabeled float64
	DollarLabeled float64
}

// Label runs the tick rule over trades in order.
func Label(trades []Trade) []LabeledTick {
	out := make([]LabeledTick, len(trades))
	var l Labeler
	for i, tr := range trades {
		sign := l.Next(tr.Price)
		out[i] = LabeledTick{
			Index:         i,
			Timestamp:     tr.Timestamp,
			Price:         tr.Price,
			Volume:        tr.Volume,
			Label:         sign,
			VolumeLabeled: float64(sign) * tr.Volume,
			DollarLabeled: float64(sign) * tr.Price * tr.Volume,
		}
	}
	return out
}

// Extract selects the signed field for barType. The branch is taken once per
// call so the engine never sees the bar type.
func Extract(ticks []LabeledTick, barType bars.BarType) ([]bars.SignedTick, error) {
	var value func(LabeledTick) float64
	switch barType {
	case bars.TickBars:
		value = func(t LabeledTick) float64 { return float64(t.Label) }
	case bars.VolumeBars:
		value = func(t LabeledTick) float64 { return t.VolumeLabeled }
	case bars.DollarBars:
		value = func(t LabeledTick) float64 { return t.DollarLabeled }
	default:
		return nil, fmt.Errorf("%w: unrecognized bar type %q", bars.ErrInvalidInput, barType)
	}

	out := make([]bars.SignedTick, len(ticks))
	for i, t := range ticks {
		out[i] = bars.SignedTick{Index: t.Index, Timestamp: t.Timestamp, Value: value(t)}
	}
	return out, nil
}
