// Package ohlcv aggregates labeled ticks into bars given a tick -> group
// assignment produced by the bar engine.
package ohlcv

import (
	"fmt"
	"math"
	"time"

	"infobars/internal/bars"
	"infobars/internal/features"
)

// Bar is one aggregated bar. Timestamp is the time of its first tick.
type Bar struct {
	ID            int       `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	EndTime       time.Time `json:"end_time"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`
	Volume        float64   `json:"volume"`
	DollarVolume  float64   `json:"dollar_volume"`
	VWAP          float64   `json:"vwap"`
	PriceStd      float64   `json:"price_std"`
	Ticks         int       `json:"ticks"`
	TickImbalance float64   `json:"tick_imbalance"`
	Partial       bool      `json:"partial"`
}

// Aggregate groups ticks by groupIDs. Ids must start at 0 and never skip or
// decrease; ticks with id bars.Unassigned are ignored. When partial is set the
// last bar is flagged as an incomplete trailing bar.
func Aggregate(ticks []features.LabeledTick, groupIDs []int, partial bool) ([]Bar, error) {
	if len(ticks) != len(groupIDs) {
		return nil, fmt.Errorf("group assignment has %d entries for %d ticks", len(groupIDs), len(ticks))
	}

	var (
		out  []Bar
		cur  *Bar
		vwap features.VWAP
		imb  features.TickImb
	)
	flush := func() {
		if cur == nil {
			return
		}
		cur.VWAP, cur.PriceStd = vwap.Calc()
		cur.TickImbalance = imb.Ratio()
		cur.Ticks = imb.Count()
		out = append(out, *cur)
		vwap.Reset()
		imb = features.TickImb{}
	}

	for i, t := range ticks {
		id := groupIDs[i]
		if id == bars.Unassigned {
			continue
		}
		if cur == nil || id != cur.ID {
			want := 0
			if cur != nil {
				want = cur.ID + 1
			}
			if id != want {
				return nil, fmt.Errorf("group id %d at tick %d, expected %d", id, i, want)
			}
			flush()
			cur = &Bar{
				ID:        id,
				Timestamp: t.Timestamp,
				Open:      t.Price,
				High:      t.Price,
				Low:       t.Price,
			}
		}
		cur.High = math.Max(cur.High, t.Price)
		cur.Low = math.Min(cur.Low, t.Price)
		cur.Close = t.Price
		cur.EndTime = t.Timestamp
		cur.Volume += t.Volume
		cur.DollarVolume += t.Price * t.Volume
		vwap.Add(t.Price, t.Volume)
		imb.Add(t.Label)
	}
	flush()

	if partial && len(out) > 0 {
		out[len(out)-1].Partial = true
	}
	return out, nil
}

// FromResult aggregates ticks using the assignment in res.
func FromResult(ticks []features.LabeledTick, res *bars.Result) ([]Bar, error) {
	return Aggregate(ticks, res.GroupIDs, res.HasPartial())
}
