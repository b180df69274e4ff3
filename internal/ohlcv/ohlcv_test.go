package ohlcv

import (
	"testing"
	"time"

	"infobars/internal/bars"
	"infobars/internal/features"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 5, 6, 14, 0, 0, 0, time.UTC)

func ticksFrom(prices, volumes []float64) []features.LabeledTick {
	trades := make([]features.Trade, len(prices))
	for i := range prices {
		trades[i] = features.Trade{Timestamp: base.Add(time.Duration(i) * time.Second), Price: prices[i], Volume: volumes[i]}
	}
	return features.Label(trades)
}

func TestAggregate(t *testing.T) {
	ticks := ticksFrom(
		[]float64{10, 12, 9, 11, 11, 13},
		[]float64{1, 2, 1, 4, 1, 2},
	)

	out, err := Aggregate(ticks, []int{0, 0, 0, 1, 1, 2}, true)
	require.NoError(t, err)
	require.Len(t, out, 3)

	b := out[0]
	assert.Equal(t, 0, b.ID)
	assert.Equal(t, base, b.Timestamp)
	assert.Equal(t, base.Add(2*time.Second), b.EndTime)
	assert.Equal(t, 10.0, b.Open)
	assert.Equal(t, 12.0, b.High)
	assert.Equal(t, 9.0, b.Low)
	assert.Equal(t, 9.0, b.Close)
	assert.Equal(t, 4.0, b.Volume)
	assert.Equal(t, 43.0, b.DollarVolume)
	assert.InDelta(t, 43.0/4.0, b.VWAP, 1e-12)
	assert.Equal(t, 3, b.Ticks)
	// labels 0, +1, -1
	assert.Equal(t, 0.0, b.TickImbalance)
	assert.False(t, b.Partial)

	assert.Equal(t, base.Add(3*time.Second), out[1].Timestamp)
	assert.Equal(t, 5.0, out[1].Volume)
	assert.Equal(t, 1.0, out[1].TickImbalance)

	assert.True(t, out[2].Partial)
	assert.Equal(t, 13.0, out[2].Open)
}

func TestAggregate_SkipsUnassigned(t *testing.T) {
	ticks := ticksFrom([]float64{1, 2, 3, 4}, []float64{1, 1, 1, 1})

	out, err := Aggregate(ticks, []int{0, 0, bars.Unassigned, bars.Unassigned}, false)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 2, out[0].Ticks)
	assert.Equal(t, 2.0, out[0].Close)
}

func TestAggregate_Errors(t *testing.T) {
	ticks := ticksFrom([]float64{1, 2, 3}, []float64{1, 1, 1})

	testCases := []struct {
		name string
		ids  []int
	}{
		{"length mismatch", []int{0, 0}},
		{"starts above zero", []int{1, 1, 1}},
		{"gap", []int{0, 2, 2}},
		{"decreasing", []int{0, 1, 0}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Aggregate(ticks, tc.ids, false)
			assert.Error(t, err)
		})
	}
}

func TestFromResult(t *testing.T) {
	ticks := ticksFrom(
		[]float64{100, 101, 102, 103, 102, 101, 100, 99},
		[]float64{1, 1, 1, 1, 1, 1, 1, 1},
	)
	signed, err := features.Extract(ticks, bars.TickBars)
	require.NoError(t, err)

	opts := bars.DefaultOptions()
	opts.SmoothingFactor = 1
	res, err := bars.ComputeThresholds(signed, 2, 1, opts)
	require.NoError(t, err)

	out, err := FromResult(ticks, res)
	require.NoError(t, err)
	require.Len(t, out, len(res.Boundaries))

	total := 0
	for i, b := range out {
		assert.Equal(t, i, b.ID)
		assert.Equal(t, res.Boundaries[i].TicksInBar, b.Ticks)
		assert.Equal(t, res.Boundaries[i].StartTime, b.Timestamp)
		assert.Equal(t, res.Boundaries[i].Partial, b.Partial)
		total += b.Ticks
	}
	assert.Equal(t, len(ticks), total)
}
