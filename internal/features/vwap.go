package features

import "math"

// VWAP accumulates volume-weighted average price and the standard deviation
// of trade prices for one group of trades.
type VWAP struct {
	pv, vv          float64
	sum, sumSquared float64
	count           int
}

func (v *VWAP) Add(price, volume float64) {
	v.pv += price * volume
	v.vv += volume
	v.sum += price
	v.sumSquared += price * price
	v.count++
}

// Calc returns the VWAP and the population standard deviation of prices. When
// the group carries no volume the VWAP falls back to the plain mean price.
func (v *VWAP) Calc() (value, std float64) {
	if v.count == 0 {
		return 0, 0
	}
	mean := v.sum / float64(v.count)
	if v.vv > 0 {
		value = v.pv / v.vv
	} else {
		value = mean
	}
	variance := (v.sumSquared / float64(v.count)) - (mean * mean)
	if variance > 0 {
		std = math.Sqrt(variance)
	}
	return
}

func (v *VWAP) Reset() {
	*v = VWAP{}
}
