package features

// Labeler applies the tick rule to a price stream: +1 on an uptick, -1 on a
// downtick, and the previous label when the price is unchanged. The first
// trade has no reference price and is labeled 0.
type Labeler struct {
	last  float64
	label int8
	seen  bool
}

// Next returns the label for the next trade price.
func (l *Labeler) Next(price float64) int8 {
	if !l.seen {
		l.seen = true
		l.last = price
		return 0
	}
	if price > l.last {
		l.label = 1
	} else if price < l.last {
		l.label = -1
	}
	l.last = price
	return l.label
}

// Reset forgets the reference price and the carried label.
func (l *Labeler) Reset() {
	*l = Labeler{}
}

// TickImb accumulates tick-rule signs and reports their mean, the buy/sell
// imbalance of a group of trades.
type TickImb struct {
	sum int
	n   int
}

func (t *TickImb) Add(sign int8) {
	t.sum += int(sign)
	t.n++
}

func (t *TickImb) Ratio() float64 {
	if t.n == 0 {
		return 0
	}
	return float64(t.sum) / float64(t.n)
}

// Count returns the number of labels added.
func (t *TickImb) Count() int { return t.n }
