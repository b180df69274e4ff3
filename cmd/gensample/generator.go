package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strconv"
	"time"

	"infobars/internal/features"
)

// GeneratorConfig controls the synthetic trade stream.
type GeneratorConfig struct {
	Start      time.Time
	StartPrice float64
	Volatility float64       // per-trade log return std
	Interval   time.Duration // mean gap between trades
	FlowBias   float64       // drift added during an order-flow run, in units of Volatility
	FlowSwitch float64       // per-trade probability that the dominant flow flips
	Seed       int64
}

// DefaultGeneratorConfig returns a BTC-like stream with short one-sided runs.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Start:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		StartPrice: 50000,
		Volatility: 0.0005,
		Interval:   200 * time.Millisecond,
		FlowBias:   0.3,
		FlowSwitch: 0.01,
		Seed:       1,
	}
}

// Generator produces trades from a random walk whose drift follows a
// two-state order-flow regime, so imbalance bars have something to find.
type Generator struct {
	conf  GeneratorConfig
	rng   *rand.Rand
	price float64
	now   time.Time
	flow  float64
}

// NewGenerator creates a generator. The same seed yields the same stream.
func NewGenerator(conf GeneratorConfig) *Generator {
	return &Generator{
		conf:  conf,
		rng:   rand.New(rand.NewSource(conf.Seed)),
		price: conf.StartPrice,
		now:   conf.Start,
		flow:  1,
	}
}

// Next returns the next trade.
func (g *Generator) Next() features.Trade {
	if g.rng.Float64() < g.conf.FlowSwitch {
		g.flow = -g.flow
	}

	ret := g.conf.Volatility * (g.rng.NormFloat64() + g.conf.FlowBias*g.flow)
	g.price *= math.Exp(ret)
	g.price = math.Round(g.price*100) / 100
	if g.price < 0.01 {
		g.price = 0.01
	}

	// exponential inter-arrival times
	gap := time.Duration(g.rng.ExpFloat64() * float64(g.conf.Interval))
	g.now = g.now.Add(max(gap, time.Millisecond)).Truncate(time.Millisecond)

	// lognormal size
	volume := math.Round(math.Exp(g.rng.NormFloat64()-4)*1e6) / 1e6
	if volume == 0 {
		volume = 0.000001
	}

	return features.Trade{Timestamp: g.now, Price: g.price, Volume: volume}
}

// Generate returns n trades.
func (g *Generator) Generate(n int) []features.Trade {
	out := make([]features.Trade, n)
	for i := range out {
		out[i] = g.Next()
	}
	return out
}

// WriteCSV writes trades with a timestamp,price,volume header.
func WriteCSV(w io.Writer, trades []features.Trade) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"timestamp", "price", "volume"}); err != nil {
		return err
	}
	for _, t := range trades {
		record := []string{
			t.Timestamp.Format("2006-01-02 15:04:05.000"),
			strconv.FormatFloat(t.Price, 'f', 2, 64),
			strconv.FormatFloat(t.Volume, 'f', 6, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteJSON writes trades as JSON lines.
func WriteJSON(w io.Writer, trades []features.Trade) error {
	enc := json.NewEncoder(w)
	for _, t := range trades {
		if err := enc.Encode(t); err != nil {
			return fmt.Errorf("encode trade: %w", err)
		}
	}
	return nil
}
