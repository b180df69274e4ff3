package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"infobars/internal/common"
	"infobars/internal/features"
	"infobars/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const storeBatch = 10_000

func main() {
	def := DefaultGeneratorConfig()
	var (
		output     = flag.String("output", "data/trades.csv", "Output file, or BoltDB directory with -format boltdb")
		format     = flag.String("format", common.FormatCSV, "Output format: csv, json, boltdb")
		symbol     = flag.String("symbol", common.DefaultSymbol, "Symbol to store trades under (boltdb)")
		count      = flag.Int("trades", 100_000, "Number of trades to generate")
		startPrice = flag.Float64("start-price", def.StartPrice, "Starting price")
		volatility = flag.Float64("volatility", def.Volatility, "Per-trade log return std")
		flowBias   = flag.Float64("flow-bias", def.FlowBias, "Drift during an order-flow run, in volatility units")
		flowSwitch = flag.Float64("flow-switch", def.FlowSwitch, "Per-trade probability the order flow flips")
		seed       = flag.Int64("seed", def.Seed, "Random seed")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *count <= 0 {
		log.Fatal().Int("trades", *count).Msg("Trade count must be positive")
	}

	conf := def
	conf.StartPrice = *startPrice
	conf.Volatility = *volatility
	conf.FlowBias = *flowBias
	conf.FlowSwitch = *flowSwitch
	conf.Seed = *seed

	log.Info().
		Str("symbol", *symbol).
		Int("trades", *count).
		Float64("start_price", conf.StartPrice).
		Int64("seed", conf.Seed).
		Str("output", *output).
		Msg("Generating sample trades")

	gen := NewGenerator(conf)

	var err error
	switch *format {
	case common.FormatBoltDB:
		err = writeStore(*output, *symbol, gen, *count)
	case common.FormatCSV:
		err = writeFile(*output, gen.Generate(*count), WriteCSV)
	case common.FormatJSON:
		err = writeFile(*output, gen.Generate(*count), WriteJSON)
	default:
		log.Fatal().Str("format", *format).Msg("Unknown output format")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to write sample trades")
	}

	log.Info().Str("output", *output).Msg("Sample trades generated")
}

func writeFile(path string, trades []features.Trade, write func(io.Writer, []features.Trade) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer file.Close()

	if err := write(file, trades); err != nil {
		return err
	}
	return file.Close()
}

func writeStore(dir, symbol string, gen *Generator, n int) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	store, err := storage.New(dir)
	if err != nil {
		return err
	}
	defer store.Close()

	for done := 0; done < n; {
		batch := min(storeBatch, n-done)
		if err := store.StoreTrades(symbol, gen.Generate(batch)); err != nil {
			return fmt.Errorf("store trades: %w", err)
		}
		done += batch
	}

	stored, err := store.CountTrades(symbol)
	if err != nil {
		return err
	}
	log.Info().Int("stored", stored).Msg("Trades stored in BoltDB")
	return nil
}
