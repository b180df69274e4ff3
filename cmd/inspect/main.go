package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"infobars/internal/common"
	"infobars/internal/ohlcv"
	"infobars/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		dataPath = flag.String("data", "./data", "BoltDB directory")
		symbol   = flag.String("symbol", common.DefaultSymbol, "Symbol whose stored trades are counted")
		runID    = flag.String("run", "", "Run id whose bars are printed")
		barType  = flag.String("bar-type", "volume", "Bar type of the printed run")
		limit    = flag.Int("limit", 20, "Maximum number of bars to print, 0 for all")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	store, err := storage.New(*dataPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer store.Close()

	if *runID != "" {
		bars, err := store.GetBars(*runID, *barType)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read bars")
		}
		printBars(os.Stdout, bars, *limit)
		return
	}

	trades, err := store.CountTrades(*symbol)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to count trades")
	}
	runs, err := store.ListRuns()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list runs")
	}
	printOverview(os.Stdout, *dataPath, *symbol, trades, runs)
}

func printOverview(w io.Writer, path, symbol string, trades int, runs []storage.RunRecord) {
	fmt.Fprintf(w, "Store: %s\n", path)
	fmt.Fprintf(w, "Trades for %s: %d\n\n", symbol, trades)

	if len(runs) == 0 {
		fmt.Fprintln(w, "No bar runs stored.")
		return
	}
	fmt.Fprintf(w, "%-36s  %-8s  %-10s  %6s  %-7s  %s\n", "RUN", "TYPE", "SYMBOL", "BARS", "PARTIAL", "CREATED")
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-8s  %-10s  %6d  %-7t  %s\n",
			r.RunID, r.BarType, r.Symbol, r.Bars, r.Partial, r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
}

func printBars(w io.Writer, bars []ohlcv.Bar, limit int) {
	if len(bars) == 0 {
		fmt.Fprintln(w, "No bars stored for this run.")
		return
	}
	if limit > 0 && len(bars) > limit {
		bars = bars[:limit]
	}
	fmt.Fprintf(w, "%5s  %-23s  %12s  %12s  %12s  %12s  %14s  %6s\n",
		"ID", "START", "OPEN", "HIGH", "LOW", "CLOSE", "VOLUME", "TICKS")
	for _, b := range bars {
		mark := ""
		if b.Partial {
			mark = " (partial)"
		}
		fmt.Fprintf(w, "%5d  %-23s  %12.4f  %12.4f  %12.4f  %12.4f  %14.6f  %6d%s\n",
			b.ID, b.Timestamp.Format("2006-01-02 15:04:05.000"), b.Open, b.High, b.Low, b.Close, b.Volume, b.Ticks, mark)
	}
}
