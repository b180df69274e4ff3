package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"infobars/internal/cfg"
	"infobars/internal/common"
	"infobars/internal/loader"
	"infobars/internal/metrics"
	"infobars/internal/pipeline"
	"infobars/internal/report"
	"infobars/internal/storage"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		dataPath     = flag.String("data", "", "Path to trade data (CSV, JSON lines, or BoltDB directory)")
		dataFormat   = flag.String("format", "", "Data format: auto, csv, json, boltdb")
		outputPath   = flag.String("output", "", "Output directory for bars and reports")
		barTypes     = flag.String("bar-types", "", "Comma-separated bar types: tick, volume, dollar")
		symbol       = flag.String("symbol", "", "Symbol to load from BoltDB and label outputs with")
		initialTicks = flag.Int("initial-ticks", 0, "Initial expected ticks per bar")
		storePath    = flag.String("store", "", "BoltDB directory to persist computed bars in")
		logLevel     = flag.String("log-level", "", "Log level: debug, info, warn, error")
		startDate    = flag.String("start", "", "Start of BoltDB range (RFC3339 or YYYY-MM-DD)")
		endDate      = flag.String("end", "", "End of BoltDB range (RFC3339 or YYYY-MM-DD)")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	config, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Command line flags override config
	if *dataPath != "" {
		config.DataPath = *dataPath
	}
	if *dataFormat != "" {
		config.DataFormat = *dataFormat
	}
	if *outputPath != "" {
		config.OutputPath = *outputPath
	}
	if *barTypes != "" {
		types, err := cfg.ParseBarTypes(*barTypes)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid bar types")
		}
		config.BarTypes = types
	}
	if *symbol != "" {
		config.Symbol = *symbol
	}
	if *initialTicks != 0 {
		config.InitialExpectedTicks = *initialTicks
	}
	if *storePath != "" {
		config.StorePath = *storePath
	}
	if *logLevel != "" {
		config.LogLevel = *logLevel
	}

	level, err := zerolog.ParseLevel(config.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if config.DataPath == "" {
		log.Fatal().Msg("No data path given, use -data or DATA_PATH")
	}
	if err := config.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	startTime, endTime, err := parseRange(*startDate, *endDate)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid date range")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if config.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.RunTimeout)
		defer cancel()
	}

	m := metrics.New()
	if config.MetricsPort != 0 {
		server := startMetricsServer(config.MetricsPort)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Shutdown(shutdownCtx)
		}()
	}

	stores := newStoreSet()
	defer stores.Close()

	dl := loader.NewDataLoader(m)
	format := config.DataFormat
	if format == common.FormatAuto {
		format = detectFormat(config.DataPath)
	}
	if format == common.FormatBoltDB {
		store, err := stores.Open(config.DataPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open BoltDB")
		}
		err = dl.LoadFromBoltDB(store, config.Symbol, startTime, endTime)
	} else {
		err = dl.Load(config.DataPath, format)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load data")
	}

	trades, err := dl.Trades()
	if err != nil {
		log.Fatal().Err(err).Str("data", config.DataPath).Msg("Nothing to sample")
	}

	log.Info().
		Str("symbol", config.Symbol).
		Int("trades", len(trades)).
		Int("invalid_rows", dl.InvalidRows()).
		Interface("bar_types", config.BarTypes).
		Msg("Computing information-driven bars")

	out, err := pipeline.Run(ctx, pipeline.ConfigFromSettings(&config), trades, m)
	if err != nil {
		log.Fatal().Err(err).Msg("Bar computation failed")
	}

	if config.StorePath != "" {
		store, err := stores.Open(config.StorePath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open bar store")
		}
		if err := pipeline.Persist(store, out); err != nil {
			log.Error().Err(err).Msg("Failed to persist bars")
		}
	}

	reporter := report.NewReporter(out, config.OutputPath)
	if err := reporter.GenerateReport(); err != nil {
		log.Error().Err(err).Msg("Failed to generate reports")
	}

	reporter.PrintSummary()

	log.Info().
		Str("run_id", out.RunID).
		Str("output", config.OutputPath).
		Msg("Run completed successfully")
}

// detectFormat treats a directory as a BoltDB store and otherwise goes by
// file extension.
func detectFormat(path string) string {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return common.FormatBoltDB
	}
	return loader.DetectFormat(path)
}

func parseRange(start, end string) (time.Time, time.Time, error) {
	startTime := time.Unix(0, 0).UTC()
	endTime := time.Date(2200, 1, 1, 0, 0, 0, 0, time.UTC)

	var err error
	if start != "" {
		if startTime, err = parseDate(start); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("start: %w", err)
		}
	}
	if end != "" {
		if endTime, err = parseDate(end); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("end: %w", err)
		}
	}
	if endTime.Before(startTime) {
		return time.Time{}, time.Time{}, errors.New("end is before start")
	}
	return startTime, endTime, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func startMetricsServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Int("port", port).Msg("Metrics server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
	return server
}

// storeSet opens each BoltDB path once so the input store can double
// as the bar store.
type storeSet map[string]*storage.Store

func newStoreSet() storeSet {
	return make(storeSet)
}

func (s storeSet) Open(path string) (*storage.Store, error) {
	if store, ok := s[path]; ok {
		return store, nil
	}
	store, err := openStore(path)
	if err != nil {
		return nil, err
	}
	s[path] = store
	return store, nil
}

// openStore opens path as a database file when it is one, otherwise as a
// store directory created on demand.
func openStore(path string) (*storage.Store, error) {
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return storage.Open(path)
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return storage.New(path)
}

func (s storeSet) Close() {
	for path, store := range s {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to close store")
		}
	}
}
