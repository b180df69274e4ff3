// Package loader reads trade histories from CSV, JSON lines or a BoltDB
// store into a time-ordered slice of trades.
package loader

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"infobars/internal/common"
	"infobars/internal/features"
	"infobars/internal/metrics"
	"infobars/internal/storage"

	"github.com/rs/zerolog/log"
)

// ErrNoTrades is returned when a source yields no valid trades.
var ErrNoTrades = errors.New("no valid trades loaded")

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// DataLoader accumulates trades from one or more sources.
type DataLoader struct {
	trades    []features.Trade
	invalid   int
	metrics   *metrics.Metrics
	StartTime time.Time
	EndTime   time.Time
}

// NewDataLoader creates an empty loader. m may be nil.
func NewDataLoader(m *metrics.Metrics) *DataLoader {
	return &DataLoader{metrics: m}
}

// Load dispatches on format. FormatAuto picks by file extension; bolt
// sources must be loaded with LoadFromBoltDB.
func (dl *DataLoader) Load(path, format string) error {
	if format == common.FormatAuto || format == "" {
		format = DetectFormat(path)
	}

	switch format {
	case common.FormatCSV:
		return dl.LoadFromCSV(path)
	case common.FormatJSON:
		return dl.LoadFromJSON(path)
	default:
		return fmt.Errorf("unsupported data format %q for %s", format, path)
	}
}

// DetectFormat guesses the data format from a file extension.
func DetectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonl", ".ndjson":
		return common.FormatJSON
	case ".db", ".bolt":
		return common.FormatBoltDB
	default:
		return common.FormatCSV
	}
}

// LoadFromBoltDB loads the trades of symbol stored between start and end.
func (dl *DataLoader) LoadFromBoltDB(store *storage.Store, symbol string, start, end time.Time) error {
	log.Info().
		Time("start", start).
		Time("end", end).
		Str("symbol", symbol).
		Msg("Loading trades from BoltDB")

	trades, err := store.GetTrades(symbol, start, end)
	if err != nil {
		return fmt.Errorf("failed to load trades for %s: %w", symbol, err)
	}

	for _, t := range trades {
		dl.add(t)
	}
	dl.finish()

	log.Info().
		Int("total_trades", len(dl.trades)).
		Time("data_start", dl.StartTime).
		Time("data_end", dl.EndTime).
		Msg("Trades loaded successfully")

	return nil
}

// LoadFromCSV loads trades from a CSV file with a header containing
// timestamp and price columns and an optional volume column. Rows that
// fail to parse are skipped and counted.
func (dl *DataLoader) LoadFromCSV(filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	if err := dl.readCSV(file); err != nil {
		return fmt.Errorf("%s: %w", filePath, err)
	}
	dl.finish()

	log.Info().
		Str("file", filePath).
		Int("total_trades", len(dl.trades)).
		Int("invalid_rows", dl.invalid).
		Msg("CSV data loaded successfully")

	return nil
}

func (dl *DataLoader) readCSV(r io.Reader) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}

	indices := make(map[string]int)
	for i, col := range header {
		indices[strings.ToLower(strings.TrimSpace(col))] = i
	}
	tsIdx, ok := indices["timestamp"]
	if !ok {
		return fmt.Errorf("CSV header is missing a timestamp column")
	}
	priceIdx, ok := indices["price"]
	if !ok {
		return fmt.Errorf("CSV header is missing a price column")
	}
	volIdx, hasVolume := indices["volume"]

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			dl.reject()
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read CSV: %w", err)
		}

		if tsIdx >= len(record) || priceIdx >= len(record) {
			dl.reject()
			continue
		}

		timestamp, err := ParseTimestamp(record[tsIdx])
		if err != nil {
			dl.reject()
			continue
		}

		price, err := strconv.ParseFloat(strings.TrimSpace(record[priceIdx]), 64)
		if err != nil {
			dl.reject()
			continue
		}

		volume := 0.0
		if hasVolume && volIdx < len(record) {
			volume, err = strconv.ParseFloat(strings.TrimSpace(record[volIdx]), 64)
			if err != nil {
				dl.reject()
				continue
			}
		}

		dl.add(features.Trade{Timestamp: timestamp, Price: price, Volume: volume})
	}
	return nil
}

// LoadFromJSON loads trades from a JSON lines file, one features.Trade per
// line. Lines that fail to decode are skipped and counted.
func (dl *DataLoader) LoadFromJSON(filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open JSON file: %w", err)
	}
	defer file.Close()

	if err := dl.readJSON(file); err != nil {
		return fmt.Errorf("%s: %w", filePath, err)
	}
	dl.finish()

	log.Info().
		Str("file", filePath).
		Int("total_trades", len(dl.trades)).
		Int("invalid_rows", dl.invalid).
		Msg("JSON data loaded successfully")

	return nil
}

func (dl *DataLoader) readJSON(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var trade features.Trade
		if err := json.Unmarshal([]byte(line), &trade); err != nil {
			dl.reject()
			continue
		}
		if trade.Timestamp.IsZero() {
			dl.reject()
			continue
		}
		dl.add(trade)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read JSON lines: %w", err)
	}
	return nil
}

// ParseTimestamp accepts RFC3339, "2006-01-02 15:04:05" with optional
// fractional seconds, or integer unix milliseconds. Results are in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func (dl *DataLoader) add(t features.Trade) {
	if !validTrade(t) {
		dl.reject()
		return
	}
	dl.trades = append(dl.trades, t)
	if dl.metrics != nil {
		dl.metrics.TradesLoaded.Inc()
	}
}

func (dl *DataLoader) reject() {
	dl.invalid++
	if dl.metrics != nil {
		dl.metrics.InvalidRows.Inc()
	}
}

func validTrade(t features.Trade) bool {
	if math.IsNaN(t.Price) || math.IsInf(t.Price, 0) || t.Price <= 0 {
		return false
	}
	if math.IsNaN(t.Volume) || math.IsInf(t.Volume, 0) || t.Volume < 0 {
		return false
	}
	return true
}

// finish orders trades by timestamp. Equal timestamps keep input order.
func (dl *DataLoader) finish() {
	sort.SliceStable(dl.trades, func(i, j int) bool {
		return dl.trades[i].Timestamp.Before(dl.trades[j].Timestamp)
	})

	if len(dl.trades) > 0 {
		dl.StartTime = dl.trades[0].Timestamp
		dl.EndTime = dl.trades[len(dl.trades)-1].Timestamp
	}
}

// Trades returns the loaded trades, or ErrNoTrades when there are none.
func (dl *DataLoader) Trades() ([]features.Trade, error) {
	if len(dl.trades) == 0 {
		return nil, ErrNoTrades
	}
	return dl.trades, nil
}

// GetDataCount returns the number of valid trades loaded.
func (dl *DataLoader) GetDataCount() int {
	return len(dl.trades)
}

// InvalidRows returns the number of rows skipped so far.
func (dl *DataLoader) InvalidRows() int {
	return dl.invalid
}
