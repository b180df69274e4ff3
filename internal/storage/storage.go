// Package storage persists trades and computed bar sets in BoltDB.
//
// Trades are keyed by symbol and zero-padded nanosecond timestamp so that a
// cursor walk returns them in time order. Bar runs are keyed by run id and
// bar type.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"infobars/internal/features"

	"go.etcd.io/bbolt"
)

const (
	tradesBucket = "trades" // trade records, key symbol_ts_seq
	runsBucket   = "runs"   // run metadata, key runID_barType
	barsBucket   = "bars"   // bars, key runID_barType_id

	// DBFileName is the database file created inside the data path.
	DBFileName = "infobars.db"
)

// Store provides persistent storage for trades and bar runs using BoltDB.
type Store struct {
	db *bbolt.DB
}

// New opens (or creates) DBFileName under dataPath and ensures all
// buckets exist.
func New(dataPath string) (*Store, error) {
	return Open(filepath.Join(dataPath, DBFileName))
}

// Open opens (or creates) the database file at dbPath and ensures all
// buckets exist.
func Open(dbPath string) (*Store, error) {
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{tradesBucket, runsBucket, barsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database. Closing twice is not an error.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// tradeRecord is the stored form of a trade.
type tradeRecord struct {
	Symbol string `json:"symbol"`
	features.Trade
}

// tradeKey orders lexicographically by time. seq comes from the bucket
// sequence, so trades with identical timestamps stay distinct and in
// insertion order across batches.
func tradeKey(symbol string, ts time.Time, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s_%019d_%020d", symbol, ts.UnixNano(), seq))
}

// StoreTrade stores a single trade.
func (s *Store) StoreTrade(symbol string, trade features.Trade) error {
	return s.StoreTrades(symbol, []features.Trade{trade})
}

// StoreTrades stores trades in one transaction.
func (s *Store) StoreTrades(symbol string, trades []features.Trade) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(tradesBucket))

		for _, trade := range trades {
			data, err := json.Marshal(tradeRecord{Symbol: symbol, Trade: trade})
			if err != nil {
				return fmt.Errorf("marshal trade: %w", err)
			}

			seq, err := b.NextSequence()
			if err != nil {
				return fmt.Errorf("next trade sequence: %w", err)
			}
			if err := b.Put(tradeKey(symbol, trade.Timestamp, seq), data); err != nil {
				return fmt.Errorf("put trade: %w", err)
			}
		}
		return nil
	})
}

// GetTrades returns the trades of symbol with start <= ts <= end in
// timestamp order. Malformed records are skipped.
func (s *Store) GetTrades(symbol string, start, end time.Time) ([]features.Trade, error) {
	var trades []features.Trade

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(tradesBucket)).Cursor()

		prefix := []byte(symbol + "_")
		startKey := []byte(fmt.Sprintf("%s_%019d", symbol, start.UnixNano()))
		// '`' sorts after every digit, so the bound covers all sequence numbers
		endKey := []byte(fmt.Sprintf("%s_%019d`", symbol, end.UnixNano()))

		for k, v := c.Seek(startKey); k != nil && compareKeys(k, endKey) <= 0; k, v = c.Next() {
			if !hasPrefix(k, prefix) {
				continue
			}

			var rec tradeRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				continue
			}
			trades = append(trades, rec.Trade)
		}
		return nil
	})

	return trades, err
}

// CountTrades returns the number of stored trades for symbol.
func (s *Store) CountTrades(symbol string) (int, error) {
	n := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(tradesBucket)).Cursor()
		// timestamps start with a digit; ':' sorts right after '9', which
		// keeps symbols such as BTC_PERP out of a count for BTC
		startKey := []byte(symbol + "_0")
		endKey := []byte(symbol + "_:")
		for k, _ := c.Seek(startKey); k != nil && compareKeys(k, endKey) < 0; k, _ = c.Next() {
			n++
		}
		return nil
	})
	return n, err
}
func hasPrefix(data, prefix []byte) bool {
	return bytes.HasPrefix(data, prefix)
}

func compareKeys(a, b []byte) int {
	return bytes.Compare(a, b)
}
