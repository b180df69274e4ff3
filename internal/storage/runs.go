package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"infobars/internal/ohlcv"

	"go.etcd.io/bbolt"
)

// RunRecord describes one persisted bar set.
type RunRecord struct {
	RunID     string    `json:"run_id"`
	Symbol    string    `json:"symbol"`
	BarType   string    `json:"bar_type"`
	CreatedAt time.Time `json:"created_at"`
	Bars      int       `json:"bars"`
	Partial   bool      `json:"partial"`
}

func runKey(runID, barType string) []byte {
	return []byte(runID + "_" + barType)
}

func barKey(runID, barType string, id int) []byte {
	return []byte(fmt.Sprintf("%s_%s_%08d", runID, barType, id))
}

// StoreRun writes the run metadata and its bars in one transaction,
// replacing any bars previously stored under the same run and bar type.
func (s *Store) StoreRun(run RunRecord, bars []ohlcv.Bar) error {
	run.Bars = len(bars)
	if len(bars) > 0 {
		run.Partial = bars[len(bars)-1].Partial
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		rb := tx.Bucket([]byte(runsBucket))
		bb := tx.Bucket([]byte(barsBucket))

		prefix := []byte(run.RunID + "_" + run.BarType + "_")
		var stale [][]byte
		c := bb.Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			stale = append(stale, append([]byte(nil), k...))
		}
		for _, k := range stale {
			if err := bb.Delete(k); err != nil {
				return fmt.Errorf("delete stale bar: %w", err)
			}
		}

		for _, bar := range bars {
			data, err := json.Marshal(bar)
			if err != nil {
				return fmt.Errorf("marshal bar: %w", err)
			}
			if err := bb.Put(barKey(run.RunID, run.BarType, bar.ID), data); err != nil {
				return fmt.Errorf("put bar: %w", err)
			}
		}

		data, err := json.Marshal(run)
		if err != nil {
			return fmt.Errorf("marshal run: %w", err)
		}
		return rb.Put(runKey(run.RunID, run.BarType), data)
	})
}

// GetBars returns the bars of a run in id order. A run that was never
// stored yields no bars and no error.
func (s *Store) GetBars(runID, barType string) ([]ohlcv.Bar, error) {
	var bars []ohlcv.Bar

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(barsBucket)).Cursor()
		prefix := []byte(runID + "_" + barType + "_")

		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var bar ohlcv.Bar
			if err := json.Unmarshal(v, &bar); err != nil {
				return fmt.Errorf("unmarshal bar %s: %w", k, err)
			}
			bars = append(bars, bar)
		}
		return nil
	})

	return bars, err
}

// GetRun returns the metadata of a stored run.
func (s *Store) GetRun(runID, barType string) (RunRecord, bool, error) {
	var (
		run   RunRecord
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(runsBucket)).Get(runKey(runID, barType))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &run)
	})
	return run, found, err
}

// ListRuns returns all stored runs, newest first.
func (s *Store) ListRuns() ([]RunRecord, error) {
	var runs []RunRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(runsBucket)).ForEach(func(_, v []byte) error {
			var run RunRecord
			if err := json.Unmarshal(v, &run); err != nil {
				return nil // skip malformed records
			}
			runs = append(runs, run)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs, nil
}
