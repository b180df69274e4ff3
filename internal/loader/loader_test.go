package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"infobars/internal/common"
	"infobars/internal/features"
	"infobars/internal/metrics"
	"infobars/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromCSV(t *testing.T) {
	path := writeFile(t, "trades.csv", strings.Join([]string{
		"timestamp,price,volume",
		"2024-01-02 10:00:01,101.5,2",
		"2024-01-02T10:00:00Z,100,1",
		"1704189602000,102,0.5",
		"not-a-time,100,1",
		"2024-01-02 10:00:03,abc,1",
		"2024-01-02 10:00:04,-5,1",
		"2024-01-02 10:00:05,100",
		"",
	}, "\n"))

	dl := NewDataLoader(nil)
	require.NoError(t, dl.LoadFromCSV(path))

	trades, err := dl.Trades()
	require.NoError(t, err)
	require.Len(t, trades, 4)

	assert.Equal(t, time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC), trades[0].Timestamp)
	assert.Equal(t, 100.0, trades[0].Price)
	assert.Equal(t, 101.5, trades[1].Price)
	assert.Equal(t, 102.0, trades[2].Price)
	// short row carries no volume column
	assert.Equal(t, 0.0, trades[3].Volume)

	assert.Equal(t, 3, dl.InvalidRows())
	assert.Equal(t, trades[0].Timestamp, dl.StartTime)
	assert.Equal(t, trades[3].Timestamp, dl.EndTime)
}

func TestLoadFromCSV_HeaderCaseAndOrder(t *testing.T) {
	path := writeFile(t, "trades.csv", "Volume, Price, Timestamp\n3,10,2024-01-02 10:00:00\n")

	dl := NewDataLoader(nil)
	require.NoError(t, dl.LoadFromCSV(path))

	trades, err := dl.Trades()
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, 10.0, trades[0].Price)
	assert.Equal(t, 3.0, trades[0].Volume)
}

func TestLoadFromCSV_MissingColumns(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{"no timestamp", "time,price,volume\n1,2,3\n"},
		{"no price", "timestamp,volume\n2024-01-02 10:00:00,1\n"},
		{"empty file", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dl := NewDataLoader(nil)
			assert.Error(t, dl.LoadFromCSV(writeFile(t, "trades.csv", tc.content)))
		})
	}
}

func TestLoadFromCSV_MissingFile(t *testing.T) {
	dl := NewDataLoader(nil)
	assert.Error(t, dl.LoadFromCSV(filepath.Join(t.TempDir(), "missing.csv")))
}

func TestLoadFromCSV_StableOrderForEqualTimestamps(t *testing.T) {
	path := writeFile(t, "trades.csv", strings.Join([]string{
		"timestamp,price,volume",
		"2024-01-02 10:00:01,3,1",
		"2024-01-02 10:00:00,1,1",
		"2024-01-02 10:00:00,2,1",
	}, "\n"))

	dl := NewDataLoader(nil)
	require.NoError(t, dl.LoadFromCSV(path))

	trades, err := dl.Trades()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, []float64{trades[0].Price, trades[1].Price, trades[2].Price})
}

func TestLoadFromJSON(t *testing.T) {
	path := writeFile(t, "trades.jsonl", strings.Join([]string{
		`{"timestamp":"2024-01-02T10:00:01Z","price":101,"volume":1}`,
		`{"timestamp":"2024-01-02T10:00:00Z","price":100,"volume":2}`,
		`{not json}`,
		`{"price":100,"volume":2}`,
		``,
		`{"timestamp":"2024-01-02T10:00:02Z","price":99,"volume":0.25}`,
	}, "\n"))

	dl := NewDataLoader(nil)
	require.NoError(t, dl.LoadFromJSON(path))

	trades, err := dl.Trades()
	require.NoError(t, err)
	require.Len(t, trades, 3)
	assert.Equal(t, 100.0, trades[0].Price)
	assert.Equal(t, 0.25, trades[2].Volume)
	assert.Equal(t, 2, dl.InvalidRows())
}

func TestLoadFromBoltDB(t *testing.T) {
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	base := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	var trades []features.Trade
	for i := 0; i < 10; i++ {
		trades = append(trades, features.Trade{Timestamp: base.Add(time.Duration(i) * time.Minute), Price: 100 + float64(i), Volume: 1})
	}
	require.NoError(t, store.StoreTrades("BTCUSDT", trades))

	dl := NewDataLoader(nil)
	require.NoError(t, dl.LoadFromBoltDB(store, "BTCUSDT", base.Add(2*time.Minute), base.Add(5*time.Minute)))

	got, err := dl.Trades()
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, 102.0, got[0].Price)
	assert.Equal(t, 105.0, got[3].Price)
}

func TestLoad_DetectsFormat(t *testing.T) {
	csvPath := writeFile(t, "trades.csv", "timestamp,price,volume\n2024-01-02 10:00:00,1,1\n")
	jsonPath := writeFile(t, "trades.jsonl", `{"timestamp":"2024-01-02T10:00:00Z","price":1,"volume":1}`+"\n")

	for _, path := range []string{csvPath, jsonPath} {
		dl := NewDataLoader(nil)
		require.NoError(t, dl.Load(path, common.FormatAuto))
		assert.Equal(t, 1, dl.GetDataCount(), path)
	}

	dl := NewDataLoader(nil)
	assert.Error(t, dl.Load(csvPath, common.FormatBoltDB))
}

func TestDetectFormat(t *testing.T) {
	testCases := map[string]string{
		"a.csv":    common.FormatCSV,
		"a.txt":    common.FormatCSV,
		"a.JSON":   common.FormatJSON,
		"a.jsonl":  common.FormatJSON,
		"a.ndjson": common.FormatJSON,
		"a.db":     common.FormatBoltDB,
	}
	for path, want := range testCases {
		assert.Equal(t, want, DetectFormat(path), path)
	}
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)

	testCases := []string{
		"2024-01-02T10:00:00Z",
		"2024-01-02T11:00:00+01:00",
		"2024-01-02 10:00:00",
		"2024-01-02T10:00:00",
		"1704189600000",
		" 2024-01-02 10:00:00 ",
	}
	for _, tc := range testCases {
		got, err := ParseTimestamp(tc)
		require.NoError(t, err, tc)
		assert.True(t, want.Equal(got), "%s parsed as %v", tc, got)
	}

	frac, err := ParseTimestamp("2024-01-02 10:00:00.250")
	require.NoError(t, err)
	assert.Equal(t, want.Add(250*time.Millisecond), frac)

	_, err = ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestTrades_Empty(t *testing.T) {
	dl := NewDataLoader(nil)
	_, err := dl.Trades()
	assert.ErrorIs(t, err, ErrNoTrades)
}

func TestLoader_Metrics(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	path := writeFile(t, "trades.csv", "timestamp,price,volume\n2024-01-02 10:00:00,1,1\nbad,1,1\n2024-01-02 10:00:01,1,1\n")

	dl := NewDataLoader(m)
	require.NoError(t, dl.LoadFromCSV(path))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TradesLoaded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InvalidRows))
}
