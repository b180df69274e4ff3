// Package metrics provides Prometheus metrics for bar sampling runs.
// It defines the counters, gauges and histograms that describe scans,
// closed bars and the adaptive threshold, exposed via the Prometheus metrics
// endpoint when a run is long enough to be worth watching.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const barTypeLabel = "bar_type"

// Metrics holds all Prometheus metrics for the sampler. Scan metrics are
// labeled by bar type so concurrent scans report separately.
type Metrics struct {
	// Scan metrics
	BarsClosed          *prometheus.CounterVec   // Bars closed on a threshold crossing
	PartialBars         *prometheus.CounterVec   // Trailing partial bars kept
	DegenerateEstimates *prometheus.CounterVec   // Expected-ticks estimates clamped
	TicksScanned        *prometheus.CounterVec   // Ticks consumed by scans
	BarLength           *prometheus.HistogramVec // Bar length in ticks
	Threshold           *prometheus.GaugeVec     // Threshold in force after the last close
	ScanDuration        *prometheus.HistogramVec // Wall time of one scan
	ScanErrors          *prometheus.CounterVec   // Scans rejected or failed

	// Input metrics
	TradesLoaded prometheus.Counter // Trades loaded from input
	InvalidRows  prometheus.Counter // Input rows skipped as malformed
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		BarsClosed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "infobars_bars_closed_total",
			Help: "Total number of bars closed on a threshold crossing",
		}, []string{barTypeLabel}),
		PartialBars: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "infobars_partial_bars_total",
			Help: "Total number of trailing partial bars kept",
		}, []string{barTypeLabel}),
		DegenerateEstimates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "infobars_degenerate_estimates_total",
			Help: "Total number of expected-ticks estimates clamped to the input length",
		}, []string{barTypeLabel}),
		TicksScanned: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "infobars_ticks_scanned_total",
			Help: "Total number of ticks consumed by scans",
		}, []string{barTypeLabel}),
		BarLength: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "infobars_bar_length_ticks",
			Help:    "Length of closed bars in ticks",
			Buckets: prometheus.ExponentialBuckets(1, 2, 20),
		}, []string{barTypeLabel}),
		Threshold: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "infobars_threshold",
			Help: "Imbalance threshold in force after the most recent bar close",
		}, []string{barTypeLabel}),
		ScanDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "infobars_scan_duration_seconds",
			Help:    "Duration of one threshold scan in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}, []string{barTypeLabel}),
		ScanErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "infobars_scan_errors_total",
			Help: "Total number of scans that were rejected or failed",
		}, []string{barTypeLabel}),
		TradesLoaded: factory.NewCounter(prometheus.CounterOpts{
			Name: "infobars_trades_loaded_total",
			Help: "Total number of trades loaded from input",
		}),
		InvalidRows: factory.NewCounter(prometheus.CounterOpts{
			Name: "infobars_invalid_rows_total",
			Help: "Total number of input rows skipped as malformed",
		}),
	}
}
