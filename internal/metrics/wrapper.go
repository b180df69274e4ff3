package metrics

// Wrapper binds Metrics to one bar type and implements bars.MetricsInterface.
type Wrapper struct {
	m       *Metrics
	barType string
}

func NewWrapper(m *Metrics, barType string) *Wrapper {
	return &Wrapper{m: m, barType: barType}
}

func (w *Wrapper) BarsClosedInc() {
	w.m.BarsClosed.WithLabelValues(w.barType).Inc()
}

func (w *Wrapper) PartialBarsInc() {
	w.m.PartialBars.WithLabelValues(w.barType).Inc()
}

func (w *Wrapper) DegenerateEstimatesInc() {
	w.m.DegenerateEstimates.WithLabelValues(w.barType).Inc()
}

func (w *Wrapper) TicksScannedAdd(n int) {
	w.m.TicksScanned.WithLabelValues(w.barType).Add(float64(n))
}

func (w *Wrapper) BarLengthObserve(ticks float64) {
	w.m.BarLength.WithLabelValues(w.barType).Observe(ticks)
}

func (w *Wrapper) ThresholdSet(threshold float64) {
	w.m.Threshold.WithLabelValues(w.barType).Set(threshold)
}

func (w *Wrapper) ScanDurationObserve(seconds float64) {
	w.m.ScanDuration.WithLabelValues(w.barType).Observe(seconds)
}

func (w *Wrapper) ScanErrorsInc() {
	w.m.ScanErrors.WithLabelValues(w.barType).Inc()
}
