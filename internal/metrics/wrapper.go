package metrics

// MetricsWrapper adapts Metrics to the method set the classifier core
// reports through, so the core does not depend on Prometheus types.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) PredictionsInc(modelUsed string) {
	w.m.Predictions.WithLabelValues(modelUsed).Inc()
}

func (w *MetricsWrapper) PredictionLatencyObserve(v float64) {
	w.m.PredictionLatency.Observe(v)
}

func (w *MetricsWrapper) PredictionConfidenceObserve(v float64) {
	w.m.PredictionConfidence.Observe(v)
}

func (w *MetricsWrapper) FallbackUseInc() {
	w.m.FallbackUse.Inc()
}

func (w *MetricsWrapper) TrainingsInc() {
	w.m.Trainings.Inc()
}

func (w *MetricsWrapper) TrainingFailuresInc(kind string) {
	w.m.TrainingFailures.WithLabelValues(kind).Inc()
}

func (w *MetricsWrapper) TrainingDurationObserve(v float64) {
	w.m.TrainingDuration.Observe(v)
}

func (w *MetricsWrapper) TrainingRowsSet(v float64) {
	w.m.TrainingRows.Set(v)
}

func (w *MetricsWrapper) ModelAccuracySet(v float64) {
	w.m.ModelAccuracy.Set(v)
}

func (w *MetricsWrapper) ModelLoadedSet(loaded bool) {
	w.m.SetModelLoaded(loaded)
}

func (w *MetricsWrapper) RowsSkippedAdd(v float64) {
	w.m.RowsSkipped.Add(v)
}
