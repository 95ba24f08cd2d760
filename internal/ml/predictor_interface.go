// Package ml implements the transit-candidate classifier: per-class Gaussian
// statistics fitted from labeled KOI rows, the distance-kernel classifier that
// scores new candidates against them, and the rule-based heuristic used when
// no model has been trained.
//
// The package also owns the model lifecycle: the atomic single-slot
// ModelStore, the Trainer that replaces its content, the Predictor that reads
// it, and the bounded training History.
package ml

// MetricsInterface defines metrics methods needed by the predictor and trainer
type MetricsInterface interface {
	PredictionsInc(modelUsed string)
	PredictionLatencyObserve(float64)
	PredictionConfidenceObserve(float64)
	FallbackUseInc()
	TrainingsInc()
	TrainingFailuresInc(kind string)
	TrainingDurationObserve(float64)
	TrainingRowsSet(float64)
	ModelAccuracySet(float64)
	ModelLoadedSet(bool)
	RowsSkippedAdd(float64)
}
