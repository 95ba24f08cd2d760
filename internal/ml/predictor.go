package ml

import (
	"time"

	"github.com/rs/zerolog/log"

	"koi-classifier/internal/common"
	"koi-classifier/internal/features"
	"koi-classifier/internal/ingest"
)

// Columns copied from a prediction CSV row into its result, in lookup order.
var nameColumns = []string{"kepoi_name", "name"}

// Probabilities splits the prediction mass between the two labels.
type Probabilities struct {
	Exoplanet    float64 `json:"exoplanet"`
	NotExoplanet float64 `json:"not_exoplanet"`
}

// Prediction is the public result of classifying one candidate.
type Prediction struct {
	Prediction    string        `json:"prediction"`
	Confidence    float64       `json:"confidence"`
	Probabilities Probabilities `json:"probabilities"`
	ModelUsed     string        `json:"model_used"`
}

// IsExoplanet reports whether the candidate was classified as a planet.
func (p Prediction) IsExoplanet() bool {
	return p.Prediction == common.PredictionExoplanet
}

// BatchItem is one row of a batch prediction.
type BatchItem struct {
	Row  int    `json:"row"`
	Name string `json:"name,omitempty"`
	Prediction
}

// Summary aggregates a batch.
type Summary struct {
	Total         int     `json:"total"`
	Exoplanet     int     `json:"exoplanet"`
	NotExoplanet  int     `json:"not_exoplanet"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// BatchResult is the outcome of a batch prediction. Every item was scored
// against the same model snapshot.
type BatchResult struct {
	Predictions []BatchItem `json:"predictions"`
	Summary     Summary     `json:"summary"`
	Skipped     int         `json:"skipped"`
	ModelUsed   string      `json:"model_used"`
	ModelID     string      `json:"model_id,omitempty"`
}

// Predictor classifies candidates with the store's current model, falling
// back to the heuristic when the store is empty.
type Predictor struct {
	store   *ModelStore
	metrics MetricsInterface
}

// NewPredictor creates a predictor reading from store. metrics may be nil.
func NewPredictor(store *ModelStore, metrics MetricsInterface) *Predictor {
	return &Predictor{store: store, metrics: metrics}
}

// Predict classifies a single feature vector.
func (p *Predictor) Predict(v features.Vector) Prediction {
	start := time.Now()
	pred := p.classify(v, p.store.Get())
	if p.metrics != nil {
		p.metrics.PredictionLatencyObserve(time.Since(start).Seconds())
	}
	return pred
}

// PredictMap classifies a decoded JSON object keyed by feature name.
func (p *Predictor) PredictMap(m map[string]any) Prediction {
	return p.Predict(features.FromMap(m))
}

// PredictRecords classifies decoded JSON objects. Rows are numbered from 1 and
// carry their kepoi_name or name field when it is a string.
func (p *Predictor) PredictRecords(records []map[string]any) *BatchResult {
	start := time.Now()
	model := p.store.Get()

	result := newBatchResult(model, len(records))
	for i, rec := range records {
		item := BatchItem{
			Row:        i + 1,
			Name:       recordName(rec),
			Prediction: p.classify(features.FromMap(rec), model),
		}
		result.add(item)
	}
	result.finish()

	p.observeBatch(start, result)
	return result
}

// PredictCSV parses text with header names kept as authored and classifies
// every surviving row. Lines dropped by the parser are counted in Skipped.
func (p *Predictor) PredictCSV(text string, slack int) (*BatchResult, error) {
	table, err := ingest.Parse(text, ingest.Options{Slack: slack})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	model := p.store.Get()

	result := newBatchResult(model, len(table.Rows))
	result.Skipped = len(table.Skipped)
	for _, row := range table.Rows {
		item := BatchItem{
			Row:        row.Line,
			Name:       rowName(row),
			Prediction: p.classify(rowVector(row), model),
		}
		result.add(item)
	}
	result.finish()

	p.observeBatch(start, result)
	return result, nil
}

func (p *Predictor) classify(v features.Vector, model *TrainedModel) Prediction {
	var (
		res  ClassificationResult
		used string
	)
	if model != nil {
		res = Classify(v, model)
		used = common.ModelUsedTrained
	} else {
		res = ClassifyHeuristic(v)
		used = common.ModelUsedHeuristic
		if p.metrics != nil {
			p.metrics.FallbackUseInc()
		}
	}

	if p.metrics != nil {
		p.metrics.PredictionsInc(used)
		p.metrics.PredictionConfidenceObserve(res.Confidence)
	}

	return toPrediction(res, used)
}

func (p *Predictor) observeBatch(start time.Time, result *BatchResult) {
	if p.metrics != nil {
		p.metrics.PredictionLatencyObserve(time.Since(start).Seconds())
		if result.Skipped > 0 {
			p.metrics.RowsSkippedAdd(float64(result.Skipped))
		}
	}

	log.Debug().
		Int("total", result.Summary.Total).
		Int("exoplanet", result.Summary.Exoplanet).
		Int("skipped", result.Skipped).
		Str("model_used", result.ModelUsed).
		Dur("duration", time.Since(start)).
		Msg("Batch prediction complete")
}

func toPrediction(res ClassificationResult, modelUsed string) Prediction {
	pred := Prediction{
		Confidence: res.Confidence,
		ModelUsed:  modelUsed,
	}
	if res.IsConfirmed {
		pred.Prediction = common.PredictionExoplanet
		pred.Probabilities = Probabilities{Exoplanet: res.Confidence, NotExoplanet: 1 - res.Confidence}
	} else {
		pred.Prediction = common.PredictionNotExoplanet
		pred.Probabilities = Probabilities{Exoplanet: 1 - res.Confidence, NotExoplanet: res.Confidence}
	}
	return pred
}

func newBatchResult(model *TrainedModel, capacity int) *BatchResult {
	result := &BatchResult{
		Predictions: make([]BatchItem, 0, capacity),
		ModelUsed:   common.ModelUsedHeuristic,
	}
	if model != nil {
		result.ModelUsed = common.ModelUsedTrained
		result.ModelID = model.ID
	}
	return result
}

func (r *BatchResult) add(item BatchItem) {
	r.Predictions = append(r.Predictions, item)
	r.Summary.Total++
	if item.IsExoplanet() {
		r.Summary.Exoplanet++
	} else {
		r.Summary.NotExoplanet++
	}
	r.Summary.AvgConfidence += item.Confidence
}

func (r *BatchResult) finish() {
	if r.Summary.Total > 0 {
		r.Summary.AvgConfidence /= float64(r.Summary.Total)
	} else {
		r.Summary.AvgConfidence = 0
	}
}

// rowVector reads the features of a CSV row. Absent, null and text cells are 0.
func rowVector(row ingest.Row) features.Vector {
	var v features.Vector
	for _, f := range features.All() {
		if cell, ok := row.Get(f.String()); ok {
			if x, ok := cell.Float(); ok {
				v[f] = x
			}
		}
	}
	return v
}

func rowName(row ingest.Row) string {
	for _, c := range nameColumns {
		if cell, ok := row.Get(c); ok && cell.Kind != ingest.Null {
			return cell.String()
		}
	}
	return ""
}

func recordName(rec map[string]any) string {
	for _, c := range nameColumns {
		if s, ok := rec[c].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
