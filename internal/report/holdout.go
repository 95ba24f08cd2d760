// Package report scores a trained model against a labeled holdout table and
// writes the results to disk.
package report

import (
	"time"

	"koi-classifier/internal/ml"
)

// Outcome is the classification of one holdout row.
type Outcome struct {
	Line                 int     `json:"line"`
	Actual               string  `json:"actual"`
	Predicted            string  `json:"predicted"`
	ConfirmedProbability float64 `json:"confirmed_probability"`
	Confidence           float64 `json:"confidence"`
	Correct              bool    `json:"correct"`
}

// Results holds a holdout evaluation. Training is the resubstitution score of
// the model on its own training rows.
type Results struct {
	ModelID      string            `json:"model_id"`
	TrainedAt    time.Time         `json:"trained_at"`
	TrainSamples int               `json:"train_samples"`
	TestSamples  int               `json:"test_samples"`
	TestSkipped  int               `json:"test_skipped"`
	Training     ml.Evaluation     `json:"training"`
	Holdout      ml.Evaluation     `json:"holdout"`
	Importance   []ml.FeatureScore `json:"feature_importance"`
	Outcomes     []Outcome         `json:"outcomes"`
}

// Holdout classifies every row of test with m.
func Holdout(m *ml.TrainedModel, test *ml.TrainingSet) *Results {
	res := &Results{
		ModelID:      m.ID,
		TrainedAt:    m.TrainedAt,
		TrainSamples: m.Samples(),
		TestSamples:  len(test.Rows),
		TestSkipped:  test.Skipped,
		Training:     m.Evaluation,
		Importance:   m.Importance,
		Outcomes:     make([]Outcome, 0, len(test.Rows)),
	}

	scored, eval := ml.ScoreRows(m, test.Rows)
	res.Holdout = eval

	for i, row := range test.Rows {
		c := scored[i]
		predicted := ml.FalsePositive
		if c.IsConfirmed {
			predicted = ml.Confirmed
		}
		res.Outcomes = append(res.Outcomes, Outcome{
			Line:                 row.Line,
			Actual:               row.Disposition.String(),
			Predicted:            predicted.String(),
			ConfirmedProbability: c.ConfirmedProbability,
			Confidence:           c.Confidence,
			Correct:              predicted == row.Disposition,
		})
	}
	return res
}

// Misclassified returns the outcomes the model got wrong.
func (r *Results) Misclassified() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if !o.Correct {
			out = append(out, o)
		}
	}
	return out
}
