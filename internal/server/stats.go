package server

import (
	"time"

	"koi-classifier/internal/ml"
)

type classStats struct {
	Count    int                    `json:"count"`
	Features map[string]ml.Gaussian `json:"features"`
}

// modelStats is the public view of a trained model.
type modelStats struct {
	ModelID       string            `json:"model_id"`
	TrainedAt     time.Time         `json:"trained_at"`
	Samples       int               `json:"samples"`
	Confirmed     classStats        `json:"confirmed"`
	FalsePositive classStats        `json:"false_positive"`
	Metrics       ml.Evaluation     `json:"metrics"`
	Importance    []ml.FeatureScore `json:"feature_importance"`
}

func newModelStats(m *ml.TrainedModel) *modelStats {
	if m == nil {
		return nil
	}
	return &modelStats{
		ModelID:       m.ID,
		TrainedAt:     m.TrainedAt,
		Samples:       m.Samples(),
		Confirmed:     classStats{Count: m.Confirmed.Count, Features: m.Confirmed.Map()},
		FalsePositive: classStats{Count: m.FalsePositive.Count, Features: m.FalsePositive.Map()},
		Metrics:       m.Evaluation,
		Importance:    m.Importance,
	}
}
