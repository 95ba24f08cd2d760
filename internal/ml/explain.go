package ml

import (
	"math"
	"sort"

	"koi-classifier/internal/common"
	"koi-classifier/internal/features"
)

// FeatureContribution is one feature's share of the two class scores.
// Delta is positive when the feature pulls toward CONFIRMED.
type FeatureContribution struct {
	Feature       string  `json:"feature"`
	Value         float64 `json:"value"`
	Confirmed     float64 `json:"confirmed"`
	FalsePositive float64 `json:"false_positive"`
	Delta         float64 `json:"delta"`
}

// Explanation breaks a classification down by feature. Because class scores
// are sums of per-feature kernels, the contributions add up exactly to
// ConfirmedScore and FalsePositiveScore.
type Explanation struct {
	Result             ClassificationResult
	ConfirmedScore     float64
	FalsePositiveScore float64
	Contributions      []FeatureContribution
}

// Explain scores v against m and returns the per-feature contributions,
// largest |Delta| first.
func Explain(v features.Vector, m *TrainedModel) Explanation {
	e := Explanation{Contributions: make([]FeatureContribution, 0, len(m.Features))}

	for _, f := range m.Features {
		c := kernel(v[f], m.Confirmed.Features[f])
		fp := kernel(v[f], m.FalsePositive.Features[f])
		e.ConfirmedScore += c
		e.FalsePositiveScore += fp
		e.Contributions = append(e.Contributions, FeatureContribution{
			Feature:       f.String(),
			Value:         v[f],
			Confirmed:     c,
			FalsePositive: fp,
			Delta:         c - fp,
		})
	}
	e.Result = resultFromScores(e.ConfirmedScore, e.FalsePositiveScore)

	sort.SliceStable(e.Contributions, func(i, j int) bool {
		return math.Abs(e.Contributions[i].Delta) > math.Abs(e.Contributions[j].Delta)
	})
	return e
}

// Prediction is the explained result in the same form the predictor serves.
func (e Explanation) Prediction() Prediction {
	return toPrediction(e.Result, common.ModelUsedTrained)
}
