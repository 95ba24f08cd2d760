package ml

import (
	"math"
	"sort"
)

// FeatureScore is the normalized importance of one feature.
type FeatureScore struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// FeatureImportance ranks the features of m by how far apart the two class
// means are, in units of the pooled standard deviation d. Each raw score is
// 1 - exp(-d²/8), the Bhattacharyya overlap deficit of two equal-variance
// Gaussians, so it lies in [0, 1) and a perfectly split flag cannot swamp
// the others. Scores are normalized to sum to 1 unless every feature has zero
// separation, in which case all are 0.
func FeatureImportance(m *TrainedModel) []FeatureScore {
	scores := make([]FeatureScore, 0, len(m.Features))
	var total float64
	for _, f := range m.Features {
		c := m.Confirmed.Features[f]
		fp := m.FalsePositive.Features[f]
		pooled := math.Sqrt((c.Std*c.Std + fp.Std*fp.Std) / 2)

		sep := 0.0
		if pooled > 0 {
			d := math.Abs(c.Mean-fp.Mean) / pooled
			sep = -math.Expm1(-d * d / 8)
		}
		total += sep
		scores = append(scores, FeatureScore{Feature: f.String(), Importance: sep})
	}

	if total > 0 {
		for i := range scores {
			scores[i].Importance /= total
		}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Importance > scores[j].Importance
	})

	return scores
}

// TopFeatures returns the names of the n most important features.
func TopFeatures(scores []FeatureScore, n int) []string {
	if n > len(scores) {
		n = len(scores)
	}
	if n < 0 {
		n = 0
	}
	out := make([]string, 0, n)
	for _, s := range scores[:n] {
		out = append(out, s.Feature)
	}
	return out
}
