package ml

import (
	"math"

	"koi-classifier/internal/features"
)

// ClassificationResult is the binary outcome of scoring one candidate.
type ClassificationResult struct {
	IsConfirmed bool
	// Confidence is the probability of the chosen class, in [0.5, 1].
	Confidence float64
	// ConfirmedProbability is the probability assigned to CONFIRMED.
	ConfirmedProbability float64
}

// Classify scores v against both classes of m.
//
// Each feature contributes the unnormalized Gaussian kernel exp(-z²/2) to its
// class score, and contributions are summed across features rather than
// multiplied. Priors are equal and cancel in the ratio.
func Classify(v features.Vector, m *TrainedModel) ClassificationResult {
	confirmedScore, fpScore := classScores(v, m)
	return resultFromScores(confirmedScore, fpScore)
}

// classScores sums the per-feature kernels of v against each class.
func classScores(v features.Vector, m *TrainedModel) (confirmedScore, fpScore float64) {
	for _, f := range m.Features {
		confirmedScore += kernel(v[f], m.Confirmed.Features[f])
		fpScore += kernel(v[f], m.FalsePositive.Features[f])
	}
	return confirmedScore, fpScore
}

func resultFromScores(confirmedScore, fpScore float64) ClassificationResult {
	p := 0.5
	if total := confirmedScore + fpScore; total > 0 {
		p = confirmedScore / total
	}
	return resultFromProbability(p)
}

func kernel(x float64, g Gaussian) float64 {
	z := math.Abs(x-g.Mean) / g.Std
	return math.Exp(-z * z / 2)
}

func resultFromProbability(p float64) ClassificationResult {
	return ClassificationResult{
		IsConfirmed:          p > 0.5,
		Confidence:           math.Max(p, 1-p),
		ConfirmedProbability: p,
	}
}
