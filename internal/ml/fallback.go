package ml

import (
	"math"

	"koi-classifier/internal/features"
)

// HeuristicThreshold is the score above which the fallback calls a candidate
// confirmed.
const HeuristicThreshold = 0.6

type band struct {
	lo, hi float64
}

func (b band) contains(x float64) bool { return x >= b.lo && x <= b.hi }

// rule adjusts the score by in when the value lies in the band, otherwise by
// out when the value is positive.
type rule struct {
	feature features.Feature
	band    band
	in      float64
	out     float64
}

var plausibilityRules = []rule{
	{features.Period, band{0.5, 5000}, 0.12, -0.10},
	{features.Duration, band{0.5, 12}, 0.08, -0.05},
	{features.Impact, band{0, 0.9}, 0.06, 0},
	{features.Depth, band{100, 50000}, 0.10, -0.08},
	{features.PlanetRadius, band{0.5, 20}, 0.12, -0.10},
	{features.Insolation, band{0.1, 5000}, 0.05, 0},
}

var stellarRules = []rule{
	{features.StellarRadius, band{0.5, 2}, 0.06, 0},
	{features.StellarTeff, band{4000, 7000}, 0.06, 0},
	{features.StellarLogG, band{3.5, 5}, 0.04, 0},
}

var flagPenalties = []struct {
	feature features.Feature
	penalty float64
}{
	{features.FlagNotTransit, -0.20},
	{features.FlagStellarEclipse, -0.15},
	{features.FlagCentroidOffset, -0.15},
	{features.FlagEphemerisMatch, -0.10},
}

// HeuristicScore applies the fixed plausibility rules to v and returns the
// score clamped to [0, 1].
func HeuristicScore(v features.Vector) float64 {
	score := 0.5

	for _, r := range plausibilityRules {
		score += r.apply(v[r.feature])
	}

	switch snr := v[features.ModelSNR]; {
	case snr >= 15:
		score += 0.15
	case snr >= 10:
		score += 0.08
	case snr > 0:
		score -= 0.05
	}

	for _, r := range stellarRules {
		score += r.apply(v[r.feature])
	}

	for _, p := range flagPenalties {
		if v[p.feature] > 0 {
			score += p.penalty
		}
	}

	return math.Max(0, math.Min(1, score))
}

func (r rule) apply(x float64) float64 {
	if r.band.contains(x) {
		return r.in
	}
	if x > 0 {
		return r.out
	}
	return 0
}

// ClassifyHeuristic is the rule-based fallback used when no model is loaded.
func ClassifyHeuristic(v features.Vector) ClassificationResult {
	score := HeuristicScore(v)
	confirmed := score > HeuristicThreshold

	var confidence float64
	if confirmed {
		confidence = math.Min(0.65+0.3*score, 0.98)
	} else {
		confidence = math.Min(0.65+0.3*(1-score), 0.95)
	}

	p := confidence
	if !confirmed {
		p = 1 - confidence
	}

	return ClassificationResult{
		IsConfirmed:          confirmed,
		Confidence:           confidence,
		ConfirmedProbability: p,
	}
}
