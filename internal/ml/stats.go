package ml

import (
	"math"

	"koi-classifier/internal/features"
)

const (
	// MinStd replaces a fitted standard deviation of exactly zero.
	MinStd = 1e-4
	// EmptyStd is the standard deviation of a feature with no values.
	EmptyStd = 1.0
)

// Gaussian is the fitted distribution of one feature within one class.
type Gaussian struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// ClassStatistics holds the per-feature Gaussians of one disposition class.
type ClassStatistics struct {
	Features [features.Count]Gaussian
	Count    int
}

// Get returns the Gaussian of f.
func (s *ClassStatistics) Get(f features.Feature) Gaussian { return s.Features[f] }

// Map returns the statistics keyed by column name.
func (s *ClassStatistics) Map() map[string]Gaussian {
	m := make(map[string]Gaussian, features.Count)
	for i, g := range s.Features {
		m[features.Feature(i).String()] = g
	}
	return m
}

// Fit computes the population mean and standard deviation of each feature in
// feats over rows. A value is used only when the row's mask marks it present.
// Features outside feats keep the no-data defaults.
func Fit(rows []LabeledRow, feats []features.Feature) ClassStatistics {
	stats := ClassStatistics{Count: len(rows)}
	for i := range stats.Features {
		stats.Features[i] = Gaussian{Mean: 0, Std: EmptyStd}
	}

	for _, f := range feats {
		var n int
		var sum float64
		for _, r := range rows {
			if r.Present.Has(f) {
				sum += r.Vector[f]
				n++
			}
		}
		if n == 0 {
			continue
		}
		mean := sum / float64(n)

		var sq float64
		for _, r := range rows {
			if r.Present.Has(f) {
				d := r.Vector[f] - mean
				sq += d * d
			}
		}
		std := math.Sqrt(sq / float64(n))
		if std == 0 {
			std = MinStd
		}

		stats.Features[f] = Gaussian{Mean: mean, Std: std}
	}

	return stats
}
