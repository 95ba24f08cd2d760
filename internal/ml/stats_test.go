package ml

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"koi-classifier/internal/features"
)

func TestFit_PopulationStatistics(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	rows := make([]LabeledRow, len(values))
	for i, x := range values {
		rows[i].Vector[features.Period] = x
		rows[i].Present = rows[i].Present.With(features.Period)
	}

	stats := Fit(rows, []features.Feature{features.Period})

	assert.Equal(t, len(values), stats.Count)
	assert.InDelta(t, 5.0, stats.Get(features.Period).Mean, 1e-12)
	assert.InDelta(t, 2.0, stats.Get(features.Period).Std, 1e-12, "population std divides by n")
}

func TestFit_ConstantFeatureUsesFloor(t *testing.T) {
	rows := labeledRows(6, 0)
	stats := Fit(rows, features.All())

	impact := stats.Get(features.Impact)
	assert.Equal(t, 0.25, impact.Mean)
	assert.Equal(t, MinStd, impact.Std)

	flag := stats.Get(features.FlagNotTransit)
	assert.Equal(t, 0.0, flag.Mean)
	assert.Equal(t, MinStd, flag.Std)
}

func TestFit_NoRows(t *testing.T) {
	stats := Fit(nil, features.All())

	assert.Equal(t, 0, stats.Count)
	for _, f := range features.All() {
		g := stats.Get(f)
		assert.Equal(t, 0.0, g.Mean, f.String())
		assert.Equal(t, EmptyStd, g.Std, f.String())
	}
}

func TestFit_ExcludesAbsentValues(t *testing.T) {
	rows := []LabeledRow{
		{Vector: features.Vector{features.Depth: 100}, Present: features.Mask(0).With(features.Depth)},
		{Vector: features.Vector{features.Depth: 300}, Present: features.Mask(0).With(features.Depth)},
		// Depth not present: the zero must not drag the mean down.
		{Vector: features.Vector{}, Present: features.Mask(0).With(features.Period)},
	}

	stats := Fit(rows, features.All())

	assert.Equal(t, 3, stats.Count, "count is rows in the class, not per-feature values")
	assert.InDelta(t, 200.0, stats.Get(features.Depth).Mean, 1e-12)
	assert.InDelta(t, 100.0, stats.Get(features.Depth).Std, 1e-12)

	period := stats.Get(features.Period)
	assert.Equal(t, 0.0, period.Mean)
	assert.Equal(t, MinStd, period.Std)

	snr := stats.Get(features.ModelSNR)
	assert.Equal(t, EmptyStd, snr.Std, "feature with no values gets the no-data default")
}

func TestFit_StdNeverZero(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.Intn(20)
		rows := make([]LabeledRow, n)
		for i := range rows {
			for _, f := range features.All() {
				// Small integer range makes constant columns common.
				rows[i].Vector[f] = float64(rng.Intn(3))
				if rng.Intn(4) > 0 {
					rows[i].Present = rows[i].Present.With(f)
				}
			}
		}

		stats := Fit(rows, features.All())
		for _, f := range features.All() {
			require.NotZero(t, stats.Get(f).Std, "trial %d feature %s", trial, f)
		}
	}
}

func TestClassStatistics_Map(t *testing.T) {
	stats := Fit(labeledRows(3, 0), features.All())
	m := stats.Map()

	require.Len(t, m, features.Count)
	assert.Equal(t, stats.Get(features.StellarTeff), m["koi_steff"])
}
