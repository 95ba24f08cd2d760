package ml

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"koi-classifier/internal/features"
)

func TestExplain_ContributionsSumToClassScores(t *testing.T) {
	model := fittedModel(t)

	for _, values := range [][]float64{confirmedValues(2), falsePositiveValues(3)} {
		v := vectorOf(values)
		e := Explain(v, model)

		require.Len(t, e.Contributions, features.Count)

		confirmedScore, fpScore := classScores(v, model)
		assert.Equal(t, confirmedScore, e.ConfirmedScore)
		assert.Equal(t, fpScore, e.FalsePositiveScore)

		var sumC, sumFP float64
		for _, c := range e.Contributions {
			sumC += c.Confirmed
			sumFP += c.FalsePositive
			assert.InDelta(t, c.Confirmed-c.FalsePositive, c.Delta, 1e-15)
		}
		assert.InDelta(t, confirmedScore, sumC, 1e-9)
		assert.InDelta(t, fpScore, sumFP, 1e-9)

		assert.Equal(t, Classify(v, model), e.Result)
	}
}

func TestExplain_SortedByMagnitude(t *testing.T) {
	model := fittedModel(t)
	e := Explain(vectorOf(confirmedValues(1)), model)

	for i := 1; i < len(e.Contributions); i++ {
		assert.GreaterOrEqual(t, math.Abs(e.Contributions[i-1].Delta), math.Abs(e.Contributions[i].Delta))
	}

	// A planet-like row is pulled toward CONFIRMED overall.
	assert.True(t, e.Result.IsConfirmed)
	assert.Greater(t, e.ConfirmedScore, e.FalsePositiveScore)
}

func TestExplain_CarriesInputValues(t *testing.T) {
	model := fittedModel(t)
	v := vectorOf(confirmedValues(0))
	v[features.Depth] = 1234

	for _, c := range Explain(v, model).Contributions {
		f, ok := features.Lookup(c.Feature)
		require.True(t, ok, c.Feature)
		assert.Equal(t, v[f], c.Value)
	}
}
