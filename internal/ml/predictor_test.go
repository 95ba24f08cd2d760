package ml

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"koi-classifier/internal/common"
)

func TestPredictor_FallbackWhenNoModel(t *testing.T) {
	metrics := &MockMetrics{}
	predictor := NewPredictor(NewModelStore(), metrics)

	pred := predictor.PredictMap(map[string]any{
		"koi_period":    54.32,
		"koi_duration":  3.45,
		"koi_depth":     1200,
		"koi_prad":      "1.8",
		"koi_model_snr": 15.6,
	})

	assert.Equal(t, common.PredictionExoplanet, pred.Prediction)
	assert.Equal(t, common.ModelUsedHeuristic, pred.ModelUsed)
	assert.InDelta(t, 0.95, pred.Confidence, 1e-9)
	assert.InDelta(t, 0.95, pred.Probabilities.Exoplanet, 1e-9)
	assert.InDelta(t, 0.05, pred.Probabilities.NotExoplanet, 1e-9)

	assert.Equal(t, 1, metrics.fallbackUse)
	assert.Equal(t, 1, metrics.predictions[common.ModelUsedHeuristic])
	assert.Len(t, metrics.confidences, 1)
}

func TestPredictor_UsesTrainedModel(t *testing.T) {
	store := NewModelStore()
	store.Set(fittedModel(t))
	metrics := &MockMetrics{}
	predictor := NewPredictor(store, metrics)

	pred := predictor.Predict(vectorOf(falsePositiveValues(1)))

	assert.Equal(t, common.PredictionNotExoplanet, pred.Prediction)
	assert.Equal(t, common.ModelUsedTrained, pred.ModelUsed)
	assert.InDelta(t, pred.Confidence, pred.Probabilities.NotExoplanet, 1e-12)
	assert.InDelta(t, 1-pred.Confidence, pred.Probabilities.Exoplanet, 1e-12)
	assert.Equal(t, 0, metrics.fallbackUse)
	assert.Equal(t, 1, metrics.predictions[common.ModelUsedTrained])
}

func TestPredictor_NonNumericInputsDefaultToZero(t *testing.T) {
	predictor := NewPredictor(NewModelStore(), nil)

	withJunk := predictor.PredictMap(map[string]any{
		"koi_period": []any{1, 2},
		"koi_depth":  "deep",
		"koi_prad":   nil,
	})
	empty := predictor.PredictMap(map[string]any{})

	assert.Equal(t, empty, withJunk)
	assert.Equal(t, common.PredictionNotExoplanet, empty.Prediction)
}

func TestPredictor_PredictCSV(t *testing.T) {
	predictor := NewPredictor(NewModelStore(), nil)

	csv := strings.Join([]string{
		"kepoi_name,koi_period,koi_duration,koi_depth,koi_prad,koi_model_snr",
		"K00752.01,54.32,3.45,1200,1.8,15.6",
		"K00753.01,,,,,",
		"K00754.01,1",
		"K00755.01,3,2,null,NaN,12",
	}, "\n")

	result, err := predictor.PredictCSV(csv, 2)
	require.NoError(t, err)

	assert.Equal(t, common.ModelUsedHeuristic, result.ModelUsed)
	assert.Equal(t, 1, result.Skipped, "the two-field row is short")
	require.Len(t, result.Predictions, 3)

	first := result.Predictions[0]
	assert.Equal(t, 2, first.Row)
	assert.Equal(t, "K00752.01", first.Name)
	assert.True(t, first.IsExoplanet())

	assert.Equal(t, 5, result.Predictions[2].Row)

	assert.Equal(t, 3, result.Summary.Total)
	assert.Equal(t, result.Summary.Exoplanet+result.Summary.NotExoplanet, result.Summary.Total)

	var sum float64
	for _, p := range result.Predictions {
		sum += p.Confidence
	}
	assert.InDelta(t, sum/3, result.Summary.AvgConfidence, 1e-12)
}

func TestPredictor_PredictCSVKeepsHeaderCase(t *testing.T) {
	predictor := NewPredictor(NewModelStore(), nil)

	upper, err := predictor.PredictCSV("KOI_MODEL_SNR\n12\n", 0)
	require.NoError(t, err)
	lower, err := predictor.PredictCSV("koi_model_snr\n12\n", 0)
	require.NoError(t, err)

	assert.Equal(t, common.PredictionNotExoplanet, upper.Predictions[0].Prediction, "upper-case column is not a feature")
	assert.Equal(t, common.PredictionExoplanet, lower.Predictions[0].Prediction)
}

func TestPredictor_PredictCSVEmptyInput(t *testing.T) {
	predictor := NewPredictor(NewModelStore(), nil)

	_, err := predictor.PredictCSV("koi_period\n", 0)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestPredictor_PredictRecords(t *testing.T) {
	store := NewModelStore()
	store.Set(fittedModel(t))
	predictor := NewPredictor(store, nil)

	records := []map[string]any{
		recordOf(confirmedValues(1)),
		recordOf(falsePositiveValues(1)),
	}
	records[0]["name"] = "Kepler-22 b"

	result := predictor.PredictRecords(records)

	assert.Equal(t, common.ModelUsedTrained, result.ModelUsed)
	require.Len(t, result.Predictions, 2)
	assert.Equal(t, 1, result.Predictions[0].Row)
	assert.Equal(t, "Kepler-22 b", result.Predictions[0].Name)
	assert.Empty(t, result.Predictions[1].Name)
	assert.Equal(t, Summary{
		Total:         2,
		Exoplanet:     1,
		NotExoplanet:  1,
		AvgConfidence: (result.Predictions[0].Confidence + result.Predictions[1].Confidence) / 2,
	}, result.Summary)
}

func TestPredictor_EmptyBatch(t *testing.T) {
	predictor := NewPredictor(NewModelStore(), nil)

	result := predictor.PredictRecords(nil)
	assert.Equal(t, Summary{}, result.Summary)
	assert.NotNil(t, result.Predictions)
	assert.Empty(t, result.Predictions)
}

func TestPredictor_Concurrency(t *testing.T) {
	store := NewModelStore()
	metrics := &MockMetrics{}
	predictor := NewPredictor(store, metrics)
	trainer := newTestTrainer(store, nil, metrics, nil)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if g == 0 && i%10 == 0 {
					_, err := trainer.Train(trainingCSV(5, 5))
					assert.NoError(t, err)
					continue
				}
				pred := predictor.Predict(vectorOf(confirmedValues(i % 5)))
				assert.GreaterOrEqual(t, pred.Confidence, 0.5)
			}
		}(g)
	}
	wg.Wait()

	assert.True(t, store.HasModel())
}
