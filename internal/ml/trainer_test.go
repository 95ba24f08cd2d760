package ml

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"koi-classifier/internal/features"
)

func TestTrainer_TrainsOnMinimumRows(t *testing.T) {
	store := NewModelStore()
	metrics := &MockMetrics{}
	events := &mockEvents{}
	history, err := NewHistory(10, nil)
	require.NoError(t, err)

	trainer := newTestTrainer(store, history, metrics, events)
	result, err := trainer.Train(trainingCSV(5, 5))
	require.NoError(t, err)

	assert.True(t, store.HasModel())
	assert.Same(t, result.Model, store.Get())
	assert.Equal(t, "run-1", result.Model.ID)
	assert.Equal(t, 5, result.Model.Confirmed.Count)
	assert.Equal(t, 5, result.Model.FalsePositive.Count)
	assert.Equal(t, features.All(), result.Model.Features)

	assert.Equal(t, 10, result.Run.Samples)
	assert.Equal(t, 0, result.Run.Skipped)
	assert.Equal(t, 1.0, result.Run.Metrics.Accuracy)
	assert.Equal(t, 5, result.Run.Metrics.Matrix.TruePositive)
	assert.Equal(t, 5, result.Run.Metrics.Matrix.TrueNegative)
	require.Len(t, result.Run.Importance, features.Count)

	assert.Equal(t, 1, history.Len())
	assert.Equal(t, []string{EventModelTrained}, events.events)

	assert.Equal(t, 1, metrics.trainings)
	assert.True(t, metrics.modelLoaded)
	assert.Equal(t, 10.0, metrics.trainingRows)
	assert.Equal(t, 1.0, metrics.accuracy)
}

func TestTrainer_InsufficientData(t *testing.T) {
	store := NewModelStore()
	metrics := &MockMetrics{}
	trainer := newTestTrainer(store, nil, metrics, nil)

	_, err := trainer.Train(trainingCSV(5, 4))
	require.Error(t, err)

	var insufficient *InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 9, insufficient.Have)
	assert.Equal(t, 10, insufficient.Need)
	assert.True(t, errors.Is(err, ErrInsufficientData))
	assert.Equal(t, "InsufficientDataError", ErrorKind(err))

	assert.False(t, store.HasModel())
	assert.Equal(t, 1, metrics.trainingFailures["InsufficientDataError"])
}

func TestTrainer_UnlabeledRowsDoNotCount(t *testing.T) {
	csv := trainingCSV(5, 5)
	csv = strings.Replace(csv, ",CONFIRMED\n", ",CANDIDATE\n", 1)

	trainer := newTestTrainer(NewModelStore(), nil, nil, nil)
	_, err := trainer.Train(csv)

	var insufficient *InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 9, insufficient.Have)
}

func TestTrainer_MissingColumns(t *testing.T) {
	names := features.Names()
	var keep []int
	for i, n := range names {
		if n != "koi_steff" {
			keep = append(keep, i)
		}
	}

	var b strings.Builder
	header := make([]string, 0, len(keep))
	for _, i := range keep {
		header = append(header, names[i])
	}
	b.WriteString(strings.Join(header, ",") + ",koi_disposition\n")
	for r := 0; r < 10; r++ {
		vals := confirmedValues(r)
		row := make([]float64, 0, len(keep))
		for _, i := range keep {
			row = append(row, vals[i])
		}
		b.WriteString(joinValues(row) + ",CONFIRMED\n")
	}

	store := NewModelStore()
	trainer := newTestTrainer(store, nil, nil, nil)
	_, err := trainer.Train(b.String())

	var missing *MissingColumnsError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"koi_steff"}, missing.Missing)
	assert.Contains(t, err.Error(), "koi_steff")
	assert.True(t, errors.Is(err, ErrMissingColumns))
	assert.False(t, store.HasModel())
}

func TestTrainer_MissingColumnsInSchemaOrder(t *testing.T) {
	trainer := newTestTrainer(NewModelStore(), nil, nil, nil)
	_, err := trainer.Train("koi_slogg,koi_period,label\n4.4,10,1\n")

	var missing *MissingColumnsError
	require.True(t, errors.As(err, &missing))
	require.Len(t, missing.Missing, features.Count-2)
	assert.Equal(t, "koi_duration", missing.Missing[0])
	assert.Equal(t, "koi_fpflag_ec", missing.Missing[len(missing.Missing)-1])
}

func TestTrainer_MissingLabel(t *testing.T) {
	var b strings.Builder
	b.WriteString(featureHeader() + ",kepoi_name\n")
	for i := 0; i < 12; i++ {
		b.WriteString(joinValues(confirmedValues(i)) + ",K0001.01\n")
	}

	trainer := newTestTrainer(NewModelStore(), nil, nil, nil)
	_, err := trainer.Train(b.String())

	var missingLabel *MissingLabelError
	require.True(t, errors.As(err, &missingLabel))
	assert.Equal(t, "MissingLabelError", ErrorKind(err))
	assert.Contains(t, err.Error(), "koi_disposition")
}

func TestTrainer_EmptyInput(t *testing.T) {
	trainer := newTestTrainer(NewModelStore(), nil, nil, nil)

	for _, text := range []string{"", "\n\n", featureHeader() + ",label\n"} {
		_, err := trainer.Train(text)
		assert.True(t, errors.Is(err, ErrEmptyInput), "input %q", text)

		var empty *EmptyInputError
		assert.True(t, errors.As(err, &empty))
	}
}

func TestTrainer_BinaryLabelAndHeaderCase(t *testing.T) {
	var b strings.Builder
	b.WriteString(strings.ToUpper(featureHeader()) + ",Label\n")
	for i := 0; i < 6; i++ {
		b.WriteString(joinValues(confirmedValues(i)) + ",1\n")
	}
	for i := 0; i < 6; i++ {
		b.WriteString(joinValues(falsePositiveValues(i)) + ",0\n")
	}
	// Neither 0 nor 1: not a label.
	b.WriteString(joinValues(falsePositiveValues(7)) + ",2\n")

	trainer := newTestTrainer(NewModelStore(), nil, nil, nil)
	result, err := trainer.Train(b.String())
	require.NoError(t, err)

	assert.Equal(t, 6, result.Run.Confirmed)
	assert.Equal(t, 6, result.Run.FalsePositive)
	assert.Equal(t, 1, result.Run.Skipped)
}

func TestTrainer_DispositionCaseInsensitive(t *testing.T) {
	csv := trainingCSV(5, 5)
	csv = strings.ReplaceAll(csv, ",CONFIRMED\n", ",Confirmed\n")
	csv = strings.ReplaceAll(csv, ",FALSE POSITIVE\n", ",false positive\n")

	set, err := ParseTrainingSet(csv, 2)
	require.NoError(t, err)
	require.Len(t, set.Rows, 10)
	assert.Equal(t, Confirmed, set.Rows[0].Disposition)
	assert.Equal(t, "Confirmed", set.Rows[0].RawLabel, "label text keeps its case")
	assert.Equal(t, FalsePositive, set.Rows[9].Disposition)
	assert.Equal(t, "false positive", set.Rows[9].RawLabel)
}

func TestTrainer_DispositionWinsOverLabel(t *testing.T) {
	var b strings.Builder
	b.WriteString(featureHeader() + ",label,koi_disposition\n")
	// koi_disposition says FALSE POSITIVE, label says 1.
	b.WriteString(joinValues(confirmedValues(0)) + ",1,FALSE POSITIVE\n")
	// koi_disposition unusable, label decides.
	b.WriteString(joinValues(confirmedValues(1)) + ",1,CANDIDATE\n")

	set, err := ParseTrainingSet(b.String(), 2)
	require.NoError(t, err)
	require.Len(t, set.Rows, 2)
	assert.Equal(t, FalsePositive, set.Rows[0].Disposition)
	assert.Equal(t, Confirmed, set.Rows[1].Disposition)
}

func TestTrainer_NullAndTextCellsExcluded(t *testing.T) {
	csv := trainingCSV(5, 5)
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	// Blank the depth of the first confirmed row and make its SNR text.
	cells := strings.Split(lines[1], ",")
	cells[features.Depth] = "null"
	cells[features.ModelSNR] = "n/a"
	lines[1] = strings.Join(cells, ",")

	set, err := ParseTrainingSet(strings.Join(lines, "\n"), 2)
	require.NoError(t, err)
	require.Len(t, set.Rows, 10)

	row := set.Rows[0]
	assert.False(t, row.Present.Has(features.Depth))
	assert.False(t, row.Present.Has(features.ModelSNR))
	assert.True(t, row.Present.Has(features.Period))

	confirmed, _ := SplitByClass(set.Rows)
	stats := Fit(confirmed, features.All())
	// Remaining depths are 510..540.
	assert.InDelta(t, 525.0, stats.Get(features.Depth).Mean, 1e-9)
}

func TestTrainer_FailureLeavesPreviousModel(t *testing.T) {
	store := NewModelStore()
	trainer := newTestTrainer(store, nil, nil, nil)

	first, err := trainer.Train(trainingCSV(5, 5))
	require.NoError(t, err)

	_, err = trainer.Train(trainingCSV(2, 2))
	require.Error(t, err)
	assert.Same(t, first.Model, store.Get())
}

func TestTrainer_Reset(t *testing.T) {
	store := NewModelStore()
	events := &mockEvents{}
	metrics := &MockMetrics{}
	trainer := newTestTrainer(store, nil, metrics, events)

	assert.False(t, trainer.Reset())

	_, err := trainer.Train(trainingCSV(5, 5))
	require.NoError(t, err)

	assert.True(t, trainer.Reset())
	assert.False(t, store.HasModel())
	assert.False(t, metrics.modelLoaded)
	assert.Equal(t, []string{EventModelTrained, EventModelCleared}, events.events)
}

// resetOnTrain clears the model as soon as a training run is announced,
// racing the trainer's own bookkeeping.
type resetOnTrain struct {
	trainer *Trainer
}

func (p *resetOnTrain) Publish(eventType string, _ any) {
	if eventType == EventModelTrained {
		p.trainer.Reset()
	}
}

func TestTrainer_LoadedGaugeFollowsStore(t *testing.T) {
	store := NewModelStore()
	metrics := &MockMetrics{}
	publisher := &resetOnTrain{}
	trainer := newTestTrainer(store, nil, metrics, publisher)
	publisher.trainer = trainer

	_, err := trainer.Train(trainingCSV(5, 5))
	require.NoError(t, err)

	assert.False(t, store.HasModel())
	assert.False(t, metrics.modelLoaded, "gauge must not report a model the store no longer holds")
}

func TestTrainer_HeldOutRows(t *testing.T) {
	store := NewModelStore()
	trainer := newTestTrainer(store, nil, nil, nil)

	result, err := trainer.TrainWith(trainingCSV(8, 4), TrainOptions{TestSize: 0.25})
	require.NoError(t, err)

	assert.Equal(t, 0.25, result.Run.TestSize)
	assert.Equal(t, 3, result.Run.TestSamples)
	assert.Equal(t, 9, result.Run.Samples)
	assert.Equal(t, 6, result.Run.Confirmed)
	assert.Equal(t, 3, result.Run.FalsePositive)

	require.NotNil(t, result.Run.Holdout)
	assert.Equal(t, 3, result.Run.Holdout.Matrix.Total())
	assert.Equal(t, 1.0, result.Run.Holdout.Accuracy)
}

func TestTrainer_HeldOutRowsCountTowardMinimum(t *testing.T) {
	trainer := newTestTrainer(NewModelStore(), nil, nil, nil)

	result, err := trainer.TrainWith(trainingCSV(5, 5), TrainOptions{TestSize: 0.2})
	require.NoError(t, err)
	assert.Equal(t, 8, result.Run.Samples)
	assert.Equal(t, 2, result.Run.TestSamples)
}

func TestTrainer_TestSizeOutOfRange(t *testing.T) {
	store := NewModelStore()
	trainer := newTestTrainer(store, nil, nil, nil)

	for _, ts := range []float64{-0.1, 0.51, 1, math.NaN()} {
		_, err := trainer.TrainWith(trainingCSV(5, 5), TrainOptions{TestSize: ts})
		assert.Error(t, err, "test size %g", ts)
	}
	assert.False(t, store.HasModel())
}

func TestTrainer_NoHoldoutByDefault(t *testing.T) {
	trainer := newTestTrainer(NewModelStore(), nil, nil, nil)

	result, err := trainer.Train(trainingCSV(5, 5))
	require.NoError(t, err)
	assert.Nil(t, result.Run.Holdout)
	assert.Zero(t, result.Run.TestSamples)
}
