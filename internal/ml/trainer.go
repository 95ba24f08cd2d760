package ml

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"koi-classifier/internal/common"
	"koi-classifier/internal/features"
	"koi-classifier/internal/ingest"
)

// Event types published by the trainer.
const (
	EventModelTrained = "model.trained"
	EventModelCleared = "model.cleared"
)

// EventPublisher receives model lifecycle events.
type EventPublisher interface {
	Publish(eventType string, payload any)
}

// TrainingSet is the validated outcome of ingesting a training CSV.
type TrainingSet struct {
	Rows []LabeledRow
	// Skipped counts lines dropped by the parser plus rows with no usable label.
	Skipped int
}

// ParseTrainingSet ingests text with lower-cased headers and converts rows to
// labeled rows. It checks the header but not the row count.
func ParseTrainingSet(text string, slack int) (*TrainingSet, error) {
	table, err := ingest.Parse(text, ingest.Options{LowerHeader: true, Slack: slack})
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, name := range features.Names() {
		if !table.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Missing: missing}
	}

	labelCols := LabelColumns(table.Header)
	if len(labelCols) == 0 {
		return nil, &MissingLabelError{Accepted: append([]string(nil), labelColumns...)}
	}

	set := &TrainingSet{
		Rows:    make([]LabeledRow, 0, len(table.Rows)),
		Skipped: len(table.Skipped),
	}
	for _, row := range table.Rows {
		lr, ok := ToLabeledRow(row, labelCols)
		if !ok {
			set.Skipped++
			continue
		}
		set.Rows = append(set.Rows, lr)
	}

	return set, nil
}

// FitModel fits both classes over rows and attaches evaluation and feature
// importance. The returned model is complete and must not be modified.
func FitModel(id string, trainedAt time.Time, rows []LabeledRow) *TrainedModel {
	feats := features.All()
	confirmed, falsePositive := SplitByClass(rows)

	m := NewTrainedModel(id, trainedAt, feats, Fit(confirmed, feats), Fit(falsePositive, feats))
	m.Evaluation = Evaluate(m, rows)
	m.Importance = FeatureImportance(m)
	return m
}

// TrainerConfig holds training limits.
type TrainerConfig struct {
	MinRows  int
	RowSlack int
}

// DefaultTrainerConfig returns the standard training limits.
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		MinRows:  common.DefaultMinTrainingRows,
		RowSlack: common.DefaultRowSlack,
	}
}

// TrainOptions adjust a single training call.
type TrainOptions struct {
	// TestSize is the fraction of each class held out for scoring, in
	// [0, common.MaxTestSize]. Zero trains on every row.
	TestSize float64
}

// TrainingResult is returned by a successful Train call.
type TrainingResult struct {
	Model *TrainedModel
	Run   TrainingRun
}

// Trainer turns training CSVs into models and installs them in a store.
type Trainer struct {
	store   *ModelStore
	history *History
	config  TrainerConfig
	metrics MetricsInterface
	events  EventPublisher

	// mu orders store swaps with the model-loaded gauge.
	mu sync.Mutex

	now   func() time.Time
	newID func() string
}

// NewTrainer creates a trainer. history, metrics and events may be nil.
func NewTrainer(store *ModelStore, history *History, config TrainerConfig, metrics MetricsInterface, events EventPublisher) *Trainer {
	return &Trainer{
		store:   store,
		history: history,
		config:  config,
		metrics: metrics,
		events:  events,
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
}

// Train parses text, fits a model on every row and replaces the store's
// current model. On error the store is left unchanged.
func (t *Trainer) Train(text string) (*TrainingResult, error) {
	return t.TrainWith(text, TrainOptions{})
}

// TrainWith is Train with a held-out fraction of each class scored against
// the fitted model.
func (t *Trainer) TrainWith(text string, opts TrainOptions) (*TrainingResult, error) {
	start := time.Now()

	result, err := t.train(text, opts)
	if err != nil {
		if t.metrics != nil {
			kind := ErrorKind(err)
			if kind == "" {
				kind = "internal"
			}
			t.metrics.TrainingFailuresInc(kind)
		}
		log.Warn().Err(err).Str("kind", ErrorKind(err)).Msg("Training rejected")
		return nil, err
	}

	if t.metrics != nil {
		t.metrics.TrainingsInc()
		t.metrics.TrainingDurationObserve(time.Since(start).Seconds())
		t.metrics.TrainingRowsSet(float64(result.Run.Samples))
		t.metrics.ModelAccuracySet(result.Model.Evaluation.Accuracy)
		t.metrics.RowsSkippedAdd(float64(result.Run.Skipped))
	}

	log.Info().
		Str("model_id", result.Model.ID).
		Int("samples", result.Run.Samples).
		Int("confirmed", result.Run.Confirmed).
		Int("false_positive", result.Run.FalsePositive).
		Int("skipped", result.Run.Skipped).
		Int("held_out", result.Run.TestSamples).
		Float64("accuracy", result.Model.Evaluation.Accuracy).
		Dur("duration", time.Since(start)).
		Msg("Model trained")

	return result, nil
}

func (t *Trainer) train(text string, opts TrainOptions) (*TrainingResult, error) {
	if !(opts.TestSize >= 0 && opts.TestSize <= common.MaxTestSize) {
		return nil, fmt.Errorf("test size must be between 0 and %g, got %g", common.MaxTestSize, opts.TestSize)
	}

	set, err := ParseTrainingSet(text, t.config.RowSlack)
	if err != nil {
		return nil, err
	}

	if len(set.Rows) < t.config.MinRows {
		return nil, &InsufficientDataError{Have: len(set.Rows), Need: t.config.MinRows}
	}

	trainRows, testRows := HoldoutSplit(set.Rows, opts.TestSize)
	model := FitModel(t.newID(), t.now().UTC(), trainRows)

	run := TrainingRun{
		ID:            model.ID,
		TrainedAt:     model.TrainedAt,
		Samples:       model.Samples(),
		Confirmed:     model.Confirmed.Count,
		FalsePositive: model.FalsePositive.Count,
		Skipped:       set.Skipped,
		Metrics:       model.Evaluation,
		Importance:    model.Importance,
		TestSize:      opts.TestSize,
		TestSamples:   len(testRows),
	}
	if len(testRows) > 0 {
		holdout := Evaluate(model, testRows)
		run.Holdout = &holdout
	}

	t.mu.Lock()
	t.store.Set(model)
	t.setLoadedLocked()
	t.mu.Unlock()

	if t.history != nil {
		t.history.Add(run)
	}
	if t.events != nil {
		t.events.Publish(EventModelTrained, run)
	}

	return &TrainingResult{Model: model, Run: run}, nil
}

// Reset clears the store. It returns false when no model was loaded.
func (t *Trainer) Reset() bool {
	t.mu.Lock()
	old := t.store.Clear()
	t.setLoadedLocked()
	t.mu.Unlock()

	if old == nil {
		return false
	}
	if t.events != nil {
		t.events.Publish(EventModelCleared, map[string]string{"id": old.ID})
	}
	log.Info().Str("model_id", old.ID).Msg("Model cleared")
	return true
}

// setLoadedLocked mirrors the store into the model-loaded gauge. t.mu must be
// held.
func (t *Trainer) setLoadedLocked() {
	if t.metrics != nil {
		t.metrics.ModelLoadedSet(t.store.HasModel())
	}
}

// String describes the limits, for startup logs.
func (c TrainerConfig) String() string {
	return fmt.Sprintf("min_rows=%d row_slack=%d", c.MinRows, c.RowSlack)
}
