package ml

import (
	"sync/atomic"
	"time"

	"koi-classifier/internal/features"
)

// TrainedModel is the fitted two-class model. It is never mutated after
// NewTrainedModel returns; callers replace it wholesale through a ModelStore.
type TrainedModel struct {
	ID            string
	TrainedAt     time.Time
	Features      []features.Feature
	Confirmed     ClassStatistics
	FalsePositive ClassStatistics
	Evaluation    Evaluation
	Importance    []FeatureScore
}

// NewTrainedModel assembles a model. feats is copied.
func NewTrainedModel(id string, trainedAt time.Time, feats []features.Feature, confirmed, falsePositive ClassStatistics) *TrainedModel {
	fs := make([]features.Feature, len(feats))
	copy(fs, feats)
	return &TrainedModel{
		ID:            id,
		TrainedAt:     trainedAt,
		Features:      fs,
		Confirmed:     confirmed,
		FalsePositive: falsePositive,
	}
}

// Samples is the number of rows the model was fitted on.
func (m *TrainedModel) Samples() int {
	return m.Confirmed.Count + m.FalsePositive.Count
}

// ModelStore holds at most one TrainedModel. Set and Get are single atomic
// pointer operations, so readers see either the old or the new model.
type ModelStore struct {
	current atomic.Pointer[TrainedModel]
}

// NewModelStore returns an empty store.
func NewModelStore() *ModelStore {
	return &ModelStore{}
}

// Set replaces the current model.
func (s *ModelStore) Set(m *TrainedModel) {
	s.current.Store(m)
}

// Get returns the current model or nil.
func (s *ModelStore) Get() *TrainedModel {
	return s.current.Load()
}

// HasModel reports whether a model is loaded.
func (s *ModelStore) HasModel() bool {
	return s.current.Load() != nil
}

// Clear drops the current model and returns the one removed, if any.
func (s *ModelStore) Clear() *TrainedModel {
	return s.current.Swap(nil)
}
