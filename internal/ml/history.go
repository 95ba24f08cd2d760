package ml

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// TrainingRun records one successful training call.
type TrainingRun struct {
	ID            string         `json:"id"`
	TrainedAt     time.Time      `json:"trained_at"`
	Samples       int            `json:"samples"`
	Confirmed     int            `json:"confirmed"`
	FalsePositive int            `json:"false_positive"`
	Skipped       int            `json:"skipped"`
	Metrics       Evaluation     `json:"metrics"`
	Importance    []FeatureScore `json:"feature_importance"`
	TestSize      float64        `json:"test_size,omitempty"`
	TestSamples   int            `json:"test_samples,omitempty"`
	Holdout       *Evaluation    `json:"holdout_metrics,omitempty"`
}

// RunStore persists training runs across restarts.
type RunStore interface {
	SaveRun(run TrainingRun) error
	ListRuns() ([]TrainingRun, error)
}

// History keeps the most recent training runs, oldest first.
type History struct {
	mu    sync.RWMutex
	runs  []TrainingRun
	limit int
	store RunStore
}

// NewHistory creates a history bounded to limit entries. When store is not
// nil, previously persisted runs are loaded and new runs are written through.
func NewHistory(limit int, store RunStore) (*History, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("history limit must be positive, got %d", limit)
	}

	h := &History{
		runs:  make([]TrainingRun, 0),
		limit: limit,
		store: store,
	}

	if store != nil {
		runs, err := store.ListRuns()
		if err != nil {
			return nil, fmt.Errorf("load training history: %w", err)
		}
		h.runs = append(h.runs, runs...)
		h.trim()
		log.Info().Int("runs", len(h.runs)).Msg("Loaded training history")
	}

	return h, nil
}

// Add appends run. A persistence failure is logged and the run is still kept
// in memory.
func (h *History) Add(run TrainingRun) {
	h.mu.Lock()
	h.runs = append(h.runs, run)
	h.trim()
	h.mu.Unlock()

	if h.store != nil {
		if err := h.store.SaveRun(run); err != nil {
			log.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to persist training run")
		}
	}
}

// List returns a copy of the runs, oldest first.
func (h *History) List() []TrainingRun {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]TrainingRun, len(h.runs))
	copy(out, h.runs)
	return out
}

// Latest returns the newest run.
func (h *History) Latest() (TrainingRun, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.runs) == 0 {
		return TrainingRun{}, false
	}
	return h.runs[len(h.runs)-1], true
}

// Len is the number of runs held in memory.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.runs)
}

func (h *History) trim() {
	if over := len(h.runs) - h.limit; over > 0 {
		h.runs = append(h.runs[:0:0], h.runs[over:]...)
	}
}
