package ml

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"koi-classifier/internal/features"
)

// confirmedValues returns a plausible planet row in schema order.
func confirmedValues(i int) []float64 {
	f := float64(i)
	return []float64{
		10 + f, 3 + 0.1*f, 0.25, 500 + 10*f, 1.5 + 0.1*f, 100 + f, 20 + f,
		1.0, 5700 + 10*f, 4.5, 0, 0, 0, 0,
	}
}

// falsePositiveValues returns an eclipsing-binary-like row in schema order.
func falsePositiveValues(i int) []float64 {
	f := float64(i)
	return []float64{
		1 + 0.1*f, 1 + 0.1*f, 1.125, 20000 + 100*f, 15 + f, 2000 + 10*f, 8 + 0.1*f,
		1.5, 6000 + 20*f, 4.0, 1, 0, 1, 0,
	}
}

func joinValues(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return strings.Join(parts, ",")
}

func featureHeader() string {
	return strings.Join(features.Names(), ",")
}

// trainingCSV builds a CSV with nc confirmed and nfp false-positive rows
// labeled through a koi_disposition column.
func trainingCSV(nc, nfp int) string {
	var b strings.Builder
	b.WriteString(featureHeader() + ",koi_disposition\n")
	for i := 0; i < nc; i++ {
		b.WriteString(joinValues(confirmedValues(i)) + ",CONFIRMED\n")
	}
	for i := 0; i < nfp; i++ {
		b.WriteString(joinValues(falsePositiveValues(i)) + ",FALSE POSITIVE\n")
	}
	return b.String()
}

func vectorOf(values []float64) features.Vector {
	var v features.Vector
	copy(v[:], values)
	return v
}

// recordOf builds a decoded-JSON style record keyed by feature name.
func recordOf(values []float64) map[string]any {
	rec := make(map[string]any, len(values))
	for i, name := range features.Names() {
		rec[name] = values[i]
	}
	return rec
}

func labeledRows(nc, nfp int) []LabeledRow {
	rows := make([]LabeledRow, 0, nc+nfp)
	for i := 0; i < nc; i++ {
		rows = append(rows, LabeledRow{Vector: vectorOf(confirmedValues(i)), Present: features.Full, Disposition: Confirmed})
	}
	for i := 0; i < nfp; i++ {
		rows = append(rows, LabeledRow{Vector: vectorOf(falsePositiveValues(i)), Present: features.Full, Disposition: FalsePositive})
	}
	return rows
}

func fittedModel(t *testing.T) *TrainedModel {
	t.Helper()
	return FitModel("test-model", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), labeledRows(5, 5))
}

func newTestTrainer(store *ModelStore, history *History, metrics MetricsInterface, events EventPublisher) *Trainer {
	tr := NewTrainer(store, history, DefaultTrainerConfig(), metrics, events)
	n := 0
	tr.newID = func() string {
		n++
		return fmt.Sprintf("run-%d", n)
	}
	tr.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return tr
}
