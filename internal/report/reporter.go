package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	SummaryFile  = "holdout_summary.txt"
	OutcomesFile = "holdout_predictions.csv"
	JSONFile     = "holdout_results.json"
)

// Reporter writes holdout reports
type Reporter struct {
	results    *Results
	outputPath string
}

// NewReporter creates a new reporter
func NewReporter(results *Results, outputPath string) *Reporter {
	return &Reporter{
		results:    results,
		outputPath: outputPath,
	}
}

// GenerateReport writes the summary, per-row predictions and JSON report
func (r *Reporter) GenerateReport() error {
	if err := os.MkdirAll(r.outputPath, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := r.generateSummary(); err != nil {
		return err
	}
	if err := r.generateOutcomeLog(); err != nil {
		return err
	}
	return r.generateJSONReport()
}

func (r *Reporter) generateSummary() error {
	summaryPath := filepath.Join(r.outputPath, SummaryFile)
	file, err := os.Create(summaryPath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	r.writeSummary(file)

	log.Info().Str("file", summaryPath).Msg("Summary report generated")
	return nil
}

func (r *Reporter) writeSummary(w io.Writer) {
	res := r.results

	fmt.Fprintf(w, "HOLDOUT EVALUATION SUMMARY\n")
	fmt.Fprintf(w, "==========================\n\n")
	fmt.Fprintf(w, "Model: %s (trained %s)\n", res.ModelID, res.TrainedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Training rows: %d\n", res.TrainSamples)
	fmt.Fprintf(w, "Holdout rows: %d (%d skipped)\n\n", res.TestSamples, res.TestSkipped)

	fmt.Fprintf(w, "%-10s %10s %10s\n", "METRIC", "TRAINING", "HOLDOUT")
	fmt.Fprintf(w, "%-10s %10.4f %10.4f\n", "Accuracy", res.Training.Accuracy, res.Holdout.Accuracy)
	fmt.Fprintf(w, "%-10s %10.4f %10.4f\n", "Precision", res.Training.Precision, res.Holdout.Precision)
	fmt.Fprintf(w, "%-10s %10.4f %10.4f\n", "Recall", res.Training.Recall, res.Holdout.Recall)
	fmt.Fprintf(w, "%-10s %10.4f %10.4f\n\n", "F1", res.Training.F1, res.Holdout.F1)

	cm := res.Holdout.Matrix
	fmt.Fprintf(w, "HOLDOUT CONFUSION MATRIX\n")
	fmt.Fprintf(w, "------------------------\n")
	fmt.Fprintf(w, "True positive: %d  False positive: %d\n", cm.TruePositive, cm.FalsePositive)
	fmt.Fprintf(w, "False negative: %d  True negative: %d\n", cm.FalseNegative, cm.TrueNegative)

	if len(res.Importance) > 0 {
		fmt.Fprintf(w, "\nFEATURE IMPORTANCE\n")
		fmt.Fprintf(w, "------------------\n")
		for _, s := range res.Importance {
			fmt.Fprintf(w, "%-16s %.4f\n", s.Feature, s.Importance)
		}
	}
}

func (r *Reporter) generateOutcomeLog() error {
	csvPath := filepath.Join(r.outputPath, OutcomesFile)
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create prediction log: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{"line", "actual", "predicted", "confirmed_probability", "confidence", "correct"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, o := range r.results.Outcomes {
		record := []string{
			strconv.Itoa(o.Line),
			o.Actual,
			o.Predicted,
			fmt.Sprintf("%.6f", o.ConfirmedProbability),
			fmt.Sprintf("%.6f", o.Confidence),
			strconv.FormatBool(o.Correct),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write prediction log: %w", err)
	}

	log.Info().Str("file", csvPath).Msg("Prediction log generated")
	return nil
}

func (r *Reporter) generateJSONReport() error {
	jsonPath := filepath.Join(r.outputPath, JSONFile)

	report := struct {
		*Results
		GeneratedAt time.Time `json:"generated_at"`
	}{r.results, time.Now().UTC()}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}

	log.Info().Str("file", jsonPath).Msg("JSON report generated")
	return nil
}

// PrintSummary prints a short summary to w
func (r *Reporter) PrintSummary(w io.Writer) {
	res := r.results
	fmt.Fprintln(w, "\n=== HOLDOUT RESULTS ===")
	fmt.Fprintf(w, "Model: %s\n", res.ModelID)
	fmt.Fprintf(w, "Rows: %d training, %d holdout\n", res.TrainSamples, res.TestSamples)
	fmt.Fprintf(w, "Accuracy: %.2f%% (training %.2f%%)\n", res.Holdout.Accuracy*100, res.Training.Accuracy*100)
	fmt.Fprintf(w, "Precision: %.2f%%\n", res.Holdout.Precision*100)
	fmt.Fprintf(w, "Recall: %.2f%%\n", res.Holdout.Recall*100)
	fmt.Fprintf(w, "F1: %.4f\n", res.Holdout.F1)
	fmt.Fprintf(w, "Misclassified: %d\n", len(res.Misclassified()))
	fmt.Fprintln(w, "=======================")
}
