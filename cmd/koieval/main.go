// Command koieval trains a model on one labeled KOI table and scores it on
// another, writing a holdout report.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"koi-classifier/internal/common"
	"koi-classifier/internal/ml"
	"koi-classifier/internal/report"
)

func main() {
	var (
		trainPath  = flag.String("train", common.DefaultTrainingTemplate, "Labeled CSV to fit the model on")
		testPath   = flag.String("test", "", "Labeled CSV to score the model on")
		outputPath = flag.String("output", "", "Output directory for reports (console only when empty)")
		slack      = flag.Int("slack", common.DefaultRowSlack, "Missing trailing fields tolerated per row")
		minRows    = flag.Int("min-rows", common.DefaultMinTrainingRows, "Minimum labeled training rows")
		logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *testPath == "" {
		log.Fatal().Msg("-test is required")
	}
	if *minRows < common.MinTrainingRowsLimit {
		log.Fatal().Int("min_rows", *minRows).Int("floor", common.MinTrainingRowsLimit).Msg("-min-rows is below the training floor")
	}

	fmt.Println("=== Holdout Configuration ===")
	fmt.Printf("Training CSV: %s\n", *trainPath)
	fmt.Printf("Holdout CSV: %s\n", *testPath)
	fmt.Printf("Output Directory: %s\n", *outputPath)
	fmt.Println("=============================")

	trainSet := load(*trainPath, *slack)
	if len(trainSet.Rows) < *minRows {
		log.Fatal().Err(&ml.InsufficientDataError{Have: len(trainSet.Rows), Need: *minRows}).Msg("Training table too small")
	}
	testSet := load(*testPath, *slack)

	model := ml.FitModel(uuid.NewString(), time.Now().UTC(), trainSet.Rows)
	results := report.Holdout(model, testSet)

	reporter := report.NewReporter(results, *outputPath)
	if *outputPath != "" {
		if err := reporter.GenerateReport(); err != nil {
			log.Error().Err(err).Msg("Failed to generate reports")
		}
	}
	reporter.PrintSummary(os.Stdout)

	log.Info().
		Str("model_id", model.ID).
		Float64("accuracy", results.Holdout.Accuracy).
		Msg("Holdout evaluation completed")
}

func load(path string, slack int) *ml.TrainingSet {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to read CSV")
	}
	set, err := ml.ParseTrainingSet(string(data), slack)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Str("kind", ml.ErrorKind(err)).Msg("Failed to parse CSV")
	}
	log.Info().Str("path", path).Int("rows", len(set.Rows)).Int("skipped", set.Skipped).Msg("Loaded labeled table")
	return set
}
