// Command koiexport dumps the prediction log or the training history from a
// classifier data directory as newline-delimited JSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"koi-classifier/internal/storage"
)

const maxExport = 1_000_000

func main() {
	var (
		dataPath   = flag.String("data", "data", "Classifier data directory (DATA_PATH)")
		outputPath = flag.String("output", "", "Output file (stdout when empty)")
		what       = flag.String("what", "predictions", "What to export: predictions or runs")
		source     = flag.String("source", "", "Only predictions from this source (single, batch, csv)")
		days       = flag.Int("days", 30, "Number of days of predictions to export (0 for all)")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	store, err := storage.New(*dataPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *dataPath).Msg("Failed to open storage")
	}
	defer store.Close()

	out := io.Writer(os.Stdout)
	if *outputPath != "" {
		f, err := os.Create(*outputPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create output file")
		}
		defer f.Close()
		out = f
	}
	encoder := json.NewEncoder(out)

	var count int
	switch *what {
	case "predictions":
		count, err = exportPredictions(store, encoder, *source, *days)
	case "runs":
		count, err = exportRuns(store, encoder)
	default:
		err = fmt.Errorf("unknown export %q", *what)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}

	log.Info().Int("records", count).Str("what", *what).Msg("Export completed")
}

func exportPredictions(store *storage.Store, encoder *json.Encoder, source string, days int) (int, error) {
	start := time.Unix(0, 0)
	if days > 0 {
		start = time.Now().AddDate(0, 0, -days)
	}

	records, err := store.GetPredictionsInRange(start, time.Now(), maxExport)
	if err != nil {
		return 0, err
	}

	bySource := make(map[string]int)
	count := 0
	for _, rec := range records {
		if source != "" && rec.Source != source {
			continue
		}
		if err := encoder.Encode(rec); err != nil {
			return count, fmt.Errorf("write record: %w", err)
		}
		bySource[rec.Source]++
		count++
	}

	for src, n := range bySource {
		log.Info().Str("source", src).Int("records", n).Msg("Predictions by source")
	}
	return count, nil
}

func exportRuns(store *storage.Store, encoder *json.Encoder) (int, error) {
	runs, err := store.ListRuns()
	if err != nil {
		return 0, err
	}
	for i, run := range runs {
		if err := encoder.Encode(run); err != nil {
			return i, fmt.Errorf("write run: %w", err)
		}
	}
	return len(runs), nil
}
