// Command koifetch downloads labeled KOIs from the NASA Exoplanet Archive,
// writes them as a training CSV and optionally uploads them to a running
// classifier.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"koi-classifier/internal/archive"
	"koi-classifier/internal/cfg"
	"koi-classifier/internal/common"
	"koi-classifier/internal/ml"
)

func main() {
	var (
		out       = flag.String("out", common.DefaultTrainingTemplate, "Output CSV path")
		limit     = flag.Int("limit", 0, "Maximum number of KOIs to fetch (default from config)")
		url       = flag.String("url", "", "Archive base URL (default from config)")
		trainURL  = flag.String("train", "", "Classifier base URL to upload the table to, e.g. http://localhost:8080")
		logLevel  = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		skipCheck = flag.Bool("skip-check", false, "Write the table without validating it")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	config, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	baseURL := config.ArchiveURL
	if *url != "" {
		baseURL = *url
	}
	rowLimit := config.ArchiveRowLimit
	if *limit > 0 {
		rowLimit = *limit
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Fetching labeled KOIs:\n")
	fmt.Printf("  Archive: %s\n", baseURL)
	fmt.Printf("  Limit: %d\n", rowLimit)
	fmt.Printf("  Output: %s\n", *out)

	client := archive.New(baseURL, config.ArchiveTimeout)
	text, err := client.FetchTrainingCSV(ctx, rowLimit)
	if err != nil {
		log.Fatal().Err(err).Msg("Archive fetch failed")
	}

	if !*skipCheck {
		if err := summarize(text, config.RowSlack); err != nil {
			log.Fatal().Err(err).Msg("Fetched table is not a usable training set")
		}
	}

	if err := os.WriteFile(*out, []byte(text), 0o644); err != nil {
		log.Fatal().Err(err).Str("path", *out).Msg("Failed to write training CSV")
	}
	fmt.Printf("✓ Wrote %d bytes to %s\n", len(text), *out)

	if *trainURL != "" {
		if err := upload(ctx, *trainURL, text, config.RequestTimeout); err != nil {
			log.Fatal().Err(err).Msg("Upload failed")
		}
	}
}

func summarize(text string, slack int) error {
	set, err := ml.ParseTrainingSet(text, slack)
	if err != nil {
		return err
	}
	confirmed, falsePositive := ml.SplitByClass(set.Rows)

	fmt.Printf("  Rows: %d (%d confirmed, %d false positive, %d skipped)\n",
		len(set.Rows), len(confirmed), len(falsePositive), set.Skipped)

	if len(confirmed) == 0 || len(falsePositive) == 0 {
		log.Warn().Msg("Table holds a single class; the model will not separate dispositions")
	}
	return nil
}

func upload(ctx context.Context, base, text string, timeout time.Duration) error {
	resp, err := resty.New().
		SetTimeout(timeout).
		R().
		SetContext(ctx).
		SetHeader("Content-Type", "text/csv").
		SetBody(text).
		Post(base + "/api/train")
	if err != nil {
		return fmt.Errorf("train request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("train request rejected: status %d, body: %s", resp.StatusCode(), resp.String())
	}

	var run ml.TrainingRun
	if err := json.Unmarshal(resp.Body(), &run); err != nil {
		return fmt.Errorf("decode train response: %w", err)
	}

	fmt.Printf("✓ Trained model %s on %d samples (%d skipped), accuracy %.3f\n",
		run.ID, run.Samples, run.Skipped, run.Metrics.Accuracy)
	return nil
}
