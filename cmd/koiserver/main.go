package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"koi-classifier/internal/archive"
	"koi-classifier/internal/cfg"
	"koi-classifier/internal/metrics"
	"koi-classifier/internal/ml"
	"koi-classifier/internal/server"
	"koi-classifier/internal/storage"
)

const (
	limiterCleanupInterval = time.Minute
	limiterMaxIdle         = 10 * time.Minute
	shutdownTimeout        = 10 * time.Second

	timeoutBody = `{"error":"Timeout","detail":"request timed out"}`
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	setupLogging(c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	mw := metrics.NewWrapper(m)

	store := initializeStorage(c)
	if store != nil {
		defer store.Close()
	}

	deps, hub := initializeComponents(c, m, mw, store)
	srv := server.New(deps, server.ConfigFromSettings(c))

	var wg sync.WaitGroup
	if hub != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Run()
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		srv.Limiter().RunCleanup(ctx, limiterCleanupInterval, limiterMaxIdle)
	}()

	router := srv.Router()
	budgets := map[string]time.Duration{
		// The archive fetch has its own timeout and retries; training follows.
		"/api/train/archive": archive.Budget(c.ArchiveTimeout) + c.RequestTimeout,
	}
	if hub != nil {
		// Websocket streams are long-lived and cannot sit behind TimeoutHandler.
		budgets["/api/events"] = 0
	}
	handler := timeoutRoutes(router, c.RequestTimeout, budgets)

	httpServer := &http.Server{
		Addr:              c.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       c.RequestTimeout,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", c.ListenAddr).Bool("events", hub != nil).Msg("KOI classifier listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed")
			cancel()
		}
	}()

	waitForShutdown(ctx, cancel, httpServer, hub, &wg)
}

func setupLogging(c cfg.Settings) {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if strings.EqualFold(c.LogFormat, "console") {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// initializeStorage opens the bbolt store if DATA_PATH is configured
func initializeStorage(c cfg.Settings) *storage.Store {
	if c.DataPath == "" {
		log.Info().Msg("DATA_PATH not set, training history and prediction log are in memory only")
		return nil
	}
	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("storage initialization failed, continuing without persistence")
		return nil
	}
	if removed, err := store.PruneRuns(c.HistorySize); err != nil {
		log.Warn().Err(err).Msg("training history prune failed")
	} else if removed > 0 {
		log.Info().Int("removed", removed).Msg("Pruned persisted training history")
	}
	return store
}

func initializeComponents(c cfg.Settings, m *metrics.Metrics, mw *metrics.MetricsWrapper, store *storage.Store) (server.Deps, *server.Hub) {
	// Typed nils must not leak into the interfaces below.
	var runs ml.RunStore
	var predictions server.PredictionLog
	if store != nil {
		runs = store
		predictions = store
	}

	history, err := ml.NewHistory(c.HistorySize, runs)
	if err != nil {
		log.Fatal().Err(err).Msg("training history init failed")
	}

	var hub *server.Hub
	var events ml.EventPublisher
	if c.EventsEnabled {
		hub = server.NewHub(c.EventsPing, m.EventClients)
		events = hub
	}

	models := ml.NewModelStore()
	trainer := ml.NewTrainer(models, history, ml.TrainerConfig{
		MinRows:  c.MinTrainingRows,
		RowSlack: c.RowSlack,
	}, mw, events)

	return server.Deps{
		Store:       models,
		Trainer:     trainer,
		Predictor:   ml.NewPredictor(models, mw),
		History:     history,
		Predictions: predictions,
		Archive:     archive.New(c.ArchiveURL, c.ArchiveTimeout).WithMetrics(m.ArchiveRequests),
		Metrics:     m,
		Events:      hub,
	}, hub
}

// timeoutRoutes bounds every request to router by timeout, except paths in
// budgets, which get their own limit. A zero budget leaves the path unbounded.
func timeoutRoutes(router http.Handler, timeout time.Duration, budgets map[string]time.Duration) http.Handler {
	timed := http.TimeoutHandler(router, timeout, timeoutBody)
	routes := make(map[string]http.Handler, len(budgets))
	for path, d := range budgets {
		if d <= 0 {
			routes[path] = router
			continue
		}
		routes[path] = http.TimeoutHandler(router, d, timeoutBody)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := routes[r.URL.Path]; ok {
			h.ServeHTTP(w, r)
			return
		}
		timed.ServeHTTP(w, r)
	})
}

func waitForShutdown(ctx context.Context, cancel context.CancelFunc, httpServer *http.Server, hub *server.Hub, wg *sync.WaitGroup) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}

	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP server shutdown failed")
	}

	if hub != nil {
		hub.Stop()
	}
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("all goroutines stopped")
	case <-time.After(shutdownTimeout):
		log.Warn().Msg("shutdown timeout, forcing exit")
	}
}
