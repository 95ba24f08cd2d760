// Package server exposes the classifier over HTTP: training, single and
// batch prediction, model inspection, CSV templates, live model events and
// Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"koi-classifier/internal/cfg"
	"koi-classifier/internal/metrics"
	"koi-classifier/internal/ml"
	"koi-classifier/internal/storage"
)

// PredictionLog persists served predictions. *storage.Store implements it.
type PredictionLog interface {
	LogPredictions(records []storage.PredictionRecord) error
	GetPredictionsInRange(start, end time.Time, limit int) ([]storage.PredictionRecord, error)
}

// ArchiveFetcher downloads labeled KOI tables. *archive.Client implements it.
type ArchiveFetcher interface {
	FetchTrainingCSV(ctx context.Context, limit int) (string, error)
}

// Config holds the transport limits.
type Config struct {
	MaxUploadBytes  int64
	RowSlack        int
	TrainRateLimit  float64
	TrainRateBurst  int
	ArchiveRowLimit int
}

// ConfigFromSettings extracts the transport limits from loaded settings.
func ConfigFromSettings(s cfg.Settings) Config {
	return Config{
		MaxUploadBytes:  s.MaxUploadBytes,
		RowSlack:        s.RowSlack,
		TrainRateLimit:  s.TrainRateLimit,
		TrainRateBurst:  s.TrainRateBurst,
		ArchiveRowLimit: s.ArchiveRowLimit,
	}
}

// Deps are the components the server routes to. History, Predictions,
// Archive and Events may be nil.
type Deps struct {
	Store       *ml.ModelStore
	Trainer     *ml.Trainer
	Predictor   *ml.Predictor
	History     *ml.History
	Predictions PredictionLog
	Archive     ArchiveFetcher
	Metrics     *metrics.Metrics
	Events      *Hub
}

// Server routes HTTP requests to the trainer and predictor.
type Server struct {
	store       *ml.ModelStore
	trainer     *ml.Trainer
	predictor   *ml.Predictor
	history     *ml.History
	predictions PredictionLog
	archive     ArchiveFetcher
	metrics     *metrics.Metrics
	events      *Hub
	limiter     *IPRateLimiter
	config      Config
	now         func() time.Time
}

// New creates a server. Deps.Store, Trainer, Predictor and Metrics are required.
func New(deps Deps, config Config) *Server {
	return &Server{
		store:       deps.Store,
		trainer:     deps.Trainer,
		predictor:   deps.Predictor,
		history:     deps.History,
		predictions: deps.Predictions,
		archive:     deps.Archive,
		metrics:     deps.Metrics,
		events:      deps.Events,
		limiter:     NewIPRateLimiter(config.TrainRateLimit, config.TrainRateBurst),
		config:      config,
		now:         time.Now,
	}
}

// Limiter returns the training rate limiter, so callers can run its cleanup.
func (s *Server) Limiter() *IPRateLimiter {
	return s.limiter
}

// Router builds the chi router with every route and middleware installed.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.jsonRecoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(requestLogger)
	r.Use(s.metrics.Middleware())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "NotFound", "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", r.Method+" is not allowed on "+r.URL.Path)
	})

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		limited := r.With(s.limiter.Middleware(s.metrics.RateLimited))
		limited.Post("/train", s.handleTrain)
		limited.Post("/train/archive", s.handleTrainArchive)
		r.Get("/train", s.handleHistory)

		r.Post("/predict", s.handlePredict)
		r.Post("/explain", s.handleExplain)
		r.Post("/predict-batch", s.handlePredictBatch)
		r.Post("/predict-csv", s.handlePredictCSV)
		r.Get("/predictions", s.handlePredictionLog)

		r.Get("/model-stats", s.handleModelStats)
		r.Delete("/model", s.handleDeleteModel)
		r.Get("/feature-importance", s.handleFeatureImportance)
		r.Get("/confusion-matrix", s.handleConfusionMatrix)

		r.Get("/download-template", s.handleDownloadTemplate)
		r.Get("/download-prediction-sample", s.handleDownloadPredictionSample)

		if s.events != nil {
			r.Method(http.MethodGet, "/events", s.events)
		}
	})

	return r
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// requestError is a client error with its status and kind.
type requestError struct {
	status int
	kind   string
	detail string
}

func (e *requestError) Error() string { return e.detail }

func badRequest(detail string) error {
	return &requestError{status: http.StatusBadRequest, kind: "BadRequest", detail: detail}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, detail string) {
	writeJSON(w, status, errorResponse{Error: kind, Detail: detail})
}

// handleError maps err to a status: request and training errors are client
// errors, anything else is a 500 with the detail withheld.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var re *requestError
	if errors.As(err, &re) {
		writeError(w, re.status, re.kind, re.detail)
		return
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "PayloadTooLarge", "request body exceeds the upload limit")
		return
	}

	if kind := ml.ErrorKind(err); kind != "" {
		writeError(w, http.StatusBadRequest, kind, err.Error())
		return
	}

	s.metrics.ErrorsTotal.Inc()
	log.Error().Err(err).
		Str("request_id", chiMiddleware.GetReqID(r.Context())).
		Str("path", r.URL.Path).
		Msg("Request failed")
	writeError(w, http.StatusInternalServerError, "InternalError", "internal error")
}

// jsonRecoverer turns a handler panic into a JSON 500.
func (s *Server) jsonRecoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				s.metrics.ErrorsTotal.Inc()
				log.Error().
					Interface("panic", rvr).
					Bytes("stack", debug.Stack()).
					Str("path", r.URL.Path).
					Msg("Panic recovered")
				writeError(w, http.StatusInternalServerError, "InternalError", "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requestLogger writes one log line per request and echoes the request ID.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := chiMiddleware.GetReqID(r.Context())
		if requestID != "" {
			w.Header().Set("X-Request-ID", requestID)
		}

		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("latency", time.Since(start)).
			Str("ip", r.RemoteAddr).
			Int("response_bytes", ww.BytesWritten()).
			Msg("http_request")
	})
}
