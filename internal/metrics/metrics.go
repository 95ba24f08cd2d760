// Package metrics provides Prometheus metrics collection for the KOI
// classifier service. It defines prediction, training, storage and HTTP
// metrics that are exposed via the /metrics endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "koi"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Prediction metrics
	Predictions          *prometheus.CounterVec // Predictions served, by model_used
	PredictionLatency    prometheus.Histogram   // Prediction latency in seconds (single or whole batch)
	PredictionConfidence prometheus.Histogram   // Distribution of prediction confidence
	FallbackUse          prometheus.Counter     // Predictions served by the heuristic

	// Training metrics
	Trainings        prometheus.Counter     // Successful trainings
	TrainingFailures *prometheus.CounterVec // Rejected trainings, by error kind
	TrainingDuration prometheus.Histogram   // Training duration in seconds
	TrainingRows     prometheus.Gauge       // Labeled rows used by the current model
	ModelAccuracy    prometheus.Gauge       // Resubstitution accuracy of the current model
	ModelLoaded      prometheus.Gauge       // 1 when a trained model is loaded
	RowsSkipped      prometheus.Counter     // CSV rows dropped during ingestion

	// Transport metrics
	HTTPRequests        *prometheus.CounterVec   // HTTP requests by method, route and status
	HTTPRequestDuration *prometheus.HistogramVec // HTTP request duration by method, route and status
	RateLimited         prometheus.Counter       // Requests rejected by the rate limiter
	EventClients        prometheus.Gauge         // Connected websocket event clients
	ArchiveRequests     *prometheus.CounterVec   // Archive fetches by outcome

	// System metrics
	ErrorsTotal prometheus.Counter // Internal errors encountered

	gatherer prometheus.Gatherer
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
// When the registerer is also a Gatherer, Handler serves from it.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	gatherer := prometheus.DefaultGatherer
	if g, ok := registerer.(prometheus.Gatherer); ok {
		gatherer = g
	}

	return &Metrics{
		Predictions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Total number of predictions served",
		}, []string{"model_used"}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_latency_seconds",
			Help:      "Prediction latency in seconds (single candidate or whole batch)",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		PredictionConfidence: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_confidence",
			Help:      "Distribution of prediction confidence",
			Buckets:   prometheus.LinearBuckets(0.5, 0.05, 11),
		}),
		FallbackUse: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_use_total",
			Help:      "Total number of predictions served by the heuristic fallback",
		}),
		Trainings: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trainings_total",
			Help:      "Total number of successful trainings",
		}),
		TrainingFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "training_failures_total",
			Help:      "Total number of rejected trainings",
		}, []string{"kind"}),
		TrainingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "training_duration_seconds",
			Help:      "Training duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		TrainingRows: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "training_rows",
			Help:      "Labeled rows used to fit the current model",
		}),
		ModelAccuracy: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_accuracy",
			Help:      "Resubstitution accuracy of the current model",
		}),
		ModelLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_loaded",
			Help:      "1 when a trained model is loaded, 0 otherwise",
		}),
		RowsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_skipped_total",
			Help:      "Total number of CSV rows dropped during ingestion",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "path", "status"}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the rate limiter",
		}),
		EventClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_clients",
			Help:      "Connected websocket event clients",
		}),
		ArchiveRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_requests_total",
			Help:      "Total number of exoplanet archive fetches",
		}, []string{"outcome"}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of internal errors encountered",
		}),
		gatherer: gatherer,
	}
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// SetModelLoaded sets the model_loaded gauge.
func (m *Metrics) SetModelLoaded(loaded bool) {
	if loaded {
		m.ModelLoaded.Set(1)
		return
	}
	m.ModelLoaded.Set(0)
}
