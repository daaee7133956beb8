// Package metrics declares the Prometheus collectors of the serving
// daemon. Collectors are package-level and self-registering; callers
// update them directly from wherever the observed event happens.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	kreg "github.com/YounessBoumeshouli/MLOps/pkg/registry"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "api_requests_total",
		Help: "API requests by method, route and status code",
	}, []string{"method", "endpoint", "status"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "api_request_duration_seconds",
		Help:    "API request latency by method and route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	APIErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "api_errors_total",
		Help: "API errors by route and error kind",
	}, []string{"endpoint", "error_type"})

	PredictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predictions_total",
		Help: "Served predictions by model version",
	}, []string{"model_version"})

	PredictionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prediction_duration_seconds",
		Help:    "In-process inference latency",
		Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	})

	ModelReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "model_reloads_total",
		Help: "Model load attempts by outcome",
	}, []string{"outcome"})

	TrainingAccuracy = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "model_training_accuracy",
		Help: "Training accuracy of the served model version",
	}, []string{"model_version"})

	TrainingPrecision = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "model_training_precision",
		Help: "Training precision of the served model version",
	}, []string{"model_version"})

	TrainingRecall = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "model_training_recall",
		Help: "Training recall of the served model version",
	}, []string{"model_version"})

	TrainingF1 = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "model_training_f1_score",
		Help: "Training F1 score of the served model version",
	}, []string{"model_version"})

	PredictionLogDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prediction_log_dropped_total",
		Help: "Prediction log records dropped because the queue was full",
	})
)

// error_type label values of APIErrors.
const (
	ErrorTypeInvalidInput       = "invalid_input"
	ErrorTypeServiceUnavailable = "service_unavailable"
	ErrorTypeInferenceError     = "inference_error"
)

// outcome label values of ModelReloads. Failures are labeled by
// ReloadOutcome.
const (
	OutcomeOK   = "ok"
	OutcomeNoop = "noop"
)

// ReloadOutcome maps a load result onto the outcome label of
// ModelReloads. nil maps to OutcomeOK; reporting a load which kept
// the served version as OutcomeNoop is the caller's business.
func ReloadOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, kreg.ErrNoProductionVersion):
		return "no_production_version"
	case errors.Is(err, kreg.ErrUnavailable):
		return "registry_unavailable"
	case errors.Is(err, kreg.ErrCorruptArtifact):
		return "artifact_corrupt"
	default:
		return "error"
	}
}

// SetTrainingMetrics publishes the training metrics of the served
// version on their gauges. Unknown metric names are ignored.
func SetTrainingMetrics(version string, values map[string]float64) {
	for name, gauge := range map[string]*prometheus.GaugeVec{
		"accuracy":  TrainingAccuracy,
		"precision": TrainingPrecision,
		"recall":    TrainingRecall,
		"f1_score":  TrainingF1,
	} {
		if value, ok := values[name]; ok {
			gauge.WithLabelValues(version).Set(value)
		}
	}
}
