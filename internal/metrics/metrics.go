package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request counter
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// HTTP request duration histogram
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	// Active HTTP connections gauge
	HTTPActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)

	// Business logic metrics
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_predictions_total",
			Help: "Total number of admission prediction requests",
		},
		[]string{"result"}, // "admitted", "not_admitted", "validation_failed", "invalid_json"
	)

	PredictionProbability = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "admission_prediction_probability",
			Help:    "Distribution of predicted admission probabilities",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	PipelineStepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_step_duration_seconds",
			Help:    "Time spent in each batch pipeline step",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step", "status"},
	)
)

// RecordHTTPRequest records metrics for an HTTP request
func RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)

	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
}

// RecordPrediction records the outcome of one prediction request
func RecordPrediction(result string) {
	PredictionsTotal.WithLabelValues(result).Inc()
}

// RecordPredictionProbability records a served admission probability
func RecordPredictionProbability(probability float64) {
	PredictionProbability.Observe(probability)
}

// RecordPipelineStep records a completed batch pipeline step
func RecordPipelineStep(step, status string, duration time.Duration) {
	PipelineStepDuration.WithLabelValues(step, status).Observe(duration.Seconds())
}

// IncActiveConnections increments active connections
func IncActiveConnections() {
	HTTPActiveConnections.Inc()
}

// DecActiveConnections decrements active connections
func DecActiveConnections() {
	HTTPActiveConnections.Dec()
}
