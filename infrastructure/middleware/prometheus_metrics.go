// Package middleware provides cross-cutting concerns for the advisory
// engine: Prometheus metrics, OpenTelemetry spans around operations and
// per-caller request rate limiting.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-agrisense/internal/application"
	"github.com/ahrav/go-agrisense/internal/ports"
)

// MetricOperations is the counter name the observer uses for operation
// outcomes. Its labels are "operation", "status" and "code".
const MetricOperations = "operations_total"

// Outcome statuses recorded on the operation counter.
const (
	StatusSuccess  = "success"
	StatusRejected = "rejected"
	StatusError    = "error"
)

const namespace = "agrisense"

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. It tracks operation latency and outcomes, the distribution
// of submitted ratings and the current template averages and expert
// reputations.
type PrometheusMetrics struct {
	operationLatency      *prometheus.HistogramVec
	operationCounter      *prometheus.CounterVec
	feedbackRatings       prometheus.Histogram
	templateAverageRating *prometheus.GaugeVec
	expertReputation      *prometheus.GaugeVec
	systemGauges          *prometheus.GaugeVec
	valueHistograms       *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a PrometheusMetrics instance and registers
// its collectors with reg. A nil reg registers with the global registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		operationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Execution time of advisory engine operations.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      MetricOperations,
				Help:      "Advisory engine operations by outcome and error code.",
			},
			[]string{"operation", "status", "code"},
		),
		feedbackRatings: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      application.MetricFeedbackRating,
				Help:      "Distribution of submitted feedback ratings.",
				Buckets:   prometheus.LinearBuckets(10, 10, 10),
			},
		),
		templateAverageRating: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      application.MetricTemplateAverageRating,
				Help:      "Current average rating of each rated template.",
			},
			[]string{"template_id"},
		),
		expertReputation: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      application.MetricExpertReputation,
				Help:      "Current reputation of each verified expert.",
			},
			[]string{"expert_id"},
		),
		systemGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "system_state",
				Help:      "Other point-in-time values reported by the engine.",
			},
			[]string{"metric"},
		),
		valueHistograms: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "value_distribution",
				Help:      "Distribution of other values reported by the engine.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"metric"},
		),
	}
}

// RecordLatency implements the MetricsCollector interface by recording
// execution latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	_ map[string]string,
) {
	pm.operationLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case MetricOperations:
		status := labels["status"]
		if status == "" {
			status = StatusSuccess
		}
		pm.operationCounter.WithLabelValues(labels["operation"], status, labels["code"]).Add(value)
	default:
		pm.operationCounter.WithLabelValues(metric, StatusSuccess, "").Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case application.MetricTemplateAverageRating:
		pm.templateAverageRating.WithLabelValues(labels["template_id"]).Set(value)
	case application.MetricExpertReputation:
		pm.expertReputation.WithLabelValues(labels["expert_id"]).Set(value)
	default:
		pm.systemGauges.WithLabelValues(metric).Set(value)
	}
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, _ map[string]string,
) {
	if metric == application.MetricFeedbackRating {
		pm.feedbackRatings.Observe(value)
		return
	}
	pm.valueHistograms.WithLabelValues(metric).Observe(value)
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
