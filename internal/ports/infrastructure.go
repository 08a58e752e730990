// Package ports defines the interfaces that form the contract between the
// domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

import (
	"context"
	"time"
)

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus, OpenTelemetry, or custom monitoring solutions.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	// This is useful for tracking events like accepted or rejected operations.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	// This is useful for tracking values like a template's average rating
	// or an expert's reputation.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	// This is useful for tracking distributions like submitted ratings.
	RecordHistogram(metric string, value float64, labels map[string]string)
}

// OperationObserver provides observability hooks around engine operations.
// Implementations can add tracing, metrics, and logging without coupling
// observability concerns to the engine itself.
type OperationObserver interface {
	// Start is called before the operation runs. The returned context is
	// passed to the operation and the returned function is invoked exactly
	// once with the operation's final error.
	//
	// Example:
	//
	//	ctx, done := observer.Start(ctx, "SubmitFeedback", map[string]string{"caller": caller})
	//	err := run(ctx)
	//	done(err)
	Start(ctx context.Context, operation string, attrs map[string]string) (context.Context, func(err error))
}

// ConfigLoader defines the interface for loading configuration.
// Implementations could read from files, environment variables,
// remote configuration services, or a combination of sources.
type ConfigLoader interface {
	// Load reads configuration from the underlying source.
	// It should populate the provided configuration struct.
	// The config parameter should be a pointer to a struct.
	//
	// Example:
	//
	//	var config AppConfig
	//	err := loader.Load(ctx, &config)
	Load(ctx context.Context, config any) error
}
