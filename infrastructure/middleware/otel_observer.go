package middleware

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-agrisense/internal/domain"
	"github.com/ahrav/go-agrisense/internal/ports"
)

// TracerName identifies the spans emitted by OTelObserver.
const TracerName = "agrisense/advisor"

var _ ports.OperationObserver = (*OTelObserver)(nil)

// OTelObserver implements observability for advisory operations using
// OpenTelemetry tracing. It opens one span per operation, tags it with the
// operation attributes and the resulting error code, and forwards latency
// and outcome to a metrics collector.
type OTelObserver struct {
	tracer  trace.Tracer
	metrics ports.MetricsCollector
	now     func() time.Time
}

// NewOTelObserver creates an observer that traces through the global
// tracer provider and reports to metrics. A nil metrics disables metric
// reporting.
func NewOTelObserver(metrics ports.MetricsCollector) *OTelObserver {
	return NewOTelObserverWithTracer(otel.Tracer(TracerName), metrics)
}

// NewOTelObserverWithTracer creates an observer that uses tracer.
func NewOTelObserverWithTracer(tracer trace.Tracer, metrics ports.MetricsCollector) *OTelObserver {
	return &OTelObserver{tracer: tracer, metrics: metrics, now: time.Now}
}

// Start implements the OperationObserver interface. It starts a span named
// "Advisor.<operation>" and returns a function that finalizes the span and
// records metrics.
func (o *OTelObserver) Start(
	ctx context.Context,
	operation string,
	attrs map[string]string,
) (context.Context, func(error)) {
	started := o.now()
	ctx, span := o.tracer.Start(ctx, "Advisor."+operation,
		trace.WithAttributes(spanAttributes(operation, attrs)...))

	return ctx, func(err error) {
		defer span.End()

		status := outcome(err)
		code := ""
		if err != nil {
			code = domain.CodeOf(err)
			span.SetAttributes(
				attribute.String("advisor.error_code", code),
				attribute.String("advisor.error_kind", domain.KindOf(err).String()),
			)
		}

		switch status {
		case StatusSuccess:
			span.SetStatus(codes.Ok, "")
		case StatusRejected:
			span.AddEvent("advisor.rejected", trace.WithAttributes(attribute.String("code", code)))
			span.SetStatus(codes.Error, code)
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}

		if o.metrics == nil {
			return
		}
		o.metrics.RecordLatency(operation, o.now().Sub(started), nil)
		o.metrics.RecordCounter(MetricOperations, 1, map[string]string{
			"operation": operation,
			"status":    status,
			"code":      code,
		})
	}
}

// outcome classifies err for the operation counter. Errors carrying a
// domain code other than an internal one are rejections of the request.
func outcome(err error) string {
	if err == nil {
		return StatusSuccess
	}
	var coded *domain.CodedError
	if errors.As(err, &coded) && coded.Kind != domain.KindInternal {
		return StatusRejected
	}
	return StatusError
}

// spanAttributes converts the operation attributes into span attributes
// in key order.
func spanAttributes(operation string, attrs map[string]string) []attribute.KeyValue {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kv := make([]attribute.KeyValue, 0, len(keys)+1)
	kv = append(kv, attribute.String("advisor.operation", operation))
	for _, k := range keys {
		kv = append(kv, attribute.String("advisor."+k, attrs[k]))
	}
	return kv
}
