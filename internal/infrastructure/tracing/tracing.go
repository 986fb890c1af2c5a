// Package tracing provides a thin OpenTelemetry tracer accessor for
// instrumenting simulation runs, DP solves, and storage calls. It
// deliberately stops at the API surface (otel, otel/trace): wiring an
// actual exporter is a deployment concern outside this module's scope.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/rijnland-waterbeheer/peilbeheer"

// Tracer returns the process-wide tracer. If nothing has called
// otel.SetTracerProvider, this resolves to the library's own built-in
// no-op implementation, so callers never need to nil-check it.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// Disable installs an explicit no-op provider, useful in tests that
// want to assert no tracing side effects occur.
func Disable() {
	otel.SetTracerProvider(noop.NewTracerProvider())
}

// StartSpan starts a new span from ctx under the shared tracer.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// SpanFromContext returns the span carried by ctx, or a no-op span if
// none is present.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddSpanEvent records a named event on ctx's span if it is recording.
func AddSpanEvent(ctx context.Context, name string, attrs ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent(name, attrs...)
	}
}

// RecordError records err on ctx's span if it is recording.
func RecordError(ctx context.Context, err error, opts ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.RecordError(err, opts...)
	}
}
