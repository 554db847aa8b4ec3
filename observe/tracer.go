package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Tracer wraps OpenTelemetry tracing with fetch-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for one logical fetch.
	StartSpan(ctx context.Context, key string) (context.Context, trace.Span)

	// EndSpan ends the span, recording the result source and any error.
	EndSpan(span trace.Span, source string, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with the fetch key as an attribute.
func (t *tracerImpl) StartSpan(ctx context.Context, key string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "blockdata.fetch",
		trace.WithAttributes(attribute.String("blockdata.key", key)),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// EndSpan ends the span and records the outcome.
func (t *tracerImpl) EndSpan(span trace.Span, source string, err error) {
	span.SetAttributes(attribute.String("blockdata.source", source))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// nopTracer emits no spans.
type nopTracer struct {
	noop trace.Tracer
}

// NewNopTracer returns a Tracer that emits nothing.
func NewNopTracer() Tracer {
	return &nopTracer{noop: tracenoop.NewTracerProvider().Tracer("noop")}
}

func (t *nopTracer) StartSpan(ctx context.Context, key string) (context.Context, trace.Span) {
	return t.noop.Start(ctx, "blockdata.fetch")
}

func (t *nopTracer) EndSpan(span trace.Span, source string, err error) {
	span.End()
}

// Ensure implementations satisfy Tracer
var (
	_ Tracer = (*tracerImpl)(nil)
	_ Tracer = (*nopTracer)(nil)
)
