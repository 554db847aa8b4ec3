package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/BTCEnoch/blockdata/resilience"
)

// Metrics records fetch outcomes.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordFetch records one logical fetch with its result source,
	// duration, and error status.
	RecordFetch(ctx context.Context, source string, duration time.Duration, err error)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewMetrics creates a Metrics instance recording through the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		"blockdata.fetch.total",
		metric.WithDescription("Total number of logical fetches"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"blockdata.fetch.errors",
		metric.WithDescription("Total number of failed fetches"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"blockdata.fetch.duration",
		metric.WithDescription("Duration of logical fetches"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
	}, nil
}

// RecordFetch records one logical fetch.
func (m *metricsImpl) RecordFetch(ctx context.Context, source string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("source", source),
		attribute.Bool("error", err != nil),
	}

	m.totalCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.durationHist.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if err != nil {
		m.errorCount.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", resilience.Classify(err).String()),
		))
	}
}

// nopMetrics discards everything.
type nopMetrics struct{}

// NewNopMetrics returns a Metrics that discards all recordings.
func NewNopMetrics() Metrics {
	return nopMetrics{}
}

func (nopMetrics) RecordFetch(context.Context, string, time.Duration, error) {}

// Ensure implementations satisfy Metrics
var (
	_ Metrics = (*metricsImpl)(nil)
	_ Metrics = nopMetrics{}
)
