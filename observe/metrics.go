package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records database and tool-call measurements.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordProbe records one health probe.
	RecordProbe(ctx context.Context, healthy bool, latency time.Duration)

	// RecordAcquire records one connection acquisition, successful or not.
	RecordAcquire(ctx context.Context, attempts int, wait time.Duration, err error)

	// RecordToolCall records one MCP tool invocation.
	RecordToolCall(ctx context.Context, tool string, duration time.Duration, err error)
}

type metricsImpl struct {
	probeTotal    metric.Int64Counter
	probeLatency  metric.Float64Histogram
	acquireTotal  metric.Int64Counter
	acquireWait   metric.Float64Histogram
	acquireTries  metric.Int64Histogram
	toolTotal     metric.Int64Counter
	toolErrors    metric.Int64Counter
	toolDurations metric.Float64Histogram
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	m := &metricsImpl{}
	var err error

	if m.probeTotal, err = meter.Int64Counter("db.probe.total",
		metric.WithDescription("Health probes by outcome"),
		metric.WithUnit("{probe}"),
	); err != nil {
		return nil, err
	}
	if m.probeLatency, err = meter.Float64Histogram("db.probe.latency_ms",
		metric.WithDescription("Health probe round-trip in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.acquireTotal, err = meter.Int64Counter("db.acquire.total",
		metric.WithDescription("Connection acquisitions by outcome"),
		metric.WithUnit("{acquire}"),
	); err != nil {
		return nil, err
	}
	if m.acquireWait, err = meter.Float64Histogram("db.acquire.wait_ms",
		metric.WithDescription("Time to obtain a verified connection, including backoff"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.acquireTries, err = meter.Int64Histogram("db.acquire.attempts",
		metric.WithDescription("Attempts used per acquisition"),
		metric.WithUnit("{attempt}"),
	); err != nil {
		return nil, err
	}
	if m.toolTotal, err = meter.Int64Counter("mcp.tool.total",
		metric.WithDescription("Total number of tool calls"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}
	if m.toolErrors, err = meter.Int64Counter("mcp.tool.errors",
		metric.WithDescription("Total number of failed tool calls"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}
	if m.toolDurations, err = meter.Float64Histogram("mcp.tool.duration_ms",
		metric.WithDescription("Tool call duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func outcome(ok bool) attribute.KeyValue {
	if ok {
		return attribute.String("outcome", "success")
	}
	return attribute.String("outcome", "failure")
}

func (m *metricsImpl) RecordProbe(ctx context.Context, healthy bool, latency time.Duration) {
	opt := metric.WithAttributes(outcome(healthy))
	m.probeTotal.Add(ctx, 1, opt)
	m.probeLatency.Record(ctx, float64(latency.Microseconds())/1000, opt)
}

func (m *metricsImpl) RecordAcquire(ctx context.Context, attempts int, wait time.Duration, err error) {
	opt := metric.WithAttributes(outcome(err == nil))
	m.acquireTotal.Add(ctx, 1, opt)
	m.acquireWait.Record(ctx, float64(wait.Microseconds())/1000, opt)
	m.acquireTries.Record(ctx, int64(attempts), opt)
}

func (m *metricsImpl) RecordToolCall(ctx context.Context, tool string, duration time.Duration, err error) {
	opt := metric.WithAttributes(attribute.String("tool.name", tool))
	m.toolTotal.Add(ctx, 1, opt)
	if err != nil {
		m.toolErrors.Add(ctx, 1, opt)
	}
	m.toolDurations.Record(ctx, float64(duration.Milliseconds()), opt)
}

type noopMetrics struct{}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics { return noopMetrics{} }

func (noopMetrics) RecordProbe(context.Context, bool, time.Duration)             {}
func (noopMetrics) RecordAcquire(context.Context, int, time.Duration, error)     {}
func (noopMetrics) RecordToolCall(context.Context, string, time.Duration, error) {}
