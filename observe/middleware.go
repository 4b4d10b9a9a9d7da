package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// ExecuteFunc is the shape of a tool call as seen by Middleware.
type ExecuteFunc func(ctx context.Context, tool string, input any) (any, error)

// Middleware wraps tool calls with a span, metrics and a log line.
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe ExecuteFunc.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// Wrap wraps fn with tracing, metrics, and logging.
func (m *Middleware) Wrap(fn ExecuteFunc) ExecuteFunc {
	return func(ctx context.Context, tool string, input any) (any, error) {
		ctx, span := m.tracer.StartSpan(ctx, "mcp.tool."+tool, attribute.String("tool.name", tool))
		start := time.Now()

		result, err := fn(ctx, tool, input)

		duration := time.Since(start)
		m.tracer.EndSpan(span, err)
		m.metrics.RecordToolCall(ctx, tool, duration, err)

		fields := []Field{
			{Key: "tool", Value: tool},
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}
		if err != nil {
			m.logger.Error(ctx, "tool call failed", append(fields, Err(err))...)
		} else {
			m.logger.Debug(ctx, "tool call completed", fields...)
		}

		return result, err
	}
}

// MiddlewareFromObserver builds a Middleware from an Observer's providers.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
