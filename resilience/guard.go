package resilience

import (
	"context"
	"time"
)

// Guard composes the non-retrying patterns around a remote call. Retries are
// deliberately absent: only database connection acquisition retries, and it
// uses Retry directly.
type Guard struct {
	bulkhead *Bulkhead
	breaker  *CircuitBreaker
	timeout  *Timeout
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// NewGuard creates a Guard. With no options it runs operations unchanged.
func NewGuard(opts ...GuardOption) *Guard {
	g := &Guard{}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// WithBulkhead bounds concurrency.
func WithBulkhead(b *Bulkhead) GuardOption {
	return func(g *Guard) { g.bulkhead = b }
}

// WithCircuitBreaker fails fast while the dependency is down.
func WithCircuitBreaker(cb *CircuitBreaker) GuardOption {
	return func(g *Guard) { g.breaker = cb }
}

// WithTimeout bounds each call.
func WithTimeout(d time.Duration) GuardOption {
	return func(g *Guard) { g.timeout = NewTimeout(TimeoutConfig{Timeout: d}) }
}

// Execute runs op inside bulkhead, then breaker, then timeout.
// A timed-out call counts as a breaker failure.
func (g *Guard) Execute(ctx context.Context, op func(context.Context) error) error {
	run := op

	if g.timeout != nil {
		inner := run
		run = func(ctx context.Context) error { return g.timeout.Execute(ctx, inner) }
	}
	if g.breaker != nil {
		inner := run
		run = func(ctx context.Context) error { return g.breaker.Execute(ctx, inner) }
	}
	if g.bulkhead != nil {
		inner := run
		run = func(ctx context.Context) error { return g.bulkhead.Execute(ctx, inner) }
	}

	return run(ctx)
}

// Do is Guard.Execute for operations that produce a value.
func Do[T any](ctx context.Context, g *Guard, op func(context.Context) (T, error)) (T, error) {
	var out T
	err := g.Execute(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err == nil {
			out = v
		}
		return err
	})
	return out, err
}

// Breaker returns the configured circuit breaker, or nil.
func (g *Guard) Breaker() *CircuitBreaker { return g.breaker }

// Bulkhead returns the configured bulkhead, or nil.
func (g *Guard) Bulkhead() *Bulkhead { return g.bulkhead }
