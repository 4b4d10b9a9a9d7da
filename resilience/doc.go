// Package resilience provides the failure-handling primitives used around
// the database and the memory service's remote calls.
//
// Retry runs an operation a bounded number of times with capped exponential
// backoff. Its wait is pluggable (Sleeper) and observes both the caller's
// context and an optional stop channel, so a shutting-down manager never
// leaves a goroutine parked in a backoff.
//
//	r := resilience.NewRetry(resilience.RetryConfig{
//	    MaxAttempts:  3,
//	    InitialDelay: 2 * time.Second,
//	    MaxDelay:     60 * time.Second,
//	})
//	err := r.Execute(ctx, func(ctx context.Context) error {
//	    return acquire(ctx)
//	})
//
// Circuit breaker, bulkhead and timeout compose through a Guard. A Guard
// never retries.
//
//	g := resilience.NewGuard(
//	    resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 8})),
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Name: "embedder"})),
//	    resilience.WithTimeout(10*time.Second),
//	)
//	vec, err := resilience.Do(ctx, g, embed)
package resilience
