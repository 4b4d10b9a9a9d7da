package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Sleeper waits for d. It returns ctx.Err() when ctx ends first and
// ErrStopped when stop is closed first. A nil stop channel never fires.
type Sleeper func(ctx context.Context, stop <-chan struct{}, d time.Duration) error

// TimerSleep is the default Sleeper. It suspends only the calling goroutine.
func TimerSleep(ctx context.Context, stop <-chan struct{}, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-stop:
		return ErrStopped
	case <-timer.C:
		return nil
	}
}

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	// Default: 3
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	// Default: 2s
	InitialDelay time.Duration

	// MaxDelay caps the maximum delay between retries.
	// Default: 60s
	MaxDelay time.Duration

	// Multiplier is the exponential backoff base.
	// Default: 2.0
	Multiplier float64

	// Jitter adds up to 25% randomness to each delay.
	// Default: false
	Jitter bool

	// RetryIf determines if an error should trigger a retry.
	// Errors marked Permanent are never retried regardless of RetryIf.
	// Default: all non-nil errors trigger retry.
	RetryIf func(err error) bool

	// OnRetry is called before each backoff wait.
	OnRetry func(attempt int, err error, delay time.Duration)

	// Stop aborts the sequence between attempts once closed.
	Stop <-chan struct{}

	// Sleep performs the backoff wait.
	// Default: TimerSleep
	Sleep Sleeper
}

// Retry implements retry with exponential backoff. It is a policy object:
// it holds no per-call state and is safe for concurrent use.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a new retry handler.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 2 * time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 60 * time.Second
	}
	if config.MaxDelay < config.InitialDelay {
		config.MaxDelay = config.InitialDelay
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.RetryIf == nil {
		config.RetryIf = func(err error) bool { return err != nil }
	}
	if config.Sleep == nil {
		config.Sleep = TimerSleep
	}

	return &Retry{config: config}
}

// Execute runs op until it succeeds, returns a non-retryable error, or the
// attempts are spent. Exhaustion yields a *RetryError carrying the last cause.
// Caller cancellation returns ctx.Err(); a closed Stop channel returns
// ErrStopped.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if attempt > 1 && r.stopped() {
			return ErrStopped
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if IsPermanent(err) {
			return unwrapPermanent(err)
		}
		if !r.config.RetryIf(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if attempt >= r.config.MaxAttempts {
			break
		}

		delay := r.calculateDelay(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		if err := r.config.Sleep(ctx, r.config.Stop, delay); err != nil {
			return err
		}
	}

	return &RetryError{Attempts: r.config.MaxAttempts, Last: lastErr}
}

func (r *Retry) stopped() bool {
	if r.config.Stop == nil {
		return false
	}
	select {
	case <-r.config.Stop:
		return true
	default:
		return false
	}
}

// calculateDelay returns the wait after the given 1-based failed attempt:
// InitialDelay * Multiplier^(attempt-1), capped at MaxDelay.
func (r *Retry) calculateDelay(attempt int) time.Duration {
	multiplier := math.Pow(r.config.Multiplier, float64(attempt-1))
	raw := float64(r.config.InitialDelay) * multiplier

	delay := r.config.MaxDelay
	if raw < float64(r.config.MaxDelay) {
		delay = time.Duration(raw)
	}

	if r.config.Jitter && delay > 0 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		jitter := time.Duration(rand.Int64N(int64(delay/4) + 1))
		delay += jitter
	}

	return delay
}

// Schedule returns the backoff waits between consecutive attempts, without
// jitter. Its length is MaxAttempts-1.
func (r *Retry) Schedule() []time.Duration {
	cfg := r.config
	cfg.Jitter = false
	plain := &Retry{config: cfg}

	delays := make([]time.Duration, 0, cfg.MaxAttempts-1)
	for attempt := 1; attempt < cfg.MaxAttempts; attempt++ {
		delays = append(delays, plain.calculateDelay(attempt))
	}
	return delays
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}
