package database

import (
	"context"
	"errors"
	"time"

	"github.com/jonwraymond/memops/observe"
	"github.com/jonwraymond/memops/resilience"
)

// Acquire returns a connection that has just answered a ping. The caller
// owns it and must Release it, or Discard it if it misbehaves; WithConn
// does both automatically.
//
// Failed attempts are retried with capped exponential backoff up to
// Config.RetryAttempts. Exhaustion returns an *AcquireError matching
// ErrUnavailable. ErrNotInitialized, ErrClosed, rejected credentials and
// caller cancellation are returned at once.
func (m *Manager) Acquire(ctx context.Context) (Conn, error) {
	ctx, span := m.tracer.StartSpan(ctx, "db.acquire")
	start := time.Now()

	var (
		conn     Conn
		attempts int
	)
	err := m.retry.Execute(ctx, func(ctx context.Context) error {
		attempts++
		c, err := m.tryAcquire(ctx)
		if err != nil {
			m.logger.Warn(ctx, "database connection attempt failed",
				observe.Field{Key: "attempt", Value: attempts},
				observe.Err(err),
			)
			return err
		}
		conn = c
		return nil
	})
	err = m.acquireError(err)

	span.SetAttributes(attemptAttr(attempts))
	m.tracer.EndSpan(span, err)
	m.metrics.RecordAcquire(ctx, attempts, time.Since(start), err)

	if err != nil {
		var ae *AcquireError
		if errors.As(err, &ae) {
			m.logger.Error(ctx, "database unavailable", observe.Err(err))
		}
		return nil, err
	}
	m.logger.Debug(ctx, "database connection acquired")
	return conn, nil
}

func (m *Manager) tryAcquire(ctx context.Context) (Conn, error) {
	pool, err := m.currentPool()
	if err != nil {
		return nil, resilience.Permanent(err)
	}

	actx, cancel := context.WithTimeout(ctx, m.cfg.AcquireTimeout)
	defer cancel()

	conn, err := pool.Acquire(actx)
	if err != nil {
		if isPermanent(err) {
			return nil, resilience.Permanent(err)
		}
		return nil, err
	}

	if err := conn.Ping(actx); err != nil {
		m.discard(conn)
		return nil, err
	}
	return conn, nil
}

// acquireError maps retry outcomes onto this package's errors.
func (m *Manager) acquireError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, resilience.ErrStopped) {
		return ErrClosed
	}
	var re *resilience.RetryError
	if errors.As(err, &re) {
		return &AcquireError{Attempts: re.Attempts, Err: re.Last}
	}
	return err
}

// WithConn acquires a connection, runs fn with it and always gives it back:
// released when healthy, discarded when fn left it closed or panicked.
// Errors from fn are returned as is and never retried.
func (m *Manager) WithConn(ctx context.Context, fn func(ctx context.Context, conn Conn) error) error {
	conn, err := m.Acquire(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			m.discard(conn)
			panic(r)
		}
		m.finish(conn)
	}()

	return fn(ctx, conn)
}
