package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jonwraymond/memops/observe"
	"github.com/jonwraymond/memops/resilience"
)

const (
	// monitorRecoveryDelay is the pause after a failed monitor iteration.
	monitorRecoveryDelay = 5 * time.Second

	// discardTimeout bounds closing a broken connection.
	discardTimeout = 5 * time.Second
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Default: observe.NopLogger().
func WithLogger(l observe.Logger) Option {
	return func(m *Manager) { m.logger = l.With(observe.Component("database")) }
}

// WithMetrics sets the metrics sink. Default: observe.NopMetrics().
func WithMetrics(mt observe.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithTracer sets the tracer. Default: observe.NopTracer().
func WithTracer(t observe.Tracer) Option {
	return func(m *Manager) { m.tracer = t }
}

// WithConnector replaces the pool factory. Default: PGXConnector.
func WithConnector(c Connector) Option {
	return func(m *Manager) { m.connector = c }
}

// WithBackoffSleep replaces the wait between acquisition attempts.
// Default: resilience.TimerSleep.
func WithBackoffSleep(s resilience.Sleeper) Option {
	return func(m *Manager) { m.sleep = s }
}

// WithClock sets the clock used for snapshot timestamps. Default: time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager owns a connection pool, its health monitor and the retrying
// acquisition path. The zero value is not usable; call New.
type Manager struct {
	cfg       Config
	connector Connector
	logger    observe.Logger
	metrics   observe.Metrics
	tracer    observe.Tracer
	sleep     resilience.Sleeper
	now       func() time.Time
	retry     *resilience.Retry

	recoveryDelay time.Duration

	// initMu serializes Initialize and Close.
	initMu sync.Mutex

	mu     sync.RWMutex
	pool   Pool
	closed bool

	health atomic.Pointer[ConnectionHealth]
	state  atomic.Int32

	stop          chan struct{}
	stopOnce      sync.Once
	cancelMonitor context.CancelFunc
	monitorDone   chan struct{}
}

// New creates a Manager for cfg. No connection is opened until Initialize.
func New(cfg Config, opts ...Option) *Manager {
	m := &Manager{
		cfg:           cfg,
		connector:     PGXConnector,
		logger:        observe.NopLogger(),
		metrics:       observe.NopMetrics(),
		tracer:        observe.NopTracer(),
		sleep:         resilience.TimerSleep,
		now:           time.Now,
		recoveryDelay: monitorRecoveryDelay,
		stop:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.health.Store(&ConnectionHealth{})
	m.retry = resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  cfg.RetryAttempts,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     cfg.MaxRetryDelay,
		Multiplier:   2,
		Stop:         m.stop,
		Sleep:        m.sleep,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			m.logger.Info(context.Background(), "retrying database connection",
				observe.Field{Key: "attempt", Value: attempt},
				observe.Field{Key: "delay_s", Value: delay.Seconds()},
			)
		},
	})
	return m
}

// Config returns the configuration the Manager was built with.
func (m *Manager) Config() Config { return m.cfg }

// Initialize opens the pool, verifies it with one probe and starts the
// health monitor. A failed probe closes the pool again and is returned as
// an error; the Manager may be initialized again afterwards.
func (m *Manager) Initialize(ctx context.Context) error {
	m.initMu.Lock()
	defer m.initMu.Unlock()

	if err := m.cfg.Validate(); err != nil {
		return err
	}

	m.mu.RLock()
	closed, open := m.closed, m.pool != nil
	m.mu.RUnlock()
	switch {
	case closed:
		return ErrClosed
	case open:
		return ErrAlreadyInitialized
	}

	pool, err := m.connector(ctx, m.cfg)
	if err != nil {
		m.logger.Error(ctx, "failed to initialize database connection pool", observe.Err(err))
		return fmt.Errorf("database: open pool: %w", err)
	}

	m.mu.Lock()
	m.pool = pool
	m.mu.Unlock()

	if !m.Probe(ctx) {
		m.mu.Lock()
		m.pool = nil
		m.mu.Unlock()
		pool.Close()

		h := m.Health()
		m.logger.Error(ctx, "database connection test failed", observe.Field{Key: "reason", Value: h.Error})
		return fmt.Errorf("database: initial health check failed: %s", h.Error)
	}

	m.startMonitor()
	m.logger.Info(ctx, "database connection pool initialized",
		observe.Field{Key: "min_conns", Value: m.cfg.MinConns},
		observe.Field{Key: "max_conns", Value: m.cfg.MaxConns},
	)
	return nil
}

// currentPool returns the open pool, or ErrNotInitialized / ErrClosed.
func (m *Manager) currentPool() (Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	switch {
	case m.pool != nil:
		return m.pool, nil
	case m.closed:
		return nil, ErrClosed
	default:
		return nil, ErrNotInitialized
	}
}

// Probe runs SELECT 1 on one connection and publishes the result as the new
// health snapshot. It reports whether the database answered. Probe never
// panics and never returns an error; failures are logged at warn level.
func (m *Manager) Probe(ctx context.Context) (healthy bool) {
	ctx, span := m.tracer.StartSpan(ctx, "db.probe")
	start := time.Now()

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("probe panic: %v", r)
			healthy = false
			m.publish(ctx, err, time.Since(start))
		}
		m.tracer.EndSpan(span, err)
	}()

	err = m.probe(ctx)
	m.publish(ctx, err, time.Since(start))
	return err == nil
}

func (m *Manager) probe(ctx context.Context) error {
	pool, err := m.currentPool()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.AcquireTimeout)
	defer cancel()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer m.finish(conn)

	_, err = conn.Exec(ctx, "SELECT 1")
	return err
}

func (m *Manager) publish(ctx context.Context, err error, elapsed time.Duration) {
	prev := m.health.Load()
	next := ConnectionHealth{
		LastCheck:    m.now(),
		LastSuccess:  prev.LastSuccess,
		ResponseTime: elapsed,
	}

	if pool, perr := m.currentPool(); perr == nil {
		c := pool.Stat()
		next.ActiveConns = int(c.Acquired)
		next.TotalConns = int(c.Total)
	}

	if err == nil {
		next.Healthy = true
		next.LastSuccess = next.LastCheck
	} else {
		next.Error = "database health check failed: " + err.Error()
	}
	m.health.Store(&next)
	m.metrics.RecordProbe(ctx, next.Healthy, elapsed)

	if next.Healthy {
		m.logger.Debug(ctx, "database health check passed",
			observe.Field{Key: "response_time_ms", Value: next.ResponseTimeMS()})
	} else {
		m.logger.Warn(ctx, "database health check failed", observe.Err(err))
	}
}

// Health returns the latest snapshot. Before the first probe it is the
// unhealthy zero value.
func (m *Manager) Health() ConnectionHealth {
	return *m.health.Load()
}

// Stats reports pool occupancy.
func (m *Manager) Stats() (PoolStats, error) {
	pool, err := m.currentPool()
	if err != nil {
		return PoolStats{}, ErrNotInitialized
	}
	return statsFrom(m.cfg, pool.Stat()), nil
}

// Close stops the monitor, aborts pending acquisition retries and closes the
// pool. It is safe to call more than once and before Initialize.
func (m *Manager) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })

	m.initMu.Lock()
	defer m.initMu.Unlock()

	m.mu.Lock()
	pool := m.pool
	m.pool = nil
	m.closed = true
	cancel, done := m.cancelMonitor, m.monitorDone
	m.cancelMonitor, m.monitorDone = nil, nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if pool != nil {
		m.logger.Info(context.Background(), "closing database connection pool")
		pool.Close()
	}
	return nil
}

// finish returns conn to the pool, or discards it if it is broken.
func (m *Manager) finish(conn Conn) {
	if conn.IsClosed() {
		m.discard(conn)
		return
	}
	conn.Release()
}

func (m *Manager) discard(conn Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), discardTimeout)
	defer cancel()
	conn.Discard(ctx)
}

// isPermanent reports server errors that another attempt cannot fix:
// rejected credentials (class 28) and a missing database (class 3D).
func isPermanent(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || len(pgErr.Code) < 2 {
		return false
	}
	switch pgErr.Code[:2] {
	case "28", "3D":
		return true
	}
	return false
}

func attemptAttr(n int) attribute.KeyValue {
	return attribute.Int("db.acquire.attempts", n)
}
