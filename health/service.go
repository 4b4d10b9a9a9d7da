package health

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/memops/cache"
	"github.com/jonwraymond/memops/database"
	"github.com/jonwraymond/memops/observe"
)

const (
	// DefaultCacheTTL is how long a computed ServiceHealth is reused.
	DefaultCacheTTL = 30 * time.Second

	// DefaultDegradedWindow is how recent the last successful probe must be
	// for an unhealthy database to count as degraded.
	DefaultDegradedWindow = 5 * time.Minute

	// DefaultVersion is reported when no version is configured.
	DefaultVersion = "1.0.0"
)

// DatabaseSource exposes the database state the Service reads.
// *database.Manager satisfies it.
type DatabaseSource interface {
	Health() database.ConnectionHealth
	Stats() (database.PoolStats, error)
}

// Provider returns the current DatabaseSource.
type Provider func(ctx context.Context) (DatabaseSource, error)

// ManagerProvider adapts a function returning the live Manager, such as
// (*database.Lifecycle).Current. A nil Manager yields ErrNoDatabase.
func ManagerProvider(current func() *database.Manager) Provider {
	return func(context.Context) (DatabaseSource, error) {
		m := current()
		if m == nil {
			return nil, ErrNoDatabase
		}
		return m, nil
	}
}

// Option configures a Service.
type Option func(*Service)

// WithVersion sets the reported service version.
func WithVersion(v string) Option {
	return func(s *Service) {
		if v != "" {
			s.version = v
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithStartTime sets the instant uptime is measured from.
// Default: construction time
func WithStartTime(t time.Time) Option {
	return func(s *Service) { s.started = t }
}

// WithMemoryReader replaces RuntimeMemoryMB.
func WithMemoryReader(r MemoryReader) Option {
	return func(s *Service) { s.memory = r }
}

// WithCacheTTL overrides DefaultCacheTTL.
func WithCacheTTL(d time.Duration) Option {
	return func(s *Service) { s.cacheTTL = d }
}

// WithDegradedWindow overrides DefaultDegradedWindow.
func WithDegradedWindow(d time.Duration) Option {
	return func(s *Service) { s.degradedWindow = d }
}

// WithLogger sets the logger.
func WithLogger(l observe.Logger) Option {
	return func(s *Service) { s.logger = l.With(observe.Component("health")) }
}

// Service aggregates database health, uptime and memory usage into a
// ServiceHealth. It is safe for concurrent use.
type Service struct {
	provider       Provider
	version        string
	now            func() time.Time
	started        time.Time
	memory         MemoryReader
	cacheTTL       time.Duration
	degradedWindow time.Duration
	logger         observe.Logger

	cached *cache.Value[ServiceHealth]
	group  singleflight.Group
}

// NewService creates a Service reading database state from provider.
func NewService(provider Provider, opts ...Option) *Service {
	s := &Service{
		provider:       provider,
		version:        DefaultVersion,
		now:            time.Now,
		memory:         RuntimeMemoryMB,
		cacheTTL:       DefaultCacheTTL,
		degradedWindow: DefaultDegradedWindow,
		logger:         observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.started.IsZero() {
		s.started = s.now()
	}
	s.cached = cache.NewValue[ServiceHealth](s.cacheTTL, s.now)
	return s
}

// Version returns the reported service version.
func (s *Service) Version() string { return s.version }

// Uptime returns the time since the service started.
func (s *Service) Uptime() time.Duration { return s.now().Sub(s.started) }

// Status returns the service health. A value computed less than the cache
// TTL ago is returned unchanged unless force is set. Status never probes the
// database; it classifies the latest monitor snapshot. Failures to obtain
// the snapshot yield an unhealthy result instead of an error.
func (s *Service) Status(ctx context.Context, force bool) ServiceHealth {
	if force {
		return s.refresh(ctx)
	}
	if h, ok := s.cached.Fresh(); ok {
		return h
	}

	v, _, _ := s.group.Do("status", func() (any, error) {
		if h, ok := s.cached.Fresh(); ok {
			return h, nil
		}
		return s.refresh(ctx), nil
	})
	return v.(ServiceHealth)
}

func (s *Service) refresh(ctx context.Context) (h ServiceHealth) {
	defer func() {
		if r := recover(); r != nil {
			h = s.failed(ctx, fmt.Errorf("%w: %v", ErrPanic, r))
		}
	}()

	src, err := s.provider(ctx)
	if err != nil {
		return s.failed(ctx, err)
	}

	db := src.Health()
	h = ServiceHealth{
		Status:        s.classify(db),
		Timestamp:     s.now(),
		Uptime:        s.Uptime(),
		Database:      db,
		MemoryUsageMB: s.memory(),
		Version:       s.version,
	}
	s.cached.Store(h)
	return h
}

func (s *Service) classify(db database.ConnectionHealth) Status {
	switch {
	case db.Healthy:
		return StatusHealthy
	case !db.LastSuccess.IsZero() && s.now().Sub(db.LastSuccess) < s.degradedWindow:
		return StatusDegraded
	default:
		return StatusUnhealthy
	}
}

// failed builds an unhealthy result. It is not cached, so the next call
// tries again.
func (s *Service) failed(ctx context.Context, err error) ServiceHealth {
	s.logger.Warn(ctx, "health aggregation failed", observe.Err(err))

	now := s.now()
	return ServiceHealth{
		Status:    StatusUnhealthy,
		Timestamp: now,
		Uptime:    s.Uptime(),
		Database: database.ConnectionHealth{
			LastCheck: now,
			Error:     "health check failed: " + err.Error(),
		},
		MemoryUsageMB: s.safeMemory(),
		Version:       s.version,
	}
}

func (s *Service) safeMemory() (mb float64) {
	defer func() {
		if recover() != nil {
			mb = 0
		}
	}()
	return s.memory()
}
