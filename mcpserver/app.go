package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jonwraymond/memops/cache"
	"github.com/jonwraymond/memops/config"
	"github.com/jonwraymond/memops/database"
	"github.com/jonwraymond/memops/health"
	"github.com/jonwraymond/memops/memory"
	"github.com/jonwraymond/memops/memory/embed"
	"github.com/jonwraymond/memops/memory/pgstore"
	"github.com/jonwraymond/memops/observe"
	"github.com/jonwraymond/memops/resilience"
)

// ErrStartup wraps every failure of Start.
var ErrStartup = errors.New("failed to initialize memory service")

const (
	embedTimeout        = 30 * time.Second
	embedCacheEntries   = 1024
	embedBreakerFails   = 5
	embedBreakerCooloff = 30 * time.Second
)

// App is the state shared by all tool calls for the lifetime of the server.
type App struct {
	Config config.Config
	Memory *memory.Service
	Health *health.Service
	DB     *database.Lifecycle
	Logger observe.Logger
}

// StartOption configures Start.
type StartOption func(*startOptions)

type startOptions struct {
	logger   observe.Logger
	metrics  observe.Metrics
	tracer   observe.Tracer
	dbOpts   []database.Option
	embedder memory.Embedder
	store    memory.Store
}

// WithLogger sets the logger handed to every component.
func WithLogger(l observe.Logger) StartOption {
	return func(o *startOptions) { o.logger = l }
}

// WithTelemetry records database probes and acquisitions.
func WithTelemetry(m observe.Metrics, t observe.Tracer) StartOption {
	return func(o *startOptions) {
		o.metrics = m
		o.tracer = t
	}
}

// WithDatabaseOptions adds options for the database Manager.
func WithDatabaseOptions(opts ...database.Option) StartOption {
	return func(o *startOptions) { o.dbOpts = append(o.dbOpts, opts...) }
}

// WithEmbedder replaces the embedder selected from the configuration.
func WithEmbedder(e memory.Embedder) StartOption {
	return func(o *startOptions) { o.embedder = e }
}

// WithStore replaces the pgvector store. The database is then not
// initialized by Start.
func WithStore(s memory.Store) StartOption {
	return func(o *startOptions) { o.store = s }
}

// Start builds the App. On failure everything already opened is closed and
// the error wraps ErrStartup.
func Start(ctx context.Context, cfg config.Config, opts ...StartOption) (*App, error) {
	o := startOptions{logger: observe.NopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.With(observe.Component("mcpserver"))

	dbOpts := []database.Option{database.WithLogger(o.logger)}
	if o.metrics != nil {
		dbOpts = append(dbOpts, database.WithMetrics(o.metrics))
	}
	if o.tracer != nil {
		dbOpts = append(dbOpts, database.WithTracer(o.tracer))
	}
	dbOpts = append(dbOpts, o.dbOpts...)
	lc := database.NewLifecycle(func() (database.Config, error) {
		return cfg.Database, cfg.Database.Validate()
	}, dbOpts...)

	fail := func(err error) (*App, error) {
		_ = lc.Close()
		return nil, fmt.Errorf("%w: %w", ErrStartup, err)
	}

	embedder := o.embedder
	if embedder == nil {
		e, err := embed.New(embedSettings(cfg))
		if err != nil {
			return fail(err)
		}
		loader := cache.NewLoader(cache.NewMemoryCache(cache.WithMaxEntries(embedCacheEntries)), nil, cache.DefaultPolicy())
		embedder = embed.NewCached(e, loader)
	}

	store := o.store
	if store == nil {
		mgr, err := lc.Get(ctx)
		if err != nil {
			return fail(err)
		}
		pg, err := pgstore.New(mgr, embedder.Dims())
		if err != nil {
			return fail(err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			return fail(err)
		}
		store = pg
	}

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:         "embedder",
		MaxFailures:  embedBreakerFails,
		ResetTimeout: embedBreakerCooloff,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn(context.Background(), "circuit breaker state changed",
				observe.Field{Key: "breaker", Value: name},
				observe.Field{Key: "from", Value: from.String()},
				observe.Field{Key: "to", Value: to.String()},
			)
		},
	})
	guard := resilience.NewGuard(
		resilience.WithCircuitBreaker(breaker),
		resilience.WithTimeout(embedTimeout),
	)

	app := &App{
		Config: cfg,
		Memory: memory.NewService(store, embedder,
			memory.WithLogger(o.logger),
			memory.WithEmbedGuard(guard),
		),
		Health: health.NewService(health.ManagerProvider(lc.Current),
			health.WithVersion(cfg.Observe.Version),
			health.WithLogger(o.logger),
		),
		DB:     lc,
		Logger: logger,
	}
	logger.Info(ctx, "memory service initialized",
		observe.Field{Key: "provider", Value: cfg.LLM.Provider},
		observe.Field{Key: "embedding_model", Value: embedder.Model()},
		observe.Field{Key: "embedding_dims", Value: embedder.Dims()},
	)
	return app, nil
}

// Close releases the database pool.
func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

// embedSettings derives the embedder settings. Embedding overrides win over
// the LLM settings.
func embedSettings(cfg config.Config) embed.Settings {
	s := embed.Settings{
		Provider: cfg.LLM.Provider,
		Model:    cfg.Embedding.Model,
		Dims:     cfg.Embedding.Dims,
		BaseURL:  cfg.Embedding.BaseURL,
		APIKey:   cfg.Embedding.APIKey,
	}
	if s.BaseURL == "" {
		s.BaseURL = cfg.LLM.BaseURL
	}
	if s.APIKey == "" {
		s.APIKey = cfg.LLM.APIKey
	}
	return s
}

// PrintStartupHelp writes the startup failure followed by the variables an
// operator should check.
func PrintStartupHelp(w io.Writer, err error) {
	fmt.Fprintf(w, "ERROR: %v\n", err)
	fmt.Fprintln(w, "Please check your environment variables:")
	for _, name := range config.RequiredEnv() {
		fmt.Fprintf(w, "  - %s\n", name)
	}
	fmt.Fprintln(w, "  - See .env.example for all supported variables")
}

// WatchHealth refreshes the health status every interval and logs each
// change of status until ctx is done. A non-positive interval means 30s.
func (a *App) WatchHealth(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := a.Health.Status(ctx, true).Status
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		h := a.Health.Status(ctx, true)
		if h.Status == last {
			continue
		}
		fields := []observe.Field{
			{Key: "from", Value: last.String()},
			{Key: "to", Value: h.Status.String()},
		}
		if h.Database.Error != "" {
			fields = append(fields, observe.Field{Key: "error", Value: h.Database.Error})
		}
		if h.Status == health.StatusHealthy {
			a.logger().Info(ctx, "service health changed", fields...)
		} else {
			a.logger().Warn(ctx, "service health changed", fields...)
		}
		last = h.Status
	}
}

func (a *App) logger() observe.Logger {
	if a.Logger == nil {
		return observe.NopLogger()
	}
	return a.Logger
}
