// dbmonitor reports the health of the mcp-mem0 database connection pool.
//
// By default it prints a single dashboard and exits with 0 (healthy),
// 1 (degraded), 2 (unhealthy) or 3 when the check itself failed.
//
// Usage:
//
//	dbmonitor [flags]
//
// Flags:
//
//	-continuous, -c
//	    Run continuous monitoring
//	-interval, -i int
//	    Monitoring interval in seconds (default 30)
//	-export, -e string
//	    Export metrics to a JSON file
//	-json, -j
//	    Output in JSON format
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonwraymond/memops/config"
	"github.com/jonwraymond/memops/database"
	"github.com/jonwraymond/memops/health"
	"github.com/jonwraymond/memops/observe"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, connect)
	stop()
	os.Exit(code)
}

// connect loads the configuration and builds a health service over a lazily
// initialized database lifecycle. Initialization failures surface in the
// report as an unhealthy database.
func connect(ctx context.Context) (Reporter, func() error, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	logger := observe.NewLoggerWithWriter(cfg.Observe.LogLevel, os.Stderr).
		With(observe.Component("dbmonitor"))

	lc := database.NewLifecycle(func() (database.Config, error) {
		return cfg.Database, cfg.Database.Validate()
	}, database.WithLogger(logger))

	provider := func(ctx context.Context) (health.DatabaseSource, error) {
		m, err := lc.Get(ctx)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	svc := health.NewService(provider,
		health.WithVersion(cfg.Observe.Version),
		health.WithLogger(logger),
	)
	return svc, lc.Close, nil
}
