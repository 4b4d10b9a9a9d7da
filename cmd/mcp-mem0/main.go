// mcp-mem0 serves per-user long-term memory to MCP clients.
//
// Configuration comes from the environment and an optional .env file in the
// working directory. TRANSPORT selects sse (HTTP on HOST:PORT, the default)
// or stdio.
//
// Usage:
//
//	mcp-mem0 [flags]
//
// Flags:
//
//	-env string
//	    Path to the .env file (default ".env")
//	-version
//	    Print version and exit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/memops/auth"
	"github.com/jonwraymond/memops/config"
	"github.com/jonwraymond/memops/mcpserver"
	"github.com/jonwraymond/memops/observe"
)

// Version is set at build time via ldflags.
var Version = "1.0.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("mcp-mem0", flag.ContinueOnError)
	fs.SetOutput(stderr)
	envFile := fs.String("env", ".env", "Path to the .env file")
	showVersion := fs.Bool("version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *showVersion {
		fmt.Fprintf(stdout, "mcp-mem0 %s\n", Version)
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lookup, err := config.DotenvLookup(os.LookupEnv, *envFile)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: read %s: %v\n", *envFile, err)
		return 1
	}
	cfg, err := config.NewLoader(lookup).Load(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: invalid configuration: %v\n", err)
		return 1
	}
	if err := serve(ctx, cfg, stdin, stdout, stderr); err != nil {
		if !errors.Is(err, mcpserver.ErrStartup) {
			fmt.Fprintf(stderr, "ERROR: %v\n", err)
		}
		return 1
	}
	return 0
}

func serve(ctx context.Context, cfg config.Config, stdin io.Reader, stdout, stderr io.Writer) error {
	obsCfg := cfg.ObserverConfig()
	obsCfg.Logging.Writer = stderr
	obs, err := observe.NewObserver(ctx, obsCfg)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
	}()
	logger := obs.Logger()

	for _, w := range cfg.Warnings() {
		logger.Warn(ctx, w)
	}

	metrics, err := observe.NewMetrics(obs.Meter())
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	tracer := observe.NewTracer(obs.Tracer())

	app, err := mcpserver.Start(ctx, cfg,
		mcpserver.WithLogger(logger),
		mcpserver.WithTelemetry(metrics, tracer),
	)
	if err != nil {
		mcpserver.PrintStartupHelp(stderr, err)
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error(context.Background(), "database shutdown failed", observe.Err(err))
		}
	}()

	srv := mcpserver.New(app, mcpserver.WithMiddleware(observe.NewMiddleware(tracer, metrics, logger)))

	g, gctx := errgroup.WithContext(ctx)
	serveCtx, cancel := context.WithCancel(gctx)
	defer cancel()

	g.Go(func() error {
		defer cancel()
		if cfg.Server.Transport == "stdio" {
			return srv.ServeStdio(serveCtx, stdin, stdout, stderr)
		}
		opts := mcpserver.HTTPOptions{
			Authenticator: auth.New(auth.Settings{
				JWTSecret: cfg.Auth.JWTSecret,
				JWTIssuer: cfg.Auth.JWTIssuer,
				APIKeys:   cfg.Auth.APIKeys,
			}),
		}
		if cfg.Observe.MetricsExporter == "prometheus" {
			opts.Metrics = mcpserver.PrometheusHandler()
		}
		return srv.ServeSSE(serveCtx, cfg.Server.Addr(), opts)
	})
	g.Go(func() error {
		return app.WatchHealth(serveCtx, cfg.Database.HealthCheckInterval)
	})

	err = g.Wait()
	logger.Info(context.Background(), "server stopped")
	return err
}
