package mcpserver

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/memops/auth"
	"github.com/jonwraymond/memops/health"
	"github.com/jonwraymond/memops/observe"
)

// Endpoints served by Handler.
const (
	SSEPath     = "/sse"
	MessagePath = "/message"
	MetricsPath = "/metrics"
)

const shutdownGrace = 10 * time.Second

// HTTPOptions configures Handler.
type HTTPOptions struct {
	// Authenticator guards the MCP endpoints and the detailed health report.
	// Nil disables authentication.
	Authenticator auth.Authenticator

	// Metrics is mounted on /metrics when non-nil.
	Metrics http.Handler
}

// PrometheusHandler serves the default Prometheus registry, which the
// prometheus metrics exporter registers with.
func PrometheusHandler() http.Handler { return promhttp.Handler() }

// Handler returns the SSE transport together with the health endpoints.
// Liveness, readiness and the health summary stay unauthenticated for
// probes.
func (s *Server) Handler(opts HTTPOptions) http.Handler {
	sse := server.NewSSEServer(s.mcp,
		server.WithSSEEndpoint(SSEPath),
		server.WithMessageEndpoint(MessagePath),
		server.WithKeepAlive(true),
	)
	protect := auth.Middleware(opts.Authenticator, s.logger)

	mux := http.NewServeMux()
	mux.Handle(SSEPath, protect(sse.SSEHandler()))
	mux.Handle(MessagePath, protect(sse.MessageHandler()))
	mux.HandleFunc("/healthz", health.LivenessHandler())
	mux.HandleFunc("/readyz", health.ReadinessHandler(s.app.Health))
	mux.HandleFunc("/health", health.SummaryHandler(s.app.Health))
	mux.Handle("/health/detailed", protect(health.DetailedHandler(s.app.Health)))
	if opts.Metrics != nil {
		mux.Handle(MetricsPath, opts.Metrics)
	}
	return mux
}

// ServeSSE listens on addr until ctx is done, then drains connections.
// Open SSE streams end with ctx.
func (s *Server) ServeSSE(ctx context.Context, addr string, opts HTTPOptions) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(opts),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "serving MCP over SSE", observe.Field{Key: "addr", Value: addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ServeStdio speaks MCP over in and out until ctx is done or in is closed.
// out carries protocol traffic only; diagnostics go to errOut.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out, errOut io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(log.New(errOut, "mcp-stdio: ", log.LstdFlags))

	s.logger.Info(ctx, "serving MCP over stdio")
	err := stdio.Listen(ctx, in, out)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
