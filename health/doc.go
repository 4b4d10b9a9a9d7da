// Package health derives the service's overall health from the database
// connection snapshot, process uptime and memory usage.
//
// A Service classifies the database snapshot as healthy, degraded or
// unhealthy and caches the result for 30 seconds:
//
//	svc := health.NewService(health.ManagerProvider(lifecycle.Current),
//	    health.WithVersion("1.0.0"),
//	)
//	h := svc.Status(ctx, false)
//	os.Exit(health.ExitCode(h.Status))
//
// DetailedStatus adds pool statistics and renders the reporting document
// served at /health/detailed and printed by the dbmonitor command.
//
// # HTTP Endpoints
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, svc)
//
// registers /healthz (liveness), /readyz (readiness), /health (summary) and
// /health/detailed (full report).
package health
