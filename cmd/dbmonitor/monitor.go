package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jonwraymond/memops/health"
	"github.com/jonwraymond/memops/resilience"
)

const (
	defaultInterval = 30
	errorBackoff    = 5 * time.Second
	rule            = "============================================================"
)

// Reporter produces a detailed health report. *health.Service satisfies it.
type Reporter interface {
	DetailedStatus(ctx context.Context) health.Report
}

// ConnectFunc builds a Reporter and the function releasing it.
type ConnectFunc func(ctx context.Context) (Reporter, func() error, error)

type options struct {
	continuous bool
	interval   int
	export     string
	json       bool
}

func parseFlags(args []string, errOut io.Writer) (options, error) {
	opts := options{interval: defaultInterval}
	fs := flag.NewFlagSet("dbmonitor", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.BoolVar(&opts.continuous, "continuous", false, "Run continuous monitoring")
	fs.BoolVar(&opts.continuous, "c", false, "Shorthand for -continuous")
	fs.IntVar(&opts.interval, "interval", defaultInterval, "Monitoring interval in seconds")
	fs.IntVar(&opts.interval, "i", defaultInterval, "Shorthand for -interval")
	fs.StringVar(&opts.export, "export", "", "Export metrics to a JSON file")
	fs.StringVar(&opts.export, "e", "", "Shorthand for -export")
	fs.BoolVar(&opts.json, "json", false, "Output in JSON format")
	fs.BoolVar(&opts.json, "j", false, "Shorthand for -json")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.interval <= 0 {
		return options{}, fmt.Errorf("interval must be positive, got %d", opts.interval)
	}
	return opts, nil
}

type monitor struct {
	out       io.Writer
	reporter  Reporter
	now       func() time.Time
	sleep     resilience.Sleeper
	writeFile func(name string, data []byte, perm os.FileMode) error
}

func run(ctx context.Context, args []string, out, errOut io.Writer, connect ConnectFunc) int {
	opts, err := parseFlags(args, errOut)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(errOut, err)
		return 2
	}

	reporter, closeFn, err := connect(ctx)
	if err != nil {
		return connectFailed(out, opts, err)
	}
	defer func() { _ = closeFn() }()

	m := &monitor{
		out:       out,
		reporter:  reporter,
		now:       time.Now,
		sleep:     resilience.TimerSleep,
		writeFile: os.WriteFile,
	}
	switch {
	case opts.export != "":
		return m.export(ctx, opts.export)
	case opts.continuous:
		return m.continuous(ctx, time.Duration(opts.interval)*time.Second, opts.json)
	case opts.json:
		return m.singleJSON(ctx)
	default:
		return m.single(ctx)
	}
}

func connectFailed(out io.Writer, opts options, err error) int {
	switch {
	case opts.export != "":
		fmt.Fprintf(out, "Failed to export metrics: %v\n", err)
		return 1
	case opts.json:
		writeIndented(out, map[string]string{"error": err.Error()})
	default:
		fmt.Fprintf(out, "Health check failed: %v\n", err)
	}
	return health.ExitInternalError
}

func (m *monitor) single(ctx context.Context) int {
	r := m.reporter.DetailedStatus(ctx)
	m.dashboard(r)
	return health.ExitCode(r.Service.Status)
}

func (m *monitor) singleJSON(ctx context.Context) int {
	r := m.reporter.DetailedStatus(ctx)
	if err := writeIndented(m.out, r); err != nil {
		writeIndented(m.out, map[string]string{"error": err.Error()})
		return health.ExitInternalError
	}
	return health.ExitCode(r.Service.Status)
}

func (m *monitor) export(ctx context.Context, path string) int {
	r := m.reporter.DetailedStatus(ctx)
	ts := m.now()
	r.ExportTimestamp = &ts

	data, err := json.MarshalIndent(r, "", "  ")
	if err == nil {
		err = m.writeFile(path, append(data, '\n'), 0o644)
	}
	if err != nil {
		fmt.Fprintf(m.out, "Failed to export metrics: %v\n", err)
		return 1
	}
	fmt.Fprintf(m.out, "Metrics exported to %s\n", path)
	return 0
}

// continuous refreshes the report every interval until ctx is done. A failed
// refresh is reported and retried after a short backoff.
func (m *monitor) continuous(ctx context.Context, interval time.Duration, asJSON bool) int {
	fmt.Fprintln(m.out, "Starting continuous database monitoring...")
	fmt.Fprintf(m.out, "Refresh interval: %d seconds\n", int(interval/time.Second))
	fmt.Fprintln(m.out, "Press Ctrl+C to stop")

	for {
		wait := interval
		if err := m.tick(ctx, asJSON); err != nil {
			fmt.Fprintf(m.out, "\nError during monitoring: %v\n", err)
			wait = errorBackoff
		}
		if err := m.sleep(ctx, nil, wait); err != nil {
			fmt.Fprintln(m.out, "\nMonitoring stopped by user")
			return 0
		}
	}
}

func (m *monitor) tick(ctx context.Context, asJSON bool) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("report panicked: %v", rec)
		}
	}()
	r := m.reporter.DetailedStatus(ctx)
	if asJSON {
		return writeIndented(m.out, r)
	}
	m.dashboard(r)
	return nil
}

func (m *monitor) dashboard(r health.Report) {
	w := m.out
	fmt.Fprintf(w, "\n%s\n", rule)
	fmt.Fprintln(w, "MCP-MEM0 DATABASE MONITORING DASHBOARD")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Timestamp: %s\n\n", m.now().Format(time.DateTime))

	svc := r.Service
	fmt.Fprintln(w, "SERVICE STATUS:")
	fmt.Fprintf(w, "  Status: %s\n", strings.ToUpper(svc.Status.String()))
	fmt.Fprintf(w, "  Uptime: %s\n", svc.UptimeHuman)
	fmt.Fprintf(w, "  Memory: %.1f MB\n", svc.MemoryUsageMB)
	fmt.Fprintf(w, "  Version: %s\n\n", svc.Version)

	db := r.Database
	state := "✗ UNHEALTHY"
	if db.IsHealthy {
		state = "✓ HEALTHY"
	}
	lastCheck := "never"
	if db.LastCheck != nil {
		lastCheck = db.LastCheck.Format(time.RFC3339)
	}
	fmt.Fprintln(w, "DATABASE STATUS:")
	fmt.Fprintf(w, "  Health: %s\n", state)
	fmt.Fprintf(w, "  Last Check: %s\n", lastCheck)
	fmt.Fprintf(w, "  Response Time: %.2f ms\n\n", db.ResponseTimeMS)

	pool := r.Database.PoolStats
	switch {
	case pool.Error != "":
		fmt.Fprintf(w, "  Pool Error: %s\n", pool.Error)
	case pool.PoolStats != nil:
		fmt.Fprintln(w, "CONNECTION POOL:")
		fmt.Fprintf(w, "  Active: %d\n", pool.ActiveConnections)
		fmt.Fprintf(w, "  Available: %d\n", pool.AvailableConnections)
		fmt.Fprintf(w, "  Total: %d\n", pool.TotalConnections)
		fmt.Fprintf(w, "  Utilization: %s\n", pool.PoolUtilization)
		fmt.Fprintf(w, "  Min Pool: %d\n", pool.MinConnections)
		fmt.Fprintf(w, "  Max Pool: %d\n", pool.MaxConnections)
	}

	if db.ErrorMessage != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "ERRORS:")
		fmt.Fprintf(w, "  %s\n", db.ErrorMessage)
	}
	fmt.Fprintln(w, rule)
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
