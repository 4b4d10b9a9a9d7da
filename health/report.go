package health

import (
	"context"
	"time"

	"github.com/jonwraymond/memops/database"
)

// Report is the detailed reporting document.
type Report struct {
	Service  ServiceReport  `json:"service"`
	Database DatabaseReport `json:"database"`

	// ExportTimestamp is set when the report is written to a file.
	ExportTimestamp *time.Time `json:"export_timestamp,omitempty"`
}

// ServiceReport is the "service" section of a Report.
type ServiceReport struct {
	Status        Status    `json:"status"`
	UptimeSeconds float64   `json:"uptime_seconds"`
	UptimeHuman   string    `json:"uptime_human"`
	MemoryUsageMB float64   `json:"memory_usage_mb"`
	Version       string    `json:"version"`
	Timestamp     time.Time `json:"timestamp"`
}

// DatabaseReport is the "database" section of a Report.
type DatabaseReport struct {
	IsHealthy         bool       `json:"is_healthy"`
	LastCheck         *time.Time `json:"last_check"`
	ResponseTimeMS    float64    `json:"response_time_ms"`
	ActiveConnections int        `json:"active_connections"`
	TotalConnections  int        `json:"total_connections"`
	ErrorMessage      string     `json:"error_message,omitempty"`
	PoolStats         PoolReport `json:"pool_stats"`
}

// PoolReport carries pool statistics, or Error when they are unavailable.
type PoolReport struct {
	*database.PoolStats
	PoolUtilization string `json:"pool_utilization,omitempty"`
	Error           string `json:"error,omitempty"`
}

// DetailedStatus forces a fresh Status and adds pool statistics.
func (s *Service) DetailedStatus(ctx context.Context) Report {
	h := s.Status(ctx, true)

	r := Report{
		Service: ServiceReport{
			Status:        h.Status,
			UptimeSeconds: h.Uptime.Seconds(),
			UptimeHuman:   FormatUptime(h.Uptime),
			MemoryUsageMB: h.MemoryUsageMB,
			Version:       h.Version,
			Timestamp:     h.Timestamp,
		},
		Database: DatabaseReport{
			IsHealthy:         h.Database.Healthy,
			ResponseTimeMS:    h.Database.ResponseTimeMS(),
			ActiveConnections: h.Database.ActiveConns,
			TotalConnections:  h.Database.TotalConns,
			ErrorMessage:      h.Database.Error,
		},
	}
	if h.Database.Checked() {
		lc := h.Database.LastCheck
		r.Database.LastCheck = &lc
	}
	r.Database.PoolStats = s.poolReport(ctx)
	return r
}

func (s *Service) poolReport(ctx context.Context) (pr PoolReport) {
	defer func() {
		if rec := recover(); rec != nil {
			pr = PoolReport{Error: ErrPanic.Error()}
		}
	}()

	src, err := s.provider(ctx)
	if err != nil {
		return PoolReport{Error: err.Error()}
	}
	stats, err := src.Stats()
	if err != nil {
		return PoolReport{Error: err.Error()}
	}
	return PoolReport{PoolStats: &stats, PoolUtilization: stats.UtilizationString()}
}

// Summary is the short document served at /health.
type Summary struct {
	Status        Status    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	UptimeSeconds float64   `json:"uptime_seconds"`
}

// Summarize reduces h to a Summary.
func Summarize(h ServiceHealth) Summary {
	return Summary{
		Status:        h.Status,
		Timestamp:     h.Timestamp,
		UptimeSeconds: h.Uptime.Seconds(),
	}
}
