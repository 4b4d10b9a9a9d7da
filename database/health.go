package database

import (
	"fmt"
	"time"
)

// ConnectionHealth is one immutable observation of database reachability.
// The zero value means "never checked" and is unhealthy.
type ConnectionHealth struct {
	Healthy bool

	// LastCheck is when this observation was made.
	LastCheck time.Time

	// LastSuccess is the most recent healthy observation, carried forward
	// across failures. Zero if the database has never answered.
	LastSuccess time.Time

	ResponseTime time.Duration
	ActiveConns  int
	TotalConns   int

	// Error describes the failure; empty when Healthy.
	Error string
}

// Checked reports whether any probe has completed.
func (h ConnectionHealth) Checked() bool { return !h.LastCheck.IsZero() }

// ResponseTimeMS is ResponseTime in fractional milliseconds.
func (h ConnectionHealth) ResponseTimeMS() float64 {
	return float64(h.ResponseTime.Microseconds()) / 1000
}

// PoolStats describes pool occupancy at one instant.
type PoolStats struct {
	MinConnections       int `json:"min_connections"`
	MaxConnections       int `json:"max_connections"`
	MaxOverflow          int `json:"max_overflow"`
	ActiveConnections    int `json:"active_connections"`
	AvailableConnections int `json:"available_connections"`
	IdleConnections      int `json:"idle_connections"`
	TotalConnections     int `json:"total_connections"`

	// Utilization is ActiveConnections / MaxConnections in percent.
	Utilization float64 `json:"-"`
}

// UtilizationString formats Utilization with one decimal, e.g. "12.5%".
func (s PoolStats) UtilizationString() string {
	return fmt.Sprintf("%.1f%%", s.Utilization)
}

func statsFrom(cfg Config, c PoolCounters) PoolStats {
	limit := int(c.Max)
	if limit == 0 {
		limit = cfg.MaxConns
	}
	active := int(c.Acquired)
	var util float64
	if limit > 0 {
		util = float64(active) / float64(limit) * 100
	}
	return PoolStats{
		MinConnections:       cfg.MinConns,
		MaxConnections:       limit,
		MaxOverflow:          cfg.MaxOverflow,
		ActiveConnections:    active,
		AvailableConnections: limit - active,
		IdleConnections:      int(c.Idle),
		TotalConnections:     int(c.Total),
		Utilization:          util,
	}
}
