package health

import (
	"fmt"
	"time"

	"github.com/jonwraymond/memops/database"
)

// Status represents the overall health of the service.
type Status int

const (
	// StatusHealthy means the database answered its latest probe.
	StatusHealthy Status = iota
	// StatusDegraded means the latest probe failed but the database answered
	// recently.
	StatusDegraded
	// StatusUnhealthy means the database has not answered recently, or
	// health could not be determined.
	StatusUnhealthy
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status as its name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name.
func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "healthy":
		*s = StatusHealthy
	case "degraded":
		*s = StatusDegraded
	case "unhealthy":
		*s = StatusUnhealthy
	default:
		return fmt.Errorf("health: unknown status %q", b)
	}
	return nil
}

// Process exit codes reported by operator tooling.
const (
	ExitHealthy       = 0
	ExitDegraded      = 1
	ExitUnhealthy     = 2
	ExitInternalError = 3
)

// ExitCode maps a status to the process exit code contract.
func ExitCode(s Status) int {
	switch s {
	case StatusHealthy:
		return ExitHealthy
	case StatusDegraded:
		return ExitDegraded
	default:
		return ExitUnhealthy
	}
}

// ServiceHealth is one classified observation of the service.
type ServiceHealth struct {
	Status        Status
	Timestamp     time.Time
	Uptime        time.Duration
	Database      database.ConnectionHealth
	MemoryUsageMB float64
	Version       string
}
