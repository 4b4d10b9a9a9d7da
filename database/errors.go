package database

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingDSN is returned when no connection string is configured.
	ErrMissingDSN = errors.New("database: DATABASE_URL is required")

	// ErrInvalidConfig wraps configuration values that fail validation.
	ErrInvalidConfig = errors.New("database: invalid configuration")

	// ErrNotInitialized is returned before Initialize succeeds.
	ErrNotInitialized = errors.New("database: connection pool not initialized")

	// ErrAlreadyInitialized is returned by a second Initialize.
	ErrAlreadyInitialized = errors.New("database: already initialized")

	// ErrClosed is returned once Close has been called.
	ErrClosed = errors.New("database: manager closed")

	// ErrUnavailable is matched by every AcquireError.
	ErrUnavailable = errors.New("database: unavailable")
)

// AcquireError reports that no healthy connection could be obtained.
type AcquireError struct {
	Attempts int
	Err      error
}

func (e *AcquireError) Error() string {
	return fmt.Sprintf("database: failed to get connection after %d attempts: %v", e.Attempts, e.Err)
}

// Unwrap exposes ErrUnavailable and the last underlying cause.
func (e *AcquireError) Unwrap() []error {
	return []error{ErrUnavailable, e.Err}
}
