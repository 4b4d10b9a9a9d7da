package health

import "errors"

var (
	// ErrNoDatabase indicates no database manager is live.
	ErrNoDatabase = errors.New("health: database manager not available")

	// ErrPanic indicates health aggregation panicked.
	ErrPanic = errors.New("health: aggregation panicked")
)
