package memory

import "errors"

var (
	// ErrUserIDRequired is returned for an empty or blank user ID.
	ErrUserIDRequired = errors.New("userId is required and cannot be empty")

	// ErrMemoryIDRequired is returned for an empty or blank memory ID.
	ErrMemoryIDRequired = errors.New("memoryId is required and cannot be empty")

	// ErrContentRequired is returned when saving blank content.
	ErrContentRequired = errors.New("content is required and cannot be empty")

	// ErrInvalidMemoryID is returned when a memory ID is not a UUID.
	ErrInvalidMemoryID = errors.New("memoryId is not a valid memory identifier")

	// ErrNotFound is returned when the memory does not exist for the user.
	ErrNotFound = errors.New("memory not found")

	// ErrDimensionMismatch is returned when an embedding has the wrong length.
	ErrDimensionMismatch = errors.New("memory: embedding dimension mismatch")
)
