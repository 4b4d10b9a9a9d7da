package config

import "errors"

var (
	// ErrInvalidConfig indicates a malformed or out-of-range value.
	ErrInvalidConfig = errors.New("config: invalid configuration")

	// ErrMissingEnv indicates a ${VAR} reference to an unset variable.
	ErrMissingEnv = errors.New("config: missing required environment variables")

	// ErrSecret indicates a secret reference could not be resolved.
	ErrSecret = errors.New("config: secret resolution failed")
)
