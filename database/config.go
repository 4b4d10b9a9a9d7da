package database

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config describes the pool and its retry and monitoring behavior.
// It is built once and not modified afterwards.
type Config struct {
	// DSN is the Postgres connection string.
	DSN string

	// MinConns is the number of connections kept open.
	// Default: 5
	MinConns int

	// MaxConns caps open connections.
	// Default: 20
	MaxConns int

	// MaxOverflow is accepted for compatibility and reported in stats.
	// pgx pools have a hard cap, so it does not raise MaxConns.
	// Default: 10
	MaxOverflow int

	// AcquireTimeout bounds one acquisition attempt and is applied as the
	// server-side statement_timeout.
	// Default: 30s
	AcquireTimeout time.Duration

	// MaxConnLifetime recycles connections older than this.
	// Default: 1h
	MaxConnLifetime time.Duration

	// HealthCheckInterval is the monitor period.
	// Default: 60s
	HealthCheckInterval time.Duration

	// RetryAttempts is the number of acquisition attempts, first included.
	// Default: 3
	RetryAttempts int

	// RetryDelay is the wait after the first failed attempt.
	// Default: 2s
	RetryDelay time.Duration

	// MaxRetryDelay caps the backoff.
	// Default: 60s
	MaxRetryDelay time.Duration
}

// DefaultConfig returns the defaults with an empty DSN.
func DefaultConfig() Config {
	return Config{
		MinConns:            5,
		MaxConns:            20,
		MaxOverflow:         10,
		AcquireTimeout:      30 * time.Second,
		MaxConnLifetime:     time.Hour,
		HealthCheckInterval: 60 * time.Second,
		RetryAttempts:       3,
		RetryDelay:          2 * time.Second,
		MaxRetryDelay:       60 * time.Second,
	}
}

// Validate reports the first constraint the configuration violates.
func (c Config) Validate() error {
	if c.DSN == "" {
		return ErrMissingDSN
	}
	var errs []error
	if c.MinConns < 1 {
		errs = append(errs, fmt.Errorf("%w: pool size must be at least 1, got %d", ErrInvalidConfig, c.MinConns))
	}
	if c.MaxConns < c.MinConns {
		errs = append(errs, fmt.Errorf("%w: max connections %d below pool size %d", ErrInvalidConfig, c.MaxConns, c.MinConns))
	}
	if c.AcquireTimeout < 5*time.Second {
		errs = append(errs, fmt.Errorf("%w: pool timeout must be at least 5s, got %v", ErrInvalidConfig, c.AcquireTimeout))
	}
	if c.RetryAttempts < 1 {
		errs = append(errs, fmt.Errorf("%w: retry attempts must be at least 1, got %d", ErrInvalidConfig, c.RetryAttempts))
	}
	if c.RetryDelay > c.MaxRetryDelay {
		errs = append(errs, fmt.Errorf("%w: retry delay %v exceeds max retry delay %v", ErrInvalidConfig, c.RetryDelay, c.MaxRetryDelay))
	}
	if c.HealthCheckInterval <= 0 {
		errs = append(errs, fmt.Errorf("%w: health check interval must be positive", ErrInvalidConfig))
	}
	return errors.Join(errs...)
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ParseConfig builds a Config from environment variables read through
// lookup, starting from DefaultConfig. Malformed numbers are errors that name
// the variable. The result is not validated.
func ParseConfig(lookup LookupFunc) (Config, error) {
	cfg := DefaultConfig()
	p := envParser{lookup: lookup}

	cfg.DSN, _ = lookup("DATABASE_URL")
	p.int("DATABASE_POOL_SIZE", &cfg.MinConns)
	p.int("DATABASE_MAX_CONNECTIONS", &cfg.MaxConns)
	p.int("DATABASE_MAX_OVERFLOW", &cfg.MaxOverflow)
	p.seconds("DATABASE_POOL_TIMEOUT", &cfg.AcquireTimeout)
	p.seconds("DATABASE_POOL_RECYCLE", &cfg.MaxConnLifetime)
	p.seconds("DATABASE_HEALTH_CHECK_INTERVAL", &cfg.HealthCheckInterval)
	p.int("DATABASE_RETRY_ATTEMPTS", &cfg.RetryAttempts)
	p.seconds("DATABASE_RETRY_DELAY", &cfg.RetryDelay)
	p.seconds("DATABASE_MAX_RETRY_DELAY", &cfg.MaxRetryDelay)

	if p.err != nil {
		return Config{}, p.err
	}
	return cfg, nil
}

// LoadConfig is ParseConfig followed by Validate.
func LoadConfig(lookup LookupFunc) (Config, error) {
	cfg, err := ParseConfig(lookup)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfigFromEnv is LoadConfig over the process environment.
func LoadConfigFromEnv() (Config, error) {
	return LoadConfig(os.LookupEnv)
}

type envParser struct {
	lookup LookupFunc
	err    error
}

func (p *envParser) value(key string) (string, bool) {
	if p.err != nil {
		return "", false
	}
	v, ok := p.lookup(key)
	return v, ok && v != ""
}

func (p *envParser) int(key string, dst *int) {
	v, ok := p.value(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.err = fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, v)
		return
	}
	*dst = n
}

// seconds accepts integer or fractional seconds.
func (p *envParser) seconds(key string, dst *time.Duration) {
	v, ok := p.value(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		p.err = fmt.Errorf("%w: %s=%q is not a number of seconds", ErrInvalidConfig, key, v)
		return
	}
	*dst = time.Duration(f * float64(time.Second))
}
