package cache

import "time"

// Policy decides how long loaded values are kept.
type Policy struct {
	// DefaultTTL applies when no override is given. Zero disables caching.
	DefaultTTL time.Duration

	// MaxTTL clamps overrides. Zero means no clamp.
	MaxTTL time.Duration
}

// DefaultPolicy keeps values for 10 minutes and never longer than an hour.
func DefaultPolicy() Policy {
	return Policy{DefaultTTL: 10 * time.Minute, MaxTTL: time.Hour}
}

// ShouldCache reports whether the policy stores anything.
func (p Policy) ShouldCache() bool {
	return p.DefaultTTL > 0
}

// EffectiveTTL applies the default to a non-positive override and clamps the
// result to MaxTTL.
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	ttl := override
	if ttl <= 0 {
		ttl = p.DefaultTTL
	}
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}
	return ttl
}
