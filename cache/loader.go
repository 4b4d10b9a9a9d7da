package cache

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// LoadFunc computes a value on a cache miss.
type LoadFunc func(ctx context.Context) ([]byte, error)

// Loader reads through a Cache. Concurrent misses for the same key share one
// call to the LoadFunc. Errors are never cached.
type Loader struct {
	cache  Cache
	keyer  Keyer
	policy Policy
	group  singleflight.Group
}

// NewLoader creates a Loader. A nil keyer means HashKeyer.
func NewLoader(c Cache, keyer Keyer, policy Policy) *Loader {
	if keyer == nil {
		keyer = HashKeyer{}
	}
	return &Loader{cache: c, keyer: keyer, policy: policy}
}

// Load returns the cached value for (namespace, input), calling fn on a miss.
func (l *Loader) Load(ctx context.Context, namespace string, input any, fn LoadFunc) ([]byte, error) {
	if !l.policy.ShouldCache() {
		return fn(ctx)
	}

	key, err := l.keyer.Key(namespace, input)
	if err != nil {
		return fn(ctx)
	}
	if v, ok := l.cache.Get(ctx, key); ok {
		return v, nil
	}

	v, err, _ := l.group.Do(key, func() (any, error) {
		data, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		_ = l.cache.Set(ctx, key, data, l.policy.EffectiveTTL(0))
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}
