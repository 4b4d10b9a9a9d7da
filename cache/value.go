package cache

import (
	"sync"
	"time"
)

// Value holds one computed value together with the time it was stored.
// It is fresh for TTL after that.
type Value[T any] struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.RWMutex
	val      T
	storedAt time.Time
	set      bool
}

// NewValue creates an empty Value. A nil now means time.Now.
func NewValue[T any](ttl time.Duration, now func() time.Time) *Value[T] {
	if now == nil {
		now = time.Now
	}
	return &Value[T]{ttl: ttl, now: now}
}

// Fresh returns the stored value if it is younger than the TTL.
func (v *Value[T]) Fresh() (T, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if !v.set || v.now().Sub(v.storedAt) >= v.ttl {
		var zero T
		return zero, false
	}
	return v.val, true
}

// Store replaces the value and restarts its freshness window.
func (v *Value[T]) Store(val T) {
	v.mu.Lock()
	v.val, v.storedAt, v.set = val, v.now(), true
	v.mu.Unlock()
}

// Invalidate drops the stored value.
func (v *Value[T]) Invalidate() {
	v.mu.Lock()
	var zero T
	v.val, v.set = zero, false
	v.mu.Unlock()
}

// StoredAt reports when the current value was stored; zero if empty.
func (v *Value[T]) StoredAt() time.Time {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if !v.set {
		return time.Time{}
	}
	return v.storedAt
}
