package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestValue_FreshWindow(t *testing.T) {
	clock := newClock()
	v := NewValue[string](30*time.Second, clock.Now)

	if _, ok := v.Fresh(); ok {
		t.Fatal("empty value reported fresh")
	}
	if !v.StoredAt().IsZero() {
		t.Fatal("StoredAt should be zero when empty")
	}

	v.Store("a")
	stored := v.StoredAt()

	clock.Advance(29 * time.Second)
	if got, ok := v.Fresh(); !ok || got != "a" {
		t.Fatalf("Fresh = %q, %v", got, ok)
	}
	if !v.StoredAt().Equal(stored) {
		t.Fatal("StoredAt moved on read")
	}

	clock.Advance(time.Second)
	if _, ok := v.Fresh(); ok {
		t.Fatal("value should go stale at the ttl")
	}
}

func TestValue_Invalidate(t *testing.T) {
	v := NewValue[int](time.Minute, nil)
	v.Store(7)
	v.Invalidate()
	if _, ok := v.Fresh(); ok {
		t.Fatal("invalidated value reported fresh")
	}
}

func ExampleValue() {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	v := NewValue[string](30*time.Second, func() time.Time { return now })

	v.Store("healthy")
	s, ok := v.Fresh()
	fmt.Println(s, ok)

	now = now.Add(time.Minute)
	_, ok = v.Fresh()
	fmt.Println(ok)
	// Output:
	// healthy true
	// false
}
