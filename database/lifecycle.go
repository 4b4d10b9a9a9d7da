package database

import (
	"context"
	"sync"
)

// Lifecycle lazily creates and initializes the process's Manager and tears
// it down on Close. Create one in main and pass it to its users.
type Lifecycle struct {
	load func() (Config, error)
	opts []Option

	mu      sync.Mutex
	manager *Manager
}

// NewLifecycle returns a Lifecycle that builds its Manager from load.
func NewLifecycle(load func() (Config, error), opts ...Option) *Lifecycle {
	return &Lifecycle{load: load, opts: opts}
}

// Get returns the initialized Manager, creating it on first use. A failed
// attempt is not remembered; the next Get tries again.
func (l *Lifecycle) Get(ctx context.Context) (*Manager, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.manager != nil {
		return l.manager, nil
	}

	cfg, err := l.load()
	if err != nil {
		return nil, err
	}

	m := New(cfg, l.opts...)
	if err := m.Initialize(ctx); err != nil {
		_ = m.Close()
		return nil, err
	}
	l.manager = m
	return m, nil
}

// Current returns the Manager if one is live, without creating it.
func (l *Lifecycle) Current() *Manager {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.manager
}

// Close closes and forgets the Manager. A later Get builds a new one.
func (l *Lifecycle) Close() error {
	l.mu.Lock()
	m := l.manager
	l.manager = nil
	l.mu.Unlock()

	if m == nil {
		return nil
	}
	return m.Close()
}
