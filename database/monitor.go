package database

import (
	"context"
	"fmt"

	"github.com/jonwraymond/memops/observe"
	"github.com/jonwraymond/memops/resilience"
)

// MonitorState is the lifecycle of the background health monitor.
type MonitorState int32

const (
	MonitorStopped MonitorState = iota
	MonitorRunning
)

func (s MonitorState) String() string {
	if s == MonitorRunning {
		return "running"
	}
	return "stopped"
}

// MonitorState reports whether the health monitor goroutine is running.
func (m *Manager) MonitorState() MonitorState {
	return MonitorState(m.state.Load())
}

func (m *Manager) startMonitor() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.cancelMonitor != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.cancelMonitor, m.monitorDone = cancel, done
	m.state.Store(int32(MonitorRunning))

	go m.monitor(ctx, done)
}

// monitor probes, then waits HealthCheckInterval, until Close. A failed
// iteration is followed by the shorter recovery delay instead.
func (m *Manager) monitor(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	defer m.state.Store(int32(MonitorStopped))

	m.logger.Info(ctx, "database health monitoring started",
		observe.Field{Key: "interval_s", Value: m.cfg.HealthCheckInterval.Seconds()})

	for {
		wait := m.cfg.HealthCheckInterval
		if err := m.monitorOnce(ctx); err != nil {
			m.logger.Error(ctx, "health monitoring error", observe.Err(err))
			wait = m.recoveryDelay
		}

		if err := resilience.TimerSleep(ctx, m.stop, wait); err != nil {
			m.logger.Info(context.Background(), "database health monitoring stopped")
			return
		}
	}
}

func (m *Manager) monitorOnce(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("monitor panic: %v", r)
		}
	}()
	m.Probe(ctx)
	return nil
}
