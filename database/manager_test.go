package database

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonwraymond/memops/observe"
)

func TestManager_InitializeSuccess(t *testing.T) {
	pool := &fakePool{}
	m := New(testConfig(), WithConnector(connectorFor(pool)))

	if h := m.Health(); h.Healthy || h.Checked() {
		t.Errorf("initial Health() = %+v, want unhealthy and unchecked", h)
	}

	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer m.Close()

	h := m.Health()
	if !h.Healthy || !h.Checked() || h.Error != "" {
		t.Errorf("Health() = %+v, want healthy", h)
	}
	if h.LastSuccess != h.LastCheck {
		t.Errorf("LastSuccess = %v, want LastCheck %v", h.LastSuccess, h.LastCheck)
	}
	if m.MonitorState() != MonitorRunning {
		t.Errorf("MonitorState() = %v, want running", m.MonitorState())
	}

	stats, err := m.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.MinConnections != 5 || stats.MaxConnections != 20 || stats.MaxOverflow != 10 {
		t.Errorf("Stats() = %+v", stats)
	}

	if err := m.Initialize(context.Background()); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("second Initialize() error = %v, want ErrAlreadyInitialized", err)
	}
}

func TestManager_InitializeProbeFails(t *testing.T) {
	pool := &fakePool{execErr: errors.New("relation does not exist")}
	var logs bytes.Buffer
	m := New(testConfig(),
		WithConnector(connectorFor(pool)),
		WithLogger(observe.NewLoggerWithWriter("debug", &logs)),
	)

	err := m.Initialize(context.Background())
	if err == nil {
		t.Fatal("Initialize() error = nil, want failure")
	}
	if !strings.Contains(err.Error(), "relation does not exist") {
		t.Errorf("Initialize() error = %v, want cause", err)
	}

	if _, _, closes := pool.counts(); closes != 1 {
		t.Errorf("pool closed %d times, want 1", closes)
	}
	if _, err := m.Stats(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Stats() error = %v, want ErrNotInitialized", err)
	}
	if m.MonitorState() != MonitorStopped {
		t.Errorf("MonitorState() = %v, want stopped", m.MonitorState())
	}
	h := m.Health()
	if h.Healthy || h.Error == "" || !h.Checked() {
		t.Errorf("Health() = %+v, want recorded failure", h)
	}
	if strings.Contains(logs.String(), "secret@") {
		t.Error("DSN credentials leaked into logs")
	}

	// A later attempt may succeed.
	pool.setExecErr(nil)
	if err := m.Initialize(context.Background()); err != nil {
		t.Errorf("retry Initialize() error = %v", err)
	}
	_ = m.Close()
}

func TestManager_InitializeConfigErrors(t *testing.T) {
	called := false
	connector := func(context.Context, Config) (Pool, error) {
		called = true
		return &fakePool{}, nil
	}

	cfg := testConfig()
	cfg.DSN = ""
	err := New(cfg, WithConnector(connector)).Initialize(context.Background())
	if !errors.Is(err, ErrMissingDSN) {
		t.Errorf("Initialize() error = %v, want ErrMissingDSN", err)
	}
	if called {
		t.Error("connector called despite missing DSN")
	}
}

func TestManager_InitializeConnectorError(t *testing.T) {
	boom := errors.New("cannot parse dsn")
	m := New(testConfig(), WithConnector(func(context.Context, Config) (Pool, error) { return nil, boom }))

	if err := m.Initialize(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Initialize() error = %v, want %v", err, boom)
	}
}

func TestManager_StatsBeforeInitialize(t *testing.T) {
	m := New(testConfig())
	if _, err := m.Stats(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Stats() error = %v, want ErrNotInitialized", err)
	}
}

func TestManager_CloseIdempotent(t *testing.T) {
	pool := &fakePool{}
	m := New(testConfig(), WithConnector(connectorFor(pool)))
	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := m.Close(); err != nil {
			t.Errorf("Close() #%d error = %v", i+1, err)
		}
	}

	if _, _, closes := pool.counts(); closes != 1 {
		t.Errorf("pool closed %d times, want 1", closes)
	}
	if m.MonitorState() != MonitorStopped {
		t.Errorf("MonitorState() = %v, want stopped", m.MonitorState())
	}
	if _, err := m.Stats(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Stats() after Close error = %v, want ErrNotInitialized", err)
	}
	if err := m.Initialize(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Initialize() after Close error = %v, want ErrClosed", err)
	}
}

func TestManager_CloseBeforeInitialize(t *testing.T) {
	if err := New(testConfig()).Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestManager_ConcurrentClose(t *testing.T) {
	pool := &fakePool{}
	m := New(testConfig(), WithConnector(connectorFor(pool)))
	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Close()
		}()
	}
	wg.Wait()

	if _, _, closes := pool.counts(); closes != 1 {
		t.Errorf("pool closed %d times, want 1", closes)
	}
}

func TestManager_ProbeSnapshots(t *testing.T) {
	pool := &fakePool{}
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}

	m := openWithoutMonitor(pool, WithClock(clock))
	defer m.Close()
	if !m.Probe(context.Background()) {
		t.Fatal("first Probe() = false")
	}
	firstSuccess := m.Health().LastSuccess

	advance(90 * time.Second)
	pool.setExecErr(errors.New("terminating connection due to administrator command"))

	if m.Probe(context.Background()) {
		t.Fatal("Probe() = true, want false")
	}
	h := m.Health()
	if h.Healthy {
		t.Error("Healthy = true after failed probe")
	}
	if !h.LastSuccess.Equal(firstSuccess) {
		t.Errorf("LastSuccess = %v, want carried %v", h.LastSuccess, firstSuccess)
	}
	if !h.LastCheck.Equal(firstSuccess.Add(90 * time.Second)) {
		t.Errorf("LastCheck = %v", h.LastCheck)
	}
	if !strings.Contains(h.Error, "administrator command") {
		t.Errorf("Error = %q", h.Error)
	}

	released, discarded, _ := pool.counts()
	if released < 2 || discarded != 0 {
		t.Errorf("released = %d, discarded = %d; probe must return its connection", released, discarded)
	}
}

func TestManager_ProbeNeverPanics(t *testing.T) {
	pool := &fakePool{panicOnAcquire: true}
	m := openWithoutMonitor(pool)
	defer m.Close()

	if m.Probe(context.Background()) {
		t.Error("Probe() = true, want false")
	}
	if h := m.Health(); !strings.Contains(h.Error, "panic") {
		t.Errorf("Error = %q, want panic recorded", h.Error)
	}
}

func TestManager_ProbeBeforeInitialize(t *testing.T) {
	m := New(testConfig())
	if m.Probe(context.Background()) {
		t.Error("Probe() = true before Initialize")
	}
	if h := m.Health(); !strings.Contains(h.Error, "not initialized") {
		t.Errorf("Error = %q", h.Error)
	}
}

func TestManager_MonitorProbesUntilClosed(t *testing.T) {
	pool := &fakePool{}
	cfg := testConfig()
	cfg.HealthCheckInterval = 5 * time.Millisecond
	m := New(cfg, WithConnector(connectorFor(pool)))

	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	waitForCalls(t, pool, 4)

	_ = m.Close()
	if m.MonitorState() != MonitorStopped {
		t.Fatalf("MonitorState() = %v after Close", m.MonitorState())
	}
	after := pool.calls()
	time.Sleep(30 * time.Millisecond)
	if got := pool.calls(); got != after {
		t.Errorf("monitor kept probing after Close: %d -> %d", after, got)
	}
}

func TestMonitorState_String(t *testing.T) {
	if MonitorRunning.String() != "running" || MonitorStopped.String() != "stopped" {
		t.Errorf("String() = %q, %q", MonitorRunning, MonitorStopped)
	}
}

func TestStatsFrom(t *testing.T) {
	cfg := testConfig()
	s := statsFrom(cfg, PoolCounters{Acquired: 5, Idle: 3, Total: 8, Max: 20})

	if s.ActiveConnections != 5 || s.AvailableConnections != 15 || s.TotalConnections != 8 {
		t.Errorf("statsFrom() = %+v", s)
	}
	if got := s.UtilizationString(); got != "25.0%" {
		t.Errorf("UtilizationString() = %q, want 25.0%%", got)
	}
}

func waitForCalls(t *testing.T, pool *fakePool, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for pool.calls() < n {
		if time.Now().After(deadline) {
			t.Fatalf("pool saw %d acquisitions in 2s, want %d", pool.calls(), n)
		}
		time.Sleep(time.Millisecond)
	}
}

// openWithoutMonitor returns a Manager holding pool as if initialized, with
// no monitor goroutine racing the test.
func openWithoutMonitor(pool *fakePool, opts ...Option) *Manager {
	m := New(testConfig(), opts...)
	m.pool = pool
	return m
}
