package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// recordingSleep captures requested waits without sleeping.
type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, stop <-chan struct{}, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-stop:
		return ErrStopped
	default:
		return nil
	}
}

func TestNewRetry_Defaults(t *testing.T) {
	r := NewRetry(RetryConfig{})

	if r.config.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", r.config.MaxAttempts)
	}
	if r.config.InitialDelay != 2*time.Second {
		t.Errorf("InitialDelay = %v, want 2s", r.config.InitialDelay)
	}
	if r.config.MaxDelay != 60*time.Second {
		t.Errorf("MaxDelay = %v, want 60s", r.config.MaxDelay)
	}
	if r.config.Multiplier != 2.0 {
		t.Errorf("Multiplier = %f, want 2.0", r.config.Multiplier)
	}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	tests := []struct {
		name        string
		maxAttempts int
		failures    int
		wantCalls   int
	}{
		{"first try", 3, 0, 1},
		{"one failure", 3, 1, 2},
		{"last attempt", 3, 2, 3},
		{"five attempts", 5, 3, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := &recordingSleep{}
			r := NewRetry(RetryConfig{MaxAttempts: tt.maxAttempts, Sleep: rs.sleep})

			calls := 0
			err := r.Execute(context.Background(), func(context.Context) error {
				calls++
				if calls <= tt.failures {
					return errors.New("transient")
				}
				return nil
			})

			if err != nil {
				t.Errorf("Execute() error = %v", err)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if len(rs.delays) != tt.failures {
				t.Errorf("waits = %d, want %d", len(rs.delays), tt.failures)
			}
		})
	}
}

func TestRetry_Exhausted(t *testing.T) {
	rs := &recordingSleep{}
	r := NewRetry(RetryConfig{MaxAttempts: 3, Sleep: rs.sleep})
	cause := errors.New("server closed the connection")

	calls := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		calls++
		return cause
	})

	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	var re *RetryError
	if !errors.As(err, &re) {
		t.Fatalf("Execute() error = %v, want *RetryError", err)
	}
	if re.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", re.Attempts)
	}
	if !errors.Is(err, cause) {
		t.Errorf("error %v does not wrap cause", err)
	}
	// No wait after the final attempt.
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(rs.delays) != len(want) {
		t.Fatalf("delays = %v, want %v", rs.delays, want)
	}
	for i := range want {
		if rs.delays[i] != want[i] {
			t.Errorf("delays[%d] = %v, want %v", i, rs.delays[i], want[i])
		}
	}
}

func TestRetry_Schedule(t *testing.T) {
	tests := []struct {
		name string
		cfg  RetryConfig
		want []time.Duration
	}{
		{
			name: "defaults",
			cfg:  RetryConfig{},
			want: []time.Duration{2 * time.Second, 4 * time.Second},
		},
		{
			name: "capped",
			cfg:  RetryConfig{MaxAttempts: 6, InitialDelay: 10 * time.Second, MaxDelay: 60 * time.Second},
			want: []time.Duration{10 * time.Second, 20 * time.Second, 40 * time.Second, 60 * time.Second, 60 * time.Second},
		},
		{
			name: "single attempt",
			cfg:  RetryConfig{MaxAttempts: 1},
			want: []time.Duration{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewRetry(tt.cfg).Schedule()
			if len(got) != len(tt.want) {
				t.Fatalf("Schedule() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Schedule()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRetry_ScheduleMonotonicAndBounded(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 20, InitialDelay: 300 * time.Millisecond, MaxDelay: 45 * time.Second, Multiplier: 1.7})
	sched := r.Schedule()
	for i, d := range sched {
		if d > 45*time.Second {
			t.Errorf("delay[%d] = %v exceeds cap", i, d)
		}
		if i > 0 && d < sched[i-1] {
			t.Errorf("delay[%d] = %v < delay[%d] = %v", i, d, i-1, sched[i-1])
		}
	}
}

func TestRetry_JitterBounds(t *testing.T) {
	r := NewRetry(RetryConfig{InitialDelay: 100 * time.Millisecond, Jitter: true})
	for i := 0; i < 50; i++ {
		d := r.calculateDelay(1)
		if d < 100*time.Millisecond || d > 125*time.Millisecond {
			t.Fatalf("jittered delay = %v, want within [100ms, 125ms]", d)
		}
	}
}

func TestRetry_PermanentNotRetried(t *testing.T) {
	rs := &recordingSleep{}
	r := NewRetry(RetryConfig{MaxAttempts: 5, Sleep: rs.sleep})
	base := errors.New("password authentication failed")

	calls := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		calls++
		return Permanent(base)
	})

	if err != base {
		t.Errorf("Execute() error = %v, want %v", err, base)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if len(rs.delays) != 0 {
		t.Errorf("waits = %d, want 0", len(rs.delays))
	}
}

func TestRetry_RetryIf(t *testing.T) {
	retryable := errors.New("retryable")
	fatal := errors.New("fatal")

	r := NewRetry(RetryConfig{
		MaxAttempts: 5,
		Sleep:       (&recordingSleep{}).sleep,
		RetryIf:     func(err error) bool { return errors.Is(err, retryable) },
	})

	calls := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return retryable
		}
		return fatal
	})

	if err != fatal {
		t.Errorf("Execute() error = %v, want %v", err, fatal)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetry_OnRetry(t *testing.T) {
	var attempts []int
	r := NewRetry(RetryConfig{
		MaxAttempts: 3,
		Sleep:       (&recordingSleep{}).sleep,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			attempts = append(attempts, attempt)
		},
	})

	_ = r.Execute(context.Background(), func(context.Context) error {
		return errors.New("fail")
	})

	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("OnRetry attempts = %v, want [1 2]", attempts)
	}
}

func TestRetry_StopDuringWait(t *testing.T) {
	stop := make(chan struct{})
	r := NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Hour, MaxDelay: time.Hour, Stop: stop})

	done := make(chan error, 1)
	go func() {
		done <- r.Execute(context.Background(), func(context.Context) error {
			return errors.New("down")
		})
	}()

	close(stop)

	select {
	case err := <-done:
		if !errors.Is(err, ErrStopped) {
			t.Errorf("Execute() error = %v, want ErrStopped", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Execute did not observe stop signal")
	}
}

func TestRetry_StopBeforeNextAttempt(t *testing.T) {
	stop := make(chan struct{})
	r := NewRetry(RetryConfig{
		MaxAttempts: 3,
		Stop:        stop,
		Sleep:       func(context.Context, <-chan struct{}, time.Duration) error { return nil },
	})

	calls := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		calls++
		close(stop)
		return errors.New("down")
	})

	if !errors.Is(err, ErrStopped) {
		t.Errorf("Execute() error = %v, want ErrStopped", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 10, InitialDelay: time.Hour, MaxDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	err := r.Execute(ctx, func(context.Context) error {
		return errors.New("down")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
}

func TestTimerSleep(t *testing.T) {
	if err := TimerSleep(context.Background(), nil, time.Millisecond); err != nil {
		t.Errorf("TimerSleep() error = %v", err)
	}

	stop := make(chan struct{})
	close(stop)
	if err := TimerSleep(context.Background(), stop, time.Hour); !errors.Is(err, ErrStopped) {
		t.Errorf("TimerSleep(stopped) error = %v, want ErrStopped", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := TimerSleep(ctx, nil, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("TimerSleep(cancelled) error = %v, want context.Canceled", err)
	}
}
