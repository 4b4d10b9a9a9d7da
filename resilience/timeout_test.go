package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTimeout_Default(t *testing.T) {
	if got := NewTimeout(TimeoutConfig{}).Config().Timeout; got != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", got)
	}
}

func TestTimeout_Execute(t *testing.T) {
	to := NewTimeout(TimeoutConfig{Timeout: 20 * time.Millisecond})

	if err := to.Execute(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Errorf("fast op error = %v", err)
	}

	err := to.Execute(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("slow op error = %v, want ErrTimeout", err)
	}
}

func TestWithin(t *testing.T) {
	v, err := Within(context.Background(), time.Second, func(context.Context) (string, error) {
		return "ok", nil
	})
	if err != nil || v != "ok" {
		t.Errorf("Within() = %q, %v; want ok, nil", v, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Within(ctx, time.Second, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Within(cancelled) error = %v, want context.Canceled", err)
	}
}
