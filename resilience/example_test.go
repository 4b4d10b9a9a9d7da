package resilience_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/memops/resilience"
)

func ExampleRetry_Schedule() {
	r := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  4,
		InitialDelay: 2 * time.Second,
		MaxDelay:     5 * time.Second,
	})
	fmt.Println(r.Schedule())
	// Output: [2s 4s 5s]
}

func ExampleRetry_Execute() {
	noWait := func(context.Context, <-chan struct{}, time.Duration) error { return nil }
	r := resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 3, Sleep: noWait})

	attempts := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		attempts++
		return errors.New("connection refused")
	})

	fmt.Println(attempts)
	fmt.Println(errors.Is(err, resilience.ErrMaxRetriesExceeded))
	// Output:
	// 3
	// true
}
