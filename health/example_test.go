package health_test

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/memops/database"
	"github.com/jonwraymond/memops/health"
)

type snapshot database.ConnectionHealth

func (s snapshot) Health() database.ConnectionHealth  { return database.ConnectionHealth(s) }
func (s snapshot) Stats() (database.PoolStats, error) { return database.PoolStats{}, nil }

func ExampleService_Status() {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	db := snapshot{LastCheck: now, LastSuccess: now.Add(-time.Minute), Error: "timeout"}

	svc := health.NewService(
		func(context.Context) (health.DatabaseSource, error) { return db, nil },
		health.WithClock(func() time.Time { return now }),
	)

	h := svc.Status(context.Background(), false)
	fmt.Println(h.Status, health.ExitCode(h.Status))
	// Output: degraded 1
}

func ExampleFormatUptime() {
	fmt.Println(health.FormatUptime(93784 * time.Second))
	// Output: 1d 2h 3m 4s
}
