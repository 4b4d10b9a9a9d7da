// Package database manages the Postgres connection pool behind the memory
// server.
//
// A Manager owns one pgx pool built from Config. Initialize opens the pool,
// verifies it with a probe and starts a background monitor that keeps a
// ConnectionHealth snapshot current. Callers obtain connections through
// Acquire or WithConn, which retry with capped exponential backoff and hand
// back a connection that has just answered a ping.
//
//	lc := database.NewLifecycle(database.LoadConfigFromEnv, database.WithLogger(logger))
//	defer lc.Close()
//
//	m, err := lc.Get(ctx)
//	if err != nil {
//	    return err
//	}
//	err = m.WithConn(ctx, func(ctx context.Context, c database.Conn) error {
//	    _, err := c.Exec(ctx, "DELETE FROM mem0_memories WHERE user_id = $1", userID)
//	    return err
//	})
//
// The Lifecycle is the only process-wide holder of a Manager. It is created
// in main and passed to whatever needs the database.
package database
