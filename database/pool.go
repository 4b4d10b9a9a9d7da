package database

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the statement surface of a checked-out connection.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Conn is a connection checked out of the pool.
type Conn interface {
	Querier

	// Ping verifies the server answers.
	Ping(ctx context.Context) error

	// IsClosed reports whether the underlying connection is unusable.
	IsClosed() bool

	// Release returns the connection to the pool.
	Release()

	// Discard closes the connection and removes it from the pool.
	Discard(ctx context.Context)
}

// Pool is the subset of a connection pool the Manager relies on.
type Pool interface {
	Acquire(ctx context.Context) (Conn, error)
	Stat() PoolCounters
	Close()
}

// PoolCounters are raw pool occupancy numbers.
type PoolCounters struct {
	Acquired int32
	Idle     int32
	Total    int32
	Max      int32
}

// Connector opens a pool for cfg. The default is PGXConnector; tests
// substitute their own.
type Connector func(ctx context.Context, cfg Config) (Pool, error)

// PGXConnector opens a pgxpool sized [MinConns, MaxConns] with the acquire
// timeout applied as statement_timeout.
func PGXConnector(ctx context.Context, cfg Config) (Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}

	pcfg.MinConns = int32(cfg.MinConns)
	pcfg.MaxConns = int32(cfg.MaxConns)
	if cfg.MaxConnLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pcfg.ConnConfig.ConnectTimeout = cfg.AcquireTimeout
	pcfg.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.AcquireTimeout.Milliseconds(), 10)

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	return &pgxPool{pool: pool}, nil
}

type pgxPool struct {
	pool *pgxpool.Pool
}

func (p *pgxPool) Acquire(ctx context.Context) (Conn, error) {
	c, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxConn{c: c}, nil
}

func (p *pgxPool) Stat() PoolCounters {
	s := p.pool.Stat()
	return PoolCounters{
		Acquired: s.AcquiredConns(),
		Idle:     s.IdleConns(),
		Total:    s.TotalConns(),
		Max:      s.MaxConns(),
	}
}

func (p *pgxPool) Close() { p.pool.Close() }

// pgxConn keeps the pooled conn in a named field so its Conn method is not
// promoted over ours.
type pgxConn struct {
	c *pgxpool.Conn
}

func (c *pgxConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return c.c.Exec(ctx, sql, args...)
}

func (c *pgxConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return c.c.Query(ctx, sql, args...)
}

func (c *pgxConn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return c.c.QueryRow(ctx, sql, args...)
}

func (c *pgxConn) Ping(ctx context.Context) error { return c.c.Ping(ctx) }

func (c *pgxConn) IsClosed() bool { return c.c.Conn().IsClosed() }

func (c *pgxConn) Release() { c.c.Release() }

func (c *pgxConn) Discard(ctx context.Context) {
	raw := c.c.Hijack()
	_ = raw.Close(ctx)
}
