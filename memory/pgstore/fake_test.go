package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jonwraymond/memops/database"
)

type call struct {
	sql  string
	args []any
}

// fakeConn records statements and answers from scripted results.
type fakeConn struct {
	calls    []call
	execErr  error
	execTag  string
	rows     [][]any
	queryErr error
	width    int
}

func (c *fakeConn) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c.calls = append(c.calls, call{sql, args})
	if c.execErr != nil {
		return pgconn.CommandTag{}, c.execErr
	}
	tag := c.execTag
	if tag == "" {
		tag = "INSERT 0 1"
	}
	return pgconn.NewCommandTag(tag), nil
}

func (c *fakeConn) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	c.calls = append(c.calls, call{sql, args})
	if c.queryErr != nil {
		return nil, c.queryErr
	}
	return &fakeRows{rows: c.rows, pos: -1}, nil
}

func (c *fakeConn) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	c.calls = append(c.calls, call{sql, args})
	return fakeRow{vals: []any{c.width}}
}

func (c *fakeConn) Ping(context.Context) error { return nil }
func (c *fakeConn) IsClosed() bool             { return false }
func (c *fakeConn) Release()                   {}
func (c *fakeConn) Discard(context.Context)    {}

func (c *fakeConn) last() call { return c.calls[len(c.calls)-1] }

// fakeRunner hands the same fakeConn to every WithConn call.
type fakeRunner struct {
	conn    *fakeConn
	borrows int
	err     error
}

func (r *fakeRunner) WithConn(ctx context.Context, fn func(context.Context, database.Conn) error) error {
	if r.err != nil {
		return r.err
	}
	r.borrows++
	return fn(ctx, r.conn)
}

type fakeRow struct {
	vals []any
}

func (r fakeRow) Scan(dest ...any) error { return assign(r.vals, dest) }

type fakeRows struct {
	rows   [][]any
	pos    int
	closed bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error { return assign(r.rows[r.pos], dest) }

func (r *fakeRows) Values() ([]any, error) { return r.rows[r.pos], nil }

func assign(vals []any, dest []any) error {
	if len(vals) != len(dest) {
		return fmt.Errorf("fake: %d values for %d destinations", len(vals), len(dest))
	}
	for i, v := range vals {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *int:
			*d = v.(int)
		case *float64:
			*d = v.(float64)
		case *time.Time:
			*d = v.(time.Time)
		default:
			return errors.New("fake: unsupported destination")
		}
	}
	return nil
}

func normalize(sql string) string { return strings.Join(strings.Fields(sql), " ") }
