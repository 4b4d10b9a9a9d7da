package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonwraymond/memops/database"
	"github.com/jonwraymond/memops/memory"
)

// DefaultTable is the collection the memories live in.
const DefaultTable = "mem0_memories"

// ErrInvalidTable is returned for table names that are not plain identifiers.
var ErrInvalidTable = errors.New("pgstore: invalid table name")

var identRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Runner lends out connections. *database.Manager satisfies it.
type Runner interface {
	WithConn(ctx context.Context, fn func(ctx context.Context, conn database.Conn) error) error
}

// Option configures a Store.
type Option func(*Store)

// WithTable overrides DefaultTable.
func WithTable(name string) Option {
	return func(s *Store) { s.table = name }
}

// Store is a pgvector-backed memory.Store.
type Store struct {
	db    Runner
	dims  int
	table string
	q     queries
}

type queries struct {
	insert, search, list, remove, dims string
}

// New creates a Store for vectors of length dims.
func New(db Runner, dims int, opts ...Option) (*Store, error) {
	s := &Store{db: db, dims: dims, table: DefaultTable}
	for _, opt := range opts {
		opt(s)
	}
	if !identRE.MatchString(s.table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, s.table)
	}
	if dims <= 0 {
		return nil, fmt.Errorf("pgstore: dimensions must be positive, got %d", dims)
	}

	t := pgx.Identifier{s.table}.Sanitize()
	s.q = queries{
		insert: `INSERT INTO ` + t + ` (id, user_id, content, embedding, metadata, created_at)
VALUES ($1::uuid, $2, $3, $4::vector, $5::jsonb, $6)`,
		search: `SELECT id::text, user_id, content, metadata::text, created_at, 1 - (embedding <=> $2::vector) AS score
FROM ` + t + `
WHERE user_id = $1
ORDER BY embedding <=> $2::vector
LIMIT $3`,
		list: `SELECT id::text, user_id, content, metadata::text, created_at, 0::float8
FROM ` + t + `
WHERE user_id = $1
ORDER BY created_at DESC`,
		remove: `DELETE FROM ` + t + ` WHERE id = $1::uuid AND user_id = $2`,
		dims: `SELECT atttypmod FROM pg_attribute
WHERE attrelid = $1::regclass AND attname = 'embedding'`,
	}
	return s, nil
}

// Table returns the table name.
func (s *Store) Table() string { return s.table }

// EnsureSchema creates the pgvector extension, the table and its owner
// index when missing. An existing table whose vector width differs from the
// Store's is reported as memory.ErrDimensionMismatch.
func (s *Store) EnsureSchema(ctx context.Context) error {
	t := pgx.Identifier{s.table}.Sanitize()
	idx := pgx.Identifier{s.table + "_user_created_idx"}.Sanitize()
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id uuid PRIMARY KEY,
	user_id text NOT NULL,
	content text NOT NULL,
	embedding vector(%d) NOT NULL,
	metadata jsonb NOT NULL DEFAULT '{}'::jsonb,
	created_at timestamptz NOT NULL DEFAULT now()
)`, t, s.dims),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (user_id, created_at DESC)`, idx, t),
	}

	return s.db.WithConn(ctx, func(ctx context.Context, conn database.Conn) error {
		for _, stmt := range stmts {
			if _, err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("pgstore: ensure schema: %w", err)
			}
		}
		var width int
		if err := conn.QueryRow(ctx, s.q.dims, s.table).Scan(&width); err != nil {
			return fmt.Errorf("pgstore: read vector width: %w", err)
		}
		if width != s.dims {
			return fmt.Errorf("%w: table %s stores vector(%d), embedder produces %d",
				memory.ErrDimensionMismatch, s.table, width, s.dims)
		}
		return nil
	})
}

// Insert stores r with its embedding.
func (s *Store) Insert(ctx context.Context, r memory.Record, embedding []float32) error {
	if len(embedding) != s.dims {
		return fmt.Errorf("%w: got %d values, want %d", memory.ErrDimensionMismatch, len(embedding), s.dims)
	}
	meta, err := encodeMetadata(r.Metadata)
	if err != nil {
		return err
	}
	return s.db.WithConn(ctx, func(ctx context.Context, conn database.Conn) error {
		_, err := conn.Exec(ctx, s.q.insert,
			r.ID.String(), r.UserID, r.Content, vectorLiteral(embedding), meta, r.CreatedAt)
		return err
	})
}

// Search returns the limit records of userID closest to embedding by cosine
// distance. Score is the cosine similarity.
func (s *Store) Search(ctx context.Context, userID string, embedding []float32, limit int) ([]memory.Record, error) {
	if len(embedding) != s.dims {
		return nil, fmt.Errorf("%w: got %d values, want %d", memory.ErrDimensionMismatch, len(embedding), s.dims)
	}
	return s.query(ctx, s.q.search, userID, vectorLiteral(embedding), limit)
}

// List returns every record of userID, newest first.
func (s *Store) List(ctx context.Context, userID string) ([]memory.Record, error) {
	return s.query(ctx, s.q.list, userID)
}

// Delete removes the record id if it belongs to userID.
func (s *Store) Delete(ctx context.Context, userID string, id uuid.UUID) (bool, error) {
	var deleted bool
	err := s.db.WithConn(ctx, func(ctx context.Context, conn database.Conn) error {
		tag, err := conn.Exec(ctx, s.q.remove, id.String(), userID)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected() > 0
		return nil
	})
	return deleted, err
}

func (s *Store) query(ctx context.Context, sql string, args ...any) ([]memory.Record, error) {
	var out []memory.Record
	err := s.db.WithConn(ctx, func(ctx context.Context, conn database.Conn) error {
		rows, err := conn.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			r, err := scanRecord(rows)
			if err != nil {
				return err
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scanRecord(row pgx.Row) (memory.Record, error) {
	var (
		r       memory.Record
		id      string
		meta    string
		created time.Time
	)
	if err := row.Scan(&id, &r.UserID, &r.Content, &meta, &created, &r.Score); err != nil {
		return r, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return r, fmt.Errorf("pgstore: row id %q: %w", id, err)
	}
	r.ID = parsed
	r.CreatedAt = created.UTC()
	if meta != "" && meta != "{}" {
		if err := json.Unmarshal([]byte(meta), &r.Metadata); err != nil {
			return r, fmt.Errorf("pgstore: row metadata: %w", err)
		}
	}
	return r, nil
}

func encodeMetadata(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("pgstore: encode metadata: %w", err)
	}
	return string(data), nil
}

var _ memory.Store = (*Store)(nil)
