package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultSearchLimit is the number of results when none is requested.
const DefaultSearchLimit = 3

// Record is one stored memory.
type Record struct {
	ID        uuid.UUID      `json:"id"`
	UserID    string         `json:"user_id"`
	Content   string         `json:"memory"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`

	// Score is the similarity to the query in [0, 1]; set only by Search.
	Score float64 `json:"score,omitempty"`
}

// Store persists records with their embeddings.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Isolation: every method filters by userID.
// - Errors: Delete reports a missing record as (false, nil).
type Store interface {
	Insert(ctx context.Context, r Record, embedding []float32) error

	// Search returns up to limit records ordered by decreasing similarity.
	Search(ctx context.Context, userID string, embedding []float32, limit int) ([]Record, error)

	// List returns all records, newest first.
	List(ctx context.Context, userID string) ([]Record, error)

	Delete(ctx context.Context, userID string, id uuid.UUID) (bool, error)
}

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// Model names the embedding model.
	Model() string

	// Dims is the vector length Embed returns.
	Dims() int
}
