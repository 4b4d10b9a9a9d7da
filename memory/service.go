package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/memops/observe"
	"github.com/jonwraymond/memops/resilience"
)

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l observe.Logger) Option {
	return func(s *Service) { s.logger = l.With(observe.Component("memory")) }
}

// WithEmbedGuard wraps every embedding call.
func WithEmbedGuard(g *resilience.Guard) Option {
	return func(s *Service) { s.guard = g }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces uuid.New.
func WithIDGenerator(gen func() uuid.UUID) Option {
	return func(s *Service) { s.newID = gen }
}

// Service implements the memory operations.
type Service struct {
	store    Store
	embedder Embedder
	guard    *resilience.Guard
	logger   observe.Logger
	now      func() time.Time
	newID    func() uuid.UUID
}

// NewService creates a Service.
func NewService(store Store, embedder Embedder, opts ...Option) *Service {
	s := &Service{
		store:    store,
		embedder: embedder,
		guard:    resilience.NewGuard(),
		logger:   observe.NopLogger(),
		now:      time.Now,
		newID:    uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save embeds content and stores it for userID.
func (s *Service) Save(ctx context.Context, userID, content string) (Record, error) {
	userID, err := requireUser(userID)
	if err != nil {
		return Record{}, err
	}
	if strings.TrimSpace(content) == "" {
		return Record{}, ErrContentRequired
	}

	vec, err := s.embed(ctx, content)
	if err != nil {
		return Record{}, err
	}

	r := Record{
		ID:        s.newID(),
		UserID:    userID,
		Content:   content,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Insert(ctx, r, vec); err != nil {
		return Record{}, fmt.Errorf("store memory: %w", err)
	}

	s.logger.Info(ctx, "memory saved",
		observe.Field{Key: "user_id", Value: userID},
		observe.Field{Key: "memory_id", Value: r.ID.String()},
	)
	return r, nil
}

// GetAll returns every memory of userID, newest first.
func (s *Service) GetAll(ctx context.Context, userID string) ([]Record, error) {
	userID, err := requireUser(userID)
	if err != nil {
		return nil, err
	}
	records, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	return records, nil
}

// Search returns the memories of userID most similar to query. A
// non-positive limit means DefaultSearchLimit.
func (s *Service) Search(ctx context.Context, userID, query string, limit int) ([]Record, error) {
	userID, err := requireUser(userID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	vec, err := s.embed(ctx, query)
	if err != nil {
		return nil, err
	}
	records, err := s.store.Search(ctx, userID, vec, limit)
	if err != nil {
		return nil, fmt.Errorf("search memories: %w", err)
	}
	return records, nil
}

// Delete removes one memory of userID. Another user's memory is reported as
// ErrNotFound.
func (s *Service) Delete(ctx context.Context, userID, memoryID string) error {
	userID, err := requireUser(userID)
	if err != nil {
		return err
	}
	memoryID = strings.TrimSpace(memoryID)
	if memoryID == "" {
		return ErrMemoryIDRequired
	}
	id, err := uuid.Parse(memoryID)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidMemoryID, memoryID)
	}

	deleted, err := s.store.Delete(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("delete memory: %w", err)
	}
	if !deleted {
		return ErrNotFound
	}
	s.logger.Info(ctx, "memory deleted",
		observe.Field{Key: "user_id", Value: userID},
		observe.Field{Key: "memory_id", Value: id.String()},
	)
	return nil
}

func (s *Service) embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := resilience.Do(ctx, s.guard, func(ctx context.Context) ([]float32, error) {
		return s.embedder.Embed(ctx, text)
	})
	if err != nil {
		return nil, fmt.Errorf("embed with %s: %w", s.embedder.Model(), err)
	}
	if want := s.embedder.Dims(); want > 0 && len(vec) != want {
		return nil, fmt.Errorf("%w: model %s returned %d values, want %d", ErrDimensionMismatch, s.embedder.Model(), len(vec), want)
	}
	return vec, nil
}

// requireUser rejects blank IDs. The ID is used exactly as given so that
// owners differing only in whitespace stay distinct.
func requireUser(userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", ErrUserIDRequired
	}
	return userID, nil
}
