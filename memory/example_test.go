package memory_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonwraymond/memops/memory"
)

type exampleStore struct {
	records []memory.Record
}

func (s *exampleStore) Insert(_ context.Context, r memory.Record, _ []float32) error {
	s.records = append(s.records, r)
	return nil
}

func (s *exampleStore) Search(ctx context.Context, userID string, _ []float32, limit int) ([]memory.Record, error) {
	out, _ := s.List(ctx, userID)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *exampleStore) List(_ context.Context, userID string) ([]memory.Record, error) {
	var out []memory.Record
	for _, r := range s.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *exampleStore) Delete(context.Context, string, uuid.UUID) (bool, error) {
	return false, nil
}

type constEmbedder struct{}

func (constEmbedder) Embed(context.Context, string) ([]float32, error) { return []float32{1, 0}, nil }
func (constEmbedder) Model() string                                    { return "const" }
func (constEmbedder) Dims() int                                        { return 2 }

func ExampleService() {
	svc := memory.NewService(&exampleStore{}, constEmbedder{})
	ctx := context.Background()

	_, _ = svc.Save(ctx, "alice", "prefers window seats")
	_, _ = svc.Save(ctx, "bob", "allergic to peanuts")

	mine, _ := svc.GetAll(ctx, "alice")
	fmt.Println(len(mine), mine[0].Content)

	_, err := svc.GetAll(ctx, "")
	fmt.Println(errors.Is(err, memory.ErrUserIDRequired))
	// Output:
	// 1 prefers window seats
	// true
}
