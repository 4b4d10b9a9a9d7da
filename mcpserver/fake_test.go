package mcpserver

import (
	"context"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jonwraymond/memops/health"
	"github.com/jonwraymond/memops/memory"
)

// listStore keeps records in insertion order and "searches" by substring.
type listStore struct {
	mu      sync.Mutex
	records []memory.Record
}

func (s *listStore) Insert(_ context.Context, r memory.Record, _ []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return nil
}

func (s *listStore) Search(_ context.Context, userID string, _ []float32, limit int) ([]memory.Record, error) {
	all, _ := s.List(context.Background(), userID)
	if len(all) > limit {
		all = all[:limit]
	}
	for i := range all {
		all[i].Score = 1 - float64(i)/10
	}
	return all, nil
}

func (s *listStore) List(_ context.Context, userID string) ([]memory.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []memory.Record
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].UserID == userID {
			out = append(out, s.records[i])
		}
	}
	return out, nil
}

func (s *listStore) Delete(_ context.Context, userID string, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.records {
		if r.ID == id && r.UserID == userID {
			s.records = slices.Delete(s.records, i, i+1)
			return true, nil
		}
	}
	return false, nil
}

type lengthEmbedder struct{}

func (lengthEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 1}, nil
}

func (lengthEmbedder) Model() string { return "length" }
func (lengthEmbedder) Dims() int     { return 2 }

func noDatabase(context.Context) (health.DatabaseSource, error) {
	return nil, health.ErrNoDatabase
}

func newTestApp() *App {
	return &App{
		Memory: memory.NewService(&listStore{}, lengthEmbedder{}),
		Health: health.NewService(noDatabase, health.WithVersion("9.9.9")),
	}
}

// call invokes a registered tool and returns its text and error flag.
func call(t *testing.T, ctx context.Context, s *Server, name string, args map[string]any) (string, bool) {
	t.Helper()
	for _, st := range s.tools() {
		if st.Tool.Name != name {
			continue
		}
		req := mcp.CallToolRequest{}
		req.Params.Name = name
		req.Params.Arguments = args

		res, err := st.Handler(ctx, req)
		if err != nil {
			t.Fatalf("%s: protocol error %v", name, err)
		}
		return resultText(t, res.Content), res.IsError
	}
	t.Fatalf("tool %s not registered", name)
	return "", false
}

func resultText(t *testing.T, content []mcp.Content) string {
	t.Helper()
	var parts []string
	for _, c := range content {
		switch tc := c.(type) {
		case mcp.TextContent:
			parts = append(parts, tc.Text)
		case *mcp.TextContent:
			parts = append(parts, tc.Text)
		default:
			t.Fatalf("unexpected content %T", c)
		}
	}
	return strings.Join(parts, "")
}
