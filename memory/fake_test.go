package memory

import (
	"context"
	"errors"
	"math"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type storedRecord struct {
	Record
	vec []float32
}

// memStore is an in-process Store ranking by cosine similarity.
type memStore struct {
	mu      sync.Mutex
	records []storedRecord
	err     error
}

func (m *memStore) Insert(_ context.Context, r Record, vec []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, storedRecord{Record: r, vec: slices.Clone(vec)})
	return nil
}

func (m *memStore) Search(_ context.Context, userID string, vec []float32, limit int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []Record
	for _, r := range m.records {
		if r.UserID == userID {
			rec := r.Record
			rec.Score = cosine(vec, r.vec)
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) List(_ context.Context, userID string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []Record
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].UserID == userID {
			out = append(out, m.records[i].Record)
		}
	}
	return out, nil
}

func (m *memStore) Delete(_ context.Context, userID string, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	for i, r := range m.records {
		if r.ID == id && r.UserID == userID {
			m.records = slices.Delete(m.records, i, i+1)
			return true, nil
		}
	}
	return false, nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// keywordEmbedder maps text onto a tiny bag-of-words space.
type keywordEmbedder struct {
	words []string
	calls int
	err   error
	dims  int
}

var errEmbed = errors.New("embedding backend unavailable")

func newKeywordEmbedder(words ...string) *keywordEmbedder {
	return &keywordEmbedder{words: words, dims: len(words)}
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	vec := make([]float32, len(e.words))
	for i, w := range e.words {
		if containsWord(text, w) {
			vec[i] = 1
		}
	}
	return vec, nil
}

func (e *keywordEmbedder) Model() string { return "keyword" }
func (e *keywordEmbedder) Dims() int     { return e.dims }

func containsWord(text, word string) bool {
	for _, f := range splitWords(text) {
		if f == word {
			return true
		}
	}
	return false
}

func splitWords(s string) []string {
	var out []string
	start := -1
	for i, r := range s + " " {
		isLetter := r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
		switch {
		case isLetter && start < 0:
			start = i
		case !isLetter && start >= 0:
			out = append(out, s[start:i])
			start = -1
		}
	}
	return out
}
