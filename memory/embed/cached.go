package embed

import (
	"context"
	"encoding/json"

	"github.com/jonwraymond/memops/cache"
	"github.com/jonwraymond/memops/memory"
)

const cacheNamespace = "embed"

// Cached reads embeddings through a cache.Loader so repeated texts (most
// often repeated search queries) skip the provider.
type Cached struct {
	next   memory.Embedder
	loader *cache.Loader
}

// NewCached wraps next.
func NewCached(next memory.Embedder, loader *cache.Loader) *Cached {
	return &Cached{next: next, loader: loader}
}

type cacheKey struct {
	Model string `json:"model"`
	Text  string `json:"text"`
}

// Embed returns the cached vector for text or computes it.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	data, err := c.loader.Load(ctx, cacheNamespace, cacheKey{Model: c.next.Model(), Text: text},
		func(ctx context.Context) ([]byte, error) {
			vec, err := c.next.Embed(ctx, text)
			if err != nil {
				return nil, err
			}
			return json.Marshal(vec)
		})
	if err != nil {
		return nil, err
	}
	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// Model returns the wrapped model name.
func (c *Cached) Model() string { return c.next.Model() }

// Dims returns the wrapped vector length.
func (c *Cached) Dims() int { return c.next.Dims() }

var _ memory.Embedder = (*Cached)(nil)
