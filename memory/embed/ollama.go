package embed

import (
	"context"
	"fmt"
	"net/url"

	ollama "github.com/ollama/ollama/api"

	"github.com/jonwraymond/memops/memory"
)

// Ollama embeds through a local or remote Ollama server.
type Ollama struct {
	client *ollama.Client
	model  string
	dims   int
}

// NewOllama creates an Ollama embedder. Empty settings take the Ollama
// defaults.
func NewOllama(s Settings) (*Ollama, error) {
	s.Provider = ProviderOllama
	s = s.withDefaults()

	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("embed: invalid ollama base URL %q: %w", s.BaseURL, err)
	}
	return &Ollama{
		client: ollama.NewClient(u, s.HTTPClient),
		model:  s.Model,
		dims:   s.Dims,
	}, nil
}

// Embed returns the embedding of text.
func (e *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := e.client.Embed(ctx, &ollama.EmbedRequest{
		Model: e.model,
		Input: text,
	})
	if err != nil {
		return nil, err
	}
	if res == nil || len(res.Embeddings) == 0 || len(res.Embeddings[0]) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return res.Embeddings[0], nil
}

// Model returns the embedding model name.
func (e *Ollama) Model() string { return e.model }

// Dims returns the expected vector length.
func (e *Ollama) Dims() int { return e.dims }

var _ memory.Embedder = (*Ollama)(nil)
