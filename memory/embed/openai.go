package embed

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jonwraymond/memops/memory"
)

// OpenAI embeds through the OpenAI embeddings API or a compatible endpoint
// such as OpenRouter.
type OpenAI struct {
	client *openai.Client
	model  string
	dims   int
}

// NewOpenAI creates an OpenAI-compatible embedder. Empty settings take the
// OpenAI defaults.
func NewOpenAI(s Settings) *OpenAI {
	if s.Provider == "" {
		s.Provider = ProviderOpenAI
	}
	s = s.withDefaults()

	cfg := openai.DefaultConfig(s.APIKey)
	if s.BaseURL != "" {
		cfg.BaseURL = s.BaseURL
	}
	cfg.HTTPClient = s.HTTPClient
	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  s.Model,
		dims:   s.Dims,
	}
}

// Embed returns the embedding of text.
func (e *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	}
	// text-embedding-3 models can shorten their output.
	if e.dims > 0 && e.dims != DefaultOpenAIDims {
		req.Dimensions = e.dims
	}
	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return resp.Data[0].Embedding, nil
}

// Model returns the embedding model name.
func (e *OpenAI) Model() string { return e.model }

// Dims returns the expected vector length.
func (e *OpenAI) Dims() int { return e.dims }

var _ memory.Embedder = (*OpenAI)(nil)
