package embed

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jonwraymond/memops/memory"
)

// Provider names.
const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
)

// Provider defaults.
const (
	DefaultOpenAIModel   = "text-embedding-3-small"
	DefaultOpenAIDims    = 1536
	DefaultOllamaModel   = "nomic-embed-text"
	DefaultOllamaDims    = 768
	DefaultOllamaURL     = "http://localhost:11434"
	DefaultOpenRouterURL = "https://openrouter.ai/api/v1"
	DefaultTimeout       = 60 * time.Second
)

var (
	// ErrUnknownProvider is returned by New for unsupported providers.
	ErrUnknownProvider = errors.New("embed: unknown provider")

	// ErrEmptyEmbedding is returned when a provider answers without a vector.
	ErrEmptyEmbedding = errors.New("embed: provider returned no embedding")
)

// Settings selects and configures an embedder.
type Settings struct {
	Provider string
	Model    string
	Dims     int
	BaseURL  string
	APIKey   string

	// HTTPClient is used for provider calls.
	// Default: a client with DefaultTimeout
	HTTPClient *http.Client
}

// withDefaults fills empty fields from the provider defaults.
func (s Settings) withDefaults() Settings {
	s.Provider = strings.ToLower(strings.TrimSpace(s.Provider))
	switch s.Provider {
	case ProviderOllama:
		if s.Model == "" {
			s.Model = DefaultOllamaModel
		}
		if s.Dims == 0 {
			s.Dims = DefaultOllamaDims
		}
		if s.BaseURL == "" {
			s.BaseURL = DefaultOllamaURL
		}
	case ProviderOpenAI, ProviderOpenRouter:
		if s.Model == "" {
			s.Model = DefaultOpenAIModel
		}
		if s.Dims == 0 {
			s.Dims = DefaultOpenAIDims
		}
		if s.BaseURL == "" && s.Provider == ProviderOpenRouter {
			s.BaseURL = DefaultOpenRouterURL
		}
	}
	if s.HTTPClient == nil {
		s.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	return s
}

// New returns the embedder for s.Provider.
func New(s Settings) (memory.Embedder, error) {
	s = s.withDefaults()
	switch s.Provider {
	case ProviderOpenAI, ProviderOpenRouter:
		return NewOpenAI(s), nil
	case ProviderOllama:
		return NewOllama(s)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, s.Provider)
	}
}
