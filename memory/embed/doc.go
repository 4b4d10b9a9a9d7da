// Package embed provides the memory.Embedder implementations: an
// OpenAI-compatible client (OpenAI and OpenRouter) and an Ollama client,
// plus a read-through cache wrapper.
//
// Provider selection follows LLM_PROVIDER. Model, dimensions, base URL and
// key fall back to the provider defaults when not overridden.
package embed
