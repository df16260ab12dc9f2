// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// EmbeddingProvider generates vector embeddings from text. The core
// treats it as a black-box capability: given text, return a fixed-length
// numeric vector.
//
// Implementations include:
//   - Ollama (local/offline models such as nomic-embed-text)
//   - OpenAI (remote API, text-embedding-3-small/-large)
//   - Mock (deterministic vectors for tests and degraded operation)
type EmbeddingProvider interface {
	// ID returns the provider identifier used for runtime selection.
	ID() string

	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts. The result is
	// order-preserving and one-to-one with the input.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g. 384, 768, 1536).
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the provider is usable with a lightweight request.
	// A provider switch only takes effect after a successful ping.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
