// Package mock provides a deterministic embedding provider for tests
// and degraded operation. Vectors are derived from an FNV hash of the
// input text, so the same text always yields the same vector and no
// network access is required.
package mock

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sync"

	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.EmbeddingProvider = (*Provider)(nil)

// ProviderID identifies this provider for runtime selection.
const ProviderID = "mock"

// DefaultDimensions matches small sentence-transformer models.
const DefaultDimensions = 384

// Provider generates deterministic pseudo-embeddings.
type Provider struct {
	dimensions int

	mu sync.Mutex
	// failFor makes Embed fail for specific texts, used to exercise
	// partial-failure paths in tests.
	failFor map[string]error
	// calls counts Embed/EmbedBatch invocations.
	calls int
}

// New creates a mock provider with the given dimension count.
func New(dimensions int) *Provider {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &Provider{
		dimensions: dimensions,
		failFor:    make(map[string]error),
	}
}

// FailFor makes subsequent Embed calls for text return err.
func (p *Provider) FailFor(text string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failFor[text] = err
}

// Calls returns the number of embedding invocations so far.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// ID returns the provider identifier.
func (p *Provider) ID() string {
	return ProviderID
}

// Embed returns a deterministic unit-normalised vector for the text.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.calls++
	failErr := p.failFor[text]
	p.mu.Unlock()

	if failErr != nil {
		return nil, failErr
	}
	if text == "" {
		return nil, fmt.Errorf("mock: empty text")
	}

	return deterministicVector(text, p.dimensions), nil
}

// EmbedBatch embeds each text in order, one-to-one with the input.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embedding, err := p.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		embeddings[i] = embedding
	}
	return embeddings, nil
}

// Dimensions returns the embedding vector size.
func (p *Provider) Dimensions() int {
	return p.dimensions
}

// ModelName returns the mock model identifier.
func (p *Provider) ModelName() string {
	return "mock-deterministic"
}

// Ping always succeeds; the mock provider has no remote dependency.
func (p *Provider) Ping(_ context.Context) error {
	return nil
}

// Close releases resources.
func (p *Provider) Close() error {
	return nil
}

// deterministicVector expands an FNV-1a hash of the text into a
// unit-normalised vector of the requested dimension.
func deterministicVector(text string, dimensions int) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, dimensions)
	var norm float64
	state := seed
	for i := range vec {
		// xorshift64 keeps components well spread across [-1, 1].
		state ^= state << 13
		state ^= state >> 7
		state ^= state << 17
		v := float64(int64(state)) / float64(math.MaxInt64)
		vec[i] = float32(v)
		norm += v * v
	}

	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}
