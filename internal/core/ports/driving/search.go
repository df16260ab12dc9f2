package driving

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// Searcher performs similarity search over the stored corpus.
type Searcher interface {
	// Search embeds the query once and ranks all stored vectors by
	// cosine similarity, applying threshold, topK and metadata
	// filtering per options.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)

	// SearchByVector ranks against an already-computed query vector.
	SearchByVector(ctx context.Context, queryVector []float32, opts domain.SearchOptions) ([]domain.SearchResult, error)
}
