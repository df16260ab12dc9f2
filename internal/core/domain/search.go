package domain

import "time"

// Default search parameters.
const (
	// DefaultTopK is the default number of search results.
	DefaultTopK = 10

	// DefaultScoreThreshold is the minimum cosine similarity for a
	// result to be considered relevant.
	DefaultScoreThreshold = 0.7
)

// DateRange bounds a metadata filter on document update time.
// Zero values leave the corresponding bound open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// MetadataFilter narrows search results after ranking. All set fields
// must match. Filtering happens after threshold and topK selection, so a
// filtered search may return fewer than TopK results.
type MetadataFilter struct {
	LegalArea    string
	DocumentType string
	Hierarchy    string
	DateRange    *DateRange
}

// SearchOptions controls similarity search.
type SearchOptions struct {
	// TopK is the maximum number of results (default DefaultTopK).
	TopK int

	// ScoreThreshold discards results scoring below it. Zero means
	// unset and selects DefaultScoreThreshold; a caller that wants no
	// threshold passes a negative value, which is honoured as-is
	// (cosine scores never fall below -1).
	ScoreThreshold float64

	// Filter optionally narrows results by document metadata.
	Filter *MetadataFilter

	// MinConfidence optionally discards results whose document's
	// effective confidence (RAG metadata) is below it.
	MinConfidence float64
}

// Normalise fills in defaults for unset options. Negative score
// thresholds are kept so callers can opt out of thresholding.
func (o *SearchOptions) Normalise() {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.ScoreThreshold == 0 {
		o.ScoreThreshold = DefaultScoreThreshold
	}
}

// SearchResult is one ranked similarity hit.
type SearchResult struct {
	// Chunk is the matched chunk, content included.
	Chunk Chunk

	// Score is the cosine similarity against the query vector.
	Score float64

	// LegalArea is the owning document's legal area, surfaced so
	// callers can display provenance without a second lookup.
	LegalArea string
}

// BulkResult aggregates the outcome of a multi-document operation.
// Bulk operations never abort on a single item failure; callers must
// inspect Errors rather than rely on a returned error.
type BulkResult struct {
	// SuccessCount is the number of items processed successfully.
	SuccessCount int

	// FailureCount is the number of items that failed.
	FailureCount int

	// Errors lists the per-item failures, keyed by item ID.
	Errors []ItemError
}

// ItemError records one per-item failure in a bulk operation.
type ItemError struct {
	ItemID string
	Err    error
}
