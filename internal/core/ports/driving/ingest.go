package driving

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// Ingestor runs the document pipeline: chunk, embed, persist, record
// lineage and schedule staleness checks.
type Ingestor interface {
	// Ingest processes one document end to end. Errors propagate to
	// the caller unchanged.
	Ingest(ctx context.Context, doc *domain.LegalDocument) error

	// IngestAll processes many documents with partial-failure
	// semantics: per-document failures are collected in the result,
	// never raised. The returned error is reserved for context
	// cancellation and fatal storage failures.
	IngestAll(ctx context.Context, docs []*domain.LegalDocument) (*domain.BulkResult, error)

	// Reindex re-chunks and re-embeds a stored document, replacing
	// its chunks and vectors.
	Reindex(ctx context.Context, documentID string) error
}
