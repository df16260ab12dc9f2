package driven

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// DocumentWrite bundles a document with its chunks and vector records
// for bulk insertion.
type DocumentWrite struct {
	Document *domain.LegalDocument
	Chunks   []domain.Chunk
	Records  []domain.VectorRecord
}

// VectorStore persists documents, chunks and quantised embeddings.
// Backed by SQLite; the content write and the embedding write for one
// document form a single transaction.
type VectorStore interface {
	// SaveDocument upserts a document with its chunks and vector
	// records atomically. Existing chunks for the document are
	// replaced. Chunk and vector writes either all commit or all
	// roll back.
	SaveDocument(ctx context.Context, doc *domain.LegalDocument, chunks []domain.Chunk, records []domain.VectorRecord) error

	// SaveDocuments bulk-inserts documents in bounded groups to cap
	// peak transaction load. Each document still commits atomically.
	SaveDocuments(ctx context.Context, writes []DocumentWrite) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.LegalDocument, error)

	// GetChunk retrieves a chunk by ID.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// GetChunks retrieves all chunks for a document, ordered by position.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// ListVectorRecords returns every stored vector record. Search
	// scores all of them; large corpora should be ingested in bounded
	// batches.
	ListVectorRecords(ctx context.Context) ([]domain.VectorRecord, error)

	// DeleteDocument removes a document with its chunks and vectors.
	DeleteDocument(ctx context.Context, id string) error

	// Clear removes all documents, chunks and vector records in one
	// transaction. Partial clears are not acceptable.
	Clear(ctx context.Context) error

	// Stats summarises store contents.
	Stats(ctx context.Context) (*domain.StoreStats, error)

	// Generation returns a counter that advances on every corpus
	// mutation (save, delete, clear). Callers caching derived results
	// include it in their keys so entries from an older corpus state
	// are never served.
	Generation(ctx context.Context) (int64, error)
}
