package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// DefaultNextCheckDays is how far ahead a freshly ingested document's
// change check is scheduled.
const DefaultNextCheckDays = 7

// defaultAccuracy is assigned to documents without prior lineage.
const defaultAccuracy = 1.0

// Ensure IngestService implements the interface.
var _ driving.Ingestor = (*IngestService)(nil)

// IngestService runs the document pipeline: chunk, embed, persist,
// record lineage and schedule staleness checks.
type IngestService struct {
	embedder     *EmbeddingService
	vectorStore  driven.VectorStore
	lineageStore driven.LineageStore
}

// NewIngestService creates the ingest pipeline.
func NewIngestService(
	embedder *EmbeddingService,
	vectorStore driven.VectorStore,
	lineageStore driven.LineageStore,
) *IngestService {
	return &IngestService{
		embedder:     embedder,
		vectorStore:  vectorStore,
		lineageStore: lineageStore,
	}
}

// Ingest processes one document end to end. Errors propagate to the
// caller unchanged.
func (s *IngestService) Ingest(ctx context.Context, doc *domain.LegalDocument) error {
	if err := validateDocument(doc); err != nil {
		return err
	}

	logger.Info("ingesting document %s", doc.ID)
	return s.embedder.EmbedDocument(ctx, doc, s.persist("ingest"))
}

// IngestAll processes many documents with partial-failure semantics.
// Per-document failures land in the result; the returned error is
// reserved for context cancellation.
func (s *IngestService) IngestAll(ctx context.Context, docs []*domain.LegalDocument) (*domain.BulkResult, error) {
	valid := make([]*domain.LegalDocument, 0, len(docs))
	result := &domain.BulkResult{}
	for _, doc := range docs {
		if err := validateDocument(doc); err != nil {
			id := ""
			if doc != nil {
				id = doc.ID
			}
			result.FailureCount++
			result.Errors = append(result.Errors, domain.ItemError{ItemID: id, Err: err})
			continue
		}
		valid = append(valid, doc)
	}

	bulk, err := s.embedder.GenerateAllEmbeddings(ctx, valid, s.persist("ingest"))
	if bulk != nil {
		result.SuccessCount += bulk.SuccessCount
		result.FailureCount += bulk.FailureCount
		result.Errors = append(result.Errors, bulk.Errors...)
	}
	return result, err
}

// Reindex re-chunks and re-embeds a stored document, replacing its
// chunks and vectors.
func (s *IngestService) Reindex(ctx context.Context, documentID string) error {
	doc, err := s.vectorStore.GetDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("loading document %s: %w", documentID, err)
	}
	doc.UpdatedAt = time.Now()

	logger.Info("reindexing document %s", documentID)
	return s.embedder.EmbedDocument(ctx, doc, s.persist("reindex"))
}

// persist builds the store callback handed to the orchestrator: the
// atomic document write followed by lineage, audit, quality metadata
// and change-detection bookkeeping.
func (s *IngestService) persist(action string) StoreFunc {
	return func(ctx context.Context, doc *domain.LegalDocument, chunks []domain.Chunk, records []domain.VectorRecord) error {
		if err := s.vectorStore.SaveDocument(ctx, doc, chunks, records); err != nil {
			return err
		}
		return s.recordProvenance(ctx, doc, action)
	}
}

// recordProvenance updates lineage, appends an audit entry and
// refreshes quality metadata and the change-detection schedule.
func (s *IngestService) recordProvenance(ctx context.Context, doc *domain.LegalDocument, action string) error {
	now := time.Now()

	lineage, err := s.lineageStore.GetLineage(ctx, doc.ID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		lineage = &domain.DocumentLineage{
			DocumentID: doc.ID,
			Accuracy:   defaultAccuracy,
		}
	case err != nil:
		return fmt.Errorf("loading lineage: %w", err)
	}

	lineage.CurrentVersion = nextVersion(lineage.CurrentVersion)
	lineage.LegalArea = doc.LegalArea
	lineage.Hierarchy = doc.Hierarchy
	lineage.UpdatedAt = now
	lineage.Revisions = append(lineage.Revisions, domain.Revision{
		Version:   lineage.CurrentVersion,
		ChangedAt: now,
		Note:      action,
	})

	if err := s.lineageStore.SaveLineage(ctx, lineage); err != nil {
		return fmt.Errorf("saving lineage: %w", err)
	}

	if err := s.lineageStore.AddAudit(ctx, &domain.AuditEntry{
		AuditID:    uuid.NewString(),
		DocumentID: doc.ID,
		Action:     action,
		Timestamp:  now,
	}); err != nil {
		return fmt.Errorf("recording audit: %w", err)
	}

	if err := s.lineageStore.SaveRAGMetadata(ctx, &domain.RAGMetadata{
		DocumentID:          doc.ID,
		EffectiveConfidence: lineage.Accuracy,
		EmbeddingDate:       now,
	}); err != nil {
		return fmt.Errorf("saving quality metadata: %w", err)
	}

	if err := s.lineageStore.SaveChangeDetection(ctx, &domain.ChangeDetectionConfig{
		DocumentID:    doc.ID,
		NextCheckDate: now.AddDate(0, 0, DefaultNextCheckDays),
	}); err != nil {
		return fmt.Errorf("scheduling change check: %w", err)
	}

	return nil
}

// validateDocument rejects documents the chunker cannot process.
func validateDocument(doc *domain.LegalDocument) error {
	if doc == nil {
		return fmt.Errorf("%w: nil document", domain.ErrInvalidInput)
	}
	if doc.ID == "" {
		return fmt.Errorf("%w: document has no ID", domain.ErrInvalidInput)
	}
	if len(doc.Sections) == 0 {
		return fmt.Errorf("%w: document %s has no sections", domain.ErrInvalidInput, doc.ID)
	}
	return nil
}

// nextVersion increments a v-prefixed version, starting at v1.
func nextVersion(current string) string {
	if current == "" {
		return "v1"
	}
	n, err := strconv.Atoi(strings.TrimPrefix(current, "v"))
	if err != nil {
		return current + ".1"
	}
	return "v" + strconv.Itoa(n+1)
}
