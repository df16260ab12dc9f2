package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// LineageStore persists document lineage, audit history, retrieval
// quality metadata and change-detection schedules.
//
// Lineage, RAG metadata and change-detection records have upsert
// semantics. Audit entries are append-only: a duplicate audit ID fails
// with domain.ErrAlreadyExists.
type LineageStore interface {
	// SaveLineage stores or updates a document's lineage.
	SaveLineage(ctx context.Context, lineage *domain.DocumentLineage) error

	// GetLineage retrieves lineage by document ID.
	GetLineage(ctx context.Context, documentID string) (*domain.DocumentLineage, error)

	// QueryLineages filters by exactly one indexed dimension (legal
	// area or hierarchy, not both) plus an in-memory minimum
	// confidence post-filter. Setting both dimensions fails with
	// domain.ErrInvalidInput.
	QueryLineages(ctx context.Context, criteria domain.LineageCriteria) ([]domain.DocumentLineage, error)

	// AddAudit appends an audit entry.
	AddAudit(ctx context.Context, entry *domain.AuditEntry) error

	// GetAuditHistory returns up to limit entries for a document in
	// reverse-chronological order. limit <= 0 means no limit.
	GetAuditHistory(ctx context.Context, documentID string, limit int) ([]domain.AuditEntry, error)

	// ClearAudits removes all audit entries (explicit bulk clear).
	ClearAudits(ctx context.Context) error

	// SaveRAGMetadata stores or updates quality metadata.
	SaveRAGMetadata(ctx context.Context, meta *domain.RAGMetadata) error

	// GetRAGMetadata retrieves quality metadata by document ID.
	GetRAGMetadata(ctx context.Context, documentID string) (*domain.RAGMetadata, error)

	// DocumentsNeedingUpdate returns metadata for documents whose
	// embedding date predates now minus daysOld days.
	DocumentsNeedingUpdate(ctx context.Context, daysOld int) ([]domain.RAGMetadata, error)

	// SaveChangeDetection stores or updates a change-detection schedule.
	SaveChangeDetection(ctx context.Context, cfg *domain.ChangeDetectionConfig) error

	// DocumentsToCheck returns schedules whose next check date is due
	// at the given time.
	DocumentsToCheck(ctx context.Context, now time.Time) ([]domain.ChangeDetectionConfig, error)
}
