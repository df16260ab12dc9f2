package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// lineageStore implements driven.LineageStore.
type lineageStore struct {
	store *Store
}

var _ driven.LineageStore = (*lineageStore)(nil)

// SaveLineage stores or updates a document's lineage.
func (s *lineageStore) SaveLineage(ctx context.Context, lineage *domain.DocumentLineage) error {
	if lineage == nil || lineage.DocumentID == "" {
		return domain.ErrInvalidInput
	}

	revisionsJSON, err := json.Marshal(lineage.Revisions)
	if err != nil {
		return fmt.Errorf("marshalling revisions: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO lineage (document_id, current_version, legal_area, hierarchy, accuracy, revisions, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			current_version = excluded.current_version,
			legal_area = excluded.legal_area,
			hierarchy = excluded.hierarchy,
			accuracy = excluded.accuracy,
			revisions = excluded.revisions,
			updated_at = excluded.updated_at
	`, lineage.DocumentID, lineage.CurrentVersion, lineage.LegalArea, lineage.Hierarchy,
		lineage.Accuracy, string(revisionsJSON), lineage.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving lineage: %w", err)
	}
	return nil
}

// GetLineage retrieves lineage by document ID.
func (s *lineageStore) GetLineage(ctx context.Context, documentID string) (*domain.DocumentLineage, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT document_id, current_version, legal_area, hierarchy, accuracy, revisions, updated_at
		FROM lineage WHERE document_id = ?
	`, documentID)
	return scanLineage(row)
}

// QueryLineages filters by exactly one indexed dimension. Setting both
// legal area and hierarchy, or neither, fails with ErrInvalidInput.
// MinConfidence is applied in memory after the indexed lookup.
func (s *lineageStore) QueryLineages(ctx context.Context, criteria domain.LineageCriteria) ([]domain.DocumentLineage, error) {
	var column, value string
	switch {
	case criteria.LegalArea != "" && criteria.Hierarchy != "":
		return nil, fmt.Errorf("%w: query by legal area or hierarchy, not both", domain.ErrInvalidInput)
	case criteria.LegalArea != "":
		column, value = "legal_area", criteria.LegalArea
	case criteria.Hierarchy != "":
		column, value = "hierarchy", criteria.Hierarchy
	default:
		return nil, fmt.Errorf("%w: query requires a legal area or a hierarchy", domain.ErrInvalidInput)
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT document_id, current_version, legal_area, hierarchy, accuracy, revisions, updated_at
		FROM lineage WHERE `+column+` = ?
		ORDER BY document_id
	`, value)
	if err != nil {
		return nil, fmt.Errorf("querying lineage: %w", err)
	}
	defer rows.Close()

	var results []domain.DocumentLineage //nolint:prealloc // size unknown from query
	for rows.Next() {
		lineage, err := scanLineage(rows)
		if err != nil {
			return nil, err
		}
		if lineage.Accuracy < criteria.MinConfidence {
			continue
		}
		results = append(results, *lineage)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating lineage: %w", err)
	}

	return results, nil
}

// AddAudit appends an audit entry. Entries are append-only: reusing an
// audit ID fails with ErrAlreadyExists.
func (s *lineageStore) AddAudit(ctx context.Context, entry *domain.AuditEntry) error {
	if entry == nil || entry.AuditID == "" || entry.DocumentID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO audits (audit_id, document_id, action, timestamp)
		VALUES (?, ?, ?, ?)
	`, entry.AuditID, entry.DocumentID, entry.Action, entry.Timestamp)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: audit %s", domain.ErrAlreadyExists, entry.AuditID)
		}
		return fmt.Errorf("adding audit: %w", err)
	}
	return nil
}

// GetAuditHistory returns up to limit entries for a document, newest
// first. limit <= 0 means no limit.
func (s *lineageStore) GetAuditHistory(ctx context.Context, documentID string, limit int) ([]domain.AuditEntry, error) {
	query := `
		SELECT audit_id, document_id, action, timestamp
		FROM audits WHERE document_id = ?
		ORDER BY timestamp DESC, rowid DESC
	`
	args := []any{documentID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audits: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry //nolint:prealloc // size unknown from query
	for rows.Next() {
		var entry domain.AuditEntry
		if err := rows.Scan(&entry.AuditID, &entry.DocumentID, &entry.Action, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning audit: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audits: %w", err)
	}

	return entries, nil
}

// ClearAudits removes all audit entries.
func (s *lineageStore) ClearAudits(ctx context.Context) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM audits"); err != nil {
		return fmt.Errorf("clearing audits: %w", err)
	}
	return nil
}

// SaveRAGMetadata stores or updates quality metadata.
func (s *lineageStore) SaveRAGMetadata(ctx context.Context, meta *domain.RAGMetadata) error {
	if meta == nil || meta.DocumentID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO rag_metadata (document_id, effective_confidence, embedding_date)
		VALUES (?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			effective_confidence = excluded.effective_confidence,
			embedding_date = excluded.embedding_date
	`, meta.DocumentID, meta.EffectiveConfidence, meta.EmbeddingDate)
	if err != nil {
		return fmt.Errorf("saving rag metadata: %w", err)
	}
	return nil
}

// GetRAGMetadata retrieves quality metadata by document ID.
func (s *lineageStore) GetRAGMetadata(ctx context.Context, documentID string) (*domain.RAGMetadata, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT document_id, effective_confidence, embedding_date
		FROM rag_metadata WHERE document_id = ?
	`, documentID)

	var meta domain.RAGMetadata
	if err := row.Scan(&meta.DocumentID, &meta.EffectiveConfidence, &meta.EmbeddingDate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning rag metadata: %w", err)
	}
	return &meta, nil
}

// DocumentsNeedingUpdate returns metadata for documents whose embedding
// date predates now minus daysOld days.
func (s *lineageStore) DocumentsNeedingUpdate(ctx context.Context, daysOld int) ([]domain.RAGMetadata, error) {
	cutoff := time.Now().AddDate(0, 0, -daysOld)

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT document_id, effective_confidence, embedding_date
		FROM rag_metadata WHERE embedding_date < ?
		ORDER BY embedding_date
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("querying stale metadata: %w", err)
	}
	defer rows.Close()

	var stale []domain.RAGMetadata //nolint:prealloc // size unknown from query
	for rows.Next() {
		var meta domain.RAGMetadata
		if err := rows.Scan(&meta.DocumentID, &meta.EffectiveConfidence, &meta.EmbeddingDate); err != nil {
			return nil, fmt.Errorf("scanning rag metadata: %w", err)
		}
		stale = append(stale, meta)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rag metadata: %w", err)
	}

	return stale, nil
}

// SaveChangeDetection stores or updates a change-detection schedule.
func (s *lineageStore) SaveChangeDetection(ctx context.Context, cfg *domain.ChangeDetectionConfig) error {
	if cfg == nil || cfg.DocumentID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO change_detection (document_id, next_check_date, changes_detected)
		VALUES (?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			next_check_date = excluded.next_check_date,
			changes_detected = excluded.changes_detected
	`, cfg.DocumentID, cfg.NextCheckDate, boolToInt(cfg.ChangesDetected))
	if err != nil {
		return fmt.Errorf("saving change detection: %w", err)
	}
	return nil
}

// DocumentsToCheck returns schedules whose next check date is due.
func (s *lineageStore) DocumentsToCheck(ctx context.Context, now time.Time) ([]domain.ChangeDetectionConfig, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT document_id, next_check_date, changes_detected
		FROM change_detection WHERE next_check_date <= ?
		ORDER BY next_check_date
	`, now)
	if err != nil {
		return nil, fmt.Errorf("querying change detection: %w", err)
	}
	defer rows.Close()

	var due []domain.ChangeDetectionConfig //nolint:prealloc // size unknown from query
	for rows.Next() {
		var cfg domain.ChangeDetectionConfig
		var detected int
		if err := rows.Scan(&cfg.DocumentID, &cfg.NextCheckDate, &detected); err != nil {
			return nil, fmt.Errorf("scanning change detection: %w", err)
		}
		cfg.ChangesDetected = detected != 0
		due = append(due, cfg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating change detection: %w", err)
	}

	return due, nil
}

// scanLineage scans a lineage row from either *sql.Row or *sql.Rows.
func scanLineage(row interface{ Scan(...any) error }) (*domain.DocumentLineage, error) {
	var lineage domain.DocumentLineage
	var revisionsJSON string
	if err := row.Scan(&lineage.DocumentID, &lineage.CurrentVersion, &lineage.LegalArea,
		&lineage.Hierarchy, &lineage.Accuracy, &revisionsJSON, &lineage.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning lineage: %w", err)
	}

	if revisionsJSON != "" && revisionsJSON != jsonNull {
		if err := json.Unmarshal([]byte(revisionsJSON), &lineage.Revisions); err != nil {
			return nil, fmt.Errorf("unmarshaling revisions: %w", err)
		}
	}

	return &lineage, nil
}
