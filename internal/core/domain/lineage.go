package domain

import "time"

// Revision records one entry in a document's version history.
type Revision struct {
	// Version is the version descriptor at this revision.
	Version string

	// ChangedAt is when the revision was recorded.
	ChangedAt time.Time

	// Note describes the change (e.g. "re-ingested", "confidence recomputed").
	Note string
}

// DocumentLineage tracks version and provenance history for a document.
// It is mutated on each re-ingestion or confidence recompute.
type DocumentLineage struct {
	// DocumentID keys the lineage record.
	DocumentID string

	// CurrentVersion is the active version descriptor.
	CurrentVersion string

	// LegalArea mirrors the document's legal area classification.
	LegalArea string

	// Hierarchy mirrors the document's hierarchy classification.
	Hierarchy string

	// Accuracy is the accuracy/confidence score in [0,1].
	Accuracy float64

	// Revisions is the history of recorded revisions, oldest first.
	Revisions []Revision

	// UpdatedAt is when the lineage was last written.
	UpdatedAt time.Time
}

// LineageCriteria filters QueryLineages. The store indexes exactly one
// dimension per query: LegalArea or Hierarchy, never both. MinConfidence
// is applied in memory after the indexed lookup.
type LineageCriteria struct {
	LegalArea     string
	Hierarchy     string
	MinConfidence float64
}

// AuditEntry is an append-only record of an action on a document.
// Entries are never mutated or deleted except by explicit bulk clear.
type AuditEntry struct {
	// AuditID uniquely identifies the entry.
	AuditID string

	// DocumentID is the document acted upon.
	DocumentID string

	// Action names the operation (e.g. "ingest", "reindex", "search").
	Action string

	// Timestamp is when the action happened.
	Timestamp time.Time
}

// RAGMetadata carries retrieval quality signals for a document.
type RAGMetadata struct {
	// DocumentID keys the record.
	DocumentID string

	// EffectiveConfidence is the quality signal used to filter
	// search results, in [0,1].
	EffectiveConfidence float64

	// EmbeddingDate is when the document's embeddings were generated.
	// Drives the periodic re-embedding query.
	EmbeddingDate time.Time
}

// ChangeDetectionConfig schedules staleness checks for a document.
type ChangeDetectionConfig struct {
	// DocumentID keys the record.
	DocumentID string

	// NextCheckDate is when the document is next due for a change check.
	NextCheckDate time.Time

	// ChangesDetected is set when an upstream change was found and the
	// document needs re-ingestion.
	ChangesDetected bool
}
