package domain

import "time"

// Section is one ordered content block within a legal document,
// typically an article or clause. Section IDs are stable across
// re-ingestions of the same document.
type Section struct {
	// ID is the stable identifier of the section within the document.
	ID string

	// Text is the free text content of the section.
	Text string
}

// LegalDocument represents a legal document as supplied by the ingestion
// pipeline. Content is immutable once stored except through explicit
// re-ingestion.
type LegalDocument struct {
	// ID is the unique identifier for the document.
	ID string

	// Title is the human-readable title.
	Title string

	// LegalArea classifies the document (e.g. "arbeidsrecht").
	LegalArea string

	// Hierarchy is the position in the legal hierarchy (e.g. "wet", "amvb").
	Hierarchy string

	// DocumentType distinguishes statutes, rulings, commentary, etc.
	DocumentType string

	// Sections is the ordered sequence of content sections.
	Sections []Section

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]any

	// CreatedAt is when the document was first ingested.
	CreatedAt time.Time

	// UpdatedAt is when the document was last re-ingested.
	UpdatedAt time.Time
}

// Chunk is the atomic unit for embedding and retrieval. Chunks are derived
// from exactly one section and replaced wholesale on re-chunking.
type Chunk struct {
	// ID is deterministic from document ID, section ID and offset,
	// so re-chunking an unchanged document is idempotent.
	ID string

	// DocumentID links to the owning LegalDocument.
	DocumentID string

	// SectionID links to the originating section.
	SectionID string

	// Content is the chunk text, including any overlap prefix.
	Content string

	// Position is the ordinal position within the document.
	Position int

	// Offset is the character offset of the chunk within its section.
	Offset int

	// Length is the character length of the chunk content.
	Length int

	// Embedding is the vector representation, present after the
	// embedding stage and absent on freshly chunked documents.
	Embedding []float32
}

// VectorRecord is the persisted form of a chunk embedding. The float
// vector is quantised to 8-bit signed integers scaled from [-1,1] to
// [-127,127]; Dimension is required to reconstruct a same-length vector.
//
// Invariant: len(Quantized) == Dimension.
type VectorRecord struct {
	// ChunkID matches the Chunk that owns this vector.
	ChunkID string

	// DocumentID links to the owning document.
	DocumentID string

	// Quantized holds the int8-quantised vector components.
	Quantized []int8

	// Dimension is the original embedding dimension.
	Dimension int
}

// Validate reports whether the record satisfies the dimension invariant.
func (r *VectorRecord) Validate() error {
	if r.ChunkID == "" {
		return ErrInvalidInput
	}
	if len(r.Quantized) != r.Dimension {
		return ErrInvalidInput
	}
	return nil
}

// StoreStats summarises the vector store contents.
type StoreStats struct {
	// Documents is the number of stored documents.
	Documents int

	// Chunks is the number of stored chunks.
	Chunks int

	// Vectors is the number of stored vector records.
	Vectors int

	// Dimensions lists the distinct embedding dimensions present.
	Dimensions []int
}
