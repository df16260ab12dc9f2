// Package domain defines the core business entities for lexrag.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - LegalDocument: A legal document made of ordered content sections
//   - Chunk: An embeddable unit of document text
//   - VectorRecord: The quantised, persisted form of an embedding
//   - DocumentLineage: Version and provenance history for a document
//   - CacheEntry: A generic expiring cache record
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
