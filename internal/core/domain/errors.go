package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested document or chunk does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	// Audit entries are append-only, so a duplicate audit ID fails
	// with this error instead of silently overwriting.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input,
	// such as a document without content sections.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownProvider indicates an embedding provider ID outside
	// the supported set.
	ErrUnknownProvider = errors.New("unknown embedding provider")

	// ErrStorage indicates the underlying store aborted a transaction
	// or is unavailable. Operations depending on a store that failed
	// to open fail fast with this error.
	ErrStorage = errors.New("storage unavailable")

	// ErrQuotaExceeded indicates a cache write cannot fit within the
	// configured quota even after eviction.
	ErrQuotaExceeded = errors.New("cache quota exceeded")

	// ErrEmbeddingUnavailable indicates no embedding provider is active.
	// Ingestion and semantic search are disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)
