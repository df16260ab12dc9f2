// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - VectorStore: Document, chunk and quantised embedding persistence
//   - LineageStore: Lineage, audit, quality metadata and change-detection persistence
//   - SchedulerStore: Maintenance task state persistence
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory as numbered .up.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.lexrag/data/lexrag.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode. The content write and the embedding write for a
// document share one transaction, which is the only cross-partition atomicity
// the store guarantees besides Clear.
package sqlite
