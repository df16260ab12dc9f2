package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/lexrag/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/vector"
)

// jsonNull is the JSON representation of null.
const jsonNull = "null"

// DefaultWriteBatchSize bounds peak transaction load during bulk
// inserts: documents are written in sequential groups of this size,
// concurrently within a group.
const DefaultWriteBatchSize = 100

// Store is a unified SQLite-based storage that provides access to
// all metadata store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.lexrag/data/lexrag.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".lexrag", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "lexrag.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", domain.ErrStorage, err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: enabling foreign keys: %w", domain.ErrStorage, err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: running migrations: %w", domain.ErrStorage, err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// VectorStore returns a VectorStore interface backed by this store.
func (s *Store) VectorStore() driven.VectorStore {
	return &vectorStore{store: s}
}

// LineageStore returns a LineageStore interface backed by this store.
func (s *Store) LineageStore() driven.LineageStore {
	return &lineageStore{store: s}
}

// SchedulerStore returns a SchedulerStore interface backed by this store.
func (s *Store) SchedulerStore() driven.SchedulerStore {
	return &schedulerStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Vector Store ====================

// vectorStore implements driven.VectorStore.
type vectorStore struct {
	store *Store
}

var _ driven.VectorStore = (*vectorStore)(nil)

// SaveDocument upserts a document with its chunks and vector records in
// one transaction. The content write and the embedding write either
// both commit or both roll back. Existing chunks for the document are
// replaced, so re-ingestion is idempotent.
func (s *vectorStore) SaveDocument(
	ctx context.Context,
	doc *domain.LegalDocument,
	chunks []domain.Chunk,
	records []domain.VectorRecord,
) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return fmt.Errorf("vector record %s: %w", records[i].ChunkID, err)
		}
	}

	sectionsJSON, err := json.Marshal(doc.Sections)
	if err != nil {
		return fmt.Errorf("marshalling sections: %w", err)
	}
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrStorage, err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, title, legal_area, hierarchy, document_type, sections, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			legal_area = excluded.legal_area,
			hierarchy = excluded.hierarchy,
			document_type = excluded.document_type,
			sections = excluded.sections,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`, doc.ID, doc.Title, doc.LegalArea, doc.Hierarchy, doc.DocumentType,
		string(sectionsJSON), string(metadataJSON), doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}

	// Replace chunks wholesale; embeddings cascade with them.
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", doc.ID); err != nil {
		return fmt.Errorf("replacing chunks: %w", err)
	}

	chunkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, section_id, content, position, char_offset, length)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing chunk statement: %w", err)
	}
	defer chunkStmt.Close()

	for _, chunk := range chunks {
		if _, err := chunkStmt.ExecContext(ctx, chunk.ID, chunk.DocumentID, chunk.SectionID,
			chunk.Content, chunk.Position, chunk.Offset, chunk.Length); err != nil {
			return fmt.Errorf("saving chunk %s: %w", chunk.ID, err)
		}
	}

	vecStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO embeddings (chunk_id, document_id, vector, dimension)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			document_id = excluded.document_id,
			vector = excluded.vector,
			dimension = excluded.dimension
	`)
	if err != nil {
		return fmt.Errorf("preparing embedding statement: %w", err)
	}
	defer vecStmt.Close()

	for _, record := range records {
		blob := vector.Int8SliceToBytes(record.Quantized)
		if _, err := vecStmt.ExecContext(ctx, record.ChunkID, record.DocumentID,
			blob, record.Dimension); err != nil {
			return fmt.Errorf("saving embedding %s: %w", record.ChunkID, err)
		}
	}

	if err := bumpGeneration(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %w", domain.ErrStorage, err)
	}
	return nil
}

// bumpGeneration advances the corpus generation inside the mutating
// transaction, so the new value becomes visible with the mutation.
func bumpGeneration(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx,
		"UPDATE corpus_generation SET generation = generation + 1 WHERE id = 1"); err != nil {
		return fmt.Errorf("advancing corpus generation: %w", err)
	}
	return nil
}

// SaveDocuments bulk-inserts documents in sequential groups of
// DefaultWriteBatchSize. Documents within a group are written
// concurrently, each in its own transaction; failures are joined.
func (s *vectorStore) SaveDocuments(ctx context.Context, writes []driven.DocumentWrite) error {
	for start := 0; start < len(writes); start += DefaultWriteBatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := start + DefaultWriteBatchSize
		if end > len(writes) {
			end = len(writes)
		}
		group := writes[start:end]

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			errs []error
		)
		for i := range group {
			wg.Add(1)
			go func(w driven.DocumentWrite) {
				defer wg.Done()
				if err := s.SaveDocument(ctx, w.Document, w.Chunks, w.Records); err != nil {
					mu.Lock()
					errs = append(errs, fmt.Errorf("document %s: %w", w.Document.ID, err))
					mu.Unlock()
				}
			}(group[i])
		}
		wg.Wait()

		if len(errs) > 0 {
			return errors.Join(errs...)
		}
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *vectorStore) GetDocument(ctx context.Context, id string) (*domain.LegalDocument, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, title, legal_area, hierarchy, document_type, sections, metadata, created_at, updated_at
		FROM documents WHERE id = ?
	`, id)

	var doc domain.LegalDocument
	var sectionsJSON, metadataJSON string
	if err := row.Scan(&doc.ID, &doc.Title, &doc.LegalArea, &doc.Hierarchy, &doc.DocumentType,
		&sectionsJSON, &metadataJSON, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	if err := json.Unmarshal([]byte(sectionsJSON), &doc.Sections); err != nil {
		return nil, fmt.Errorf("unmarshaling sections: %w", err)
	}
	if metadataJSON != "" && metadataJSON != jsonNull {
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}

	return &doc, nil
}

// GetChunk retrieves a specific chunk by ID.
func (s *vectorStore) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT c.id, c.document_id, c.section_id, c.content, c.position, c.char_offset, c.length, e.vector
		FROM chunks c LEFT JOIN embeddings e ON e.chunk_id = c.id
		WHERE c.id = ?
	`, id)

	var chunk domain.Chunk
	var blob []byte
	if err := row.Scan(&chunk.ID, &chunk.DocumentID, &chunk.SectionID, &chunk.Content,
		&chunk.Position, &chunk.Offset, &chunk.Length, &blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}
	chunk.Embedding = vector.Dequantize(vector.BytesToInt8Slice(blob))

	return &chunk, nil
}

// GetChunks retrieves all chunks for a document, ordered by position.
func (s *vectorStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT c.id, c.document_id, c.section_id, c.content, c.position, c.char_offset, c.length, e.vector
		FROM chunks c LEFT JOIN embeddings e ON e.chunk_id = c.id
		WHERE c.document_id = ?
		ORDER BY c.position
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chunk domain.Chunk
		var blob []byte
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.SectionID, &chunk.Content,
			&chunk.Position, &chunk.Offset, &chunk.Length, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunk.Embedding = vector.Dequantize(vector.BytesToInt8Slice(blob))
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// ListVectorRecords returns every stored vector record.
func (s *vectorStore) ListVectorRecords(ctx context.Context) ([]domain.VectorRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT chunk_id, document_id, vector, dimension FROM embeddings
	`)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	var records []domain.VectorRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		var record domain.VectorRecord
		var blob []byte
		if err := rows.Scan(&record.ChunkID, &record.DocumentID, &blob, &record.Dimension); err != nil {
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}
		record.Quantized = vector.BytesToInt8Slice(blob)
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating embeddings: %w", err)
	}

	return records, nil
}

// DeleteDocument removes a document; chunks and embeddings cascade.
func (s *vectorStore) DeleteDocument(ctx context.Context, id string) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrStorage, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if err := bumpGeneration(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %w", domain.ErrStorage, err)
	}
	return nil
}

// Clear removes all documents, chunks and embeddings in one transaction.
func (s *vectorStore) Clear(ctx context.Context) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrStorage, err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"embeddings", "chunks", "documents"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	if err := bumpGeneration(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %w", domain.ErrStorage, err)
	}
	return nil
}

// Stats summarises store contents.
func (s *vectorStore) Stats(ctx context.Context) (*domain.StoreStats, error) {
	stats := &domain.StoreStats{}

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM documents", &stats.Documents},
		{"SELECT COUNT(*) FROM chunks", &stats.Chunks},
		{"SELECT COUNT(*) FROM embeddings", &stats.Vectors},
	}
	for _, c := range counts {
		if err := s.store.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("counting rows: %w", err)
		}
	}

	rows, err := s.store.db.QueryContext(ctx,
		"SELECT DISTINCT dimension FROM embeddings ORDER BY dimension")
	if err != nil {
		return nil, fmt.Errorf("querying dimensions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var dim int
		if err := rows.Scan(&dim); err != nil {
			return nil, fmt.Errorf("scanning dimension: %w", err)
		}
		stats.Dimensions = append(stats.Dimensions, dim)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating dimensions: %w", err)
	}

	return stats, nil
}

// Generation returns the current corpus generation counter.
func (s *vectorStore) Generation(ctx context.Context) (int64, error) {
	var generation int64
	row := s.store.db.QueryRowContext(ctx,
		"SELECT generation FROM corpus_generation WHERE id = 1")
	if err := row.Scan(&generation); err != nil {
		return 0, fmt.Errorf("%w: reading corpus generation: %w", domain.ErrStorage, err)
	}
	return generation, nil
}
