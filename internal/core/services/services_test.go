package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// In-memory store fakes shared by the service tests.

type fakeVectorStore struct {
	mu         sync.Mutex
	docs       map[string]domain.LegalDocument
	chunks     map[string][]domain.Chunk // by document ID
	records    map[string]domain.VectorRecord
	generation int64
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{
		docs:    make(map[string]domain.LegalDocument),
		chunks:  make(map[string][]domain.Chunk),
		records: make(map[string]domain.VectorRecord),
	}
}

func (f *fakeVectorStore) SaveDocument(_ context.Context, doc *domain.LegalDocument, chunks []domain.Chunk, records []domain.VectorRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[doc.ID] = *doc
	for _, old := range f.chunks[doc.ID] {
		delete(f.records, old.ID)
	}
	f.chunks[doc.ID] = append([]domain.Chunk(nil), chunks...)
	for _, r := range records {
		f.records[r.ChunkID] = r
	}
	f.generation++
	return nil
}

func (f *fakeVectorStore) SaveDocuments(ctx context.Context, writes []driven.DocumentWrite) error {
	for _, w := range writes {
		if err := f.SaveDocument(ctx, w.Document, w.Chunks, w.Records); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeVectorStore) GetDocument(_ context.Context, id string) (*domain.LegalDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

func (f *fakeVectorStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, chunks := range f.chunks {
		for i := range chunks {
			if chunks[i].ID == id {
				c := chunks[i]
				return &c, nil
			}
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeVectorStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Chunk(nil), f.chunks[documentID]...), nil
}

func (f *fakeVectorStore) ListVectorRecords(_ context.Context) ([]domain.VectorRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	records := make([]domain.VectorRecord, 0, len(f.records))
	for _, r := range f.records {
		records = append(records, r)
	}
	return records, nil
}

func (f *fakeVectorStore) DeleteDocument(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.chunks[id] {
		delete(f.records, c.ID)
	}
	delete(f.chunks, id)
	delete(f.docs, id)
	f.generation++
	return nil
}

func (f *fakeVectorStore) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = make(map[string]domain.LegalDocument)
	f.chunks = make(map[string][]domain.Chunk)
	f.records = make(map[string]domain.VectorRecord)
	f.generation++
	return nil
}

func (f *fakeVectorStore) Stats(_ context.Context) (*domain.StoreStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &domain.StoreStats{Documents: len(f.docs), Vectors: len(f.records)}
	for _, chunks := range f.chunks {
		stats.Chunks += len(chunks)
	}
	return stats, nil
}

func (f *fakeVectorStore) Generation(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generation, nil
}

type fakeLineageStore struct {
	mu        sync.Mutex
	lineages  map[string]domain.DocumentLineage
	audits    []domain.AuditEntry
	metadata  map[string]domain.RAGMetadata
	schedules map[string]domain.ChangeDetectionConfig
}

func newFakeLineageStore() *fakeLineageStore {
	return &fakeLineageStore{
		lineages:  make(map[string]domain.DocumentLineage),
		metadata:  make(map[string]domain.RAGMetadata),
		schedules: make(map[string]domain.ChangeDetectionConfig),
	}
}

func (f *fakeLineageStore) SaveLineage(_ context.Context, lineage *domain.DocumentLineage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lineages[lineage.DocumentID] = *lineage
	return nil
}

func (f *fakeLineageStore) GetLineage(_ context.Context, documentID string) (*domain.DocumentLineage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lineage, ok := f.lineages[documentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &lineage, nil
}

func (f *fakeLineageStore) QueryLineages(_ context.Context, criteria domain.LineageCriteria) ([]domain.DocumentLineage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.DocumentLineage
	for _, l := range f.lineages {
		if criteria.LegalArea != "" && l.LegalArea != criteria.LegalArea {
			continue
		}
		if criteria.Hierarchy != "" && l.Hierarchy != criteria.Hierarchy {
			continue
		}
		if l.Accuracy < criteria.MinConfidence {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeLineageStore) AddAudit(_ context.Context, entry *domain.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.audits {
		if f.audits[i].AuditID == entry.AuditID {
			return domain.ErrAlreadyExists
		}
	}
	f.audits = append(f.audits, *entry)
	return nil
}

func (f *fakeLineageStore) GetAuditHistory(_ context.Context, documentID string, limit int) ([]domain.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.AuditEntry
	for i := len(f.audits) - 1; i >= 0; i-- {
		if f.audits[i].DocumentID != documentID {
			continue
		}
		out = append(out, f.audits[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeLineageStore) ClearAudits(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audits = nil
	return nil
}

func (f *fakeLineageStore) SaveRAGMetadata(_ context.Context, meta *domain.RAGMetadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metadata[meta.DocumentID] = *meta
	return nil
}

func (f *fakeLineageStore) GetRAGMetadata(_ context.Context, documentID string) (*domain.RAGMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	meta, ok := f.metadata[documentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &meta, nil
}

func (f *fakeLineageStore) DocumentsNeedingUpdate(_ context.Context, daysOld int) ([]domain.RAGMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cutoff := time.Now().AddDate(0, 0, -daysOld)
	var out []domain.RAGMetadata
	for _, m := range f.metadata {
		if m.EmbeddingDate.Before(cutoff) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeLineageStore) SaveChangeDetection(_ context.Context, cfg *domain.ChangeDetectionConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schedules[cfg.DocumentID] = *cfg
	return nil
}

func (f *fakeLineageStore) DocumentsToCheck(_ context.Context, now time.Time) ([]domain.ChangeDetectionConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ChangeDetectionConfig
	for _, c := range f.schedules {
		if !c.NextCheckDate.After(now) {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeSchedulerStore struct {
	mu      sync.Mutex
	tasks   map[string]domain.ScheduledTask
	results []domain.TaskResult
}

func newFakeSchedulerStore() *fakeSchedulerStore {
	return &fakeSchedulerStore{tasks: make(map[string]domain.ScheduledTask)}
}

func (f *fakeSchedulerStore) GetTask(_ context.Context, taskID string) (*domain.ScheduledTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[taskID]
	if !ok {
		return nil, nil
	}
	return &task, nil
}

func (f *fakeSchedulerStore) ListTasks(_ context.Context) ([]domain.ScheduledTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.ScheduledTask, 0, len(f.tasks))
	for _, t := range f.tasks {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeSchedulerStore) SaveTask(_ context.Context, task *domain.ScheduledTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[task.ID] = *task
	return nil
}

func (f *fakeSchedulerStore) RecordResult(_ context.Context, result *domain.TaskResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, *result)
	return nil
}

func (f *fakeSchedulerStore) GetTaskHistory(_ context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.TaskResult
	for i := len(f.results) - 1; i >= 0; i-- {
		if f.results[i].TaskID != taskID {
			continue
		}
		out = append(out, f.results[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeSchedulerStore) PruneHistory(_ context.Context, _ int) error {
	return nil
}

type fakeCacheStore struct {
	mu         sync.Mutex
	partitions map[string]map[string]domain.CacheEntry
}

func newFakeCacheStore() *fakeCacheStore {
	return &fakeCacheStore{partitions: make(map[string]map[string]domain.CacheEntry)}
}

func (f *fakeCacheStore) Put(_ context.Context, partition string, entry *domain.CacheEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.partitions[partition] == nil {
		f.partitions[partition] = make(map[string]domain.CacheEntry)
	}
	f.partitions[partition][entry.Key] = *entry
	return nil
}

func (f *fakeCacheStore) Get(_ context.Context, partition, key string) (*domain.CacheEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.partitions[partition][key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &entry, nil
}

func (f *fakeCacheStore) Delete(_ context.Context, partition, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.partitions[partition], key)
	return nil
}

func (f *fakeCacheStore) List(_ context.Context, partition string) ([]domain.CacheEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.CacheEntry
	for _, entry := range f.partitions[partition] {
		out = append(out, entry)
	}
	return out, nil
}

func (f *fakeCacheStore) Partitions(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for name := range f.partitions {
		out = append(out, name)
	}
	return out, nil
}

func (f *fakeCacheStore) Close() error { return nil }
