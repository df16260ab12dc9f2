package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/lexrag/internal/chunker"
	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
	"github.com/custodia-labs/lexrag/internal/events"
	"github.com/custodia-labs/lexrag/internal/logger"
	"github.com/custodia-labs/lexrag/internal/vector"
)

// DefaultBatchSize is the number of documents processed per sub-batch
// of a bulk embedding run.
const DefaultBatchSize = 5

// providerSwitchTimeout bounds the connectivity check during a
// provider switch.
const providerSwitchTimeout = 5 * time.Second

// ProviderFactory builds and validates an embedding provider for the
// given ID. Construction must include a connectivity check; a provider
// returned without error is ready for use.
type ProviderFactory func(ctx context.Context, id string) (driven.EmbeddingProvider, error)

// StoreFunc persists one document's chunks and vector records. The
// orchestrator calls it during the storing stage so progress events
// reflect real persistence.
type StoreFunc func(ctx context.Context, doc *domain.LegalDocument, chunks []domain.Chunk, records []domain.VectorRecord) error

// Ensure EmbeddingService implements the provider management interface.
var _ driving.ProviderManager = (*EmbeddingService)(nil)

// EmbeddingService orchestrates embedding generation across switchable
// providers and reports progress through the event bus.
type EmbeddingService struct {
	factory   ProviderFactory
	supported []string
	chunk     *chunker.Chunker
	bus       *events.Bus
	batchSize int

	mu       sync.RWMutex
	provider driven.EmbeddingProvider
}

// NewEmbeddingService creates the orchestrator with an initial active
// provider. The bus may be nil when no progress consumer exists.
func NewEmbeddingService(
	initial driven.EmbeddingProvider,
	factory ProviderFactory,
	supported []string,
	ck *chunker.Chunker,
	bus *events.Bus,
) *EmbeddingService {
	if ck == nil {
		ck = chunker.New()
	}
	return &EmbeddingService{
		factory:   factory,
		supported: supported,
		chunk:     ck,
		bus:       bus,
		batchSize: DefaultBatchSize,
		provider:  initial,
	}
}

// SetBatchSize overrides the bulk sub-batch size.
func (s *EmbeddingService) SetBatchSize(n int) {
	if n > 0 {
		s.batchSize = n
	}
}

// ActiveProvider returns the ID of the currently active provider.
func (s *EmbeddingService) ActiveProvider() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.provider == nil {
		return ""
	}
	return s.provider.ID()
}

// ListProviders returns the supported provider IDs.
func (s *EmbeddingService) ListProviders() []string {
	out := make([]string, len(s.supported))
	copy(out, s.supported)
	return out
}

// SwitchProvider activates a different provider. The replacement is
// constructed and validated first; on any failure the previous provider
// stays active. Switching to the already-active provider is a no-op.
func (s *EmbeddingService) SwitchProvider(ctx context.Context, id string) error {
	if id == s.ActiveProvider() {
		return nil
	}

	switchCtx, cancel := context.WithTimeout(ctx, providerSwitchTimeout)
	defer cancel()

	replacement, err := s.factory(switchCtx, id)
	if err != nil {
		logger.Warn("provider switch to %s failed: %v", id, err)
		return err
	}

	s.mu.Lock()
	old := s.provider
	s.provider = replacement
	s.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			logger.Debug("closing previous provider %s: %v", old.ID(), err)
		}
	}

	logger.Info("embedding provider switched to %s", id)
	s.publish(domain.ProviderChangedEvent{Provider: id})
	return nil
}

// TestProvider embeds a sample text with the active provider and
// reports dimensions and latency. Failures are reported in the result,
// never raised.
func (s *EmbeddingService) TestProvider(ctx context.Context, text string) *driving.ProviderTestResult {
	if text == "" {
		text = "The quick brown fox jumps over the lazy dog."
	}

	start := time.Now()
	vec, err := s.Embed(ctx, text)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		return &driving.ProviderTestResult{
			Success:   false,
			LatencyMs: elapsed,
			Error:     err.Error(),
		}
	}
	return &driving.ProviderTestResult{
		Success:    true,
		Dimensions: len(vec),
		LatencyMs:  elapsed,
	}
}

// Embed generates an embedding for a single text with the active provider.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	provider := s.activeProvider()
	if provider == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	return provider.Embed(ctx, text)
}

// EmbedBatch generates order-preserving embeddings for multiple texts.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	provider := s.activeProvider()
	if provider == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	return provider.EmbedBatch(ctx, texts)
}

// EmbedDocument chunks a document, embeds every chunk and hands the
// result to store. Progress stages for the document are published on
// the bus.
func (s *EmbeddingService) EmbedDocument(ctx context.Context, doc *domain.LegalDocument, store StoreFunc) error {
	return s.embedDocument(ctx, doc, store, nil)
}

// GenerateAllEmbeddings embeds many documents in sub-batches of the
// configured size with partial-failure semantics. Per-document failures
// become error events and BulkResult entries; the run continues. The
// returned error is reserved for context cancellation.
func (s *EmbeddingService) GenerateAllEmbeddings(ctx context.Context, docs []*domain.LegalDocument, store StoreFunc) (*domain.BulkResult, error) {
	result := &domain.BulkResult{}
	if len(docs) == 0 {
		return result, nil
	}

	total := len(docs)
	totalBatches := (total + s.batchSize - 1) / s.batchSize

	s.publish(domain.ProgressEvent{Stage: domain.StageStarting, Progress: 0})
	logger.Info("embedding run: %d documents in %d batches", total, totalBatches)

	var (
		mu        sync.Mutex
		completed int
	)
	// Read at publish time so progress never goes backwards, even with
	// documents finishing out of order within a batch.
	progressFn := func() int {
		mu.Lock()
		defer mu.Unlock()
		return completed * 100 / total
	}

	for batch := 0; batch < totalBatches; batch++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		start := batch * s.batchSize
		end := start + s.batchSize
		if end > total {
			end = total
		}
		group := docs[start:end]

		s.publish(domain.BatchEvent{
			Stage:        domain.StageBatchStart,
			BatchNumber:  batch + 1,
			TotalBatches: totalBatches,
		})

		var wg sync.WaitGroup
		for i := range group {
			wg.Add(1)
			go func(doc *domain.LegalDocument) {
				defer wg.Done()

				err := s.embedDocument(ctx, doc, store, progressFn)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					result.FailureCount++
					result.Errors = append(result.Errors, domain.ItemError{ItemID: doc.ID, Err: err})
					s.publish(domain.ErrorEvent{DocumentID: doc.ID, Err: err})
					logger.Warn("embedding document %s failed: %v", doc.ID, err)
				} else {
					result.SuccessCount++
				}
				completed++
				s.publish(domain.ProgressEvent{
					Stage:      domain.StageDocumentComplete,
					DocumentID: doc.ID,
					Progress:   completed * 100 / total,
				})
			}(group[i])
		}
		wg.Wait()

		s.publish(domain.BatchEvent{
			Stage:        domain.StageBatchComplete,
			BatchNumber:  batch + 1,
			TotalBatches: totalBatches,
		})
	}

	s.publish(domain.ProgressEvent{Stage: domain.StageComplete, Progress: 100})
	logger.Info("embedding run complete: %d ok, %d failed", result.SuccessCount, result.FailureCount)
	return result, nil
}

// embedDocument runs the per-document pipeline: chunk (loading), embed
// (generating), quantise and persist (storing), then a terminal
// complete stage. progressFn supplies the run-level percentage for
// stage events; nil means 0.
func (s *EmbeddingService) embedDocument(ctx context.Context, doc *domain.LegalDocument, store StoreFunc, progressFn func() int) error {
	if doc == nil {
		return domain.ErrInvalidInput
	}
	if store == nil {
		return errors.New("no store callback")
	}

	s.publishStage(domain.StageLoading, doc.ID, progressFn)
	chunks, err := s.chunk.Chunk(doc)
	if err != nil {
		return fmt.Errorf("chunking document %s: %w", doc.ID, err)
	}

	s.publishStage(domain.StageGenerating, doc.ID, progressFn)
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}

	vectors, err := s.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding document %s: %w", doc.ID, err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedding document %s: got %d vectors for %d chunks",
			doc.ID, len(vectors), len(chunks))
	}

	s.publishStage(domain.StageStoring, doc.ID, progressFn)
	records := make([]domain.VectorRecord, len(chunks))
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
		records[i] = domain.VectorRecord{
			ChunkID:    chunks[i].ID,
			DocumentID: doc.ID,
			Quantized:  vector.Quantize(vectors[i]),
			Dimension:  len(vectors[i]),
		}
	}

	if err := store(ctx, doc, chunks, records); err != nil {
		return fmt.Errorf("storing document %s: %w", doc.ID, err)
	}

	s.publishStage(domain.StageComplete, doc.ID, progressFn)
	return nil
}

// activeProvider returns the current provider under the read lock.
func (s *EmbeddingService) activeProvider() driven.EmbeddingProvider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.provider
}

// publish sends an event when a bus is attached.
func (s *EmbeddingService) publish(event domain.Event) {
	if s.bus != nil {
		s.bus.Publish(event)
	}
}

// publishStage emits a per-document progress stage.
func (s *EmbeddingService) publishStage(stage, documentID string, progressFn func() int) {
	progress := 0
	if progressFn != nil {
		progress = progressFn()
	}
	s.publish(domain.ProgressEvent{Stage: stage, DocumentID: documentID, Progress: progress})
}

// Close releases the active provider.
func (s *EmbeddingService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.provider == nil {
		return nil
	}
	err := s.provider.Close()
	s.provider = nil
	return err
}
