package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/lexrag/internal/cache"
	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
	"github.com/custodia-labs/lexrag/internal/logger"
	"github.com/custodia-labs/lexrag/internal/vector"
)

// searchCachePartition names the cache partition for search results.
const searchCachePartition = "search"

// Ensure SearchService implements the interface.
var _ driving.Searcher = (*SearchService)(nil)

// SearchService ranks stored chunks by cosine similarity against a
// query embedding.
type SearchService struct {
	embedder     *EmbeddingService
	vectorStore  driven.VectorStore
	lineageStore driven.LineageStore
	cache        *cache.Manager
}

// NewSearchService creates the search service. The cache is optional
// (can be nil).
func NewSearchService(
	embedder *EmbeddingService,
	vectorStore driven.VectorStore,
	lineageStore driven.LineageStore,
	cacheManager *cache.Manager,
) *SearchService {
	return &SearchService{
		embedder:     embedder,
		vectorStore:  vectorStore,
		lineageStore: lineageStore,
		cache:        cacheManager,
	}
}

// Search embeds the query once and ranks all stored vectors. Results
// pass threshold, topK and metadata filtering per options. Identical
// query/option pairs are served from cache until expiry; cache keys
// carry the corpus generation, so any save, delete or clear makes
// previously cached results unreachable.
func (s *SearchService) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.SearchResult{}, nil
	}
	opts.Normalise()

	var cacheKey string
	if s.cache != nil {
		generation, err := s.vectorStore.Generation(ctx)
		if err != nil {
			// Caching is best-effort; an unreadable generation must
			// not serve stale results, so skip the cache entirely.
			logger.Debug("search cache disabled, no corpus generation: %v", err)
		} else {
			cacheKey = searchCacheKey(query, opts, generation)
			var cached []domain.SearchResult
			err := s.cache.Retrieve(ctx, searchCachePartition, cacheKey, &cached)
			if err == nil {
				logger.Debug("search cache hit for %q", query)
				return cached, nil
			}
			if !errors.Is(err, domain.ErrNotFound) {
				logger.Debug("search cache read failed: %v", err)
			}
		}
	}

	logger.Debug("embedding query %q", query)
	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := s.SearchByVector(ctx, queryVector, opts)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && cacheKey != "" {
		if err := s.cache.Store(ctx, searchCachePartition, cacheKey, results, 0); err != nil {
			logger.Debug("search cache write failed: %v", err)
		}
	}
	return results, nil
}

// SearchByVector ranks against an already-computed query vector:
// score every stored record, drop below the threshold, stable sort
// descending, take topK, then filter by metadata and confidence.
func (s *SearchService) SearchByVector(ctx context.Context, queryVector []float32, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", domain.ErrInvalidInput)
	}
	opts.Normalise()

	records, err := s.vectorStore.ListVectorRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing vectors: %w", err)
	}
	logger.Debug("scoring %d stored vectors", len(records))

	type scored struct {
		chunkID    string
		documentID string
		score      float64
	}
	var hits []scored
	for i := range records {
		candidate := vector.Dequantize(records[i].Quantized)
		score := vector.CosineSimilarity(queryVector, candidate)
		if score < opts.ScoreThreshold {
			continue
		}
		hits = append(hits, scored{
			chunkID:    records[i].ChunkID,
			documentID: records[i].DocumentID,
			score:      score,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})
	if len(hits) > opts.TopK {
		hits = hits[:opts.TopK]
	}

	// Hydrate and post-filter. Filtering runs after topK selection, so
	// a filtered search may return fewer than TopK results.
	results := make([]domain.SearchResult, 0, len(hits))
	docs := make(map[string]*domain.LegalDocument)
	for _, hit := range hits {
		doc, ok := docs[hit.documentID]
		if !ok {
			doc, err = s.vectorStore.GetDocument(ctx, hit.documentID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					continue
				}
				return nil, fmt.Errorf("loading document %s: %w", hit.documentID, err)
			}
			docs[hit.documentID] = doc
		}

		if !matchesFilter(doc, opts.Filter) {
			continue
		}
		if opts.MinConfidence > 0 {
			ok, err := s.meetsConfidence(ctx, hit.documentID, opts.MinConfidence)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}

		chunk, err := s.vectorStore.GetChunk(ctx, hit.chunkID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("loading chunk %s: %w", hit.chunkID, err)
		}

		results = append(results, domain.SearchResult{
			Chunk:     *chunk,
			Score:     hit.score,
			LegalArea: doc.LegalArea,
		})
	}

	logger.Debug("search produced %d results", len(results))
	return results, nil
}

// meetsConfidence checks the document's effective confidence signal.
// Documents without quality metadata pass unfiltered.
func (s *SearchService) meetsConfidence(ctx context.Context, documentID string, min float64) (bool, error) {
	meta, err := s.lineageStore.GetRAGMetadata(ctx, documentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return true, nil
		}
		return false, fmt.Errorf("loading quality metadata %s: %w", documentID, err)
	}
	return meta.EffectiveConfidence >= min, nil
}

// matchesFilter applies the metadata filter to a document. A nil
// filter matches everything.
func matchesFilter(doc *domain.LegalDocument, filter *domain.MetadataFilter) bool {
	if filter == nil {
		return true
	}
	if filter.LegalArea != "" && doc.LegalArea != filter.LegalArea {
		return false
	}
	if filter.DocumentType != "" && doc.DocumentType != filter.DocumentType {
		return false
	}
	if filter.Hierarchy != "" && doc.Hierarchy != filter.Hierarchy {
		return false
	}
	if dr := filter.DateRange; dr != nil {
		if !dr.From.IsZero() && doc.UpdatedAt.Before(dr.From) {
			return false
		}
		if !dr.To.IsZero() && doc.UpdatedAt.After(dr.To) {
			return false
		}
	}
	return true
}

// searchCacheKey derives a stable cache key from the query, the
// normalised options and the corpus generation.
func searchCacheKey(query string, opts domain.SearchOptions, generation int64) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%s|%d|%g|%g", generation, query, opts.TopK, opts.ScoreThreshold, opts.MinConfidence)
	if f := opts.Filter; f != nil {
		fmt.Fprintf(h, "|%s|%s|%s", f.LegalArea, f.DocumentType, f.Hierarchy)
		if f.DateRange != nil {
			fmt.Fprintf(h, "|%d|%d", f.DateRange.From.Unix(), f.DateRange.To.Unix())
		}
	}
	return "q:" + hex.EncodeToString(h.Sum(nil))[:32]
}
