// Package cache implements the expiring cache policy layer: TTL,
// compression of large payloads, quota enforcement with partition
// eviction. Raw storage lives behind driven.CacheStore.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// DefaultEvictPartitions is how many of the largest partitions the
// quota enforcer targets per pass.
const DefaultEvictPartitions = 3

// evictFraction is the share of entries removed per targeted partition,
// oldest first.
const evictFraction = 0.2

// Manager coordinates TTL, compression and quota policy over a raw
// cache store. It is safe for concurrent use as long as the underlying
// store is.
type Manager struct {
	store driven.CacheStore
	codec Codec

	ttl             time.Duration
	maxBytes        int64
	compressAt      int
	evictPartitions int

	now func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithTTL overrides the default entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithMaxBytes overrides the total cache quota.
func WithMaxBytes(n int64) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxBytes = n
		}
	}
}

// WithCompressionThreshold overrides the serialised size above which
// payloads are compressed.
func WithCompressionThreshold(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.compressAt = n
		}
	}
}

// WithCodec substitutes the compression codec.
func WithCodec(c Codec) Option {
	return func(m *Manager) {
		if c != nil {
			m.codec = c
		}
	}
}

// WithClock substitutes the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// New creates a cache manager with the given raw store.
func New(store driven.CacheStore, opts ...Option) *Manager {
	m := &Manager{
		store:           store,
		codec:           GzipCodec{},
		ttl:             domain.DefaultCacheTTL,
		maxBytes:        domain.DefaultCacheMaxBytes,
		compressAt:      domain.DefaultCompressionThreshold,
		evictPartitions: DefaultEvictPartitions,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store serialises and caches a value under partition/key. ttl <= 0
// uses the manager default. A value that alone exceeds the quota fails
// with ErrQuotaExceeded before anything is written.
func (m *Manager) Store(ctx context.Context, partition, key string, value any, ttl time.Duration) error {
	if partition == "" || key == "" {
		return domain.ErrInvalidInput
	}
	if ttl <= 0 {
		ttl = m.ttl
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("serialising cache value: %w", err)
	}

	compressed := false
	if len(data) > m.compressAt {
		encoded, err := m.codec.Encode(data)
		if err != nil {
			return fmt.Errorf("encoding cache value: %w", err)
		}
		data = encoded
		compressed = true
	}

	if int64(len(data)) > m.maxBytes {
		return fmt.Errorf("%w: value of %d bytes exceeds cache quota", domain.ErrQuotaExceeded, len(data))
	}

	now := m.now()
	entry := &domain.CacheEntry{
		Key:        key,
		Data:       data,
		Timestamp:  now,
		Expires:    now.Add(ttl),
		Size:       len(data),
		Compressed: compressed,
	}

	if err := m.store.Put(ctx, partition, entry); err != nil {
		return err
	}

	return m.enforceQuota(ctx)
}

// Retrieve loads a cached value into dest. Expired entries are deleted
// and reported as ErrNotFound.
func (m *Manager) Retrieve(ctx context.Context, partition, key string, dest any) error {
	entry, err := m.store.Get(ctx, partition, key)
	if err != nil {
		return err
	}

	if entry.Expired(m.now()) {
		if err := m.store.Delete(ctx, partition, key); err != nil {
			logger.Debug("cache: deleting expired entry %s/%s: %v", partition, key, err)
		}
		return domain.ErrNotFound
	}

	data := entry.Data
	if entry.Compressed {
		data, err = m.codec.Decode(data)
		if err != nil {
			return fmt.Errorf("decoding cache value: %w", err)
		}
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("deserialising cache value: %w", err)
	}
	return nil
}

// Remove deletes an entry. Removing an absent entry is not an error.
func (m *Manager) Remove(ctx context.Context, partition, key string) error {
	return m.store.Delete(ctx, partition, key)
}

// Query returns live entries in a partition whose key starts with
// prefix and whose insertion time is not before after. A zero after
// matches everything.
func (m *Manager) Query(ctx context.Context, partition, prefix string, after time.Time) ([]domain.CacheEntry, error) {
	entries, err := m.store.List(ctx, partition)
	if err != nil {
		return nil, err
	}

	now := m.now()
	var matched []domain.CacheEntry
	for _, entry := range entries {
		if entry.Expired(now) {
			continue
		}
		if prefix != "" && !strings.HasPrefix(entry.Key, prefix) {
			continue
		}
		if !after.IsZero() && entry.Timestamp.Before(after) {
			continue
		}
		matched = append(matched, entry)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Key < matched[j].Key
	})
	return matched, nil
}

// Stats summarises entry counts and byte sizes across partitions.
func (m *Manager) Stats(ctx context.Context) (*domain.CacheStats, error) {
	partitions, err := m.store.Partitions(ctx)
	if err != nil {
		return nil, err
	}

	stats := &domain.CacheStats{Partitions: make(map[string]int64)}
	for _, partition := range partitions {
		entries, err := m.store.List(ctx, partition)
		if err != nil {
			return nil, err
		}
		var bytes int64
		for i := range entries {
			bytes += int64(entries[i].Size)
		}
		stats.Entries += len(entries)
		stats.TotalBytes += bytes
		stats.Partitions[partition] = bytes
	}
	return stats, nil
}

// ClearExpired removes all expired entries across partitions and
// returns how many were deleted. The maintenance scheduler runs this
// periodically; reads also expire lazily.
func (m *Manager) ClearExpired(ctx context.Context) (int, error) {
	partitions, err := m.store.Partitions(ctx)
	if err != nil {
		return 0, err
	}

	now := m.now()
	removed := 0
	for _, partition := range partitions {
		entries, err := m.store.List(ctx, partition)
		if err != nil {
			return removed, err
		}
		for i := range entries {
			if !entries[i].Expired(now) {
				continue
			}
			if err := m.store.Delete(ctx, partition, entries[i].Key); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

// EnforceQuota re-runs quota enforcement independently of writes. The
// maintenance sweep calls this after clearing expired entries.
func (m *Manager) EnforceQuota(ctx context.Context) error {
	return m.enforceQuota(ctx)
}

// enforceQuota evicts until total size fits the quota: the largest
// partitions are targeted and the oldest fifth of each is dropped.
// Degradation is silent apart from debug logging.
func (m *Manager) enforceQuota(ctx context.Context) error {
	for {
		stats, err := m.Stats(ctx)
		if err != nil {
			return err
		}
		if stats.TotalBytes <= m.maxBytes {
			return nil
		}

		evicted, err := m.evictPass(ctx, stats)
		if err != nil {
			return err
		}
		if evicted == 0 {
			return nil
		}
	}
}

// evictPass drops the oldest entries from the largest partitions and
// returns how many entries were removed.
func (m *Manager) evictPass(ctx context.Context, stats *domain.CacheStats) (int, error) {
	type partitionSize struct {
		name  string
		bytes int64
	}
	sizes := make([]partitionSize, 0, len(stats.Partitions))
	for name, bytes := range stats.Partitions {
		sizes = append(sizes, partitionSize{name, bytes})
	}
	sort.Slice(sizes, func(i, j int) bool {
		if sizes[i].bytes != sizes[j].bytes {
			return sizes[i].bytes > sizes[j].bytes
		}
		return sizes[i].name < sizes[j].name
	})
	if len(sizes) > m.evictPartitions {
		sizes = sizes[:m.evictPartitions]
	}

	evicted := 0
	for _, ps := range sizes {
		entries, err := m.store.List(ctx, ps.name)
		if err != nil {
			return evicted, err
		}
		if len(entries) == 0 {
			continue
		}

		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Timestamp.Before(entries[j].Timestamp)
		})

		drop := int(float64(len(entries)) * evictFraction)
		if drop == 0 {
			drop = 1
		}
		for _, entry := range entries[:drop] {
			if err := m.store.Delete(ctx, ps.name, entry.Key); err != nil {
				return evicted, err
			}
			logger.Debug("cache: evicted %s/%s (%d bytes)", ps.name, entry.Key, entry.Size)
			evicted++
		}
	}
	return evicted, nil
}
