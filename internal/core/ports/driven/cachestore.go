package driven

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// CacheStore is the raw storage handle behind the cache manager.
// Logical stores are named partitions within one handle; callers must
// not assume cross-partition atomicity. Expiry, compression and quota
// policy live in the cache manager, not here.
type CacheStore interface {
	// Put writes an entry to a partition, creating the partition on
	// first use.
	Put(ctx context.Context, partition string, entry *domain.CacheEntry) error

	// Get reads an entry. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, partition, key string) (*domain.CacheEntry, error)

	// Delete removes an entry. Deleting an absent entry is not an error.
	Delete(ctx context.Context, partition, key string) error

	// List returns all entries in a partition.
	List(ctx context.Context, partition string) ([]domain.CacheEntry, error)

	// Partitions returns the names of all partitions.
	Partitions(ctx context.Context) ([]string, error)

	// Close releases the storage handle.
	Close() error
}
