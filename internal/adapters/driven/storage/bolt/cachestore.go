// Package bolt provides a bbolt-backed cache store. All logical cache
// partitions live as buckets inside one database file, so the cache
// owns a single storage handle.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// CacheStore implements driven.CacheStore on top of bbolt. Partitions
// map to buckets; entries are JSON-encoded under their key.
type CacheStore struct {
	db   *bolt.DB
	path string
}

var _ driven.CacheStore = (*CacheStore)(nil)

// NewCacheStore opens (or creates) the cache database at the specified
// data directory. If dataDir is empty, defaults to ~/.lexrag/data.
func NewCacheStore(dataDir string) (*CacheStore, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".lexrag", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	path := filepath.Join(dataDir, "cache.db")
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: opening cache database: %w", domain.ErrStorage, err)
	}

	return &CacheStore{db: db, path: path}, nil
}

// Close releases the storage handle.
func (s *CacheStore) Close() error {
	return s.db.Close()
}

// Path returns the cache database file path.
func (s *CacheStore) Path() string {
	return s.path
}

// Put writes an entry to a partition, creating the bucket on first use.
func (s *CacheStore) Put(ctx context.Context, partition string, entry *domain.CacheEntry) error {
	if partition == "" || entry == nil || entry.Key == "" {
		return domain.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshalling cache entry: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(partition))
		if err != nil {
			return fmt.Errorf("creating partition %s: %w", partition, err)
		}
		return bucket.Put([]byte(entry.Key), data)
	})
	if err != nil {
		return fmt.Errorf("%w: writing cache entry: %w", domain.ErrStorage, err)
	}
	return nil
}

// Get reads an entry. Returns domain.ErrNotFound if absent.
func (s *CacheStore) Get(ctx context.Context, partition, key string) (*domain.CacheEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entry *domain.CacheEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(partition))
		if bucket == nil {
			return domain.ErrNotFound
		}
		data := bucket.Get([]byte(key))
		if data == nil {
			return domain.ErrNotFound
		}
		entry = &domain.CacheEntry{}
		if err := json.Unmarshal(data, entry); err != nil {
			return fmt.Errorf("unmarshaling cache entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Delete removes an entry. Deleting an absent entry is not an error.
func (s *CacheStore) Delete(ctx context.Context, partition, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(partition))
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("%w: deleting cache entry: %w", domain.ErrStorage, err)
	}
	return nil
}

// List returns all entries in a partition. An absent partition yields
// an empty list.
func (s *CacheStore) List(ctx context.Context, partition string) ([]domain.CacheEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entries []domain.CacheEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(partition))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(_, v []byte) error {
			var entry domain.CacheEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("unmarshaling cache entry: %w", err)
			}
			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Partitions returns the names of all buckets.
func (s *CacheStore) Partitions(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			names = append(names, string(name))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}
