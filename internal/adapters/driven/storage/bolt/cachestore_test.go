package bolt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

func setupCacheStore(t *testing.T) *CacheStore {
	t.Helper()

	store, err := NewCacheStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func testEntry(key string) *domain.CacheEntry {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.CacheEntry{
		Key:       key,
		Data:      []byte(`{"results":[]}`),
		Timestamp: now,
		Expires:   now.Add(domain.DefaultCacheTTL),
		Size:      14,
	}
}

func TestCacheStorePutGet(t *testing.T) {
	store := setupCacheStore(t)
	ctx := context.Background()

	entry := testEntry("query:abc")
	require.NoError(t, store.Put(ctx, "search", entry))

	got, err := store.Get(ctx, "search", "query:abc")
	require.NoError(t, err)
	assert.Equal(t, entry.Data, got.Data)
	assert.Equal(t, entry.Size, got.Size)
	assert.True(t, entry.Expires.Equal(got.Expires))
}

func TestCacheStoreGetMissing(t *testing.T) {
	store := setupCacheStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "search", "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.Put(ctx, "search", testEntry("a")))
	_, err = store.Get(ctx, "search", "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCacheStoreDelete(t *testing.T) {
	store := setupCacheStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "search", testEntry("a")))
	require.NoError(t, store.Delete(ctx, "search", "a"))

	_, err := store.Get(ctx, "search", "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Absent entries and partitions delete without error.
	assert.NoError(t, store.Delete(ctx, "search", "a"))
	assert.NoError(t, store.Delete(ctx, "ghost", "a"))
}

func TestCacheStorePartitionsIsolated(t *testing.T) {
	store := setupCacheStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "search", testEntry("a")))
	require.NoError(t, store.Put(ctx, "search", testEntry("b")))
	require.NoError(t, store.Put(ctx, "embeddings", testEntry("a")))

	entries, err := store.List(ctx, "search")
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = store.List(ctx, "embeddings")
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	entries, err = store.List(ctx, "ghost")
	require.NoError(t, err)
	assert.Empty(t, entries)

	names, err := store.Partitions(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"search", "embeddings"}, names)
}

func TestCacheStoreOverwrite(t *testing.T) {
	store := setupCacheStore(t)
	ctx := context.Background()

	entry := testEntry("a")
	require.NoError(t, store.Put(ctx, "search", entry))

	entry.Data = []byte("updated")
	entry.Size = 7
	require.NoError(t, store.Put(ctx, "search", entry))

	got, err := store.Get(ctx, "search", "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("updated"), got.Data)

	entries, err := store.List(ctx, "search")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
