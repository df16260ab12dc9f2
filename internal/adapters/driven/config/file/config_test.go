package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreDefaults(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	cfg := store.Config()
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 10, cfg.Scheduler.CacheSweepMinutes)
	assert.EqualValues(t, 100*1024*1024, cfg.Cache.MaxBytes)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)

	err = store.Update(func(c *Config) {
		c.Embedding.Provider = "openai"
		c.Embedding.Model = "text-embedding-3-small"
		c.Chunking.ChunkSize = 256
	})
	require.NoError(t, err)

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	cfg := reopened.Config()
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, 256, cfg.Chunking.ChunkSize)

	// Unset sections keep their defaults.
	assert.True(t, cfg.Scheduler.Enabled)
}

func TestLoadPartialFile(t *testing.T) {
	dir := t.TempDir()
	content := "[embedding]\nprovider = \"mock\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	store, err := NewStore(dir)
	require.NoError(t, err)

	cfg := store.Config()
	assert.Equal(t, "mock", cfg.Embedding.Provider)
	assert.Equal(t, 10, cfg.Scheduler.CacheSweepMinutes)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("not toml [["), 0600))

	_, err := NewStore(dir)
	assert.Error(t, err)
}

func TestSchedulerDomainConfig(t *testing.T) {
	cfg := Default()
	cfg.Scheduler.CacheSweepMinutes = 5
	cfg.Scheduler.RefreshCheckMinutes = 30

	dc := cfg.SchedulerDomainConfig()
	assert.True(t, dc.Enabled)
	assert.Equal(t, 5*time.Minute, dc.TaskConfigs["cache-sweep"].Interval)
	assert.Equal(t, 30*time.Minute, dc.TaskConfigs["refresh-check"].Interval)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan Config, 1)
	done := make(chan error, 1)
	go func() {
		done <- store.Watch(ctx, func(c Config) {
			select {
			case changed <- c:
			default:
			}
		})
	}()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)

	content := "[embedding]\nprovider = \"mock\"\n"
	require.NoError(t, os.WriteFile(store.Path(), []byte(content), 0600))

	select {
	case cfg := <-changed:
		assert.Equal(t, "mock", cfg.Embedding.Provider)
	case <-time.After(3 * time.Second):
		t.Fatal("config change not observed")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
