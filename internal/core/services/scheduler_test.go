package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/cache"
	"github.com/custodia-labs/lexrag/internal/core/domain"
)

func TestRunTaskNowCacheSweep(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &now
	cacheManager := cache.New(newFakeCacheStore(), cache.WithClock(func() time.Time { return *clock }))
	ctx := context.Background()

	require.NoError(t, cacheManager.Store(ctx, "search", "stale", "old", time.Minute))
	require.NoError(t, cacheManager.Store(ctx, "search", "live", "new", 24*time.Hour))
	later := now.Add(time.Hour)
	clock = &later

	store := newFakeSchedulerStore()
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, cacheManager, newFakeLineageStore())

	result, err := scheduler.RunTaskNow(ctx, domain.TaskIDCacheSweep)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.ItemsProcessed)

	// Task state and history recorded.
	task, err := store.GetTask(ctx, domain.TaskIDCacheSweep)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.False(t, task.LastRun.IsZero())

	history, err := store.GetTaskHistory(ctx, domain.TaskIDCacheSweep, 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestRunTaskNowRefreshCheck(t *testing.T) {
	lineageStore := newFakeLineageStore()
	ctx := context.Background()

	require.NoError(t, lineageStore.SaveChangeDetection(ctx, &domain.ChangeDetectionConfig{
		DocumentID:    "due-doc",
		NextCheckDate: time.Now().AddDate(0, 0, -1),
	}))
	require.NoError(t, lineageStore.SaveRAGMetadata(ctx, &domain.RAGMetadata{
		DocumentID:    "stale-doc",
		EmbeddingDate: time.Now().AddDate(0, 0, -90),
	}))
	require.NoError(t, lineageStore.SaveRAGMetadata(ctx, &domain.RAGMetadata{
		DocumentID:    "fresh-doc",
		EmbeddingDate: time.Now(),
	}))

	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), newFakeSchedulerStore(), nil, lineageStore)

	result, err := scheduler.RunTaskNow(ctx, domain.TaskIDRefreshCheck)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.ItemsProcessed)
}

func TestSchedulerStartInitialisesTasks(t *testing.T) {
	store := newFakeSchedulerStore()
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, nil, newFakeLineageStore())

	done := make(chan error, 1)
	go func() {
		done <- scheduler.Start(context.Background())
	}()

	// Wait for the configured tasks to appear in the store.
	deadline := time.After(2 * time.Second)
	for {
		tasks, err := store.ListTasks(context.Background())
		require.NoError(t, err)
		if len(tasks) == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("tasks not initialised, have %d", len(tasks))
		case <-time.After(10 * time.Millisecond):
		}
	}

	require.NoError(t, scheduler.Stop())
	assert.NoError(t, <-done)

	// Stop is idempotent.
	assert.NoError(t, scheduler.Stop())
}

func TestSchedulerStopsOnContextCancel(t *testing.T) {
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), newFakeSchedulerStore(), nil, newFakeLineageStore())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- scheduler.Start(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop on context cancel")
	}
}
