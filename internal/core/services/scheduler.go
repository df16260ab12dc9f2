package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/lexrag/internal/cache"
	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// DefaultStaleDays is the embedding age beyond which a document is
// flagged for re-embedding by the refresh check.
const DefaultStaleDays = 30

// taskHistoryKeep bounds per-task result history.
const taskHistoryKeep = 100

// Scheduler manages background maintenance execution: the cache sweep
// and the document refresh check. It is a pure core service with no
// external control API.
type Scheduler struct {
	config       domain.SchedulerConfig
	store        driven.SchedulerStore
	cacheManager *cache.Manager
	lineageStore driven.LineageStore
	staleDays    int

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	cacheManager *cache.Manager,
	lineageStore driven.LineageStore,
) *Scheduler {
	return &Scheduler{
		config:       config,
		store:        store,
		cacheManager: cacheManager,
		lineageStore: lineageStore,
		staleDays:    DefaultStaleDays,
	}
}

// SetStaleDays overrides the re-embedding age cutoff.
func (s *Scheduler) SetStaleDays(days int) {
	if days > 0 {
		s.staleDays = days
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if err := s.initialiseTasks(ctx); err != nil {
		logger.Warn("scheduler: failed to initialise tasks: %v", err)
	}

	return s.run(ctx)
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	// Wait for running tasks to complete
	s.wg.Wait()

	return nil
}

// RunTaskNow executes a single task immediately, outside the loop.
// Used by the CLI for one-shot maintenance.
func (s *Scheduler) RunTaskNow(ctx context.Context, taskID string) (*domain.TaskResult, error) {
	cfg := s.config.GetTaskConfig(taskID)
	task := &domain.ScheduledTask{
		ID:       taskID,
		Name:     taskID,
		Interval: cfg.Interval,
		Enabled:  true,
	}
	return s.execute(ctx, task), nil
}

// initialiseTasks ensures all configured tasks exist in the store.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	if taskCfg := s.config.GetTaskConfig(domain.TaskIDCacheSweep); taskCfg.Enabled {
		if err := s.ensureTask(ctx, domain.TaskIDCacheSweep, "Cache Sweep", taskCfg); err != nil {
			return err
		}
	}

	if taskCfg := s.config.GetTaskConfig(domain.TaskIDRefreshCheck); taskCfg.Enabled {
		if err := s.ensureTask(ctx, domain.TaskIDRefreshCheck, "Refresh Check", taskCfg); err != nil {
			return err
		}
	}

	return nil
}

// ensureTask creates or updates a task in the store.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if task == nil {
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: cfg.Interval,
			Enabled:  cfg.Enabled,
			NextRun:  time.Now().Add(cfg.Interval),
		}
	} else {
		// Recalculate next run when the interval changed
		if task.Interval != cfg.Interval {
			task.Interval = cfg.Interval
			task.NextRun = time.Now().Add(cfg.Interval)
		}
		task.Enabled = cfg.Enabled
	}

	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) error {
	// Check for due tasks immediately on startup
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("scheduler: failed to list tasks: %v", err)
		return
	}

	now := time.Now()
	for i := range tasks {
		task := &tasks[i]
		if !task.Enabled {
			continue
		}
		if task.NextRun.IsZero() || !task.NextRun.After(now) {
			s.runTask(ctx, task)
		}
	}
}

// runTask executes a single task in the background.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(ctx, task)
	}()
}

// execute runs a task, updates its state and records the result.
func (s *Scheduler) execute(ctx context.Context, task *domain.ScheduledTask) *domain.TaskResult {
	result := &domain.TaskResult{
		TaskID:    task.ID,
		StartedAt: time.Now(),
	}

	var err error
	switch task.ID {
	case domain.TaskIDCacheSweep:
		result.ItemsProcessed, err = s.runCacheSweep(ctx)
	case domain.TaskIDRefreshCheck:
		result.ItemsProcessed, err = s.runRefreshCheck(ctx)
	default:
		logger.Warn("scheduler: unknown task ID: %s", task.ID)
		return result
	}

	result.EndedAt = time.Now()
	if err != nil {
		result.Success = false
		result.Error = err.Error()
		task.LastError = err.Error()
	} else {
		result.Success = true
		task.LastError = ""
		task.LastSuccess = result.EndedAt
	}

	task.LastRun = result.StartedAt
	task.NextRun = result.EndedAt.Add(task.Interval)

	if saveErr := s.store.SaveTask(ctx, task); saveErr != nil {
		logger.Warn("scheduler: failed to save task %s: %v", task.ID, saveErr)
	}

	if recordErr := s.store.RecordResult(ctx, result); recordErr != nil {
		logger.Warn("scheduler: failed to record result for %s: %v", task.ID, recordErr)
	}

	if pruneErr := s.store.PruneHistory(ctx, taskHistoryKeep); pruneErr != nil {
		logger.Warn("scheduler: failed to prune history: %v", pruneErr)
	}

	return result
}

// runCacheSweep clears expired cache entries and re-runs quota
// enforcement independently of writes.
func (s *Scheduler) runCacheSweep(ctx context.Context) (int, error) {
	if s.cacheManager == nil {
		return 0, nil
	}

	removed, err := s.cacheManager.ClearExpired(ctx)
	if err != nil {
		return removed, err
	}
	logger.Debug("cache sweep removed %d expired entries", removed)

	if err := s.cacheManager.EnforceQuota(ctx); err != nil {
		return removed, err
	}
	return removed, nil
}

// runRefreshCheck counts documents due for a change check and documents
// whose embeddings have gone stale. Flagged documents are logged for
// operator-driven reindexing.
func (s *Scheduler) runRefreshCheck(ctx context.Context) (int, error) {
	if s.lineageStore == nil {
		return 0, nil
	}

	due, err := s.lineageStore.DocumentsToCheck(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	for i := range due {
		logger.Info("document %s due for change check", due[i].DocumentID)
	}

	stale, err := s.lineageStore.DocumentsNeedingUpdate(ctx, s.staleDays)
	if err != nil {
		return len(due), err
	}
	for i := range stale {
		logger.Info("document %s has stale embeddings (since %s)",
			stale[i].DocumentID, stale[i].EmbeddingDate.Format(time.RFC3339))
	}

	return len(due) + len(stale), nil
}
