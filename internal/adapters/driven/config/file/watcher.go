package file

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/lexrag/internal/logger"
)

// debounceInterval coalesces the write bursts editors produce when
// saving a file.
const debounceInterval = 200 * time.Millisecond

// Watch reloads the store when its file changes on disk and invokes
// onChange with the fresh configuration. It blocks until ctx is
// cancelled. Callers typically use onChange to hot-swap the embedding
// provider.
func (s *Store) Watch(ctx context.Context, onChange func(Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory rather than the file: editors often replace
	// the file on save, which drops a file-level watch.
	if err := watcher.Add(filepath.Dir(s.filePath)); err != nil {
		return err
	}

	var debounce *time.Timer
	reload := func() {
		if err := s.Load(); err != nil {
			logger.Warn("config reload failed: %v", err)
			return
		}
		logger.Info("configuration reloaded from %s", s.filePath)
		if onChange != nil {
			onChange(s.Config())
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != s.filePath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceInterval, reload)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error: %v", err)
		}
	}
}
