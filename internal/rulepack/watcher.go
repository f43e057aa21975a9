package rulepack

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces the write bursts editors produce into one
// reload.
const reloadDebounce = 100 * time.Millisecond

// Watcher reloads a rule pack file whenever it changes on disk. Meant
// for long-running serve sessions where rule authors iterate without
// restarting.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	onLoad  func(*Pack, error)
	logger  *slog.Logger
}

// NewWatcher creates a watcher for the given pack file. The callback
// fires once immediately with the initial load, then again after every
// change; load failures are delivered to the callback, never fatal to
// the watch loop (a half-saved file should not kill the session).
func NewWatcher(path string, onLoad func(*Pack, error)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	// Watch the directory, not the file: editors that rename-on-save
	// would otherwise drop the watch after the first write.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	return &Watcher{
		path:    path,
		watcher: fw,
		onLoad:  onLoad,
		logger:  slog.Default(),
	}, nil
}

// Run delivers the initial load, then blocks reloading on changes until
// the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	w.onLoad(LoadFile(w.path))

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(reloadDebounce)

		case <-pending:
			pending = nil
			w.logger.Info("rule pack changed, reloading", "path", w.path)
			w.onLoad(LoadFile(w.path))

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("rule pack watch error", "path", w.path, "error", err)
		}
	}
}
