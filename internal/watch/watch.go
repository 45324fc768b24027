// Package watch re-syncs the metadata cache when transcript files change on
// disk. Events are debounced so bursts of writes coalesce into one sync.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/finsearch/supersearch-mcp/internal/cache"
)

// Watcher monitors the store's root directory and triggers cache syncs.
type Watcher struct {
	fsw      *fsnotify.Watcher
	store    *cache.Store
	debounce time.Duration
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// New creates a watcher over the store's current root.
func New(store *cache.Store, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{fsw: fsw, store: store, debounce: debounce, logger: logger}, nil
}

// Start adds watches for the root and all subdirectories, then processes
// events until ctx is cancelled. Directories created later are watched as
// they appear.
func (w *Watcher) Start(ctx context.Context) error {
	root := w.store.Root()
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return w.fsw.Add(path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	w.wg.Add(1)
	go w.run(ctx)
	return nil
}

// Close stops event delivery and waits for the processing loop to exit.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if pending && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(w.debounce)
			pending = true
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))
		case <-timer.C:
			pending = false
			if _, err := w.store.Sync(""); err != nil {
				w.logger.Warn("watch-triggered sync failed", zap.Error(err))
			}
		}
	}
}

// relevant reports whether an event should schedule a re-sync, and registers
// watches for newly created directories as a side effect.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.fsw.Add(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", zap.String("path", event.Name), zap.Error(err))
			}
			return false
		}
	}
	if !strings.HasSuffix(event.Name, ".md") {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}
