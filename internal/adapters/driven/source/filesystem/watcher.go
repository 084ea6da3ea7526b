package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/archivo-labs/archivo-cli/internal/logger"
)

// DefaultDebounce batches rapid filesystem events (editors often write
// several times per save) into a single change notification.
const DefaultDebounce = 2 * time.Second

// Watcher observes a directory tree and reports batched change events.
type Watcher struct {
	root     string
	debounce time.Duration
}

// NewWatcher creates a watcher for the scanner's root. A zero debounce
// uses the default.
func NewWatcher(root string, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{root: root, debounce: debounce}
}

// Watch blocks until ctx is cancelled, invoking onChange after each
// debounced burst of filesystem events. New subdirectories are added to
// the watch set as they appear.
func (w *Watcher) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := addRecursive(watcher, w.root); err != nil {
		return err
	}

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if strings.HasPrefix(filepath.Base(event.Name), ".") {
				continue
			}
			if event.Op.Has(fsnotify.Create) {
				// New directories need their own watch entry.
				if err := addRecursive(watcher, event.Name); err != nil {
					logger.Debug("watch %s: %v", event.Name, err)
				}
			}
			logger.Debug("filesystem event: %s", event)
			if pending {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
			}
			timer.Reset(w.debounce)
			pending = true

		case <-timer.C:
			pending = false
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", err)
		}
	}
}

// addRecursive watches path and all directories below it. Non-directory
// paths are ignored.
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// The path may have vanished between event and walk.
			return nil //nolint:nilerr
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}
