// Package notify tells a collection that its store changed underneath it.
package notify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Notifier calls onChange whenever the watched store may have changed,
// until ctx is cancelled.
type Notifier interface {
	Run(ctx context.Context, onChange func()) error
}

// DefaultDebounce coalesces bursts of file events into one callback.
const DefaultDebounce = 100 * time.Millisecond

// FileNotifier watches a single data file. The file's directory is
// watched rather than the file, so atomic replace-by-rename is seen.
type FileNotifier struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration

	closeOnce sync.Once
}

// NewFileNotifier starts watching path. Events that happen after it
// returns are delivered by Run. Call Close to release the watcher.
func NewFileNotifier(path string) (*FileNotifier, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	return &FileNotifier{path: abs, watcher: w, debounce: DefaultDebounce}, nil
}

// Path returns the watched file.
func (n *FileNotifier) Path() string {
	return n.path
}

// Run implements Notifier.
func (n *FileNotifier) Run(ctx context.Context, onChange func()) error {
	defer n.Close()

	timer := time.NewTimer(n.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-n.watcher.Events:
			if !ok {
				return nil
			}
			if n.relevant(ev) {
				timer.Reset(n.debounce)
			}

		case err, ok := <-n.watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", n.path, err)

		case <-timer.C:
			onChange()
		}
	}
}

// Close stops the watcher. Run returns once it notices.
func (n *FileNotifier) Close() error {
	var err error
	n.closeOnce.Do(func() {
		err = n.watcher.Close()
	})
	return err
}

func (n *FileNotifier) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != n.path {
		return false
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) ||
		ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove)
}
