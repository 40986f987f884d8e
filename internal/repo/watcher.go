package repo

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"agentwire/internal/logging"
)

// Watcher watches a project directory for file changes and reports them to a
// callback after a debounce window, so rapid saves collapse into one
// notification. Hidden directories are skipped; new subdirectories are added
// to the watch as they appear.
type Watcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	root        string
	onChange    func(paths []string)
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats WatcherStats
}

// WatcherStats tracks watcher activity for debugging.
type WatcherStats struct {
	EventsSeen    int
	Notifications int
	Errors        int
	LastEventPath string
}

// NewWatcher creates a watcher for the given project root. onChange receives
// repository-relative paths that settled past the debounce window.
func NewWatcher(root string, debounce time.Duration, onChange func(paths []string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		fsw.Close()
		return nil, err
	}

	return &Watcher{
		watcher:     fsw,
		root:        abs,
		onChange:    onChange,
		debounceMap: make(map[string]time.Time),
		debounceDur: debounce,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the watch loop runs in a goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	// Watch the root and every non-hidden subdirectory. fsnotify watches are
	// not recursive.
	err := filepath.Walk(w.root, func(p string, info os.FileInfo, err error) error {
		if err != nil || !info.IsDir() {
			return nil
		}
		if p != w.root && strings.HasPrefix(info.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(p); err != nil {
			logging.Get(logging.CategoryRepo).Warn("watcher: failed to watch %s: %v", p, err)
		}
		return nil
	})
	if err != nil {
		logging.Get(logging.CategoryRepo).Warn("watcher: walk failed: %v", err)
	}

	logging.Repo("watcher: watching %s", w.root)
	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryRepo).Error("watcher: close error: %v", err)
	}
}

// IsWatching returns true while the watch loop is running.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// Stats returns a copy of the watcher statistics.
func (w *Watcher) Stats() WatcherStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryRepo).Error("watcher: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			w.flushSettled()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return // Ignore chmod etc.
	}

	// New directories join the watch set.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watcher.Add(event.Name); err == nil {
				logging.RepoDebug("watcher: added new directory %s", event.Name)
			}
			return
		}
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return
	}

	w.mu.Lock()
	w.stats.EventsSeen++
	w.stats.LastEventPath = rel
	w.debounceMap[filepath.ToSlash(rel)] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) flushSettled() {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, eventTime := range w.debounceMap {
		if now.Sub(eventTime) >= w.debounceDur {
			settled = append(settled, path)
			delete(w.debounceMap, path)
		}
	}
	if len(settled) > 0 {
		w.stats.Notifications++
	}
	w.mu.Unlock()

	if len(settled) > 0 && w.onChange != nil {
		logging.RepoDebug("watcher: %d paths settled", len(settled))
		w.onChange(settled)
	}
}
