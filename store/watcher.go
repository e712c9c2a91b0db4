package store

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatcherConfig configures a Watcher's debouncing and file filtering.
type WatcherConfig struct {
	// DebounceInterval is how long to wait after the last change before
	// triggering a reload.
	DebounceInterval time.Duration
	// Extensions restricts which file extensions trigger a reload.
	Extensions []string
}

// DefaultWatcherConfig returns sensible defaults for watching a
// directory of policy JSONL files.
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		DebounceInterval: 200 * time.Millisecond,
		Extensions:       []string{".jsonl"},
	}
}

// Watcher watches a Store's directory for changes and re-runs Load on a
// debounced schedule, so a running Manager picks up edited policy files
// without a restart (PoliciesConfig.Watch).
type Watcher struct {
	store    *Store
	config   WatcherConfig
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
	debounce *debouncer

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a Watcher over store's directory.
func NewWatcher(store *Store, config WatcherConfig, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("store: create fsnotify watcher: %w", err)
	}
	return &Watcher{
		store:    store,
		config:   config,
		logger:   logger,
		watcher:  fw,
		debounce: newDebouncer(config.DebounceInterval),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch blocks, reloading the Store whenever a matching file under its
// directory changes, until ctx is cancelled or Stop is called.
func (w *Watcher) Watch(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("store: watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(w.doneCh)
	}()

	if err := w.watcher.Add(w.store.dir); err != nil {
		return fmt.Errorf("store: watch directory %q: %w", w.store.dir, err)
	}
	w.logger.Info("policy directory watcher started", "dir", w.store.dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.stopCh:
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("store: watcher events channel closed")
			}
			if !w.shouldProcess(event) {
				continue
			}
			w.debounce.trigger(func() {
				n, err := w.store.Load()
				if err != nil {
					w.logger.Warn("policy reload encountered errors", "loaded", n, "error", err)
					return
				}
				w.logger.Info("policy directory reloaded", "loaded", n)
			})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("store: watcher errors channel closed")
			}
			w.logger.Error("policy watcher error", "error", err)
		}
	}
}

// Stop halts the watcher and releases its fsnotify handle.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.debounce.stop()
	return w.watcher.Close()
}

func (w *Watcher) shouldProcess(event fsnotify.Event) bool {
	if event.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	for _, want := range w.config.Extensions {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}

// debouncer collapses a burst of triggers into one callback invocation
// after a quiet period, preventing reload storms during a multi-file
// save.
type debouncer struct {
	interval time.Duration
	mu       sync.Mutex
	timer    *time.Timer
	stopCh   chan struct{}
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{interval: interval, stopCh: make(chan struct{})}
}

func (d *debouncer) trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		select {
		case <-d.stopCh:
		default:
			callback()
		}
	})
}

func (d *debouncer) stop() {
	close(d.stopCh)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}
