package fixture

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatcherConfig configures the replay watcher.
type WatcherConfig struct {
	// Paths are the files and directories to watch. Directories are
	// watched recursively; for a file, only changes to that exact file
	// are reported.
	Paths []string

	// DebounceDelay is how long to wait for more changes before
	// reporting a batch.
	DebounceDelay time.Duration

	// Logger for watch diagnostics.
	Logger *slog.Logger
}

// Watcher coalesces filesystem changes to fixtures and output files so
// a replay loop can rerun once per edit burst instead of once per
// write syscall.
type Watcher struct {
	config  WatcherConfig
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	files map[string]bool
	dirs  []string

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	changes chan []string
}

// NewWatcher creates a watcher for the configured paths.
func NewWatcher(config WatcherConfig) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if config.DebounceDelay == 0 {
		config.DebounceDelay = 200 * time.Millisecond
	}

	return &Watcher{
		config:  config,
		watcher: fsw,
		logger:  logger,
		files:   make(map[string]bool),
		pending: make(map[string]fsnotify.Op),
		changes: make(chan []string, 16),
	}, nil
}

// Changes returns the channel of debounced change batches. Each batch
// lists the affected paths.
func (w *Watcher) Changes() <-chan []string {
	return w.changes
}

// Start registers the watches and begins processing events.
func (w *Watcher) Start(ctx context.Context) error {
	for _, path := range w.config.Paths {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat watch path %s: %w", path, err)
		}
		if info.IsDir() {
			if err := w.addDirRecursive(path); err != nil {
				return err
			}
			w.dirs = append(w.dirs, filepath.Clean(path))
			continue
		}
		// fsnotify tracks directories more reliably than bare files;
		// editors often replace a file by rename, which drops a watch
		// placed on the file itself.
		if err := w.watcher.Add(filepath.Dir(path)); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		w.files[filepath.Clean(path)] = true
	}

	go w.processEvents(ctx)

	w.logger.Info("watching for changes",
		"paths", len(w.config.Paths),
		"debounce", w.config.DebounceDelay)
	return nil
}

// Stop stops the watcher. The changes channel is closed by the event
// loop, never here, so a flush in flight cannot send on a closed
// channel.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) addDirRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if strings.HasPrefix(filepath.Base(path), ".") && path != root {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.changes)

	ticker := time.NewTicker(w.config.DebounceDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)

		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)

	if !w.relevant(path) {
		return
	}

	// A new subdirectory under a watched tree needs its own watch.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				w.logger.Warn("failed to watch new directory", "path", path, "error", err)
			}
			return
		}
	}

	w.pendingMu.Lock()
	w.pending[path] = event.Op
	w.pendingMu.Unlock()

	w.logger.Debug("change detected", "path", path, "op", event.Op.String())
}

func (w *Watcher) relevant(path string) bool {
	if w.files[path] {
		return true
	}
	for _, dir := range w.dirs {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) flushPending() {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	batch := make([]string, 0, len(w.pending))
	for path := range w.pending {
		batch = append(batch, path)
	}
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	sort.Strings(batch)

	select {
	case w.changes <- batch:
	default:
		w.logger.Warn("change channel full, dropping batch", "paths", len(batch))
	}
}
