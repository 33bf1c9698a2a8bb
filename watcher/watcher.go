// Package watcher reports changes to served BLAST reports and to the ignore
// files that decide which reports are served.
package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultInterval is the quiet period before a batch is emitted.
const DefaultInterval = 500 * time.Millisecond

// Filter decides which paths the watcher cares about.
type Filter interface {
	ShouldIgnoreDir(absolutePath string) bool
	Wants(absolutePath string) bool
}

// Options configures a Watcher.
type Options struct {
	Dirs      []string
	Recursive bool // also watch subdirectories, including ones created later
	Interval  time.Duration
}

// Watcher turns fsnotify events into debounced report events.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	filter    Filter
	recursive bool
	logger    *slog.Logger
}

// NewWatcher starts watching the given directories.
func NewWatcher(options Options, filter Filter, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	interval := options.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		debouncer: NewDebouncer(interval),
		filter:    filter,
		recursive: options.Recursive,
		logger:    logger,
	}

	for _, dir := range options.Dirs {
		if !options.Recursive {
			w.add(dir)
			continue
		}
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil || !d.IsDir() {
				return nil
			}
			if path != dir && filter.ShouldIgnoreDir(path) {
				return filepath.SkipDir
			}
			w.add(path)
			return nil
		})
		if err != nil {
			fsWatcher.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) add(dir string) {
	if err := w.fsWatcher.Add(dir); err != nil {
		w.logger.Warn("failed to watch directory", "path", dir, "error", err)
	}
}

// WatchedDirs returns the directories currently watched.
func (w *Watcher) WatchedDirs() []string {
	return w.fsWatcher.WatchList()
}

// Events returns the channel of debounced batches.
func (w *Watcher) Events() <-chan []ReportEvent {
	return w.debouncer.Output()
}

// Start processes fsnotify events until the watcher is closed. Call it in a
// goroutine.
func (w *Watcher) Start() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if w.recursive && !w.filter.ShouldIgnoreDir(path) {
				w.add(path)
			}
			return
		}
	}

	if !w.filter.Wants(path) {
		return
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.debouncer.Add(path, Removed)
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		w.debouncer.Add(path, Changed)
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsWatcher.Close()
}
