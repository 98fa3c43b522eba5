// Package watcher watches template and data files for the preview server,
// grouping rapid changes with a debounce window before handing them to
// re-render handlers.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/go-spry/spry/internal/logging"
)

// ChangeEvent is one debounced file change.
type ChangeEvent struct {
	Path    string
	ModTime time.Time
}

// Filter reports whether a changed path is interesting.
type Filter func(path string) bool

// Handler reacts to a debounced batch of changes.
type Handler func(events []ChangeEvent)

// FileWatcher wraps fsnotify with filtering and debouncing.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	logger   logging.Logger
	delay    time.Duration
	filters  []Filter
	handlers []Handler

	mu      sync.Mutex
	pending map[string]ChangeEvent
	timer   *time.Timer
}

// New creates a watcher with the given debounce window.
func New(delay time.Duration, logger logging.Logger) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &FileWatcher{
		watcher: w,
		logger:  logger.WithComponent("watcher"),
		delay:   delay,
		pending: make(map[string]ChangeEvent),
	}, nil
}

// AddFilter adds a path filter; all filters must pass.
func (fw *FileWatcher) AddFilter(f Filter) { fw.filters = append(fw.filters, f) }

// AddHandler adds a change handler.
func (fw *FileWatcher) AddHandler(h Handler) { fw.handlers = append(fw.handlers, h) }

// AddRecursive watches root and every directory below it.
func (fw *FileWatcher) AddRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return fw.watcher.Add(path)
		}
		return nil
	})
}

// Start consumes events until ctx is canceled.
func (fw *FileWatcher) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fw.watcher.Events:
				if !ok {
					return
				}
				fw.handleEvent(ev)
			case err, ok := <-fw.watcher.Errors:
				if !ok {
					return
				}
				fw.logger.Warn(ctx, err, "watch error")
			}
		}
	}()
}

// Stop closes the underlying watcher.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.mu.Unlock()
	return fw.watcher.Close()
}

func (fw *FileWatcher) handleEvent(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	for _, f := range fw.filters {
		if !f(ev.Name) {
			return
		}
	}

	var modTime time.Time
	if info, err := os.Stat(ev.Name); err == nil {
		modTime = info.ModTime()
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.pending[ev.Name] = ChangeEvent{Path: ev.Name, ModTime: modTime}
	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.timer = time.AfterFunc(fw.delay, fw.flush)
}

func (fw *FileWatcher) flush() {
	fw.mu.Lock()
	if len(fw.pending) == 0 {
		fw.mu.Unlock()
		return
	}
	events := make([]ChangeEvent, 0, len(fw.pending))
	for _, ev := range fw.pending {
		events = append(events, ev)
	}
	fw.pending = make(map[string]ChangeEvent)
	handlers := fw.handlers
	fw.mu.Unlock()

	for _, h := range handlers {
		h(events)
	}
}

// TemplateFilter keeps template and data files.
func TemplateFilter(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".json", ".yml", ".yaml":
		return true
	}
	return false
}

// NoHiddenFilter drops dotfiles and dot-directories.
func NoHiddenFilter(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return false
		}
	}
	return true
}
