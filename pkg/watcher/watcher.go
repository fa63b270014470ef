package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/watanabe-1/rpc4next-sub000/pkg/logger"
	"github.com/watanabe-1/rpc4next-sub000/pkg/scanner"
)

// DefaultDelay is the debounce delay used when none is configured.
const DefaultDelay = 300 * time.Millisecond

// Invalidator evicts cached scan results. *scanner.Scanner implements it.
type Invalidator interface {
	InvalidateFile(file string)
	Forget(dir string)
}

// watchList is the subset of *fsnotify.Watcher used to manage watches.
type watchList interface {
	Add(name string) error
	Remove(name string) error
}

// Watcher watches an app directory tree and schedules regeneration when
// endpoint files or directories change.
type Watcher struct {
	root     string
	inv      Invalidator
	debounce *Debouncer[string]
	log      *logger.Logger
	delay    time.Duration

	watches watchList
	dirs    map[string]bool
	ready   func()
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDelay sets the debounce delay.
func WithDelay(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(w *Watcher) {
		w.log = l
	}
}

// WithReady registers a hook called once all initial watches are in place.
func WithReady(fn func()) Option {
	return func(w *Watcher) {
		w.ready = fn
	}
}

// New creates a Watcher for root. regenerate is called through the debouncer
// after every relevant change, and once after the initial watches are added.
func New(root string, inv Invalidator, regenerate func(), opts ...Option) *Watcher {
	w := &Watcher{
		root:  filepath.Clean(root),
		inv:   inv,
		delay: DefaultDelay,
		dirs:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.debounce = NewDebouncer(w.delay, func(reason string) {
		w.log.Debugf("Regenerating (%s)", reason)
		regenerate()
	})
	return w
}

// Debouncer returns the scheduler driving regeneration.
func (w *Watcher) Debouncer() *Debouncer[string] {
	return w.debounce
}

// Run watches until ctx is cancelled. Cancellation drops any scheduled
// regeneration but waits for one already running to finish before returning.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()
	w.watches = fsw

	if err := w.addTree(w.root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.root, err)
	}
	w.log.Infof("Watching %s (%d directories)", w.root, len(w.dirs))
	if w.ready != nil {
		w.ready()
	}
	w.debounce.Schedule("initial scan")

	for {
		select {
		case <-ctx.Done():
			w.shutdown()
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				w.shutdown()
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-fsw.Errors:
			if !ok {
				w.shutdown()
				return nil
			}
			w.log.Warnf("Watcher error: %v", err)
		}
	}
}

// shutdown drops scheduled work and waits for an in-flight regeneration.
func (w *Watcher) shutdown() {
	w.debounce.Stop()
	w.debounce.Wait()
}

// handleEvent applies invalidation for event and then schedules a
// regeneration.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	name := filepath.Clean(event.Name)
	base := filepath.Base(name)

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(name); err == nil && info.IsDir() {
			if skipDir(base) {
				return
			}
			if err := w.addTree(name); err != nil {
				w.log.Warnf("Failed to watch %s: %v", name, err)
			}
			w.log.Debugf("Directory added: %s", name)
			w.inv.Forget(name)
			w.debounce.Schedule(name)
			return
		}
	}

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		if w.dirs[name] {
			w.removeTree(name)
			w.log.Debugf("Directory removed: %s", name)
			w.inv.Forget(name)
			w.debounce.Schedule(name)
			return
		}
	}

	if !scanner.IsEndpointFile(base) {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	w.log.Debugf("File changed: %s", name)
	w.inv.InvalidateFile(name)
	w.debounce.Schedule(name)
}

// addTree adds watches for dir and every directory below it that can hold
// endpoints.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.watches.Add(path); err != nil {
			return err
		}
		w.dirs[filepath.Clean(path)] = true
		return nil
	})
}

// removeTree drops dir and its descendants from the watch list.
func (w *Watcher) removeTree(dir string) {
	prefix := dir + string(filepath.Separator)
	for path := range w.dirs {
		if path == dir || strings.HasPrefix(path, prefix) {
			_ = w.watches.Remove(path)
			delete(w.dirs, path)
		}
	}
}

// skipDir reports whether a directory is never watched.
func skipDir(name string) bool {
	if strings.HasPrefix(name, ".") || name == "node_modules" {
		return true
	}
	return scanner.ParseSegment(name).Excluded()
}
