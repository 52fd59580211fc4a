// Package watch reports changes below a directory tree.
//
// Editors and build tools touch many files at once. The watcher collapses such
// a burst into one callback carrying the last event, delivered once the tree
// has been quiet for the configured interval.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/igormichalak/devserve/internal/debounce"
)

// Watcher watches a directory tree recursively.
type Watcher struct {
	root    string
	ignore  map[string]struct{}
	fsw     *fsnotify.Watcher
	changed func(fsnotify.Event)
	newDirs *debounce.Debouncer
	closed  atomic.Bool
	log     *slog.Logger
}

// New starts watching root and every directory below it whose name is not in
// ignore. onChange runs on its own goroutine after a burst of events has been
// quiet for interval. It is not called once Run has returned.
func New(root string, ignore []string, interval time.Duration, onChange func(fsnotify.Event), log *slog.Logger) (*Watcher, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		root:    filepath.Clean(root),
		ignore:  make(map[string]struct{}, len(ignore)),
		fsw:     fsw,
		newDirs: debounce.New(interval),
		log:     log,
	}
	w.changed = debounce.Debounce(func(ev fsnotify.Event) {
		if !w.closed.Load() {
			onChange(ev)
		}
	}, interval)
	for _, name := range ignore {
		w.ignore[name] = struct{}{}
	}

	if err := w.addTree(w.root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Watched returns the directories currently watched.
func (w *Watcher) Watched() []string {
	return w.fsw.WatchList()
}

// Run dispatches events until ctx is done, then releases the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	defer w.newDirs.Stop()
	defer w.closed.Store(true)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.log.Warn("event queue overflowed, reloading anyway")
				w.changed(fsnotify.Event{Name: w.root, Op: fsnotify.Write})
				continue
			}
			w.log.Error("watcher error", "err", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op == fsnotify.Chmod || w.ignored(ev.Name) {
		return
	}
	w.log.Debug("file event", "path", ev.Name, "op", ev.Op.String())

	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			dir := ev.Name
			w.newDirs.Call(dir, func() {
				if err := w.addTree(dir); err != nil {
					w.log.Warn("watch new directory", "path", dir, "err", err)
				}
			})
		}
	}

	w.changed(ev)
}

// ignored reports whether any element of path below root is an ignored name.
func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if _, ok := w.ignore[part]; ok {
			return true
		}
	}
	return false
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path != dir && errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.ignored(path) {
			return fs.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %q: %w", path, err)
		}
		return nil
	})
}
