// Package watch turns filesystem notifications under a workspace root into
// host events.
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
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/phyten/funclen/internal/host"
	"github.com/phyten/funclen/internal/logging"
)

// renameWindow is how long a rename waits for the create carrying the new name.
const renameWindow = 50 * time.Millisecond

// Handler receives translated events. *host.Host satisfies it.
type Handler interface {
	Handle(ctx context.Context, ev host.Event) error
}

// Skip reports whether a directory should not be watched. It is consulted on
// every change, so it may follow settings that change at run time.
type Skip func(path string) bool

type Watcher struct {
	root    string
	handler Handler
	skip    Skip
	logger  *slog.Logger
	fsw     *fsnotify.Watcher
	config  map[string]struct{}
}

// New watches root and every directory below it that skip does not reject.
func New(root string, handler Handler, skip Skip, logger *slog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{
		root:    abs,
		handler: handler,
		skip:    skip,
		logger:  logging.Component(logger, "watch"),
		fsw:     fsw,
		config:  map[string]struct{}{},
	}
	if _, err := w.addTree(abs); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// WatchConfig reports changes to paths as host.EventConfigChange instead of
// file saves. The files do not have to exist yet. Directories outside the
// workspace are watched non-recursively for them. Call it before Run.
func (w *Watcher) WatchConfig(paths ...string) error {
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", p, err)
		}
		w.config[abs] = struct{}{}
		dir := filepath.Dir(abs)
		if w.inRoot(dir) {
			continue
		}
		if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return nil
}

// addTree watches dir and the directories below it, returning the regular
// files it passed.
func (w *Watcher) addTree(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			if d.Type().IsRegular() {
				files = append(files, path)
			}
			return nil
		}
		if path != dir && w.skip != nil && w.skip(path) {
			return fs.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
	return files, err
}

// refresh brings the watch list in line with skip after the settings changed.
func (w *Watcher) refresh() error {
	for _, p := range w.fsw.WatchList() {
		if p != w.root && w.inRoot(p) && w.skipped(p) {
			_ = w.fsw.Remove(p)
		}
	}
	_, err := w.addTree(w.root)
	return err
}

// skipped reports whether skip rejects path or a directory above it.
func (w *Watcher) skipped(path string) bool {
	if w.skip == nil {
		return false
	}
	for p := path; p != w.root && w.inRoot(p); p = filepath.Dir(p) {
		if w.skip(p) {
			return true
		}
	}
	return false
}

func (w *Watcher) inRoot(path string) bool {
	return path == w.root || strings.HasPrefix(path, w.root+string(filepath.Separator))
}

func (w *Watcher) isConfig(path string) bool {
	_, ok := w.config[path]
	return ok
}

// Run forwards events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logging.ErrorWithError(ctx, w.logger, err, "watch error", nil)
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.dispatch(ctx, w.pair(ev))
		}
	}
}

func (w *Watcher) dispatch(ctx context.Context, events []host.Event) {
	for _, hev := range events {
		err := w.handler.Handle(ctx, hev)
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Warn(ctx, w.logger, "event not applied", logging.Fields{"kind": hev.Kind.String(), "path": hev.Path, "error": err.Error()})
		}
		if hev.Kind == host.EventConfigChange && err == nil {
			if err := w.refresh(); err != nil {
				logging.Warn(ctx, w.logger, "refresh watches", logging.Fields{"error": err.Error()})
			}
		}
	}
}

// pair joins a rename with the create for the new name into one
// host.EventRename. When something else arrives first, or nothing arrives
// within renameWindow, the rename is reported as a delete.
func (w *Watcher) pair(ev fsnotify.Event) []host.Event {
	name := filepath.Clean(ev.Name)
	if !ev.Has(fsnotify.Rename) || w.isConfig(name) || !w.inRoot(name) {
		return w.translate(ev)
	}
	timer := time.NewTimer(renameWindow)
	defer timer.Stop()
	select {
	case next, ok := <-w.fsw.Events:
		if !ok {
			return w.translate(ev)
		}
		nextName := filepath.Clean(next.Name)
		if next.Has(fsnotify.Create) && w.inRoot(nextName) && !w.isConfig(nextName) {
			return w.renamed(name, nextName)
		}
		return append(w.translate(ev), w.pair(next)...)
	case <-timer.C:
		return w.translate(ev)
	}
}

func (w *Watcher) renamed(oldPath, path string) []host.Event {
	fi, err := os.Stat(path)
	if err != nil {
		return []host.Event{{Kind: host.EventDelete, Path: oldPath}}
	}
	if fi.IsDir() {
		if w.skip != nil && w.skip(path) {
			return []host.Event{{Kind: host.EventDelete, Path: oldPath}}
		}
		if _, err := w.addTree(path); err != nil {
			logging.Warn(context.Background(), w.logger, "watch renamed directory", logging.Fields{"path": path, "error": err.Error()})
		}
	}
	return []host.Event{{Kind: host.EventRename, OldPath: oldPath, Path: path}}
}

// translate maps one notification to host events. Config files map to
// host.EventConfigChange; paths outside the root are dropped. A directory
// that appears is watched and its files reported as saves.
func (w *Watcher) translate(ev fsnotify.Event) []host.Event {
	name := filepath.Clean(ev.Name)
	if w.isConfig(name) {
		if ev.Op == fsnotify.Chmod {
			return nil
		}
		return []host.Event{{Kind: host.EventConfigChange, Path: name}}
	}
	if !w.inRoot(name) {
		return nil
	}
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return []host.Event{{Kind: host.EventDelete, Path: name}}
	case ev.Has(fsnotify.Create):
		fi, err := os.Stat(name)
		if err != nil {
			return nil
		}
		if !fi.IsDir() {
			return []host.Event{{Kind: host.EventSave, Path: name}}
		}
		if w.skip != nil && w.skip(name) {
			return nil
		}
		files, err := w.addTree(name)
		if err != nil {
			logging.Warn(context.Background(), w.logger, "watch new directory", logging.Fields{"path": name, "error": err.Error()})
		}
		out := make([]host.Event, 0, len(files))
		for _, f := range files {
			out = append(out, host.Event{Kind: host.EventSave, Path: f})
		}
		return out
	case ev.Has(fsnotify.Write):
		return []host.Event{{Kind: host.EventSave, Path: name}}
	default:
		return nil
	}
}
