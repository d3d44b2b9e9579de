// Package host reacts to workspace events by rescanning files and keeping the
// diagnostic store current.
package host

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/phyten/funclen/internal/diagstore"
	"github.com/phyten/funclen/internal/engine"
	"github.com/phyten/funclen/internal/logging"
	"github.com/phyten/funclen/internal/policy"
)

type EventKind int

const (
	EventSave EventKind = iota
	EventRename
	EventDelete
	EventConfigChange
)

func (k EventKind) String() string {
	switch k {
	case EventSave:
		return "save"
	case EventRename:
		return "rename"
	case EventDelete:
		return "delete"
	case EventConfigChange:
		return "config-change"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is a workspace notification. OldPath is only set for EventRename.
type Event struct {
	Kind    EventKind
	Path    string
	OldPath string
}

// Host owns the store and the options used to fill it.
type Host struct {
	scanner *engine.Scanner
	store   *diagstore.Store
	logger  *slog.Logger

	mu   sync.RWMutex
	opts engine.Options
	root string
}

func New(scanner *engine.Scanner, store *diagstore.Store, opts engine.Options, logger *slog.Logger) (*Host, error) {
	h := &Host{
		scanner: scanner,
		store:   store,
		logger:  logging.Component(logger, "host"),
	}
	if err := h.setOptions(opts); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Host) Store() *diagstore.Store { return h.store }

func (h *Host) Options() engine.Options {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.opts
}

// Root returns the absolute workspace root.
func (h *Host) Root() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.root
}

// Policy returns the exclusion policy for the current options.
func (h *Host) Policy() *policy.Policy {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return policy.New(h.root, h.opts.MaxLines, h.opts.Excludes)
}

func (h *Host) setOptions(opts engine.Options) error {
	root := strings.TrimSpace(opts.Root)
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}
	opts.Root = abs
	h.mu.Lock()
	h.opts = opts
	h.root = abs
	h.mu.Unlock()
	return nil
}

// UpdateOptions swaps the options and handles it as a configuration change.
func (h *Host) UpdateOptions(ctx context.Context, opts engine.Options) error {
	if err := h.setOptions(opts); err != nil {
		return err
	}
	return h.Handle(ctx, Event{Kind: EventConfigChange})
}

// ScanAll scans the whole workspace and records every scanned file.
func (h *Host) ScanAll(ctx context.Context) (*engine.Result, error) {
	opts := h.Options()
	res, err := h.scanner.Run(ctx, opts)
	if err != nil {
		return nil, err
	}
	pol := policy.New(res.Root, opts.MaxLines, opts.Excludes)
	logging.Debug(ctx, h.logger, "scan all", logging.Fields{"root": res.Root, "excluded": pol.Prefixes(), "files": res.Files})
	for _, fr := range res.Scanned {
		h.store.Set(fr.File, pol.Report(fr.Findings))
	}
	return res, nil
}

// Handle applies one event to the store.
func (h *Host) Handle(ctx context.Context, ev Event) error {
	logging.Debug(ctx, h.logger, "event", logging.Fields{"kind": ev.Kind.String(), "path": ev.Path, "old_path": ev.OldPath})
	switch ev.Kind {
	case EventSave:
		return h.rescan(ctx, ev.Path)
	case EventRename:
		return h.rename(ctx, ev.OldPath, ev.Path)
	case EventDelete:
		h.deletePath(ev.Path)
		return nil
	case EventConfigChange:
		h.store.Clear()
		_, err := h.ScanAll(ctx)
		return err
	default:
		return fmt.Errorf("unknown event kind: %v", ev.Kind)
	}
}

func (h *Host) rescan(ctx context.Context, path string) error {
	opts := h.Options()
	fr, ok, err := h.scanner.ScanFile(ctx, opts, path)
	if err != nil {
		logging.ErrorWithError(ctx, h.logger, err, "rescan failed", logging.Fields{"path": path})
		return err
	}
	if !ok {
		// excluded or unsupported: drop whatever was recorded before
		h.store.Delete(h.key(path))
		return nil
	}
	pol := policy.New(h.Root(), opts.MaxLines, opts.Excludes)
	h.store.Set(fr.File, pol.Report(fr.Findings))
	return nil
}

// rename moves the entry of oldPath to path as one store update. A renamed
// directory drops the old subtree and rescans the files below the new one.
func (h *Host) rename(ctx context.Context, oldPath, path string) error {
	if fi, err := os.Stat(h.abs(path)); err == nil && fi.IsDir() {
		h.deletePath(oldPath)
		return h.rescanTree(ctx, path)
	}
	opts := h.Options()
	fr, ok, err := h.scanner.ScanFile(ctx, opts, path)
	if err != nil {
		h.deletePath(oldPath)
		logging.ErrorWithError(ctx, h.logger, err, "rescan failed", logging.Fields{"path": path, "old_path": oldPath})
		return err
	}
	if !ok {
		h.deletePath(oldPath)
		h.store.Delete(h.key(path))
		return nil
	}
	pol := policy.New(h.Root(), opts.MaxLines, opts.Excludes)
	h.store.Rename(h.key(oldPath), fr.File, pol.Report(fr.Findings))
	return nil
}

// rescanTree rescans every file below dir that discovery would visit.
func (h *Host) rescanTree(ctx context.Context, dir string) error {
	opts := h.Options()
	pol := h.Policy()
	var errs []error
	root := h.abs(dir)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && (engine.SkipDir(path, opts.ExcludeTypical) || pol.Excluded(path)) {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			if err := h.rescan(ctx, path); err != nil {
				errs = append(errs, err)
			}
		}
		return ctx.Err()
	})
	return errors.Join(append(errs, err)...)
}

// deletePath removes path and, when it was a directory, everything below it.
func (h *Host) deletePath(path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	key := h.key(path)
	h.store.Delete(key)
	prefix := key + "/"
	for _, e := range h.store.Snapshot() {
		if strings.HasPrefix(e.File, prefix) {
			h.store.Delete(e.File)
		}
	}
}

func (h *Host) abs(path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(h.Root(), path)
	}
	return filepath.Clean(path)
}

func (h *Host) key(path string) string {
	return engine.RelPath(h.Root(), h.abs(path))
}
