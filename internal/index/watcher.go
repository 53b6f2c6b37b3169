package index

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/fitch/internal/checksum"
	"github.com/starford/fitch/internal/storage"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

const (
	// settle is how long the watcher waits for more events before
	// re-indexing. A single save produces several events (temp file,
	// write, rename), and every re-index re-verifies the whole proof.
	settle = 100 * time.Millisecond
	// reconcileDelay debounces the full pass that follows renames.
	reconcileDelay = 200 * time.Millisecond
)

type watcher struct {
	db     DocumentIndex
	store  storage.Provider
	root   string
	logger *slog.Logger
	cb     EventCallback
	fs     *fsnotify.Watcher

	pending map[string]struct{}
}

// Watch starts an fsnotify watcher on the store root and keeps the index in
// step with documents edited on disk until ctx is cancelled. It calls cb (if
// non-nil) after each index mutation.
//
// Events are coalesced per path. A file whose checksum already matches its
// index entry is skipped, so writes made through the index's own callers
// are not reported back to them. Renames trigger a reconciliation pass that
// catches documents moved together with their directory.
func Watch(ctx context.Context, db DocumentIndex, store storage.Provider, root string, logger *slog.Logger, cb EventCallback) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	w := &watcher{
		db:      db,
		store:   store,
		root:    root,
		logger:  logger,
		cb:      cb,
		fs:      fw,
		pending: make(map[string]struct{}),
	}
	if err := w.addDirs(root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	flush := time.NewTimer(settle)
	flush.Stop()
	reconcile := time.NewTimer(reconcileDelay)
	reconcile.Stop()
	defer flush.Stop()
	defer reconcile.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case <-flush.C:
			w.flush()

		case <-reconcile.C:
			w.reconcile()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.handle(ev) {
				flush.Reset(settle)
			}
			if ev.Op&fsnotify.Rename != 0 {
				reconcile.Reset(reconcileDelay)
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// handle records the paths touched by ev and reports whether any document
// became pending.
func (w *watcher) handle(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if hidden(filepath.Base(ev.Name)) {
				return false
			}
			if err := w.addDirs(ev.Name); err != nil {
				w.logger.Warn("watcher: add new dir failed",
					slog.String("path", ev.Name),
					slog.String("error", err.Error()))
			} else {
				w.logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
			}
			// Documents may land in the directory before it is watched.
			return w.markDir(ev.Name)
		}
	}
	return w.mark(ev.Name)
}

func (w *watcher) mark(abs string) bool {
	if !storage.IsDocument(abs) {
		return false
	}
	rel, err := filepath.Rel(w.root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	w.pending[filepath.ToSlash(rel)] = struct{}{}
	return true
}

func (w *watcher) markDir(dir string) bool {
	found := false
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if w.mark(p) {
			found = true
		}
		return nil
	})
	return found
}

// flush brings every pending path up to date with the disk.
func (w *watcher) flush() {
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	clear(w.pending)
	slices.Sort(paths)

	for _, p := range paths {
		data, err := w.store.Read(p)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			w.remove(p)
		case err != nil:
			w.logger.Warn("watcher: read failed", slog.String("path", p), slog.String("error", err.Error()))
		default:
			w.index(p, data)
		}
	}
}

// reconcile removes index entries whose files are gone and indexes files the
// event stream missed.
func (w *watcher) reconcile() {
	checksums, err := w.db.AllChecksums()
	if err != nil {
		w.logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := w.store.List("")
	if err != nil {
		w.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}
		if checksums[m.Path] == m.Checksum {
			continue
		}
		if data, err := w.store.Read(m.Path); err == nil {
			w.index(m.Path, data)
		}
	}
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			w.remove(p)
		}
	}
}

func (w *watcher) index(path string, data []byte) {
	old, _ := w.db.GetChecksum(path)
	if old == checksum.Sum(data) {
		return
	}
	if err := IndexFile(w.db, path, data); err != nil {
		w.logger.Warn("watcher: index failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	kind := "updated"
	if old == "" {
		kind = "created"
	}
	w.logger.Debug("watcher: indexed", slog.String("path", path), slog.String("op", kind))
	w.notify(kind, path)
}

func (w *watcher) remove(path string) {
	if old, _ := w.db.GetChecksum(path); old == "" {
		return
	}
	if err := w.db.DeleteDocument(path); err != nil {
		w.logger.Warn("watcher: delete failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: deleted", slog.String("path", path))
	w.notify("deleted", path)
}

func (w *watcher) notify(kind, path string) {
	if w.cb != nil {
		w.cb(kind, path)
	}
}

// addDirs adds dir and all its visible subdirectories to the watcher.
func (w *watcher) addDirs(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && hidden(d.Name()) {
			return filepath.SkipDir
		}
		return w.fs.Add(p)
	})
}

func hidden(name string) bool { return strings.HasPrefix(name, ".") }
