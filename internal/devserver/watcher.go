package devserver

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	foundationerrors "git.home.luguber.info/inful/assetflow/internal/foundation/errors"
	"git.home.luguber.info/inful/assetflow/internal/logfields"
)

// Watcher watches directory trees recursively and emits changed files as slash
// separated paths relative to a root directory.
type Watcher struct {
	root    string
	fsw     *fsnotify.Watcher
	changes chan string
	logger  *slog.Logger
}

// NewWatcher watches every directory below each of dirs. Relative dirs are resolved
// against root, and emitted paths are relative to root.
func NewWatcher(root string, dirs []string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryServer, "failed to resolve watch root").Build()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryServer, "failed to create file watcher").Build()
	}
	w := &Watcher{root: root, fsw: fsw, changes: make(chan string, 64), logger: logger}
	for _, dir := range dirs {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		if err := w.addRecursive(dir); err != nil {
			_ = fsw.Close()
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryServer, "failed to watch directory").
				WithContext("path", dir).
				Build()
		}
	}
	return w, nil
}

// Changes returns the channel of changed paths. It is closed when Run returns.
func (w *Watcher) Changes() <-chan string { return w.changes }

// Close stops watching. Run closes the watcher itself; Close is for a watcher that
// never ran.
func (w *Watcher) Close() error { return w.fsw.Close() }

// Run forwards filesystem events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.changes)
	defer func() { _ = w.fsw.Close() }()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			rel, emit := w.handle(ev)
			if !emit {
				continue
			}
			select {
			case w.changes <- rel:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watcher error", logfields.Error(err))
		}
	}
}

// handle registers new directories and converts ev into a root-relative path.
func (w *Watcher) handle(ev fsnotify.Event) (string, bool) {
	if shouldIgnore(ev.Name) || ev.Op == fsnotify.Chmod {
		return "", false
	}
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			if err := w.addRecursive(ev.Name); err != nil {
				w.logger.Warn("Watch add failed", logfields.Path(ev.Name), logfields.Error(err))
			}
			return "", false
		}
	}
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		rel = ev.Name
	}
	rel = filepath.ToSlash(rel)
	w.logger.Debug("File change detected", logfields.Path(rel), slog.String("op", ev.Op.String()))
	return rel, true
}

func (w *Watcher) addRecursive(root string) error {
	if _, err := os.Stat(root); err != nil {
		return err
	}
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			w.logger.Warn("Watch add failed", logfields.Path(p), logfields.Error(err))
		}
		return nil
	})
}

// shouldIgnore reports hidden files and editor swap, backup and lock files.
func shouldIgnore(p string) bool {
	base := filepath.Base(p)
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"),
		strings.HasSuffix(base, ".swp"),
		strings.HasSuffix(base, ".swx"),
		strings.HasSuffix(base, ".tmp"),
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	case base == "Thumbs.db" || base == "4913":
		return true
	}
	return false
}
