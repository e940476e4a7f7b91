// Package watch re-runs a function whenever files under a set of roots
// change. Bursts of events are coalesced by a debounce interval.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agentx-labs/webbundle/internal/ctxlog"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when Run is given a non-positive debounce.
const DefaultDebounce = 300 * time.Millisecond

// Run watches every directory under roots and calls fn after changes settle.
// Directories created later are watched too. A root that does not exist yet
// is waited for by watching its nearest existing parent, and is watched in
// full once it appears. Changes outside the roots are ignored. Run returns
// when ctx is done or the watcher fails; an error from fn is logged and
// does not stop watching.
func Run(ctx context.Context, roots []string, debounce time.Duration, fn func(context.Context) error) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := ctxlog.FromContext(ctx)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	t := &trees{w: w, roots: make([]string, len(roots))}
	for i, root := range roots {
		t.roots[i] = filepath.Clean(root)
	}
	if err := t.watchRoots(); err != nil {
		return err
	}
	logger.Debug("watching", "roots", t.roots, "dirs", len(w.WatchList()))

	// Idle until the first event.
	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ignored(ev.Name) || !t.relevant(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := t.added(ev.Name); err != nil {
						logger.Warn("watching new directory", "path", ev.Name, "error", err)
					}
				}
			}
			logger.Debug("change", "path", ev.Name, "op", ev.Op.String())
			timer.Reset(debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watching: %w", err)

		case <-timer.C:
			if err := fn(ctx); err != nil {
				logger.Error("rebuild failed", "error", err)
			}
		}
	}
}

// trees tracks which roots are watched in full and which are still missing.
type trees struct {
	w     *fsnotify.Watcher
	roots []string
}

// watchRoots watches every existing root recursively. A missing root gets a
// non-recursive watch on its nearest existing parent so its creation is seen.
func (t *trees) watchRoots() error {
	for _, root := range t.roots {
		if info, err := os.Stat(root); err == nil && info.IsDir() {
			if err := addTree(t.w, root); err != nil {
				return err
			}
			continue
		}
		parent := existingParent(root)
		if parent == "" {
			continue
		}
		if err := t.w.Add(parent); err != nil {
			return fmt.Errorf("watching %s: %w", parent, err)
		}
	}
	return nil
}

// added handles a directory created at path: inside a root it is watched
// in full; on the way to a missing root the roots are re-checked.
func (t *trees) added(path string) error {
	for _, root := range t.roots {
		if within(path, root) {
			return addTree(t.w, path)
		}
	}
	return t.watchRoots()
}

// relevant reports whether path is inside a root or on the way to one.
func (t *trees) relevant(path string) bool {
	for _, root := range t.roots {
		if within(path, root) || within(root, path) {
			return true
		}
	}
	return false
}

// within reports whether path is dir or below it.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// existingParent returns the closest existing directory above path, or ""
// when there is none.
func existingParent(path string) string {
	for dir := filepath.Dir(path); ; dir = filepath.Dir(dir) {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
		if dir == filepath.Dir(dir) {
			return ""
		}
	}
}

// addTree adds root and every directory below it, skipping ignored names.
func addTree(w *fsnotify.Watcher, root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && ignored(path) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("watching %s: %w", root, err)
	}
	return nil
}

// ignored matches editor and VCS noise.
func ignored(path string) bool {
	base := filepath.Base(path)
	switch base {
	case ".git", "node_modules", ".DS_Store":
		return true
	}
	return strings.HasPrefix(base, ".#") || strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp")
}
