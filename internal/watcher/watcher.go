// Package watcher reports changes to ingestible files under a set of
// directories, coalescing bursts of filesystem events into batches.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
	"github.com/custodia-labs/fusionqa/internal/logger"
)

// DefaultDebounce is the quiet period before a batch is emitted.
const DefaultDebounce = 500 * time.Millisecond

// Change is one file that was written, created or removed.
type Change struct {
	Path    string
	Deleted bool
}

// Watcher watches directory trees for supported files.
type Watcher struct {
	roots    []string
	debounce time.Duration
}

// New creates a watcher over roots, which must be directories.
// A non-positive debounce uses DefaultDebounce.
func New(debounce time.Duration, roots ...string) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs := make([]string, 0, len(roots))
	for _, r := range roots {
		if a, err := filepath.Abs(r); err == nil {
			r = a
		}
		abs = append(abs, filepath.Clean(r))
	}
	return &Watcher{roots: abs, debounce: debounce}
}

// Roots returns the absolute watched directories.
func (w *Watcher) Roots() []string {
	return w.roots
}

// Watch starts watching and emits batches of distinct changes, sorted by
// path. The channel is closed when ctx is done or the watcher fails.
//
//nolint:gocyclo // Event loop with debounce timer
func (w *Watcher) Watch(ctx context.Context) (<-chan []Change, error) {
	for _, root := range w.roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, root, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, root)
		}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	for _, root := range w.roots {
		if _, err := addTree(fw, root); err != nil {
			fw.Close()
			return nil, err
		}
	}
	logger.Debug("Watching %d directories", len(fw.WatchList()))

	out := make(chan []Change)
	go func() {
		defer close(out)
		defer fw.Close()

		pending := make(map[string]Change)
		timer := time.NewTimer(w.debounce)
		timer.Stop()
		var fire <-chan time.Time

		schedule := func() {
			timer.Reset(w.debounce)
			fire = timer.C
		}

		for {
			select {
			case <-ctx.Done():
				return

			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Create) && isVisibleDir(ev.Name) {
					files, err := addTree(fw, ev.Name)
					if err != nil {
						logger.Warn("Cannot watch %s: %v", ev.Name, err)
						continue
					}
					for _, f := range files {
						pending[f] = Change{Path: f}
					}
					if len(files) > 0 {
						schedule()
					}
					continue
				}
				if c := handleFsEvent(ev); c != nil {
					pending[c.Path] = *c
					schedule()
				}

			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				logger.Warn("Watcher error: %v", err)

			case <-fire:
				fire = nil
				batch := drain(pending)
				if len(batch) == 0 {
					continue
				}
				select {
				case out <- batch:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// handleFsEvent converts an event on a supported, visible file into a
// change. Chmod-only events and directories are ignored.
func handleFsEvent(ev fsnotify.Event) *Change {
	if isHidden(ev.Name) {
		return nil
	}
	if _, ok := domain.KindFromPath(ev.Name); !ok {
		return nil
	}

	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return &Change{Path: ev.Name, Deleted: true}
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		info, err := os.Stat(ev.Name)
		if err != nil || info.IsDir() {
			return nil
		}
		return &Change{Path: ev.Name}
	default:
		return nil
	}
}

// addTree watches dir and every visible subdirectory, returning the
// supported files already present.
func addTree(fw *fsnotify.Watcher, dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path != dir && isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if err := fw.Add(path); err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
			return nil
		}
		if _, ok := domain.KindFromPath(path); ok {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func drain(pending map[string]Change) []Change {
	batch := make([]Change, 0, len(pending))
	for path, c := range pending {
		batch = append(batch, c)
		delete(pending, path)
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
	return batch
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

func isVisibleDir(path string) bool {
	if isHidden(path) {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
