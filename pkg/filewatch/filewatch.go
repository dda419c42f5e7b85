// Package filewatch reports changes to manifest files.
//
// It is used by `drenv apply --watch` to apply manifests again whenever they
// are edited.
package filewatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ramendr/drenv/pkg/log"
)

// DefaultDebounce is how long a [Watcher] waits for more events before
// reporting a change. Editors often write a file in several steps.
const DefaultDebounce = 200 * time.Millisecond

// ErrNoPaths is returned by [New] when no paths are given.
var ErrNoPaths = errors.New("no paths to watch")

// Watcher watches files, and files directly inside directories.
type Watcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]struct{}
	dirs     map[string]struct{}
	debounce time.Duration
}

// WatcherOpt configures a [Watcher].
type WatcherOpt func(*Watcher)

// WithDebounce sets the debounce delay of a [Watcher].
func WithDebounce(d time.Duration) WatcherOpt {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// New creates a [Watcher] for paths. A path may be a file, or a directory in
// which case any file directly inside it is watched.
func New(paths []string, opts ...WatcherOpt) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, ErrNoPaths
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		watcher:  watcher,
		files:    map[string]struct{}{},
		dirs:     map[string]struct{}{},
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}

	for _, path := range paths {
		err = w.add(path)
		if err != nil {
			//nolint:errcheck // Already failing.
			watcher.Close()

			return nil, err
		}
	}

	return w, nil
}

func (w *Watcher) add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("stat %q: %w", path, err)
	}

	// Files are watched through their directory, so that editors replacing
	// the file on save do not end the watch.
	dir := abs
	if info.IsDir() {
		w.dirs[abs] = struct{}{}
	} else {
		dir = filepath.Dir(abs)
		w.files[abs] = struct{}{}
	}

	err = w.watcher.Add(dir)
	if err != nil {
		return fmt.Errorf("add %q to watcher: %w", dir, err)
	}

	return nil
}

// isWatched returns true if name is one of the watched files, or a file
// directly inside a watched directory.
func (w *Watcher) isWatched(name string) bool {
	if _, ok := w.files[name]; ok {
		return true
	}

	_, ok := w.dirs[filepath.Dir(name)]

	return ok && !strings.HasPrefix(filepath.Base(name), ".")
}

// Run calls fn with the sorted names of changed files after each burst of
// changes, until ctx is done or the watcher is closed. Calls to fn do not
// overlap.
func (w *Watcher) Run(ctx context.Context, fn func(ctx context.Context, changed []string)) error {
	logger := log.WithContext(ctx)

	timer := time.NewTimer(w.debounce)
	timer.Stop()

	changed := map[string]struct{}{}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()

			return nil

		case evt, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}

			if !w.isWatched(evt.Name) {
				continue
			}

			// Ignore events that are not related to file content changes.
			if evt.Has(fsnotify.Chmod) {
				continue
			}

			logger.DebugContext(ctx, "file event", slog.String("event", evt.String()))

			changed[evt.Name] = struct{}{}

			timer.Reset(w.debounce)

		case <-timer.C:
			names := slices.Sorted(maps.Keys(changed))
			clear(changed)

			fn(ctx, names)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}

			logger.ErrorContext(ctx, "watch files", slog.Any("error", err))
		}
	}
}

// Close stops watching. A running [Watcher.Run] returns.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	if err != nil {
		return fmt.Errorf("close watcher: %w", err)
	}

	return nil
}
