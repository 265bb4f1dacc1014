// Package watch reruns a callback whenever one of a set of files changes.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultSettle is how long the watcher waits for further events before it
// runs the callback. Editors often produce several events for one save.
const DefaultSettle = 100 * time.Millisecond

type Watcher struct {
	paths    []string
	filter   func(path string) bool
	settle   time.Duration
	logger   zerolog.Logger
	onChange func(ctx context.Context)
}

type Option func(*Watcher)

// WithFilter selects which changed files trigger the callback. Without a
// filter every file in a watched directory does.
func WithFilter(filter func(path string) bool) Option {
	return func(w *Watcher) {
		w.filter = filter
	}
}

func WithSettle(d time.Duration) Option {
	return func(w *Watcher) {
		w.settle = d
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// New watches paths, each a file or a directory. A file is watched through its
// parent directory which keeps working for editors that save atomically.
func New(paths []string, onChange func(ctx context.Context), opts ...Option) *Watcher {
	w := &Watcher{
		paths:    paths,
		settle:   DefaultSettle,
		logger:   zerolog.Nop(),
		onChange: onChange,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run blocks until ctx is done or the underlying watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	files := make(map[string]bool)
	dirs := make(map[string]bool)
	added := make(map[string]bool)
	for _, p := range w.paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("absolute path: %w", err)
		}
		stat, err := os.Stat(abs)
		if err != nil {
			return fmt.Errorf("stat: %w", err)
		}
		dir := abs
		if stat.IsDir() {
			dirs[abs] = true
		} else {
			files[abs] = true
			dir = filepath.Dir(abs)
		}
		if added[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch directory: %w", err)
		}
		added[dir] = true
		w.logger.Info().Str("path", dir).Msg("watching for changes")
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event, files, dirs) {
				continue
			}
			w.logger.Debug().
				Str("event", event.Op.String()).
				Str("file", event.Name).
				Msg("file changed")
			pending = time.After(w.settle)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Msg("file watcher error")

		case <-pending:
			pending = nil
			w.onChange(ctx)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event, files map[string]bool, dirs map[string]bool) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}
	name := filepath.Clean(event.Name)
	if !files[name] && !dirs[filepath.Dir(name)] {
		return false
	}
	return w.filter == nil || w.filter(name)
}
