// Package watch reports created and modified raw result files in a directory.
package watch

import (
	"context"
	"path/filepath"
	"slices"

	"github.com/fsnotify/fsnotify"
)

// Op is the kind of file change.
type Op int

// File operations reported by a Watcher.
const (
	Created Op = iota + 1
	Modified
)

// String returns the operation name.
func (op Op) String() string {
	switch op {
	case Created:
		return "created"
	case Modified:
		return "modified"
	default:
		return "unknown"
	}
}

// Event is a file change.
type Event struct {
	Path string
	Op   Op
}

// Watcher monitors a directory using fsnotify.
type Watcher struct {
	watcher    *fsnotify.Watcher
	extensions []string
	errs       chan error
}

// New creates a new watcher for files with the given extensions
// (e.g. ".json"). With no extensions, ".json" is watched.
func New(extensions ...string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if len(extensions) == 0 {
		extensions = []string{".json"}
	}

	return &Watcher{
		watcher:    w,
		extensions: extensions,
		errs:       make(chan error, 16),
	}, nil
}

// Watch starts monitoring dir. The returned channel is closed when ctx is
// done or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context, dir string) (<-chan Event, error) {
	if err := w.watcher.Add(dir); err != nil {
		return nil, err
	}

	events := make(chan Event, 100)

	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !w.isWatchedExtension(event.Name) {
					continue
				}

				var op Op
				switch {
				case event.Has(fsnotify.Create):
					op = Created
				case event.Has(fsnotify.Write):
					op = Modified
				default:
					continue
				}

				select {
				case events <- Event{Path: event.Name, Op: op}:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				// Drop errors nobody is reading.
				select {
				case w.errs <- err:
				default:
				}
			}
		}
	}()

	return events, nil
}

// Errors returns watcher errors, such as event queue overflows.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) isWatchedExtension(path string) bool {
	return slices.Contains(w.extensions, filepath.Ext(path))
}
