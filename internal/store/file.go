package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/TimurManjosov/godecider/internal/rules"
	"github.com/fsnotify/fsnotify"
)

// debounce groups the burst of events editors produce for a single save.
const debounce = 100 * time.Millisecond

// FileSource reads a JSON or YAML document from disk. The format follows the
// file extension.
type FileSource struct {
	path   string
	format rules.Format
}

// NewFileSource creates a source for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: filepath.Clean(path), format: rules.FormatFromPath(path)}
}

// Load reads and parses the file.
func (f *FileSource) Load(_ context.Context) (*rules.Document, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return rules.Parse(data, f.format)
}

// Describe implements Source.
func (f *FileSource) Describe() string { return "file:" + f.path }

// Close is a no-op.
func (f *FileSource) Close() error { return nil }

// Changes watches the file's directory so that editors replacing the file
// (rename over the original) are noticed as well as in-place writes.
func (f *FileSource) Changes(ctx context.Context) (<-chan struct{}, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(f.path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(f.path), err)
	}

	changes := make(chan struct{}, 1)
	go f.runWatch(ctx, w, changes)
	return changes, nil
}

func (f *FileSource) runWatch(ctx context.Context, w *fsnotify.Watcher, changes chan<- struct{}) {
	defer close(changes)
	defer w.Close()

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != f.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				timer.Reset(debounce)
			}
		case _, ok := <-w.Errors:
			if !ok {
				return
			}
		case <-timer.C:
			signal(changes)
		}
	}
}
