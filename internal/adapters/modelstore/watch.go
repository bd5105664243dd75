package modelstore

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

const artifactOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

// ChangeFunc receives the path and operation of an artifact change.
type ChangeFunc func(path, op string)

// Watch calls onChange whenever the artifact at path is written, created,
// removed or renamed, until ctx is done. The parent directory is watched so
// that editors replacing the file atomically are still seen.
//
// The loaded model is never swapped: a change only tells operators that the
// running process no longer matches the file on disk.
func Watch(ctx context.Context, path string, onChange ChangeFunc) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return err
	}

	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs || event.Op&artifactOps == 0 {
					continue
				}
				onChange(event.Name, event.Op.String())
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}
