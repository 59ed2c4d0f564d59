package filewatch

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Conflict describes an external modification observed while a diff preview
// was awaiting policy confirmation.
type Conflict struct {
	Path       string
	DetectedAt time.Time
}

// ConflictWatcher guards the window between rendering a diff preview and the
// user confirming it: if the target file changes on disk in that window
// (another process, another agent, a formatter-on-save), Wait reports the
// conflict instead of letting the tool silently overwrite it.
type ConflictWatcher struct {
	watcher *fsnotify.Watcher
	path    string
}

// WatchForExternalChange starts watching path's parent directory (fsnotify
// watches directories more reliably than single files across platforms) for
// writes to path, recording the baseline size/mtime so callers can diff
// against what the preview was generated from.
func WatchForExternalChange(path string) (*ConflictWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("filewatch: resolve path: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("filewatch: new watcher: %w", err)
	}
	dir := filepath.Dir(abs)
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("filewatch: watch %s: %w", dir, err)
	}
	return &ConflictWatcher{watcher: w, path: abs}, nil
}

// Poll returns true if the watched file has been written or removed since
// WatchForExternalChange started, without blocking. Callers poll this right
// before applying a confirmed edit.
func (c *ConflictWatcher) Poll() bool {
	if c == nil || c.watcher == nil {
		return false
	}
	for {
		select {
		case ev, ok := <-c.watcher.Events:
			if !ok {
				return false
			}
			if filepath.Clean(ev.Name) != c.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				return true
			}
		default:
			return false
		}
	}
}

// Close stops watching.
func (c *ConflictWatcher) Close() error {
	if c == nil || c.watcher == nil {
		return nil
	}
	return c.watcher.Close()
}
