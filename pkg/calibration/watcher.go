package calibration

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
)

// Watch reloads the table whenever the calibration file is written,
// created, renamed or removed, and passes the result to onChange.
// A removed file reloads as an empty table, so deleting the file
// resets calibration without a restart.
//
// The parent directory is watched rather than the file itself because
// Save replaces the file by rename, which drops inode-level watches.
// Watch returns once the watcher is installed; it stops when ctx is done.
func Watch(ctx context.Context, s *Store, onChange func(Table)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create calibration watcher")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		w.Close()
		return storageError(err, "create calibration directory")
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return errors.Wrapf(err, "watch %s", dir)
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return

			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != s.path {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
					!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
					continue
				}
				s.logger.Info("calibration file changed", "path", s.path, "op", ev.Op.String())
				onChange(s.Load())

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Warn("calibration watcher error", "path", s.path, "error", err)
			}
		}
	}()

	return nil
}
