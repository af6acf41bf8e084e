package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	ferrors "git.home.luguber.info/inful/previewd/internal/foundation/errors"
	"git.home.luguber.info/inful/previewd/internal/logfields"
)

// Observer is the change-observation strategy. Run delivers the absolute
// paths of created or modified files under the root to out until the context
// is canceled. Implementations do not filter by extension or resolve
// workspaces; that is the watcher's job.
type Observer interface {
	Run(ctx context.Context, out chan<- string) error
}

// fsnotifyObserver uses native OS filesystem notifications. New
// subdirectories (freshly materialized workspaces) are added to the watch as
// they appear.
type fsnotifyObserver struct {
	root string
}

// NewNativeObserver creates an OS-notification-based observer for root.
func NewNativeObserver(root string) Observer {
	return &fsnotifyObserver{root: root}
}

func (o *fsnotifyObserver) Run(ctx context.Context, out chan<- string) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryDaemon, "failed to create fsnotify watcher").Build()
	}
	defer fsw.Close()

	if err := addRecursive(fsw, o.root); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			info, statErr := os.Stat(event.Name)
			if statErr != nil {
				continue
			}
			if info.IsDir() {
				if event.Op&fsnotify.Create != 0 {
					if err := addRecursive(fsw, event.Name); err != nil {
						slog.Warn("Failed to watch new directory",
							logfields.Path(event.Name), logfields.Error(err))
					}
				}
				continue
			}
			select {
			case out <- event.Name:
			case <-ctx.Done():
				return nil
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Error("Filesystem watch error", logfields.Error(err))
		}
	}
}

func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			// Directories can vanish mid-walk when a workspace is evicted.
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if addErr := fsw.Add(path); addErr != nil {
			return ferrors.WrapError(addErr, ferrors.CategoryDaemon, "failed to add watch").
				WithContext("path", path).
				Build()
		}
		return nil
	})
}

// pollingObserver re-scans the tree on a fixed interval and reports files
// whose mtime or size changed since the previous scan. It exists because
// container and network filesystems frequently fail to propagate native
// notifications; a scan sees everything a notification would.
type pollingObserver struct {
	root     string
	interval time.Duration
}

// NewPollingObserver creates a fixed-interval re-scan observer for root.
func NewPollingObserver(root string, interval time.Duration) Observer {
	return &pollingObserver{root: root, interval: interval}
}

type fileStamp struct {
	modTime time.Time
	size    int64
}

func (o *pollingObserver) Run(ctx context.Context, out chan<- string) error {
	// The initial scan primes the snapshot without emitting: files that
	// existed before the observer started are not "changes".
	previous := o.scan()

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			current := o.scan()
			for path, stamp := range current {
				prev, seen := previous[path]
				if seen && prev == stamp {
					continue
				}
				select {
				case out <- path:
				case <-ctx.Done():
					return nil
				}
			}
			previous = current
		}
	}
}

func (o *pollingObserver) scan() map[string]fileStamp {
	stamps := make(map[string]fileStamp)
	_ = filepath.WalkDir(o.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return nil
		}
		info, infoErr := entry.Info()
		if infoErr != nil {
			return nil
		}
		stamps[path] = fileStamp{modTime: info.ModTime(), size: info.Size()}
		return nil
	})
	return stamps
}
