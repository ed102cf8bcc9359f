// Package watch turns filesystem notifications on monitored paths into early
// check-cycle triggers.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of notifications (editors often write,
// rename and chmod in quick succession) into a single trigger.
const DefaultDebounce = 200 * time.Millisecond

// ErrNothingWatched is returned when none of the parent directories could be watched.
var ErrNothingWatched = errors.New("watch: no directories could be watched")

// Watch observes the parent directory of every path and, after a quiet period
// of debounce, sends on trigger when a monitored path was written, created,
// removed or renamed. Sends never block: a pending trigger absorbs later ones.
// Watch returns when ctx is cancelled.
//
// Directories are watched instead of files so that a deleted or replaced file
// still produces a notification.
func Watch(ctx context.Context, paths []string, debounce time.Duration, logger *slog.Logger, trigger chan<- struct{}) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	monitored := make(map[string]struct{}, len(paths))
	dirs := make(map[string]struct{})
	for _, p := range paths {
		abs, absErr := filepath.Abs(p)
		if absErr != nil {
			continue
		}
		monitored[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}

	watched := 0
	for dir := range dirs {
		if addErr := w.Add(dir); addErr != nil {
			logger.Warn("watcher: add dir failed", slog.String("path", dir), slog.String("error", addErr.Error()))
			continue
		}
		watched++
	}
	if watched == 0 {
		return ErrNothingWatched
	}

	logger.Info("watcher: started", slog.Int("dirs", watched), slog.Int("paths", len(monitored)))

	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time

	schedule := func() {
		if debounceTimer == nil {
			debounceTimer = time.NewTimer(debounce)
			debounceCh = debounceTimer.C
		} else {
			debounceTimer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-debounceCh:
			select {
			case trigger <- struct{}{}:
			default:
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if _, hit := monitored[filepath.Clean(ev.Name)]; !hit {
				continue
			}
			logger.Debug("watcher: change", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
