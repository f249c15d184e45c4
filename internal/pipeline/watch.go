package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/fmueller/vidbrief/internal/media"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Handler processes one file that appeared in a watched directory.
type Handler func(ctx context.Context, path string)

type WatchOptions struct {
	// SettleDelay is how long a file must go without write events before
	// it is handed to the handler.
	SettleDelay time.Duration
	Logger      *zap.Logger

	// OnReady is called once the directory is being watched.
	OnReady func()
}

const defaultSettleDelay = 2 * time.Second

// Watch reports files matching ext that are created in or moved into dir.
// Files are handled one at a time on the calling goroutine, each once. It
// returns nil when ctx is cancelled.
func Watch(ctx context.Context, dir, ext string, handle Handler, opts WatchOptions) error {
	if handle == nil {
		return errors.New("watch handler is required")
	}
	settle := opts.SettleDelay
	if settle <= 0 {
		settle = defaultSettleDelay
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("stat watch directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch target %s is not a directory", dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	logger.Info("watching for new videos", zap.String("dir", dir), zap.String("ext", ext), zap.Duration("settle_delay", settle))
	if opts.OnReady != nil {
		opts.OnReady()
	}

	pending := make(map[string]time.Time)
	handled := make(map[string]bool)

	tick := settle / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher stopped", zap.Int("pending", len(pending)))
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !MatchesExt(event.Name, ext) || handled[event.Name] {
				continue
			}
			switch {
			case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
				if _, seen := pending[event.Name]; !seen {
					logger.Info("new video detected", zap.String("path", event.Name))
				}
				pending[event.Name] = time.Now().Add(settle)
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				delete(pending, event.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			logger.Warn("watcher error", zap.Error(err))

		case now := <-ticker.C:
			for _, path := range settled(pending, now) {
				delete(pending, path)
				if ctx.Err() != nil {
					return nil
				}
				if !isRegularFile(path) {
					continue
				}
				// The handler extracts audio next to the source. With a .wav
				// extension that file would match and be picked up again.
				handled[path] = true
				handled[media.WaveformPath(path)] = true
				handle(ctx, path)
			}
		}
	}
}

// settled returns the pending paths whose deadline has passed, sorted.
func settled(pending map[string]time.Time, now time.Time) []string {
	var ready []string
	for path, deadline := range pending {
		if !now.Before(deadline) {
			ready = append(ready, path)
		}
	}
	sort.Strings(ready)
	return ready
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
