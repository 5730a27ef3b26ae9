package collections

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce collapses the burst of events an editor save produces.
const DefaultDebounce = 200 * time.Millisecond

// WatchOption configures Watch.
type WatchOption func(*watchConfig)

type watchConfig struct {
	debounce time.Duration
	log      *zap.Logger
}

// WithDebounce sets the quiet period after the last event before reloading.
func WithDebounce(d time.Duration) WatchOption { return func(c *watchConfig) { c.debounce = d } }

// WithWatchLogger sets the logger.
func WithWatchLogger(l *zap.Logger) WatchOption {
	return func(c *watchConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// Watch loads path, hands the result to fn, then reloads and calls fn again
// whenever the file changes. It blocks until ctx is done. A load error is
// passed to fn and watching continues.
//
// The parent directory is watched so that editors replacing the file by
// rename are followed.
func Watch(ctx context.Context, path string, fn func(*Bundle, error), opts ...WatchOption) error {
	cfg := watchConfig{debounce: DefaultDebounce, log: zap.NewNop()}
	for _, o := range opts {
		o(&cfg)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("collections: watch %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("collections: watch %s: %w", path, err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("collections: watch %s: %w", path, err)
	}

	fn(LoadFile(abs))

	timer := time.NewTimer(cfg.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Create|fsnotify.Write|fsnotify.Rename) {
				continue
			}
			cfg.log.Debug("collections file changed", zap.String("path", abs), zap.String("op", ev.Op.String()))
			timer.Reset(cfg.debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			cfg.log.Warn("watch error", zap.String("path", abs), zap.Error(err))
		case <-timer.C:
			b, err := LoadFile(abs)
			if err != nil {
				cfg.log.Error("reload failed", zap.String("path", abs), zap.Error(err))
			} else {
				cfg.log.Info("collections reloaded", zap.String("path", abs), zap.Int("collections", len(b.Collections)))
			}
			fn(b, err)
		}
	}
}
