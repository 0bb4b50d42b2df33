package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/dshills/luaterm/internal/logging"
)

// DefaultDebounce coalesces the burst of events editors produce on save.
const DefaultDebounce = 100 * time.Millisecond

// ReloadFunc receives the reloaded config, or the error that prevented it.
type ReloadFunc func(cfg *Config, err error)

// WatchOption configures Watch.
type WatchOption func(*watchOptions)

type watchOptions struct {
	debounce time.Duration
	log      *logrus.Entry
}

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		o.debounce = d
	}
}

// WithWatchLogger sets the logger.
func WithWatchLogger(entry *logrus.Entry) WatchOption {
	return func(o *watchOptions) {
		o.log = entry
	}
}

// Watch reloads the config at path whenever it changes and passes the
// result to fn. It blocks until ctx is cancelled.
//
// The parent directory is watched rather than the file, so saves that
// replace the file by rename are still seen.
func Watch(ctx context.Context, path string, fn ReloadFunc, opts ...WatchOption) error {
	o := watchOptions{debounce: DefaultDebounce, log: logging.Named("config")}
	for _, opt := range opts {
		opt(&o)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving config path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}
	o.log.WithField("path", abs).Debug("watching config")

	timer := time.NewTimer(o.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return ErrWatcherClosed
			}
			if filepath.Clean(ev.Name) != abs || ev.Op == fsnotify.Chmod {
				continue
			}
			timer.Reset(o.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return ErrWatcherClosed
			}
			o.log.WithError(err).Warn("config watcher error")

		case <-timer.C:
			cfg, err := Load(abs)
			if err != nil {
				o.log.WithError(err).Warn("config reload failed")
			} else {
				o.log.Info("config reloaded")
			}
			fn(cfg, err)
		}
	}
}
