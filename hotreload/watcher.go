package hotreload

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Full-finger/Loquat-sub001/errors"
)

// DefaultDebounce is how long a Watcher waits for file events to settle.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads one item through a Reloader whenever its file changes on
// disk. The parent directory is watched so that editors replacing the file
// by rename are still seen.
type Watcher struct {
	reloader *Reloader
	name     string
	path     string
	abs      string
	load     LoadFunc
	debounce time.Duration
	logger   *slog.Logger
	onReload func(Entry, error)
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the settle delay between the last event and the reload.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatcherLogger sets the Watcher's logger.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithReloadCallback is called after every attempted reload.
func WithReloadCallback(fn func(Entry, error)) WatcherOption {
	return func(w *Watcher) { w.onReload = fn }
}

// NewWatcher creates a Watcher. The Reloader needs a Detector: events only
// trigger a reload when the content actually changed.
func NewWatcher(r *Reloader, name, path string, load LoadFunc, opts ...WatcherOption) (*Watcher, error) {
	if r == nil || r.detector == nil {
		return nil, errors.MissingRequired("Watcher", "NewWatcher", "reloader with detector")
	}
	if name == "" {
		return nil, errors.MissingRequired("Watcher", "NewWatcher", "name")
	}
	if path == "" {
		return nil, errors.MissingRequired("Watcher", "NewWatcher", "path")
	}
	if load == nil {
		return nil, errors.MissingRequired("Watcher", "NewWatcher", "load")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.IO(err, "Watcher", "NewWatcher", "resolve "+path)
	}

	w := &Watcher{
		reloader: r,
		name:     name,
		path:     path,
		abs:      abs,
		load:     load,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "hotreload.watcher", "item", name, "path", abs)
	return w, nil
}

// Run watches until ctx is done. It returns an error only when the watch
// cannot be set up.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.IO(err, "Watcher", "Run", "create watcher")
	}
	defer fsw.Close()

	dir := filepath.Dir(w.abs)
	if err := fsw.Add(dir); err != nil {
		return errors.IO(err, "Watcher", "Run", "watch "+dir)
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.abs || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			w.logger.Debug("File event", "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.reload(ctx)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("File watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	entry, attempted, err := w.reloader.ReloadIfChanged(ctx, w.name, w.path, w.load)
	if !attempted && err == nil {
		return
	}
	if err != nil {
		w.logger.Warn("Reload after file change failed", "error", err)
	}
	if w.onReload != nil {
		w.onReload(entry, err)
	}
}
