package hotreload

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Full-finger/Loquat-sub001/errors"
	"github.com/Full-finger/Loquat-sub001/metric"
	"github.com/Full-finger/Loquat-sub001/pkg/retry"
)

// LoadFunc loads the new version of an item.
type LoadFunc func(ctx context.Context) (*VersionData, error)

// Reloader runs reloads with retries and records each outcome in a History.
// It remembers the version currently in effect per item so that a
// successful reload records what it replaced.
type Reloader struct {
	history  *History
	detector *Detector
	retry    retry.Config
	logger   *slog.Logger
	metrics  *metric.Metrics

	mu      sync.Mutex
	current map[string]*VersionData
}

// ReloaderOption configures a Reloader.
type ReloaderOption func(*Reloader)

// WithRetry overrides the retry policy. The default retries transient
// failures only.
func WithRetry(cfg retry.Config) ReloaderOption {
	return func(r *Reloader) { r.retry = cfg }
}

// WithDetector enables ReloadIfChanged.
func WithDetector(d *Detector) ReloaderOption {
	return func(r *Reloader) { r.detector = d }
}

// WithLogger sets the Reloader's logger.
func WithLogger(logger *slog.Logger) ReloaderOption {
	return func(r *Reloader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics counts reloads by outcome.
func WithMetrics(registry *metric.MetricsRegistry) ReloaderOption {
	return func(r *Reloader) { r.metrics = registry.CoreMetrics() }
}

// NewReloader creates a Reloader writing to history.
func NewReloader(history *History, opts ...ReloaderOption) *Reloader {
	r := &Reloader{
		history: history,
		retry:   errors.DefaultRetryConfig().ToRetryConfig(),
		logger:  slog.Default(),
		current: make(map[string]*VersionData),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// History returns the backing history.
func (r *Reloader) History() *History {
	return r.history
}

// Current returns the version of name currently in effect.
func (r *Reloader) Current(name string) (*VersionData, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.current[name]
	return v, ok
}

// Reload runs load for name, retrying transient failures, and records the
// attempt. On success the returned entry's PreviousData is the version that
// was replaced.
func (r *Reloader) Reload(ctx context.Context, name, path string, load LoadFunc) (Entry, error) {
	loaded, err := retry.DoWithResult(ctx, r.retry, func() (*VersionData, error) {
		return load(ctx)
	})
	if err == nil && loaded == nil {
		err = errors.MissingRequired("Reloader", "Reload", "version data for "+name)
	}

	if err != nil {
		msg := err.Error()
		entry := r.history.RecordReload(name, path, false, &msg, nil)
		r.record(false)
		r.logger.Warn("reload failed", "item", name, "path", path, "entry_id", entry.ID, "error", err)
		return entry, errors.Wrap(err, "Reloader", "Reload", "load "+name)
	}

	r.mu.Lock()
	previous := r.current[name]
	r.current[name] = loaded
	r.mu.Unlock()

	entry := r.history.RecordReload(name, path, true, nil, previous)
	r.record(true)
	r.logger.Info("reloaded", "item", name, "path", path, "version", loaded.Version, "entry_id", entry.ID)
	return entry, nil
}

// ReloadIfChanged reloads only when the detector sees a change at path.
// The boolean reports whether a reload was attempted.
func (r *Reloader) ReloadIfChanged(ctx context.Context, name, path string, load LoadFunc) (Entry, bool, error) {
	if r.detector == nil {
		return Entry{}, false, errors.MissingRequired("Reloader", "ReloadIfChanged", "detector")
	}

	changed, err := r.detector.Changed(path)
	if err != nil {
		return Entry{}, false, err
	}
	if !changed {
		return Entry{}, false, nil
	}

	entry, err := r.Reload(ctx, name, path, load)
	if err != nil {
		// retry the change next time
		r.detector.Forget(path)
	}
	return entry, true, err
}

// Rollback restores the version recorded by the latest successful reload
// of name and returns it.
func (r *Reloader) Rollback(name string) (*VersionData, error) {
	previous, ok := r.history.RollbackData(name)
	if !ok {
		return nil, errors.MissingRequired("Reloader", "Rollback", "rollback data for "+name)
	}

	r.mu.Lock()
	r.current[name] = previous
	r.mu.Unlock()

	r.logger.Info("rolled back", "item", name, "version", previous.Version)
	return previous, nil
}

func (r *Reloader) record(success bool) {
	if r.metrics != nil {
		r.metrics.RecordHotReload(success)
	}
}
