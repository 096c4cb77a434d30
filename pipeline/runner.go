package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/Full-finger/Loquat-sub001/errors"
	"github.com/Full-finger/Loquat-sub001/message"
	"github.com/Full-finger/Loquat-sub001/metric"
	"github.com/Full-finger/Loquat-sub001/pkg/workerpool"
)

// Sink receives the packages a pipeline released.
type Sink interface {
	Deliver(ctx context.Context, pkgs []message.Package) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, pkgs []message.Package) error

// Deliver implements Sink.
func (f SinkFunc) Deliver(ctx context.Context, pkgs []message.Package) error {
	return f(ctx, pkgs)
}

// RunnerConfig sizes the Runner's goroutine pool.
type RunnerConfig struct {
	Workers   int
	QueueSize int
}

// Runner feeds batches to a Pipeline from a goroutine pool and hands the
// released packages to a Sink. Each batch still goes through the stages
// sequentially; concurrency is across batches only, and pools keep any one
// worker to a single package at a time. With more than one goroutine the
// Sink sees batches in completion order.
type Runner struct {
	pipeline *Pipeline
	sink     Sink
	pool     *workerpool.Pool[[]message.Package]
	logger   *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*runnerOptions)

type runnerOptions struct {
	logger   *slog.Logger
	registry *metric.MetricsRegistry
}

// WithRunnerLogger sets the Runner's logger.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(o *runnerOptions) { o.logger = logger }
}

// WithRunnerMetrics registers queue metrics under "<pipeline>_runner".
func WithRunnerMetrics(registry *metric.MetricsRegistry) RunnerOption {
	return func(o *runnerOptions) { o.registry = registry }
}

// NewRunner creates a Runner. Empty released sets are not delivered.
func NewRunner(p *Pipeline, sink Sink, cfg RunnerConfig, opts ...RunnerOption) *Runner {
	o := &runnerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	r := &Runner{
		pipeline: p,
		sink:     sink,
		logger:   o.logger.With("pipeline", p.Name()),
	}

	poolOpts := []workerpool.Option[[]message.Package]{
		workerpool.WithLogger[[]message.Package](r.logger),
	}
	if o.registry != nil {
		poolOpts = append(poolOpts,
			workerpool.WithMetricsRegistry[[]message.Package](o.registry, metricPrefix(p.Name())))
	}
	r.pool = workerpool.NewPool(cfg.Workers, cfg.QueueSize, r.run, poolOpts...)
	return r
}

func metricPrefix(name string) string {
	b := []byte("loquat_" + name + "_runner")
	for i, c := range b {
		ok := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
		if !ok {
			b[i] = '_'
		}
	}
	return string(b)
}

func (r *Runner) run(ctx context.Context, batch []message.Package) error {
	released, err := r.pipeline.Process(ctx, batch)
	if err != nil {
		return err
	}
	if len(released) == 0 {
		return nil
	}
	if err := r.sink.Deliver(ctx, released); err != nil {
		return errors.Wrap(err, "Runner", "run", "deliver released packages")
	}
	return nil
}

// Start launches the goroutine pool.
func (r *Runner) Start(ctx context.Context) error {
	if err := r.pool.Start(ctx); err != nil {
		return errors.Wrap(err, "Runner", "Start", "start worker pool")
	}
	r.logger.Info("pipeline runner started", "workers", r.pool.Stats().Workers)
	return nil
}

// Submit enqueues batch without blocking.
func (r *Runner) Submit(batch []message.Package) error {
	return r.pool.Submit(batch)
}

// SubmitWait enqueues batch, waiting for queue space.
func (r *Runner) SubmitWait(ctx context.Context, batch []message.Package) error {
	return r.pool.SubmitWait(ctx, batch)
}

// Stop drains queued batches within timeout.
func (r *Runner) Stop(timeout time.Duration) error {
	if err := r.pool.Stop(timeout); err != nil {
		return errors.Wrap(err, "Runner", "Stop", "drain worker pool")
	}
	stats := r.pool.Stats()
	r.logger.Info("pipeline runner stopped",
		"processed", stats.Processed,
		"failed", stats.Failed,
		"dropped", stats.Dropped)
	return nil
}

// Stats returns the goroutine pool statistics.
func (r *Runner) Stats() workerpool.Stats {
	return r.pool.Stats()
}
