package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Full-finger/Loquat-sub001/errors"
	"github.com/Full-finger/Loquat-sub001/health"
	"github.com/Full-finger/Loquat-sub001/message"
	"github.com/Full-finger/Loquat-sub001/metric"
	"github.com/Full-finger/Loquat-sub001/pool"
	"github.com/Full-finger/Loquat-sub001/worker"
)

// Pipeline holds exactly one pool per stage and threads batches through
// them in stage order.
type Pipeline struct {
	name    string
	pools   []pool.Pool
	logger  *slog.Logger
	started time.Time
}

// Option configures a Pipeline.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	registry *metric.MetricsRegistry
	pools    map[pool.Type]pool.Pool
}

// WithLogger sets the logger handed to every pool.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics records pool activity in registry.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(o *options) { o.registry = registry }
}

// WithPool replaces the StandardPool for p.Type() with p.
func WithPool(p pool.Pool) Option {
	return func(o *options) { o.pools[p.Type()] = p }
}

// New builds a pipeline of nine StandardPools named "<name>.<stage>".
func New(name string, opts ...Option) *Pipeline {
	o := &options{
		logger: slog.Default(),
		pools:  make(map[pool.Type]pool.Pool),
	}
	for _, opt := range opts {
		opt(o)
	}

	poolOpts := []pool.Option{pool.WithLogger(o.logger)}
	if o.registry != nil {
		poolOpts = append(poolOpts, pool.WithMetrics(o.registry))
	}

	p := &Pipeline{
		name:    name,
		logger:  o.logger.With("pipeline", name),
		started: time.Now(),
	}
	for _, t := range pool.Types() {
		if custom, ok := o.pools[t]; ok {
			p.pools = append(p.pools, custom)
			continue
		}
		p.pools = append(p.pools, pool.NewStandardPool(fmt.Sprintf("%s.%s", name, t), t, poolOpts...))
	}
	return p
}

// Name returns the pipeline name.
func (p *Pipeline) Name() string { return p.name }

// Pool returns the pool serving stage t.
func (p *Pipeline) Pool(t pool.Type) (pool.Pool, error) {
	if !t.Valid() {
		return nil, errors.InvalidFormat("Pipeline", "Pool", fmt.Sprintf("invalid pool type %d", int(t)))
	}
	return p.pools[t], nil
}

// Pools returns all pools in stage order.
func (p *Pipeline) Pools() []pool.Pool {
	out := make([]pool.Pool, len(p.pools))
	copy(out, p.pools)
	return out
}

// Register adds a framework-internal worker to any stage.
func (p *Pipeline) Register(t pool.Type, reg worker.Registration) error {
	target, err := p.Pool(t)
	if err != nil {
		return err
	}
	return target.Register(reg)
}

// RegisterThirdParty adds a plugin worker. Only stages that allow third-party
// workers accept it.
func (p *Pipeline) RegisterThirdParty(t pool.Type, reg worker.Registration) error {
	if !t.AllowsThirdParty() {
		return errors.InvalidFormat("Pipeline", "RegisterThirdParty",
			fmt.Sprintf("pool %s does not accept third-party workers", t))
	}
	return p.Register(t, reg)
}

// Unregister removes the named worker from stage t.
func (p *Pipeline) Unregister(t pool.Type, name string) error {
	target, err := p.Pool(t)
	if err != nil {
		return err
	}
	return target.Unregister(name)
}

// Process runs batch through every stage in order and returns what the last
// stage released. An empty stage passes its input through. The only error
// is cancellation of ctx, which abandons the batch.
func (p *Pipeline) Process(ctx context.Context, batch []message.Package) ([]message.Package, error) {
	current := batch
	for _, stage := range p.pools {
		if len(current) == 0 {
			return nil, nil
		}
		out, err := stage.Process(ctx, current)
		if err != nil {
			return nil, errors.Wrap(err, "Pipeline", "Process", "stage "+stage.Type().String())
		}
		current = out
	}
	return current, nil
}

type statsReporter interface {
	Stats() pool.Stats
}

// Health reports one sub-status per pool. A pool that dropped packages for
// re-matching their producer is degraded, and so is the pipeline.
func (p *Pipeline) Health() health.Status {
	subs := make([]health.Status, 0, len(p.pools))
	for _, stage := range p.pools {
		subs = append(subs, poolHealth(stage, p.started))
	}
	return health.Aggregate(p.name, subs)
}

func poolHealth(stage pool.Pool, started time.Time) health.Status {
	msg := fmt.Sprintf("%d workers", stage.WorkerCount())
	reporter, ok := stage.(statsReporter)
	if !ok {
		return health.NewHealthy(stage.ID(), msg)
	}

	stats := reporter.Stats()
	status := health.NewHealthy(stage.ID(), msg)
	if stats.DeadLoopDrops > 0 {
		status = health.NewDegraded(stage.ID(),
			fmt.Sprintf("%s, %d dead-loop drops", msg, stats.DeadLoopDrops))
	}
	return status.WithMetrics(&health.Metrics{
		Uptime:            time.Since(started),
		ErrorCount:        int(stats.DeadLoopDrops),
		MessagesProcessed: stats.Released,
	})
}
