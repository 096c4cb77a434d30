package pool

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Full-finger/Loquat-sub001/errors"
	"github.com/Full-finger/Loquat-sub001/message"
	"github.com/Full-finger/Loquat-sub001/metric"
	"github.com/Full-finger/Loquat-sub001/worker"
)

// StandardPool is the default Pool implementation.
//
// Registry mutation takes the write lock; each dispatch sweep holds the read
// lock, so the worker set never changes under an in-flight sweep. Workers
// must therefore not call back into their own pool from inside HandleBatch:
// neither mutation nor locked reads such as WorkerNames or Workers, since a
// read lock taken again while a writer waits deadlocks. IsOutputSafe reads a
// lock-free snapshot of the worker set and is safe to call from a worker.
//
// Each worker is gated by its own mutex, so HandleBatch on one worker never
// overlaps itself even when several batches are dispatched at once.
type StandardPool struct {
	id  string
	typ Type

	mu      sync.RWMutex
	workers []worker.Registration // ascending priority
	index   map[string]int
	gates   map[string]*sync.Mutex
	view    atomic.Pointer[[]worker.Registration]

	logger  *slog.Logger
	metrics *metric.Metrics

	received atomic.Int64
	released atomic.Int64
	deadLoop atomic.Int64
	consumed atomic.Int64
	sweeps   atomic.Int64
}

// Option configures a StandardPool.
type Option func(*StandardPool)

// WithLogger sets the logger that receives dead-loop reports.
func WithLogger(logger *slog.Logger) Option {
	return func(p *StandardPool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics records pool activity in the registry's core metrics.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(p *StandardPool) {
		p.metrics = registry.CoreMetrics()
	}
}

// NewStandardPool creates an empty pool.
func NewStandardPool(id string, typ Type, opts ...Option) *StandardPool {
	p := &StandardPool{
		id:     id,
		typ:    typ,
		index:  make(map[string]int),
		gates:  make(map[string]*sync.Mutex),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.view.Store(&[]worker.Registration{})
	p.logger = p.logger.With("pool", id)
	return p
}

// ID returns the pool identifier.
func (p *StandardPool) ID() string { return p.id }

// Type returns the stage this pool serves.
func (p *StandardPool) Type() Type { return p.typ }

// Register adds a worker. Names and priorities must both be unique within
// the pool.
func (p *StandardPool) Register(reg worker.Registration) error {
	if reg.Worker == nil {
		return errors.MissingRequired("StandardPool", "Register", "worker")
	}
	name := reg.Worker.Name()
	if name == "" {
		return errors.InvalidFormat("StandardPool", "Register", "worker name must not be empty")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.index[name]; exists {
		return errors.InvalidFormat("StandardPool", "Register",
			fmt.Sprintf("duplicate worker name %q in pool %s", name, p.id))
	}
	if holder, taken := p.priorityHolder(reg.Priority); taken {
		return errors.InvalidFormat("StandardPool", "Register",
			fmt.Sprintf("duplicate priority %d in pool %s (held by %q)", reg.Priority, p.id, holder))
	}

	p.workers = append(p.workers, reg)
	p.gates[name] = new(sync.Mutex)
	p.reindex()

	p.logger.Debug("worker registered",
		"worker_name", name,
		"worker_type", reg.Worker.Type().String(),
		"priority", reg.Priority,
		"rule", reg.Rule.String())
	return nil
}

// Unregister removes the named worker.
func (p *StandardPool) Unregister(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	i, ok := p.index[name]
	if !ok {
		return errors.MissingRequired("StandardPool", "Unregister",
			fmt.Sprintf("worker %q in pool %s", name, p.id))
	}

	p.workers = slices.Delete(p.workers, i, i+1)
	delete(p.gates, name)
	p.reindex()

	p.logger.Debug("worker unregistered", "worker_name", name)
	return nil
}

// SetWorkerPriority moves the named worker to a new priority.
func (p *StandardPool) SetWorkerPriority(name string, priority uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	i, ok := p.index[name]
	if !ok {
		return errors.MissingRequired("StandardPool", "SetWorkerPriority",
			fmt.Sprintf("worker %q in pool %s", name, p.id))
	}
	if holder, taken := p.priorityHolder(priority); taken && holder != name {
		return errors.InvalidFormat("StandardPool", "SetWorkerPriority",
			fmt.Sprintf("duplicate priority %d in pool %s (held by %q)", priority, p.id, holder))
	}

	p.workers[i].Priority = priority
	p.reindex()
	return nil
}

// priorityHolder must be called with p.mu held.
func (p *StandardPool) priorityHolder(priority uint32) (string, bool) {
	for _, reg := range p.workers {
		if reg.Priority == priority {
			return reg.Name(), true
		}
	}
	return "", false
}

// reindex re-sorts by priority and rebuilds the name index. Must be called
// with p.mu held for writing.
func (p *StandardPool) reindex() {
	slices.SortFunc(p.workers, func(a, b worker.Registration) int {
		switch {
		case a.Priority < b.Priority:
			return -1
		case a.Priority > b.Priority:
			return 1
		default:
			return 0
		}
	})
	clear(p.index)
	for i, reg := range p.workers {
		p.index[reg.Name()] = i
	}
	view := slices.Clone(p.workers)
	p.view.Store(&view)
	if p.metrics != nil {
		p.metrics.RecordWorkerCount(p.id, len(p.workers))
	}
}

// WorkerCount returns the number of registered workers.
func (p *StandardPool) WorkerCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.workers)
}

// WorkerNames returns worker names in priority order.
func (p *StandardPool) WorkerNames() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, len(p.workers))
	for i, reg := range p.workers {
		names[i] = reg.Name()
	}
	return names
}

// HasWorker reports whether name is registered.
func (p *StandardPool) HasWorker(name string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.index[name]
	return ok
}

// Workers returns a snapshot of the registrations in priority order.
func (p *StandardPool) Workers() []WorkerInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()

	infos := make([]WorkerInfo, len(p.workers))
	for i, reg := range p.workers {
		infos[i] = WorkerInfo{
			Name:     reg.Name(),
			Type:     reg.Worker.Type(),
			Rule:     reg.Rule.String(),
			Priority: reg.Priority,
		}
	}
	return infos
}

// IsOutputSafe reports whether no worker in the pool matches any target
// site of pkg.
func (p *StandardPool) IsOutputSafe(pkg message.Package) bool {
	for _, reg := range *p.view.Load() {
		if !worker.IsOutputSafe(reg.Worker, pkg) {
			return false
		}
	}
	return true
}

// Stats returns the pool's lifetime counters.
func (p *StandardPool) Stats() Stats {
	return Stats{
		Received:      p.received.Load(),
		Released:      p.released.Load(),
		DeadLoopDrops: p.deadLoop.Load(),
		Consumed:      p.consumed.Load(),
		Sweeps:        p.sweeps.Load(),
	}
}

// Process runs batch through the dispatch loop until no package remains in
// the pool. Each sweep hands every package to the first matching worker in
// priority order. Released and unmatched packages leave the pool; Modify
// outputs re-enter the next sweep unless they would re-match the worker that
// produced them, in which case they are dropped and logged.
//
// Cancellation is checked between packages; the batch is abandoned and the
// context error returned. A worker call already in flight runs to completion.
func (p *StandardPool) Process(ctx context.Context, batch []message.Package) ([]message.Package, error) {
	start := time.Now()
	p.received.Add(int64(len(batch)))
	if p.metrics != nil {
		p.metrics.RecordReceived(p.id, len(batch))
	}

	current := batch
	var released []message.Package

	for len(current) > 0 {
		next, out, err := p.sweep(ctx, current)
		released = append(released, out...)
		if err != nil {
			return nil, errors.Wrap(err, "StandardPool", "Process", "dispatch "+p.id)
		}
		current = next
	}

	p.released.Add(int64(len(released)))
	if p.metrics != nil {
		p.metrics.RecordReleased(p.id, len(released))
		p.metrics.RecordDispatchDuration(p.id, time.Since(start))
	}
	return released, nil
}

// sweep performs one pass over current under the read lock.
func (p *StandardPool) sweep(ctx context.Context, current []message.Package) (next, released []message.Package, err error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	p.sweeps.Add(1)

	for _, pkg := range current {
		if err := ctx.Err(); err != nil {
			return nil, released, err
		}

		reg, ok := p.firstMatch(pkg)
		if !ok {
			released = append(released, pkg)
			continue
		}

		result := p.invoke(ctx, reg, pkg)
		if p.metrics != nil {
			p.metrics.RecordInvocation(p.id, reg.Name(), result.String())
		}

		if result.IsRelease() {
			released = append(released, pkg)
			continue
		}

		p.consumed.Add(1)
		if p.metrics != nil {
			p.metrics.RecordDropped(p.id, metric.DropConsumed)
		}
		for _, out := range result.Packages() {
			if worker.IsOutputSafe(reg.Worker, out) {
				next = append(next, out)
				continue
			}
			p.deadLoop.Add(1)
			if p.metrics != nil {
				p.metrics.RecordDropped(p.id, metric.DropDeadLoop)
			}
			p.logger.Error("dead loop detected: worker output matches the worker itself, package dropped",
				"worker_name", reg.Name(),
				"package_id", out.ID(),
				"package_target_sites", message.SiteStrings(out.TargetSites()))
		}
	}
	return next, released, nil
}

// invoke runs the worker on a single package under its gate. Must be called
// with p.mu held.
func (p *StandardPool) invoke(ctx context.Context, reg worker.Registration, pkg message.Package) worker.Result {
	gate := p.gates[reg.Name()]
	gate.Lock()
	defer gate.Unlock()
	return reg.Worker.HandleBatch(ctx, []message.Package{pkg})
}

// firstMatch must be called with p.mu held.
func (p *StandardPool) firstMatch(pkg message.Package) (worker.Registration, bool) {
	sites := pkg.TargetSites()
	for _, reg := range p.workers {
		if reg.Matches(sites) {
			return reg, true
		}
	}
	return worker.Registration{}, false
}
