package pool

import (
	"context"

	"github.com/Full-finger/Loquat-sub001/message"
	"github.com/Full-finger/Loquat-sub001/worker"
)

// Pool is one pipeline stage: a priority-ordered set of worker registrations
// and the dispatch loop that runs a batch through them to fixpoint.
type Pool interface {
	ID() string
	Type() Type

	Register(reg worker.Registration) error
	Unregister(name string) error
	SetWorkerPriority(name string, priority uint32) error

	WorkerCount() int
	WorkerNames() []string
	HasWorker(name string) bool
	Workers() []WorkerInfo

	// IsOutputSafe reports whether no worker in the pool would match pkg.
	IsOutputSafe(pkg message.Package) bool

	// Process runs batch to fixpoint and returns the released packages.
	Process(ctx context.Context, batch []message.Package) ([]message.Package, error)
}

// WorkerInfo is a read-only snapshot of one registration.
type WorkerInfo struct {
	Name     string      `json:"name"`
	Type     worker.Type `json:"type"`
	Rule     string      `json:"rule"`
	Priority uint32      `json:"priority"`
}

// Stats is a snapshot of a pool's lifetime counters.
type Stats struct {
	Received      int64 `json:"received"`
	Released      int64 `json:"released"`
	DeadLoopDrops int64 `json:"dead_loop_drops"`
	Consumed      int64 `json:"consumed"`
	Sweeps        int64 `json:"sweeps"`
}
