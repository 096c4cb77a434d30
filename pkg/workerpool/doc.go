// Package workerpool provides a generic, thread-safe worker pool for
// concurrent task processing.
//
// A Pool runs a fixed number of goroutines that take work items of type T
// from a bounded queue and hand them to a processor function:
//
//	pool := workerpool.NewPool(4, 256, func(ctx context.Context, batch []message.Package) error {
//	    _, err := pipe.Process(ctx, batch)
//	    return err
//	})
//	if err := pool.Start(ctx); err != nil {
//	    return err
//	}
//	defer pool.Stop(5 * time.Second)
//
// Submit never blocks and reports ErrQueueFull under backpressure;
// SubmitWait blocks until there is room, the context ends, or the pool
// stops. Stop closes the queue and lets workers drain it within the timeout.
//
// Statistics are always tracked; Prometheus metrics are registered when
// WithMetricsRegistry is given a registry and a prefix.
package workerpool
