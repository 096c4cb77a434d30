package workerpool

import "errors"

// Returned by Pool operations. Callers match them with errors.Is.
var (
	ErrPoolNotStarted     = errors.New("workerpool: submit before start")
	ErrPoolStopped        = errors.New("workerpool: pool is draining or stopped")
	ErrPoolAlreadyStarted = errors.New("workerpool: start called twice")
	ErrQueueFull          = errors.New("workerpool: batch queue is full")
	ErrNilProcessor       = errors.New("workerpool: nil batch processor")
	ErrStopTimeout        = errors.New("workerpool: batches still in flight at stop deadline")
)
