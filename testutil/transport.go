package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// MemoryTransport is an in-memory publish/subscribe transport with the same
// Publish/Subscribe signatures as natsclient.Client. Handlers run
// synchronously inside Publish.
type MemoryTransport struct {
	mu            sync.RWMutex
	published     map[string][][]byte
	subscriptions map[string][]func(context.Context, []byte)
	closed        bool
}

// NewMemoryTransport creates an empty transport.
func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{
		published:     make(map[string][][]byte),
		subscriptions: make(map[string][]func(context.Context, []byte)),
	}
}

// Publish records data on subject and delivers it to every subscriber.
func (t *MemoryTransport) Publish(ctx context.Context, subject string, data []byte) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return fmt.Errorf("transport is closed")
	}
	t.published[subject] = append(t.published[subject], data)
	handlers := append([]func(context.Context, []byte){}, t.subscriptions[subject]...)
	t.mu.Unlock()

	// handlers run outside the lock so they may publish
	for _, handler := range handlers {
		handler(ctx, data)
	}
	return nil
}

// Subscribe registers handler for subject.
func (t *MemoryTransport) Subscribe(ctx context.Context, subject string, handler func(context.Context, []byte)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("transport is closed")
	}
	t.subscriptions[subject] = append(t.subscriptions[subject], handler)
	return nil
}

// Messages returns a copy of what was published on subject.
func (t *MemoryTransport) Messages(subject string) [][]byte {
	t.mu.RLock()
	defer t.mu.RUnlock()
	msgs := t.published[subject]
	out := make([][]byte, len(msgs))
	copy(out, msgs)
	return out
}

// MessageCount returns the number of messages published on subject.
func (t *MemoryTransport) MessageCount(subject string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.published[subject])
}

// Close rejects further Publish and Subscribe calls.
func (t *MemoryTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// WaitForMessageCount polls until subject has at least count messages.
func WaitForMessageCount(t *testing.T, tr *MemoryTransport, subject string, count int, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if tr.MessageCount(subject) >= count {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %d messages on subject %s (got %d)", count, subject, tr.MessageCount(subject))
}
