// Package dedupe tracks assessment jobs that are queued or running so the same
// elder and date is not assessed twice concurrently.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

// DefaultMaxPending bounds the number of tracked keys.
const DefaultMaxPending = 50_000

// Tracker records in-flight job keys.
type Tracker interface {
	// Claim records key and reports whether the caller owns it. A false result
	// means a job with the same key is already pending.
	Claim(ctx context.Context, key string) bool

	// Release forgets key so the job can be scheduled again.
	Release(ctx context.Context, key string)

	// Pending returns the number of tracked keys.
	Pending() int
}

// memoryTracker is a bounded in-memory Tracker. When full, the oldest claim is
// evicted.
type memoryTracker struct {
	mu         sync.Mutex
	keys       map[string]*list.Element
	order      *list.List
	maxPending int
}

// NewMemoryTracker creates an in-memory tracker.
func NewMemoryTracker(opts ...Option) Tracker {
	t := &memoryTracker{
		keys:       make(map[string]*list.Element),
		order:      list.New(),
		maxPending: DefaultMaxPending,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *memoryTracker) Claim(_ context.Context, key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.keys[key]; ok {
		return false
	}
	if t.maxPending > 0 && len(t.keys) >= t.maxPending {
		oldest := t.order.Front()
		t.order.Remove(oldest)
		delete(t.keys, oldest.Value.(string))
	}
	t.keys[key] = t.order.PushBack(key)
	return true
}

func (t *memoryTracker) Release(_ context.Context, key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.keys[key]; ok {
		t.order.Remove(e)
		delete(t.keys, key)
	}
}

func (t *memoryTracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.keys)
}
