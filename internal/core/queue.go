package core

import (
	"sync"
	"time"
)

// pendingChange is one coalesced queue entry: the kind and timestamp of the
// most recent event observed for a path.
type pendingChange struct {
	Kind ChangeKind
	At   time.Time
}

// changeQueue is the per-pair debounced multiset of pending file events.
// At most one entry exists per path; a later event overwrites an earlier
// unprocessed one. Exactly one debounce timer is armed at a time and every
// upsert resets it, so processing only starts after a quiet period.
type changeQueue struct {
	mu      sync.Mutex
	pending map[string]pendingChange
	timer   *time.Timer
}

func newChangeQueue() *changeQueue {
	return &changeQueue{pending: make(map[string]pendingChange)}
}

// Upsert records the latest event for path and (re)arms the debounce timer
// to run fire after delay of silence. Returns the live queue size.
func (q *changeQueue) Upsert(path string, kind ChangeKind, delay time.Duration, fire func()) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending[path] = pendingChange{Kind: kind, At: time.Now()}
	if q.timer != nil {
		q.timer.Stop()
	}
	q.timer = time.AfterFunc(delay, fire)
	return len(q.pending)
}

// Drain atomically captures the pending set and clears the live one, so
// events arriving during batch processing start a fresh accumulation cycle.
func (q *changeQueue) Drain() map[string]pendingChange {
	q.mu.Lock()
	defer q.mu.Unlock()

	batch := q.pending
	q.pending = make(map[string]pendingChange)
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	return batch
}

// Len returns the live queue size.
func (q *changeQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Stop cancels the pending timer and discards all entries. An in-flight
// batch already past its Drain is unaffected.
func (q *changeQueue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.pending = make(map[string]pendingChange)
}
