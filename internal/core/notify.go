package core

import (
	"sync"
	"time"
)

// PairSnapshot is the typed notification payload published after every
// mutation to a pair's configuration, runtime status or queue depth.
// Subscribers receive state, not a bare "something changed" signal.
type PairSnapshot struct {
	ID           string
	Name         string
	Status       Status
	LastSync     time.Time
	LastError    string
	FilesInQueue int
}

// notifier fans snapshots out to subscribers. Delivery is at-least-once in
// spirit but lossy under pressure: a subscriber that stops draining its
// channel misses updates rather than blocking the engine.
type notifier struct {
	mu   sync.Mutex
	subs map[int]chan PairSnapshot
	next int
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[int]chan PairSnapshot)}
}

// Subscribe returns a buffered snapshot channel and an unsubscribe func.
func (n *notifier) Subscribe() (<-chan PairSnapshot, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.next
	n.next++
	ch := make(chan PairSnapshot, 32)
	n.subs[id] = ch

	return ch, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if c, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(c)
		}
	}
}

func (n *notifier) publish(s PairSnapshot) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.subs {
		select {
		case ch <- s:
		default:
		}
	}
}
