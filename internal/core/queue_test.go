package core

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_CoalescesPerPath(t *testing.T) {
	t.Parallel()

	q := newChangeQueue()
	noop := func() {}

	assert.Equal(t, 1, q.Upsert("/r/a.txt", ChangeCreate, time.Hour, noop))
	assert.Equal(t, 1, q.Upsert("/r/a.txt", ChangeWrite, time.Hour, noop))
	assert.Equal(t, 1, q.Upsert("/r/a.txt", ChangeDelete, time.Hour, noop))
	assert.Equal(t, 2, q.Upsert("/r/b.txt", ChangeCreate, time.Hour, noop))

	batch := q.Drain()
	require.Len(t, batch, 2)
	assert.Equal(t, ChangeDelete, batch["/r/a.txt"].Kind, "last event wins")
	assert.Equal(t, ChangeCreate, batch["/r/b.txt"].Kind)
	assert.Equal(t, 0, q.Len(), "drain clears the live set")
}

func TestQueue_DebounceResetsOnEveryEvent(t *testing.T) {
	t.Parallel()

	q := newChangeQueue()
	var fired atomic.Int32
	firedAt := make(chan time.Time, 4)
	fire := func() {
		fired.Add(1)
		firedAt <- time.Now()
	}

	const delay = 150 * time.Millisecond

	q.Upsert("/r/a.txt", ChangeCreate, delay, fire)
	time.Sleep(delay / 2)
	assert.Equal(t, int32(0), fired.Load(), "must not fire before the quiet period")

	last := time.Now()
	q.Upsert("/r/a.txt", ChangeWrite, delay, fire)

	select {
	case at := <-firedAt:
		assert.GreaterOrEqual(t, at.Sub(last), delay, "timer must restart on a new event")
	case <-time.After(5 * time.Second):
		t.Fatal("debounce timer never fired")
	}

	time.Sleep(2 * delay)
	assert.Equal(t, int32(1), fired.Load(), "exactly one timer per queue")
}

func TestQueue_StopCancelsTimer(t *testing.T) {
	t.Parallel()

	q := newChangeQueue()
	var fired atomic.Int32

	q.Upsert("/r/a.txt", ChangeCreate, 50*time.Millisecond, func() { fired.Add(1) })
	q.Stop()

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
	assert.Equal(t, 0, q.Len())
}
