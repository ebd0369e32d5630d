package queue

import (
	"sync"

	"github.com/gerrit-ai-review/gerrit-notifier/internal/router"
)

// Batch is the pending messages of one destination, in enqueue order
type Batch struct {
	Destination router.Destination
	Messages    []string
}

// Snapshot is the content of a drained buffer, destinations in the order
// they first received a message during the window.
type Snapshot []Batch

// Len returns the total number of messages in the snapshot
func (s Snapshot) Len() int {
	n := 0
	for _, b := range s {
		n += len(b.Messages)
	}
	return n
}

// Counts returns the number of messages per destination
func (s Snapshot) Counts() map[string]int {
	out := make(map[string]int, len(s))
	for _, b := range s {
		out[b.Destination.String()] += len(b.Messages)
	}
	return out
}

// Buffer collects outbound messages between flushes.
//
// Enqueue and Drain serialize on one mutex. Drain swaps the whole content
// out in one step, so a concurrent Enqueue lands either in the returned
// snapshot or in the next one.
type Buffer struct {
	mu      sync.Mutex
	pending map[router.Destination][]string
	order   []router.Destination
}

// NewBuffer creates an empty buffer
func NewBuffer() *Buffer {
	return &Buffer{
		pending: make(map[router.Destination][]string),
	}
}

// Enqueue appends msg to the destination's pending list
func (b *Buffer) Enqueue(dest router.Destination, msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.pending[dest]; !ok {
		b.order = append(b.order, dest)
	}
	b.pending[dest] = append(b.pending[dest], msg)
	messagesEnqueued.Inc()
	bufferPending.Inc()
}

// Drain returns everything pending and leaves the buffer empty
func (b *Buffer) Drain() Snapshot {
	b.mu.Lock()
	pending, order := b.pending, b.order
	b.pending = make(map[router.Destination][]string)
	b.order = nil
	bufferPending.Set(0)
	b.mu.Unlock()

	if len(order) == 0 {
		return nil
	}

	snap := make(Snapshot, 0, len(order))
	for _, dest := range order {
		snap = append(snap, Batch{Destination: dest, Messages: pending[dest]})
	}
	return snap
}

// Len returns the number of pending messages
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for _, msgs := range b.pending {
		n += len(msgs)
	}
	return n
}
