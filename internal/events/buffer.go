package events

import "sync"

// RingBuffer keeps the most recent events in emission order.
type RingBuffer struct {
	mu    sync.RWMutex
	slots []Event
	head  int // index of the oldest event
	n     int
}

func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{slots: make([]Event, size)}
}

func (rb *RingBuffer) Add(e Event) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.n < len(rb.slots) {
		rb.slots[(rb.head+rb.n)%len(rb.slots)] = e
		rb.n++
		return
	}
	rb.slots[rb.head] = e
	rb.head = (rb.head + 1) % len(rb.slots)
}

// Snapshot returns every buffered event, oldest first.
func (rb *RingBuffer) Snapshot() []Event {
	return rb.Last(0, nil)
}

// Last returns up to n of the newest events accepted by match, oldest
// first. n <= 0 means no limit; a nil match accepts everything.
func (rb *RingBuffer) Last(n int, match func(Event) bool) []Event {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	var rev []Event
	for i := rb.n - 1; i >= 0; i-- {
		if n > 0 && len(rev) == n {
			break
		}
		e := rb.slots[(rb.head+i)%len(rb.slots)]
		if match == nil || match(e) {
			rev = append(rev, e)
		}
	}
	out := make([]Event, len(rev))
	for i, e := range rev {
		out[len(rev)-1-i] = e
	}
	return out
}

// Clear drops every buffered event.
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	clear(rb.slots)
	rb.head, rb.n = 0, 0
}
