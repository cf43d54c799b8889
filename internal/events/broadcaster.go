package events

import (
	"sync"
	"sync/atomic"
)

// Subscriber receives broadcast events.
type Subscriber chan Event

// subscriberBuffer is how far a slow subscriber may lag before events are
// dropped for it.
const subscriberBuffer = 64

// Broadcaster fans emitted events out to live subscribers, each with its own
// filter.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[Subscriber]func(Event) bool
	dropped     atomic.Int64
}

var broadcaster = &Broadcaster{
	subscribers: make(map[Subscriber]func(Event) bool),
}

// Subscribe registers a subscriber receiving the events accepted by match.
// A nil match receives everything.
func Subscribe(match func(Event) bool) Subscriber {
	ch := make(Subscriber, subscriberBuffer)
	broadcaster.mu.Lock()
	broadcaster.subscribers[ch] = match
	broadcaster.mu.Unlock()
	return ch
}

// Unsubscribe removes sub and closes it. Unknown subscribers are ignored, so
// it is safe after CloseAllSubscribers.
func Unsubscribe(sub Subscriber) {
	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()
	if _, ok := broadcaster.subscribers[sub]; !ok {
		return
	}
	delete(broadcaster.subscribers, sub)
	close(sub)
}

// broadcast never blocks Emit: a full subscriber misses the event.
func broadcast(e Event) {
	broadcaster.mu.RLock()
	defer broadcaster.mu.RUnlock()

	for sub, match := range broadcaster.subscribers {
		if match != nil && !match(e) {
			continue
		}
		select {
		case sub <- e:
		default:
			broadcaster.dropped.Add(1)
		}
	}
}

// CloseAllSubscribers removes and closes every subscriber. Used on shutdown.
func CloseAllSubscribers() {
	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()
	for sub := range broadcaster.subscribers {
		close(sub)
	}
	broadcaster.subscribers = make(map[Subscriber]func(Event) bool)
}

// SubscriberCount returns the current number of subscribers.
func SubscriberCount() int {
	broadcaster.mu.RLock()
	defer broadcaster.mu.RUnlock()
	return len(broadcaster.subscribers)
}

// DroppedCount returns how many deliveries were skipped for full subscribers.
func DroppedCount() int64 {
	return broadcaster.dropped.Load()
}

// Recent returns the last n buffered events accepted by match, oldest first.
// n <= 0 returns all of them.
func Recent(n int, match func(Event) bool) []Event {
	return buffer.Last(n, match)
}
