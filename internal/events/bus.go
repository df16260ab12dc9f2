// Package events provides a fire-and-forget broadcast bus for pipeline
// progress events. Publishing never blocks: a subscriber that cannot keep
// up misses events instead of stalling the producer.
package events

import (
	"sync"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// DefaultBuffer is the per-subscriber channel buffer size.
const DefaultBuffer = 64

// Bus broadcasts events to all current subscribers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan domain.Event
	nextID int
	buffer int
}

// NewBus creates a bus with the default subscriber buffer.
func NewBus() *Bus {
	return &Bus{
		subs:   make(map[int]chan domain.Event),
		buffer: DefaultBuffer,
	}
}

// Subscribe registers a new subscriber and returns its event channel and
// an unsubscribe function. The channel is closed on unsubscribe.
func (b *Bus) Subscribe() (<-chan domain.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan domain.Event, b.buffer)
	b.subs[id] = ch

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if ch, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
	return ch, unsubscribe
}

// Publish broadcasts an event to all subscribers without blocking.
// Events are dropped for subscribers whose buffer is full.
func (b *Bus) Publish(event domain.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default: // slow consumer, drop
		}
	}
}

// Subscribers returns the current subscriber count.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
