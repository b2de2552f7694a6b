package realtime

import "sync"

// Bus fans simulator points out to subscribers. Publish never blocks: a
// subscriber that stops draining loses points rather than stalling the
// generators.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]chan Point
	next int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Point)}
}

// Subscribe registers a buffered subscriber. The returned cancel function
// removes the subscription and closes the channel; it is idempotent.
func (b *Bus) Subscribe(buffer int) (<-chan Point, func()) {
	if buffer < 1 {
		buffer = 16
	}
	ch := make(chan Point, buffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers a point to every subscriber with room in its buffer.
func (b *Bus) Publish(p Point) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- p:
		default:
		}
	}
}

// Subscribers returns the current subscription count.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
