package event

import (
	"sync"
	"sync/atomic"
	"time"
)

// Bus is an in-memory fanout Sink.
//
// Publish never blocks: subscribers get buffered channels and a slow
// subscriber drops events rather than stalling the engines.
type Bus struct {
	mu   sync.RWMutex
	subs map[uint64]chan Event
	seq  atomic.Uint64
}

// NewBus returns an empty bus. It owns no goroutines.
func NewBus() *Bus {
	return &Bus{subs: map[uint64]chan Event{}}
}

// Publish implements Sink.
func (b *Bus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	// Send while holding the read lock so Unsubscribe cannot close a channel
	// underneath us.
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers a new subscriber. The returned function unsubscribes
// and closes the channel; calling it more than once is safe.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}
