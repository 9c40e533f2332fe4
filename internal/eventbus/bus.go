package eventbus

import (
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/kazz187/taskgraph/internal/event"
)

// Bus fans committed events out to in-process subscribers. Publish never
// blocks; a subscriber whose buffer is full misses the event.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]chan *event.Event
	dropped     map[string]uint64
}

func New() *Bus {
	return &Bus{
		subscribers: make(map[string]chan *event.Event),
		dropped:     make(map[string]uint64),
	}
}

func (b *Bus) Subscribe(bufSize int) (string, <-chan *event.Event) {
	id := ulid.Make().String()
	ch := make(chan *event.Event, bufSize)
	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()
	return id, ch
}

func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
		delete(b.dropped, id)
	}
	b.mu.Unlock()
}

// Publish delivers events in order to every subscriber.
func (b *Bus) Publish(events ...*event.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		for _, e := range events {
			select {
			case ch <- e:
			default:
				// buffer full, drop event for this subscriber
				b.dropped[id]++
			}
		}
	}
}

// Dropped returns how many events subscriber id has missed.
func (b *Bus) Dropped(id string) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped[id]
}
