package events

import (
	"context"
	"sync"
	"sync/atomic"

	"condo/internal/condominium/models"
)

// Bus is an in-process publisher. Subscribers receive events on buffered
// channels; a subscriber that falls behind loses events rather than blocking
// the publisher.
type Bus struct {
	mu      sync.RWMutex
	subs    map[int]chan models.Event
	next    int
	dropped atomic.Int64
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan models.Event)}
}

// Subscribe registers a listener. The returned cancel func closes the channel.
func (b *Bus) Subscribe(buffer int) (<-chan models.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan models.Event, buffer)
	key := b.next
	b.next++
	b.subs[key] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, key)
			close(ch)
		})
	}
}

func (b *Bus) Publish(ctx context.Context, events ...models.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, e := range events {
		for _, ch := range b.subs {
			select {
			case ch <- e:
			default:
				b.dropped.Add(1)
			}
		}
	}
	return nil
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}
