package progress

import (
	"context"
	"sync"

	"github.com/lyallcooper/hashmaker/internal/types"
)

// Source is a named event channel that can be subscribed to. Subscribe may
// block; it must stop early and return ctx.Err() when ctx is cancelled.
type Source interface {
	Subscribe(ctx context.Context, channel string, handler func(types.ProgressPayload)) (func(), error)
}

// Bus is the process-wide event channel. The engine side publishes to it and
// consumers subscribe to it.
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[string]map[uint64]func(types.ProgressPayload)
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[string]map[uint64]func(types.ProgressPayload))}
}

// Subscribe registers handler on channel.
func (b *Bus) Subscribe(ctx context.Context, channel string, handler func(types.ProgressPayload)) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.handlers[channel] == nil {
		b.handlers[channel] = make(map[uint64]func(types.ProgressPayload))
	}
	b.handlers[channel][id] = handler
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.handlers[channel], id)
			if len(b.handlers[channel]) == 0 {
				delete(b.handlers, channel)
			}
		})
	}, nil
}

// Publish delivers p to every handler on channel. Handlers run on the
// caller's goroutine without the lock held.
func (b *Bus) Publish(channel string, p types.ProgressPayload) {
	b.mu.RLock()
	handlers := make([]func(types.ProgressPayload), 0, len(b.handlers[channel]))
	for _, h := range b.handlers[channel] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(p)
	}
}

// Emit publishes p on the progress channel.
func (b *Bus) Emit(p types.ProgressPayload) {
	b.Publish(Channel, p)
}

// Subscribers returns the number of handlers on channel.
func (b *Bus) Subscribers(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[channel])
}
