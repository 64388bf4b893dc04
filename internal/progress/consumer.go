package progress

import (
	"context"
	"errors"
	"sync"

	"github.com/lyallcooper/hashmaker/internal/logging"
	"github.com/lyallcooper/hashmaker/internal/types"
)

// ErrNoSource is reported by a Mount given neither a window nor a global source.
var ErrNoSource = errors.New("no progress source")

// subscriber holds the latest snapshot not yet read by a listener.
type subscriber struct {
	mu     sync.Mutex
	ch     chan Snapshot
	closed bool
}

func (sub *subscriber) close() {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if !sub.closed {
		sub.closed = true
		close(sub.ch)
	}
}

// send replaces any unread snapshot with s.
func (sub *subscriber) send(s Snapshot) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return
	}
	select {
	case sub.ch <- s:
		return
	default:
	}
	select {
	case <-sub.ch:
	default:
	}
	select {
	case sub.ch <- s:
	default:
	}
}

// Consumer keeps the snapshot derived from the most recent progress event.
type Consumer struct {
	log *logging.Logger

	mu       sync.RWMutex
	snapshot Snapshot

	subMu       sync.Mutex
	subscribers []*subscriber
}

// NewConsumer creates a consumer with an empty snapshot.
func NewConsumer(log *logging.Logger) *Consumer {
	if log == nil {
		log = logging.Nop()
	}
	return &Consumer{log: log}
}

// Snapshot returns the current snapshot.
func (c *Consumer) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Reset replaces the snapshot regardless of events.
func (c *Consumer) Reset(s Snapshot) {
	c.set(s)
}

// Handle derives a snapshot from one event.
func (c *Consumer) Handle(p types.ProgressPayload) {
	c.set(FromPayload(p))
}

func (c *Consumer) set(s Snapshot) {
	c.mu.Lock()
	c.snapshot = s
	c.mu.Unlock()
	c.broadcast(s)
}

// Subscribe returns a channel that always yields the newest snapshot.
func (c *Consumer) Subscribe() <-chan Snapshot {
	sub := &subscriber{ch: make(chan Snapshot, 1)}
	c.subMu.Lock()
	c.subscribers = append(c.subscribers, sub)
	c.subMu.Unlock()
	return sub.ch
}

// Unsubscribe closes and removes ch.
func (c *Consumer) Unsubscribe(ch <-chan Snapshot) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for i, sub := range c.subscribers {
		if sub.ch == ch {
			c.subscribers = append(c.subscribers[:i], c.subscribers[i+1:]...)
			sub.close()
			return
		}
	}
}

func (c *Consumer) broadcast(s Snapshot) {
	c.subMu.Lock()
	subs := make([]*subscriber, len(c.subscribers))
	copy(subs, c.subscribers)
	c.subMu.Unlock()

	for _, sub := range subs {
		sub.send(s)
	}
}

// Mount is a live subscription of a consumer to a source.
type Mount struct {
	cancel context.CancelFunc
	ready  chan struct{}

	mu      sync.Mutex
	unsub   func()
	err     error
	release sync.Once
}

// Mount subscribes the consumer to window when it is non-nil, otherwise to
// global; never both. Registration runs in the background. Cancelling ctx or
// calling Close tears the subscription down exactly once, including one that
// completes after teardown started.
func (c *Consumer) Mount(ctx context.Context, window, global Source) *Mount {
	source := window
	scope := "window"
	if source == nil {
		source = global
		scope = "global"
	}

	mctx, cancel := context.WithCancel(ctx)
	m := &Mount{cancel: cancel, ready: make(chan struct{})}

	if source == nil {
		m.err = ErrNoSource
		close(m.ready)
		return m
	}

	context.AfterFunc(mctx, m.teardown)

	go func() {
		defer close(m.ready)

		handler := func(p types.ProgressPayload) {
			if mctx.Err() != nil {
				return
			}
			c.Handle(p)
		}

		unsub, err := source.Subscribe(mctx, Channel, handler)
		if err != nil {
			m.mu.Lock()
			m.err = err
			m.mu.Unlock()
			if mctx.Err() == nil {
				c.log.Error().Err(err).Str("scope", scope).Msg("progress subscription failed")
			}
			return
		}

		m.mu.Lock()
		late := mctx.Err() != nil
		if !late {
			m.unsub = unsub
		}
		m.mu.Unlock()

		if late {
			unsub()
			return
		}
		c.log.Debug().Str("scope", scope).Msg("progress subscribed")
	}()

	return m
}

// Ready is closed once registration has finished, successfully or not.
func (m *Mount) Ready() <-chan struct{} { return m.ready }

// Err returns the registration error, if any, once Ready is closed.
func (m *Mount) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Close cancels registration and unsubscribes. Safe to call more than once.
func (m *Mount) Close() {
	m.cancel()
	m.teardown()
}

func (m *Mount) teardown() {
	m.release.Do(func() {
		m.mu.Lock()
		unsub := m.unsub
		m.unsub = nil
		m.mu.Unlock()
		if unsub != nil {
			unsub()
		}
	})
}
