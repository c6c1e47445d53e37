package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-rangefinder/internal/log"
)

const (
	broadcastBuffer = 256
	clientBuffer    = 64
)

// Hub maintains the set of subscribers and broadcasts messages to them.
// Only the Run goroutine touches the subscriber set's send channels.
type Hub struct {
	name   string
	logger *slog.Logger

	subscribers map[*Subscriber]struct{}
	broadcast   chan Message
	register    chan *Subscriber
	unregister  chan *Subscriber

	mu      sync.RWMutex // guards subscribers for Count
	running atomic.Bool
	dropped atomic.Int64
}

// Subscriber receives broadcast messages on C until unsubscribed or the
// hub stops, at which point C is closed.
type Subscriber struct {
	C    <-chan Message
	send chan Message
}

// New creates a new Hub
func New(name string, logger *slog.Logger) *Hub {
	return &Hub{
		name:        name,
		logger:      log.Or(logger, "hub").With("hub", name),
		subscribers: make(map[*Subscriber]struct{}),
		broadcast:   make(chan Message, broadcastBuffer),
		register:    make(chan *Subscriber),
		unregister:  make(chan *Subscriber),
	}
}

// Run delivers messages until ctx is done. Slow subscribers whose buffer
// is full are dropped rather than blocking everyone else.
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer h.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for s := range h.subscribers {
				close(s.send)
				delete(h.subscribers, s)
			}
			h.mu.Unlock()
			return

		case s := <-h.register:
			h.mu.Lock()
			h.subscribers[s] = struct{}{}
			count := len(h.subscribers)
			h.mu.Unlock()
			h.logger.Debug("subscriber added", "total", count)

		case s := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.subscribers[s]; ok {
				delete(h.subscribers, s)
				close(s.send)
			}
			count := len(h.subscribers)
			h.mu.Unlock()
			h.logger.Debug("subscriber removed", "total", count)

		case msg := <-h.broadcast:
			h.mu.Lock()
			for s := range h.subscribers {
				select {
				case s.send <- msg:
				default:
					close(s.send)
					delete(h.subscribers, s)
					h.logger.Warn("dropped slow subscriber")
				}
			}
			h.mu.Unlock()
		}
	}
}

// Subscribe registers a new subscriber. Blocks until Run accepts it or
// ctx is done.
func (h *Hub) Subscribe(ctx context.Context) (*Subscriber, error) {
	send := make(chan Message, clientBuffer)
	s := &Subscriber{C: send, send: send}
	select {
	case h.register <- s:
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Unsubscribe removes s. Safe to call after the hub dropped s.
func (h *Hub) Unsubscribe(ctx context.Context, s *Subscriber) {
	select {
	case h.unregister <- s:
	case <-ctx.Done():
	}
}

// Broadcast queues msg for all subscribers without blocking. It reports
// false when the queue is full and the message was dropped.
func (h *Hub) Broadcast(msg Message) bool {
	select {
	case h.broadcast <- msg:
		return true
	default:
		h.dropped.Add(1)
		return false
	}
}

// BroadcastJSON encodes v and broadcasts it.
func (h *Hub) BroadcastJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(NewJSONMessage(data))
	return nil
}

// Count returns the number of subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Dropped returns how many broadcasts were discarded on a full queue.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// IsRunning returns whether Run is active.
func (h *Hub) IsRunning() bool {
	return h.running.Load()
}
