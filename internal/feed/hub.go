// Package feed fans triage events out to live WebSocket subscribers.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/divitize/divitize-zendesk-bot/internal/domain"
	"github.com/google/uuid"
)

// Buffer sizes.
const (
	DefaultBacklog   = 50
	subscriberBuffer = 64
)

// Subscription is one live listener.
type Subscription struct {
	ID string
	C  <-chan []byte

	ch chan []byte
}

// Hub keeps a bounded backlog of recent events and pushes new ones to every
// subscriber. A subscriber whose buffer is full misses the event.
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]*Subscription
	backlog [][]byte
	head    int
	full    bool
	dropped int64
}

// NewHub creates a hub that replays up to backlog recent events to new
// subscribers.
func NewHub(backlog int) *Hub {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	return &Hub{
		subs:    make(map[string]*Subscription),
		backlog: make([][]byte, backlog),
	}
}

// Publish implements the engine's event sink.
func (h *Hub) Publish(_ context.Context, event domain.TriageEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.backlog[h.head] = data
	h.head = (h.head + 1) % len(h.backlog)
	if h.head == 0 {
		h.full = true
	}

	for id, sub := range h.subs {
		select {
		case sub.ch <- data:
		default:
			h.dropped++
			slog.Debug("Feed subscriber too slow, event dropped", "subscriber_id", id)
		}
	}
	return nil
}

// Subscribe registers a listener. The returned channel first yields the
// backlog, oldest first.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	recent := h.recentLocked()
	ch := make(chan []byte, subscriberBuffer+len(recent))
	for _, data := range recent {
		ch <- data
	}
	sub := &Subscription{ID: uuid.NewString(), C: ch, ch: ch}
	h.subs[sub.ID] = sub
	slog.Info("Feed subscriber registered", "subscriber_id", sub.ID, "replayed", len(recent))
	return sub
}

// Unsubscribe removes a listener and closes its channel.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.subs[sub.ID]; ok && current == sub {
		delete(h.subs, sub.ID)
		close(sub.ch)
		slog.Info("Feed subscriber unregistered", "subscriber_id", sub.ID)
	}
}

// Count returns the number of active subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns how many deliveries were skipped for slow subscribers.
func (h *Hub) Dropped() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// Recent returns the backlog, oldest first.
func (h *Hub) Recent() [][]byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.recentLocked()
}

func (h *Hub) recentLocked() [][]byte {
	if !h.full {
		out := make([][]byte, h.head)
		copy(out, h.backlog[:h.head])
		return out
	}
	out := make([][]byte, 0, len(h.backlog))
	out = append(out, h.backlog[h.head:]...)
	return append(out, h.backlog[:h.head]...)
}
