// Package events provides in-process pub/sub for engine events and the
// websocket stream that pushes them to the dashboard.
package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event is one published engine event.
type Event struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// Hub fans published events out to subscribers. Slow subscribers are
// skipped rather than blocking the publisher; dashboard streams can
// always refetch state.
type Hub struct {
	log zerolog.Logger

	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Event
}

// NewHub creates a new event hub
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:  log.With().Str("component", "events").Logger(),
		subs: make(map[int]chan Event),
	}
}

// Publish implements domain.EventPublisher.
func (h *Hub) Publish(event string, payload interface{}) {
	e := Event{
		Type:      event,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.subs {
		select {
		case ch <- e:
		default:
			h.log.Debug().Int("subscriber", id).Str("event", event).Msg("Subscriber too slow, event dropped")
		}
	}
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe function.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		if _, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, unsubscribe
}

// SubscriberCount reports the number of live subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
