// internal/events/hub.go
//
// In-process pub/sub for document-change notifications. The HTTP layer
// publishes an event whenever it persists a game, series, or ranking
// update; websocket sessions subscribe to the topics they care about.
//
// Topics are plain strings: "game:<id>", "series:<id>", "rankings".
// Delivery is best effort — a subscriber that cannot keep up drops events
// rather than blocking publishers.

package events

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Event is one document-change notification. Doc carries the updated
// document, already in its wire shape.
type Event struct {
	Topic string      `json:"topic"`
	Kind  string      `json:"kind"` // "game" | "series" | "rankings"
	Doc   interface{} `json:"doc"`
}

// subscriberBuffer is each subscription's channel capacity. Slow consumers
// lose events beyond this.
const subscriberBuffer = 16

// Hub fans events out to topic subscribers.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe registers interest in a topic. The returned cancel function must
// be called to release the subscription; after cancel the channel is closed.
func (h *Hub) Subscribe(topic string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[chan Event]struct{})
	}
	h.subs[topic][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[topic], ch)
			if len(h.subs[topic]) == 0 {
				delete(h.subs, topic)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber of its topic. Never blocks:
// full subscriber buffers drop the event.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[ev.Topic] {
		select {
		case ch <- ev:
		default:
			log.Debug().Str("topic", ev.Topic).Msg("dropping event for slow subscriber")
		}
	}
}

// Subscribers reports the current subscriber count for a topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}
