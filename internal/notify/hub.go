package notify

import (
	"context"
	"encoding/json"
	"sync"
)

// Message is one event as seen by stream subscribers.
type Message struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans events out to in-process subscribers such as server-sent event
// streams. Slow subscribers miss messages rather than block publishers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[chan Message]struct{}
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{subs: make(map[chan Message]struct{}), buffer: buffer}
}

// Subscribe registers a subscriber. Call cancel to release it.
func (h *Hub) Subscribe() (<-chan Message, func()) {
	ch := make(chan Message, h.buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Publish(_ context.Context, event string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	h.Deliver(event, body)
	return nil
}

// Deliver hands an already encoded payload to every subscriber.
func (h *Hub) Deliver(event string, payload json.RawMessage) {
	msg := Message{Event: event, Payload: payload}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Subscribers returns the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
