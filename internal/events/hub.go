// Package events fans cycle notifications out to status stream subscribers.
package events

import (
	"sync"
	"sync/atomic"
)

const subscriberBuffer = 10

// Hub broadcasts encoded events. Slow subscribers lose events rather than
// blocking the publisher.
type Hub struct {
	mu      sync.Mutex
	clients map[chan string]struct{}
	dropped atomic.Int64
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan string]struct{})}
}

func (h *Hub) Subscribe() chan string {
	ch := make(chan string, subscriberBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan string) {
	h.mu.Lock()
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
	h.mu.Unlock()
}

func (h *Hub) Publish(evt string) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- evt:
		default:
			h.dropped.Add(1)
		}
	}
}

// Subscribers is the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped counts events not delivered because a subscriber's buffer was full.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}
