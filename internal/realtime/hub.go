// Package realtime fans timer events out to the SSE streams of a user.
package realtime

import (
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// DefaultBuffer is the number of pending events a subscription holds before
// new events are dropped.
const DefaultBuffer = 16

// Event is one encoded message ready to be written to a stream.
type Event struct {
	Name string
	Data []byte
}

// Subscription receives the events of one user until it is closed.
type Subscription struct {
	id     int
	userID string
	events chan Event
	once   sync.Once
}

func (s *Subscription) Events() <-chan Event {
	return s.events
}

func (s *Subscription) close() {
	s.once.Do(func() { close(s.events) })
}

// Hub keeps the open subscriptions by user.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[int]*Subscription
	nextID int
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:   make(map[string]map[int]*Subscription),
		buffer: buffer,
	}
}

func (h *Hub) Subscribe(userID string) *Subscription {
	h.mu.Lock()
	h.nextID++
	sub := &Subscription{
		id:     h.nextID,
		userID: userID,
		events: make(chan Event, h.buffer),
	}
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[int]*Subscription)
	}
	h.subs[userID][sub.id] = sub
	count := len(h.subs[userID])
	h.mu.Unlock()

	log.Debug().Str("userId", userID).Int("subscribers", count).Msg("realtime subscriber added")
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	if userSubs, ok := h.subs[sub.userID]; ok {
		delete(userSubs, sub.id)
		if len(userSubs) == 0 {
			delete(h.subs, sub.userID)
		}
	}
	h.mu.Unlock()

	sub.close()
	log.Debug().Str("userId", sub.userID).Msg("realtime subscriber removed")
}

// Publish encodes payload once and offers it to every subscription of the
// user. A subscription whose buffer is full misses the event.
func (h *Hub) Publish(userID, name string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event", name).Msg("failed to encode realtime event")
		return
	}
	event := Event{Name: name, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs[userID] {
		select {
		case sub.events <- event:
		default:
			log.Warn().Str("userId", userID).Str("event", name).Msg("realtime subscriber is slow, event dropped")
		}
	}
}

// SubscriberCount returns the open subscriptions of the user.
func (h *Hub) SubscriberCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}
