// Package broadcast delivers advisory seat state-change notifications to
// in-process subscribers, typically a live seat-map transport owned by
// the host application.  Delivery is best effort: no persistence, no
// replay, and no ordering guarantee across events.  A subscriber that
// misses a notification should re-fetch authoritative availability
// rather than trust the delta stream.
package broadcast

import "sync"

// Event types published on seat state changes.
const (
	TypeReserved  = "reserved"
	TypeReleased  = "released"
	TypeConfirmed = "confirmed"
)

// Event describes a seat state change for one event's seat map.
type Event struct {
	EventID uint64   `json:"eventId"`
	Type    string   `json:"type"`
	SeatIDs []uint64 `json:"seatIds"`
}

// Publisher is the only dependency the reservation core needs for
// notifications.  Publish must never block or fail the caller.
type Publisher interface {
	Publish(ev Event)
}

// NopPublisher discards all events.  Useful when no seat-map transport
// is wired, and in tests.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}

// Multi fans one event out to several publishers, e.g. the in-process
// hub plus an out-of-process queue bridge.
type Multi []Publisher

func (m Multi) Publish(ev Event) {
	for _, p := range m {
		p.Publish(ev)
	}
}

// Hub is a fan-out Publisher.  Subscribers register a buffered channel
// per event ID; Publish copies the notification to every matching
// channel and drops it when a subscriber's buffer is full, so a slow
// consumer can never back up a reservation request.
type Hub struct {
	mu   sync.RWMutex
	subs map[uint64]map[chan Event]struct{}
}

// NewHub returns an empty hub ready for subscribers.
func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]map[chan Event]struct{})}
}

// Subscribe registers interest in one event's seat map and returns the
// delivery channel together with a cancel function.  The cancel function
// is idempotent and closes the channel.
func (h *Hub) Subscribe(eventID uint64, buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	h.mu.Lock()
	set, ok := h.subs[eventID]
	if !ok {
		set = make(map[chan Event]struct{})
		h.subs[eventID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subs[eventID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.subs, eventID)
				}
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber of ev.EventID without
// blocking.  Events for unsubscribed event IDs are dropped.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[ev.EventID] {
		select {
		case ch <- ev:
		default:
			// subscriber buffer full; drop rather than block the hold path
		}
	}
}
