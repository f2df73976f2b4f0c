package diag

import (
	"sync"
	"time"
)

// Event is one notable netcode transition kept for the debug view.
type Event struct {
	At     time.Time `json:"at"`
	Kind   string    `json:"kind"`
	Detail string    `json:"detail,omitempty"`
}

// EventRing keeps the most recent netcode events in a fixed-size ring. It has
// its own lock because the debug HTTP handler reads it off the session
// thread.
type EventRing struct {
	mu     sync.Mutex
	events []Event
	next   int
	filled bool
}

// NewEventRing returns a ring holding up to capacity events.
func NewEventRing(capacity int) *EventRing {
	if capacity <= 0 {
		capacity = 64
	}
	return &EventRing{events: make([]Event, capacity)}
}

// Push records an event, evicting the oldest when full.
func (r *EventRing) Push(kind, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[r.next] = Event{At: time.Now(), Kind: kind, Detail: detail}
	r.next++
	if r.next == len(r.events) {
		r.next = 0
		r.filled = true
	}
}

// Recent returns the buffered events, oldest first.
func (r *EventRing) Recent() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.filled {
		return append([]Event(nil), r.events[:r.next]...)
	}
	out := make([]Event, 0, len(r.events))
	out = append(out, r.events[r.next:]...)
	out = append(out, r.events[:r.next]...)
	return out
}
