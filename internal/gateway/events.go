package gateway

import "sync"

// EventType classifies gateway events.
type EventType string

const (
	EventStateUpdate     EventType = "state_update"
	EventDeviceJoined    EventType = "device_joined"
	EventDeviceLeft      EventType = "device_left"
	EventInterviewDone   EventType = "interview_done"
	EventInterviewFailed EventType = "interview_failed"
)

// Event is a gateway notification delivered to subscribers.
type Event struct {
	Type EventType      `json:"type"`
	IEEE string         `json:"ieee"`
	Data map[string]any `json:"data,omitempty"`
}

// EventBus fans gateway events out to subscribers.
type EventBus struct {
	mu   sync.Mutex
	subs map[int]func(Event)
	next int
}

func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[int]func(Event))}
}

// OnAll registers a subscriber for every event. The returned func
// unsubscribes.
func (b *EventBus) OnAll(fn func(Event)) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

func (b *EventBus) emit(event Event) {
	b.mu.Lock()
	fns := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn(event)
	}
}
