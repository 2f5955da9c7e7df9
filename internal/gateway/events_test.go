package gateway

import "testing"

func TestEventBusFanout(t *testing.T) {
	bus := NewEventBus()
	var a, b []Event
	bus.OnAll(func(e Event) { a = append(a, e) })
	bus.OnAll(func(e Event) { b = append(b, e) })

	bus.emit(Event{Type: EventDeviceJoined, IEEE: "00:11:22:33:44:55:66:77"})
	if len(a) != 1 || len(b) != 1 {
		t.Fatalf("fanout = %d/%d, want 1/1", len(a), len(b))
	}
	if a[0].Type != EventDeviceJoined {
		t.Errorf("type = %s", a[0].Type)
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	bus := NewEventBus()
	var got []Event
	off := bus.OnAll(func(e Event) { got = append(got, e) })

	bus.emit(Event{Type: EventStateUpdate})
	off()
	bus.emit(Event{Type: EventDeviceLeft})

	if len(got) != 1 || got[0].Type != EventStateUpdate {
		t.Errorf("events = %+v", got)
	}

	// Unsubscribing twice is harmless.
	off()
	bus.emit(Event{Type: EventDeviceLeft})
	if len(got) != 1 {
		t.Errorf("events after double unsubscribe = %d", len(got))
	}
}
