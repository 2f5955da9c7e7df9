package capability

import (
	"sync"
	"time"
)

// Timer is a cancellable scheduled callback.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks on wall-clock delay. The real clock is
// time.AfterFunc; tests inject a fake.
type Clock interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// TimerStore holds at most one pending transient-state timer per endpoint.
// Scheduling replaces any pending timer: last scheduled wins.
type TimerStore struct {
	mu      sync.Mutex
	clock   Clock
	pending map[uint8]Timer
}

// NewTimerStore creates a timer store. A nil clock means the real clock.
func NewTimerStore(clock Clock) *TimerStore {
	if clock == nil {
		clock = realClock{}
	}
	return &TimerStore{
		clock:   clock,
		pending: make(map[uint8]Timer),
	}
}

// Schedule cancels any pending timer for the endpoint and schedules fn
// after d.
func (ts *TimerStore) Schedule(endpoint uint8, d time.Duration, fn func()) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if t, ok := ts.pending[endpoint]; ok {
		t.Stop()
	}
	ts.pending[endpoint] = ts.clock.AfterFunc(d, func() {
		ts.mu.Lock()
		delete(ts.pending, endpoint)
		ts.mu.Unlock()
		fn()
	})
}

// Cancel stops any pending timer for the endpoint. Returns true if one was
// pending.
func (ts *TimerStore) Cancel(endpoint uint8) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	t, ok := ts.pending[endpoint]
	if !ok {
		return false
	}
	t.Stop()
	delete(ts.pending, endpoint)
	return true
}

// StopAll cancels every pending timer.
func (ts *TimerStore) StopAll() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	for ep, t := range ts.pending {
		t.Stop()
		delete(ts.pending, ep)
	}
}
