package capability

import (
	"testing"
	"time"
)

// fakeClock collects scheduled callbacks and fires them on demand.
type fakeClock struct {
	timers []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	t := &fakeTimer{d: d, fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) fireAll() {
	for _, t := range c.timers {
		if !t.stopped {
			t.stopped = true
			t.fn()
		}
	}
}

func TestTimerStoreLastWins(t *testing.T) {
	clock := &fakeClock{}
	ts := NewTimerStore(clock)

	fired := 0
	ts.Schedule(1, time.Minute, func() { fired = 1 })
	ts.Schedule(1, time.Minute, func() { fired = 2 })

	if len(clock.timers) != 2 {
		t.Fatalf("scheduled %d timers, want 2", len(clock.timers))
	}
	if !clock.timers[0].stopped {
		t.Error("first timer should have been cancelled by the second")
	}
	clock.fireAll()
	if fired != 2 {
		t.Errorf("fired = %d, want 2 (last scheduled wins)", fired)
	}
}

func TestTimerStorePerEndpoint(t *testing.T) {
	clock := &fakeClock{}
	ts := NewTimerStore(clock)

	var fired []int
	ts.Schedule(1, time.Minute, func() { fired = append(fired, 1) })
	ts.Schedule(2, time.Minute, func() { fired = append(fired, 2) })

	clock.fireAll()
	if len(fired) != 2 {
		t.Errorf("fired %v, want both endpoints", fired)
	}
}

func TestTimerStoreCancel(t *testing.T) {
	clock := &fakeClock{}
	ts := NewTimerStore(clock)

	ts.Schedule(1, time.Minute, func() { t.Error("cancelled timer fired") })
	if !ts.Cancel(1) {
		t.Error("Cancel should report a pending timer")
	}
	if ts.Cancel(1) {
		t.Error("second Cancel should find nothing")
	}
	clock.fireAll()
}

func TestTimerStoreStopAll(t *testing.T) {
	clock := &fakeClock{}
	ts := NewTimerStore(clock)

	ts.Schedule(1, time.Minute, func() { t.Error("stopped timer fired") })
	ts.Schedule(2, time.Minute, func() { t.Error("stopped timer fired") })
	ts.StopAll()
	clock.fireAll()
}
