package extend

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"zigbee-bridge/internal/capability"
	"zigbee-bridge/internal/device"
)

// fakeTransport records protocol verbs and serves canned read results.
type fakeTransport struct {
	binds     []device.BindRequest
	writes    []device.WriteRecord
	commands  []fakeCommand
	reporting []device.ReportingRecord

	readResults map[uint16]map[uint16]device.AttrResult
}

type fakeCommand struct {
	ClusterID uint16
	CommandID uint8
	Payload   []byte
}

func (f *fakeTransport) stubRead(clusterID, attrID uint16, status uint8, value any) {
	if f.readResults == nil {
		f.readResults = make(map[uint16]map[uint16]device.AttrResult)
	}
	if f.readResults[clusterID] == nil {
		f.readResults[clusterID] = make(map[uint16]device.AttrResult)
	}
	f.readResults[clusterID][attrID] = device.AttrResult{ID: attrID, Status: status, Value: value}
}

func (f *fakeTransport) Bind(ctx context.Context, req device.BindRequest) error {
	f.binds = append(f.binds, req)
	return nil
}

func (f *fakeTransport) ReadAttributes(ctx context.Context, addr uint16, ep uint8, clusterID uint16, attrIDs []uint16) ([]device.AttrResult, error) {
	var out []device.AttrResult
	for _, id := range attrIDs {
		if res, ok := f.readResults[clusterID][id]; ok {
			out = append(out, res)
		} else {
			out = append(out, device.AttrResult{ID: id, Status: 0x86})
		}
	}
	return out, nil
}

func (f *fakeTransport) WriteAttributes(ctx context.Context, addr uint16, ep uint8, clusterID uint16, records []device.WriteRecord) error {
	f.writes = append(f.writes, records...)
	return nil
}

func (f *fakeTransport) Command(ctx context.Context, addr uint16, ep uint8, clusterID uint16, commandID uint8, payload []byte) error {
	f.commands = append(f.commands, fakeCommand{ClusterID: clusterID, CommandID: commandID, Payload: payload})
	return nil
}

func (f *fakeTransport) ConfigureReporting(ctx context.Context, addr uint16, ep uint8, clusterID uint16, records []device.ReportingRecord) error {
	f.reporting = append(f.reporting, records...)
	return nil
}

// fakeClock collects timers and fires them on demand.
type fakeClock struct {
	timers []*fakeTimer
}

type fakeTimer struct {
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) capability.Timer {
	t := &fakeTimer{fn: fn}
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

func (c *fakeClock) pendingCount() int {
	n := 0
	for _, t := range c.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

func newTestDevice(t *testing.T, tr device.Transport, clusters ...uint16) *device.Device {
	t.Helper()
	dev, err := device.New("00:11:22:33:44:55:66:77", 0x1234, tr)
	if err != nil {
		t.Fatalf("new device: %v", err)
	}
	dev.AddEndpoint(1, 0x0104, 0x0100, clusters, nil)
	return dev
}

type testRuntime struct {
	rt        *capability.Context
	clock     *fakeClock
	published []capability.State
}

func newTestRuntime(dev *device.Device) *testRuntime {
	r := &testRuntime{clock: &fakeClock{}}
	r.rt = &capability.Context{
		Device:  dev,
		Options: capability.Options{},
		Timers:  capability.NewTimerStore(r.clock),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Publish: func(s capability.State) { r.published = append(r.published, s) },
	}
	return r
}

// decodeOne routes a message through the first matching decoder.
func decodeOne(t *testing.T, bundle *capability.Bundle, rt *capability.Context, msg *capability.Message) capability.State {
	t.Helper()
	for i := range bundle.Decoders {
		d := &bundle.Decoders[i]
		if !d.Matches(msg) {
			continue
		}
		state, err := d.Decode(rt, msg)
		if err != nil {
			t.Fatalf("decode %s: %v", d.Name, err)
		}
		if state != nil {
			return state
		}
	}
	return nil
}
