package capability

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"zigbee-bridge/internal/device"
)

// fakeTransport records protocol verbs and serves canned read results keyed
// by cluster+attribute.
type fakeTransport struct {
	binds     []device.BindRequest
	writes    []device.WriteRecord
	commands  []fakeCommand
	reporting []device.ReportingRecord
	reads     [][]uint16

	readResults map[uint16]map[uint16]device.AttrResult // cluster -> attr -> result
	readErr     error
}

type fakeCommand struct {
	ClusterID uint16
	CommandID uint8
	Payload   []byte
}

func (f *fakeTransport) stubRead(clusterID, attrID uint16, res device.AttrResult) {
	if f.readResults == nil {
		f.readResults = make(map[uint16]map[uint16]device.AttrResult)
	}
	if f.readResults[clusterID] == nil {
		f.readResults[clusterID] = make(map[uint16]device.AttrResult)
	}
	res.ID = attrID
	f.readResults[clusterID][attrID] = res
}

func (f *fakeTransport) Bind(ctx context.Context, req device.BindRequest) error {
	f.binds = append(f.binds, req)
	return nil
}

func (f *fakeTransport) ReadAttributes(ctx context.Context, addr uint16, ep uint8, clusterID uint16, attrIDs []uint16) ([]device.AttrResult, error) {
	f.reads = append(f.reads, attrIDs)
	if f.readErr != nil {
		return nil, f.readErr
	}
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

func newTestDevice(t *testing.T, tr device.Transport, clusters ...uint16) *device.Device {
	t.Helper()
	dev, err := device.New("00:11:22:33:44:55:66:77", 0x1234, tr)
	if err != nil {
		t.Fatalf("new device: %v", err)
	}
	dev.AddEndpoint(1, 0x0104, 0x0100, clusters, nil)
	return dev
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestContext wires a context whose Publish collects state into the
// returned slice.
func newTestContext(dev *device.Device) (*Context, *[]State) {
	var published []State
	rt := &Context{
		Device:  dev,
		Options: Options{},
		Timers:  NewTimerStore(&fakeClock{}),
		Logger:  testLogger(),
		Publish: func(s State) { published = append(published, s) },
	}
	return rt, &published
}
