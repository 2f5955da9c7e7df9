package gateway

import (
	"errors"
	"testing"
	"time"

	"zigbee-bridge/internal/capability"
	"zigbee-bridge/internal/definitions"
	"zigbee-bridge/internal/device"
	"zigbee-bridge/internal/extend"
	"zigbee-bridge/internal/store"
	"zigbee-bridge/internal/zcl"
)

// memStore keeps device records in a map, enough for gateway tests.
type memStore struct {
	devices map[string]*store.Device
}

func newMemStore() *memStore {
	return &memStore{devices: make(map[string]*store.Device)}
}

func (m *memStore) SaveDevice(dev *store.Device) error {
	cp := *dev
	m.devices[dev.IEEEAddress] = &cp
	return nil
}

func (m *memStore) GetDevice(ieee string) (*store.Device, error) {
	dev, ok := m.devices[ieee]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *dev
	return &cp, nil
}

func (m *memStore) DeleteDevice(ieee string) error {
	delete(m.devices, ieee)
	return nil
}

func (m *memStore) ListDevices() ([]*store.Device, error) {
	out := make([]*store.Device, 0, len(m.devices))
	for _, dev := range m.devices {
		cp := *dev
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memStore) UpdateDevice(ieee string, fn func(dev *store.Device) error) error {
	dev, ok := m.devices[ieee]
	if !ok {
		return store.ErrNotFound
	}
	cp := *dev
	if err := fn(&cp); err != nil {
		return err
	}
	m.devices[ieee] = &cp
	return nil
}

func (m *memStore) Close() error { return nil }

func newTestGateway(t *testing.T, st store.Store) *Gateway {
	t.Helper()
	bundle, err := extend.OnOff(extend.OnOffArgs{})
	if err != nil {
		t.Fatalf("bundle: %v", err)
	}
	reg := definitions.NewRegistry(testLogger())
	if err := reg.Register(&definitions.Definition{
		Vendor: "Test",
		Models: []string{"SWITCH-1"},
		Bundle: bundle,
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	return New(&fakeTransport{}, st, reg, device.BindTarget{Endpoint: 1}, testLogger())
}

func storedSwitch() *store.Device {
	return &store.Device{
		IEEEAddress:  "00:11:22:33:44:55:66:77",
		ShortAddress: 0x1234,
		Manufacturer: "Test",
		Model:        "SWITCH-1",
		Interviewed:  true,
		Endpoints: []store.Endpoint{{
			ID:         1,
			ProfileID:  0x0104,
			InClusters: []uint16{zcl.ClusterOnOff},
		}},
	}
}

func TestGatewayHandleMessageBumpsLastSeen(t *testing.T) {
	st := newMemStore()
	rec := storedSwitch()
	st.devices[rec.IEEEAddress] = rec
	g := newTestGateway(t, st)
	if err := g.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	g.HandleMessage(rec.IEEEAddress, &capability.Message{
		Kind:       capability.AttributeReport,
		ClusterID:  zcl.ClusterOnOff,
		Endpoint:   g.Session(rec.IEEEAddress).Device().Endpoint(1),
		Attributes: map[uint16]any{0x0000: true},
	})

	got, err := st.GetDevice(rec.IEEEAddress)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LastSeen.IsZero() {
		t.Error("last seen not updated")
	}
	if time.Since(got.LastSeen) > time.Minute {
		t.Errorf("last seen = %v", got.LastSeen)
	}
}

func TestGatewayRename(t *testing.T) {
	st := newMemStore()
	rec := storedSwitch()
	st.devices[rec.IEEEAddress] = rec
	g := newTestGateway(t, st)

	if err := g.Rename(rec.IEEEAddress, "hallway"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if got, _ := st.GetDevice(rec.IEEEAddress); got.FriendlyName != "hallway" {
		t.Errorf("friendly name = %q", got.FriendlyName)
	}
	if err := g.Rename("ff:ff:ff:ff:ff:ff:ff:ff", "ghost"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("rename of unknown device: %v", err)
	}
}

func TestGatewaySavePersistsEndpointCache(t *testing.T) {
	st := newMemStore()
	rec := storedSwitch()
	st.devices[rec.IEEEAddress] = rec
	g := newTestGateway(t, st)
	if err := g.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	dev := g.Session(rec.IEEEAddress).Device()
	dev.Endpoint(1).SetCache(zcl.ClusterOnOff, 0x4003, uint8(255))
	if err := dev.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, _ := st.GetDevice(rec.IEEEAddress)
	cached := got.Endpoints[0].Cache[zcl.ClusterOnOff][0x4003]
	if cached != uint8(255) {
		t.Errorf("cached value = %v, want 255", cached)
	}
}
