package extend

import (
	"context"
	"testing"

	"zigbee-bridge/internal/capability"
	"zigbee-bridge/internal/zcl"
)

func TestOnOffDecode(t *testing.T) {
	bundle, err := OnOff(OnOffArgs{})
	if err != nil {
		t.Fatalf("OnOff: %v", err)
	}
	dev := newTestDevice(t, &fakeTransport{}, zcl.ClusterOnOff)
	r := newTestRuntime(dev)

	state := decodeOne(t, bundle, r.rt, &capability.Message{
		Kind:       capability.AttributeReport,
		ClusterID:  zcl.ClusterOnOff,
		Endpoint:   dev.Endpoint(1),
		Attributes: map[uint16]any{attrOnOff: true},
	})
	if state["state"] != "ON" {
		t.Errorf("state = %v, want ON", state["state"])
	}

	// Some stacks deliver the bool attribute as a raw byte.
	state = decodeOne(t, bundle, r.rt, &capability.Message{
		Kind:       capability.ReadResponse,
		ClusterID:  zcl.ClusterOnOff,
		Endpoint:   dev.Endpoint(1),
		Attributes: map[uint16]any{attrOnOff: uint8(0)},
	})
	if state["state"] != "OFF" {
		t.Errorf("state = %v, want OFF", state["state"])
	}
}

func TestOnOffSetCommands(t *testing.T) {
	bundle, err := OnOff(OnOffArgs{})
	if err != nil {
		t.Fatalf("OnOff: %v", err)
	}
	tr := &fakeTransport{}
	r := newTestRuntime(newTestDevice(t, tr, zcl.ClusterOnOff))
	enc := bundle.Encoder("state")

	tests := []struct {
		value  string
		cmd    uint8
		echoes bool
	}{
		{"ON", cmdOn, true},
		{"OFF", cmdOff, true},
		{"TOGGLE", cmdToggle, false},
	}
	for i, tt := range tests {
		state, err := enc.Set(context.Background(), r.rt, tt.value)
		if err != nil {
			t.Fatalf("set %s: %v", tt.value, err)
		}
		if tr.commands[i].CommandID != tt.cmd {
			t.Errorf("set %s sent command %#x, want %#x", tt.value, tr.commands[i].CommandID, tt.cmd)
		}
		if tt.echoes && state["state"] != tt.value {
			t.Errorf("set %s echoed %v", tt.value, state)
		}
		// TOGGLE leaves the state unknown until the device reports back.
		if !tt.echoes && state != nil {
			t.Errorf("set %s echoed %v, want nil", tt.value, state)
		}
	}
}

func TestOnOffSetRejectsUnknownValue(t *testing.T) {
	bundle, err := OnOff(OnOffArgs{})
	if err != nil {
		t.Fatalf("OnOff: %v", err)
	}
	tr := &fakeTransport{}
	r := newTestRuntime(newTestDevice(t, tr, zcl.ClusterOnOff))

	if _, err := bundle.Encoder("state").Set(context.Background(), r.rt, "DIM"); !capability.IsConfigError(err) {
		t.Fatalf("expected config error, got %v", err)
	}
	if len(tr.commands) != 0 {
		t.Error("rejected value still reached the transport")
	}
}

func TestOnOffMultiEndpoint(t *testing.T) {
	bundle, err := OnOff(OnOffArgs{Endpoints: []string{"left", "right"}})
	if err != nil {
		t.Fatalf("OnOff: %v", err)
	}
	tr := &fakeTransport{}
	dev := newTestDevice(t, tr, zcl.ClusterOnOff)
	dev.AddEndpoint(2, 0x0104, 0x0100, []uint16{zcl.ClusterOnOff}, nil)
	dev.EndpointNames = map[string]uint8{"left": 1, "right": 2}
	r := newTestRuntime(dev)

	state := decodeOne(t, bundle, r.rt, &capability.Message{
		Kind:       capability.AttributeReport,
		ClusterID:  zcl.ClusterOnOff,
		Endpoint:   dev.Endpoint(2),
		Attributes: map[uint16]any{attrOnOff: true},
	})
	if state["state_right"] != "ON" {
		t.Errorf("state = %v, want state_right ON", state)
	}

	if enc := bundle.Encoder("state_left"); enc == nil {
		t.Error("no encoder for state_left")
	}
	if enc := bundle.Encoder("state"); enc != nil {
		t.Error("unqualified encoder should not exist on a multi-gang device")
	}
}

func TestOnOffPowerOnBehavior(t *testing.T) {
	bundle, err := OnOff(OnOffArgs{PowerOnBehavior: true})
	if err != nil {
		t.Fatalf("OnOff: %v", err)
	}
	r := newTestRuntime(newTestDevice(t, &fakeTransport{}, zcl.ClusterOnOff))

	state := decodeOne(t, bundle, r.rt, &capability.Message{
		Kind:       capability.ReadResponse,
		ClusterID:  zcl.ClusterOnOff,
		Endpoint:   r.rt.Device.Endpoint(1),
		Attributes: map[uint16]any{attrStartUpOnOff: uint8(255)},
	})
	if state["power_on_behavior"] != "previous" {
		t.Errorf("power_on_behavior = %v, want previous", state["power_on_behavior"])
	}
}
