package extend

import (
	"bytes"
	"context"
	"testing"

	"zigbee-bridge/internal/capability"
	"zigbee-bridge/internal/device"
	"zigbee-bridge/internal/zcl"
)

func TestLightBrightnessSet(t *testing.T) {
	bundle, err := Light(LightArgs{})
	if err != nil {
		t.Fatalf("Light: %v", err)
	}
	tr := &fakeTransport{}
	r := newTestRuntime(newTestDevice(t, tr, zcl.ClusterOnOff, zcl.ClusterLevelControl))
	enc := bundle.Encoder("brightness")

	state, err := enc.Set(context.Background(), r.rt, 128)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if state["brightness"] != float64(128) || state["state"] != "ON" {
		t.Errorf("echo = %v", state)
	}
	cmd := tr.commands[0]
	if cmd.CommandID != cmdMoveToLevelWithOnOff {
		t.Errorf("command = %#x", cmd.CommandID)
	}
	// level, transition u16 LE (immediate by default).
	if !bytes.Equal(cmd.Payload, []byte{128, 0, 0}) {
		t.Errorf("payload = % X", cmd.Payload)
	}

	// Level 0 turns the light off; values clamp into 0..254.
	state, err = enc.Set(context.Background(), r.rt, 0)
	if err != nil {
		t.Fatalf("set 0: %v", err)
	}
	if state["state"] != "OFF" {
		t.Errorf("state = %v, want OFF", state["state"])
	}
	state, err = enc.Set(context.Background(), r.rt, 999)
	if err != nil {
		t.Fatalf("set 999: %v", err)
	}
	if state["brightness"] != float64(254) {
		t.Errorf("brightness = %v, want 254", state["brightness"])
	}
}

func TestLightTransitionOption(t *testing.T) {
	bundle, err := Light(LightArgs{})
	if err != nil {
		t.Fatalf("Light: %v", err)
	}
	tr := &fakeTransport{}
	r := newTestRuntime(newTestDevice(t, tr, zcl.ClusterOnOff, zcl.ClusterLevelControl))
	r.rt.Options = capability.Options{"transition": 2.5}

	if _, err := bundle.Encoder("brightness").Set(context.Background(), r.rt, 100); err != nil {
		t.Fatalf("set: %v", err)
	}
	// 2.5 s is 25 tenths.
	if !bytes.Equal(tr.commands[0].Payload, []byte{100, 25, 0}) {
		t.Errorf("payload = % X", tr.commands[0].Payload)
	}
}

func TestLightColorTemp(t *testing.T) {
	bundle, err := Light(LightArgs{ColorTemp: true})
	if err != nil {
		t.Fatalf("Light: %v", err)
	}
	tr := &fakeTransport{}
	dev := newTestDevice(t, tr, zcl.ClusterOnOff, zcl.ClusterLevelControl, zcl.ClusterColorControl)
	r := newTestRuntime(dev)

	state, err := bundle.Encoder("color_temp").Set(context.Background(), r.rt, 370)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if state["color_temp"] != float64(370) {
		t.Errorf("echo = %v", state)
	}
	cmd := tr.commands[0]
	if cmd.CommandID != cmdMoveToColorTemperature || !bytes.Equal(cmd.Payload, []byte{0x72, 0x01, 0, 0}) {
		t.Errorf("command %#x payload % X", cmd.CommandID, cmd.Payload)
	}

	// Out-of-range values clamp to the descriptor range.
	state, err = bundle.Encoder("color_temp").Set(context.Background(), r.rt, 1000)
	if err != nil {
		t.Fatalf("set 1000: %v", err)
	}
	if state["color_temp"] != float64(500) {
		t.Errorf("color_temp = %v, want 500", state["color_temp"])
	}

	state = decodeOne(t, bundle, r.rt, &capability.Message{
		Kind:       capability.AttributeReport,
		ClusterID:  zcl.ClusterColorControl,
		Endpoint:   dev.Endpoint(1),
		Attributes: map[uint16]any{attrColorTemperature: uint16(250)},
	})
	if state["color_temp"] != float64(250) {
		t.Errorf("decoded = %v", state)
	}
}

func TestLightColorXY(t *testing.T) {
	bundle, err := Light(LightArgs{ColorXY: true})
	if err != nil {
		t.Fatalf("Light: %v", err)
	}
	tr := &fakeTransport{}
	dev := newTestDevice(t, tr, zcl.ClusterOnOff, zcl.ClusterLevelControl, zcl.ClusterColorControl)
	r := newTestRuntime(dev)

	_, err = bundle.Encoder("color").Set(context.Background(), r.rt, map[string]any{
		"x": 0.5,
		"y": 0.25,
	})
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	cmd := tr.commands[0]
	if cmd.CommandID != cmdMoveToColor {
		t.Errorf("command = %#x", cmd.CommandID)
	}
	// x=0.5 and y=0.25 scaled to the 16-bit color space, then transition.
	want := append(uint16LE(32767), uint16LE(16383)...)
	want = append(want, 0, 0)
	if !bytes.Equal(cmd.Payload, want) {
		t.Errorf("payload = % X, want % X", cmd.Payload, want)
	}

	// Hue/saturation is rejected on an xy-only lamp.
	_, err = bundle.Encoder("color").Set(context.Background(), r.rt, map[string]any{
		"hue":        120,
		"saturation": 50,
	})
	if !capability.IsConfigError(err) {
		t.Fatalf("expected config error, got %v", err)
	}

	state := decodeOne(t, bundle, r.rt, &capability.Message{
		Kind:      capability.AttributeReport,
		ClusterID: zcl.ClusterColorControl,
		Endpoint:  dev.Endpoint(1),
		Attributes: map[uint16]any{
			attrCurrentX: uint16(32768),
			attrCurrentY: uint16(16384),
		},
	})
	color, ok := state["color"].(map[string]any)
	if !ok {
		t.Fatalf("state = %v", state)
	}
	if color["x"] != 0.5 || color["y"] != 0.25 {
		t.Errorf("color = %v", color)
	}
}

func TestLightColorHS(t *testing.T) {
	bundle, err := Light(LightArgs{ColorHS: true})
	if err != nil {
		t.Fatalf("Light: %v", err)
	}
	tr := &fakeTransport{}
	r := newTestRuntime(newTestDevice(t, tr, zcl.ClusterOnOff, zcl.ClusterLevelControl, zcl.ClusterColorControl))

	_, err = bundle.Encoder("color").Set(context.Background(), r.rt, map[string]any{
		"hue":        180,
		"saturation": 100,
	})
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	cmd := tr.commands[0]
	if cmd.CommandID != cmdMoveToHueAndSaturation {
		t.Errorf("command = %#x", cmd.CommandID)
	}
	if !bytes.Equal(cmd.Payload, []byte{127, 254, 0, 0}) {
		t.Errorf("payload = % X", cmd.Payload)
	}
}

func TestLightEffect(t *testing.T) {
	bundle, err := Light(LightArgs{Effect: true})
	if err != nil {
		t.Fatalf("Light: %v", err)
	}
	tr := &fakeTransport{}
	r := newTestRuntime(newTestDevice(t, tr, zcl.ClusterOnOff, zcl.ClusterLevelControl, zcl.ClusterIdentify))

	state, err := bundle.Encoder("effect").Set(context.Background(), r.rt, "breathe")
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if state != nil {
		t.Errorf("effect echoed state %v", state)
	}
	cmd := tr.commands[0]
	if cmd.ClusterID != zcl.ClusterIdentify || cmd.CommandID != cmdTriggerEffect {
		t.Errorf("command = %+v", cmd)
	}
	if !bytes.Equal(cmd.Payload, []byte{0x01, 0x00}) {
		t.Errorf("payload = % X", cmd.Payload)
	}

	if _, err := bundle.Encoder("effect").Set(context.Background(), r.rt, "disco"); !capability.IsConfigError(err) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestLightConfigure(t *testing.T) {
	bundle, err := Light(LightArgs{ColorTemp: true})
	if err != nil {
		t.Fatalf("Light: %v", err)
	}
	tr := &fakeTransport{}
	dev := newTestDevice(t, tr, zcl.ClusterOnOff, zcl.ClusterLevelControl, zcl.ClusterColorControl)
	r := newTestRuntime(dev)

	if err := bundle.Configure(context.Background(), r.rt, device.BindTarget{Endpoint: 1}); err != nil {
		t.Fatalf("configure: %v", err)
	}
	// on/off, level and color clusters each get a bind.
	if len(tr.binds) != 3 {
		t.Errorf("binds = %d, want 3", len(tr.binds))
	}
	var gotLevel, gotColorTemp bool
	for _, rec := range tr.reporting {
		switch rec.Attr.ID {
		case attrCurrentLevel:
			gotLevel = true
		case attrColorTemperature:
			gotColorTemp = true
		}
	}
	if !gotLevel || !gotColorTemp {
		t.Errorf("reporting records = %+v", tr.reporting)
	}
}
