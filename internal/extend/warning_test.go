package extend

import (
	"bytes"
	"context"
	"testing"

	"zigbee-bridge/internal/capability"
	"zigbee-bridge/internal/zcl"
)

func startWarning(t *testing.T, args WarningArgs, value map[string]any) fakeCommand {
	t.Helper()
	bundle, err := Warning(args)
	if err != nil {
		t.Fatalf("Warning: %v", err)
	}
	tr := &fakeTransport{}
	r := newTestRuntime(newTestDevice(t, tr, zcl.ClusterIASWD))

	enc := bundle.Encoder("warning")
	if enc == nil || enc.Set == nil {
		t.Fatal("warning encoder missing")
	}
	state, err := enc.Set(context.Background(), r.rt, value)
	if err != nil {
		t.Fatalf("set warning: %v", err)
	}
	if state != nil {
		t.Errorf("momentary action echoed state %v", state)
	}
	if len(tr.commands) != 1 {
		t.Fatalf("sent %d commands, want 1", len(tr.commands))
	}
	return tr.commands[0]
}

func TestWarningStandardLayout(t *testing.T) {
	cmd := startWarning(t, WarningArgs{}, map[string]any{
		"mode":     "burglar",
		"level":    "high",
		"duration": 30,
	})
	if cmd.ClusterID != zcl.ClusterIASWD || cmd.CommandID != cmdStartWarning {
		t.Fatalf("command = %+v", cmd)
	}
	// mode 1 in the high nibble, strobe bit, level 2 in the low bits.
	wantInfo := byte(1<<4 | 1<<2 | 2)
	if cmd.Payload[0] != wantInfo {
		t.Errorf("info byte = %#x, want %#x", cmd.Payload[0], wantInfo)
	}
	if !bytes.Equal(cmd.Payload[1:3], []byte{30, 0}) {
		t.Errorf("duration = % X, want 1E 00", cmd.Payload[1:3])
	}
}

func TestWarningReversedLayout(t *testing.T) {
	cmd := startWarning(t, WarningArgs{Reversed: true}, map[string]any{
		"mode":  "burglar",
		"level": "high",
	})
	// Reversed devices keep mode in the low bits and level in the high nibble.
	wantInfo := byte(1 | 1<<2 | 2<<4)
	if cmd.Payload[0] != wantInfo {
		t.Errorf("info byte = %#x, want %#x", cmd.Payload[0], wantInfo)
	}
}

func TestWarningDefaults(t *testing.T) {
	cmd := startWarning(t, WarningArgs{}, map[string]any{})
	// stop mode, strobe on, medium level, 10 second duration.
	wantInfo := byte(0<<4 | 1<<2 | 1)
	if cmd.Payload[0] != wantInfo {
		t.Errorf("info byte = %#x, want %#x", cmd.Payload[0], wantInfo)
	}
	if !bytes.Equal(cmd.Payload[1:3], []byte{10, 0}) {
		t.Errorf("duration = % X, want 0A 00", cmd.Payload[1:3])
	}
}

func TestWarningStrobeOff(t *testing.T) {
	cmd := startWarning(t, WarningArgs{}, map[string]any{
		"mode":   "fire",
		"strobe": false,
	})
	if cmd.Payload[0]&(1<<2) != 0 {
		t.Errorf("strobe bit still set: %#x", cmd.Payload[0])
	}
}

func TestWarningRejectsUnknownMode(t *testing.T) {
	bundle, err := Warning(WarningArgs{})
	if err != nil {
		t.Fatalf("Warning: %v", err)
	}
	tr := &fakeTransport{}
	r := newTestRuntime(newTestDevice(t, tr, zcl.ClusterIASWD))

	_, err = bundle.Encoder("warning").Set(context.Background(), r.rt, map[string]any{"mode": "whisper"})
	if !capability.IsConfigError(err) {
		t.Fatalf("expected config error, got %v", err)
	}
	if len(tr.commands) != 0 {
		t.Errorf("rejected warning still reached the transport")
	}
}
