package extend

import (
	"bytes"
	"context"
	"testing"

	"zigbee-bridge/internal/capability"
	"zigbee-bridge/internal/zcl"
)

func TestLockStateDecode(t *testing.T) {
	bundle, err := Lock(LockArgs{})
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	dev := newTestDevice(t, &fakeTransport{}, zcl.ClusterDoorLock)
	r := newTestRuntime(dev)

	tests := []struct {
		raw       uint8
		lockState string
		state     string // "" when the binary state stays untouched
	}{
		{1, "locked", "LOCK"},
		{2, "unlocked", "UNLOCK"},
		{0, "not_fully_locked", ""},
	}
	for _, tt := range tests {
		state := decodeOne(t, bundle, r.rt, &capability.Message{
			Kind:       capability.AttributeReport,
			ClusterID:  zcl.ClusterDoorLock,
			Endpoint:   dev.Endpoint(1),
			Attributes: map[uint16]any{attrLockState: tt.raw},
		})
		if state["lock_state"] != tt.lockState {
			t.Errorf("raw %d: lock_state = %v, want %s", tt.raw, state["lock_state"], tt.lockState)
		}
		got, ok := state["state"]
		if tt.state == "" && ok {
			t.Errorf("raw %d: intermediate state leaked %v into the binary state", tt.raw, got)
		}
		if tt.state != "" && got != tt.state {
			t.Errorf("raw %d: state = %v, want %s", tt.raw, got, tt.state)
		}
	}
}

func TestLockSetCommands(t *testing.T) {
	bundle, err := Lock(LockArgs{})
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	tr := &fakeTransport{}
	r := newTestRuntime(newTestDevice(t, tr, zcl.ClusterDoorLock))
	enc := bundle.Encoder("state")

	state, err := enc.Set(context.Background(), r.rt, "LOCK")
	if err != nil {
		t.Fatalf("set LOCK: %v", err)
	}
	if state["state"] != "LOCK" || state["lock_state"] != "locked" {
		t.Errorf("echo = %v", state)
	}
	if _, err := enc.Set(context.Background(), r.rt, "UNLOCK"); err != nil {
		t.Fatalf("set UNLOCK: %v", err)
	}
	if len(tr.commands) != 2 || tr.commands[0].CommandID != cmdLockDoor || tr.commands[1].CommandID != cmdUnlockDoor {
		t.Errorf("commands = %+v", tr.commands)
	}

	if _, err := enc.Set(context.Background(), r.rt, "AJAR"); !capability.IsConfigError(err) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestLockSetPINCode(t *testing.T) {
	bundle, err := Lock(LockArgs{PinCode: true})
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	tr := &fakeTransport{}
	r := newTestRuntime(newTestDevice(t, tr, zcl.ClusterDoorLock))

	_, err = bundle.Encoder("pin_code").Set(context.Background(), r.rt, map[string]any{
		"user":     3,
		"pin_code": "1234",
	})
	if err != nil {
		t.Fatalf("set pin: %v", err)
	}
	if len(tr.commands) != 1 || tr.commands[0].CommandID != cmdSetPINCode {
		t.Fatalf("commands = %+v", tr.commands)
	}
	// user u16 LE, status enabled, unrestricted type, length-prefixed pin.
	want := []byte{3, 0, 1, 0, 4, '1', '2', '3', '4'}
	if !bytes.Equal(tr.commands[0].Payload, want) {
		t.Errorf("payload = % X, want % X", tr.commands[0].Payload, want)
	}
}

func TestLockSetPINCodeValidation(t *testing.T) {
	bundle, err := Lock(LockArgs{PinCode: true})
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	tr := &fakeTransport{}
	r := newTestRuntime(newTestDevice(t, tr, zcl.ClusterDoorLock))
	enc := bundle.Encoder("pin_code")

	tests := []struct {
		name  string
		value map[string]any
	}{
		{"missing user", map[string]any{"pin_code": "1234"}},
		{"slot out of range", map[string]any{"user": 70000, "pin_code": "1"}},
		{"missing pin", map[string]any{"user": 1}},
		{"unknown status", map[string]any{"user": 1, "pin_code": "1", "user_status": "frozen"}},
	}
	for _, tt := range tests {
		if _, err := enc.Set(context.Background(), r.rt, tt.value); !capability.IsConfigError(err) {
			t.Errorf("%s: expected config error, got %v", tt.name, err)
		}
	}
	if len(tr.commands) != 0 {
		t.Errorf("rejected writes reached the transport: %+v", tr.commands)
	}
}

func TestLockSetUserStatus(t *testing.T) {
	bundle, err := Lock(LockArgs{UserStatus: true})
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	tr := &fakeTransport{}
	r := newTestRuntime(newTestDevice(t, tr, zcl.ClusterDoorLock))

	_, err = bundle.Encoder("user_status").Set(context.Background(), r.rt, map[string]any{
		"user":   2,
		"status": "disabled",
	})
	if err != nil {
		t.Fatalf("set user status: %v", err)
	}
	want := []byte{2, 0, 3}
	if !bytes.Equal(tr.commands[0].Payload, want) {
		t.Errorf("payload = % X, want % X", tr.commands[0].Payload, want)
	}
}

func TestLockOptionalSettings(t *testing.T) {
	bundle, err := Lock(LockArgs{AutoRelock: true, SoundVolume: true})
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if bundle.Encoder("auto_relock_time") == nil {
		t.Error("auto_relock_time encoder missing")
	}
	if bundle.Encoder("sound_volume") == nil {
		t.Error("sound_volume encoder missing")
	}
}
