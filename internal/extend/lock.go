package extend

import (
	"context"

	"zigbee-bridge/internal/capability"
	"zigbee-bridge/internal/device"
	"zigbee-bridge/internal/zcl"
)

const (
	attrLockState    uint16 = 0x0000
	attrAutoRelock   uint16 = 0x0023
	attrLockSoundVol uint16 = 0x0024

	cmdLockDoor      uint8 = 0x00
	cmdUnlockDoor    uint8 = 0x01
	cmdSetPINCode    uint8 = 0x05
	cmdSetUserStatus uint8 = 0x09
)

var lockStateNames = map[int64]string{
	0: "not_fully_locked",
	1: "locked",
	2: "unlocked",
}

var userStatusLookup = map[string]uint8{
	"available":     0,
	"enabled":       1,
	"disabled":      3,
	"not_supported": 0xFF,
}

var lockSoundLookup = map[string]int64{
	"silent": 0,
	"low":    1,
	"high":   2,
}

// LockArgs configures the door-lock composite.
type LockArgs struct {
	PinCode     bool
	UserStatus  bool
	AutoRelock  bool
	SoundVolume bool
}

// Lock builds the door-lock composite: lock/unlock commands with a decoded
// lock-state enum, optional PIN-code and user-status management, and optional
// auto-relock/sound-volume settings. Lock state is subscribed with an
// hour-scale max interval and a zero threshold so any change reports.
func Lock(args LockArgs) (*capability.Bundle, error) {
	stateDesc := capability.NewBinary("state", "LOCK", "UNLOCK").
		WithAccess(capability.AccessRead | capability.AccessWrite | capability.AccessReport).
		WithDescription("Locks or unlocks the door")
	lockStateDesc := capability.NewEnum("lock_state", "not_fully_locked", "locked", "unlocked").
		WithAccess(capability.AccessRead | capability.AccessReport).
		WithDescription("Detailed state of the lock mechanism")

	decoder := capability.Decoder{
		Name:      "lock_state",
		ClusterID: zcl.ClusterDoorLock,
		Kinds:     []capability.MessageKind{capability.AttributeReport, capability.ReadResponse},
		Decode: func(rt *capability.Context, msg *capability.Message) (capability.State, error) {
			raw, ok := msg.Attributes[attrLockState]
			if !ok {
				return nil, nil
			}
			n, ok := zcl.ToInt64(raw)
			if !ok {
				return nil, capability.Decodef("lock_state: unexpected raw value %T", raw)
			}
			name, ok := lockStateNames[n]
			if !ok {
				return nil, capability.Decodef("lock_state: unmapped wire value %d", n)
			}
			state := capability.State{"lock_state": name}
			switch n {
			case 1:
				state["state"] = "LOCK"
			case 2:
				state["state"] = "UNLOCK"
			}
			return state, nil
		},
	}

	stateEncoder := capability.Encoder{
		Key: "state",
		Set: func(ctx context.Context, rt *capability.Context, value any) (capability.State, error) {
			ep, err := lockEndpoint(rt)
			if err != nil {
				return nil, err
			}
			switch value {
			case "LOCK":
				if err := ep.Command(ctx, zcl.ClusterDoorLock, cmdLockDoor, nil); err != nil {
					return nil, err
				}
				return capability.State{"state": "LOCK", "lock_state": "locked"}, nil
			case "UNLOCK":
				if err := ep.Command(ctx, zcl.ClusterDoorLock, cmdUnlockDoor, nil); err != nil {
					return nil, err
				}
				return capability.State{"state": "UNLOCK", "lock_state": "unlocked"}, nil
			default:
				return nil, capability.Configf("state: value %v is not LOCK/UNLOCK", value)
			}
		},
		Get: func(ctx context.Context, rt *capability.Context) error {
			ep, err := lockEndpoint(rt)
			if err != nil {
				return err
			}
			results, err := ep.Read(ctx, zcl.ClusterDoorLock, []uint16{attrLockState})
			if err != nil {
				return err
			}
			rt.DispatchReadResponse(ep, zcl.ClusterDoorLock, results)
			return nil
		},
	}

	bundle := &capability.Bundle{
		Descriptors: []*capability.Descriptor{stateDesc, lockStateDesc},
		Decoders:    []capability.Decoder{decoder},
		Encoders:    []capability.Encoder{stateEncoder},
	}

	if args.PinCode {
		bundle.Descriptors = append(bundle.Descriptors, capability.NewComposite("pin_code").
			WithDescription("Programs a PIN code into a user slot"))
		bundle.Encoders = append(bundle.Encoders, capability.Encoder{
			Key: "pin_code",
			Set: setPINCode,
		})
	}
	if args.UserStatus {
		bundle.Descriptors = append(bundle.Descriptors, capability.NewComposite("user_status").
			WithDescription("Enables or disables a user slot"))
		bundle.Encoders = append(bundle.Encoders, capability.Encoder{
			Key: "user_status",
			Set: setUserStatus,
		})
	}

	parts := []*capability.Bundle{bundle}
	if args.AutoRelock {
		relock, err := capability.BuildNumeric(capability.NumericArgs{
			Name:        "auto_relock_time",
			Cluster:     zcl.ClusterDoorLock,
			Attr:        zcl.AttrRef{ID: attrAutoRelock, Type: zcl.TypeUint32},
			Access:      capability.AccessRead | capability.AccessWrite,
			Unit:        "s",
			Description: "Seconds until the lock relocks itself, 0 disables",
		})
		if err != nil {
			return nil, err
		}
		relock.Configure = nil
		parts = append(parts, relock)
	}
	if args.SoundVolume {
		vol, err := capability.BuildEnum(capability.EnumArgs{
			Name:        "sound_volume",
			Cluster:     zcl.ClusterDoorLock,
			Attr:        zcl.AttrRef{ID: attrLockSoundVol, Type: zcl.TypeUint8},
			Access:      capability.AccessRead | capability.AccessWrite,
			Lookup:      lockSoundLookup,
			Description: "Keypad beep volume",
		})
		if err != nil {
			return nil, err
		}
		vol.Configure = nil
		parts = append(parts, vol)
	}

	merged, err := capability.Merge(parts...)
	if err != nil {
		return nil, err
	}
	merged.Configure = func(ctx context.Context, rt *capability.Context, coord device.BindTarget) error {
		configs := []capability.ReportingConfig{{
			Attr:   zcl.AttrRef{ID: attrLockState, Type: zcl.TypeEnum8},
			Min:    capability.Seconds(0),
			Max:    capability.Symbol("1_hour"),
			Change: capability.ChangeValue(0),
		}}
		return capability.SetupReporting(ctx, capability.DeviceTarget(rt.Device), coord,
			zcl.ClusterDoorLock, configs, true, true, rt.Logger)
	}
	return merged, nil
}

func setPINCode(ctx context.Context, rt *capability.Context, value any) (capability.State, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return nil, capability.Configf("pin_code: value must be an object, got %T", value)
	}
	user, ok := zcl.ToInt64(m["user"])
	if !ok || user < 0 || user > 0xFFFF {
		return nil, capability.Configf("pin_code: user slot %v is not a valid id", m["user"])
	}
	pin, ok := m["pin_code"].(string)
	if !ok || pin == "" {
		return nil, capability.Configf("pin_code: missing pin_code string")
	}
	status := uint8(1) // enabled
	if s, ok := m["user_status"].(string); ok {
		status, ok = userStatusLookup[s]
		if !ok {
			return nil, capability.Configf("pin_code: unknown user status %q", s)
		}
	}
	ep, err := lockEndpoint(rt)
	if err != nil {
		return nil, err
	}
	payload := append(uint16LE(uint16(user)), status, 0 /* unrestricted user type */, byte(len(pin)))
	payload = append(payload, pin...)
	return nil, ep.Command(ctx, zcl.ClusterDoorLock, cmdSetPINCode, payload)
}

func setUserStatus(ctx context.Context, rt *capability.Context, value any) (capability.State, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return nil, capability.Configf("user_status: value must be an object, got %T", value)
	}
	user, ok := zcl.ToInt64(m["user"])
	if !ok || user < 0 || user > 0xFFFF {
		return nil, capability.Configf("user_status: user slot %v is not a valid id", m["user"])
	}
	s, _ := m["status"].(string)
	status, ok := userStatusLookup[s]
	if !ok {
		return nil, capability.Configf("user_status: unknown status %q", s)
	}
	ep, err := lockEndpoint(rt)
	if err != nil {
		return nil, err
	}
	payload := append(uint16LE(uint16(user)), status)
	return nil, ep.Command(ctx, zcl.ClusterDoorLock, cmdSetUserStatus, payload)
}

func lockEndpoint(rt *capability.Context) (*device.Endpoint, error) {
	if eps := rt.Device.EndpointsWithInputCluster(zcl.ClusterDoorLock); len(eps) > 0 {
		return eps[0], nil
	}
	if ep := rt.Device.FirstEndpoint(); ep != nil {
		return ep, nil
	}
	return nil, capability.Configf("device %s: no endpoints", rt.Device.IEEE)
}
