package extend

import (
	"context"

	"zigbee-bridge/internal/capability"
	"zigbee-bridge/internal/zcl"
)

const cmdStartWarning uint8 = 0x00

var warningModeLookup = map[string]uint8{
	"stop":            0,
	"burglar":         1,
	"fire":            2,
	"emergency":       3,
	"police_panic":    4,
	"fire_panic":      5,
	"emergency_panic": 6,
}

var warningLevelLookup = map[string]uint8{
	"low":       0,
	"medium":    1,
	"high":      2,
	"very_high": 3,
}

// WarningArgs configures the siren composite.
type WarningArgs struct {
	// Reversed selects the bit layout some sirens use, with mode and level
	// swapped inside the warning-info byte.
	Reversed bool
}

// Warning builds the siren composite: a write-only composite capability that
// issues the start-warning command. The warning-info byte packs mode, strobe
// and level; reversed devices swap the mode and level nibbles.
func Warning(args WarningArgs) (*capability.Bundle, error) {
	desc := capability.NewComposite("warning").
		WithDescription("Starts or stops the siren")

	encoder := capability.Encoder{
		Key: "warning",
		Set: func(ctx context.Context, rt *capability.Context, value any) (capability.State, error) {
			m, ok := value.(map[string]any)
			if !ok {
				return nil, capability.Configf("warning: value must be an object, got %T", value)
			}
			mode, ok := warningModeLookup[stringField(m, "mode", "stop")]
			if !ok {
				return nil, capability.Configf("warning: unknown mode %v", m["mode"])
			}
			level, ok := warningLevelLookup[stringField(m, "level", "medium")]
			if !ok {
				return nil, capability.Configf("warning: unknown level %v", m["level"])
			}
			strobe := uint8(0)
			if b, okB := m["strobe"].(bool); !okB || b {
				strobe = 1 // strobe on unless explicitly disabled
			}

			var info uint8
			if args.Reversed {
				info = mode | strobe<<2 | level<<4
			} else {
				info = mode<<4 | strobe<<2 | level
			}

			duration := uint16(10)
			if f, okF := zcl.ToFloat(m["duration"]); okF && f >= 0 {
				duration = uint16(f)
			}
			dutyCycle := uint8(0)
			if f, okF := zcl.ToFloat(m["strobe_duty_cycle"]); okF && f >= 0 && f <= 100 {
				dutyCycle = uint8(f)
			}
			strobeLevel, ok := warningLevelLookup[stringField(m, "strobe_level", "low")]
			if !ok {
				return nil, capability.Configf("warning: unknown strobe level %v", m["strobe_level"])
			}

			ep, err := serverEndpoint(rt, zcl.ClusterIASWD)
			if err != nil {
				return nil, err
			}
			payload := append([]byte{info}, uint16LE(duration)...)
			payload = append(payload, dutyCycle, strobeLevel)
			// Momentary action, no state echo.
			return nil, ep.Command(ctx, zcl.ClusterIASWD, cmdStartWarning, payload)
		},
	}

	return &capability.Bundle{
		Descriptors: []*capability.Descriptor{desc},
		Encoders:    []capability.Encoder{encoder},
	}, nil
}

func stringField(m map[string]any, key, def string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return def
}
