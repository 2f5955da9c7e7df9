package extend

import (
	"context"
	"math"
	"sort"

	"zigbee-bridge/internal/capability"
	"zigbee-bridge/internal/device"
	"zigbee-bridge/internal/zcl"
)

const (
	attrCurrentLevel uint16 = 0x0000

	attrCurrentHue       uint16 = 0x0000
	attrCurrentSat       uint16 = 0x0001
	attrCurrentX         uint16 = 0x0003
	attrCurrentY         uint16 = 0x0004
	attrColorTemperature uint16 = 0x0007
	attrColorMode        uint16 = 0x0008
	attrEnhancedHue      uint16 = 0x4000

	cmdMoveToHueAndSaturation uint8 = 0x06
	cmdMoveToColor            uint8 = 0x07
	cmdMoveToColorTemperature uint8 = 0x0A
	cmdEnhancedMoveToHueSat   uint8 = 0x43

	cmdMoveToLevelWithOnOff uint8 = 0x04

	cmdTriggerEffect uint8 = 0x40
)

var effectLookup = map[string]struct{ effect, variant uint8 }{
	"blink":          {0x00, 0x00},
	"breathe":        {0x01, 0x00},
	"okay":           {0x02, 0x00},
	"channel_change": {0x0B, 0x00},
	"finish_effect":  {0xFE, 0x00},
	"stop_effect":    {0xFF, 0x00},
}

var colorModeLookup = map[string]int64{
	"hue_saturation":    0,
	"xy":                1,
	"color_temperature": 2,
}

// LightArgs configures the light composite. The zero value builds a plain
// dimmable light without color support.
type LightArgs struct {
	ColorTemp       bool
	ColorTempRange  *[2]float64 // mireds, overrides the 150..500 default
	ColorXY         bool
	ColorHS         bool
	EnhancedHue     bool // use the 16-bit hue command instead of the 8-bit one
	Effect          bool
	PowerOnBehavior bool
	// Setup runs before reporting is configured, for devices that need a
	// vendor handshake before they accept bindings.
	Setup capability.Configurator
}

// Light builds the light composite: on/off state, brightness via
// move-to-level-with-on/off, optional color temperature and color, an
// optional identify effect, and subscriptions for every exposed attribute.
func Light(args LightArgs) (*capability.Bundle, error) {
	base, err := OnOff(OnOffArgs{PowerOnBehavior: args.PowerOnBehavior})
	if err != nil {
		return nil, err
	}
	onOffConfigure := base.Configure
	base.Configure = nil

	parts := []*capability.Bundle{base, brightnessBundle()}

	if args.ColorTemp {
		parts = append(parts, colorTempBundle(args.ColorTempRange))
	}
	if args.ColorXY || args.ColorHS {
		parts = append(parts, colorBundle(args))
		cm, err := capability.BuildEnum(capability.EnumArgs{
			Name:        "color_mode",
			Cluster:     zcl.ClusterColorControl,
			Attr:        zcl.AttrRef{ID: attrColorMode, Type: zcl.TypeEnum8},
			Access:      capability.AccessRead | capability.AccessReport,
			Lookup:      colorModeLookup,
			Description: "Active color mode of the lamp",
		})
		if err != nil {
			return nil, err
		}
		cm.Configure = nil // subscription handled by the composite configurator
		parts = append(parts, cm)
	}
	if args.Effect {
		parts = append(parts, effectBundle())
	}

	bundle, err := capability.Merge(parts...)
	if err != nil {
		return nil, err
	}
	bundle.Meta = map[string]any{
		"light":               true,
		"supports_color_xy":   args.ColorXY,
		"supports_color_hs":   args.ColorHS,
		"supports_color_temp": args.ColorTemp,
	}

	setup := args.Setup
	hasColor := args.ColorXY || args.ColorHS
	bundle.Configure = func(ctx context.Context, rt *capability.Context, coord device.BindTarget) error {
		if setup != nil {
			if err := setup(ctx, rt, coord); err != nil {
				return err
			}
		}
		if err := onOffConfigure(ctx, rt, coord); err != nil {
			return err
		}
		target := capability.DeviceTarget(rt.Device)
		levelConfigs := []capability.ReportingConfig{{
			Attr:   zcl.AttrRef{ID: attrCurrentLevel, Type: zcl.TypeUint8},
			Min:    capability.Seconds(5),
			Max:    capability.Symbol("1_hour"),
			Change: capability.ChangeValue(1),
		}}
		if err := capability.SetupReporting(ctx, target, coord,
			zcl.ClusterLevelControl, levelConfigs, true, true, rt.Logger); err != nil {
			return err
		}
		var colorConfigs []capability.ReportingConfig
		if args.ColorTemp {
			colorConfigs = append(colorConfigs, capability.ReportingConfig{
				Attr:   zcl.AttrRef{ID: attrColorTemperature, Type: zcl.TypeUint16},
				Min:    capability.Seconds(5),
				Max:    capability.Symbol("1_hour"),
				Change: capability.ChangeValue(1),
			})
		}
		if hasColor {
			colorConfigs = append(colorConfigs, capability.ReportingConfig{
				Attr:   zcl.AttrRef{ID: attrColorMode, Type: zcl.TypeEnum8},
				Min:    capability.Symbol("min"),
				Max:    capability.Symbol("max"),
				Change: capability.ChangeValue(0),
			})
		}
		if len(colorConfigs) == 0 {
			return nil
		}
		return capability.SetupReporting(ctx, target, coord,
			zcl.ClusterColorControl, colorConfigs, true, true, rt.Logger)
	}

	return bundle, nil
}

func brightnessBundle() *capability.Bundle {
	desc := capability.NewNumeric("brightness").
		WithAccess(capability.AccessRead | capability.AccessWrite | capability.AccessReport).
		WithRange(0, 254).
		WithDescription("Brightness of the light")

	decoder := capability.Decoder{
		Name:      "brightness",
		ClusterID: zcl.ClusterLevelControl,
		Kinds:     []capability.MessageKind{capability.AttributeReport, capability.ReadResponse},
		Decode: func(rt *capability.Context, msg *capability.Message) (capability.State, error) {
			raw, ok := msg.Attributes[attrCurrentLevel]
			if !ok {
				return nil, nil
			}
			n, ok := zcl.ToInt64(raw)
			if !ok {
				return nil, capability.Decodef("brightness: unexpected raw value %T", raw)
			}
			return capability.State{"brightness": float64(n)}, nil
		},
	}

	encoder := capability.Encoder{
		Key: "brightness",
		Set: func(ctx context.Context, rt *capability.Context, value any) (capability.State, error) {
			f, ok := zcl.ToFloat(value)
			if !ok {
				return nil, capability.Configf("brightness: value %v is not numeric", value)
			}
			level := uint8(math.Min(254, math.Max(0, math.Floor(f+0.5))))
			ep, err := serverEndpoint(rt, zcl.ClusterLevelControl)
			if err != nil {
				return nil, err
			}
			payload := append([]byte{level}, transitionBytes(rt)...)
			if err := ep.Command(ctx, zcl.ClusterLevelControl, cmdMoveToLevelWithOnOff, payload); err != nil {
				return nil, err
			}
			state := capability.State{"brightness": float64(level)}
			if level == 0 {
				state["state"] = "OFF"
			} else {
				state["state"] = "ON"
			}
			return state, nil
		},
		Get: func(ctx context.Context, rt *capability.Context) error {
			return readThrough(ctx, rt, zcl.ClusterLevelControl, attrCurrentLevel)
		},
	}

	return &capability.Bundle{
		Descriptors: []*capability.Descriptor{desc},
		Decoders:    []capability.Decoder{decoder},
		Encoders:    []capability.Encoder{encoder},
	}
}

func colorTempBundle(rng *[2]float64) *capability.Bundle {
	min, max := 150.0, 500.0
	if rng != nil {
		min, max = rng[0], rng[1]
	}
	desc := capability.NewNumeric("color_temp").
		WithAccess(capability.AccessRead | capability.AccessWrite | capability.AccessReport).
		WithRange(min, max).
		WithUnit("mired").
		WithDescription("Color temperature in mireds")

	decoder := capability.Decoder{
		Name:      "color_temp",
		ClusterID: zcl.ClusterColorControl,
		Kinds:     []capability.MessageKind{capability.AttributeReport, capability.ReadResponse},
		Decode: func(rt *capability.Context, msg *capability.Message) (capability.State, error) {
			raw, ok := msg.Attributes[attrColorTemperature]
			if !ok {
				return nil, nil
			}
			n, ok := zcl.ToInt64(raw)
			if !ok {
				return nil, capability.Decodef("color_temp: unexpected raw value %T", raw)
			}
			return capability.State{"color_temp": float64(n)}, nil
		},
	}

	encoder := capability.Encoder{
		Key: "color_temp",
		Set: func(ctx context.Context, rt *capability.Context, value any) (capability.State, error) {
			f, ok := zcl.ToFloat(value)
			if !ok {
				return nil, capability.Configf("color_temp: value %v is not numeric", value)
			}
			mireds := uint16(math.Min(max, math.Max(min, math.Floor(f+0.5))))
			ep, err := serverEndpoint(rt, zcl.ClusterColorControl)
			if err != nil {
				return nil, err
			}
			payload := append(uint16LE(mireds), transitionBytes(rt)...)
			if err := ep.Command(ctx, zcl.ClusterColorControl, cmdMoveToColorTemperature, payload); err != nil {
				return nil, err
			}
			return capability.State{"color_temp": float64(mireds)}, nil
		},
		Get: func(ctx context.Context, rt *capability.Context) error {
			return readThrough(ctx, rt, zcl.ClusterColorControl, attrColorTemperature)
		},
	}

	return &capability.Bundle{
		Descriptors: []*capability.Descriptor{desc},
		Decoders:    []capability.Decoder{decoder},
		Encoders:    []capability.Encoder{encoder},
	}
}

func colorBundle(args LightArgs) *capability.Bundle {
	desc := capability.NewComposite("color").
		WithAccess(capability.AccessRead | capability.AccessWrite | capability.AccessReport).
		WithDescription("Color of the light, as CIE xy or hue/saturation")

	decoder := capability.Decoder{
		Name:      "color",
		ClusterID: zcl.ClusterColorControl,
		Kinds:     []capability.MessageKind{capability.AttributeReport, capability.ReadResponse},
		Decode: func(rt *capability.Context, msg *capability.Message) (capability.State, error) {
			color := map[string]any{}
			if raw, ok := msg.Attributes[attrCurrentX]; ok {
				n, okN := zcl.ToInt64(raw)
				if !okN {
					return nil, capability.Decodef("color: unexpected x value %T", raw)
				}
				color["x"] = round4(float64(n) / 65535)
			}
			if raw, ok := msg.Attributes[attrCurrentY]; ok {
				n, okN := zcl.ToInt64(raw)
				if !okN {
					return nil, capability.Decodef("color: unexpected y value %T", raw)
				}
				color["y"] = round4(float64(n) / 65535)
			}
			if raw, ok := msg.Attributes[attrCurrentHue]; ok {
				n, okN := zcl.ToInt64(raw)
				if !okN {
					return nil, capability.Decodef("color: unexpected hue value %T", raw)
				}
				color["hue"] = round4(float64(n) * 360 / 254)
			}
			if raw, ok := msg.Attributes[attrEnhancedHue]; ok {
				n, okN := zcl.ToInt64(raw)
				if !okN {
					return nil, capability.Decodef("color: unexpected hue value %T", raw)
				}
				color["hue"] = round4(float64(n) * 360 / 65535)
			}
			if raw, ok := msg.Attributes[attrCurrentSat]; ok {
				n, okN := zcl.ToInt64(raw)
				if !okN {
					return nil, capability.Decodef("color: unexpected saturation value %T", raw)
				}
				color["saturation"] = round4(float64(n) * 100 / 254)
			}
			if len(color) == 0 {
				return nil, nil
			}
			return capability.State{"color": color}, nil
		},
	}

	encoder := capability.Encoder{
		Key: "color",
		Set: func(ctx context.Context, rt *capability.Context, value any) (capability.State, error) {
			m, ok := value.(map[string]any)
			if !ok {
				return nil, capability.Configf("color: value must be an object, got %T", value)
			}
			ep, err := serverEndpoint(rt, zcl.ClusterColorControl)
			if err != nil {
				return nil, err
			}
			x, hasX := zcl.ToFloat(m["x"])
			y, hasY := zcl.ToFloat(m["y"])
			if hasX && hasY {
				if !args.ColorXY {
					return nil, capability.Configf("color: device does not support xy color")
				}
				payload := append(uint16LE(uint16(x*65535)), uint16LE(uint16(y*65535))...)
				payload = append(payload, transitionBytes(rt)...)
				if err := ep.Command(ctx, zcl.ClusterColorControl, cmdMoveToColor, payload); err != nil {
					return nil, err
				}
				return capability.State{"color": map[string]any{"x": round4(x), "y": round4(y)}}, nil
			}
			hue, hasHue := zcl.ToFloat(m["hue"])
			sat, hasSat := zcl.ToFloat(m["saturation"])
			if hasHue && hasSat {
				if !args.ColorHS {
					return nil, capability.Configf("color: device does not support hue/saturation color")
				}
				satRaw := uint8(math.Min(254, sat*254/100))
				var payload []byte
				cmd := cmdMoveToHueAndSaturation
				if args.EnhancedHue {
					cmd = cmdEnhancedMoveToHueSat
					payload = append(uint16LE(uint16(hue*65535/360)), satRaw)
				} else {
					payload = []byte{uint8(hue * 254 / 360), satRaw}
				}
				payload = append(payload, transitionBytes(rt)...)
				if err := ep.Command(ctx, zcl.ClusterColorControl, cmd, payload); err != nil {
					return nil, err
				}
				return capability.State{"color": map[string]any{"hue": round4(hue), "saturation": round4(sat)}}, nil
			}
			return nil, capability.Configf("color: need x/y or hue/saturation fields")
		},
		Get: func(ctx context.Context, rt *capability.Context) error {
			attrs := []uint16{}
			if args.ColorXY {
				attrs = append(attrs, attrCurrentX, attrCurrentY)
			}
			if args.ColorHS {
				attrs = append(attrs, attrCurrentHue, attrCurrentSat)
			}
			ep, err := serverEndpoint(rt, zcl.ClusterColorControl)
			if err != nil {
				return err
			}
			results, err := ep.Read(ctx, zcl.ClusterColorControl, attrs)
			if err != nil {
				return err
			}
			rt.DispatchReadResponse(ep, zcl.ClusterColorControl, results)
			return nil
		},
	}

	return &capability.Bundle{
		Descriptors: []*capability.Descriptor{desc},
		Decoders:    []capability.Decoder{decoder},
		Encoders:    []capability.Encoder{encoder},
	}
}

func effectBundle() *capability.Bundle {
	names := make([]string, 0, len(effectLookup))
	for name := range effectLookup {
		names = append(names, name)
	}
	sort.Strings(names)
	desc := capability.NewEnum("effect", names...).
		WithAccess(capability.AccessWrite).
		WithDescription("Triggers a light effect")

	encoder := capability.Encoder{
		Key: "effect",
		Set: func(ctx context.Context, rt *capability.Context, value any) (capability.State, error) {
			s, _ := value.(string)
			e, ok := effectLookup[s]
			if !ok {
				return nil, capability.Configf("effect: unknown effect %v", value)
			}
			ep, err := serverEndpoint(rt, zcl.ClusterIdentify)
			if err != nil {
				return nil, err
			}
			// Momentary action, no state echo.
			return nil, ep.Command(ctx, zcl.ClusterIdentify, cmdTriggerEffect, []byte{e.effect, e.variant})
		},
	}

	return &capability.Bundle{
		Descriptors: []*capability.Descriptor{desc},
		Encoders:    []capability.Encoder{encoder},
	}
}

func serverEndpoint(rt *capability.Context, clusterID uint16) (*device.Endpoint, error) {
	if eps := rt.Device.EndpointsWithInputCluster(clusterID); len(eps) > 0 {
		return eps[0], nil
	}
	if ep := rt.Device.FirstEndpoint(); ep != nil {
		return ep, nil
	}
	return nil, capability.Configf("device %s: no endpoints", rt.Device.IEEE)
}

func readThrough(ctx context.Context, rt *capability.Context, clusterID uint16, attrs ...uint16) error {
	ep, err := serverEndpoint(rt, clusterID)
	if err != nil {
		return err
	}
	results, err := ep.Read(ctx, clusterID, attrs)
	if err != nil {
		return err
	}
	rt.DispatchReadResponse(ep, clusterID, results)
	return nil
}

// transitionBytes encodes the configured transition time in tenths of a
// second, defaulting to an immediate move.
func transitionBytes(rt *capability.Context) []byte {
	seconds := rt.Options.Float("transition", 0)
	return uint16LE(uint16(seconds * 10))
}

func uint16LE(v uint16) []byte {
	return []byte{byte(v), byte(v >> 8)}
}

func round4(v float64) float64 {
	return math.Floor(v*10000+0.5) / 10000
}
