package extend

import (
	"context"
	"fmt"

	"zigbee-bridge/internal/capability"
	"zigbee-bridge/internal/device"
	"zigbee-bridge/internal/zcl"
)

const (
	attrOnOff        uint16 = 0x0000
	attrStartUpOnOff uint16 = 0x4003

	cmdOff    uint8 = 0x00
	cmdOn     uint8 = 0x01
	cmdToggle uint8 = 0x02
)

var powerOnBehaviorLookup = map[string]int64{
	"off":      0,
	"on":       1,
	"toggle":   2,
	"previous": 255,
}

// OnOffArgs configures the on/off composite.
type OnOffArgs struct {
	Endpoints       []string // qualifiers for multi-gang devices
	PowerOnBehavior bool
}

// OnOff builds the on/off composite: ON/OFF state decode plus command-based
// encode, an optional power-on-behavior capability, and a configurator that
// subscribes on/off on every change and best-effort reads the startup
// behavior.
func OnOff(args OnOffArgs) (*capability.Bundle, error) {
	stateDesc := capability.NewBinary("state", "ON", "OFF").
		WithAccess(capability.AccessRead | capability.AccessWrite | capability.AccessReport).
		WithDescription("On/off state of the switch")
	descriptors := []*capability.Descriptor{}
	qualifiers := args.Endpoints
	if len(qualifiers) == 0 {
		descriptors = append(descriptors, stateDesc)
	} else {
		for _, q := range qualifiers {
			descriptors = append(descriptors, stateDesc.Clone().WithEndpoint(q))
		}
	}

	decoder := capability.Decoder{
		Name:      "state",
		ClusterID: zcl.ClusterOnOff,
		Kinds:     []capability.MessageKind{capability.AttributeReport, capability.ReadResponse},
		Decode: func(rt *capability.Context, msg *capability.Message) (capability.State, error) {
			raw, ok := msg.Attributes[attrOnOff]
			if !ok {
				return nil, nil
			}
			qualifier := ""
			if len(qualifiers) > 0 {
				if msg.Endpoint == nil {
					return nil, nil
				}
				qualifier = rt.Device.NameOfEndpoint(msg.Endpoint.ID())
				if !containsString(qualifiers, qualifier) {
					return nil, nil
				}
			}
			on, ok := raw.(bool)
			if !ok {
				if n, okN := zcl.ToInt64(raw); okN {
					on, ok = n != 0, true
				}
			}
			if !ok {
				return nil, capability.Decodef("state: unexpected raw value %T", raw)
			}
			value := "OFF"
			if on {
				value = "ON"
			}
			return capability.State{capability.PropertyKey("state", qualifier): value}, nil
		},
	}

	var encoders []capability.Encoder
	for _, d := range descriptors {
		qualifier := d.Endpoint
		encoders = append(encoders, capability.Encoder{
			Key: d.Property(),
			Set: func(ctx context.Context, rt *capability.Context, value any) (capability.State, error) {
				ep, err := onOffEndpoint(rt, qualifier)
				if err != nil {
					return nil, err
				}
				s, _ := value.(string)
				switch s {
				case "ON":
					if err := ep.Command(ctx, zcl.ClusterOnOff, cmdOn, nil); err != nil {
						return nil, err
					}
					return capability.State{capability.PropertyKey("state", qualifier): "ON"}, nil
				case "OFF":
					if err := ep.Command(ctx, zcl.ClusterOnOff, cmdOff, nil); err != nil {
						return nil, err
					}
					return capability.State{capability.PropertyKey("state", qualifier): "OFF"}, nil
				case "TOGGLE":
					// Resulting state is unknown until the device reports.
					return nil, ep.Command(ctx, zcl.ClusterOnOff, cmdToggle, nil)
				default:
					return nil, capability.Configf("state: value %v is not ON/OFF/TOGGLE", value)
				}
			},
			Get: func(ctx context.Context, rt *capability.Context) error {
				ep, err := onOffEndpoint(rt, qualifier)
				if err != nil {
					return err
				}
				results, err := ep.Read(ctx, zcl.ClusterOnOff, []uint16{attrOnOff})
				if err != nil {
					return err
				}
				rt.DispatchReadResponse(ep, zcl.ClusterOnOff, results)
				return nil
			},
		})
	}

	bundle := &capability.Bundle{
		Descriptors: descriptors,
		Decoders:    []capability.Decoder{decoder},
		Encoders:    encoders,
	}

	if args.PowerOnBehavior {
		pob, err := capability.BuildEnum(capability.EnumArgs{
			Name:        "power_on_behavior",
			Cluster:     zcl.ClusterOnOff,
			Attr:        zcl.AttrRef{ID: attrStartUpOnOff, Type: zcl.TypeEnum8},
			Access:      capability.AccessRead | capability.AccessWrite,
			Lookup:      powerOnBehaviorLookup,
			Description: "State after a power outage",
		})
		if err != nil {
			return nil, err
		}
		// The composite configurator below owns the startup-behavior read so
		// it can swallow the unsupported-attribute fault.
		pob.Configure = nil
		bundle, err = capability.Merge(bundle, pob)
		if err != nil {
			return nil, err
		}
	}

	readStartup := args.PowerOnBehavior
	bundle.Configure = func(ctx context.Context, rt *capability.Context, coord device.BindTarget) error {
		configs := []capability.ReportingConfig{{
			Attr:   zcl.AttrRef{ID: attrOnOff, Type: zcl.TypeBool},
			Min:    capability.Symbol("min"),
			Max:    capability.Symbol("max"),
			Change: capability.ChangeValue(0),
		}}
		if err := capability.SetupReporting(ctx, capability.DeviceTarget(rt.Device), coord,
			zcl.ClusterOnOff, configs, true, true, rt.Logger); err != nil {
			return err
		}
		if !readStartup {
			return nil
		}
		for _, ep := range rt.Device.EndpointsWithInputCluster(zcl.ClusterOnOff) {
			results, err := ep.Read(ctx, zcl.ClusterOnOff, []uint16{attrStartUpOnOff})
			if err != nil {
				return fmt.Errorf("read startup behavior: %w", err)
			}
			for _, r := range results {
				if r.Status != zcl.StatusSuccess {
					statusErr := &capability.StatusError{Op: "read StartUpOnOff", Status: r.Status}
					if capability.IsUnsupportedAttribute(statusErr) {
						rt.Logger.Debug("startup behavior unsupported", "device", rt.Device.IEEE, "ep", ep.ID())
						continue
					}
					return statusErr
				}
			}
			rt.DispatchReadResponse(ep, zcl.ClusterOnOff, results)
		}
		return nil
	}

	return bundle, nil
}

func onOffEndpoint(rt *capability.Context, qualifier string) (*device.Endpoint, error) {
	if qualifier != "" {
		ep := rt.Device.EndpointByName(qualifier)
		if ep == nil {
			return nil, capability.Configf("device %s: endpoint qualifier %q not mapped", rt.Device.IEEE, qualifier)
		}
		return ep, nil
	}
	if eps := rt.Device.EndpointsWithInputCluster(zcl.ClusterOnOff); len(eps) > 0 {
		return eps[0], nil
	}
	if ep := rt.Device.FirstEndpoint(); ep != nil {
		return ep, nil
	}
	return nil, capability.Configf("device %s: no endpoints", rt.Device.IEEE)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
