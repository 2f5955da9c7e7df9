package capability

import (
	"context"

	"zigbee-bridge/internal/device"
	"zigbee-bridge/internal/zcl"
)

// BinaryArgs declares a binary capability backed by an on/off value pair.
// On/Off are the capability-facing values, WireOn/WireOff the raw pair on
// the attribute (both default to true/false).
type BinaryArgs struct {
	Name        string
	Cluster     uint16
	Attr        zcl.AttrRef
	Kinds       []MessageKind
	Access      Access
	Endpoints   []string
	On, Off     any
	WireOn      any
	WireOff     any
	Reporting   *ReportingSpec
	Description string
}

// BuildBinary turns a binary spec into a bundle. A raw value matching
// neither side of the pair is a decode anomaly.
func BuildBinary(args BinaryArgs) (*Bundle, error) {
	if args.Name == "" {
		return nil, Configf("binary capability needs a name")
	}
	access := args.Access
	if access == 0 {
		access = AccessRead | AccessReport
	}
	kinds := defaultKinds(args.Kinds)

	on, off := args.On, args.Off
	if on == nil {
		on = true
	}
	if off == nil {
		off = false
	}
	wireOn, wireOff := args.WireOn, args.WireOff
	if wireOn == nil {
		wireOn = true
	}
	if wireOff == nil {
		wireOff = false
	}

	proto := NewBinary(args.Name, on, off).WithAccess(access).WithDescription(args.Description)
	descriptors := stampDescriptors(proto, args.Endpoints)

	decoder := Decoder{
		Name:      args.Name,
		ClusterID: args.Cluster,
		Kinds:     kinds,
		Decode: func(rt *Context, msg *Message) (State, error) {
			raw, ok := msg.Attributes[args.Attr.ID]
			if !ok {
				return nil, nil
			}
			qualifier, ok := matchQualifier(rt, msg, args.Endpoints)
			if !ok {
				return nil, nil
			}
			key := PropertyKey(args.Name, qualifier)
			switch {
			case looseEqual(raw, wireOn):
				return State{key: on}, nil
			case looseEqual(raw, wireOff):
				return State{key: off}, nil
			default:
				return nil, Decodef("%s: raw value %v matches neither %v nor %v", args.Name, raw, wireOn, wireOff)
			}
		},
	}

	var encoders []Encoder
	for _, d := range descriptors {
		qualifier := d.Endpoint
		enc := Encoder{Key: d.Property()}
		if access&AccessWrite != 0 {
			enc.Set = func(ctx context.Context, rt *Context, value any) (State, error) {
				var wire any
				switch {
				case looseEqual(value, on):
					wire = wireOn
				case looseEqual(value, off):
					wire = wireOff
				default:
					return nil, Configf("%s: value %v is neither %v nor %v", args.Name, value, on, off)
				}
				ep, err := resolveEndpoint(rt, qualifier, args.Cluster)
				if err != nil {
					return nil, err
				}
				if err := ep.Write(ctx, args.Cluster, []device.WriteRecord{{Attr: args.Attr, Value: wire}}); err != nil {
					return nil, err
				}
				result := on
				if looseEqual(value, off) {
					result = off
				}
				return State{PropertyKey(args.Name, qualifier): result}, nil
			}
		}
		if access&AccessRead != 0 {
			enc.Get = func(ctx context.Context, rt *Context) error {
				ep, err := resolveEndpoint(rt, qualifier, args.Cluster)
				if err != nil {
					return err
				}
				return readAndDispatch(ctx, rt, ep, args.Cluster, []uint16{args.Attr.ID})
			}
		}
		encoders = append(encoders, enc)
	}

	configure, err := builderConfigurator(args.Cluster, args.Attr, args.Endpoints, args.Reporting, access)
	if err != nil {
		return nil, err
	}

	return &Bundle{
		Descriptors: descriptors,
		Decoders:    []Decoder{decoder},
		Encoders:    encoders,
		Configure:   configure,
	}, nil
}
