package capability

import (
	"context"

	"zigbee-bridge/internal/device"
	"zigbee-bridge/internal/zcl"
)

// NumericArgs declares a numeric capability backed by one attribute.
type NumericArgs struct {
	Name        string
	Cluster     uint16
	Attr        zcl.AttrRef
	Kinds       []MessageKind // defaults to attribute-report + read-response
	Access      Access        // defaults to read+report
	Endpoints   []string      // endpoint qualifiers for multi-endpoint devices
	Scale       ScaleFunc
	Precision   *int
	Unit        string
	Min, Max    *float64
	Reporting   *ReportingSpec
	Description string
}

// BuildNumeric turns a numeric spec into a bundle: descriptor(s), a scaled
// decoder, access-gated encoders and an optional configurator.
func BuildNumeric(args NumericArgs) (*Bundle, error) {
	if args.Name == "" {
		return nil, Configf("numeric capability needs a name")
	}
	access := args.Access
	if access == 0 {
		access = AccessRead | AccessReport
	}
	kinds := defaultKinds(args.Kinds)

	proto := NewNumeric(args.Name).WithAccess(access).WithDescription(args.Description)
	if args.Unit != "" {
		proto.WithUnit(args.Unit)
	}
	proto.Min = args.Min
	proto.Max = args.Max
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
			f, ok := zcl.ToFloat(raw)
			if !ok {
				return nil, Decodef("%s: non-numeric raw value %T", args.Name, raw)
			}
			v, err := applyScale(args.Name, f, args.Scale, args.Precision, FromDevice)
			if err != nil {
				return nil, err
			}
			return State{PropertyKey(args.Name, qualifier): v}, nil
		},
	}

	var encoders []Encoder
	for _, d := range descriptors {
		qualifier := d.Endpoint
		enc := Encoder{Key: d.Property()}
		if access&AccessWrite != 0 {
			enc.Set = func(ctx context.Context, rt *Context, value any) (State, error) {
				f, ok := zcl.ToFloat(value)
				if !ok {
					return nil, Configf("%s: write expects a number, got %T", args.Name, value)
				}
				if args.Precision != nil {
					f = RoundTo(f, *args.Precision)
				}
				wire, err := applyScale(args.Name, f, args.Scale, nil, ToDevice)
				if err != nil {
					return nil, err
				}
				if args.Attr.Type != zcl.TypeFloat32 && args.Attr.Type != zcl.TypeFloat64 {
					wire = RoundTo(wire, 0)
				}
				ep, err := resolveEndpoint(rt, qualifier, args.Cluster)
				if err != nil {
					return nil, err
				}
				if err := ep.Write(ctx, args.Cluster, []device.WriteRecord{{Attr: args.Attr, Value: wire}}); err != nil {
					return nil, err
				}
				// State carries the capability-facing value, not the wire value.
				return State{PropertyKey(args.Name, qualifier): f}, nil
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
