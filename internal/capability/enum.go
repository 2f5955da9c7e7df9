package capability

import (
	"context"
	"sort"

	"zigbee-bridge/internal/device"
	"zigbee-bridge/internal/zcl"
)

// EnumArgs declares an enum capability backed by a name<->wire lookup table.
type EnumArgs struct {
	Name        string
	Cluster     uint16
	Attr        zcl.AttrRef
	Kinds       []MessageKind
	Access      Access
	Endpoints   []string
	Lookup      map[string]int64 // capability value -> wire value
	Reporting   *ReportingSpec
	Description string
}

// BuildEnum turns an enum spec into a bundle. Decode of a wire value absent
// from the lookup is a decode anomaly; encode of an unknown capability value
// rejects the write. Neither falls back to a default.
func BuildEnum(args EnumArgs) (*Bundle, error) {
	if args.Name == "" {
		return nil, Configf("enum capability needs a name")
	}
	if len(args.Lookup) == 0 {
		return nil, Configf("enum capability %s needs a lookup table", args.Name)
	}
	access := args.Access
	if access == 0 {
		access = AccessRead | AccessReport
	}
	kinds := defaultKinds(args.Kinds)

	values := make([]string, 0, len(args.Lookup))
	reverse := make(map[int64]string, len(args.Lookup))
	for name, wire := range args.Lookup {
		values = append(values, name)
		reverse[wire] = name
	}
	sort.Strings(values)

	proto := NewEnum(args.Name, values...).WithAccess(access).WithDescription(args.Description)
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
			wire, ok := zcl.ToInt64(raw)
			if !ok {
				return nil, Decodef("%s: non-numeric raw value %T", args.Name, raw)
			}
			name, ok := reverse[wire]
			if !ok {
				return nil, Decodef("%s: wire value %d not in lookup", args.Name, wire)
			}
			return State{PropertyKey(args.Name, qualifier): name}, nil
		},
	}

	var encoders []Encoder
	for _, d := range descriptors {
		qualifier := d.Endpoint
		enc := Encoder{Key: d.Property()}
		if access&AccessWrite != 0 {
			enc.Set = func(ctx context.Context, rt *Context, value any) (State, error) {
				name, ok := value.(string)
				if !ok {
					return nil, Configf("%s: write expects a string, got %T", args.Name, value)
				}
				wire, ok := args.Lookup[name]
				if !ok {
					return nil, Configf("%s: value %q not in lookup", args.Name, name)
				}
				ep, err := resolveEndpoint(rt, qualifier, args.Cluster)
				if err != nil {
					return nil, err
				}
				if err := ep.Write(ctx, args.Cluster, []device.WriteRecord{{Attr: args.Attr, Value: wire}}); err != nil {
					return nil, err
				}
				return State{PropertyKey(args.Name, qualifier): name}, nil
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
