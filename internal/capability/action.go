package capability

import (
	"fmt"
	"sort"

	"zigbee-bridge/internal/zcl"
)

// ActionArgs declares a sensor-only action capability: momentary events
// (button presses, scene recalls) decoded from an attribute or from
// cluster commands. No encoder is ever built.
type ActionArgs struct {
	Name         string        // capability name, defaults to "action"
	Cluster      uint16
	Attr         *zcl.AttrRef  // attribute carrying the value, for report kinds
	PayloadField string        // command payload field, defaults to "value"
	Kinds        []MessageKind // explicit list; action events may be distinct commands
	Lookup       map[int64]string
	Endpoints    []string // qualifiers appended as suffixes to disambiguate buttons
	ButtonField  string   // command payload field carrying a button index
	Description  string
}

// BuildAction turns an action spec into a bundle. Events decode through the
// lookup and are suffixed with the endpoint name or button index when the
// device has several buttons.
func BuildAction(args ActionArgs) (*Bundle, error) {
	if len(args.Lookup) == 0 {
		return nil, Configf("action capability needs a lookup table")
	}
	name := args.Name
	if name == "" {
		name = "action"
	}
	payloadField := args.PayloadField
	if payloadField == "" {
		payloadField = "value"
	}
	kinds := defaultKinds(args.Kinds)

	base := make([]string, 0, len(args.Lookup))
	for _, v := range args.Lookup {
		base = append(base, v)
	}
	sort.Strings(base)
	values := base
	if len(args.Endpoints) > 0 {
		values = make([]string, 0, len(base)*len(args.Endpoints))
		for _, v := range base {
			for _, q := range args.Endpoints {
				values = append(values, v+"_"+q)
			}
		}
	}

	descriptor := NewEnum(name, values...).
		WithAccess(AccessReport).
		WithDescription(args.Description)

	decoder := Decoder{
		Name:      name,
		ClusterID: args.Cluster,
		Kinds:     kinds,
		Decode: func(rt *Context, msg *Message) (State, error) {
			var raw any
			var ok bool
			if args.Attr != nil && msg.Attributes != nil {
				raw, ok = msg.Attributes[args.Attr.ID]
			}
			if !ok && msg.Payload != nil {
				raw, ok = msg.Payload[payloadField]
			}
			if !ok {
				return nil, nil
			}
			wire, ok := zcl.ToInt64(raw)
			if !ok {
				return nil, Decodef("%s: non-numeric raw value %T", name, raw)
			}
			action, ok := args.Lookup[wire]
			if !ok {
				return nil, Decodef("%s: wire value %d not in lookup", name, wire)
			}

			// Multi-button disambiguation: endpoint qualifier first, then an
			// explicit button index from the command payload.
			if len(args.Endpoints) > 0 && msg.Endpoint != nil {
				if q := rt.Device.NameOfEndpoint(msg.Endpoint.ID()); q != "" {
					action = action + "_" + q
				}
			} else if args.ButtonField != "" && msg.Payload != nil {
				if idx, ok := zcl.ToInt64(msg.Payload[args.ButtonField]); ok {
					action = fmt.Sprintf("%s_%d", action, idx)
				}
			}
			return State{name: action}, nil
		},
	}

	return &Bundle{
		Descriptors: []*Descriptor{descriptor},
		Decoders:    []Decoder{decoder},
	}, nil
}
