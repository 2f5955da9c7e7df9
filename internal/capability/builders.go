package capability

import (
	"context"

	"zigbee-bridge/internal/device"
	"zigbee-bridge/internal/zcl"
)

// ReportingSpec is the declarative subscription part of a builder spec.
// The attribute is implied by the capability.
type ReportingSpec struct {
	Min    Interval
	Max    Interval
	Change Change
}

// Int returns a pointer to n, for optional spec fields.
func Int(n int) *int {
	return &n
}

// Float64 returns a pointer to v, for optional spec fields.
func Float64(v float64) *float64 {
	return &v
}

func defaultKinds(kinds []MessageKind) []MessageKind {
	if len(kinds) > 0 {
		return kinds
	}
	return []MessageKind{AttributeReport, ReadResponse}
}

// stampDescriptors instantiates the prototype once per endpoint qualifier,
// or exactly once unqualified.
func stampDescriptors(proto *Descriptor, endpoints []string) []*Descriptor {
	if len(endpoints) == 0 {
		return []*Descriptor{proto}
	}
	out := make([]*Descriptor, 0, len(endpoints))
	for _, q := range endpoints {
		out = append(out, proto.Clone().WithEndpoint(q))
	}
	return out
}

// matchQualifier routes a message to the endpoint qualifier it belongs to.
// With no qualifiers every endpoint matches. An unmatched endpoint is a
// no-op, not an error.
func matchQualifier(rt *Context, msg *Message, endpoints []string) (string, bool) {
	if len(endpoints) == 0 {
		return "", true
	}
	if msg.Endpoint == nil {
		return "", false
	}
	name := rt.Device.NameOfEndpoint(msg.Endpoint.ID())
	for _, q := range endpoints {
		if q == name {
			return q, true
		}
	}
	return "", false
}

// resolveEndpoint picks the endpoint an encoder or configurator operates
// on: the named endpoint for a qualified capability, otherwise the first
// endpoint serving the cluster.
func resolveEndpoint(rt *Context, qualifier string, clusterID uint16) (*device.Endpoint, error) {
	if qualifier != "" {
		ep := rt.Device.EndpointByName(qualifier)
		if ep == nil {
			return nil, Configf("device %s: endpoint qualifier %q not mapped", rt.Device.IEEE, qualifier)
		}
		return ep, nil
	}
	if eps := rt.Device.EndpointsWithInputCluster(clusterID); len(eps) > 0 {
		return eps[0], nil
	}
	if ep := rt.Device.FirstEndpoint(); ep != nil {
		return ep, nil
	}
	return nil, Configf("device %s: no endpoints", rt.Device.IEEE)
}

// looseEqual compares two scalar values, treating all numeric types as
// interchangeable.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	if af, ok := zcl.ToFloat(a); ok {
		if _, isBool := a.(bool); !isBool {
			if bf, ok := zcl.ToFloat(b); ok {
				if _, isBool := b.(bool); !isBool {
					return af == bf
				}
			}
			return false
		}
	}
	return a == b
}

// readAndDispatch issues a bare attribute read and feeds the result back
// through the decode path. The get-path returns nothing directly.
func readAndDispatch(ctx context.Context, rt *Context, ep *device.Endpoint, clusterID uint16, attrIDs []uint16) error {
	results, err := ep.Read(ctx, clusterID, attrIDs)
	if err != nil {
		return err
	}
	rt.DispatchReadResponse(ep, clusterID, results)
	return nil
}

// builderConfigurator assembles the standard builder configurator: bind and
// subscribe when a reporting spec is declared, best-effort read when the
// capability is individually readable. Returns nil when neither applies —
// its absence tells composites not to invoke it.
func builderConfigurator(clusterID uint16, attr zcl.AttrRef, endpoints []string, reporting *ReportingSpec, access Access) (Configurator, error) {
	doConfigure := reporting != nil
	doRead := access&AccessRead != 0
	if !doConfigure && !doRead {
		return nil, nil
	}

	var configs []ReportingConfig
	if doConfigure {
		rc := ReportingConfig{Attr: attr, Min: reporting.Min, Max: reporting.Max, Change: reporting.Change}
		// Resolve once up front so a bad symbolic time fails at build time.
		if _, err := rc.Resolve(); err != nil {
			return nil, err
		}
		configs = []ReportingConfig{rc}
	} else {
		configs = []ReportingConfig{{Attr: attr}}
	}

	return func(ctx context.Context, rt *Context, coord device.BindTarget) error {
		if len(endpoints) == 0 {
			return SetupReporting(ctx, DeviceTarget(rt.Device), coord, clusterID, configs, doConfigure, doRead, rt.Logger)
		}
		for _, q := range endpoints {
			ep, err := resolveEndpoint(rt, q, clusterID)
			if err != nil {
				return err
			}
			if err := SetupReporting(ctx, EndpointTarget(ep), coord, clusterID, configs, doConfigure, doRead, rt.Logger); err != nil {
				return err
			}
		}
		return nil
	}, nil
}
