package capability

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"zigbee-bridge/internal/device"
	"zigbee-bridge/internal/zcl"
)

// Symbolic reporting windows. "min" reports on every change; "max" disables
// periodic reporting while still allowing change-triggered reports.
var intervalTable = map[string]uint16{
	"min":        0,
	"30_seconds": 30,
	"1_minute":   60,
	"5_minutes":  300,
	"10_minutes": 600,
	"30_minutes": 1800,
	"1_hour":     3600,
	"6_hours":    21600,
	"12_hours":   43200,
	"1_day":      0xFFFE, // the uint16 wire field tops out short of 24h
	"max":        0xFFFF,
}

// Interval is a reporting time window: either a literal second count or a
// symbolic name resolved at bundle build time.
type Interval struct {
	symbol  string
	seconds uint16
	literal bool
}

// Seconds builds a literal interval.
func Seconds(n uint16) Interval {
	return Interval{seconds: n, literal: true}
}

// Symbol builds a symbolic interval ("min", "1_hour", "max", ...).
func Symbol(name string) Interval {
	return Interval{symbol: name}
}

// Resolve returns the interval in seconds. An unknown symbolic name is a
// ConfigError.
func (i Interval) Resolve() (uint16, error) {
	if i.literal {
		return i.seconds, nil
	}
	secs, ok := intervalTable[i.symbol]
	if !ok {
		known := make([]string, 0, len(intervalTable))
		for k := range intervalTable {
			known = append(known, k)
		}
		sort.Strings(known)
		return 0, Configf("unknown reporting interval %q (known: %v)", i.symbol, known)
	}
	return secs, nil
}

// Change is a reportable-change threshold. Wide attributes (48-bit
// cumulative energy) carry a {low, high} word pair because their wire width
// exceeds a plain threshold's range.
type Change struct {
	value  float64
	low    uint32
	high   uint32
	isPair bool
}

// ChangeValue builds a plain threshold.
func ChangeValue(v float64) Change {
	return Change{value: v}
}

// ChangePair builds a {low, high} word-pair threshold for wide attributes.
func ChangePair(low, high uint32) Change {
	return Change{low: low, high: high, isPair: true}
}

// Value returns the plain threshold value (zero for pairs).
func (c Change) Value() float64 {
	return c.value
}

// Scaled returns a copy with the plain threshold multiplied by factor.
// Pair thresholds are returned unchanged.
func (c Change) Scaled(factor float64) Change {
	if c.isPair {
		return c
	}
	return Change{value: c.value * factor}
}

// Encode renders the threshold in the attribute's wire width,
// little-endian. Pair thresholds must match a 6-byte attribute.
func (c Change) Encode(attrType uint8) ([]byte, error) {
	width := zcl.TypeSize(attrType)
	if width <= 0 {
		return nil, Configf("reportable change for non-analog type %s", zcl.TypeName(attrType))
	}
	var raw uint64
	if c.isPair {
		if width != 6 {
			return nil, Configf("pair threshold needs a 48-bit attribute, got %s", zcl.TypeName(attrType))
		}
		raw = uint64(c.high)<<32 | uint64(c.low)
	} else {
		raw = uint64(math.Floor(c.value + 0.5))
		// A nonzero threshold must stay nonzero on the wire: raw 0 means
		// "report every change", which a sub-unit threshold never asked for.
		if raw == 0 && c.value > 0 {
			raw = 1
		}
	}
	out := make([]byte, width)
	for i := 0; i < width; i++ {
		out[i] = byte(raw >> (8 * i))
	}
	return out, nil
}

// ReportingConfig is one attribute subscription: time window plus change
// threshold.
type ReportingConfig struct {
	Attr   zcl.AttrRef
	Min    Interval
	Max    Interval
	Change Change
}

// Resolve validates the config and renders the transport-level record.
func (rc ReportingConfig) Resolve() (device.ReportingRecord, error) {
	min, err := rc.Min.Resolve()
	if err != nil {
		return device.ReportingRecord{}, err
	}
	max, err := rc.Max.Resolve()
	if err != nil {
		return device.ReportingRecord{}, err
	}
	change, err := rc.Change.Encode(rc.Attr.Type)
	if err != nil {
		return device.ReportingRecord{}, err
	}
	return device.ReportingRecord{
		Attr:             rc.Attr,
		MinInterval:      min,
		MaxInterval:      max,
		ReportableChange: change,
	}, nil
}

// Target is the scope a reporting configurator operates on: a whole device
// (every endpoint serving the cluster) or one endpoint.
type Target interface {
	ReportingEndpoints(clusterID uint16) ([]*device.Endpoint, error)
}

type deviceTarget struct {
	dev *device.Device
}

func (t deviceTarget) ReportingEndpoints(clusterID uint16) ([]*device.Endpoint, error) {
	eps := t.dev.EndpointsWithInputCluster(clusterID)
	if len(eps) == 0 {
		return nil, Configf("device %s: no endpoint with input cluster 0x%04X", t.dev.IEEE, clusterID)
	}
	return eps, nil
}

// DeviceTarget scopes reporting setup to every endpoint of the device that
// serves the cluster; resolving fails if none does.
func DeviceTarget(d *device.Device) Target {
	return deviceTarget{dev: d}
}

type endpointTarget struct {
	ep *device.Endpoint
}

func (t endpointTarget) ReportingEndpoints(uint16) ([]*device.Endpoint, error) {
	return []*device.Endpoint{t.ep}, nil
}

// EndpointTarget scopes reporting setup to one endpoint.
func EndpointTarget(ep *device.Endpoint) Target {
	return endpointTarget{ep: ep}
}

// SetupReporting binds each target endpoint to the coordinator and writes
// the resolved reporting configuration; with doRead it additionally issues
// a best-effort read of the same attributes. Read failures are logged and
// swallowed — they never abort the overall configuration. Bind/configure
// failures are fatal.
func SetupReporting(ctx context.Context, target Target, coord device.BindTarget, clusterID uint16, configs []ReportingConfig, doConfigure, doRead bool, logger *slog.Logger) error {
	var records []device.ReportingRecord
	attrIDs := make([]uint16, 0, len(configs))
	for _, rc := range configs {
		if doConfigure {
			rec, err := rc.Resolve()
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		attrIDs = append(attrIDs, rc.Attr.ID)
	}

	endpoints, err := target.ReportingEndpoints(clusterID)
	if err != nil {
		return err
	}

	for _, ep := range endpoints {
		if doConfigure {
			if err := ep.Bind(ctx, clusterID, coord); err != nil {
				return fmt.Errorf("bind cluster 0x%04X on ep %d: %w", clusterID, ep.ID(), err)
			}
			if err := ep.ConfigureReporting(ctx, clusterID, records); err != nil {
				return fmt.Errorf("configure reporting on cluster 0x%04X ep %d: %w", clusterID, ep.ID(), err)
			}
		}
		if doRead && len(attrIDs) > 0 {
			if _, err := ep.Read(ctx, clusterID, attrIDs); err != nil {
				logger.Warn("post-configure read failed",
					"cluster", fmt.Sprintf("0x%04X", clusterID),
					"ep", ep.ID(), "err", err)
			}
		}
	}
	return nil
}
