package extend

import (
	"time"

	"zigbee-bridge/internal/capability"
	"zigbee-bridge/internal/zcl"
)

const (
	attrZoneStatus uint16 = 0x0002

	zoneStatusField = "zone_status"

	defaultZoneTimeout = 90 * time.Second
)

// zoneStatus bitmap bits, in wire order.
var zoneBits = map[string]uint{
	"alarm_1":             0,
	"alarm_2":             1,
	"tamper":              2,
	"battery_low":         3,
	"supervision_reports": 4,
	"restore_reports":     5,
	"trouble":             6,
	"ac_status":           7,
	"test":                8,
	"battery_defect":      9,
}

type zoneAlarm struct {
	name   string
	invert bool // set bit means the "off" capability value (door closed etc.)
}

// zoneTypes renames the generic alarm-1 bit after what the sensor actually
// detects. alarm_2 keeps its generic name unless the type says otherwise, so
// sensors that genuinely use both alarms expose two distinct capabilities.
var zoneTypes = map[string]zoneAlarm{
	"generic":         {name: "alarm_1"},
	"contact":         {name: "contact", invert: true},
	"motion":          {name: "occupancy"},
	"smoke":           {name: "smoke"},
	"water_leak":      {name: "water_leak"},
	"gas":             {name: "gas"},
	"carbon_monoxide": {name: "carbon_monoxide"},
	"vibration":       {name: "vibration"},
	"sos":             {name: "sos"},
}

// NoTimeout disables the auto-clear timer, for zones whose state is not
// transient (door contacts and the like).
func NoTimeout() *time.Duration {
	d := time.Duration(0)
	return &d
}

// IASZoneArgs configures the security-zone composite.
type IASZoneArgs struct {
	// ZoneType picks the alarm-1 renaming, see zoneTypes. Empty means
	// generic.
	ZoneType string
	// Statuses selects which bitmap bits become capabilities, named by
	// their generic bit names (alarm_1, alarm_2, tamper, battery_low, ...).
	Statuses []string
	// Timeout clears alarm_1/alarm_2 if the zone stays silent. nil uses the
	// 90 second default; an explicit 0 disables auto-clearing. The
	// ias_timeout option overrides either, per device.
	Timeout *time.Duration
}

// IASZone builds the security-zone composite: the zone-status bitmap is
// fanned out into named booleans, alarm bits are renamed after the zone
// type, and an optional transient-state timer flips the alarms back after
// silence. Zones push status changes on their own, so there is nothing to
// configure.
func IASZone(args IASZoneArgs) (*capability.Bundle, error) {
	zoneType := args.ZoneType
	if zoneType == "" {
		zoneType = "generic"
	}
	alarm1, ok := zoneTypes[zoneType]
	if !ok {
		return nil, capability.Configf("ias zone: unknown zone type %q", zoneType)
	}
	statuses := args.Statuses
	if len(statuses) == 0 {
		statuses = []string{"alarm_1", "battery_low"}
	}

	type exposed struct {
		key    string
		bit    uint
		invert bool
		alarm  bool // participates in the auto-clear timer
	}
	var bits []exposed
	for _, s := range statuses {
		bit, ok := zoneBits[s]
		if !ok {
			return nil, capability.Configf("ias zone: unknown status bit %q", s)
		}
		e := exposed{key: s, bit: bit}
		switch s {
		case "alarm_1":
			e.key, e.invert, e.alarm = alarm1.name, alarm1.invert, true
		case "alarm_2":
			e.alarm = true
		}
		bits = append(bits, e)
	}

	bundle := &capability.Bundle{}
	for _, e := range bits {
		bundle.Descriptors = append(bundle.Descriptors, capability.NewBinary(e.key, true, false).
			WithDescription("Zone status bit "+e.key))
	}

	defTimeout := defaultZoneTimeout
	if args.Timeout != nil {
		defTimeout = *args.Timeout
	}

	bundle.Decoders = append(bundle.Decoders, capability.Decoder{
		Name:      "zone_status",
		ClusterID: zcl.ClusterIASZone,
		Kinds: []capability.MessageKind{
			capability.AttributeReport,
			capability.ReadResponse,
			capability.CommandKind("ZoneStatusChangeNotification"),
		},
		Decode: func(rt *capability.Context, msg *capability.Message) (capability.State, error) {
			raw, ok := msg.Attributes[attrZoneStatus]
			if !ok {
				raw, ok = msg.Payload[zoneStatusField]
			}
			if !ok {
				return nil, nil
			}
			n, okN := zcl.ToInt64(raw)
			if !okN {
				return nil, capability.Decodef("zone_status: unexpected raw value %T", raw)
			}
			status := uint16(n)

			state := capability.State{}
			clearState := capability.State{}
			hasAlarm := false
			for _, e := range bits {
				set := status&(1<<e.bit) != 0
				value := set
				if e.invert {
					value = !set
				}
				state[e.key] = value
				if e.alarm {
					hasAlarm = true
					clearState[e.key] = e.invert
				}
			}

			timeout := rt.Options.DurationSeconds("ias_timeout", defTimeout)
			if hasAlarm && timeout > 0 && msg.Endpoint != nil {
				publish := rt.Publish
				rt.Timers.Schedule(msg.Endpoint.ID(), timeout, func() {
					publish(clearState)
				})
			}
			return state, nil
		},
	})

	return bundle, nil
}
