package extend

import (
	"context"
	"math"

	"zigbee-bridge/internal/capability"
	"zigbee-bridge/internal/device"
	"zigbee-bridge/internal/zcl"
)

const (
	attrBatteryVoltage    uint16 = 0x0020
	attrBatteryPercentage uint16 = 0x0021
	attrBatteryAlarmState uint16 = 0x003E

	// A reported percentage of 0xFF means "unknown", not a value.
	batteryInvalid = 0xFF

	// Any of the three alarm slots flagging a low battery: bits 0..3,
	// 10..13 and 20..23 of the alarm-state bitmap.
	batteryAlarmMask uint32 = 0x0000000F | 0x00003C00 | 0x00F00000
)

// BatteryArgs configures the battery composite.
type BatteryArgs struct {
	NoPercentage bool
	Voltage      bool
	LowStatus    bool // expose battery_low from the alarm-state bitmap

	// NotPreHalved marks devices that report percentage in whole percent
	// instead of the half-percent units the cluster specifies.
	NotPreHalved bool

	// VoltageToPercent derives the percentage from voltage for devices that
	// never report the percentage attribute. Values are millivolts. A curve
	// persisted in the device metadata (battery_voltage_empty_mv /
	// battery_voltage_full_mv) takes precedence over this default.
	VoltageToPercent *VoltageRange

	PercentageReporting *capability.ReportingSpec
	VoltageReporting    *capability.ReportingSpec
}

// VoltageRange maps a millivolt span linearly onto 0..100 percent.
type VoltageRange struct {
	EmptyMV float64
	FullMV  float64
}

// Battery builds the battery composite: percentage (with the half-percent
// wire unit and the 0xFF invalid sentinel handled), optional voltage,
// optional low-battery flag from the alarm-state bitmap, and independent
// subscriptions for percentage and voltage.
func Battery(args BatteryArgs) (*capability.Bundle, error) {
	bundle := &capability.Bundle{}

	if !args.NoPercentage {
		bundle.Descriptors = append(bundle.Descriptors, capability.NewNumeric("battery").
			WithAccess(capability.AccessRead|capability.AccessReport).
			WithRange(0, 100).
			WithUnit("%").
			WithDescription("Remaining battery in percent"))
	}
	if args.Voltage {
		bundle.Descriptors = append(bundle.Descriptors, capability.NewNumeric("battery_voltage").
			WithAccess(capability.AccessRead|capability.AccessReport).
			WithUnit("mV").
			WithDescription("Battery voltage in millivolts"))
	}
	if args.LowStatus {
		bundle.Descriptors = append(bundle.Descriptors, capability.NewBinary("battery_low", true, false).
			WithDescription("Battery is nearly empty"))
	}

	bundle.Decoders = append(bundle.Decoders, capability.Decoder{
		Name:      "battery",
		ClusterID: zcl.ClusterPowerConfig,
		Kinds:     []capability.MessageKind{capability.AttributeReport, capability.ReadResponse},
		Decode: func(rt *capability.Context, msg *capability.Message) (capability.State, error) {
			state := capability.State{}
			if raw, ok := msg.Attributes[attrBatteryPercentage]; ok && !args.NoPercentage {
				n, okN := zcl.ToInt64(raw)
				if !okN {
					return nil, capability.Decodef("battery: unexpected raw value %T", raw)
				}
				if n != batteryInvalid {
					pct := float64(n)
					if !args.NotPreHalved && !rt.Options.Bool("battery_not_pre_halved", false) {
						pct /= 2
					}
					state["battery"] = math.Min(100, pct)
				}
			}
			if raw, ok := msg.Attributes[attrBatteryVoltage]; ok {
				n, okN := zcl.ToInt64(raw)
				if !okN {
					return nil, capability.Decodef("battery_voltage: unexpected raw value %T", raw)
				}
				mv := float64(n) * 100
				if args.Voltage {
					state["battery_voltage"] = mv
				}
				if vr := voltageRange(rt.Device, args.VoltageToPercent); vr != nil {
					state["battery"] = voltageToPercent(mv, *vr)
				}
			}
			if raw, ok := msg.Attributes[attrBatteryAlarmState]; ok && args.LowStatus {
				n, okN := zcl.ToInt64(raw)
				if !okN {
					return nil, capability.Decodef("battery_low: unexpected raw value %T", raw)
				}
				state["battery_low"] = uint32(n)&batteryAlarmMask != 0
			}
			if len(state) == 0 {
				return nil, nil
			}
			return state, nil
		},
	})

	bundle.Configure = func(ctx context.Context, rt *capability.Context, coord device.BindTarget) error {
		var configs []capability.ReportingConfig
		if !args.NoPercentage {
			configs = append(configs, reportingFor(args.PercentageReporting,
				zcl.AttrRef{ID: attrBatteryPercentage, Type: zcl.TypeUint8}))
		}
		if args.Voltage || voltageRange(rt.Device, args.VoltageToPercent) != nil {
			configs = append(configs, reportingFor(args.VoltageReporting,
				zcl.AttrRef{ID: attrBatteryVoltage, Type: zcl.TypeUint8}))
		}
		if len(configs) == 0 {
			return nil
		}
		return capability.SetupReporting(ctx, capability.DeviceTarget(rt.Device), coord,
			zcl.ClusterPowerConfig, configs, true, true, rt.Logger)
	}

	return bundle, nil
}

func reportingFor(spec *capability.ReportingSpec, attr zcl.AttrRef) capability.ReportingConfig {
	cfg := capability.ReportingConfig{
		Attr:   attr,
		Min:    capability.Symbol("1_hour"),
		Max:    capability.Symbol("max"),
		Change: capability.ChangeValue(10),
	}
	if spec != nil {
		cfg.Min = spec.Min
		cfg.Max = spec.Max
		cfg.Change = spec.Change
	}
	return cfg
}

// voltageRange resolves the voltage-to-percentage curve: the one persisted
// in the device metadata wins, then the definition default, else none.
func voltageRange(dev *device.Device, def *VoltageRange) *VoltageRange {
	empty, okEmpty := zcl.ToFloat(dev.Meta["battery_voltage_empty_mv"])
	full, okFull := zcl.ToFloat(dev.Meta["battery_voltage_full_mv"])
	if okEmpty && okFull {
		return &VoltageRange{EmptyMV: empty, FullMV: full}
	}
	return def
}

func voltageToPercent(mv float64, r VoltageRange) float64 {
	if r.FullMV <= r.EmptyMV {
		return 0
	}
	pct := (mv - r.EmptyMV) / (r.FullMV - r.EmptyMV) * 100
	return math.Floor(math.Min(100, math.Max(0, pct))*100+0.5) / 100
}
