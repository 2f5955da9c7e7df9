package extend

import (
	"context"
	"fmt"
	"math"

	"zigbee-bridge/internal/capability"
	"zigbee-bridge/internal/device"
	"zigbee-bridge/internal/zcl"
)

const (
	attrRMSVoltage  uint16 = 0x0505
	attrRMSCurrent  uint16 = 0x0508
	attrActivePower uint16 = 0x050B

	attrACVoltageMultiplier uint16 = 0x0600
	attrACVoltageDivisor    uint16 = 0x0601
	attrACCurrentMultiplier uint16 = 0x0602
	attrACCurrentDivisor    uint16 = 0x0603
	attrACPowerMultiplier   uint16 = 0x0604
	attrACPowerDivisor      uint16 = 0x0605

	attrCurrentSummation    uint16 = 0x0000
	attrMeteringMultiplier  uint16 = 0x0301
	attrMeteringDivisor     uint16 = 0x0302
	attrInstantaneousDemand uint16 = 0x0400
)

// MeterSource selects which cluster(s) the electrical quantities come from.
type MeterSource string

const (
	SourceBoth       MeterSource = "both"       // power from electrical measurement, energy from metering
	SourceElectrical MeterSource = "electrical" // electrical measurement only
	SourceMetering   MeterSource = "metering"   // metering only, power from instantaneous demand
)

// ScalePair is a forced multiplier/divisor for one quantity, overriding the
// values the device reports.
type ScalePair struct {
	Multiplier uint32
	Divisor    uint32
}

// MeterArgs configures the electricity-meter composite. The zero value
// exposes power, voltage, current and energy from both clusters with
// device-reported scaling.
type MeterArgs struct {
	Source MeterSource

	NoPower   bool
	NoVoltage bool
	NoCurrent bool
	NoEnergy  bool

	PowerScale   *ScalePair
	VoltageScale *ScalePair
	CurrentScale *ScalePair
	EnergyScale  *ScalePair

	// Nominal reportable changes in capability units (W, V, A, kWh). Zero
	// picks the defaults below.
	PowerChange   float64
	VoltageChange float64
	CurrentChange float64
	EnergyChange  float64
}

type meterQuantity struct {
	name      string
	unit      string
	cluster   uint16
	attr      zcl.AttrRef
	multAttr  zcl.AttrRef
	divAttr   zcl.AttrRef
	forced    *ScalePair
	change    float64
	pairWidth bool // threshold encodes as a low/high 32-bit pair
}

// Meter builds the electricity-meter composite: power, voltage, current and
// energy read through cluster-level multiplier/divisor scaling. The scaling
// pair for each quantity is forced by the definition, taken from the
// endpoint cache, or read from the device once and persisted.
func Meter(args MeterArgs) (*capability.Bundle, error) {
	source := args.Source
	if source == "" {
		source = SourceBoth
	}

	var quantities []meterQuantity
	if !args.NoPower {
		q := meterQuantity{name: "power", unit: "W", change: defFloat(args.PowerChange, 5), forced: args.PowerScale}
		if source == SourceMetering {
			q.cluster = zcl.ClusterMetering
			q.attr = zcl.AttrRef{ID: attrInstantaneousDemand, Type: zcl.TypeInt24}
			q.multAttr = zcl.AttrRef{ID: attrMeteringMultiplier, Type: zcl.TypeUint24}
			q.divAttr = zcl.AttrRef{ID: attrMeteringDivisor, Type: zcl.TypeUint24}
		} else {
			q.cluster = zcl.ClusterElectrical
			q.attr = zcl.AttrRef{ID: attrActivePower, Type: zcl.TypeInt16}
			q.multAttr = zcl.AttrRef{ID: attrACPowerMultiplier, Type: zcl.TypeUint16}
			q.divAttr = zcl.AttrRef{ID: attrACPowerDivisor, Type: zcl.TypeUint16}
		}
		quantities = append(quantities, q)
	}
	if !args.NoVoltage && source != SourceMetering {
		quantities = append(quantities, meterQuantity{
			name: "voltage", unit: "V", change: defFloat(args.VoltageChange, 5), forced: args.VoltageScale,
			cluster:  zcl.ClusterElectrical,
			attr:     zcl.AttrRef{ID: attrRMSVoltage, Type: zcl.TypeUint16},
			multAttr: zcl.AttrRef{ID: attrACVoltageMultiplier, Type: zcl.TypeUint16},
			divAttr:  zcl.AttrRef{ID: attrACVoltageDivisor, Type: zcl.TypeUint16},
		})
	}
	if !args.NoCurrent && source != SourceMetering {
		quantities = append(quantities, meterQuantity{
			name: "current", unit: "A", change: defFloat(args.CurrentChange, 0.1), forced: args.CurrentScale,
			cluster:  zcl.ClusterElectrical,
			attr:     zcl.AttrRef{ID: attrRMSCurrent, Type: zcl.TypeUint16},
			multAttr: zcl.AttrRef{ID: attrACCurrentMultiplier, Type: zcl.TypeUint16},
			divAttr:  zcl.AttrRef{ID: attrACCurrentDivisor, Type: zcl.TypeUint16},
		})
	}
	if !args.NoEnergy && source != SourceElectrical {
		quantities = append(quantities, meterQuantity{
			name: "energy", unit: "kWh", change: defFloat(args.EnergyChange, 0.1), forced: args.EnergyScale,
			cluster:   zcl.ClusterMetering,
			attr:      zcl.AttrRef{ID: attrCurrentSummation, Type: zcl.TypeUint48},
			multAttr:  zcl.AttrRef{ID: attrMeteringMultiplier, Type: zcl.TypeUint24},
			divAttr:   zcl.AttrRef{ID: attrMeteringDivisor, Type: zcl.TypeUint24},
			pairWidth: true,
		})
	}
	if len(quantities) == 0 {
		return nil, capability.Configf("meter: no quantities left enabled")
	}

	// Quantities sharing the metering scaling attributes cannot be forced to
	// different pairs. Caught here, before any device I/O.
	var meteringForced *ScalePair
	var meteringName string
	for i := range quantities {
		q := &quantities[i]
		if q.cluster != zcl.ClusterMetering || q.forced == nil {
			continue
		}
		if meteringForced != nil && *meteringForced != *q.forced {
			return nil, capability.Configf("meter: %s and %s force different metering scales (%d/%d vs %d/%d)",
				meteringName, q.name, meteringForced.Multiplier, meteringForced.Divisor,
				q.forced.Multiplier, q.forced.Divisor)
		}
		meteringForced, meteringName = q.forced, q.name
	}

	bundle := &capability.Bundle{}
	for i := range quantities {
		q := quantities[i]
		bundle.Descriptors = append(bundle.Descriptors, capability.NewNumeric(q.name).
			WithAccess(capability.AccessRead|capability.AccessReport).
			WithUnit(q.unit).
			WithDescription(fmt.Sprintf("Measured %s in %s", q.name, q.unit)))
		bundle.Decoders = append(bundle.Decoders, capability.Decoder{
			Name:      q.name,
			ClusterID: q.cluster,
			Kinds:     []capability.MessageKind{capability.AttributeReport, capability.ReadResponse},
			Decode: func(rt *capability.Context, msg *capability.Message) (capability.State, error) {
				raw, ok := msg.Attributes[q.attr.ID]
				if !ok {
					return nil, nil
				}
				n, ok := zcl.ToFloat(raw)
				if !ok {
					return nil, capability.Decodef("%s: unexpected raw value %T", q.name, raw)
				}
				mult, div := cachedScale(msg.Endpoint, q)
				value := math.Floor(n*mult/div*100+0.5) / 100
				return capability.State{q.name: value}, nil
			},
		})
		bundle.Encoders = append(bundle.Encoders, capability.Encoder{
			Key: q.name,
			Get: func(ctx context.Context, rt *capability.Context) error {
				ep, err := serverEndpoint(rt, q.cluster)
				if err != nil {
					return err
				}
				results, err := ep.Read(ctx, q.cluster, []uint16{q.attr.ID})
				if err != nil {
					return err
				}
				rt.DispatchReadResponse(ep, q.cluster, results)
				return nil
			},
		})
	}

	bundle.Configure = func(ctx context.Context, rt *capability.Context, coord device.BindTarget) error {
		perCluster := map[uint16][]capability.ReportingConfig{}
		for _, q := range quantities {
			ep, err := serverEndpoint(rt, q.cluster)
			if err != nil {
				return err
			}
			mult, div, err := resolveScale(ctx, ep, q)
			if err != nil {
				return err
			}
			changeRaw := q.change * div / mult
			var change capability.Change
			if q.pairWidth {
				u := uint64(math.Floor(changeRaw + 0.5))
				change = capability.ChangePair(uint32(u&0xFFFFFFFF), uint32(u>>32))
			} else {
				change = capability.ChangeValue(changeRaw)
			}
			perCluster[q.cluster] = append(perCluster[q.cluster], capability.ReportingConfig{
				Attr:   q.attr,
				Min:    capability.Seconds(10),
				Max:    capability.Symbol("1_hour"),
				Change: change,
			})
		}
		if err := rt.Device.Save(); err != nil {
			rt.Logger.Warn("persist meter scales failed", "device", rt.Device.IEEE, "err", err)
		}
		for clusterID, configs := range perCluster {
			if err := capability.SetupReporting(ctx, capability.DeviceTarget(rt.Device), coord,
				clusterID, configs, true, true, rt.Logger); err != nil {
				return err
			}
		}
		return nil
	}

	return bundle, nil
}

// cachedScale returns the multiplier/divisor for decoding, falling back to
// 1/1 when nothing has been resolved yet.
func cachedScale(ep *device.Endpoint, q meterQuantity) (mult, div float64) {
	mult, div = 1, 1
	if q.forced != nil {
		return float64(q.forced.Multiplier), float64(q.forced.Divisor)
	}
	if ep == nil {
		return mult, div
	}
	if raw, ok := ep.Cached(q.cluster, q.multAttr.ID); ok {
		if n, okN := zcl.ToFloat(raw); okN && n > 0 {
			mult = n
		}
	}
	if raw, ok := ep.Cached(q.cluster, q.divAttr.ID); ok {
		if n, okN := zcl.ToFloat(raw); okN && n > 0 {
			div = n
		}
	}
	return mult, div
}

// resolveScale settles the multiplier/divisor for one quantity during
// configuration: a forced pair is written straight to the cache, a cached
// pair is reused, anything else is read from the device and persisted.
func resolveScale(ctx context.Context, ep *device.Endpoint, q meterQuantity) (mult, div float64, err error) {
	if q.forced != nil {
		ep.SetCache(q.cluster, q.multAttr.ID, q.forced.Multiplier)
		ep.SetCache(q.cluster, q.divAttr.ID, q.forced.Divisor)
		return float64(q.forced.Multiplier), float64(q.forced.Divisor), nil
	}
	_, haveMult := ep.Cached(q.cluster, q.multAttr.ID)
	_, haveDiv := ep.Cached(q.cluster, q.divAttr.ID)
	if !haveMult || !haveDiv {
		results, err := ep.Read(ctx, q.cluster, []uint16{q.multAttr.ID, q.divAttr.ID})
		if err != nil {
			return 0, 0, fmt.Errorf("read %s scale: %w", q.name, err)
		}
		for _, r := range results {
			if r.Status == zcl.StatusSuccess {
				ep.SetCache(q.cluster, r.ID, r.Value)
			}
		}
	}
	mult, div = cachedScale(ep, q)
	return mult, div, nil
}

func defFloat(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
