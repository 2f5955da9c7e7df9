package extend

import (
	"context"
	"strings"
	"testing"

	"zigbee-bridge/internal/capability"
	"zigbee-bridge/internal/device"
	"zigbee-bridge/internal/zcl"
)

func TestMeterForcedScaleDecode(t *testing.T) {
	bundle, err := Meter(MeterArgs{
		PowerScale:  &ScalePair{Multiplier: 1, Divisor: 10},
		EnergyScale: &ScalePair{Multiplier: 1, Divisor: 100},
	})
	if err != nil {
		t.Fatalf("Meter: %v", err)
	}
	dev := newTestDevice(t, &fakeTransport{}, zcl.ClusterElectrical, zcl.ClusterMetering)
	r := newTestRuntime(dev)

	state := decodeOne(t, bundle, r.rt, &capability.Message{
		Kind:       capability.AttributeReport,
		ClusterID:  zcl.ClusterElectrical,
		Endpoint:   dev.Endpoint(1),
		Attributes: map[uint16]any{attrActivePower: int16(755)},
	})
	if state["power"] != 75.5 {
		t.Errorf("power = %v, want 75.5", state["power"])
	}

	state = decodeOne(t, bundle, r.rt, &capability.Message{
		Kind:       capability.AttributeReport,
		ClusterID:  zcl.ClusterMetering,
		Endpoint:   dev.Endpoint(1),
		Attributes: map[uint16]any{attrCurrentSummation: uint64(123456)},
	})
	if state["energy"] != 1234.56 {
		t.Errorf("energy = %v, want 1234.56", state["energy"])
	}
}

func TestMeterDefaultScaleIsIdentity(t *testing.T) {
	bundle, err := Meter(MeterArgs{})
	if err != nil {
		t.Fatalf("Meter: %v", err)
	}
	dev := newTestDevice(t, &fakeTransport{}, zcl.ClusterElectrical, zcl.ClusterMetering)
	r := newTestRuntime(dev)

	// Nothing cached, nothing forced: raw values pass through 1/1.
	state := decodeOne(t, bundle, r.rt, &capability.Message{
		Kind:       capability.AttributeReport,
		ClusterID:  zcl.ClusterElectrical,
		Endpoint:   dev.Endpoint(1),
		Attributes: map[uint16]any{attrRMSVoltage: uint16(230)},
	})
	if state["voltage"] != float64(230) {
		t.Errorf("voltage = %v, want 230", state["voltage"])
	}
}

func TestMeterCachedScale(t *testing.T) {
	bundle, err := Meter(MeterArgs{})
	if err != nil {
		t.Fatalf("Meter: %v", err)
	}
	dev := newTestDevice(t, &fakeTransport{}, zcl.ClusterElectrical, zcl.ClusterMetering)
	ep := dev.Endpoint(1)
	ep.SetCache(zcl.ClusterElectrical, attrACVoltageMultiplier, uint16(1))
	ep.SetCache(zcl.ClusterElectrical, attrACVoltageDivisor, uint16(10))
	r := newTestRuntime(dev)

	state := decodeOne(t, bundle, r.rt, &capability.Message{
		Kind:       capability.AttributeReport,
		ClusterID:  zcl.ClusterElectrical,
		Endpoint:   ep,
		Attributes: map[uint16]any{attrRMSVoltage: uint16(2301)},
	})
	if state["voltage"] != 230.1 {
		t.Errorf("voltage = %v, want 230.1", state["voltage"])
	}
}

func TestMeterConflictingForcedMeteringScales(t *testing.T) {
	// Power from metering and energy share the metering divisor attributes, so
	// forcing them apart is caught before any device I/O.
	_, err := Meter(MeterArgs{
		Source:      SourceMetering,
		PowerScale:  &ScalePair{Multiplier: 1, Divisor: 10},
		EnergyScale: &ScalePair{Multiplier: 1, Divisor: 100},
	})
	if !capability.IsConfigError(err) {
		t.Fatalf("expected config error, got %v", err)
	}
	if !strings.Contains(err.Error(), "metering") {
		t.Errorf("error should name the shared cluster: %v", err)
	}
}

func TestMeterNoQuantities(t *testing.T) {
	_, err := Meter(MeterArgs{NoPower: true, NoVoltage: true, NoCurrent: true, NoEnergy: true})
	if !capability.IsConfigError(err) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestMeterConfigureReadsScales(t *testing.T) {
	bundle, err := Meter(MeterArgs{Source: SourceElectrical, NoEnergy: true})
	if err != nil {
		t.Fatalf("Meter: %v", err)
	}
	tr := &fakeTransport{}
	tr.stubRead(zcl.ClusterElectrical, attrACPowerMultiplier, zcl.StatusSuccess, uint16(1))
	tr.stubRead(zcl.ClusterElectrical, attrACPowerDivisor, zcl.StatusSuccess, uint16(10))
	tr.stubRead(zcl.ClusterElectrical, attrACVoltageMultiplier, zcl.StatusSuccess, uint16(1))
	tr.stubRead(zcl.ClusterElectrical, attrACVoltageDivisor, zcl.StatusSuccess, uint16(10))
	tr.stubRead(zcl.ClusterElectrical, attrACCurrentMultiplier, zcl.StatusSuccess, uint16(1))
	tr.stubRead(zcl.ClusterElectrical, attrACCurrentDivisor, zcl.StatusSuccess, uint16(1000))

	dev := newTestDevice(t, tr, zcl.ClusterElectrical)
	r := newTestRuntime(dev)

	if err := bundle.Configure(context.Background(), r.rt, device.BindTarget{Endpoint: 1}); err != nil {
		t.Fatalf("configure: %v", err)
	}

	// The resolved pairs land in the endpoint cache for later decodes.
	ep := dev.Endpoint(1)
	if v, ok := ep.Cached(zcl.ClusterElectrical, attrACCurrentDivisor); !ok || v != uint16(1000) {
		t.Errorf("cached current divisor = %v %v, want 1000", v, ok)
	}
	if len(tr.reporting) == 0 {
		t.Error("configure wrote no reporting records")
	}
	if len(tr.binds) == 0 {
		t.Error("configure bound no clusters")
	}
}

func TestMeterForcedScaleSkipsRead(t *testing.T) {
	bundle, err := Meter(MeterArgs{
		Source:     SourceElectrical,
		NoEnergy:   true,
		NoCurrent:  true,
		NoVoltage:  true,
		PowerScale: &ScalePair{Multiplier: 1, Divisor: 10},
	})
	if err != nil {
		t.Fatalf("Meter: %v", err)
	}
	tr := &fakeTransport{}
	dev := newTestDevice(t, tr, zcl.ClusterElectrical)
	r := newTestRuntime(dev)

	if err := bundle.Configure(context.Background(), r.rt, device.BindTarget{Endpoint: 1}); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if v, ok := dev.Endpoint(1).Cached(zcl.ClusterElectrical, attrACPowerDivisor); !ok || v != uint32(10) {
		t.Errorf("forced divisor not cached: %v %v", v, ok)
	}
}
