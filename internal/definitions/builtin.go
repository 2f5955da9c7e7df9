package definitions

import (
	"zigbee-bridge/internal/capability"
	"zigbee-bridge/internal/extend"
	"zigbee-bridge/internal/zcl"
)

// builtinDefinitions builds the definitions shipped with the bridge. Kept
// deliberately small: anything exotic belongs in a Lua definition file.
func builtinDefinitions() ([]*Definition, error) {
	var defs []*Definition
	add := func(def *Definition, err error) error {
		if err != nil {
			return err
		}
		defs = append(defs, def)
		return nil
	}

	builders := []func() (*Definition, error){
		sonoffRelay,
		tuyaDoubleSwitch,
		ikeaWhiteSpectrumBulb,
		hueColorBulb,
		tuyaMeteringPlug,
		yaleLock,
		sonoffContact,
		heimanSmoke,
		heimanSiren,
		neoSiren,
		aqaraClimate,
		aqaraIlluminance,
		ikeaOnOffSwitch,
	}
	for _, build := range builders {
		if err := add(build()); err != nil {
			return nil, err
		}
	}
	return defs, nil
}

func sonoffRelay() (*Definition, error) {
	bundle, err := extend.OnOff(extend.OnOffArgs{})
	if err != nil {
		return nil, err
	}
	return &Definition{
		Vendor:      "SONOFF",
		Models:      []string{"BASICZBR3"},
		Description: "Smart switch relay",
		Bundle:      bundle,
	}, nil
}

func tuyaDoubleSwitch() (*Definition, error) {
	bundle, err := extend.OnOff(extend.OnOffArgs{Endpoints: []string{"left", "right"}})
	if err != nil {
		return nil, err
	}
	return &Definition{
		Vendor:      "Tuya",
		Models:      []string{"TS0012"},
		Description: "Two-gang wall switch",
		Endpoints:   map[string]uint8{"left": 1, "right": 2},
		Bundle:      bundle,
	}, nil
}

func ikeaWhiteSpectrumBulb() (*Definition, error) {
	bundle, err := extend.Light(extend.LightArgs{
		ColorTemp:       true,
		ColorTempRange:  &[2]float64{250, 454},
		PowerOnBehavior: true,
		Effect:          true,
	})
	if err != nil {
		return nil, err
	}
	return &Definition{
		Vendor:      "IKEA of Sweden",
		Models:      []string{"TRADFRI bulb E27 WS opal 980lm", "LED1545G12"},
		Description: "White-spectrum bulb",
		Bundle:      bundle,
	}, nil
}

func hueColorBulb() (*Definition, error) {
	bundle, err := extend.Light(extend.LightArgs{
		ColorTemp:       true,
		ColorTempRange:  &[2]float64{153, 500},
		ColorXY:         true,
		ColorHS:         true,
		EnhancedHue:     true,
		Effect:          true,
		PowerOnBehavior: true,
	})
	if err != nil {
		return nil, err
	}
	return &Definition{
		Vendor:      "Signify Netherlands B.V.",
		Models:      []string{"LCA001", "9290022166"},
		Description: "Color ambiance bulb",
		Bundle:      bundle,
	}, nil
}

func tuyaMeteringPlug() (*Definition, error) {
	onoff, err := extend.OnOff(extend.OnOffArgs{PowerOnBehavior: true})
	if err != nil {
		return nil, err
	}
	meter, err := extend.Meter(extend.MeterArgs{
		PowerScale:   &extend.ScalePair{Multiplier: 1, Divisor: 10},
		CurrentScale: &extend.ScalePair{Multiplier: 1, Divisor: 1000},
		VoltageScale: &extend.ScalePair{Multiplier: 1, Divisor: 10},
		EnergyScale:  &extend.ScalePair{Multiplier: 1, Divisor: 100},
	})
	if err != nil {
		return nil, err
	}
	bundle, err := capability.Merge(onoff, meter)
	if err != nil {
		return nil, err
	}
	return &Definition{
		Vendor:      "Tuya",
		Models:      []string{"TS011F"},
		Description: "Metering smart plug",
		Bundle:      bundle,
	}, nil
}

func yaleLock() (*Definition, error) {
	lock, err := extend.Lock(extend.LockArgs{
		PinCode:     true,
		UserStatus:  true,
		AutoRelock:  true,
		SoundVolume: true,
	})
	if err != nil {
		return nil, err
	}
	battery, err := extend.Battery(extend.BatteryArgs{NotPreHalved: true})
	if err != nil {
		return nil, err
	}
	bundle, err := capability.Merge(lock, battery)
	if err != nil {
		return nil, err
	}
	return &Definition{
		Vendor:      "Yale",
		Models:      []string{"YRD226/246 TSDB"},
		Description: "Deadbolt smart lock",
		Bundle:      bundle,
	}, nil
}

func sonoffContact() (*Definition, error) {
	zone, err := extend.IASZone(extend.IASZoneArgs{
		ZoneType: "contact",
		Statuses: []string{"alarm_1", "tamper", "battery_low"},
		Timeout:  extend.NoTimeout(),
	})
	if err != nil {
		return nil, err
	}
	battery, err := extend.Battery(extend.BatteryArgs{Voltage: true})
	if err != nil {
		return nil, err
	}
	bundle, err := capability.Merge(zone, battery)
	if err != nil {
		return nil, err
	}
	return &Definition{
		Vendor:      "SONOFF",
		Models:      []string{"SNZB-04"},
		Description: "Door and window contact sensor",
		Bundle:      bundle,
	}, nil
}

func heimanSmoke() (*Definition, error) {
	zone, err := extend.IASZone(extend.IASZoneArgs{
		ZoneType: "smoke",
		// battery_low comes from the power-config alarm decode below, not
		// from the zone status bitmask.
		Statuses: []string{"alarm_1", "alarm_2", "test"},
	})
	if err != nil {
		return nil, err
	}
	battery, err := extend.Battery(extend.BatteryArgs{LowStatus: true})
	if err != nil {
		return nil, err
	}
	bundle, err := capability.Merge(zone, battery)
	if err != nil {
		return nil, err
	}
	return &Definition{
		Vendor:      "HEIMAN",
		Models:      []string{"SmokeSensor-EM", "HS1SA"},
		Description: "Smoke detector",
		Bundle:      bundle,
	}, nil
}

func heimanSiren() (*Definition, error) {
	warning, err := extend.Warning(extend.WarningArgs{})
	if err != nil {
		return nil, err
	}
	battery, err := extend.Battery(extend.BatteryArgs{LowStatus: true})
	if err != nil {
		return nil, err
	}
	bundle, err := capability.Merge(warning, battery)
	if err != nil {
		return nil, err
	}
	return &Definition{
		Vendor:      "HEIMAN",
		Models:      []string{"WarningDevice", "HS2WD-E"},
		Description: "Smart siren",
		Bundle:      bundle,
	}, nil
}

func neoSiren() (*Definition, error) {
	warning, err := extend.Warning(extend.WarningArgs{Reversed: true})
	if err != nil {
		return nil, err
	}
	temperature, err := capability.BuildNumeric(capability.NumericArgs{
		Name:        "temperature",
		Cluster:     zcl.ClusterTemperature,
		Attr:        zcl.AttrRef{ID: 0x0000, Type: zcl.TypeInt16},
		Scale:       capability.DivideBy(100),
		Precision:   capability.Int(2),
		Unit:        "°C",
		Description: "Measured temperature",
	})
	if err != nil {
		return nil, err
	}
	humidity, err := capability.BuildNumeric(capability.NumericArgs{
		Name:        "humidity",
		Cluster:     zcl.ClusterHumidity,
		Attr:        zcl.AttrRef{ID: 0x0000, Type: zcl.TypeUint16},
		Scale:       capability.DivideBy(100),
		Precision:   capability.Int(2),
		Unit:        "%",
		Description: "Measured relative humidity",
	})
	if err != nil {
		return nil, err
	}
	bundle, err := capability.Merge(warning, temperature, humidity)
	if err != nil {
		return nil, err
	}
	return &Definition{
		Vendor:      "Neo",
		Models:      []string{"NAS-AB02B0"},
		Description: "Siren with temperature and humidity",
		Bundle:      bundle,
	}, nil
}

func aqaraClimate() (*Definition, error) {
	temperature, err := capability.BuildNumeric(capability.NumericArgs{
		Name:        "temperature",
		Cluster:     zcl.ClusterTemperature,
		Attr:        zcl.AttrRef{ID: 0x0000, Type: zcl.TypeInt16},
		Scale:       capability.DivideBy(100),
		Precision:   capability.Int(2),
		Unit:        "°C",
		Description: "Measured temperature",
	})
	if err != nil {
		return nil, err
	}
	humidity, err := capability.BuildNumeric(capability.NumericArgs{
		Name:        "humidity",
		Cluster:     zcl.ClusterHumidity,
		Attr:        zcl.AttrRef{ID: 0x0000, Type: zcl.TypeUint16},
		Scale:       capability.DivideBy(100),
		Precision:   capability.Int(2),
		Unit:        "%",
		Description: "Measured relative humidity",
	})
	if err != nil {
		return nil, err
	}
	pressure, err := capability.BuildNumeric(capability.NumericArgs{
		Name:        "pressure",
		Cluster:     zcl.ClusterPressure,
		Attr:        zcl.AttrRef{ID: 0x0000, Type: zcl.TypeInt16},
		Precision:   capability.Int(1),
		Unit:        "hPa",
		Description: "Measured air pressure",
	})
	if err != nil {
		return nil, err
	}
	battery, err := extend.Battery(extend.BatteryArgs{
		NoPercentage:     true,
		Voltage:          true,
		VoltageToPercent: &extend.VoltageRange{EmptyMV: 2500, FullMV: 3000},
	})
	if err != nil {
		return nil, err
	}
	bundle, err := capability.Merge(temperature, humidity, pressure, battery)
	if err != nil {
		return nil, err
	}
	return &Definition{
		Vendor:      "LUMI",
		Models:      []string{"lumi.weather", "WSDCGQ11LM"},
		Description: "Temperature, humidity and pressure sensor",
		Bundle:      bundle,
	}, nil
}

func aqaraIlluminance() (*Definition, error) {
	illuminance, err := capability.BuildNumeric(capability.NumericArgs{
		Name:        "illuminance",
		Cluster:     zcl.ClusterIlluminance,
		Attr:        zcl.AttrRef{ID: 0x0000, Type: zcl.TypeUint16},
		Scale:       capability.LogLux(),
		Precision:   capability.Int(0),
		Unit:        "lx",
		Description: "Measured illuminance",
		Reporting: &capability.ReportingSpec{
			Min:    capability.Seconds(10),
			Max:    capability.Symbol("1_hour"),
			Change: capability.ChangeValue(5),
		},
	})
	if err != nil {
		return nil, err
	}
	battery, err := extend.Battery(extend.BatteryArgs{})
	if err != nil {
		return nil, err
	}
	bundle, err := capability.Merge(illuminance, battery)
	if err != nil {
		return nil, err
	}
	return &Definition{
		Vendor:      "LUMI",
		Models:      []string{"lumi.sen_ill.mgl01", "GZCGQ01LM"},
		Description: "Light intensity sensor",
		Bundle:      bundle,
	}, nil
}

func ikeaOnOffSwitch() (*Definition, error) {
	action, err := capability.BuildAction(capability.ActionArgs{
		Cluster:      zcl.ClusterOnOff,
		PayloadField: "command_id",
		Kinds: []capability.MessageKind{
			capability.CommandKind("On"),
			capability.CommandKind("Off"),
			capability.CommandKind("Toggle"),
		},
		Lookup:      map[int64]string{0: "off", 1: "on", 2: "toggle"},
		Description: "Button press events",
	})
	if err != nil {
		return nil, err
	}
	battery, err := extend.Battery(extend.BatteryArgs{})
	if err != nil {
		return nil, err
	}
	bundle, err := capability.Merge(action, battery)
	if err != nil {
		return nil, err
	}
	return &Definition{
		Vendor:      "IKEA of Sweden",
		Models:      []string{"TRADFRI on/off switch", "E1743"},
		Description: "Wireless on/off switch",
		Bundle:      bundle,
	}, nil
}
