package definitions

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	lua "github.com/yuin/gopher-lua"

	"zigbee-bridge/internal/capability"
	"zigbee-bridge/internal/extend"
	"zigbee-bridge/internal/zcl"
)

// LoadLuaDir loads user definitions from every *.lua file in dir and
// registers them. Each file calls the global definition{} function once per
// device. A missing directory is not an error: user definitions are
// optional.
func (r *Registry) LoadLuaDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read definitions dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".lua" {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	for _, f := range files {
		if err := r.loadLuaFile(f); err != nil {
			return fmt.Errorf("definition file %s: %w", filepath.Base(f), err)
		}
	}
	return nil
}

func (r *Registry) loadLuaFile(path string) error {
	L := lua.NewState(lua.Options{SkipOpenLibs: false})
	defer L.Close()

	var loadErr error
	L.SetGlobal("definition", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		def, err := definitionFromLua(tbl)
		if err == nil {
			err = r.Register(def)
		}
		if err != nil && loadErr == nil {
			loadErr = err
		}
		return 0
	}))

	if err := L.DoFile(path); err != nil {
		return err
	}
	return loadErr
}

func definitionFromLua(tbl *lua.LTable) (*Definition, error) {
	def := &Definition{
		Vendor:      luaString(tbl.RawGetString("vendor"), ""),
		Description: luaString(tbl.RawGetString("description"), ""),
		Models:      luaStrings(tbl.RawGetString("models")),
	}
	if len(def.Models) == 0 {
		return nil, capability.Configf("lua definition needs a models list")
	}

	if eps, ok := tbl.RawGetString("endpoints").(*lua.LTable); ok {
		def.Endpoints = map[string]uint8{}
		eps.ForEach(func(k, v lua.LValue) {
			if name, ok := k.(lua.LString); ok {
				if id, ok := v.(lua.LNumber); ok {
					def.Endpoints[string(name)] = uint8(id)
				}
			}
		})
	}
	if opts, ok := tbl.RawGetString("options").(*lua.LTable); ok {
		def.Options = capability.Options{}
		opts.ForEach(func(k, v lua.LValue) {
			if name, ok := k.(lua.LString); ok {
				def.Options[string(name)] = luaToGo(v)
			}
		})
	}

	extendsVal, ok := tbl.RawGetString("extends").(*lua.LTable)
	if !ok {
		return nil, capability.Configf("lua definition %v needs an extends list", def.Models)
	}
	var bundles []*capability.Bundle
	var buildErr error
	extendsVal.ForEach(func(_, v lua.LValue) {
		if buildErr != nil {
			return
		}
		spec, ok := v.(*lua.LTable)
		if !ok {
			buildErr = capability.Configf("extends entries must be tables, got %s", v.Type())
			return
		}
		bundle, err := bundleFromLua(spec)
		if err != nil {
			buildErr = err
			return
		}
		bundles = append(bundles, bundle)
	})
	if buildErr != nil {
		return nil, buildErr
	}

	bundle, err := capability.Merge(bundles...)
	if err != nil {
		return nil, err
	}
	def.Bundle = bundle
	return def, nil
}

func bundleFromLua(spec *lua.LTable) (*capability.Bundle, error) {
	kind := luaString(spec.RawGetString("type"), "")
	switch kind {
	case "onoff":
		return extend.OnOff(extend.OnOffArgs{
			Endpoints:       luaStrings(spec.RawGetString("endpoints")),
			PowerOnBehavior: luaBool(spec.RawGetString("power_on_behavior")),
		})
	case "light":
		args := extend.LightArgs{
			ColorTemp:       luaBool(spec.RawGetString("color_temp")),
			ColorXY:         luaBool(spec.RawGetString("color_xy")),
			ColorHS:         luaBool(spec.RawGetString("color_hs")),
			EnhancedHue:     luaBool(spec.RawGetString("enhanced_hue")),
			Effect:          luaBool(spec.RawGetString("effect")),
			PowerOnBehavior: luaBool(spec.RawGetString("power_on_behavior")),
		}
		if rng, ok := spec.RawGetString("color_temp_range").(*lua.LTable); ok {
			min, okMin := rng.RawGetInt(1).(lua.LNumber)
			max, okMax := rng.RawGetInt(2).(lua.LNumber)
			if okMin && okMax {
				args.ColorTempRange = &[2]float64{float64(min), float64(max)}
			}
		}
		return extend.Light(args)
	case "lock":
		return extend.Lock(extend.LockArgs{
			PinCode:     luaBool(spec.RawGetString("pin_code")),
			UserStatus:  luaBool(spec.RawGetString("user_status")),
			AutoRelock:  luaBool(spec.RawGetString("auto_relock")),
			SoundVolume: luaBool(spec.RawGetString("sound_volume")),
		})
	case "meter":
		return extend.Meter(extend.MeterArgs{
			Source:       extend.MeterSource(luaString(spec.RawGetString("source"), "")),
			NoVoltage:    luaBool(spec.RawGetString("no_voltage")),
			NoCurrent:    luaBool(spec.RawGetString("no_current")),
			NoEnergy:     luaBool(spec.RawGetString("no_energy")),
			NoPower:      luaBool(spec.RawGetString("no_power")),
			PowerScale:   luaScale(spec.RawGetString("power_scale")),
			VoltageScale: luaScale(spec.RawGetString("voltage_scale")),
			CurrentScale: luaScale(spec.RawGetString("current_scale")),
			EnergyScale:  luaScale(spec.RawGetString("energy_scale")),
		})
	case "battery":
		return extend.Battery(extend.BatteryArgs{
			NoPercentage: luaBool(spec.RawGetString("no_percentage")),
			Voltage:      luaBool(spec.RawGetString("voltage")),
			LowStatus:    luaBool(spec.RawGetString("low_status")),
			NotPreHalved: luaBool(spec.RawGetString("not_pre_halved")),
		})
	case "ias_zone":
		args := extend.IASZoneArgs{
			ZoneType: luaString(spec.RawGetString("zone_type"), ""),
			Statuses: luaStrings(spec.RawGetString("statuses")),
		}
		if n, ok := spec.RawGetString("timeout").(lua.LNumber); ok {
			d := time.Duration(float64(n) * float64(time.Second))
			args.Timeout = &d
		}
		return extend.IASZone(args)
	case "warning":
		return extend.Warning(extend.WarningArgs{
			Reversed: luaBool(spec.RawGetString("reversed")),
		})
	case "numeric":
		attr, err := luaAttrRef(spec)
		if err != nil {
			return nil, err
		}
		args := capability.NumericArgs{
			Name:        luaString(spec.RawGetString("name"), ""),
			Cluster:     uint16(luaNumber(spec.RawGetString("cluster"), 0)),
			Attr:        attr,
			Access:      luaAccess(spec),
			Endpoints:   luaStrings(spec.RawGetString("endpoints")),
			Unit:        luaString(spec.RawGetString("unit"), ""),
			Reporting:   luaReporting(spec),
			Description: luaString(spec.RawGetString("description"), ""),
		}
		if d := luaNumber(spec.RawGetString("divisor"), 0); d > 0 {
			args.Scale = capability.DivideBy(d)
		}
		if n, ok := spec.RawGetString("precision").(lua.LNumber); ok {
			args.Precision = capability.Int(int(n))
		}
		return capability.BuildNumeric(args)
	case "binary":
		attr, err := luaAttrRef(spec)
		if err != nil {
			return nil, err
		}
		return capability.BuildBinary(capability.BinaryArgs{
			Name:        luaString(spec.RawGetString("name"), ""),
			Cluster:     uint16(luaNumber(spec.RawGetString("cluster"), 0)),
			Attr:        attr,
			Access:      luaAccess(spec),
			Endpoints:   luaStrings(spec.RawGetString("endpoints")),
			On:          luaToGo(spec.RawGetString("value_on")),
			Off:         luaToGo(spec.RawGetString("value_off")),
			WireOn:      luaToGo(spec.RawGetString("wire_on")),
			WireOff:     luaToGo(spec.RawGetString("wire_off")),
			Reporting:   luaReporting(spec),
			Description: luaString(spec.RawGetString("description"), ""),
		})
	case "enum":
		attr, err := luaAttrRef(spec)
		if err != nil {
			return nil, err
		}
		lookup := map[string]int64{}
		if tbl, ok := spec.RawGetString("values").(*lua.LTable); ok {
			tbl.ForEach(func(k, v lua.LValue) {
				name, okK := k.(lua.LString)
				wire, okV := v.(lua.LNumber)
				if okK && okV {
					lookup[string(name)] = int64(wire)
				}
			})
		}
		return capability.BuildEnum(capability.EnumArgs{
			Name:        luaString(spec.RawGetString("name"), ""),
			Cluster:     uint16(luaNumber(spec.RawGetString("cluster"), 0)),
			Attr:        attr,
			Access:      luaAccess(spec),
			Endpoints:   luaStrings(spec.RawGetString("endpoints")),
			Lookup:      lookup,
			Reporting:   luaReporting(spec),
			Description: luaString(spec.RawGetString("description"), ""),
		})
	case "action":
		lookup := map[int64]string{}
		if tbl, ok := spec.RawGetString("values").(*lua.LTable); ok {
			tbl.ForEach(func(k, v lua.LValue) {
				wire, okK := k.(lua.LNumber)
				name, okV := v.(lua.LString)
				if okK && okV {
					lookup[int64(wire)] = string(name)
				}
			})
		}
		args := capability.ActionArgs{
			Name:         luaString(spec.RawGetString("name"), ""),
			Cluster:      uint16(luaNumber(spec.RawGetString("cluster"), 0)),
			PayloadField: luaString(spec.RawGetString("payload_field"), ""),
			ButtonField:  luaString(spec.RawGetString("button_field"), ""),
			Endpoints:    luaStrings(spec.RawGetString("endpoints")),
			Lookup:       lookup,
			Description:  luaString(spec.RawGetString("description"), ""),
		}
		// The attribute is optional: pure command-driven actions omit it.
		if _, ok := spec.RawGetString("attr").(lua.LNumber); ok {
			attr, err := luaAttrRef(spec)
			if err != nil {
				return nil, err
			}
			args.Attr = &attr
		}
		return capability.BuildAction(args)
	default:
		return nil, capability.Configf("unknown extend type %q", kind)
	}
}

var luaAttrTypes = map[string]uint8{
	"bool":     zcl.TypeBool,
	"bitmap8":  zcl.TypeBitmap8,
	"bitmap16": zcl.TypeBitmap16,
	"bitmap32": zcl.TypeBitmap32,
	"uint8":    zcl.TypeUint8,
	"uint16":   zcl.TypeUint16,
	"uint24":   zcl.TypeUint24,
	"uint32":   zcl.TypeUint32,
	"uint48":   zcl.TypeUint48,
	"int8":     zcl.TypeInt8,
	"int16":    zcl.TypeInt16,
	"int24":    zcl.TypeInt24,
	"int32":    zcl.TypeInt32,
	"enum8":    zcl.TypeEnum8,
	"enum16":   zcl.TypeEnum16,
}

func luaAttrRef(spec *lua.LTable) (zcl.AttrRef, error) {
	id, ok := spec.RawGetString("attr").(lua.LNumber)
	if !ok {
		return zcl.AttrRef{}, capability.Configf("capability %q needs an attr id",
			luaString(spec.RawGetString("name"), ""))
	}
	typeName := luaString(spec.RawGetString("attr_type"), "")
	attrType, ok := luaAttrTypes[typeName]
	if !ok {
		return zcl.AttrRef{}, capability.Configf("capability %q: unknown attr type %q",
			luaString(spec.RawGetString("name"), ""), typeName)
	}
	return zcl.AttrRef{ID: uint16(id), Type: attrType}, nil
}

func luaAccess(spec *lua.LTable) capability.Access {
	access := capability.AccessRead | capability.AccessReport
	if luaBool(spec.RawGetString("writable")) {
		access |= capability.AccessWrite
	}
	return access
}

// luaReporting reads the optional subscription window. Intervals accept a
// second count or a symbolic name.
func luaReporting(spec *lua.LTable) *capability.ReportingSpec {
	min, okMin := luaInterval(spec.RawGetString("min_interval"))
	max, okMax := luaInterval(spec.RawGetString("max_interval"))
	if !okMin && !okMax {
		return nil
	}
	if !okMin {
		min = capability.Symbol("min")
	}
	if !okMax {
		max = capability.Symbol("max")
	}
	return &capability.ReportingSpec{
		Min:    min,
		Max:    max,
		Change: capability.ChangeValue(luaNumber(spec.RawGetString("change"), 0)),
	}
}

func luaInterval(v lua.LValue) (capability.Interval, bool) {
	switch val := v.(type) {
	case lua.LNumber:
		return capability.Seconds(uint16(val)), true
	case lua.LString:
		return capability.Symbol(string(val)), true
	default:
		return capability.Interval{}, false
	}
}

func luaNumber(v lua.LValue, def float64) float64 {
	if n, ok := v.(lua.LNumber); ok {
		return float64(n)
	}
	return def
}

func luaScale(v lua.LValue) *extend.ScalePair {
	tbl, ok := v.(*lua.LTable)
	if !ok {
		return nil
	}
	mult, okMult := tbl.RawGetInt(1).(lua.LNumber)
	div, okDiv := tbl.RawGetInt(2).(lua.LNumber)
	if !okMult || !okDiv {
		return nil
	}
	return &extend.ScalePair{Multiplier: uint32(mult), Divisor: uint32(div)}
}

func luaString(v lua.LValue, def string) string {
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return def
}

func luaBool(v lua.LValue) bool {
	b, ok := v.(lua.LBool)
	return ok && bool(b)
}

func luaStrings(v lua.LValue) []string {
	tbl, ok := v.(*lua.LTable)
	if !ok {
		return nil
	}
	var out []string
	tbl.ForEach(func(_, item lua.LValue) {
		if s, ok := item.(lua.LString); ok {
			out = append(out, string(s))
		}
	})
	return out
}

func luaToGo(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		return float64(val)
	case lua.LString:
		return string(val)
	default:
		return nil
	}
}
