package definitions

import (
	"os"
	"path/filepath"
	"testing"
)

const luaPlug = `
definition{
  vendor = "TuYa",
  models = {"TS011F-custom"},
  description = "Metering plug",
  options = {battery_not_pre_halved = true},
  extends = {
    {type = "onoff", power_on_behavior = true},
    {type = "meter", power_scale = {1, 10}, energy_scale = {1, 100}},
  },
}
`

const luaContact = `
definition{
  vendor = "Sonoff",
  models = {"SNZB-04-custom"},
  description = "Contact sensor",
  endpoints = {main = 1},
  extends = {
    {type = "ias_zone", zone_type = "contact", timeout = 0},
    {type = "battery", voltage = true},
  },
}
`

const luaSensor = `
definition{
  vendor = "lumi",
  models = {"WSDCGQ11LM-custom"},
  description = "Climate sensor with a wireless button",
  extends = {
    {type = "numeric", name = "temperature", cluster = 0x0402,
     attr = 0x0000, attr_type = "int16", unit = "°C",
     divisor = 100, precision = 2,
     min_interval = 10, max_interval = "1_hour", change = 10},
    {type = "binary", name = "occupancy", cluster = 0x0406,
     attr = 0x0000, attr_type = "bitmap8", wire_on = 1, wire_off = 0},
    {type = "enum", name = "sensitivity", cluster = 0x0500,
     attr = 0x0013, attr_type = "enum8", writable = true,
     values = {low = 0, medium = 1, high = 2}},
    {type = "action", cluster = 0x0012,
     values = {[1] = "single", [2] = "double"}},
  },
}
`

func writeLua(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadLuaDir(t *testing.T) {
	dir := t.TempDir()
	writeLua(t, dir, "plug.lua", luaPlug)
	writeLua(t, dir, "contact.lua", luaContact)
	writeLua(t, dir, "notes.txt", "ignored")

	r := NewRegistry(testLogger())
	if err := r.LoadLuaDir(dir); err != nil {
		t.Fatalf("LoadLuaDir: %v", err)
	}
	if got := len(r.All()); got != 2 {
		t.Fatalf("registered %d definitions, want 2", got)
	}

	plug := r.Find("TuYa", "TS011F-custom")
	if plug == nil {
		t.Fatal("plug definition not found")
	}
	if plug.Options["battery_not_pre_halved"] != true {
		t.Errorf("options = %v", plug.Options)
	}
	if plug.Bundle.Encoder("state") == nil {
		t.Error("plug bundle has no state encoder")
	}
	if plug.Bundle.Encoder("power_on_behavior") == nil {
		t.Error("plug bundle has no power_on_behavior encoder")
	}

	contact := r.Find("Sonoff", "SNZB-04-custom")
	if contact == nil {
		t.Fatal("contact definition not found")
	}
	if contact.Endpoints["main"] != 1 {
		t.Errorf("endpoints = %v", contact.Endpoints)
	}
	found := false
	for _, d := range contact.Bundle.Descriptors {
		if d.Name == "contact" {
			found = true
		}
	}
	if !found {
		t.Error("contact capability missing from bundle")
	}
}

func TestLoadLuaGenericCapabilities(t *testing.T) {
	dir := t.TempDir()
	writeLua(t, dir, "sensor.lua", luaSensor)

	r := NewRegistry(testLogger())
	if err := r.LoadLuaDir(dir); err != nil {
		t.Fatalf("LoadLuaDir: %v", err)
	}
	def := r.Find("lumi", "WSDCGQ11LM-custom")
	if def == nil {
		t.Fatal("sensor definition not found")
	}

	byName := map[string]bool{}
	for _, d := range def.Bundle.Descriptors {
		byName[d.Name] = true
	}
	for _, want := range []string{"temperature", "occupancy", "sensitivity", "action"} {
		if !byName[want] {
			t.Errorf("capability %q missing from bundle (have %v)", want, byName)
		}
	}
	// Only the writable enum gets an encoder.
	if def.Bundle.Encoder("sensitivity") == nil {
		t.Error("writable enum has no encoder")
	}
	if def.Bundle.Encoder("temperature") != nil {
		t.Error("read-only numeric grew an encoder")
	}
}

func TestLoadLuaGenericBadInterval(t *testing.T) {
	dir := t.TempDir()
	writeLua(t, dir, "bad.lua", `definition{models = {"X"}, extends = {
	  {type = "numeric", name = "t", cluster = 0x0402,
	   attr = 0x0000, attr_type = "int16",
	   min_interval = 0, max_interval = "fortnight", change = 1},
	}}`)

	r := NewRegistry(testLogger())
	if err := r.LoadLuaDir(dir); err == nil {
		t.Fatal("unknown interval symbol should fail the load")
	}
}

func TestLoadLuaGenericUnknownAttrType(t *testing.T) {
	dir := t.TempDir()
	writeLua(t, dir, "bad.lua", `definition{models = {"X"}, extends = {
	  {type = "numeric", name = "t", cluster = 0x0402, attr = 0, attr_type = "float128"},
	}}`)

	r := NewRegistry(testLogger())
	if err := r.LoadLuaDir(dir); err == nil {
		t.Fatal("unknown attr type should fail the load")
	}
}

func TestLoadLuaDirMissing(t *testing.T) {
	r := NewRegistry(testLogger())
	if err := r.LoadLuaDir(filepath.Join(t.TempDir(), "nope")); err != nil {
		t.Fatalf("missing dir should be a no-op, got %v", err)
	}
}

func TestLoadLuaBadDefinition(t *testing.T) {
	dir := t.TempDir()
	writeLua(t, dir, "bad.lua", `definition{models = {"X"}, extends = {{type = "teleport"}}}`)

	r := NewRegistry(testLogger())
	if err := r.LoadLuaDir(dir); err == nil {
		t.Fatal("unknown extend type should fail the load")
	}
}

func TestLoadLuaSyntaxError(t *testing.T) {
	dir := t.TempDir()
	writeLua(t, dir, "broken.lua", `definition{`)

	r := NewRegistry(testLogger())
	if err := r.LoadLuaDir(dir); err == nil {
		t.Fatal("syntax error should fail the load")
	}
}
