package capability

import (
	"time"

	"zigbee-bridge/internal/zcl"
)

// Options is the read-only per-device key/value runtime configuration
// consulted by decoders (device toggles, timeout overrides).
type Options map[string]any

// Bool returns a boolean option, or def when absent or mistyped.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key].(bool); ok {
		return v
	}
	return def
}

// Float returns a numeric option, or def when absent or mistyped.
func (o Options) Float(key string, def float64) float64 {
	if v, ok := o[key]; ok {
		if f, ok := zcl.ToFloat(v); ok {
			return f
		}
	}
	return def
}

// String returns a string option, or def when absent or mistyped.
func (o Options) String(key string, def string) string {
	if v, ok := o[key].(string); ok {
		return v
	}
	return def
}

// DurationSeconds returns an option expressed in seconds, or def.
func (o Options) DurationSeconds(key string, def time.Duration) time.Duration {
	if v, ok := o[key]; ok {
		if f, ok := zcl.ToFloat(v); ok && f >= 0 {
			return time.Duration(f * float64(time.Second))
		}
	}
	return def
}
