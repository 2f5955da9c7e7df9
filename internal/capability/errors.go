package capability

import (
	"errors"
	"fmt"

	"zigbee-bridge/internal/zcl"
)

// ConfigError is a fatal configuration error: unknown symbolic time,
// mismatched meter divisor/multiplier, missing endpoint, duplicate
// capability name. Never downgraded.
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string {
	return "configuration: " + e.msg
}

// Configf builds a ConfigError.
func Configf(format string, args ...any) error {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// DecodeError is a decode anomaly: unmapped lookup value or non-numeric
// raw. Fatal for the message; no default value is ever guessed.
type DecodeError struct {
	msg string
}

func (e *DecodeError) Error() string {
	return "decode: " + e.msg
}

// Decodef builds a DecodeError.
func Decodef(format string, args ...any) error {
	return &DecodeError{msg: fmt.Sprintf(format, args...)}
}

// IsDecodeError reports whether err is (or wraps) a DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// StatusError is a protocol fault carrying the ZCL status a device answered
// with. Callers check the discriminant explicitly instead of matching
// message text.
type StatusError struct {
	Op     string
	Status uint8
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status 0x%02X", e.Op, e.Status)
}

// IsUnsupportedAttribute reports whether err is a StatusError with the
// UNSUPPORTED_ATTRIBUTE status. The only fault kind best-effort post-config
// reads are allowed to swallow.
func IsUnsupportedAttribute(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == zcl.StatusUnsupportedAttr
}
