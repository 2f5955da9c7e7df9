package zcl

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ZCL data type IDs.
const (
	TypeNoData   uint8 = 0x00
	TypeBool     uint8 = 0x10
	TypeBitmap8  uint8 = 0x18
	TypeBitmap16 uint8 = 0x19
	TypeBitmap24 uint8 = 0x1A
	TypeBitmap32 uint8 = 0x1B
	TypeUint8    uint8 = 0x20
	TypeUint16   uint8 = 0x21
	TypeUint24   uint8 = 0x22
	TypeUint32   uint8 = 0x23
	TypeUint40   uint8 = 0x24
	TypeUint48   uint8 = 0x25
	TypeInt8     uint8 = 0x28
	TypeInt16    uint8 = 0x29
	TypeInt24    uint8 = 0x2A
	TypeInt32    uint8 = 0x2B
	TypeEnum8    uint8 = 0x30
	TypeEnum16   uint8 = 0x31
	TypeFloat32  uint8 = 0x39
	TypeFloat64  uint8 = 0x3A
	TypeOctetStr uint8 = 0x41
	TypeCharStr  uint8 = 0x42
	TypeUTC      uint8 = 0xE2
	TypeEUI64    uint8 = 0xF0
)

type typeInfo struct {
	name string
	size int // -1 for variable-length
}

var typeTable = map[uint8]typeInfo{
	TypeNoData:   {"nodata", 0},
	TypeBool:     {"bool", 1},
	TypeBitmap8:  {"map8", 1},
	TypeBitmap16: {"map16", 2},
	TypeBitmap24: {"map24", 3},
	TypeBitmap32: {"map32", 4},
	TypeUint8:    {"uint8", 1},
	TypeUint16:   {"uint16", 2},
	TypeUint24:   {"uint24", 3},
	TypeUint32:   {"uint32", 4},
	TypeUint40:   {"uint40", 5},
	TypeUint48:   {"uint48", 6},
	TypeInt8:     {"int8", 1},
	TypeInt16:    {"int16", 2},
	TypeInt24:    {"int24", 3},
	TypeInt32:    {"int32", 4},
	TypeEnum8:    {"enum8", 1},
	TypeEnum16:   {"enum16", 2},
	TypeFloat32:  {"float32", 4},
	TypeFloat64:  {"float64", 8},
	TypeOctetStr: {"octstr", -1},
	TypeCharStr:  {"string", -1},
	TypeUTC:      {"UTC", 4},
	TypeEUI64:    {"EUI64", 8},
}

// TypeSize returns the fixed size in bytes of a ZCL type, or -1 for
// variable-length and unknown types.
func TypeSize(typeID uint8) int {
	if info, ok := typeTable[typeID]; ok {
		return info.size
	}
	return -1
}

// TypeName returns a human-readable name for a ZCL type.
func TypeName(typeID uint8) string {
	if info, ok := typeTable[typeID]; ok {
		return info.name
	}
	return fmt.Sprintf("0x%02X", typeID)
}

func readUintLE(data []byte) uint64 {
	var v uint64
	for i := len(data) - 1; i >= 0; i-- {
		v = v<<8 | uint64(data[i])
	}
	return v
}

func writeUintLE(v uint64, width int) []byte {
	out := make([]byte, width)
	for i := 0; i < width; i++ {
		out[i] = byte(v >> (8 * i))
	}
	return out
}

func signExtend(v uint64, bits int) int64 {
	shift := 64 - bits
	return int64(v<<shift) >> shift
}

// DecodeValue decodes a ZCL typed value from raw little-endian bytes,
// returning the Go value and the number of bytes consumed.
func DecodeValue(typeID uint8, data []byte) (interface{}, int, error) {
	size := TypeSize(typeID)
	if size == 0 {
		return nil, 0, nil
	}
	if size < 0 {
		return decodeVariable(typeID, data)
	}
	if len(data) < size {
		return nil, 0, fmt.Errorf("zcl: short value for %s: need %d, have %d", TypeName(typeID), size, len(data))
	}
	raw := readUintLE(data[:size])

	switch typeID {
	case TypeBool:
		return raw != 0, size, nil
	case TypeUint8, TypeEnum8, TypeBitmap8:
		return uint8(raw), size, nil
	case TypeUint16, TypeEnum16, TypeBitmap16:
		return uint16(raw), size, nil
	case TypeUint24, TypeUint32, TypeBitmap24, TypeBitmap32, TypeUTC:
		return uint32(raw), size, nil
	case TypeUint40, TypeUint48:
		return raw, size, nil
	case TypeInt8:
		return int8(raw), size, nil
	case TypeInt16:
		return int16(raw), size, nil
	case TypeInt24:
		return int32(signExtend(raw, 24)), size, nil
	case TypeInt32:
		return int32(raw), size, nil
	case TypeFloat32:
		return math.Float32frombits(uint32(raw)), size, nil
	case TypeFloat64:
		return math.Float64frombits(raw), size, nil
	case TypeEUI64:
		var addr [8]byte
		copy(addr[:], data[:8])
		return addr, size, nil
	default:
		return nil, 0, fmt.Errorf("zcl: unsupported type 0x%02X", typeID)
	}
}

func decodeVariable(typeID uint8, data []byte) (interface{}, int, error) {
	if len(data) < 1 {
		return nil, 0, fmt.Errorf("zcl: short value for %s: missing length", TypeName(typeID))
	}
	n := int(data[0])
	if n == 0xFF { // invalid-value marker
		return nil, 1, nil
	}
	if len(data) < 1+n {
		return nil, 0, fmt.Errorf("zcl: short value for %s: need %d, have %d", TypeName(typeID), 1+n, len(data))
	}
	body := data[1 : 1+n]
	if typeID == TypeCharStr {
		return string(body), 1 + n, nil
	}
	cp := make([]byte, n)
	copy(cp, body)
	return cp, 1 + n, nil
}

// EncodeValue encodes a Go value as a ZCL typed little-endian payload.
func EncodeValue(typeID uint8, value interface{}) ([]byte, error) {
	switch typeID {
	case TypeBool:
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("zcl: encode bool: got %T", value)
		}
		if b {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case TypeCharStr:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("zcl: encode string: got %T", value)
		}
		if len(s) > 254 {
			return nil, fmt.Errorf("zcl: string too long: %d bytes", len(s))
		}
		return append([]byte{byte(len(s))}, s...), nil
	case TypeOctetStr:
		b, ok := value.([]byte)
		if !ok {
			return nil, fmt.Errorf("zcl: encode octstr: got %T", value)
		}
		if len(b) > 254 {
			return nil, fmt.Errorf("zcl: octstr too long: %d bytes", len(b))
		}
		return append([]byte{byte(len(b))}, b...), nil
	case TypeFloat32:
		f, ok := ToFloat(value)
		if !ok {
			return nil, fmt.Errorf("zcl: encode float32: got %T", value)
		}
		out := make([]byte, 4)
		binary.LittleEndian.PutUint32(out, math.Float32bits(float32(f)))
		return out, nil
	case TypeFloat64:
		f, ok := ToFloat(value)
		if !ok {
			return nil, fmt.Errorf("zcl: encode float64: got %T", value)
		}
		out := make([]byte, 8)
		binary.LittleEndian.PutUint64(out, math.Float64bits(f))
		return out, nil
	case TypeEUI64:
		addr, ok := value.([8]byte)
		if !ok {
			return nil, fmt.Errorf("zcl: encode EUI64: got %T", value)
		}
		return addr[:], nil
	}

	size := TypeSize(typeID)
	if size <= 0 {
		return nil, fmt.Errorf("zcl: cannot encode type %s", TypeName(typeID))
	}
	n, ok := ToInt64(value)
	if !ok {
		return nil, fmt.Errorf("zcl: encode %s: got %T", TypeName(typeID), value)
	}
	return writeUintLE(uint64(n), size), nil
}

// ToInt64 converts any integer or float value to int64.
func ToInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true
	case float32:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// ToFloat converts any numeric value to float64.
func ToFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		n, ok := ToInt64(value)
		return float64(n), ok
	}
}
