package uart

import (
	"encoding/binary"
	"fmt"

	"zigbee-bridge/internal/zcl"
)

// Wire framing: SOF, length, command, sequence, payload, XOR checksum over
// everything after SOF. Length covers the payload only.
const (
	sof         = 0xFE
	maxPayload  = 250
	headerBytes = 3 // length, command, sequence
)

// Request commands, host to adapter. The adapter answers with the same
// command id and a leading status byte.
const (
	cmdBind       uint8 = 0x01
	cmdRead       uint8 = 0x02
	cmdWrite      uint8 = 0x03
	cmdCluster    uint8 = 0x04
	cmdConfigure  uint8 = 0x05
	cmdPermitJoin uint8 = 0x06
)

// Indications, adapter to host.
const (
	indReport   uint8 = 0x80
	indCommand  uint8 = 0x81
	indJoin     uint8 = 0x82
	indLeave    uint8 = 0x83
	indAnnounce uint8 = 0x84
)

const statusOK = 0x00

type frame struct {
	cmd     uint8
	seq     uint8
	payload []byte
}

func (f *frame) encode() []byte {
	buf := make([]byte, 0, len(f.payload)+5)
	buf = append(buf, sof, byte(len(f.payload)), f.cmd, f.seq)
	buf = append(buf, f.payload...)
	var fcs byte
	for _, b := range buf[1:] {
		fcs ^= b
	}
	return append(buf, fcs)
}

// IndicationKind classifies adapter-initiated frames.
type IndicationKind uint8

const (
	IndAttributeReport IndicationKind = iota
	IndReadResponse
	IndClusterCommand
	IndDeviceJoined
	IndDeviceLeft
	IndDeviceAnnounce
)

// Indication is one parsed adapter-to-host event.
type Indication struct {
	Kind        IndicationKind
	IEEE        [8]byte
	Addr        uint16
	Endpoint    uint8
	ClusterID   uint16
	CommandID   uint8
	LinkQuality uint8

	// Attributes for report/read-response indications.
	Attributes map[uint16]interface{}

	// Raw command payload for cluster-command indications.
	Payload []byte
}

// parseIndication decodes the shared indication header:
// ieee[8] addr u16 endpoint cluster u16 lqi, then the per-kind body.
func parseIndication(f *frame) (*Indication, error) {
	if len(f.payload) < 14 {
		return nil, fmt.Errorf("indication too short: %d bytes", len(f.payload))
	}
	ind := &Indication{}
	copy(ind.IEEE[:], f.payload[:8])
	ind.Addr = binary.LittleEndian.Uint16(f.payload[8:10])
	ind.Endpoint = f.payload[10]
	ind.ClusterID = binary.LittleEndian.Uint16(f.payload[11:13])
	ind.LinkQuality = f.payload[13]
	body := f.payload[14:]

	switch f.cmd {
	case indReport:
		ind.Kind = IndAttributeReport
		attrs, err := parseAttributeList(body)
		if err != nil {
			return nil, err
		}
		ind.Attributes = attrs
	case indCommand:
		ind.Kind = IndClusterCommand
		if len(body) < 1 {
			return nil, fmt.Errorf("command indication without command id")
		}
		ind.CommandID = body[0]
		ind.Payload = body[1:]
	case indJoin:
		ind.Kind = IndDeviceJoined
	case indLeave:
		ind.Kind = IndDeviceLeft
	case indAnnounce:
		ind.Kind = IndDeviceAnnounce
	default:
		return nil, fmt.Errorf("unknown indication 0x%02X", f.cmd)
	}
	return ind, nil
}

// parseAttributeList decodes repeated attrID u16, typeID u8, value blocks.
func parseAttributeList(data []byte) (map[uint16]interface{}, error) {
	attrs := make(map[uint16]interface{})
	for len(data) > 0 {
		if len(data) < 3 {
			return nil, fmt.Errorf("truncated attribute record: %d bytes left", len(data))
		}
		id := binary.LittleEndian.Uint16(data[:2])
		typeID := data[2]
		value, n, err := zcl.DecodeValue(typeID, data[3:])
		if err != nil {
			return nil, fmt.Errorf("attribute 0x%04X: %w", id, err)
		}
		attrs[id] = value
		data = data[3+n:]
	}
	return attrs, nil
}

// parseReadResults decodes a read-response body: repeated attrID u16,
// status u8, then typeID and value for successful records.
func parseReadResults(data []byte) ([]readResult, error) {
	var out []readResult
	for len(data) > 0 {
		if len(data) < 3 {
			return nil, fmt.Errorf("truncated read record: %d bytes left", len(data))
		}
		r := readResult{
			ID:     binary.LittleEndian.Uint16(data[:2]),
			Status: data[2],
		}
		data = data[3:]
		if r.Status == statusOK {
			if len(data) < 1 {
				return nil, fmt.Errorf("read record 0x%04X missing type", r.ID)
			}
			r.Type = data[0]
			value, n, err := zcl.DecodeValue(r.Type, data[1:])
			if err != nil {
				return nil, fmt.Errorf("read record 0x%04X: %w", r.ID, err)
			}
			r.Value = value
			data = data[1+n:]
		}
		out = append(out, r)
	}
	return out, nil
}

type readResult struct {
	ID     uint16
	Status uint8
	Type   uint8
	Value  interface{}
}

func appendUint16(buf []byte, v uint16) []byte {
	return append(buf, byte(v), byte(v>>8))
}
