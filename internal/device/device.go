package device

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// SaveFunc persists a device's mutable metadata. Extensions that change
// metadata call Save explicitly; nothing is persisted implicitly.
type SaveFunc func(*Device) error

// Device models one joined Zigbee device: identity, ordered endpoints, and
// the mutable metadata extensions maintain across the interview.
type Device struct {
	IEEE string
	Addr uint16

	Manufacturer string
	Model        string

	PowerSource     string
	DeviceType      string
	CheckinInterval uint32 // seconds

	// Meta carries extension-owned metadata (battery calibration hints,
	// multi-endpoint flags, color-mode flags). Persisted via Save.
	Meta map[string]any

	// EndpointNames maps definition-level endpoint qualifiers ("left",
	// "right") to endpoint IDs.
	EndpointNames map[string]uint8

	endpoints []*Endpoint
	transport Transport
	ieeeRaw   [8]byte
	save      SaveFunc
}

// New creates a device handle bound to a transport.
func New(ieee string, addr uint16, tr Transport) (*Device, error) {
	raw, err := ParseIEEE(ieee)
	if err != nil {
		return nil, err
	}
	return &Device{
		IEEE:      ieee,
		Addr:      addr,
		Meta:      make(map[string]any),
		transport: tr,
		ieeeRaw:   raw,
	}, nil
}

// ParseIEEE parses "DD:DD:DD:DD:DD:DD:DD:DD" or "DDDDDDDDDDDDDDDD" into [8]byte.
func ParseIEEE(s string) ([8]byte, error) {
	var result [8]byte
	s = strings.ReplaceAll(s, ":", "")
	b, err := hex.DecodeString(s)
	if err != nil {
		return result, fmt.Errorf("parse ieee address: %w", err)
	}
	if len(b) != 8 {
		return result, fmt.Errorf("ieee address must be 8 bytes, got %d", len(b))
	}
	copy(result[:], b)
	return result, nil
}

// FormatIEEE renders raw IEEE bytes in the canonical colon form.
func FormatIEEE(raw [8]byte) string {
	parts := make([]string, 8)
	for i, b := range raw {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(parts, ":")
}

// IEEERaw returns the device's IEEE address as raw bytes.
func (d *Device) IEEERaw() [8]byte {
	return d.ieeeRaw
}

// Transport returns the device's transport.
func (d *Device) Transport() Transport {
	return d.transport
}

// SetSaveFunc installs the persistence hook used by Save.
func (d *Device) SetSaveFunc(fn SaveFunc) {
	d.save = fn
}

// Save persists the device's mutable metadata and endpoint caches.
func (d *Device) Save() error {
	if d.save == nil {
		return nil
	}
	return d.save(d)
}

// AddEndpoint appends an endpoint discovered during the interview.
func (d *Device) AddEndpoint(id uint8, profileID, deviceID uint16, in, out []uint16) *Endpoint {
	ep := &Endpoint{
		id:          id,
		dev:         d,
		profileID:   profileID,
		deviceID:    deviceID,
		inClusters:  in,
		outClusters: out,
		cache:       make(map[uint16]map[uint16]any),
	}
	d.endpoints = append(d.endpoints, ep)
	return ep
}

// Endpoints returns the device's endpoints in discovery order.
func (d *Device) Endpoints() []*Endpoint {
	return d.endpoints
}

// Endpoint returns the endpoint with the given ID, or nil.
func (d *Device) Endpoint(id uint8) *Endpoint {
	for _, ep := range d.endpoints {
		if ep.id == id {
			return ep
		}
	}
	return nil
}

// FirstEndpoint returns the first endpoint, or nil for an empty device.
func (d *Device) FirstEndpoint() *Endpoint {
	if len(d.endpoints) == 0 {
		return nil
	}
	return d.endpoints[0]
}

// EndpointByName resolves a definition-level endpoint qualifier.
func (d *Device) EndpointByName(name string) *Endpoint {
	id, ok := d.EndpointNames[name]
	if !ok {
		return nil
	}
	return d.Endpoint(id)
}

// NameOfEndpoint returns the qualifier mapped to an endpoint ID, or "".
func (d *Device) NameOfEndpoint(id uint8) string {
	for name, epID := range d.EndpointNames {
		if epID == id {
			return name
		}
	}
	return ""
}

// EndpointsWithInputCluster returns all endpoints exposing the cluster as
// an input (server-side) cluster.
func (d *Device) EndpointsWithInputCluster(clusterID uint16) []*Endpoint {
	var out []*Endpoint
	for _, ep := range d.endpoints {
		if ep.HasInputCluster(clusterID) {
			out = append(out, ep)
		}
	}
	return out
}
