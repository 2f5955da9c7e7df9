package store

import "time"

// Device is the persisted record for one Zigbee device: identity, endpoint
// layout from the interview, and the mutable metadata capability extensions
// maintain (power source, device type, checkin interval, calibration hints).
type Device struct {
	IEEEAddress     string         `json:"ieee_address"`
	ShortAddress    uint16         `json:"short_address"`
	Manufacturer    string         `json:"manufacturer,omitempty"`
	Model           string         `json:"model,omitempty"`
	FriendlyName    string         `json:"friendly_name,omitempty"`
	Endpoints       []Endpoint     `json:"endpoints,omitempty"`
	Interviewed     bool           `json:"interviewed"`
	JoinedAt        time.Time      `json:"joined_at"`
	LastSeen        time.Time      `json:"last_seen"`
	PowerSource     string         `json:"power_source,omitempty"`
	DeviceType      string         `json:"device_type,omitempty"`
	CheckinInterval uint32         `json:"checkin_interval,omitempty"` // seconds
	Meta            map[string]any `json:"meta,omitempty"`
}

// Endpoint is the persisted shape of one device endpoint, including the
// local cache of last-seen attribute values (divisors, multipliers, color
// capabilities) that spares network round-trips.
type Endpoint struct {
	ID          uint8                     `json:"id"`
	ProfileID   uint16                    `json:"profile_id"`
	DeviceID    uint16                    `json:"device_id"`
	InClusters  []uint16                  `json:"in_clusters"`
	OutClusters []uint16                  `json:"out_clusters"`
	Cache       map[uint16]map[uint16]any `json:"cache,omitempty"` // cluster -> attribute -> value
}
