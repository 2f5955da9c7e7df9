package device

import (
	"context"
)

// Endpoint is the unit of binding and I/O. It belongs to exactly one device
// and keeps a local cache of last-seen attribute values so extensions can
// reuse divisors and capability flags without a network round-trip.
type Endpoint struct {
	id          uint8
	dev         *Device
	profileID   uint16
	deviceID    uint16
	inClusters  []uint16
	outClusters []uint16
	cache       map[uint16]map[uint16]any
}

// ID returns the endpoint number.
func (e *Endpoint) ID() uint8 {
	return e.id
}

// Device returns the owning device.
func (e *Endpoint) Device() *Device {
	return e.dev
}

// ProfileID returns the endpoint's application profile.
func (e *Endpoint) ProfileID() uint16 {
	return e.profileID
}

// DeviceID returns the endpoint's device identifier within the profile.
func (e *Endpoint) DeviceID() uint16 {
	return e.deviceID
}

// InClusters returns the input (server) cluster list.
func (e *Endpoint) InClusters() []uint16 {
	return e.inClusters
}

// OutClusters returns the output (client) cluster list.
func (e *Endpoint) OutClusters() []uint16 {
	return e.outClusters
}

// HasInputCluster reports whether the endpoint serves the cluster.
func (e *Endpoint) HasInputCluster(clusterID uint16) bool {
	for _, c := range e.inClusters {
		if c == clusterID {
			return true
		}
	}
	return false
}

// HasOutputCluster reports whether the endpoint emits the cluster.
func (e *Endpoint) HasOutputCluster(clusterID uint16) bool {
	for _, c := range e.outClusters {
		if c == clusterID {
			return true
		}
	}
	return false
}

// Bind binds this endpoint's cluster to the target.
func (e *Endpoint) Bind(ctx context.Context, clusterID uint16, dst BindTarget) error {
	return e.dev.transport.Bind(ctx, BindRequest{
		Addr:      e.dev.Addr,
		SrcIEEE:   e.dev.ieeeRaw,
		SrcEP:     e.id,
		ClusterID: clusterID,
		Dst:       dst,
	})
}

// Read reads attributes from the endpoint.
func (e *Endpoint) Read(ctx context.Context, clusterID uint16, attrIDs []uint16) ([]AttrResult, error) {
	return e.dev.transport.ReadAttributes(ctx, e.dev.Addr, e.id, clusterID, attrIDs)
}

// Write writes attributes to the endpoint.
func (e *Endpoint) Write(ctx context.Context, clusterID uint16, records []WriteRecord) error {
	return e.dev.transport.WriteAttributes(ctx, e.dev.Addr, e.id, clusterID, records)
}

// Command sends a cluster-specific command to the endpoint.
func (e *Endpoint) Command(ctx context.Context, clusterID uint16, commandID uint8, payload []byte) error {
	return e.dev.transport.Command(ctx, e.dev.Addr, e.id, clusterID, commandID, payload)
}

// ConfigureReporting writes attribute reporting configuration to the endpoint.
func (e *Endpoint) ConfigureReporting(ctx context.Context, clusterID uint16, records []ReportingRecord) error {
	return e.dev.transport.ConfigureReporting(ctx, e.dev.Addr, e.id, clusterID, records)
}

// Cached returns a value from the endpoint's local attribute cache.
func (e *Endpoint) Cached(clusterID, attrID uint16) (any, bool) {
	attrs, ok := e.cache[clusterID]
	if !ok {
		return nil, false
	}
	v, ok := attrs[attrID]
	return v, ok
}

// SetCache stores a value in the local attribute cache. The cache is not
// persisted until the owning device's Save is called.
func (e *Endpoint) SetCache(clusterID, attrID uint16, value any) {
	attrs, ok := e.cache[clusterID]
	if !ok {
		attrs = make(map[uint16]any)
		e.cache[clusterID] = attrs
	}
	attrs[attrID] = value
}

// CacheSnapshot returns a copy of the cache for persistence.
func (e *Endpoint) CacheSnapshot() map[uint16]map[uint16]any {
	out := make(map[uint16]map[uint16]any, len(e.cache))
	for cluster, attrs := range e.cache {
		cp := make(map[uint16]any, len(attrs))
		for id, v := range attrs {
			cp[id] = v
		}
		out[cluster] = cp
	}
	return out
}

// RestoreCache replaces the cache from a persisted snapshot.
func (e *Endpoint) RestoreCache(snapshot map[uint16]map[uint16]any) {
	e.cache = make(map[uint16]map[uint16]any, len(snapshot))
	for cluster, attrs := range snapshot {
		cp := make(map[uint16]any, len(attrs))
		for id, v := range attrs {
			cp[id] = v
		}
		e.cache[cluster] = cp
	}
}
