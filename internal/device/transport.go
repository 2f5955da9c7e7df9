package device

import (
	"context"

	"zigbee-bridge/internal/zcl"
)

// BindTarget identifies the destination of a binding, normally the
// coordinator's own address and endpoint.
type BindTarget struct {
	IEEE     [8]byte
	Endpoint uint8
}

// AttrResult holds one attribute from a read response.
type AttrResult struct {
	ID     uint16
	Status uint8
	Type   uint8
	Value  interface{}
}

// WriteRecord holds one attribute write.
type WriteRecord struct {
	Attr  zcl.AttrRef
	Value interface{}
}

// ReportingRecord holds one attribute reporting configuration entry.
type ReportingRecord struct {
	Attr             zcl.AttrRef
	MinInterval      uint16
	MaxInterval      uint16
	ReportableChange []byte // encoded per attribute type width; nil for discrete types
}

// BindRequest asks the device to bind a source endpoint/cluster to a target.
type BindRequest struct {
	Addr      uint16
	SrcIEEE   [8]byte
	SrcEP     uint8
	ClusterID uint16
	Dst       BindTarget
}

// Transport carries the protocol I/O verbs for already-joined devices.
// Every verb may fail with a transport fault; callers decide whether to
// propagate or swallow. Implementations must honor ctx cancellation.
type Transport interface {
	Bind(ctx context.Context, req BindRequest) error
	ReadAttributes(ctx context.Context, addr uint16, ep uint8, clusterID uint16, attrIDs []uint16) ([]AttrResult, error)
	WriteAttributes(ctx context.Context, addr uint16, ep uint8, clusterID uint16, records []WriteRecord) error
	Command(ctx context.Context, addr uint16, ep uint8, clusterID uint16, commandID uint8, payload []byte) error
	ConfigureReporting(ctx context.Context, addr uint16, ep uint8, clusterID uint16, records []ReportingRecord) error
}
