package capability

import (
	"context"
	"log/slog"

	"zigbee-bridge/internal/device"
)

// MessageKind distinguishes the inbound message shapes a decoder can
// subscribe to. Cluster commands use CommandKind with the command name.
type MessageKind string

const (
	AttributeReport MessageKind = "attributeReport"
	ReadResponse    MessageKind = "readResponse"
)

// CommandKind names a cluster-command message kind.
func CommandKind(name string) MessageKind {
	return MessageKind("command" + name)
}

// Message is one inbound protocol message, already split into decoded
// attribute values or command payload fields.
type Message struct {
	Kind        MessageKind
	ClusterID   uint16
	Endpoint    *device.Endpoint
	LinkQuality uint8
	Attributes  map[uint16]any // attribute reports and read responses
	Payload     map[string]any // cluster command fields
}

// State is a partial capability-state update.
type State map[string]any

// PublishFunc accepts partial state updates. Decoders call it synchronously,
// the transient-state timer asynchronously.
type PublishFunc func(State)

// Context is the runtime context passed to decoders, encoders and
// configurators. Built once per device session.
type Context struct {
	Device  *device.Device
	Publish PublishFunc
	Options Options
	Timers  *TimerStore
	Logger  *slog.Logger

	// Dispatch re-enters the decode path with a synthesized message, used to
	// route synchronous read results through the same decoders that handle
	// device-initiated reports. May be nil.
	Dispatch func(*Message)
}

// DispatchReadResponse feeds synchronous read results back through the
// decode path as a read-response message.
func (c *Context) DispatchReadResponse(ep *device.Endpoint, clusterID uint16, results []device.AttrResult) {
	if c.Dispatch == nil {
		return
	}
	attrs := make(map[uint16]any)
	for _, r := range results {
		if r.Status == 0 {
			attrs[r.ID] = r.Value
		}
	}
	if len(attrs) == 0 {
		return
	}
	c.Dispatch(&Message{
		Kind:       ReadResponse,
		ClusterID:  clusterID,
		Endpoint:   ep,
		Attributes: attrs,
	})
}

// DecodeFunc turns an inbound message into a partial state update. A nil
// state means the message did not apply (wrong attribute or endpoint).
type DecodeFunc func(rt *Context, msg *Message) (State, error)

// Decoder is one registered decode rule.
type Decoder struct {
	Name      string // capability name, for logging
	ClusterID uint16
	Kinds     []MessageKind
	Decode    DecodeFunc
}

// Matches reports whether the decoder applies to the message.
func (d *Decoder) Matches(msg *Message) bool {
	if d.ClusterID != msg.ClusterID {
		return false
	}
	for _, k := range d.Kinds {
		if k == msg.Kind {
			return true
		}
	}
	return false
}

// SetFunc translates a capability write into protocol I/O and returns the
// optimistic state fragment (capability-facing values, not wire values).
type SetFunc func(ctx context.Context, rt *Context, value any) (State, error)

// GetFunc issues a bare read; the result arrives later via the decoder.
type GetFunc func(ctx context.Context, rt *Context) error

// Encoder is one registered capability write/read rule, keyed on the full
// capability property name (including any endpoint qualifier).
type Encoder struct {
	Key string
	Set SetFunc // nil unless access includes write
	Get GetFunc // nil unless access includes read
}

// Configurator is a one-shot, idempotent procedure bringing a device's
// subscriptions and metadata to the desired state. Safe to re-run.
type Configurator func(ctx context.Context, rt *Context, coord device.BindTarget) error

// EventFunc handles one-shot session events ("announce" re-subscription,
// custom time sync).
type EventFunc func(ctx context.Context, rt *Context, event string) error
