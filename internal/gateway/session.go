package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"zigbee-bridge/internal/capability"
	"zigbee-bridge/internal/definitions"
	"zigbee-bridge/internal/device"
)

// Session is the runtime binding between one device and its definition: it
// routes incoming messages through the bundle's decoders, serves set/get
// requests through the encoders, and accumulates the published state.
type Session struct {
	dev    *device.Device
	def    *definitions.Definition
	rt     *capability.Context
	logger *slog.Logger

	mu    sync.Mutex
	state map[string]any

	onState func(ieee string, state map[string]any)
}

// NewSession builds the runtime for one device. Device-level options
// override the definition's defaults.
func NewSession(dev *device.Device, def *definitions.Definition, overrides capability.Options,
	clock capability.Clock, logger *slog.Logger, onState func(string, map[string]any)) *Session {

	opts := capability.Options{}
	for k, v := range def.Options {
		opts[k] = v
	}
	for k, v := range overrides {
		opts[k] = v
	}

	s := &Session{
		dev:     dev,
		def:     def,
		logger:  logger.With("component", "session", "device", dev.IEEE),
		state:   make(map[string]any),
		onState: onState,
	}
	s.rt = &capability.Context{
		Device:   dev,
		Options:  opts,
		Timers:   capability.NewTimerStore(clock),
		Logger:   s.logger,
		Publish:  s.publish,
		Dispatch: s.HandleMessage,
	}
	if len(def.Endpoints) > 0 {
		dev.EndpointNames = def.Endpoints
	}
	return s
}

// Device returns the session's device.
func (s *Session) Device() *device.Device {
	return s.dev
}

// Definition returns the session's definition.
func (s *Session) Definition() *definitions.Definition {
	return s.def
}

// Descriptors lists the capabilities the device exposes.
func (s *Session) Descriptors() []*capability.Descriptor {
	return s.def.Bundle.Descriptors
}

// State returns a copy of the accumulated state.
func (s *Session) State() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.state))
	for k, v := range s.state {
		out[k] = v
	}
	return out
}

func (s *Session) publish(state capability.State) {
	if len(state) == 0 {
		return
	}
	s.mu.Lock()
	for k, v := range state {
		s.state[k] = v
	}
	snapshot := make(map[string]any, len(s.state))
	for k, v := range s.state {
		snapshot[k] = v
	}
	s.mu.Unlock()
	if s.onState != nil {
		s.onState(s.dev.IEEE, snapshot)
	}
}

// HandleMessage routes one incoming message through every matching decoder.
// Decode anomalies are logged and skipped: one malformed attribute must not
// silence the rest of the report.
func (s *Session) HandleMessage(msg *capability.Message) {
	merged := capability.State{}
	for i := range s.def.Bundle.Decoders {
		d := &s.def.Bundle.Decoders[i]
		if !d.Matches(msg) {
			continue
		}
		state, err := d.Decode(s.rt, msg)
		if err != nil {
			s.logger.Warn("decode failed", "decoder", d.Name, "cluster", fmt.Sprintf("0x%04X", msg.ClusterID), "err", err)
			continue
		}
		for k, v := range state {
			merged[k] = v
		}
	}
	if msg.LinkQuality > 0 {
		merged["linkquality"] = msg.LinkQuality
	}
	s.publish(merged)
}

// HandleSet applies a capability write. The returned state, if any, has
// already been published.
func (s *Session) HandleSet(ctx context.Context, key string, value any) error {
	enc := s.def.Bundle.Encoder(key)
	if enc == nil || enc.Set == nil {
		return capability.Configf("device %s: capability %q is not writable", s.dev.IEEE, key)
	}
	state, err := enc.Set(ctx, s.rt, value)
	if err != nil {
		return err
	}
	s.publish(state)
	return nil
}

// HandleGet requests a fresh read of a capability. The value arrives through
// the decode path, not as a return value.
func (s *Session) HandleGet(ctx context.Context, key string) error {
	enc := s.def.Bundle.Encoder(key)
	if enc == nil || enc.Get == nil {
		return capability.Configf("device %s: capability %q is not readable", s.dev.IEEE, key)
	}
	return enc.Get(ctx, s.rt)
}

// Configure runs the bundle's configurator against the coordinator: binding,
// reporting subscriptions and initial reads. A failure here fails the
// interview.
func (s *Session) Configure(ctx context.Context, coord device.BindTarget) error {
	if s.def.Bundle.Configure == nil {
		return nil
	}
	if err := s.def.Bundle.Configure(ctx, s.rt, coord); err != nil {
		return fmt.Errorf("configure %s: %w", s.dev.IEEE, err)
	}
	return nil
}

// OnEvent forwards a lifecycle event (announce, checkin) to the bundle.
func (s *Session) OnEvent(ctx context.Context, event string) error {
	if s.def.Bundle.OnEvent == nil {
		return nil
	}
	return s.def.Bundle.OnEvent(ctx, s.rt, event)
}

// Close stops the session's timers.
func (s *Session) Close() {
	s.rt.Timers.StopAll()
}
