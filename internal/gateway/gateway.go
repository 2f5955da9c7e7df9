package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"zigbee-bridge/internal/capability"
	"zigbee-bridge/internal/definitions"
	"zigbee-bridge/internal/device"
	"zigbee-bridge/internal/store"
	"zigbee-bridge/internal/zcl"
)

// Gateway owns the device sessions: it matches interviewed devices to
// definitions, persists them, routes incoming messages and serves set/get
// requests from the MQTT and WebSocket frontends.
type Gateway struct {
	transport device.Transport
	store     store.Store
	registry  *definitions.Registry
	clusters  *zcl.Registry
	coord     device.BindTarget
	clock     capability.Clock
	events    *EventBus
	logger    *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session // IEEE -> session
}

// SetClock replaces the timer clock, for tests.
func (g *Gateway) SetClock(clock capability.Clock) {
	g.clock = clock
}

func New(transport device.Transport, st store.Store, registry *definitions.Registry,
	coord device.BindTarget, logger *slog.Logger) *Gateway {
	return &Gateway{
		transport: transport,
		store:     st,
		registry:  registry,
		clusters:  zcl.NewStandardRegistry(logger),
		coord:     coord,
		events:    NewEventBus(),
		logger:    logger.With("component", "gateway"),
		sessions:  make(map[string]*Session),
	}
}

// Events returns the gateway's event bus.
func (g *Gateway) Events() *EventBus {
	return g.events
}

// Start restores sessions for every interviewed device in the store.
func (g *Gateway) Start() error {
	devices, err := g.store.ListDevices()
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}
	restored := 0
	for _, rec := range devices {
		if !rec.Interviewed {
			continue
		}
		def := g.registry.Find(rec.Manufacturer, rec.Model)
		if def == nil {
			g.logger.Warn("no definition for stored device",
				"device", rec.IEEEAddress, "manufacturer", rec.Manufacturer, "model", rec.Model)
			continue
		}
		dev, err := g.runtimeDevice(rec)
		if err != nil {
			g.logger.Warn("skipping stored device", "err", err)
			continue
		}
		g.attach(dev, def, rec)
		restored++
	}
	g.logger.Info("gateway started", "devices", restored)
	return nil
}

// Stop closes all sessions.
func (g *Gateway) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for ieee, s := range g.sessions {
		s.Close()
		delete(g.sessions, ieee)
	}
	g.logger.Info("gateway stopped")
}

// AddDevice registers a freshly interviewed device: matches a definition,
// persists the record, builds the session and runs its configurator. A
// configure failure is an interview failure and the session is torn down.
func (g *Gateway) AddDevice(ctx context.Context, rec *store.Device) error {
	def := g.registry.Find(rec.Manufacturer, rec.Model)
	if def == nil {
		g.events.emit(Event{Type: EventInterviewFailed, IEEE: rec.IEEEAddress, Data: map[string]any{
			"reason": "unsupported device", "manufacturer": rec.Manufacturer, "model": rec.Model,
		}})
		return capability.Configf("no definition for %s / %s", rec.Manufacturer, rec.Model)
	}

	rec.Interviewed = true
	if rec.JoinedAt.IsZero() {
		rec.JoinedAt = time.Now()
	}
	if err := g.store.SaveDevice(rec); err != nil {
		return fmt.Errorf("save device: %w", err)
	}
	g.events.emit(Event{Type: EventDeviceJoined, IEEE: rec.IEEEAddress, Data: map[string]any{
		"manufacturer": rec.Manufacturer, "model": rec.Model,
	}})

	dev, err := g.runtimeDevice(rec)
	if err != nil {
		return err
	}
	session := g.attach(dev, def, rec)

	if err := session.Configure(ctx, g.coord); err != nil {
		g.detach(rec.IEEEAddress)
		g.events.emit(Event{Type: EventInterviewFailed, IEEE: rec.IEEEAddress, Data: map[string]any{
			"reason": err.Error(),
		}})
		return err
	}
	g.events.emit(Event{Type: EventInterviewDone, IEEE: rec.IEEEAddress, Data: map[string]any{
		"description": def.Description,
	}})
	return nil
}

// RemoveDevice closes the session and deletes the stored record.
func (g *Gateway) RemoveDevice(ieee string) error {
	g.detach(ieee)
	if err := g.store.DeleteDevice(ieee); err != nil {
		return err
	}
	g.events.emit(Event{Type: EventDeviceLeft, IEEE: ieee})
	return nil
}

// HandleMessage routes an incoming cluster message to its session and bumps
// the device's last-seen timestamp.
func (g *Gateway) HandleMessage(ieee string, msg *capability.Message) {
	g.mu.RLock()
	session, ok := g.sessions[ieee]
	g.mu.RUnlock()
	if !ok {
		g.logger.Debug("message for unknown device", "device", ieee)
		return
	}
	if err := g.store.UpdateDevice(ieee, func(rec *store.Device) error {
		rec.LastSeen = time.Now()
		return nil
	}); err != nil {
		g.logger.Warn("update last seen", "device", ieee, "err", err)
	}
	session.HandleMessage(msg)
}

// HandleAnnounce re-runs the bundle's lifecycle hook when a device
// re-announces itself, typically after a power cycle.
func (g *Gateway) HandleAnnounce(ctx context.Context, ieee string) {
	g.mu.RLock()
	session, ok := g.sessions[ieee]
	g.mu.RUnlock()
	if !ok {
		return
	}
	if err := session.OnEvent(ctx, "announce"); err != nil {
		g.logger.Warn("announce hook failed", "device", ieee, "err", err)
	}
}

// Set writes one capability value on a device addressed by IEEE or friendly
// name.
func (g *Gateway) Set(ctx context.Context, target, key string, value any) error {
	session := g.resolve(target)
	if session == nil {
		return store.ErrNotFound
	}
	return session.HandleSet(ctx, key, value)
}

// Get triggers a fresh read of one capability; the value arrives as a state
// update event.
func (g *Gateway) Get(ctx context.Context, target, key string) error {
	session := g.resolve(target)
	if session == nil {
		return store.ErrNotFound
	}
	return session.HandleGet(ctx, key)
}

// Session returns the session for an IEEE or friendly name, nil if none.
func (g *Gateway) Session(target string) *Session {
	return g.resolve(target)
}

// Sessions returns all active sessions.
func (g *Gateway) Sessions() []*Session {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Session, 0, len(g.sessions))
	for _, s := range g.sessions {
		out = append(out, s)
	}
	return out
}

// FriendlyName returns the name to publish a device under.
func (g *Gateway) FriendlyName(ieee string) string {
	rec, err := g.store.GetDevice(ieee)
	if err != nil || rec.FriendlyName == "" {
		return ieee
	}
	return rec.FriendlyName
}

// Rename sets a device's friendly name.
func (g *Gateway) Rename(ieee, name string) error {
	return g.store.UpdateDevice(ieee, func(rec *store.Device) error {
		rec.FriendlyName = name
		return nil
	})
}

func (g *Gateway) resolve(target string) *Session {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if s, ok := g.sessions[target]; ok {
		return s
	}
	for ieee, s := range g.sessions {
		if rec, err := g.store.GetDevice(ieee); err == nil && rec.FriendlyName == target {
			return s
		}
	}
	return nil
}

func (g *Gateway) attach(dev *device.Device, def *definitions.Definition, rec *store.Device) *Session {
	overrides := capability.Options{}
	for k, v := range rec.Meta {
		overrides[k] = v
	}
	session := NewSession(dev, def, overrides, g.clock, g.logger, g.onState)
	g.mu.Lock()
	g.sessions[dev.IEEE] = session
	g.mu.Unlock()
	return session
}

func (g *Gateway) detach(ieee string) {
	g.mu.Lock()
	if s, ok := g.sessions[ieee]; ok {
		s.Close()
		delete(g.sessions, ieee)
	}
	g.mu.Unlock()
}

func (g *Gateway) onState(ieee string, state map[string]any) {
	g.events.emit(Event{Type: EventStateUpdate, IEEE: ieee, Data: state})
}

// runtimeDevice builds the runtime device from a stored record, wired to the
// transport and persisting cache changes back to the store.
func (g *Gateway) runtimeDevice(rec *store.Device) (*device.Device, error) {
	dev, err := device.New(rec.IEEEAddress, rec.ShortAddress, g.transport)
	if err != nil {
		return nil, fmt.Errorf("device %s: %w", rec.IEEEAddress, err)
	}
	dev.Manufacturer = rec.Manufacturer
	dev.Model = rec.Model
	dev.PowerSource = rec.PowerSource
	dev.DeviceType = rec.DeviceType
	dev.CheckinInterval = rec.CheckinInterval
	dev.Meta = rec.Meta
	for _, ep := range rec.Endpoints {
		rt := dev.AddEndpoint(ep.ID, ep.ProfileID, ep.DeviceID, ep.InClusters, ep.OutClusters)
		if ep.Cache != nil {
			rt.RestoreCache(ep.Cache)
		}
	}
	dev.SetSaveFunc(func(d *device.Device) error {
		return g.store.UpdateDevice(d.IEEE, func(r *store.Device) error {
			r.ShortAddress = d.Addr
			r.Meta = d.Meta
			for i := range r.Endpoints {
				if ep := d.Endpoint(r.Endpoints[i].ID); ep != nil {
					r.Endpoints[i].Cache = ep.CacheSnapshot()
				}
			}
			return nil
		})
	})
	return dev, nil
}
