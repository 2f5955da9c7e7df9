package definitions

import (
	"log/slog"
	"strings"
	"sync"

	"zigbee-bridge/internal/capability"
)

// Definition binds a vendor/model pair to a built capability bundle plus the
// per-device wiring it needs: symbolic endpoint names and default options.
type Definition struct {
	Vendor      string
	Models      []string
	Description string
	Endpoints   map[string]uint8   // symbolic name -> endpoint id
	Options     capability.Options // option defaults, overridable per device
	Bundle      *capability.Bundle
}

// Registry resolves interviewed devices to their definitions.
type Registry struct {
	mu     sync.RWMutex
	byKey  map[string]*Definition // lowercased model -> definition
	defs   []*Definition
	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		byKey:  make(map[string]*Definition),
		logger: logger.With("component", "definitions"),
	}
}

// NewStandardRegistry returns a registry pre-loaded with the built-in
// definitions.
func NewStandardRegistry(logger *slog.Logger) (*Registry, error) {
	r := NewRegistry(logger)
	defs, err := builtinDefinitions()
	if err != nil {
		return nil, err
	}
	for _, d := range defs {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a definition. A model claimed twice is a configuration
// error: definitions are meant to be unambiguous.
func (r *Registry) Register(def *Definition) error {
	if def.Bundle == nil {
		return capability.Configf("definition %q has no capability bundle", def.Description)
	}
	if len(def.Models) == 0 {
		return capability.Configf("definition %q lists no models", def.Description)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range def.Models {
		key := strings.ToLower(m)
		if prev, ok := r.byKey[key]; ok {
			return capability.Configf("model %q claimed by both %q and %q", m, prev.Description, def.Description)
		}
		r.byKey[key] = def
	}
	r.defs = append(r.defs, def)
	r.logger.Debug("definition registered", "vendor", def.Vendor, "models", def.Models)
	return nil
}

// Find resolves a definition by the model id reported during the interview.
// The manufacturer disambiguates nothing today but is logged for devices
// that report a known model under an unexpected vendor name.
func (r *Registry) Find(manufacturer, model string) *Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.byKey[strings.ToLower(model)]
	if !ok {
		return nil
	}
	if def.Vendor != "" && manufacturer != "" && !strings.EqualFold(def.Vendor, manufacturer) {
		r.logger.Warn("model matched under unexpected vendor",
			"model", model, "vendor", manufacturer, "expected", def.Vendor)
	}
	return def
}

// All returns the registered definitions in registration order.
func (r *Registry) All() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Definition, len(r.defs))
	copy(out, r.defs)
	return out
}
