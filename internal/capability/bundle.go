package capability

import (
	"context"
	"errors"

	"zigbee-bridge/internal/device"
)

// Bundle is the set of artifacts built for one or more capabilities:
// descriptors, decoders, encoders, optional configurator, optional event
// handler, optional static metadata. Built once, immutable thereafter.
type Bundle struct {
	Descriptors []*Descriptor
	Decoders    []Decoder
	Encoders    []Encoder
	Configure   Configurator
	OnEvent     EventFunc
	Meta        map[string]any
}

// Encoder returns the encoder registered for a capability property key.
func (b *Bundle) Encoder(key string) *Encoder {
	for i := range b.Encoders {
		if b.Encoders[i].Key == key {
			return &b.Encoders[i]
		}
	}
	return nil
}

// Merge concatenates bundles into one. No two bundles may claim the same
// capability name+endpoint. Sub-configurators are composed with sibling
// isolation: one composite member failing does not stop the others, and the
// failures are joined into a single error.
func Merge(bundles ...*Bundle) (*Bundle, error) {
	merged := &Bundle{}
	seen := make(map[string]bool)
	var configurators []Configurator
	var events []EventFunc

	for _, b := range bundles {
		if b == nil {
			continue
		}
		for _, d := range b.Descriptors {
			key := d.Property()
			if seen[key] {
				return nil, Configf("duplicate capability %q in composite", key)
			}
			seen[key] = true
			merged.Descriptors = append(merged.Descriptors, d)
		}
		merged.Decoders = append(merged.Decoders, b.Decoders...)
		merged.Encoders = append(merged.Encoders, b.Encoders...)
		if b.Configure != nil {
			configurators = append(configurators, b.Configure)
		}
		if b.OnEvent != nil {
			events = append(events, b.OnEvent)
		}
		for k, v := range b.Meta {
			if merged.Meta == nil {
				merged.Meta = make(map[string]any)
			}
			merged.Meta[k] = v
		}
	}

	switch len(configurators) {
	case 0:
	case 1:
		merged.Configure = configurators[0]
	default:
		merged.Configure = func(ctx context.Context, rt *Context, coord device.BindTarget) error {
			var errs []error
			for _, cfg := range configurators {
				if err := cfg(ctx, rt, coord); err != nil {
					rt.Logger.Warn("capability configure failed", "device", rt.Device.IEEE, "err", err)
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		}
	}

	if len(events) > 0 {
		evs := events
		merged.OnEvent = func(ctx context.Context, rt *Context, event string) error {
			var errs []error
			for _, ev := range evs {
				if err := ev(ctx, rt, event); err != nil {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		}
	}

	return merged, nil
}
