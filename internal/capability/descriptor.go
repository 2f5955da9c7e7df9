package capability

// Kind classifies a capability's data shape.
type Kind string

const (
	Numeric   Kind = "numeric"
	Binary    Kind = "binary"
	Enum      Kind = "enum"
	Composite Kind = "composite"
)

// Access flags govern which of decoder/encoder/configurator are
// materialized for a capability.
type Access uint8

const (
	AccessRead   Access = 0x01 // get-path: value can be read on demand
	AccessWrite  Access = 0x02 // set-path: value can be written
	AccessReport Access = 0x04 // device pushes changes via reporting
)

// Descriptor describes one capability to downstream consumers. Built
// through the fluent With* chain and never mutated after handoff.
type Descriptor struct {
	Name        string   `json:"name"`
	Kind        Kind     `json:"kind"`
	Access      Access   `json:"access"`
	Endpoint    string   `json:"endpoint,omitempty"` // qualifier for multi-endpoint devices
	Unit        string   `json:"unit,omitempty"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	Step        *float64 `json:"step,omitempty"`
	Values      []string `json:"values,omitempty"` // allowed enum values
	ValueOn     any      `json:"value_on,omitempty"`
	ValueOff    any      `json:"value_off,omitempty"`
	Description string   `json:"description,omitempty"`
}

// NewNumeric starts a numeric capability descriptor.
func NewNumeric(name string) *Descriptor {
	return &Descriptor{Name: name, Kind: Numeric, Access: AccessRead | AccessReport}
}

// NewBinary starts a binary capability descriptor.
func NewBinary(name string, on, off any) *Descriptor {
	return &Descriptor{Name: name, Kind: Binary, Access: AccessRead | AccessReport, ValueOn: on, ValueOff: off}
}

// NewEnum starts an enum capability descriptor.
func NewEnum(name string, values ...string) *Descriptor {
	return &Descriptor{Name: name, Kind: Enum, Access: AccessRead | AccessReport, Values: values}
}

// NewComposite starts a composite capability descriptor.
func NewComposite(name string) *Descriptor {
	return &Descriptor{Name: name, Kind: Composite, Access: AccessWrite}
}

// WithAccess overrides the access bitmask.
func (d *Descriptor) WithAccess(a Access) *Descriptor {
	d.Access = a
	return d
}

// WithEndpoint scopes the descriptor to an endpoint qualifier.
func (d *Descriptor) WithEndpoint(name string) *Descriptor {
	d.Endpoint = name
	return d
}

// WithUnit sets the unit.
func (d *Descriptor) WithUnit(unit string) *Descriptor {
	d.Unit = unit
	return d
}

// WithRange sets inclusive numeric bounds.
func (d *Descriptor) WithRange(min, max float64) *Descriptor {
	d.Min = &min
	d.Max = &max
	return d
}

// WithStep sets the numeric step.
func (d *Descriptor) WithStep(step float64) *Descriptor {
	d.Step = &step
	return d
}

// WithDescription sets the human-readable description.
func (d *Descriptor) WithDescription(text string) *Descriptor {
	d.Description = text
	return d
}

// Clone returns a copy, used to stamp out per-endpoint variants.
func (d *Descriptor) Clone() *Descriptor {
	cp := *d
	if d.Values != nil {
		cp.Values = append([]string(nil), d.Values...)
	}
	return &cp
}

// Property returns the state key for this descriptor: the capability name,
// suffixed with the endpoint qualifier when scoped.
func (d *Descriptor) Property() string {
	return PropertyKey(d.Name, d.Endpoint)
}

// PropertyKey builds a state key from a capability name and an optional
// endpoint qualifier.
func PropertyKey(name, endpoint string) string {
	if endpoint == "" {
		return name
	}
	return name + "_" + endpoint
}

// Readable reports whether the access mode includes the get-path.
func (d *Descriptor) Readable() bool {
	return d.Access&AccessRead != 0
}

// Writable reports whether the access mode includes the set-path.
func (d *Descriptor) Writable() bool {
	return d.Access&AccessWrite != 0
}
