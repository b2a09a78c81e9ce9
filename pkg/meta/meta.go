package meta

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dtnitsch/org-remark/models"
)

// Meta aggregates every property observed for one page frame or capture
// target. Raw values always pass through the property's sanitizer.
type Meta struct {
	props      map[string]*Variants
	order      []string
	sanitizers *SanitizerTable
	limits     models.Limits
	logger     *slog.Logger

	entityType string
	entity     *Meta
}

// Option configures a Meta.
type Option func(*Meta)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Meta) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithLimits overrides the default size limits.
func WithLimits(limits models.Limits) Option {
	return func(m *Meta) { m.limits = limits }
}

// WithSanitizers overrides the property to sanitizer table.
func WithSanitizers(t *SanitizerTable) Option {
	return func(m *Meta) {
		if t != nil {
			m.sanitizers = t
		}
	}
}

// New creates an empty Meta.
func New(opts ...Option) *Meta {
	m := &Meta{
		props:  make(map[string]*Variants),
		limits: models.DefaultLimits(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.sanitizers == nil {
		m.sanitizers = DefaultSanitizers()
	}
	return m
}

// Derive returns an empty Meta sharing logger, limits and sanitizers.
func (m *Meta) Derive() *Meta {
	return New(WithLogger(m.logger), WithLimits(m.limits), WithSanitizers(m.sanitizers))
}

// SetEntity attaches the properties of a typed structured-data entity
// (e.g. a Product) that are kept apart from page properties.
func (m *Meta) SetEntity(typ string, e *Meta) {
	m.entityType = typ
	m.entity = e
}

// Entity returns the attached typed entity, if any.
func (m *Meta) Entity() (string, *Meta) {
	return m.entityType, m.entity
}

// Logger returns the diagnostics logger.
func (m *Meta) Logger() *slog.Logger {
	return m.logger
}

// Limits returns the size limits applied by sanitizers.
func (m *Meta) Limits() models.Limits {
	return m.limits
}

// Sanitizer returns the sanitizer registered for property.
func (m *Meta) Sanitizer(property string) Sanitizer {
	return m.sanitizers.For(property)
}

// Properties lists properties in the order they were first stored.
func (m *Meta) Properties() []string {
	return append([]string(nil), m.order...)
}

// Has reports whether property holds at least one descriptor.
func (m *Meta) Has(property string) bool {
	v := m.props[property]
	return v != nil && v.Len() > 0
}

// Empty reports whether nothing has been stored.
func (m *Meta) Empty() bool {
	return len(m.props) == 0
}

// AddDescriptor sanitizes d and merges the results into property.
// It reports whether anything was stored. Failures are logged, never
// returned, so one bad source cannot abort a capture.
func (m *Meta) AddDescriptor(property string, d *Descriptor) bool {
	return m.add(property, d, false)
}

// AddNonEmpty is AddDescriptor that ignores values that are nil or empty
// and carry no error.
func (m *Meta) AddNonEmpty(property string, d *Descriptor) bool {
	return m.add(property, d, true)
}

func (m *Meta) add(property string, d *Descriptor, skipEmpty bool) (stored bool) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("meta: add descriptor failed", "property", property, "panic", r)
			stored = false
		}
	}()
	if d == nil {
		if !skipEmpty {
			m.logger.Error("meta: descriptor is nil", "property", property)
		}
		return false
	}
	if skipEmpty && d.IsEmpty() && d.Error == nil {
		return false
	}
	if property == "" {
		m.logger.Error("meta: bad property name", "value", ValueString(d.Value))
		return false
	}
	d = d.Clone()
	if d.Key == "" && len(d.Keys) == 0 {
		m.logger.Error("meta: missed key", "property", property)
		d.Key = "unspecified." + property
	}
	for _, result := range m.sanitizers.For(property).Sanitize(d, m.limits) {
		if skipEmpty && result.IsEmpty() && result.Error == nil {
			continue
		}
		if m.ensure(property).Add(result) {
			stored = true
		}
	}
	return stored
}

func (m *Meta) ensure(property string) *Variants {
	v := m.props[property]
	if v == nil {
		v = NewVariants(m.logger)
		m.props[property] = v
		m.order = append(m.order, property)
	}
	return v
}

// Get returns every descriptor of property.
func (m *Meta) Get(property string) []*Descriptor {
	return m.Descriptors(property, "")
}

// Descriptors returns descriptors of property, optionally only the ones
// recorded under key.
func (m *Meta) Descriptors(property, key string) []*Descriptor {
	v := m.props[property]
	if v == nil {
		return nil
	}
	return v.Descriptors(key)
}

// Value returns the first value recorded for property under key.
func (m *Meta) Value(property, key string) (any, bool) {
	v := m.props[property]
	if v == nil {
		return nil, false
	}
	return v.ValueByKey(key)
}

// StringValue is Value converted to text.
func (m *Meta) StringValue(property, key string) string {
	value, _ := m.Value(property, key)
	return ValueString(value)
}

// Replace substitutes a stored value of property keeping its keys.
func (m *Meta) Replace(property string, value, replacement any) error {
	v := m.props[property]
	if v == nil {
		return fmt.Errorf("no property %q", property)
	}
	return v.Replace(value, replacement)
}

// DeleteValue removes a value of property. The property itself disappears
// with its last value.
func (m *Meta) DeleteValue(property string, value any) bool {
	v := m.props[property]
	if v == nil {
		return false
	}
	deleted := v.DeleteValue(value)
	if v.Len() == 0 {
		delete(m.props, property)
		for i, p := range m.order {
			if p == property {
				m.order = append(m.order[:i:i], m.order[i+1:]...)
				break
			}
		}
	}
	return deleted
}

// Move relocates a value from one property to another. When the value is
// missing in the source or the two properties use different sanitizers the
// descriptor is added to the target through its sanitizer.
func (m *Meta) Move(d *Descriptor, from, to string) bool {
	if d == nil || from == "" || to == "" {
		m.logger.Error("meta: bad move arguments", "from", from, "to", to, "nil_descriptor", d == nil)
		return false
	}
	d = d.Clone()
	deleted := m.DeleteValue(from, d.Value)
	if !deleted || m.Sanitizer(from).Name != m.Sanitizer(to).Name {
		reason := "source and target sanitizers differ"
		if !deleted {
			reason = "no descriptor in source property"
		}
		m.logger.Warn("meta: move "+reason, "from", from, "to", to)
		return m.AddDescriptor(to, d)
	}
	return m.ensure(to).Add(d)
}

// MarshalJSON writes properties in insertion order.
func (m *Meta) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, property := range m.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(property)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		list, err := json.Marshal(m.props[property].Descriptors(""))
		if err != nil {
			return nil, fmt.Errorf("failed to encode property %s: %w", property, err)
		}
		buf.Write(list)
	}
	if m.entity != nil {
		if len(m.order) > 0 {
			buf.WriteByte(',')
		}
		entity, err := m.entity.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s entity: %w", m.entityType, err)
		}
		typ, _ := json.Marshal(m.entityType)
		buf.WriteString(`"_entity":{"_type":`)
		buf.Write(typ)
		buf.WriteString(`,"properties":`)
		buf.Write(entity)
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ToMap converts the aggregate to plain maps, suitable for YAML output.
func (m *Meta) ToMap() (map[string]any, error) {
	data, err := m.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
