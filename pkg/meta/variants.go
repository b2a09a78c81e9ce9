package meta

import (
	"fmt"
	"log/slog"
)

// Variants holds every descriptor recorded for one property, indexed by
// value and by key. A descriptor is reachable from its value and from each
// of its keys; no stored descriptor has zero keys.
type Variants struct {
	list    []*Descriptor
	byValue map[string]*Descriptor
	byKey   map[string][]*Descriptor
	logger  *slog.Logger
}

// NewVariants creates an empty property bucket.
func NewVariants(logger *slog.Logger) *Variants {
	if logger == nil {
		logger = slog.Default()
	}
	return &Variants{
		byValue: make(map[string]*Descriptor),
		byKey:   make(map[string][]*Descriptor),
		logger:  logger,
	}
}

// Len returns the number of distinct values.
func (v *Variants) Len() int {
	return len(v.list)
}

// Descriptors returns stored descriptors in insertion order, or only the
// ones recorded under key when key is not empty.
func (v *Variants) Descriptors(key string) []*Descriptor {
	if key == "" {
		return append([]*Descriptor(nil), v.list...)
	}
	return append([]*Descriptor(nil), v.byKey[key]...)
}

// ValueByKey returns the value of the first descriptor recorded under key.
func (v *Variants) ValueByKey(key string) (any, bool) {
	entries := v.byKey[key]
	if len(entries) == 0 {
		return nil, false
	}
	return entries[0].Value, true
}

func (v *Variants) hasKeyEntry(key string, entry *Descriptor) bool {
	for _, e := range v.byKey[key] {
		if e == entry {
			return true
		}
	}
	return false
}

func (v *Variants) removeKeyEntry(key string, entry *Descriptor) {
	entries := v.byKey[key]
	for i, e := range entries {
		if e == entry {
			entries = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
	if len(entries) == 0 {
		delete(v.byKey, key)
	} else {
		v.byKey[key] = entries
	}
}

// Add merges a sanitized descriptor by value: a new value creates an entry,
// an existing one gets the union of keys. Attributes and the error tag of
// the newer descriptor win, a conflict is logged.
func (v *Variants) Add(d *Descriptor) bool {
	if d == nil {
		v.logger.Warn("meta variants: empty descriptor")
		return false
	}
	keys := d.allKeys()
	if len(keys) == 0 {
		v.logger.Error("meta variants: descriptor without keys", "value", d.Value)
		return false
	}
	vk := valueKey(d.Value)
	entry := v.byValue[vk]
	if entry == nil {
		entry = &Descriptor{Value: d.Value, urlSanitized: d.urlSanitized}
		v.list = append(v.list, entry)
		v.byValue[vk] = entry
	}
	if d.Error != nil {
		if entry.Error != nil && !equalErrors(entry.Error, d.Error) {
			v.logger.Warn("meta variants: error tag replaced",
				"value", ValueString(d.Value), "old", entry.Error.Name, "new", d.Error.Name)
		}
		entry.Error = d.Error
	}
	for name, attr := range d.Attrs {
		if entry.Attrs == nil {
			entry.Attrs = make(map[string]any)
		}
		if current, ok := entry.Attrs[name]; ok && valueKey(current) != valueKey(attr) {
			v.logger.Warn("meta variants: attribute replaced",
				"value", ValueString(d.Value), "attr", name)
		}
		entry.Attrs[name] = attr
	}
	for _, key := range keys {
		if v.hasKeyEntry(key, entry) {
			continue
		}
		entry.Keys = append(entry.Keys, key)
		v.byKey[key] = append(v.byKey[key], entry)
	}
	return true
}

// Replace substitutes a value keeping its keys. When replacement is
// already present the keys are merged into that entry.
func (v *Variants) Replace(value, replacement any) error {
	oldKey, newKey := valueKey(value), valueKey(replacement)
	if oldKey == newKey {
		return nil
	}
	if value == nil {
		return fmt.Errorf("value is null")
	}
	if replacement == nil {
		return fmt.Errorf("value for replacement is null")
	}
	entry := v.byValue[oldKey]
	if entry == nil {
		return fmt.Errorf("unknown value %q", ValueString(value))
	}
	target := v.byValue[newKey]
	if target == nil {
		target = entry.Clone()
		target.Value = replacement
		target.Keys = nil
		v.byValue[newKey] = target
		for i, e := range v.list {
			if e == entry {
				v.list[i] = target
				break
			}
		}
	} else {
		v.removeListEntry(entry)
	}
	for _, key := range entry.Keys {
		v.removeKeyEntry(key, entry)
		if !v.hasKeyEntry(key, target) {
			v.byKey[key] = append(v.byKey[key], target)
			target.Keys = append(target.Keys, key)
		}
	}
	delete(v.byValue, oldKey)
	return nil
}

func (v *Variants) removeListEntry(entry *Descriptor) {
	for i, e := range v.list {
		if e == entry {
			v.list = append(v.list[:i:i], v.list[i+1:]...)
			return
		}
	}
}

// DeleteValue removes the entry with the given value from every index.
func (v *Variants) DeleteValue(value any) bool {
	vk := valueKey(value)
	entry := v.byValue[vk]
	if entry == nil {
		return false
	}
	delete(v.byValue, vk)
	for _, key := range entry.Keys {
		v.removeKeyEntry(key, entry)
	}
	v.removeListEntry(entry)
	return true
}
