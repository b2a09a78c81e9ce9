// Package meta implements the multi-source descriptor store used to collect
// page metadata from competing sources before formatting.
package meta

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Error names attached to descriptors by sanitizers.
const (
	ErrOverflow        = "LrOverflowError"
	ErrForbiddenScheme = "LrForbiddenUrlSchema"
	ErrNotURL          = "LrNotURL"
	ErrType            = "TypeError"
	ErrSyntax          = "SyntaxError"
	ErrValue           = "LrValueError"
)

// Error is a diagnostic tag carried by a descriptor instead of failing.
type Error struct {
	Name    string `json:"name"`
	Message string `json:"message,omitempty"`
	Size    int    `json:"size,omitempty"`
}

// NewError returns an Error with only a name.
func NewError(name string) *Error {
	return &Error{Name: name}
}

// Overflow returns an overflow error for a value of the given original size.
func Overflow(size int) *Error {
	return &Error{Name: ErrOverflow, Size: size}
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Name + ": " + e.Message
	}
	return e.Name
}

// UnmarshalJSON accepts both a bare error name and an object.
func (e *Error) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*e = Error{Name: name}
		return nil
	}
	type plain Error
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = Error(p)
	return nil
}

func equalErrors(a, b *Error) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Fragment is one range of a multi-range text selection.
type Fragment struct {
	Value string `json:"value"`
	Error *Error `json:"error,omitempty"`
}

// Descriptor is one observed value of a property together with every
// source key that produced it.
//
// Key is an input convenience: descriptors stored in Variants keep all
// keys in Keys and leave Key empty.
type Descriptor struct {
	Value any
	Key   string
	Keys  []string
	Error *Error
	Attrs map[string]any

	urlSanitized bool
}

// Clone returns a shallow copy with its own key slice and attribute map.
func (d *Descriptor) Clone() *Descriptor {
	c := *d
	c.Keys = append([]string(nil), d.Keys...)
	if d.Attrs != nil {
		c.Attrs = make(map[string]any, len(d.Attrs))
		for k, v := range d.Attrs {
			c.Attrs[k] = v
		}
	}
	return &c
}

// allKeys returns Keys followed by Key when set.
func (d *Descriptor) allKeys() []string {
	keys := append([]string(nil), d.Keys...)
	if d.Key != "" {
		keys = append(keys, d.Key)
	}
	return keys
}

// HasKey reports whether any key of the descriptor equals key.
func (d *Descriptor) HasKey(key string) bool {
	if d.Key == key {
		return true
	}
	for _, k := range d.Keys {
		if k == key {
			return true
		}
	}
	return false
}

// FirstKey returns the earliest recorded key.
func (d *Descriptor) FirstKey() string {
	if len(d.Keys) > 0 {
		return d.Keys[0]
	}
	return d.Key
}

// Attr returns a string attribute or "".
func (d *Descriptor) Attr(name string) string {
	if d.Attrs == nil {
		return ""
	}
	if s, ok := d.Attrs[name].(string); ok {
		return s
	}
	return ""
}

// String returns the value as text, "" for nil.
func (d *Descriptor) String() string {
	return ValueString(d.Value)
}

// IsEmpty reports whether the value is nil or an empty string.
func (d *Descriptor) IsEmpty() bool {
	if d.Value == nil {
		return true
	}
	s, ok := d.Value.(string)
	return ok && s == ""
}

// MarshalJSON writes value, keys, error and attributes as one flat object.
func (d *Descriptor) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(d.Attrs)+4)
	for k, v := range d.Attrs {
		obj[k] = v
	}
	obj["value"] = d.Value
	keys := d.allKeys()
	if len(keys) > 0 {
		obj["keys"] = keys
	}
	if d.Error != nil {
		obj["error"] = d.Error
	}
	return json.Marshal(obj)
}

// UnmarshalJSON reads the flat form produced by content extractors:
// known fields go to the struct, anything else to Attrs.
func (d *Descriptor) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = Descriptor{}
	for name, msg := range raw {
		var err error
		switch name {
		case "value":
			err = json.Unmarshal(msg, &d.Value)
		case "key":
			err = json.Unmarshal(msg, &d.Key)
		case "keys":
			err = json.Unmarshal(msg, &d.Keys)
		case "error":
			if string(msg) == "null" {
				continue
			}
			d.Error = &Error{}
			err = json.Unmarshal(msg, d.Error)
		default:
			var v any
			err = json.Unmarshal(msg, &v)
			if d.Attrs == nil {
				d.Attrs = make(map[string]any)
			}
			d.Attrs[name] = v
		}
		if err != nil {
			return fmt.Errorf("failed to decode descriptor field %q: %w", name, err)
		}
	}
	return nil
}

// ValueString converts a scalar the way string concatenation would.
func ValueString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return formatNumber(t)
	case float32:
		return formatNumber(float64(t))
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func formatNumber(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// valueKey maps a value to the identity used for merge-by-value.
// Structured values compare by their canonical JSON form.
func valueKey(v any) string {
	switch t := v.(type) {
	case nil:
		return "n:"
	case string:
		return "s:" + t
	case bool:
		return "b:" + strconv.FormatBool(t)
	case float64, float32, int, int64, json.Number:
		return "f:" + ValueString(t)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("p:%p", v)
	}
	return "j:" + string(data)
}

// ErrorsLast returns descriptors with the error-free ones first, keeping
// the original relative order otherwise.
func ErrorsLast(descriptors ...[]*Descriptor) []*Descriptor {
	var all []*Descriptor
	for _, group := range descriptors {
		all = append(all, group...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Error == nil && all[j].Error != nil
	})
	return all
}

// FirstValue returns the first non-nil value preferring error-free entries.
func FirstValue(descriptors ...[]*Descriptor) any {
	for _, d := range ErrorsLast(descriptors...) {
		if d.Value != nil {
			return d.Value
		}
	}
	return nil
}

// FirstText returns the first non-empty value as text with an error note
// appended, e.g. "value (!) truncated".
func FirstText(descriptors ...[]*Descriptor) string {
	var chosen *Descriptor
	for _, d := range ErrorsLast(descriptors...) {
		if !d.IsEmpty() {
			chosen = d
			break
		}
		if chosen == nil {
			chosen = d
		}
	}
	if chosen == nil {
		return ""
	}
	var text string
	if chosen.Value != nil {
		text = ValueString(chosen.Value)
	}
	if chosen.Error != nil {
		if text != "" {
			text += " "
		}
		text += "(!) " + ErrorText(chosen.Error)
	}
	return text
}

// ErrorText is the short human readable form of a descriptor error.
func ErrorText(err *Error) string {
	if err == nil {
		return ""
	}
	switch err.Name {
	case ErrOverflow:
		return "truncated"
	case ErrForbiddenScheme:
		return "URL schema not allowed"
	}
	return "error"
}

// ValidURLs returns string values of the descriptors that carry no error.
func ValidURLs(descriptors ...[]*Descriptor) []string {
	var urls []string
	for _, group := range descriptors {
		for _, d := range group {
			if d.Error != nil {
				continue
			}
			if s, ok := d.Value.(string); ok && s != "" {
				urls = append(urls, s)
			}
		}
	}
	return urls
}
