package meta

import (
	"encoding/json"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dtnitsch/org-remark/models"
)

// SanitizeFunc turns one raw descriptor into zero or more sanitized ones.
type SanitizeFunc func(d *Descriptor, limits models.Limits) []*Descriptor

// Sanitizer is a named SanitizeFunc. Names are compared to decide whether
// moving a value between two properties is lossless.
type Sanitizer struct {
	Name     string
	Sanitize SanitizeFunc
}

// Built-in sanitizers.
var (
	SanitizeLength      = Sanitizer{Name: "length", Sanitize: sanitizeLength}
	SanitizeText        = Sanitizer{Name: "text", Sanitize: sanitizeText}
	SanitizeURL         = Sanitizer{Name: "url", Sanitize: sanitizeURL}
	SanitizeTextOrArray = Sanitizer{Name: "textOrArray", Sanitize: sanitizeTextOrArray}
	SanitizeObject      = Sanitizer{Name: "object", Sanitize: sanitizeObject}
	SanitizeSchemaOrg   = Sanitizer{Name: "schemaOrg", Sanitize: sanitizeSchemaOrg}
)

// SanitizerTable maps property names to sanitizers. Properties without an
// entry use the fallback.
type SanitizerTable struct {
	byProperty map[string]Sanitizer
	fallback   Sanitizer
}

// DefaultSanitizers returns the table for the properties known to the
// merge pipeline.
func DefaultSanitizers() *SanitizerTable {
	t := &SanitizerTable{
		byProperty: make(map[string]Sanitizer),
		fallback:   SanitizeLength,
	}
	for _, p := range []string{"url", "image", "linkUrl", "srcUrl", "referrer", "favicon"} {
		t.Register(p, SanitizeURL)
	}
	t.Register("tabGroupTitle", SanitizeLength)
	t.Register("title", SanitizeLength)
	t.Register("linkText", SanitizeText)
	t.Register("selection", SanitizeTextOrArray)
	t.Register("schema_org", SanitizeSchemaOrg)
	t.Register("error", SanitizeObject)
	t.Register("offer", SanitizeObject)
	return t
}

// Register sets the sanitizer of a property.
func (t *SanitizerTable) Register(property string, s Sanitizer) {
	t.byProperty[property] = s
}

// For returns the sanitizer of a property.
func (t *SanitizerTable) For(property string) Sanitizer {
	if s, ok := t.byProperty[property]; ok {
		return s
	}
	return t.fallback
}

// ReplaceSpecial expands tabs, normalizes line breaks and replaces other
// control characters with U+FFFD so text is safe to paste into a terminal.
func ReplaceSpecial(text string) string {
	if text == "" {
		return text
	}
	text = strings.ReplaceAll(text, "\t", "        ")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Map(func(r rune) rune {
		switch {
		case r <= 0x08, r == 0x0B, r == 0x0C, r >= 0x0E && r <= 0x1F, r >= 0x7F && r <= 0x9F:
			return '\uFFFD'
		}
		return r
	}, text)
}

func isTrimmable(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}

// TruncateRunes cuts s to at most n characters.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// DoSanitizeLength trims, replaces special characters and truncates text
// values to limit characters. Numbers, booleans and nil pass unchanged.
func DoSanitizeLength(d *Descriptor, limit int) *Descriptor {
	out := d.Clone()
	switch d.Value.(type) {
	case nil, bool, float64, float32, int, int64, json.Number:
		return out
	}
	value, ok := d.Value.(string)
	if !ok {
		value = ValueString(d.Value)
	}
	value = strings.TrimFunc(value, isTrimmable)
	value = ReplaceSpecial(value)
	if size := utf8.RuneCountInString(value); size > limit {
		value = strings.TrimRightFunc(TruncateRunes(value, limit), isTrimmable)
		out.Error = Overflow(size)
	}
	out.Value = value
	return out
}

func sanitizeLength(d *Descriptor, limits models.Limits) []*Descriptor {
	return []*Descriptor{DoSanitizeLength(d, limits.String)}
}

func sanitizeText(d *Descriptor, limits models.Limits) []*Descriptor {
	return []*Descriptor{DoSanitizeLength(d, limits.Text)}
}

// forbiddenScheme returns the scheme prefix of javascript: and data: URLs.
func forbiddenScheme(value string) string {
	lower := strings.ToLower(strings.TrimLeftFunc(value, isTrimmable))
	for _, scheme := range []string{"javascript:", "data:"} {
		if strings.HasPrefix(lower, scheme) {
			return scheme
		}
	}
	return ""
}

var specialSchemes = map[string]bool{
	"http": true, "https": true, "ftp": true, "ws": true, "wss": true, "file": true,
}

// ParseURL parses an absolute URL and normalizes it the way browsers do:
// special schemes need a host and get "/" as the empty path.
func ParseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" {
		return nil, &url.Error{Op: "parse", URL: raw, Err: errNotAbsolute}
	}
	if specialSchemes[u.Scheme] {
		if u.Host == "" && u.Scheme != "file" {
			return nil, &url.Error{Op: "parse", URL: raw, Err: errNoHost}
		}
		u.Host = strings.ToLower(u.Host)
		if u.Path == "" && u.Opaque == "" {
			u.Path = "/"
		}
	}
	return u, nil
}

type urlError string

func (e urlError) Error() string { return string(e) }

const (
	errNotAbsolute = urlError("not an absolute URL")
	errNoHost      = urlError("missing host")
)

// NormalizeURL returns the normalized href of raw.
func NormalizeURL(raw string) (string, error) {
	u, err := ParseURL(raw)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// DoSanitizeURL replaces javascript: and data: URLs by the bare scheme,
// bounds the length and normalizes parseable URLs. Values that are not
// URLs are kept and tagged.
func DoSanitizeURL(d *Descriptor, limits models.Limits) *Descriptor {
	value, ok := d.Value.(string)
	if !ok {
		out := d.Clone()
		out.Value = nil
		if out.Error == nil {
			out.Error = NewError(ErrType)
		}
		return out
	}
	if scheme := forbiddenScheme(value); scheme != "" {
		out := d.Clone()
		out.Value = scheme
		out.Error = NewError(ErrForbiddenScheme)
		return out
	}
	out := DoSanitizeLength(d, limits.String)
	if out.Error != nil {
		return out
	}
	value = out.Value.(string)
	href, err := NormalizeURL(value)
	if err != nil {
		out.Error = NewError(ErrNotURL)
		return out
	}
	out.Value = strings.TrimSuffix(href, "#")
	return out
}

func sanitizeURL(d *Descriptor, limits models.Limits) []*Descriptor {
	lengthChecked := DoSanitizeLength(d, limits.String)
	lengthChecked.urlSanitized = false
	variants := MatchDOI(lengthChecked)
	if variants == nil {
		variants = []*Descriptor{lengthChecked}
	}
	out := make([]*Descriptor, 0, len(variants))
	for _, v := range variants {
		if !v.urlSanitized {
			v = DoSanitizeURL(v, limits)
			v.urlSanitized = true
		}
		out = append(out, v)
	}
	return out
}

// fragmentsOf converts the supported selection shapes to fragments.
// ok is false when value is not an array at all.
func fragmentsOf(value any) (fragments []*Fragment, ok bool) {
	switch t := value.(type) {
	case []Fragment:
		for i := range t {
			f := t[i]
			fragments = append(fragments, &f)
		}
		return fragments, true
	case []*Fragment:
		for _, f := range t {
			if f == nil {
				fragments = append(fragments, nil)
				continue
			}
			c := *f
			fragments = append(fragments, &c)
		}
		return fragments, true
	case []string:
		for _, s := range t {
			fragments = append(fragments, &Fragment{Value: s})
		}
		return fragments, true
	case []any:
		for _, item := range t {
			switch f := item.(type) {
			case nil:
				fragments = append(fragments, nil)
			case string:
				fragments = append(fragments, &Fragment{Value: f})
			case map[string]any:
				frag := &Fragment{}
				switch v := f["value"].(type) {
				case string:
					frag.Value = v
				case nil:
				default:
					frag.Error = NewError(ErrType)
				}
				if e, ok := f["error"]; ok && e != nil && frag.Error == nil {
					frag.Error = errorFromAny(e)
				}
				fragments = append(fragments, frag)
			default:
				fragments = append(fragments, &Fragment{Error: NewError(ErrType)})
			}
		}
		return fragments, true
	}
	return nil, false
}

func errorFromAny(v any) *Error {
	switch t := v.(type) {
	case string:
		return NewError(t)
	case *Error:
		return t
	case map[string]any:
		e := &Error{}
		e.Name, _ = t["name"].(string)
		e.Message, _ = t["message"].(string)
		if size, ok := t["size"].(float64); ok {
			e.Size = int(size)
		}
		if e.Name == "" {
			e.Name = "Error"
		}
		return e
	}
	return NewError("Error")
}

// sanitizeTextOrArray bounds a multi-range selection: at most
// SelectionFragmentCount fragments and Text characters in total. Once the
// budget runs out an overflow-tagged empty fragment ends the list. The
// descriptor error is the first fragment error.
func sanitizeTextOrArray(d *Descriptor, limits models.Limits) []*Descriptor {
	fragments, ok := fragmentsOf(d.Value)
	if !ok {
		if _, isString := d.Value.(string); isString {
			return sanitizeText(d, limits)
		}
		out := d.Clone()
		out.Value = []Fragment{}
		if out.Error == nil {
			out.Error = NewError(ErrType)
		}
		return []*Descriptor{out}
	}
	out := d.Clone()
	firstError := d.Error
	reduce := func(e *Error) {
		if firstError == nil && e != nil {
			firstError = e
		}
	}
	result := []Fragment{}
	available := limits.Text
	for _, f := range fragments {
		if len(result) >= limits.SelectionFragmentCount {
			reduce(Overflow(len(fragments)))
			break
		}
		if f == nil {
			result = append(result, Fragment{Error: NewError(ErrType)})
			reduce(NewError(ErrType))
			continue
		}
		reduce(f.Error)
		size := utf8.RuneCountInString(f.Value)
		if size == 0 {
			result = append(result, *f)
			continue
		}
		if size <= available {
			result = append(result, *f)
			available -= size
			continue
		}
		if available < limits.String {
			overflow := Overflow(size)
			result = append(result, Fragment{Error: overflow})
			reduce(overflow)
			break
		}
		cut := DoSanitizeLength(&Descriptor{Value: f.Value, Error: f.Error}, available)
		result = append(result, Fragment{Value: cut.String(), Error: cut.Error})
		reduce(cut.Error)
		available = 0
	}
	out.Value = result
	out.Error = firstError
	return []*Descriptor{out}
}

func sanitizeObject(d *Descriptor, limits models.Limits) []*Descriptor {
	out := d.Clone()
	data, err := json.Marshal(d.Value)
	if err != nil {
		out.Value = nil
		out.Error = &Error{Name: ErrType, Message: err.Error()}
		return []*Descriptor{out}
	}
	if len(data) >= 2*limits.Text {
		out.Value = nil
		out.Error = Overflow(len(data))
	}
	return []*Descriptor{out}
}

// sanitizeSchemaOrg parses JSON-LD text after decoding HTML entities.
// Objects that are already parsed are only size checked.
func sanitizeSchemaOrg(d *Descriptor, limits models.Limits) []*Descriptor {
	switch d.Value.(type) {
	case string:
		checked := DoSanitizeLength(d, limits.JSON)
		if checked.Error != nil {
			checked.Value = nil
			return []*Descriptor{checked}
		}
		var parsed any
		if err := json.Unmarshal([]byte(UnescapeEntities(checked.String(), true)), &parsed); err != nil {
			checked.Value = nil
			checked.Error = &Error{Name: ErrSyntax, Message: err.Error()}
			return []*Descriptor{checked}
		}
		checked.Value = parsed
		return []*Descriptor{checked}
	case map[string]any, []any:
		return sanitizeObject(d, limits)
	default:
		out := d.Clone()
		out.Value = nil
		if out.Error == nil {
			out.Error = NewError(ErrType)
		}
		return []*Descriptor{out}
	}
}
