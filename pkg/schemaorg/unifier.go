// Package schemaorg merges JSON-LD and microdata entities into a page's
// metadata store.
package schemaorg

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dtnitsch/org-remark/pkg/meta"
)

// DefaultRecursionLimit bounds nested entity traversal.
const DefaultRecursionLimit = 32

// Key is a dotted provenance path such as "microdata.Article.author".
type Key []string

// With returns a copy of k extended by parts.
func (k Key) With(parts ...string) Key {
	out := make(Key, 0, len(k)+len(parts))
	out = append(out, k...)
	return append(out, parts...)
}

func (k Key) String() string {
	return strings.Join(k, ".")
}

// Props carries traversal state into handlers.
type Props struct {
	Key            Key
	RecursionLimit int
	// Recursive allows typed values to be expanded by property handlers.
	Recursive bool
	// Handler overrides type based dispatch for typed values.
	Handler PropertyHandler
	// Attrs are copied into every descriptor produced by the call.
	Attrs map[string]any

	graph *Graph
}

// PrimaryHandler merges a top-level entity of a particular type into m.
type PrimaryHandler func(u *Unifier, n Node, m *meta.Meta, p Props) bool

// PropertyHandler converts a typed value (Person, ImageObject, ...) into
// descriptors of property.
type PropertyHandler func(u *Unifier, n Node, m *meta.Meta, property string, p Props) bool

// Unifier holds the type handler tables.
type Unifier struct {
	primary  map[string]PrimaryHandler
	property map[string]PropertyHandler
	prices   *PriceFormatter
	logger   *slog.Logger
}

// NewUnifier creates a Unifier with handlers for the supported types.
// locale selects number and currency formatting for prices.
func NewUnifier(logger *slog.Logger, locale string) *Unifier {
	if logger == nil {
		logger = slog.Default()
	}
	u := &Unifier{
		primary:  make(map[string]PrimaryHandler),
		property: make(map[string]PropertyHandler),
		prices:   NewPriceFormatter(locale),
		logger:   logger,
	}
	u.RegisterPrimary("Thing", handlePrimaryThing)
	for _, typ := range []string{"CreativeWork", "Article", "BlogPosting", "NewsArticle", "WebSite"} {
		u.RegisterPrimary(typ, handlePrimaryCreativeWork)
	}
	u.RegisterPrimary("WebPage", handlePrimaryWebPage)
	u.RegisterPrimary("Product", handlePrimaryProduct)

	u.RegisterProperty("ImageObject", handleImageObjectProperty)
	u.RegisterProperty("Person", handlePersonProperty)
	u.RegisterProperty("AggregateRating", handleAggregateRatingProperty)
	u.RegisterProperty("PropertyValue", handlePropertyValueProperty)
	return u
}

// RegisterPrimary sets the handler for top-level entities of typ.
func (u *Unifier) RegisterPrimary(typ string, h PrimaryHandler) {
	u.primary[typ] = h
}

// RegisterProperty sets the handler for typed property values of typ.
func (u *Unifier) RegisterProperty(typ string, h PropertyHandler) {
	u.property[typ] = h
}

// MergeSchemaOrg merges untyped fragments of every schema_org descriptor
// and then the main entity of the page. A failing step is recorded as an
// "error" descriptor and does not stop the others.
func (u *Unifier) MergeSchemaOrg(m *meta.Meta) {
	for _, d := range m.Get("schema_org") {
		key := "schema_org.no_scope"
		if len(d.Keys) > 0 {
			key = d.Keys[0]
		}
		u.guard(m, "schema_org."+key, func() { u.MergeUntyped(d.Value, m, key) })
	}
	u.guard(m, "schema_org.main", func() { u.MergeMainEntry(m) })
}

func (u *Unifier) guard(m *meta.Meta, key string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			u.logger.Error("schemaorg: merge failed", "key", key, "error", r)
			m.AddDescriptor("error", &meta.Descriptor{
				Value: map[string]any{"name": "Error", "message": fmt.Sprint(r)},
				Key:   key,
			})
		}
	}()
	fn()
}

// MergeMainEntry merges the main entity of the unified graph of all
// schema_org descriptors of m.
func (u *Unifier) MergeMainEntry(m *meta.Meta) bool {
	g := BuildGraph(m, u.logger)
	root, ok := g.FindMainEntity()
	if !ok {
		return false
	}
	key := "schema_org"
	if len(root.Keys) > 0 {
		key = root.Keys[0]
	}
	p := Props{Key: Key{key}, RecursionLimit: DefaultRecursionLimit, graph: g}
	if !u.handlePrimaryTyped(root.Node, m, p) {
		u.logger.Warn("schemaorg: main entity not merged", "type", nodeType(root.Node))
		return false
	}
	return true
}

// MergeUntyped merges an object without @type, e.g. microdata properties
// found outside of any itemscope. A one-element array is unwrapped.
func (u *Unifier) MergeUntyped(value any, m *meta.Meta, key string) bool {
	if list, ok := value.([]any); ok {
		if len(list) != 1 {
			return false
		}
		value = list[0]
	}
	n, ok := value.(Node)
	if !ok || n["@type"] != nil || n["@graph"] != nil {
		return false
	}
	if key == "" {
		key = "schema_org.no_scope"
	}
	return handlePrimaryCreativeWork(u, n, m, Props{Key: Key{key}, RecursionLimit: DefaultRecursionLimit})
}

// jsonLDLevels orders types for MergeJSONLD: lower is preferred.
var jsonLDLevels = map[string]int{
	"Article": 0,
	"WebPage": 1,
	"WebSite": 2,
}

// MergeJSONLD merges a single ld+json document without building the
// cross-source graph. Within an array or @graph the first type level
// holding exactly one node is chosen.
func (u *Unifier) MergeJSONLD(value any, m *meta.Meta, key string) bool {
	if value == nil {
		return false
	}
	if key == "" {
		key = "ld_json"
	}
	p := Props{Key: Key{key}, RecursionLimit: DefaultRecursionLimit}
	if u.mergeJSONLDGraph(value, m, p) {
		return true
	}
	if n, ok := value.(Node); ok && u.handlePrimaryTyped(n, m, p) {
		return true
	}
	u.logger.Warn("schemaorg: ld+json not merged", "key", key)
	return false
}

func (u *Unifier) mergeJSONLDGraph(value any, m *meta.Meta, p Props) bool {
	var nodes []any
	switch v := value.(type) {
	case []any:
		nodes = v
	case Node:
		nodes, _ = v["@graph"].([]any)
	}
	if len(nodes) == 0 {
		return false
	}
	g := NewGraph(u.logger)
	levels := make([][]Node, len(jsonLDLevels))
	for _, item := range nodes {
		n, ok := item.(Node)
		if !ok {
			continue
		}
		typ := nodeType(n)
		if typ == "" {
			continue
		}
		if id := nodeID(n); id != "" {
			g.setEntry(id, &graphEntry{node: n})
		}
		if level, ok := jsonLDLevels[typ]; ok {
			levels[level] = append(levels[level], n)
		}
	}
	p.graph = g
	for _, candidates := range levels {
		if len(candidates) == 1 {
			return u.handlePrimaryTyped(candidates[0], m, p)
		}
	}
	return false
}

func (u *Unifier) handlePrimaryTyped(n Node, m *meta.Meta, p Props) bool {
	typ := nodeType(n)
	if typ == "" {
		return false
	}
	h := u.primary[typ]
	if h == nil {
		u.logger.Warn("schemaorg: unsupported type", "type", typ)
		return false
	}
	p.Key = p.Key.With(typ)
	return h(u, n, m, p)
}

// setProperty copies src[field] into property of m. Strings and numbers
// become descriptors, arrays are walked item by item and typed objects
// are passed to property handlers when allowed.
func (u *Unifier) setProperty(src Node, field string, m *meta.Meta, property string, p Props) bool {
	p.RecursionLimit--
	if p.RecursionLimit < 0 {
		u.logger.Warn("schemaorg: recursion limit exceeded", "key", p.Key.String(), "field", field)
		return false
	}
	value := p.graph.byID(src[field])
	if value == nil {
		return false
	}
	key := p.Key.With(field)
	switch v := value.(type) {
	case string:
		return m.AddNonEmpty(property, &meta.Descriptor{Value: v, Key: key.String(), Attrs: copyAttrs(p.Attrs)})
	case float64, int, int64:
		return m.AddNonEmpty(property, &meta.Descriptor{Value: meta.ValueString(v), Key: key.String(), Attrs: copyAttrs(p.Attrs)})
	case []any:
		result := false
		for _, item := range v {
			wrapper := Node{field: item}
			if u.setProperty(wrapper, field, m, property, p) {
				result = true
			}
		}
		return result
	case Node:
		typ := nodeType(v)
		if typ == "" {
			return false
		}
		itemProps := p
		itemProps.Key = key.With(typ)
		itemProps.Recursive = false
		itemProps.Handler = nil
		if p.Handler != nil {
			return p.Handler(u, v, m, property, itemProps)
		}
		if !p.Recursive {
			u.logger.Warn("schemaorg: typed value ignored", "key", key.String(), "type", typ)
			return false
		}
		if h := u.property[typ]; h != nil && h(u, v, m, property, itemProps) {
			return true
		}
		// A named entity of an unknown type still has a readable name.
		return u.setProperty(v, "name", m, property, itemProps)
	}
	return false
}

func copyAttrs(attrs map[string]any) map[string]any {
	if attrs == nil {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
