package schemaorg

import (
	"net/url"
	"strings"

	"github.com/dtnitsch/org-remark/pkg/meta"
)

type fieldMapping struct {
	field    string
	property string
}

var thingTextFields = []fieldMapping{
	{"name", "title"},
	{"alternativeName", "title"},
	{"description", "description"},
	{"disambiguatingDescription", "description"},
}

var creativeWorkTextFields = []fieldMapping{
	{"headline", "title"},
	{"alternativeHeadline", "title"},
	{"text", "description"},
	{"datePublished", "published_time"},
	{"dateCreated", "published_time"},
	{"dateModified", "modified_time"},
}

func nonRecursive(p Props) Props {
	p.Recursive = false
	p.Handler = nil
	return p
}

func recursive(p Props) Props {
	p.Recursive = true
	p.Handler = nil
	return p
}

func handlePrimaryThing(u *Unifier, n Node, m *meta.Meta, p Props) bool {
	plain := nonRecursive(p)
	for _, f := range thingTextFields {
		u.setProperty(n, f.field, m, f.property, plain)
	}
	u.setProperty(n, "image", m, "image", recursive(p))
	u.setProperty(n, "url", m, "url", plain)

	if id := nodeID(n); id != "" {
		if parsed, err := url.Parse(id); err == nil && parsed.Hostname() != "" {
			m.AddDescriptor("url", &meta.Descriptor{Value: id, Key: p.Key.With("id").String()})
		}
	}

	main := n["mainEntityOfPage"]
	if main == nil {
		main = n["mainEntity"]
	}
	if main != nil {
		mp := p
		mp.RecursionLimit--
		if mp.RecursionLimit < 0 {
			u.logger.Warn("schemaorg: recursion limit exceeded, main entity skipped", "key", p.Key.String())
		} else if mainNode, ok := p.graph.byID(main).(Node); ok {
			mp.Key = p.Key.With("mainEntityOfPage")
			u.handlePrimaryTyped(mainNode, m, mp)
		}
	}
	return true
}

func handlePrimaryCreativeWork(u *Unifier, n Node, m *meta.Meta, p Props) bool {
	handlePrimaryThing(u, n, m, p)
	plain := nonRecursive(p)
	for _, f := range creativeWorkTextFields {
		u.setProperty(n, f.field, m, f.property, plain)
	}
	u.setProperty(n, "author", m, "author", recursive(p))
	u.setProperty(n, "creator", m, "author", recursive(p))

	if top, key := u.findTopPartOf(n, p); top != nil {
		tp := plain
		tp.Key = key
		u.setProperty(top, "name", m, "site_name", tp)
	}
	u.setProperty(n, "publisher", m, "site_name", recursive(p))
	return true
}

func handlePrimaryWebPage(u *Unifier, n Node, m *meta.Meta, p Props) bool {
	handlePrimaryCreativeWork(u, n, m, p)
	u.setProperty(n, "primaryImageOfPage", m, "image", recursive(p))
	return true
}

// findTopPartOf follows the isPartOf chain to the outermost container,
// usually the WebSite. A chain longer than the recursion limit is
// treated as a cycle and yields nothing.
func (u *Unifier) findTopPartOf(n Node, p Props) (Node, Key) {
	var result Node
	key := p.Key
	candidate := n
	limit := p.RecursionLimit
	for {
		if limit <= 0 {
			u.logger.Warn("schemaorg: recursion limit exceeded looking for top parent", "key", p.Key.String())
			return nil, p.Key
		}
		limit--
		next, ok := p.graph.byID(candidate["isPartOf"]).(Node)
		if !ok {
			break
		}
		result, candidate = next, next
		key = key.With("isPartOf", nodeType(next))
	}
	return result, key
}

func handleImageObjectProperty(u *Unifier, n Node, m *meta.Meta, property string, p Props) bool {
	// @id of an image usually points to an anchor on the page.
	return m.AddNonEmpty(property, &meta.Descriptor{Value: stringField(n, "url"), Key: p.Key.With("url").String()})
}

func fillNameComponents(obj Node, out []string) []string {
	for _, field := range []string{"givenName", "additionalName", "familyName"} {
		if s, ok := obj[field].(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func handlePersonProperty(u *Unifier, n Node, m *meta.Meta, property string, p Props) bool {
	components := fillNameComponents(n, nil)
	var alternatives []string

	name, nameIsString := n["name"].(string)
	nameIsString = nameIsString && name != ""
	nameObj, _ := n["name"].(Node)
	switch {
	case len(components) > 0 && nameIsString:
		alternatives = append(alternatives, name)
	case len(components) > 0 && nameObj != nil:
		if add := fillNameComponents(nameObj, nil); len(add) > 0 {
			alternatives = append(alternatives, strings.Join(add, " "))
		}
	case nameIsString:
		components = append(components, name)
	case nameObj != nil:
		// Some sites put a structured name where text is expected.
		components = fillNameComponents(nameObj, components)
	}

	if alt := stringField(n, "alternativeName"); alt != "" {
		if len(components) > 0 {
			alternatives = append(alternatives, alt)
		} else {
			components = append(components, alt)
		}
	}
	if len(alternatives) > 0 {
		components = append(components, "("+strings.Join(alternatives, ", ")+")")
	}
	if len(components) == 0 {
		u.logger.Warn("schemaorg: person without a name", "key", p.Key.String())
	}
	return m.AddNonEmpty(property, &meta.Descriptor{Value: strings.Join(components, " "), Key: p.Key.String()})
}

func handleAggregateRatingProperty(u *Unifier, n Node, m *meta.Meta, property string, p Props) bool {
	value := scalarString(n["ratingValue"])
	if best := scalarString(n["bestRating"]); best != "" {
		rating := best
		if worst := scalarString(n["worstRating"]); worst != "" {
			rating = worst + "-" + rating
		}
		value = orDash(value) + "/" + rating
	}
	var counts []string
	if rc := scalarString(n["ratingCount"]); rc != "" && rc != "0" {
		counts = append(counts, rc)
	}
	review := scalarString(n["reviewCount"])
	if review == "" && len(counts) > 0 {
		review = "0"
	}
	if review != "" {
		counts = append([]string{review}, counts...)
	}
	if len(counts) > 0 {
		value = orDash(value) + "(" + strings.Join(counts, "; ") + ")"
	}
	return m.AddNonEmpty(property, &meta.Descriptor{Value: value, Key: p.Key.String()})
}

// handlePropertyValueProperty stores additionalProperty entries with
// their own name so they are listed next to sku, color, etc.
func handlePropertyValueProperty(u *Unifier, n Node, m *meta.Meta, property string, p Props) bool {
	name := stringField(n, "name")
	if name == "" {
		name = stringField(n, "propertyID")
	}
	value := scalarString(n["value"])
	if name == "" || value == "" {
		return false
	}
	if unit := stringField(n, "unitText"); unit != "" {
		value += " " + unit
	}
	return m.AddNonEmpty(property, &meta.Descriptor{
		Value: value,
		Key:   p.Key.With("value").String(),
		Attrs: map[string]any{"name": name},
	})
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func stringField(n Node, field string) string {
	s, _ := n[field].(string)
	return s
}

// scalarString returns strings and numbers as text. Zero numbers and
// other values are treated as absent.
func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == 0 {
			return ""
		}
		return meta.ValueString(t)
	case int:
		if t == 0 {
			return ""
		}
		return meta.ValueString(t)
	}
	return ""
}
