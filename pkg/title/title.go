package title

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dtnitsch/org-remark/pkg/meta"
)

// Separator joins title components. The first space is unbreakable so
// the dash never starts a wrapped line.
const Separator = "\u00a0\u2014 "

// Ellipsis marks a truncated component.
const Ellipsis = "\u2026"

// Fallback headings used when no component has a value.
const (
	FallbackPage    = "Web Page"
	FallbackProduct = "Product"
)

var (
	reCleanHead = regexp.MustCompile("^(?:[.,;:'\u00b4\"\u00bb][\\s\\p{Z}]*|[\\s\\p{Z}]*(?:[-|\u2014/]|::)[\\s\\p{Z}]*)")
	reCleanTail = regexp.MustCompile("(?:[.,;:'`\"\u00ab][\\s\\p{Z}]*|[\\s\\p{Z}]*(?:[-|\u2014/]|::)[\\s\\p{Z}]*)$")
	reSpaceRun  = regexp.MustCompile(`[\s\p{Z}\x{feff}]+`)
)

// CleanupVariant strips site or author names glued to the beginning or
// the end of a title together with the separator between them, e.g.
// "Page | Site" becomes "Page".
func CleanupVariant(text string, toRemove []string) string {
	for removed := true; removed; {
		removed = false
		for _, r := range toRemove {
			if r == "" {
				continue
			}
			byteIndex := strings.Index(text, r)
			if byteIndex < 0 {
				continue
			}
			index := utf8.RuneCountInString(text[:byteIndex])
			length := utf8.RuneCountInString(text)
			removeLength := utf8.RuneCountInString(r)
			if index < 5 {
				text = reCleanHead.ReplaceAllString(text[byteIndex+len(r):], "")
				removed = true
				break
			}
			if index >= length-removeLength-5 || index > 64 {
				text = reCleanTail.ReplaceAllString(text[:byteIndex], "")
				removed = true
				break
			}
		}
	}
	return text
}

// EnsureSingleLine collapses every white space run to one space. A run
// starting with a no-break space collapses to that character instead.
func EnsureSingleLine(text string) string {
	return reSpaceRun.ReplaceAllStringFunc(text, func(run string) string {
		if strings.HasPrefix(run, "\u00a0") {
			return "\u00a0"
		}
		return " "
	})
}

// PreferShort returns descriptors with non-empty string values, error free
// ones first and shorter ones earlier.
func PreferShort(descriptors []*meta.Descriptor) []*meta.Descriptor {
	var out []*meta.Descriptor
	for _, d := range descriptors {
		if s, ok := d.Value.(string); ok && s != "" {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ei, ej := out[i].Error != nil, out[j].Error != nil
		if ei != ej {
			return ej
		}
		return utf8.RuneCountInString(out[i].String()) < utf8.RuneCountInString(out[j].String())
	})
	return out
}

// Values returns non-empty string values in order.
func Values(descriptors []*meta.Descriptor) []string {
	var out []string
	for _, d := range descriptors {
		if s, ok := d.Value.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func first(values []string) string {
	if len(values) > 0 {
		return values[0]
	}
	return ""
}

// urlWeights rank URL sources. Unknown keys weigh 1.
var urlWeights = map[string]int{
	"link.canonical":       1000,
	"meta.property.og:url": 100,
	"clickData.srcUrl":     10,
}

// URLVariants returns url values ordered by the summed weight of the
// sources that reported them.
func URLVariants(m *meta.Meta) []string {
	if m == nil {
		return nil
	}
	type weighted struct {
		value  string
		weight int
	}
	var variants []weighted
	for _, d := range m.Get("url") {
		s, ok := d.Value.(string)
		if !ok || s == "" {
			continue
		}
		w := 0
		for _, key := range d.Keys {
			if kw, ok := urlWeights[key]; ok {
				w += kw
			} else {
				w++
			}
		}
		variants = append(variants, weighted{value: s, weight: w})
	}
	sort.SliceStable(variants, func(i, j int) bool {
		return variants[i].weight > variants[j].weight
	})
	out := make([]string, 0, len(variants))
	for _, v := range variants {
		out = append(out, v.value)
	}
	return out
}

// SiteNameVariants returns site names, shortest first.
func SiteNameVariants(m *meta.Meta) []*meta.Descriptor {
	if m == nil {
		return nil
	}
	return PreferShort(m.Get("site_name"))
}

// Sorted returns every title value, shortest first.
func Sorted(m *meta.Meta) []string {
	if m == nil {
		return nil
	}
	var out []string
	for _, d := range m.Get("title") {
		out = append(out, d.String())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return utf8.RuneCountInString(out[i]) < utf8.RuneCountInString(out[j])
	})
	return out
}

func pageCandidates(m *meta.Meta) []string {
	candidates := Values(PreferShort(m.Get("title")))
	candidates = append(candidates, Values(PreferShort(m.Get("description")))...)
	for _, d := range m.Get("selection") {
		switch v := d.Value.(type) {
		case []meta.Fragment:
			var parts []string
			for _, f := range v {
				if f.Value != "" {
					parts = append(parts, f.Value)
				}
			}
			if len(parts) > 0 {
				joined := strings.Join(parts, " "+Ellipsis+" ")
				return append(candidates, reSpaceRun.ReplaceAllString(joined, " "))
			}
		case string:
			if v != "" {
				return append(candidates, v)
			}
		}
	}
	return candidates
}

// Join renders parts with an ellipsis after truncated ones.
func Join(parts []Part) string {
	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		if p.Truncated {
			texts = append(texts, p.Text+Ellipsis)
		} else {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, Separator)
}

// Page composes "author - title - site" for a web page. The title
// falls back to a description or the selected text. An empty result
// means nothing suitable was found.
func Page(m *meta.Meta) string {
	if m == nil {
		return ""
	}
	toRemove := append(Values(m.Get("author")), Values(m.Get("site_name"))...)
	candidate := ""
	for _, c := range pageCandidates(m) {
		if candidate = CleanupVariant(c, toRemove); candidate != "" {
			break
		}
	}
	parts := LimitComponentsLength([]Component{
		{Value: first(Values(PreferShort(m.Get("author")))), Min: 16, Target: 24, Stiff: 24, FlexThreshold: 24},
		{Value: candidate, Min: 30, Target: 48, Stiff: 48, FlexThreshold: 48},
		{Value: first(Values(SiteNameVariants(m))), Min: 8, Target: 24, Stiff: 0, FlexThreshold: 8},
	})
	return Join(parts)
}

func singleLine(descriptors []*meta.Descriptor) []*meta.Descriptor {
	out := make([]*meta.Descriptor, 0, len(descriptors))
	for _, d := range descriptors {
		c := d.Clone()
		if s, ok := c.Value.(string); ok {
			c.Value = EnsureSingleLine(s)
		}
		out = append(out, c)
	}
	return out
}

func concat(groups ...[]*meta.Descriptor) []*meta.Descriptor {
	var out []*meta.Descriptor
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// Product composes "title - price - availability - rating - site"
// from a product entity and its page. Brand and model are put in front
// unless the title already mentions them near its start.
func Product(entity, m *meta.Meta) string {
	if entity == nil || m == nil {
		return ""
	}
	toRemove := Values(concat(entity.Get("brand"), entity.Get("model"), m.Get("site_name")))
	candidates := Values(meta.ErrorsLast(
		PreferShort(singleLine(concat(entity.Get("title"), m.Get("title")))),
		PreferShort(singleLine(concat(entity.Get("description"), m.Get("description")))),
	))
	productTitle := ""
	for _, c := range candidates {
		if productTitle = CleanupVariant(c, toRemove); productTitle != "" {
			break
		}
	}

	fromSite := Values(concat(entity.Get("brand"), entity.Get("model")))
	siteName := ""
	for _, s := range Values(SiteNameVariants(m)) {
		if siteName = CleanupVariant(s, fromSite); siteName != "" {
			break
		}
	}

	firstOf := func(property string) string {
		return first(Values(meta.ErrorsLast(PreferShort(entity.Get(property)))))
	}
	components := []Component{
		{Value: productTitle, Min: 30, Target: 48, Stiff: 48, FlexThreshold: 48},
		{Value: firstOf("price"), Min: 8, Target: 12, Stiff: 12, FlexThreshold: 12},
		{Value: firstOf("availability"), Min: 8, Target: 12, Stiff: 12, FlexThreshold: 12},
		{Value: firstOf("aggregateRating"), Min: 8, Target: 12, Stiff: 12, FlexThreshold: 12},
		{Value: siteName, Min: 8, Target: 24, Stiff: 0, FlexThreshold: 8},
	}
	for _, property := range []string{"model", "brand"} {
		value := firstOf(property)
		if value == "" {
			continue
		}
		index := -1
		if byteIndex := strings.Index(productTitle, value); byteIndex >= 0 {
			index = utf8.RuneCountInString(productTitle[:byteIndex])
		}
		if index >= 0 && index <= 48-utf8.RuneCountInString(value) {
			continue
		}
		components = append([]Component{{Value: value, Min: 8, Target: 12, Stiff: 12, FlexThreshold: 12}}, components...)
	}
	return Join(LimitComponentsLength(components))
}
