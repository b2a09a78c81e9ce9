package formatorg

import (
	"sort"
	"unicode/utf8"

	"github.com/dtnitsch/org-remark/pkg/meta"
	"github.com/dtnitsch/org-remark/pkg/orgtree"
	"github.com/dtnitsch/org-remark/pkg/title"
)

// FormatFrame assembles the heading of a single frame. Frames whose page
// has a registered entity are passed to the entity formatter.
func (f *Formatter) FormatFrame(m *meta.Meta, opts FrameOptions) Frame {
	if typ, entity := m.Entity(); entity != nil {
		if fn := f.entities[typ]; fn != nil {
			return fn(f, entity, m, opts)
		}
		f.logger.Debug("formatorg: no formatter for entity", "type", typ)
	}

	properties := append([]orgtree.Property(nil), opts.BaseProperties...)
	properties = f.collectProperties(properties, m)

	var (
		url  string
		body []any
	)
	urls := title.URLVariants(m)
	for _, u := range urls {
		body = append(body, orgtree.DefinitionItem("URL", orgtree.Link{Href: u}))
		if url == "" {
			url = u
		}
	}
	for _, t := range title.Sorted(m) {
		body = append(body, orgtree.DefinitionItem("title", t))
	}
	for _, property := range []string{"author", "published_time", "modified_time", "site_name"} {
		for _, d := range m.Get(property) {
			var value any = descriptorText(d)
			if property == "published_time" || property == "modified_time" {
				value = f.parseDate(d.Value)
			}
			body = append(body, orgtree.DefinitionItem(property, value))
		}
	}
	if opts.AddReferrer {
		body = append(body, referrer(m)...)
	}
	if description := shortestDescription(m); description != "" {
		body = append(body, orgtree.DefinitionItem("description", description))
	}
	body = append(body, orgtree.SeparatorLine)
	if !opts.SuppressSelection {
		body = append(body, f.selection(m), orgtree.SeparatorLine)
	}
	if len(opts.Body) > 0 {
		body = append(body, orgtree.SeparatorLine)
		body = append(body, opts.Body...)
	}

	heading := f.headingOrFallback(title.Page(m), title.FallbackPage, urls)
	return Frame{
		Title: heading,
		URL:   url,
		Tree:  orgtree.Heading(heading, properties, body...),
	}
}

// headingOrFallback returns text or, when it is empty, the fallback
// followed by a shortened link to the page or the capture date.
func (f *Formatter) headingOrFallback(text, fallback string, urls []string) any {
	if text != "" {
		return text
	}
	if len(urls) > 0 {
		return []any{fallback, title.Separator, orgtree.Link{
			Href:        urls[0],
			LengthLimit: 75 - utf8.RuneCountInString(fallback),
		}}
	}
	return []any{fallback, title.Separator, f.now().In(f.location)}
}

// collectProperties adds image URLs, modification dates and the detected
// language to the properties drawer.
func (f *Formatter) collectProperties(properties []orgtree.Property, m *meta.Meta) []orgtree.Property {
	for _, d := range m.Get("image") {
		if s, ok := d.Value.(string); ok && s != "" {
			properties = append(properties, orgtree.Property{Name: "URL_IMAGE", Values: []any{s}})
		}
	}
	properties = f.lastModified(properties, m)
	if language := meta.FirstText(m.Get("language")); language != "" {
		properties = append(properties, orgtree.Property{Name: "LANGUAGE", Values: []any{language}})
	}
	return properties
}

func (f *Formatter) lastModified(properties []orgtree.Property, m *meta.Meta) []orgtree.Property {
	for _, d := range m.Get("lastModified") {
		if value := f.parseDate(d.Value); len(value) > 0 {
			properties = append(properties, orgtree.Property{Name: "LAST_MODIFIED", Values: value})
		}
	}
	return properties
}

// shortestDescription prefers shorter descriptions and, among equal
// lengths, the one reported by fewer sources.
func shortestDescription(m *meta.Meta) string {
	var variants []*meta.Descriptor
	for _, d := range m.Get("description") {
		if s, ok := d.Value.(string); ok && s != "" {
			variants = append(variants, d)
		}
	}
	if len(variants) == 0 {
		return ""
	}
	sort.SliceStable(variants, func(i, j int) bool {
		li := utf8.RuneCountInString(variants[i].String())
		lj := utf8.RuneCountInString(variants[j].String())
		if li != lj {
			return li < lj
		}
		return len(variants[i].Keys) < len(variants[j].Keys)
	})
	return variants[0].String()
}

func referrer(m *meta.Meta) []any {
	var items []any
	for _, d := range m.Get("referrer") {
		if d.IsEmpty() {
			m.Logger().Warn("formatorg: referrer without href", "keys", d.Keys)
			continue
		}
		items = append(items, orgtree.DefinitionItem("referrer", orgtree.Link{Descriptor: d}))
	}
	return items
}

// descriptorText is the value of d with its error note, if any.
func descriptorText(d *meta.Descriptor) string {
	return meta.FirstText([]*meta.Descriptor{d})
}

// selection quotes the selected text. Fragments of a multi-range
// selection are preferred over the whole selection text.
func (f *Formatter) selection(m *meta.Meta) any {
	var fragments []meta.Fragment
	for _, d := range m.Get("selection") {
		if list, ok := d.Value.([]meta.Fragment); ok && hasText(list) {
			fragments = list
			break
		}
	}
	if fragments == nil {
		for _, key := range []string{"window.getSelection.text", "clickData.selectionText"} {
			for _, d := range m.Descriptors("selection", key) {
				if s, ok := d.Value.(string); ok && s != "" {
					fragments = []meta.Fragment{{Value: s, Error: d.Error}}
					break
				}
			}
			if fragments != nil {
				break
			}
		}
	}
	if fragments == nil {
		return nil
	}
	return orgtree.Quote(f.selectionBody(fragments)...)
}

func hasText(fragments []meta.Fragment) bool {
	for _, fragment := range fragments {
		if fragment.Value != "" {
			return true
		}
	}
	return false
}

// selectionBody joins fragments with an ellipsis. An empty fragment marks
// a gap between paragraphs.
func (f *Formatter) selectionBody(fragments []meta.Fragment) []any {
	var result []any
	for _, fragment := range fragments {
		switch {
		case len(result) == 0:
			if fragment.Value == "" && fragment.Error == nil {
				f.logger.Warn("formatorg: selection starts with an empty fragment")
			}
			result = append(result, fragment.Value)
		case fragment.Value == "":
			result = append(result, orgtree.SeparatorLine, orgtree.Markup("..."), orgtree.SeparatorLine)
		case result[len(result)-1] == orgtree.SeparatorLine:
			result = append(result, fragment.Value)
		default:
			result = append(result,
				orgtree.WordSeparator, orgtree.Markup(title.Ellipsis), orgtree.WordSeparator,
				fragment.Value)
		}
		if fragment.Error != nil {
			result = append(result, "\n("+meta.ErrorText(fragment.Error)+")")
		}
	}
	return result
}
