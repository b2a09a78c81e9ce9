package formatorg

import (
	"github.com/dtnitsch/org-remark/pkg/meta"
	"github.com/dtnitsch/org-remark/pkg/orgtree"
	"github.com/dtnitsch/org-remark/pkg/title"
)

var productSummaryProperties = []string{"model", "brand", "price", "availability", "aggregateRating"}

var offerFields = []string{"model", "name", "price", "availability"}

// FormatProductFrame assembles a frame of a product page. Product facts
// come first, images are listed in the body rather than in properties.
func FormatProductFrame(f *Formatter, entity, m *meta.Meta, opts FrameOptions) Frame {
	properties := append([]orgtree.Property(nil), opts.BaseProperties...)
	properties = f.lastModified(properties, m)

	var (
		url  string
		body []any
	)
	added := make(map[string]bool)
	pageURLs := title.URLVariants(m)
	for _, u := range append(pageURLs, title.URLVariants(entity)...) {
		if added[u] {
			continue
		}
		added[u] = true
		body = append(body, orgtree.DefinitionItem("URL", orgtree.Link{Href: u}))
		if url == "" {
			url = u
		}
	}

	added = make(map[string]bool)
	for _, property := range productSummaryProperties {
		for _, d := range meta.ErrorsLast(entity.Get(property)) {
			value := meta.ValueString(d.Value)
			if added[value] {
				continue
			}
			added[value] = true
			body = append(body, orgtree.DefinitionItem(property, descriptorText(d)))
		}
	}
	for _, t := range title.Sorted(m) {
		if added[t] {
			continue
		}
		added[t] = true
		body = append(body, orgtree.DefinitionItem("title", t))
	}
	for _, property := range []string{"published_time", "modified_time"} {
		for _, d := range m.Get(property) {
			body = append(body, orgtree.DefinitionItem(property, f.parseDate(d.Value)))
		}
	}
	for _, d := range entity.Get("offerName") {
		body = append(body, orgtree.DefinitionItem("offer", descriptorText(d)))
	}
	for _, d := range m.Get("author") {
		body = append(body, orgtree.DefinitionItem("author", descriptorText(d)))
	}
	for _, d := range entity.Get("genericProperty") {
		body = append(body, orgtree.DefinitionItem(d.Attr("name"), descriptorText(d)))
	}
	for _, d := range title.SiteNameVariants(m) {
		body = append(body, orgtree.DefinitionItem("site name", d.String()))
	}
	if opts.AddReferrer {
		body = append(body, referrer(m)...)
	}
	for _, description := range title.Values(meta.ErrorsLast(title.PreferShort(m.Get("description")))) {
		body = append(body, orgtree.DefinitionItem("description", description))
	}
	for _, d := range m.Get("image") {
		body = append(body, orgtree.DefinitionItem("image", orgtree.Link{Descriptor: d}))
	}
	for _, d := range entity.Get("offer") {
		if components := offerComponents(d.Value); len(components) > 0 {
			body = append(body, orgtree.DefinitionItem("offer", components...))
		}
	}
	if opts.Target != TargetLink {
		body = append(body, linkItems(m)...)
	}

	body = append(body, orgtree.SeparatorLine)
	if !opts.SuppressSelection {
		body = append(body, f.selection(m), orgtree.SeparatorLine)
	}
	if len(opts.Body) > 0 {
		body = append(body, orgtree.SeparatorLine)
		body = append(body, opts.Body...)
	}

	heading := f.headingOrFallback(title.Product(entity, m), title.FallbackProduct, pageURLs)
	return Frame{
		Title: heading,
		URL:   url,
		Tree:  orgtree.Heading(heading, properties, body...),
	}
}

// offerComponents lists the known fields of an offer separated by spaces
// with its URL as a link at the end.
func offerComponents(value any) []any {
	offer, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	var components []any
	push := func(element any) {
		if len(components) > 0 {
			components = append(components, " ")
		}
		components = append(components, element)
	}
	for _, field := range offerFields {
		if s := meta.ValueString(offer[field]); s != "" {
			push(s)
		}
	}
	if href := meta.ValueString(offer["url"]); href != "" {
		push(orgtree.Link{Href: href})
	}
	return components
}
