package formatorg

import (
	"unicode/utf8"

	"github.com/dtnitsch/org-remark/pkg/meta"
	"github.com/dtnitsch/org-remark/pkg/orgtree"
)

// linkTextLimit is the longest link text shown in a heading without the
// link itself.
const linkTextLimit = 20

var linkTextProperties = []struct {
	property string
	term     string
}{
	{"linkTitle", "Link title"},
	{"linkHreflang", "Link language"},
	{"linkType", "Link type"},
	{"linkDownload", "Link file hint"},
}

// formatImage assembles a capture of an image. ok is false when the
// frame has no image data, the caller then formats the frame itself.
func (f *Formatter) formatImage(chain []*meta.Meta, target string, base []orgtree.Property) (Frame, bool) {
	m := chain[0]
	if !m.Has("srcUrl") && !m.Has("imageAlt") && !m.Has("imageTitle") {
		f.logger.Error("formatorg: no image captured")
		return Frame{}, false
	}

	url := meta.ValueString(meta.FirstValue(m.Get("srcUrl")))
	var imageTitle any = meta.ValueString(meta.FirstValue(m.Get("imageAlt")))
	if imageTitle == "" {
		imageTitle = meta.ValueString(meta.FirstValue(m.Get("imageTitle")))
	}
	if imageTitle == "" {
		imageTitle = orgtree.Link{Href: url}
	}

	properties := append([]orgtree.Property(nil), base...)
	var description []any
	for _, d := range m.Get("srcUrl") {
		properties = append(properties, orgtree.Property{Name: "URL_IMAGE", Values: []any{d.Value}})
		description = append(description, orgtree.DefinitionItem("image URL", orgtree.Link{Descriptor: d}))
	}
	for _, d := range m.Get("imageAlt") {
		description = append(description, orgtree.DefinitionItem("alt", descriptorText(d)))
	}
	for _, d := range m.Get("imageTitle") {
		description = append(description, orgtree.DefinitionItem("title", descriptorText(d)))
	}
	return f.chainWithTarget(chain, target, Frame{
		Title: []any{"Image: ", imageTitle},
		URL:   url,
	}, properties, base, description), true
}

// formatLink assembles a capture of a link. ok is false when the frame
// has no link URL.
func (f *Formatter) formatLink(chain []*meta.Meta, target string, base []orgtree.Property) (Frame, bool) {
	m := chain[0]
	urls := m.Get("linkUrl")
	if len(urls) == 0 {
		f.logger.Error("formatorg: no link captured")
		return Frame{}, false
	}

	linkText := ""
	if texts := m.Get("linkText"); len(texts) > 0 {
		linkText = texts[0].String()
	}
	heading := []any{"Link:"}
	if linkText != "" {
		heading = append(heading, orgtree.WordSeparator, linkText)
	}
	if utf8.RuneCountInString(linkText) <= linkTextLimit {
		heading = append(heading, orgtree.WordSeparator, orgtree.Link{Descriptor: urls[0]})
	}

	url := ""
	for _, d := range urls {
		if d.Error == nil && d.String() != "" {
			url = d.String()
			break
		}
	}
	return f.chainWithTarget(chain, target, Frame{Title: heading, URL: url}, base, base, linkItems(m)), true
}

// linkItems describes a captured link: its URLs, texts and optional
// attributes.
func linkItems(m *meta.Meta) []any {
	var items []any
	for _, d := range m.Get("linkUrl") {
		items = append(items, orgtree.DefinitionItem("Link URL", orgtree.Link{Descriptor: d}))
	}
	for _, d := range m.Get("linkText") {
		items = append(items, orgtree.DefinitionItem("Link text", descriptorText(d)))
	}
	for _, p := range linkTextProperties {
		for _, d := range m.Get(p.property) {
			items = append(items, orgtree.DefinitionItem(p.term, descriptorText(d)))
		}
	}
	return items
}

// chainWithTarget puts the target description and the selection above
// the frames the target was found in.
func (f *Formatter) chainWithTarget(
	chain []*meta.Meta, target string, frame Frame,
	properties, base []orgtree.Property, description []any,
) Frame {
	body := append(description, orgtree.SeparatorLine, f.selection(chain[0]), orgtree.SeparatorLine)
	if len(chain) > 1 {
		body = append(body, "In the frame of the following page")
	} else {
		body = append(body, "On the page")
	}
	body = append(body, orgtree.SeparatorLine)
	for i, m := range chain {
		body = append(body, f.FormatFrame(m, FrameOptions{
			BaseProperties:    base,
			SuppressSelection: i == 0 && target != "",
			AddReferrer:       i == len(chain)-1,
			Target:            target,
		}).Tree)
	}
	frame.Tree = orgtree.Heading(frame.Title, properties, body...)
	return frame
}
