package extract

import (
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/org-remark/pkg/capture"
	"github.com/dtnitsch/org-remark/pkg/schemaorg"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	domDepthLimit       = 128
	microdataDepthLimit = 16
	microdataTextLimit  = 4096
)

// itemProps collects values of one microdata item. The empty name holds
// values without itemprop: top level items and text of leaf properties.
type itemProps struct {
	names   []string
	values  map[string][]any
	seen    map[string]map[string]bool
	skipped []string
	nSkip   int
	b       *microdataBuilder
}

type microdataBuilder struct {
	remaining     int
	propertyLimit int
	valueLimit    int
	base          *url.URL
}

func (b *microdataBuilder) newProps() *itemProps {
	return &itemProps{
		values: make(map[string][]any),
		seen:   make(map[string]map[string]bool),
		b:      b,
	}
}

func (p *itemProps) size() int { return len(p.names) }

func (p *itemProps) hasValue(s string) bool {
	for _, seen := range p.seen {
		if seen[s] {
			return true
		}
	}
	return false
}

// set adds value under name unless a count limit is hit. String values
// are kept once per name.
func (p *itemProps) set(name string, value any) bool {
	p.b.remaining--
	if p.b.remaining < 0 {
		return false
	}
	if _, exists := p.values[name]; exists {
		if len(p.values[name]) >= p.b.valueLimit {
			p.skip(name)
			return false
		}
	} else if p.size() >= p.b.propertyLimit {
		p.skip(name)
		return false
	}
	if s, ok := value.(string); ok {
		if p.seen[name][s] {
			return true
		}
		if p.seen[name] == nil {
			p.seen[name] = make(map[string]bool)
		}
		p.seen[name][s] = true
	}
	if _, exists := p.values[name]; !exists {
		p.names = append(p.names, name)
	}
	p.values[name] = append(p.values[name], value)
	return true
}

func (p *itemProps) skip(name string) {
	if len(p.skipped) < p.b.propertyLimit {
		p.skipped = append(p.skipped, name)
	}
	p.nSkip++
}

// toValue converts collected properties into JSON-LD like values. A single
// value is not wrapped into an array.
func (p *itemProps) toValue() any {
	var named map[string]any
	var unnamed any
	for _, name := range p.names {
		list := make([]any, 0, len(p.values[name]))
		for _, v := range p.values[name] {
			if nested, ok := v.(*itemProps); ok {
				list = append(list, nested.toValue())
			} else {
				list = append(list, v)
			}
		}
		var value any = list
		if len(list) == 1 {
			value = list[0]
		}
		if name == "" {
			unnamed = value
			continue
		}
		if named == nil {
			named = make(map[string]any)
		}
		named[name] = value
	}
	if len(p.skipped) > 0 {
		if named == nil {
			named = make(map[string]any)
		}
		skipped := make([]any, 0, len(p.skipped)+1)
		for _, s := range p.skipped {
			skipped = append(skipped, s)
		}
		if p.nSkip > len(p.skipped) {
			skipped = append(skipped, p.nSkip)
		}
		named["@skipped"] = skipped
	}
	if named == nil {
		return unnamed
	}
	if unnamed != nil {
		named["@unnamed"] = unnamed
	}
	return named
}

// microdata builds a JSON-LD like structure from itemscope, itemtype and
// itemprop attributes.
func (e *Extractor) microdata(doc *goquery.Document, base *url.URL) []capture.Entry {
	b := &microdataBuilder{
		remaining:     e.limits.MicrodataTotalCount,
		propertyLimit: e.limits.MicrodataPropertyCount,
		valueLimit:    e.limits.MicrodataOtherCount,
		base:          base,
	}
	root := b.newProps()
	for _, n := range doc.Find("html").Nodes {
		b.walk(n, root, 0, 0)
	}
	value := root.toValue()
	if value == nil {
		return nil
	}
	if overflow := -b.remaining; overflow > 0 {
		if m, ok := value.(map[string]any); ok {
			m["@overflow"] = overflow
		}
	}
	return []capture.Entry{{Property: "schema_org", Value: value, Key: "document.microdata"}}
}

func (b *microdataBuilder) walk(n *html.Node, frame *itemProps, depth, itemDepth int) {
	if n.Type != html.ElementNode {
		return
	}
	itemprop := strings.TrimSpace(attr(n, "itemprop"))
	_, itemscope := lookupAttr(n, "itemscope")
	if !itemscope && itemprop == "" {
		if depth < domDepthLimit {
			b.children(n, frame, depth, itemDepth)
		}
		return
	}

	props := b.newProps()
	if !frame.set(itemprop, props) {
		return
	}
	if itemscope {
		if typ := schemaorg.StripSchemaOrg(strings.TrimSpace(attr(n, "itemtype"))); typ != "" {
			props.set("@type", typ)
		}
	} else if value := b.contentFromAttributes(n); value != "" {
		props.set("", value)
	}
	if depth < domDepthLimit && itemDepth+1 < microdataDepthLimit {
		b.children(n, props, depth, itemDepth+1)
	}

	if props.size() > 0 {
		if id := b.nodeID(n); id != "" && !props.hasValue(id) {
			props.set("@id", id)
		}
		return
	}
	if href, ok := lookupAttr(n, "href"); ok && href != "" {
		if resolved, ok := resolve(b.base, href); ok {
			props.set("", resolved)
			return
		}
	}
	if text := truncate(normalizeSpace(nodeText(n)), microdataTextLimit); text != "" {
		props.set("", text)
	}
}

func (b *microdataBuilder) children(n *html.Node, frame *itemProps, depth, itemDepth int) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.walk(c, frame, depth+1, itemDepth)
	}
}

func (b *microdataBuilder) nodeID(n *html.Node) string {
	if href := attr(n, "href"); href != "" {
		if resolved, ok := resolve(b.base, href); ok {
			return resolved
		}
	}
	id := attr(n, "id")
	if id == "" && n.DataAtom == atom.A {
		id = attr(n, "name")
	}
	if id == "" {
		return ""
	}
	ref := *b.base
	ref.Fragment = id
	return ref.String()
}

func (b *microdataBuilder) contentFromAttributes(n *html.Node) string {
	switch n.DataAtom {
	case atom.Meta:
		return attr(n, "content")
	case atom.Link:
		resolved, _ := resolve(b.base, attr(n, "href"))
		return resolved
	case atom.Img, atom.Audio, atom.Video, atom.Source, atom.Embed, atom.Iframe:
		resolved, _ := resolve(b.base, attr(n, "src"))
		return resolved
	case atom.Time:
		if dt := attr(n, "datetime"); dt != "" {
			return dt
		}
		if ts, err := strconv.ParseInt(attr(n, "data-unix"), 10, 64); err == nil {
			return time.Unix(ts, 0).UTC().Format("2006-01-02T15:04:05.000Z")
		}
		return attr(n, "content")
	}
	return ""
}

func lookupAttr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func attr(n *html.Node, name string) string {
	v, _ := lookupAttr(n, name)
	return v
}

// nodeText is the text content of n without scripts and styles.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return sb.String()
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
