package extract

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/org-remark/pkg/capture"
)

// findByURL returns the first element of selector whose attribute
// resolves to target.
func findByURL(doc *goquery.Document, base *url.URL, selector, attribute, target string) *goquery.Selection {
	var found *goquery.Selection
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if resolved, ok := resolve(base, s.AttrOr(attribute, "")); ok && resolved == target {
			found = s
			return false
		}
		return true
	})
	return found
}

func attrEntries(s *goquery.Selection, attrs [][3]string) []capture.Entry {
	var entries []capture.Entry
	for _, a := range attrs {
		if v := normalizeSpace(s.AttrOr(a[0], "")); v != "" {
			entries = append(entries, capture.Entry{Property: a[1], Value: v, Key: a[2]})
		}
	}
	return entries
}

// image describes the <img> element the capture points to.
func (e *Extractor) image(doc *goquery.Document, base *url.URL, srcURL string) []capture.Entry {
	img := findByURL(doc, base, "img[src]", "src", srcURL)
	if img == nil {
		e.logger.Debug("extract: captured image not found in document", "src", srcURL)
		return nil
	}
	entries := []capture.Entry{{Property: "srcUrl", Value: srcURL, Key: "image.src"}}
	return append(entries, attrEntries(img, [][3]string{
		{"alt", "imageAlt", "image.alt"},
		{"title", "imageTitle", "image.title"},
	})...)
}

// link describes the <a> element the capture points to.
func (e *Extractor) link(doc *goquery.Document, base *url.URL, linkURL string) []capture.Entry {
	a := findByURL(doc, base, "a[href], area[href]", "href", linkURL)
	if a == nil {
		e.logger.Debug("extract: captured link not found in document", "href", linkURL)
		return nil
	}
	entries := []capture.Entry{{Property: "linkUrl", Value: linkURL, Key: "link.href"}}
	entries = append(entries, attrEntries(a, [][3]string{
		{"title", "linkTitle", "link.title"},
		{"download", "linkDownload", "link.download"},
		{"hreflang", "linkHreflang", "link.hreflang"},
		{"type", "linkType", "link.type"},
	})...)
	if text := truncate(normalizeSpace(a.Text()), e.limits.String); text != "" {
		entries = append(entries, capture.Entry{Property: "linkText", Value: text, Key: "link.text"})
	}
	return entries
}
