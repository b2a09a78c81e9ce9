package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/org-remark/pkg/capture"
	"github.com/dtnitsch/org-remark/pkg/meta"
)

// ErrPropertyCountOverflow marks a property with too many head entries.
const ErrPropertyCountOverflow = "LrPropertyCountOverflow"

// headMetaNames maps <meta name> and <meta property> to descriptor properties.
var headMetaNames = map[string]string{
	"description":            "description",
	"author":                 "author",
	"mediator_author":        "author",
	"datePublished":          "published_time",
	"dateModified":           "modified_time",
	"blog-name":              "site_name",
	"doi":                    "doi",
	"DOI":                    "doi",
	"citation_doi":           "doi",
	"og:url":                 "url",
	"og:title":               "title",
	"twitter:title":          "title",
	"og:description":         "description",
	"twitter:description":    "description",
	"article:published_time": "published_time",
	"article:modified_time":  "modified_time",
	"og:updated_time":        "modified_time",
	"article:publisher":      "publisher",
	"og:image:secure_url":    "image",
	"og:image":               "image",
	"vk:image":               "image",
	"twitter:image":          "image",
	"og:site_name":           "site_name",
	"twitter:site":           "site_name",
	"application-name":       "other",
	"generator":              "other",
}

func headMetaLimits() map[string]int {
	return map[string]int{
		"doi":            5,
		"url":            5,
		"title":          5,
		"description":    5,
		"image":          5,
		"published_time": 5,
		"modified_time":  5,
		"other":          20,
	}
}

// countLimiter hands out per-property quotas. Properties without their
// own quota share the "other" one. The first rejected entry of a property
// produces a warning.
type countLimiter struct {
	limits map[string]int
	scope  string
}

func (l *countLimiter) take(property, key string) (ok bool, warning *capture.Entry) {
	name := property
	if _, known := l.limits[name]; !known {
		name = "other"
	}
	l.limits[name]--
	switch remaining := l.limits[name]; {
	case remaining >= 0:
		return true, nil
	case remaining == -1:
		return false, &capture.Entry{
			Property: "warning",
			Key:      l.scope,
			Error: &meta.Error{
				Name:    ErrPropertyCountOverflow,
				Message: fmt.Sprintf("%s %s", property, key),
			},
		}
	}
	return false, nil
}

func (e *Extractor) headMeta(doc *goquery.Document, base *url.URL) []capture.Entry {
	var entries []capture.Entry
	limiter := &countLimiter{limits: headMetaLimits(), scope: "lr.head.meta"}
	doc.Find("head meta").Each(func(_ int, s *goquery.Selection) {
		content := strings.TrimSpace(s.AttrOr("content", ""))
		if content == "" {
			return
		}
		attr := "name"
		name := s.AttrOr("name", "")
		if name == "" {
			attr = "property"
			name = s.AttrOr("property", "")
		}
		property, ok := headMetaNames[name]
		if !ok {
			return
		}
		key := "meta." + attr + "." + name
		allowed, warning := limiter.take(property, key)
		if warning != nil {
			entries = append(entries, *warning)
		}
		if !allowed || property == "other" {
			return
		}
		value := content
		switch property {
		case "doi":
			property = "url"
		case "url", "image":
			resolved, ok := resolve(base, content)
			if !ok {
				e.logger.Debug("extract: ignore head meta URL", "key", key, "value", content)
				return
			}
			value = resolved
		}
		entries = append(entries, capture.Entry{Property: property, Value: value, Key: key})
	})
	return entries
}

func headLinkLimits() map[string]int {
	return map[string]int{"url": 10, "image": 5, "other": 10}
}

func (e *Extractor) headLinks(doc *goquery.Document, base *url.URL) []capture.Entry {
	var entries []capture.Entry
	limiter := &countLimiter{limits: headLinkLimits(), scope: "lr.head.link"}
	doc.Find("head link[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := resolve(base, s.AttrOr("href", ""))
		if !ok {
			return
		}
		attrs := make(map[string]any)
		for _, name := range []string{"type", "rel", "media", "hreflang", "title"} {
			if v := s.AttrOr(name, ""); v != "" && len(v) < e.limits.String {
				attrs[name] = v
			}
		}
		rel, _ := attrs["rel"].(string)
		var property, key string
		switch rel {
		case "canonical", "shortlink", "shorturl":
			property, key = "url", "link."+rel
		case "alternate":
			property = "url"
			typ, _ := attrs["type"].(string)
			hreflang, _ := attrs["hreflang"].(string)
			switch {
			case typ != "":
				e.logger.Debug("extract: ignore alternate link", "type", typ, "href", href)
			case hreflang != "":
				if e.languages[langCode(hreflang)] {
					key = "link.alternate"
				}
			default:
				key = "link.alternate"
			}
		case "image_src":
			property, key = "image", "link.image_src"
		}
		allowed, warning := limiter.take(property, key)
		if warning != nil {
			entries = append(entries, *warning)
		}
		if !allowed || key == "" {
			return
		}
		entries = append(entries, capture.Entry{Property: property, Value: href, Key: key, Attrs: attrs})
	})
	return entries
}

// jsonLD reports the text of ld+json scripts for the schema_org sanitizer.
func (e *Extractor) jsonLD(doc *goquery.Document) []capture.Entry {
	var entries []capture.Entry
	scripts := doc.Find(`script[type="application/ld+json"]`)
	scripts.EachWithBreak(func(i int, s *goquery.Selection) bool {
		entry := capture.Entry{Property: "schema_org", Key: "document.script.ld_json"}
		if i >= e.limits.JSONFragmentCount {
			entry.Error = meta.Overflow(scripts.Length())
			entries = append(entries, entry)
			return false
		}
		text := s.Text()
		if len(text) < e.limits.JSON {
			entry.Value = text
		} else {
			entry.Error = meta.Overflow(len(text))
		}
		entries = append(entries, entry)
		return true
	})
	return entries
}
