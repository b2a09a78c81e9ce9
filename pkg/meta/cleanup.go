package meta

import (
	"regexp"
	"strings"
)

// Cleanup is a pass run over a merged Meta before formatting.
type Cleanup struct {
	Name string
	Run  func(m *Meta)
}

// DefaultCleanups returns the passes in the order they must run.
func DefaultCleanups() []Cleanup {
	return []Cleanup{
		{Name: "decodeDescription", Run: DecodeDescription},
		{Name: "removeTitleURLDuplicate", Run: RemoveTitleURLDuplicate},
		{Name: "removeDuplicateDescriptionTitle", Run: DuplicationRemover("title", "description")},
		{Name: "removeDuplicateLinkTextLinkURL", Run: DuplicationRemover("linkUrl", "linkText")},
		{Name: "removeNonCanonicalSlash", Run: RemoveNonCanonicalSlash},
		{Name: "removeSelfLink", Run: RemoveSelfLink},
	}
}

// RunCleanups applies passes in order, logging and skipping a pass that
// panics.
func RunCleanups(m *Meta, passes []Cleanup) {
	for _, pass := range passes {
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Error("meta: cleanup failed, continue", "pass", pass.Name, "panic", r)
				}
			}()
			pass.Run(m)
		}()
	}
}

func firstStringByKeys(m *Meta, property string, keys ...string) string {
	for _, key := range keys {
		if value := m.StringValue(property, key); value != "" {
			return value
		}
	}
	return ""
}

// DecodeDescription decodes entities in descriptions: twitter
// descriptions are often encoded twice, Open Graph ones once.
func DecodeDescription(m *Meta) {
	twitter := firstStringByKeys(m, "description",
		"meta.name.twitter:description", "meta.property.twitter:description")
	if twitter != "" {
		decoded := UnescapeEntities(UnescapeEntities(twitter, false), false)
		if err := m.Replace("description", twitter, decoded); err != nil {
			m.logger.Debug("meta: decode twitter description", "error", err)
		}
	}
	og := firstStringByKeys(m, "description",
		"meta.name.og:description", "meta.property.og:description")
	if og != "" {
		if err := m.Replace("description", og, UnescapeEntities(og, false)); err != nil {
			m.logger.Debug("meta: decode og description", "error", err)
		}
	}
}

var reURLScheme = regexp.MustCompile(`^[a-zA-Z][-_+a-zA-Z0-9]*:(?:\/\/)?`)

// RemoveTitleURLDuplicate drops titles equal to a page URL without scheme.
func RemoveTitleURLDuplicate(m *Meta) {
	urls := make(map[string]bool)
	for _, d := range m.Get("url") {
		if s, ok := d.Value.(string); ok && s != "" {
			urls[reURLScheme.ReplaceAllString(s, "")] = true
		}
	}
	if len(urls) == 0 {
		return
	}
	for _, title := range m.Get("title") {
		if s, ok := title.Value.(string); ok && urls[s] {
			m.logger.Debug("meta: remove title similar to url", "title", s)
			m.DeleteValue("title", s)
		}
	}
}

// DuplicationRemover returns a pass that moves values of forCleanup that
// are equal to some value of primary into primary.
func DuplicationRemover(primary, forCleanup string) func(m *Meta) {
	return func(m *Meta) {
		seen := make(map[string]bool)
		for _, d := range m.Get(primary) {
			seen[valueKey(d.Value)] = true
		}
		if len(seen) == 0 {
			return
		}
		for _, d := range m.Get(forCleanup) {
			if !d.IsEmpty() && seen[valueKey(d.Value)] {
				m.logger.Debug("meta: remove duplicate", "property", forCleanup, "primary", primary)
				m.Move(d, forCleanup, primary)
			}
		}
	}
}

// RemoveNonCanonicalSlash drops the URL that differs from the canonical
// one only by a trailing slash.
func RemoveNonCanonicalSlash(m *Meta) {
	canonical, ok := m.Value("url", "link.canonical")
	s, isString := canonical.(string)
	if !ok || !isString || s == "" {
		return
	}
	toRemove := s + "/"
	if strings.HasSuffix(s, "/") {
		toRemove = strings.TrimSuffix(s, "/")
	}
	m.DeleteValue("url", toRemove)
}

func stripFragment(href string) (string, error) {
	u, err := ParseURL(href)
	if err != nil {
		return "", err
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), nil
}

// RemoveSelfLink discards the "link" capture target when every link URL
// points to the captured page itself, ignoring the fragment. Such links are
// moved to the page URLs. Links differing by query string are external.
// data: links are external, javascript: links are ignored.
func RemoveSelfLink(m *Meta) {
	if target, _ := FirstValue(m.Descriptors("target", "clickData.captureObject")).(string); target != "link" {
		return
	}
	var candidates []*Descriptor
	for _, link := range m.Get("linkUrl") {
		s, ok := link.Value.(string)
		switch {
		case !ok || s == "":
			continue
		case strings.HasPrefix(s, "data:"):
			return
		case strings.HasPrefix(s, "javascript:"):
			continue
		}
		candidates = append(candidates, link)
	}
	pageURLs := make(map[string]bool)
	for _, d := range m.Get("url") {
		s, ok := d.Value.(string)
		if !ok || s == "" {
			continue
		}
		if stripped, err := stripFragment(s); err == nil {
			pageURLs[stripped] = true
		}
	}
	var selfLinks []*Descriptor
	for _, link := range candidates {
		stripped, err := stripFragment(link.String())
		if err != nil || !pageURLs[stripped] {
			return
		}
		selfLinks = append(selfLinks, link)
	}
	for _, link := range selfLinks {
		m.Move(link, "linkUrl", "url")
	}
	m.DeleteValue("target", "link")
}
