package meta

import (
	"net/url"
	"regexp"
	"strings"
)

// DOIResolver describes how a resolver host embeds a DOI in its path.
type DOIResolver struct {
	Prefix string
	// KeepURL means the original URL is useful in addition to the DOI.
	KeepURL bool
}

// DOIResolvers lists hosts recognized as DOI resolvers or publishers.
var DOIResolvers = map[string]DOIResolver{
	"dx.doi.org":     {Prefix: ""},
	"doi.org":        {Prefix: ""},
	"www.doi.org":    {Prefix: ""},
	"doi.pangaea.de": {Prefix: ""},
	"hdl.handle.net": {Prefix: ""},

	"oadoi.org": {Prefix: "", KeepURL: true},
	"doai.io":   {Prefix: "", KeepURL: true},
	"dissem.in": {Prefix: "/api", KeepURL: true},

	"science.org":     {Prefix: "/doi", KeepURL: true},
	"www.science.org": {Prefix: "/doi", KeepURL: true},
	"pubs.acs.org":    {Prefix: "/doi", KeepURL: true},
}

var (
	reDOIKey    = regexp.MustCompile(`(?i)\.(?:citation_)?doi$`)
	reInfoShema = regexp.MustCompile(`(?i)^(?:doi|hdl)/`)
)

// IsDOIKey reports whether any key of d names a DOI meta field.
func IsDOIKey(d *Descriptor) bool {
	for _, k := range d.allKeys() {
		if reDOIKey.MatchString(k) {
			return true
		}
	}
	return false
}

// MatchDOI recognizes DOI identifiers in a URL descriptor. It returns nil
// when no DOI is found, a single "doi:" descriptor when the original URL
// should be dropped, or the original followed by the DOI variant.
func MatchDOI(d *Descriptor) []*Descriptor {
	if d.Error != nil {
		return nil
	}
	value, ok := d.Value.(string)
	if !ok {
		return nil
	}
	toDOI := func(id string, keepURL bool) []*Descriptor {
		if id == "" {
			return nil
		}
		doi := d.Clone()
		doi.Value = "doi:" + id
		doi.urlSanitized = true
		if keepURL {
			return []*Descriptor{d, doi}
		}
		return []*Descriptor{doi}
	}

	doiKey := IsDOIKey(d)
	if doiKey && strings.HasPrefix(value, "10.") {
		return toDOI(value, false)
	}
	u, err := url.Parse(value)
	if err != nil || u.Scheme == "" {
		return nil
	}
	switch u.Scheme {
	case "doi", "hdl":
		if u.Opaque != "" {
			return toDOI(u.Opaque, false)
		}
		return toDOI(u.Host+u.EscapedPath(), false)
	case "info":
		path := u.Opaque
		if path == "" {
			path = u.EscapedPath()
		}
		cleaned := reInfoShema.ReplaceAllString(path, "")
		if cleaned == path {
			return nil
		}
		return toDOI(cleaned, false)
	case "http", "https":
	default:
		return nil
	}
	path := u.EscapedPath()
	resolver, known := DOIResolvers[strings.ToLower(u.Hostname())]
	if !known {
		if !doiKey {
			return nil
		}
		for _, prefix := range []string{"/doi", ""} {
			if strings.HasPrefix(path, prefix+"/10.") {
				return toDOI(path[len(prefix)+1:], true)
			}
		}
		return nil
	}
	if !strings.HasPrefix(path, resolver.Prefix+"/10.") {
		return nil
	}
	return toDOI(path[len(resolver.Prefix)+1:], resolver.KeepURL)
}
