// Package extract reads a captured HTML document and reports what it
// knows about the page the way browser side scripts would: one
// capture.ScriptResult per extractor field of capture.FrameInfo.
package extract

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/org-remark/models"
	"github.com/dtnitsch/org-remark/pkg/capture"
	"github.com/pemistahl/lingua-go"
)

// Options configures an Extractor.
type Options struct {
	Limits models.Limits
	// Languages are preferred codes for <link rel="alternate" hreflang>.
	Languages      []string
	Readability    bool
	DetectLanguage bool
	Logger         *slog.Logger
}

// Page is a document together with the context of the capture.
type Page struct {
	URL       string
	HTML      []byte
	FrameID   int
	Referrer  string
	Selection string
	// LinkURL and SrcURL point to the captured link or image, if any.
	LinkURL string
	SrcURL  string
}

// Extractor turns documents into capture.FrameInfo.
type Extractor struct {
	limits      models.Limits
	languages   map[string]bool
	readability bool
	logger      *slog.Logger

	detectLanguage bool
	detectorOnce   sync.Once
	detector       lingua.LanguageDetector
}

// New creates an Extractor. Zero limits are replaced by the defaults.
func New(opts Options) *Extractor {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Limits == (models.Limits{}) {
		opts.Limits = models.DefaultLimits()
	}
	if len(opts.Languages) == 0 {
		opts.Languages = []string{"en"}
	}
	languages := make(map[string]bool, len(opts.Languages))
	for _, l := range opts.Languages {
		if code := langCode(l); code != "" {
			languages[code] = true
		}
	}
	return &Extractor{
		limits:         opts.Limits,
		languages:      languages,
		readability:    opts.Readability,
		detectLanguage: opts.DetectLanguage,
		logger:         opts.Logger,
	}
}

// Extract parses p.HTML and collects tab, frame and extractor results.
func (e *Extractor) Extract(p Page) (*capture.FrameInfo, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.HTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	base, err := baseURL(doc, p.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL %q: %w", p.URL, err)
	}

	pageTitle := normalizeSpace(doc.Find("head title").First().Text())
	info := &capture.FrameInfo{
		Frame:   &capture.Frame{FrameID: p.FrameID, URL: p.URL},
		Scripts: make(map[string]*capture.ScriptResult),
	}
	if p.FrameID == 0 {
		info.Tab = &capture.Tab{URL: p.URL, Title: pageTitle, FavIconURL: favicon(doc, base)}
	}

	info.Scripts[capture.FieldRelations] = e.guard("relations", func() []capture.Entry {
		return relations(p.Referrer)
	})
	info.Scripts[capture.FieldMeta] = e.guard("meta", func() []capture.Entry {
		entries := e.headMeta(doc, base)
		entries = append(entries, e.headLinks(doc, base)...)
		entries = append(entries, e.jsonLD(doc)...)
		if e.readability {
			entries = append(entries, e.readable(p.HTML, base, info)...)
		}
		if e.detectLanguage {
			entries = append(entries, e.language(doc)...)
		}
		return entries
	})
	info.Scripts[capture.FieldSelection] = e.guard("selection", func() []capture.Entry {
		return selection(pageTitle, p)
	})
	if p.SrcURL != "" {
		info.Scripts[capture.FieldImage] = e.guard("image", func() []capture.Entry {
			return e.image(doc, base, p.SrcURL)
		})
	}
	if p.LinkURL != "" {
		info.Scripts[capture.FieldLink] = e.guard("link", func() []capture.Entry {
			return e.link(doc, base, p.LinkURL)
		})
	}
	info.Scripts[capture.FieldMicrodata] = e.guard("microdata", func() []capture.Entry {
		return e.microdata(doc, base)
	})
	return info, nil
}

// guard runs one extractor and reports a panic as the result error so
// the remaining extractors still run.
func (e *Extractor) guard(name string, fn func() []capture.Entry) (result *capture.ScriptResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("extract: extractor failed", "extractor", name, "panic", r)
			result = &capture.ScriptResult{Error: map[string]any{"name": "Error", "message": fmt.Sprint(r)}}
		}
	}()
	return &capture.ScriptResult{Result: fn()}
}

func relations(referrer string) []capture.Entry {
	if referrer == "" {
		return nil
	}
	return []capture.Entry{{Property: "referrer", Value: referrer, Key: "document.referrer"}}
}

func selection(pageTitle string, p Page) []capture.Entry {
	var entries []capture.Entry
	if pageTitle != "" {
		entries = append(entries, capture.Entry{Property: "title", Value: pageTitle, Key: "document.title"})
	}
	if p.URL != "" {
		entries = append(entries, capture.Entry{Property: "url", Value: p.URL, Key: "window.location"})
	}
	if text := strings.TrimSpace(p.Selection); text != "" {
		entries = append(entries, capture.Entry{Property: "selection", Value: text, Key: "window.getSelection.text"})
	}
	return entries
}

// baseURL honours <base href> relative to the page URL.
func baseURL(doc *goquery.Document, pageURL string) (*url.URL, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	if href, ok := doc.Find("head base[href]").First().Attr("href"); ok && href != "" {
		if ref, err := base.Parse(href); err == nil {
			return ref, nil
		}
	}
	return base, nil
}

// resolve makes href absolute. Fragment-only, javascript: and data: links
// are not addresses of anything worth capturing.
func resolve(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" || hasScheme(href, "javascript:") || hasScheme(href, "data:") {
		return "", false
	}
	u, err := base.Parse(href)
	if err != nil {
		return "", false
	}
	return u.String(), true
}

func hasScheme(href, scheme string) bool {
	return len(href) >= len(scheme) && strings.EqualFold(href[:len(scheme)], scheme)
}

func favicon(doc *goquery.Document, base *url.URL) string {
	var icon string
	doc.Find("head link[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, rel := range strings.Fields(strings.ToLower(s.AttrOr("rel", ""))) {
			if rel == "icon" {
				icon, _ = resolve(base, s.AttrOr("href", ""))
				return icon == ""
			}
		}
		return true
	})
	return icon
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func langCode(locale string) string {
	locale = strings.ToLower(locale)
	end := 0
	for end < len(locale) && locale[end] >= 'a' && locale[end] <= 'z' {
		end++
	}
	return locale[:end]
}
