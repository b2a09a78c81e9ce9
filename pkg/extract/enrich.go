package extract

import (
	"bytes"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/org-remark/pkg/capture"
	"github.com/dtnitsch/org-remark/pkg/meta"
	"github.com/go-shiori/go-readability"
	"github.com/pemistahl/lingua-go"
)

// detectedLanguages are the candidates for language detection. A short
// list keeps the detector models small.
var detectedLanguages = []lingua.Language{
	lingua.English,
	lingua.German,
	lingua.French,
	lingua.Spanish,
	lingua.Italian,
	lingua.Portuguese,
	lingua.Dutch,
	lingua.Polish,
	lingua.Russian,
	lingua.Ukrainian,
	lingua.Japanese,
	lingua.Chinese,
}

// readable runs the readability parser and reports what it found as
// descriptors with readability.* keys.
func (e *Extractor) readable(html []byte, base *url.URL, info *capture.FrameInfo) []capture.Entry {
	parser := readability.NewParser()
	article, err := parser.Parse(bytes.NewReader(html), base)
	if err != nil {
		e.logger.Debug("extract: readability failed", "url", base.String(), "error", err)
		return []capture.Entry{{
			Property: "warning",
			Key:      "readability",
			Error:    &meta.Error{Name: "ReadabilityError", Message: err.Error()},
		}}
	}

	var entries []capture.Entry
	add := func(property, value, key string) {
		if value = normalizeSpace(value); value != "" {
			entries = append(entries, capture.Entry{Property: property, Value: value, Key: key})
		}
	}
	add("title", article.Title, "readability.title")
	add("author", article.Byline, "readability.byline")
	add("description", article.Excerpt, "readability.excerpt")
	add("site_name", article.SiteName, "readability.site_name")
	if image, ok := resolve(base, article.Image); ok {
		add("image", image, "readability.image")
	}
	if article.PublishedTime != nil {
		add("published_time", article.PublishedTime.Format(time.RFC3339), "readability.published_time")
	}
	if info.Tab != nil && info.Tab.FavIconURL == "" {
		if icon, ok := resolve(base, article.Favicon); ok {
			info.Tab.FavIconURL = icon
		}
	}
	return entries
}

// language reports the declared language of the document and the one
// detected from its text.
func (e *Extractor) language(doc *goquery.Document) []capture.Entry {
	var entries []capture.Entry
	if lang := strings.TrimSpace(doc.Find("html").AttrOr("lang", "")); lang != "" {
		entries = append(entries, capture.Entry{Property: "language", Value: lang, Key: "html.lang"})
	}

	text := truncate(normalizeSpace(nodeTextOf(doc.Find("body"))), e.limits.Text)
	if text == "" {
		return entries
	}
	e.detectorOnce.Do(func() {
		e.detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(detectedLanguages...).
			Build()
	})
	if language, ok := e.detector.DetectLanguageOf(text); ok {
		code := strings.ToLower(language.IsoCode639_1().String())
		entries = append(entries, capture.Entry{Property: "language", Value: code, Key: "lingua"})
	}
	return entries
}

func nodeTextOf(s *goquery.Selection) string {
	var sb strings.Builder
	for _, n := range s.Nodes {
		sb.WriteString(nodeText(n))
		sb.WriteByte(' ')
	}
	return sb.String()
}
