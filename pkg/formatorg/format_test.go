package formatorg

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/dtnitsch/org-remark/pkg/meta"
	"github.com/dtnitsch/org-remark/pkg/schemaorg"
)

const sep = "\u00a0\u2014 "

var captureTime = time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)

const dateAdded = ":PROPERTIES:\n:DATE_ADDED: [2021-03-04 Thu 05:06]\n:END:\n"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFormatter() *Formatter {
	return New(Options{
		Logger:   testLogger(),
		Now:      func() time.Time { return captureTime },
		Location: time.UTC,
	})
}

func newMeta() *meta.Meta {
	return meta.New(meta.WithLogger(testLogger()))
}

func add(m *meta.Meta, property string, value any, key string) {
	m.AddDescriptor(property, &meta.Descriptor{Value: value, Key: key})
}

func addSchemaOrg(t *testing.T, m *meta.Meta, fixture, key string) {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(fixture), &v); err != nil {
		t.Fatalf("failed to decode fixture: %v", err)
	}
	add(m, "schema_org", v, key)
}

func mergeSchemaOrg(m *meta.Meta) {
	schemaorg.NewUnifier(testLogger(), "en-US").MergeSchemaOrg(m)
}

func format(t *testing.T, c *Capture) (title, url, body string) {
	t.Helper()
	projection, err := newFormatter().Format(c)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if projection.Format != FormatName {
		t.Errorf("Format = %q, want %q", projection.Format, FormatName)
	}
	return projection.Title, projection.URL, strings.TrimSpace(projection.Body)
}

func chain(target string, frames ...*meta.Meta) *Capture {
	return &Capture{Type: TypeTabFrameChain, Target: target, Frames: frames}
}

func TestFormat_Errors(t *testing.T) {
	tests := []struct {
		name    string
		capture *Capture
		want    error
	}{
		{name: "nil", capture: nil, want: ErrEmptyCapture},
		{name: "unknown type", capture: &Capture{Type: "Window"}, want: ErrUnsupportedType},
		{name: "no frames", capture: chain(""), want: ErrEmptyCapture},
		{name: "empty group", capture: &Capture{Type: TypeTabGroup}, want: ErrNoTabs},
		{
			name:    "group without successful tabs",
			capture: &Capture{Type: TypeTabGroup, Tabs: []*Capture{chain(""), nil}},
			want:    ErrNoTabs,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newFormatter().Format(tt.capture)
			if !errors.Is(err, tt.want) {
				t.Errorf("Format() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFormat_Frame(t *testing.T) {
	m := newMeta()
	add(m, "url", "https://developer.mozilla.org/en-US/docs/Web/HTML/Element/title", "tab.url")
	add(m, "title", "<title>: The Document Title element - HTML", "document.title")
	add(m, "site_name", "MDN Web Docs", "meta.property.og:site_name")
	add(m, "description", "The <title> HTML element defines the document's title.", "meta.name.description")
	add(m, "published_time", "2020-01-02T03:04:05Z", "meta.property.article:published_time")
	add(m, "image", "https://developer.mozilla.org/mdn-social-share.png", "meta.property.og:image")
	add(m, "selection", "Selected text", "window.getSelection.text")

	gotTitle, gotURL, body := format(t, chain("", m))
	wantTitle := "<title>: The Document Title element - HTML" + sep + "MDN Web Docs"
	if gotTitle != wantTitle {
		t.Errorf("title = %q, want %q", gotTitle, wantTitle)
	}
	if gotURL != "https://developer.mozilla.org/en-US/docs/Web/HTML/Element/title" {
		t.Errorf("url = %q", gotURL)
	}
	want := "* " + wantTitle + "\n" +
		":PROPERTIES:\n" +
		":DATE_ADDED: [2021-03-04 Thu 05:06]\n" +
		":URL_IMAGE: https://developer.mozilla.org/mdn-social-share.png\n" +
		":END:\n\n" +
		"- URL :: [[https://developer.mozilla.org/en-US/docs/Web/HTML/Element/title]]\n" +
		"- title :: <title>: The Document Title element - HTML\n" +
		"- published_time :: [2020-01-02 Thu 03:04]\u200b 2020-01-02T03:04:05Z\n" +
		"- site_name :: MDN Web Docs\n" +
		"- description :: The <title> HTML element defines the document's title.\n\n" +
		"#+begin_quote\nSelected text\n#+end_quote"
	if body != want {
		t.Errorf("body =\n%s\nwant\n%s", body, want)
	}
}

func TestFormat_FrameFallbackTitle(t *testing.T) {
	m := newMeta()
	add(m, "url", "https://example.com/", "tab.url")

	gotTitle, _, body := format(t, chain("", m))
	if want := "Web Page" + sep + "https://example.com/"; gotTitle != want {
		t.Errorf("title = %q, want %q", gotTitle, want)
	}
	if !strings.HasPrefix(body, "* Web Page"+sep+"[[https://example.com/]]\n") {
		t.Errorf("body = %q", body)
	}
}

func TestFormat_FrameFallbackDate(t *testing.T) {
	gotTitle, gotURL, _ := format(t, chain("", newMeta()))
	if want := "Web Page" + sep + "[2021-03-04 Thu 05:06]"; gotTitle != want {
		t.Errorf("title = %q, want %q", gotTitle, want)
	}
	if gotURL != "" {
		t.Errorf("url = %q, want empty", gotURL)
	}
}

func TestFormat_Subframes(t *testing.T) {
	focused := newMeta()
	add(focused, "url", "https://frame.example.com/embed", "window.location")
	add(focused, "title", "Embedded", "document.title")
	top := newMeta()
	add(top, "url", "https://example.com/", "tab.url")
	add(top, "title", "Top page", "document.title")
	add(top, "referrer", "https://search.example.com/", "document.referrer")

	_, gotURL, body := format(t, chain("", focused, top))
	if gotURL != "https://frame.example.com/embed" {
		t.Errorf("url = %q", gotURL)
	}
	want := "* Embedded\n" + dateAdded + "\n" +
		"- URL :: [[https://frame.example.com/embed]]\n" +
		"- title :: Embedded\n\n" +
		"** Top page\n" + dateAdded + "\n" +
		"- URL :: [[https://example.com/]]\n" +
		"- title :: Top page\n" +
		"- referrer :: [[https://search.example.com/]]"
	if body != want {
		t.Errorf("body =\n%s\nwant\n%s", body, want)
	}
}

func TestFormat_Link(t *testing.T) {
	m := newMeta()
	add(m, "url", "https://example.com/", "tab.url")
	add(m, "title", "Page", "document.title")
	add(m, "linkUrl", "https://example.org/doc", "clickData.linkUrl")
	add(m, "linkText", "Docs", "clickData.linkText")

	gotTitle, gotURL, body := format(t, chain(TargetLink, m))
	if want := "Link: Docs https://example.org/doc"; gotTitle != want {
		t.Errorf("title = %q, want %q", gotTitle, want)
	}
	if gotURL != "https://example.org/doc" {
		t.Errorf("url = %q", gotURL)
	}
	want := "* Link: Docs [[https://example.org/doc]]\n" + dateAdded + "\n" +
		"- Link URL :: [[https://example.org/doc]]\n" +
		"- Link text :: Docs\n\n" +
		"On the page\n\n" +
		"** Page\n" + dateAdded + "\n" +
		"- URL :: [[https://example.com/]]\n" +
		"- title :: Page"
	if body != want {
		t.Errorf("body =\n%s\nwant\n%s", body, want)
	}
}

func TestFormat_LongLinkText(t *testing.T) {
	m := newMeta()
	add(m, "linkUrl", "https://example.org/doc", "clickData.linkUrl")
	add(m, "linkText", "A link text longer than twenty characters", "clickData.linkText")

	gotTitle, _, _ := format(t, chain(TargetLink, m))
	if want := "Link: A link text longer than twenty characters"; gotTitle != want {
		t.Errorf("title = %q, want %q", gotTitle, want)
	}
}

func TestFormat_Image(t *testing.T) {
	m := newMeta()
	add(m, "url", "https://example.com/", "tab.url")
	add(m, "srcUrl", "https://example.com/cat.jpg", "clickData.srcUrl")
	add(m, "imageAlt", "A cat", "element.alt")
	add(m, "selection", "Cute", "clickData.selectionText")

	gotTitle, gotURL, body := format(t, chain(TargetImage, m))
	if gotTitle != "Image: A cat" {
		t.Errorf("title = %q, want %q", gotTitle, "Image: A cat")
	}
	if gotURL != "https://example.com/cat.jpg" {
		t.Errorf("url = %q", gotURL)
	}
	want := "* Image: A cat\n" +
		":PROPERTIES:\n:DATE_ADDED: [2021-03-04 Thu 05:06]\n:URL_IMAGE: https://example.com/cat.jpg\n:END:\n\n" +
		"- image URL :: [[https://example.com/cat.jpg]]\n" +
		"- alt :: A cat\n\n" +
		"#+begin_quote\nCute\n#+end_quote\n\n" +
		"On the page\n\n" +
		"** Cute\n" + dateAdded + "\n" +
		"- URL :: [[https://example.com/]]"
	if body != want {
		t.Errorf("body =\n%s\nwant\n%s", body, want)
	}
}

func TestFormat_ImageMissingFallsBackToFrame(t *testing.T) {
	m := newMeta()
	add(m, "title", "Page", "document.title")
	gotTitle, _, _ := format(t, chain(TargetImage, m))
	if gotTitle != "Page" {
		t.Errorf("title = %q, want %q", gotTitle, "Page")
	}
}

func TestFormat_SelectionFragments(t *testing.T) {
	m := newMeta()
	add(m, "title", "Page", "document.title")
	add(m, "selection", []any{
		map[string]any{"value": "first"},
		map[string]any{"value": "second"},
		map[string]any{"value": ""},
		map[string]any{"value": "third"},
	}, "window.getSelection.range")

	_, _, body := format(t, chain("", m))
	want := "#+begin_quote\nfirst \u2026 second\n\n...\n\nthird\n#+end_quote"
	if !strings.HasSuffix(body, want) {
		t.Errorf("body = %q, want suffix %q", body, want)
	}
}

func TestFormat_Group(t *testing.T) {
	first := newMeta()
	add(first, "url", "https://a.example.com/", "tab.url")
	add(first, "title", "A", "document.title")
	second := newMeta()
	add(second, "url", "https://b.example.com/", "tab.url")
	add(second, "title", "B", "document.title")

	projection, err := newFormatter().Format(&Capture{
		Type:  TypeTabGroup,
		Title: "Reading list",
		Tabs:  []*Capture{chain("", first), chain(""), chain("", second)},
	})
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if projection.Title != "Reading list" {
		t.Errorf("title = %q", projection.Title)
	}
	if projection.URL != "https://a.example.com/" {
		t.Errorf("url = %q", projection.URL)
	}
	if len(projection.Warnings) != 1 || projection.Warnings[0] != "Formatting of 1 tabs failed" {
		t.Errorf("warnings = %q", projection.Warnings)
	}
	want := "* Reading list\n" + dateAdded + "\n" +
		"Formatting of 1 tabs failed\n\n" +
		"** A\n" + dateAdded + "\n" +
		"- URL :: [[https://a.example.com/]]\n" +
		"- title :: A\n\n" +
		"** B\n" + dateAdded + "\n" +
		"- URL :: [[https://b.example.com/]]\n" +
		"- title :: B"
	if got := strings.TrimSpace(projection.Body); got != want {
		t.Errorf("body =\n%s\nwant\n%s", got, want)
	}
}

func TestParseDate(t *testing.T) {
	f := newFormatter()
	date := time.Date(2020, 1, 2, 3, 4, 0, 0, time.UTC)
	tests := []struct {
		name  string
		value any
		want  []any
	}{
		{name: "iso", value: "2020-01-02T03:04Z", want: []any{date, " ", "2020-01-02T03:04Z"}},
		{name: "iso local", value: "2020-01-02T03:04", want: []any{date, " ", "2020-01-02T03:04"}},
		{name: "us", value: "01/02/2020 03:04", want: []any{date, " ", "01/02/2020 03:04"}},
		{name: "milliseconds", value: float64(date.UnixMilli()), want: []any{date, " ", "1577934240000"}},
		{name: "date only", value: "2020-01-02", want: []any{"2020-01-02"}},
		{name: "invalid", value: "2020-13-45T99:99", want: []any{"2020-13-45T99:99"}},
		{name: "nil", value: nil, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.parseDate(tt.value)
			if len(got) != len(tt.want) {
				t.Fatalf("parseDate() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if gt, ok := got[i].(time.Time); ok {
					if !gt.Equal(tt.want[i].(time.Time)) {
						t.Errorf("parseDate()[%d] = %v, want %v", i, gt, tt.want[i])
					}
					continue
				}
				if got[i] != tt.want[i] {
					t.Errorf("parseDate()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
