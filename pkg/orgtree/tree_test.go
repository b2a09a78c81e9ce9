package orgtree

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/dtnitsch/org-remark/pkg/meta"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func toText(elements ...any) string {
	return strings.TrimSpace(ToText(testLogger(), elements...))
}

func TestToText_Simple(t *testing.T) {
	tests := []struct {
		name    string
		element any
		want    string
	}{
		{name: "link like text", element: "[[a]]", want: "[\u200b[a]\u200b]"},
		{name: "bracket then text", element: []any{"[test]", " after bracket"}, want: "[test] after bracket"},
		{name: "text then bracket", element: []any{"before bracket ", "[test]"}, want: "before bracket [test]"},
		{name: "split link", element: []any{"[[test]", "] not a link"}, want: "[\u200b[test]\u200b] not a link"},
		{name: "split link start", element: []any{"Not a link [", "[test]]"}, want: "Not a link [\u200b[test]\u200b]"},
		{name: "markup then text", element: []any{Markup("[markup]"), " after markup"}, want: "[markup]\u200b after markup"},
		{name: "text then markup", element: []any{"Before markup", Markup("[markup]")}, want: "Before markup[markup]"},
		{name: "link", element: Link{Href: "https://h-o.st/pa-th.html"}, want: "[[https://h-o.st/pa-th.html]]"},
		{
			name:    "link with description",
			element: Link{Href: "https://ho.st/page#hash", Description: []any{"Description"}},
			want:    "[[https://ho.st/page#hash][Description]]",
		},
		{
			name:    "shortened link",
			element: Link{Href: "ftp://te.st/long/path/to/the/file.txt", LengthLimit: 20},
			want:    "[[ftp://te.st/long/path/to/the/file.txt][ftp://te.st/\u2026ile.txt]]",
		},
		{
			name:    "link from descriptor",
			element: Link{Descriptor: &meta.Descriptor{Value: "https://ho.st/"}},
			want:    "[[https://ho.st/]]",
		},
		{
			name:    "descriptor with error",
			element: Link{Descriptor: &meta.Descriptor{Value: "javascript:", Error: meta.NewError(meta.ErrForbiddenScheme)}},
			want:    "(URL schema not allowed!) javascript:",
		},
		{
			name:    "invalid URL",
			element: Link{Href: "not a url", Description: []any{"text"}},
			want:    "(!) not a url text",
		},
		{name: "no href", element: Link{Description: []any{"only text"}}, want: "only text"},
		{name: "number", element: 42, want: "42"},
		{name: "nil", element: nil, want: ""},
		{name: "strings", element: []string{"a", "b"}, want: "ab"},
		{name: "quote", element: Quote("quoted\ntext"), want: "#+begin_quote\nquoted\ntext\n#+end_quote"},
		{name: "nobreak", element: Nobreak{"a\n  b", StartLine, "c"}, want: "a b c"},
		{name: "empty drawer", element: Drawer("LOGBOOK"), want: ""},
		{name: "drawer", element: Drawer("NOTES", "note"), want: ":NOTES:\nnote\n:END:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := toText(tt.element); got != tt.want {
				t.Errorf("ToText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHeading(t *testing.T) {
	got := toText(Heading("Header", nil, "Some text"))
	want := "* Header\n\nSome text"
	if got != want {
		t.Errorf("ToText() = %q, want %q", got, want)
	}
}

func TestHeading_Nested(t *testing.T) {
	tree := Heading("Chapter", nil,
		"Introduction",
		Heading("Section", nil, "Paragraph\ntext"),
	)
	want := "* Chapter\n\nIntroduction\n\n** Section\n\nParagraph\ntext"
	if got := toText(tree); got != want {
		t.Errorf("ToText() = %q, want %q", got, want)
	}
}

func TestHeading_MultilineTitle(t *testing.T) {
	got := toText(Heading("Long\nheading", nil))
	if got != "* Long heading" {
		t.Errorf("ToText() = %q, want %q", got, "* Long heading")
	}
}

func TestDefinitionItem(t *testing.T) {
	tests := []struct {
		name string
		term string
	}{
		{name: "short", term: "an"},
		{name: "long", term: "an\n\n  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := Heading("Head", nil,
				DefinitionItem(tt.term, "explanation   \n    \nof\nthe term"),
			)
			want := "* Head\n\n- an :: explanation\n\n  of\n  the term"
			if got := toText(tree); got != want {
				t.Errorf("ToText() = %q, want %q", got, want)
			}
		})
	}
}

func TestDefinitionItem_TermOnOneLine(t *testing.T) {
	tree := Heading("Head", nil,
		DefinitionItem("something\nreally\n\n  long", "explanation   \n    \nof\nthe term"),
	)
	want := "* Head\n\n- something really long :: explanation\n\n  of\n  the term"
	if got := toText(tree); got != want {
		t.Errorf("ToText() = %q, want %q", got, want)
	}
}

func TestHeading_Properties(t *testing.T) {
	properties := []Property{
		{Name: "IMAGE_URL", Values: []any{"http://ho.st/img1.png"}},
		{Name: "IMAGE_URL", Values: []any{"http://te.st/img2.jpg"}},
		{Name: "CUSTOM_ID", Values: []any{"test_heading"}},
	}
	got := toText(Heading("Head", properties, "Some text."))
	want := `* Head
:PROPERTIES:
:IMAGE_URL: http://ho.st/img1.png
:IMAGE_URL+: http://te.st/img2.jpg
:CUSTOM_ID: test_heading
:END:

Some text.`
	if got != want {
		t.Errorf("ToText() = %q, want %q", got, want)
	}
}

func TestHeading_DateProperty(t *testing.T) {
	added := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	got := toText(Heading("Head", []Property{{Name: "DATE_ADDED", Values: []any{added}}}))
	want := "* Head\n:PROPERTIES:\n:DATE_ADDED: [2020-01-02 Thu 03:04]\n:END:"
	if got != want {
		t.Errorf("ToText() = %q, want %q", got, want)
	}
}

func TestHeading_WithLink(t *testing.T) {
	tree := Heading("Head", nil,
		DefinitionItem("URL", Link{Href: "http://te.st/dir?b-=&a=-"}),
	)
	want := "* Head\n\n- URL :: [[http://te.st/dir?b%2D=&a=%2D][http://te.st/dir?b-=&a=-]]"
	if got := toText(tree); got != want {
		t.Errorf("ToText() = %q, want %q", got, want)
	}
}

func TestToText_Date(t *testing.T) {
	got := toText(time.Date(2020, 1, 2, 3, 4, 5, 6, time.UTC))
	if got != "[2020-01-02 Thu 03:04]" {
		t.Errorf("ToText() = %q", got)
	}
}

func TestListItem_Nested(t *testing.T) {
	got := ToText(testLogger(),
		ListItem("+",
			"First", StartLine,
			ListItem("", "Nested 1"),
			ListItem("", "Nested 2"),
		),
		ListItem("+", "Second"),
	)
	want := "+ First\n  - Nested 1\n  - Nested 2\n+ Second"
	if got != want {
		t.Errorf("ToText() = %q, want %q", got, want)
	}
}

type selfNesting struct{}

func (n selfNesting) Render(w Writer) {
	w.Push("x")
	Walk(w, n)
}

func TestWalk_RecursionLimit(t *testing.T) {
	got := toText(selfNesting{})
	if want := strings.Repeat("x", MaxDepth); got != want {
		t.Errorf("ToText() length = %d, want %d", len(got), len(want))
	}
}

func TestToText_ReplacesSpecialCharacters(t *testing.T) {
	if got := toText("a\x01b"); got != "a\ufffdb" {
		t.Errorf("ToText() = %q, want %q", got, "a\ufffdb")
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name    string
		element any
		want    string
	}{
		{name: "text", element: []any{"Image: ", "alt\ntext"}, want: "Image: alt text"},
		{name: "link", element: []any{"Link:", WordSeparator, Link{Href: "http://te.st/%D0%B0"}}, want: "Link: http://te.st/\u0430"},
		{name: "link description", element: Link{Href: "http://te.st/", Description: []any{"desc"}}, want: "desc"},
		{name: "markup", element: Container{Markup("a"), StartLine, "b"}, want: "a b"},
		{name: "date", element: []any{"Web Page", time.Date(2020, 1, 2, 3, 4, 0, 0, time.UTC)}, want: "Web Page[2020-01-02 Thu 03:04]"},
		{name: "no-break space kept", element: "a\u00a0\u2014 b", want: "a\u00a0\u2014 b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlainText(tt.element); got != tt.want {
				t.Errorf("PlainText() = %q, want %q", got, tt.want)
			}
		})
	}
}
