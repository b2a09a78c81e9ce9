package orgbuf

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func render(state State, elements ...any) string {
	b := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	b.SetState(state)
	b.Push(elements...)
	b.Flush()
	return b.String()
}

func TestBuffer_Escaping(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		elements []any
		want     string
	}{
		{name: "double brackets", elements: []any{"a]]b"}, want: "a]\u200b]b"},
		{name: "link like text", elements: []any{"[[a]]"}, want: "[\u200b[a]\u200b]"},
		{name: "heading like line", elements: []any{"* heading-like"}, want: ",* heading-like"},
		{name: "heading like indented", state: State{TextIndent: 2}, elements: []any{"* item"}, want: "  * item"},
		{name: "bold is not heading", elements: []any{"*bold*"}, want: "*bold*"},
		{name: "keyword", elements: []any{"#+begin_src"}, want: ",#+begin_src"},
		{name: "keyword after indent", state: State{TextIndent: 2}, elements: []any{"#+title"}, want: "  ,#+title"},
		{name: "property like", elements: []any{":PROPERTIES:"}, want: ",:PROPERTIES:"},
		{name: "fixed width", elements: []any{": fixed width"}, want: ",: fixed width"},
		{name: "lone colon", elements: []any{"a\n:"}, want: "a\n,:"},
		{name: "colon inside line", elements: []any{"a: b"}, want: "a: b"},
		{name: "markup is verbatim", elements: []any{Markup("#+begin_quote")}, want: "#+begin_quote"},
		{name: "split text", elements: []any{"[[test]", "] not a link"}, want: "[\u200b[test]\u200b] not a link"},
		{name: "bracket before markup", elements: []any{"Not a link [", Markup("[[x]]")}, want: "Not a link [\u200b[[x]]"},
		{name: "bracket after markup", elements: []any{Markup("[[x]]"), "] tail"}, want: "[[x]]\u200b] tail"},
		{name: "space after markup", elements: []any{Markup("[markup]"), " after markup"}, want: "[markup]\u200b after markup"},
		{name: "text after link", elements: []any{Markup("[[https://a.b][link]]"), "text"}, want: "[[https://a.b][link]]\u200btext"},
		{name: "checkbox after link", elements: []any{Markup("[[https://a.b][link]]"), "[x]"}, want: "[[https://a.b][link]]\u200b[x]"},
		{name: "word after link", elements: []any{Markup("[[https://a.b]]"), WordSeparator, "text"}, want: "[[https://a.b]]\u200b text"},
		{name: "nothing after link", elements: []any{Markup("[[https://a.b]]"), "  "}, want: "[[https://a.b]]"},
		{name: "text after other markup", elements: []any{Markup("::"), " text"}, want: ":: text"},
		{name: "no stray space before markup", elements: []any{"Before markup", Markup("[markup]")}, want: "Before markup[markup]"},
		{name: "tab kept", elements: []any{"a\tb"}, want: "a\tb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := render(tt.state, tt.elements...); got != tt.want {
				t.Errorf("render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuffer_WordSeparator(t *testing.T) {
	tests := []struct {
		name     string
		elements []any
		want     string
	}{
		{name: "text text", elements: []any{"a", WordSeparator, "b"}, want: "a b"},
		{name: "space already present", elements: []any{"a ", WordSeparator, "b"}, want: "a b"},
		{name: "space in next", elements: []any{"a", WordSeparator, " b"}, want: "a b"},
		{name: "markup text", elements: []any{Markup("-"), WordSeparator, "b"}, want: "- b"},
		{name: "text markup", elements: []any{"a", WordSeparator, Markup("::")}, want: "a ::"},
		{name: "markup markup", elements: []any{Markup("a"), WordSeparator, Markup("b")}, want: "a b"},
		{name: "repeated", elements: []any{"a", WordSeparator, WordSeparator, "", "b"}, want: "a b"},
		{name: "ignored at line start", elements: []any{WordSeparator, "a"}, want: "a"},
		{name: "ignored at line end", elements: []any{"a", WordSeparator, StartLine, "b"}, want: "a\nb"},
		{name: "no separator", elements: []any{"a", "b"}, want: "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := render(State{}, tt.elements...); got != tt.want {
				t.Errorf("render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuffer_Lines(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		elements []any
		want     string
	}{
		{name: "separator line", elements: []any{"a", SeparatorLine, "b"}, want: "a\n\nb"},
		{name: "separators collapse", elements: []any{"a", SeparatorLine, StartLine, SeparatorLine, "b"}, want: "a\n\nb"},
		{name: "leading separator", elements: []any{SeparatorLine, "a"}, want: "a"},
		{name: "trailing separator", elements: []any{"a", SeparatorLine}, want: "a"},
		{name: "start lines collapse", elements: []any{"a", StartLine, StartLine, "b"}, want: "a\nb"},
		{name: "empty line in text", elements: []any{"a\n\nb"}, want: "a\n\nb"},
		{name: "blank lines squeezed", elements: []any{"a  \n \n\n  \nb"}, want: "a\n\nb"},
		{name: "trailing spaces", elements: []any{"a   \nb"}, want: "a\nb"},
		{name: "indent", state: State{TextIndent: 2}, elements: []any{"a\nb"}, want: "  a\n  b"},
		{name: "leading spaces capped", elements: []any{"a\n            b"}, want: "a\n        b"},
		{name: "markup after separator", elements: []any{"a", SeparatorLine, Markup("b")}, want: "a\n\nb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := render(tt.state, tt.elements...); got != tt.want {
				t.Errorf("render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuffer_Date(t *testing.T) {
	date := time.Date(2020, 1, 2, 3, 4, 5, 6, time.UTC)
	tests := []struct {
		name     string
		elements []any
		want     string
	}{
		{name: "value", elements: []any{date}, want: "[2020-01-02 Thu 03:04]"},
		{name: "pointer", elements: []any{&date}, want: "[2020-01-02 Thu 03:04]"},
		{name: "with text", elements: []any{date, " original"}, want: "[2020-01-02 Thu 03:04]\u200b original"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := render(State{}, tt.elements...); got != tt.want {
				t.Errorf("render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuffer_UnsupportedElement(t *testing.T) {
	if got := render(State{}, "a", 42, "b"); got != "ab" {
		t.Errorf("render() = %q, want %q", got, "ab")
	}
}
