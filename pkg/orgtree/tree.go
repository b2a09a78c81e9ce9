// Package orgtree builds Org documents from a tree of nodes and renders
// them through an orgbuf.Buffer.
//
// A tree element is one of: nil (skipped), a Node, a slice of elements,
// or anything orgbuf.Buffer.Push accepts (string, orgbuf.Markup,
// orgbuf.Marker, time.Time).
package orgtree

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/dtnitsch/org-remark/pkg/meta"
	"github.com/dtnitsch/org-remark/pkg/orgbuf"
)

// MaxDepth limits nesting of rendered elements.
const MaxDepth = 128

// Re-exported markers for tree builders.
const (
	StartLine     = orgbuf.StartLine
	SeparatorLine = orgbuf.SeparatorLine
	WordSeparator = orgbuf.WordSeparator
)

// Markup is pre-escaped Org text.
type Markup = orgbuf.Markup

// Writer receives rendered elements. *orgbuf.Buffer is the main
// implementation, nodes may wrap it to filter elements of their children.
type Writer interface {
	Push(elements ...any)
	State() orgbuf.State
	SetState(orgbuf.State)
	Logger() *slog.Logger
}

// Node is a tree element that renders itself.
type Node interface {
	Render(w Writer)
}

// ToText renders elements to Org text.
func ToText(logger *slog.Logger, elements ...any) string {
	b := orgbuf.New(logger)
	Walk(b, elements)
	b.Flush()
	return meta.ReplaceSpecial(b.String())
}

// Walk renders one element of any supported kind.
func Walk(w Writer, element any) {
	state := w.State()
	if state.Depth > MaxDepth {
		w.Logger().Error("org tree: recursion limit reached", "element", fmt.Sprintf("%T", element))
		return
	}
	state.Depth++
	w.SetState(state)
	defer func() {
		s := w.State()
		s.Depth--
		w.SetState(s)
	}()

	switch e := element.(type) {
	case nil:
	case Node:
		e.Render(w)
	case []any:
		for _, item := range e {
			Walk(w, item)
		}
	case []string:
		for _, item := range e {
			w.Push(item)
		}
	case string, orgbuf.Markup, orgbuf.Marker, time.Time, *time.Time:
		w.Push(e)
	case fmt.Stringer:
		w.Push(e.String())
	default:
		w.Push(meta.ValueString(e))
	}
}

// Container renders its children in order.
type Container []any

// Render implements Node.
func (c Container) Render(w Writer) {
	for _, child := range c {
		Walk(w, child)
	}
}

// Nobreak keeps its children on a single line: newlines inside strings
// become spaces, line markers become word separators.
type Nobreak []any

var reLineBreak = regexp.MustCompile(`\s*\n\s*`)

type nobreakWriter struct {
	Writer
}

func (w nobreakWriter) Push(elements ...any) {
	for _, element := range elements {
		switch e := element.(type) {
		case string:
			w.Writer.Push(reLineBreak.ReplaceAllString(e, " "))
		case orgbuf.Marker:
			if e == orgbuf.StartLine || e == orgbuf.SeparatorLine {
				w.Logger().Warn("org nobreak: line marker replaced", "marker", e.String())
				e = orgbuf.WordSeparator
			}
			w.Writer.Push(e)
		default:
			w.Writer.Push(element)
		}
	}
}

// Render implements Node.
func (n Nobreak) Render(w Writer) {
	Container(n).Render(nobreakWriter{Writer: w})
}

// StateScope adds HeadingLevel and TextIndent to the formatting state
// while its children are rendered.
type StateScope struct {
	HeadingLevel int
	TextIndent   int
	Children     []any
}

// Render implements Node.
func (s StateScope) Render(w Writer) {
	saved := w.State()
	scoped := saved
	scoped.HeadingLevel += s.HeadingLevel
	scoped.TextIndent += s.TextIndent
	w.SetState(scoped)
	defer func() {
		current := w.State()
		saved.Depth = current.Depth
		w.SetState(saved)
	}()
	Container(s.Children).Render(w)
}

type headingMarker struct{}

func (headingMarker) Render(w Writer) {
	level := w.State().HeadingLevel
	if level < 1 {
		level = 1
	}
	w.Push(orgbuf.Markup(strings.Repeat("*", level)), orgbuf.WordSeparator)
}

// ListItem is a plain list item. The marker defaults to "-".
func ListItem(marker string, children ...any) Container {
	if marker == "" {
		marker = "-"
	}
	indent := len(marker) + 1
	if indent > 8 {
		indent = 8
	}
	return Container{
		orgbuf.StartLine,
		orgbuf.Markup(marker), orgbuf.WordSeparator,
		StateScope{TextIndent: indent, Children: children},
		orgbuf.StartLine,
	}
}

// DefinitionItem is a "- term :: description" list item. Continuation
// lines of the description are indented to the list item body.
func DefinitionItem(term string, children ...any) Container {
	return Container{
		orgbuf.StartLine,
		orgbuf.Markup("-"), orgbuf.WordSeparator,
		Nobreak{strings.TrimSpace(term)},
		orgbuf.WordSeparator, orgbuf.Markup("::"), orgbuf.WordSeparator,
		StateScope{TextIndent: 2, Children: children},
		orgbuf.StartLine,
	}
}

// Property is one entry of a properties drawer.
type Property struct {
	Name   string
	Values []any
}

// Heading is a subtree: a heading line one level deeper than the current
// one, an optional properties drawer and the body.
func Heading(heading any, properties []Property, children ...any) Container {
	body := Container{
		Nobreak{headingMarker{}, heading},
		PropertiesDrawer(properties),
		orgbuf.SeparatorLine,
	}
	body = append(body, children...)
	return Container{
		orgbuf.SeparatorLine,
		StateScope{HeadingLevel: 1, Children: body},
		orgbuf.SeparatorLine,
	}
}

// Drawer renders ":NAME:" ... ":END:". A drawer without children renders
// nothing.
func Drawer(name string, children ...any) Container {
	if len(children) == 0 {
		return nil
	}
	out := Container{
		orgbuf.StartLine,
		orgbuf.Markup(":" + name + ":"),
		orgbuf.StartLine,
	}
	out = append(out, children...)
	return append(out,
		orgbuf.StartLine,
		orgbuf.Markup(":END:"),
		orgbuf.StartLine,
	)
}

// PropertiesDrawer renders properties. Repeated names get the "+" suffix
// so Org accumulates their values.
func PropertiesDrawer(properties []Property) Container {
	if len(properties) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(properties))
	var children []any
	for _, p := range properties {
		plus := ""
		if seen[p.Name] {
			plus = "+"
		}
		seen[p.Name] = true
		children = append(children,
			orgbuf.Markup(":"), Nobreak{p.Name}, orgbuf.Markup(plus+":"),
			orgbuf.WordSeparator,
			Nobreak(p.Values),
			orgbuf.StartLine,
		)
	}
	return Drawer("PROPERTIES", children...)
}

// Quote is a "#+begin_quote" block.
func Quote(children ...any) Container {
	out := Container{
		orgbuf.StartLine,
		orgbuf.Markup("#+begin_quote"),
		orgbuf.StartLine,
	}
	out = append(out, children...)
	return append(out,
		orgbuf.StartLine,
		orgbuf.Markup("#+end_quote"),
		orgbuf.StartLine,
	)
}
