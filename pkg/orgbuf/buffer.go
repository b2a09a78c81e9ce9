// Package orgbuf serializes a stream of text, markup and line markers into
// Org mode text. Plain text is escaped so that it can not be read as Org
// syntax, markup is emitted verbatim.
package orgbuf

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Markup is text that already is valid Org syntax and must not be escaped.
type Markup string

// Marker is a structural element of the stream.
type Marker int

const (
	// StartLine finishes the current line if it is not empty.
	StartLine Marker = iota + 1
	// SeparatorLine requests an empty line before the next content.
	SeparatorLine
	// WordSeparator puts a space between its neighbours unless one of
	// them already has white space at the boundary.
	WordSeparator
)

func (m Marker) String() string {
	switch m {
	case StartLine:
		return "StartLine"
	case SeparatorLine:
		return "SeparatorLine"
	case WordSeparator:
		return "WordSeparator"
	}
	return fmt.Sprintf("Marker(%d)", int(m))
}

// State is the formatting context shared by nested tree nodes.
type State struct {
	HeadingLevel int
	TextIndent   int
	Depth        int
}

// ZeroWidthSpace breaks character sequences that Org would treat as links.
const ZeroWidthSpace = "\u200b"

type outputState int

const (
	stateInitial outputState = iota
	stateText
	stateMarkup
	stateTextWordSeparator
	stateMarkupWordSeparator
	stateStartOfLine
	stateSeparatorLine
)

var stateNames = [...]string{
	stateInitial:             "initial",
	stateText:                "text",
	stateMarkup:              "markup",
	stateTextWordSeparator:   "textWordSeparator",
	stateMarkupWordSeparator: "markupWordSeparator",
	stateStartOfLine:         "startOfLine",
	stateSeparatorLine:       "separatorLine",
}

func (s outputState) String() string { return stateNames[s] }

var (
	reNewlines       = regexp.MustCompile(`[^\S\n]*(\n?)\s*\n`)
	reLeadingSpace   = regexp.MustCompile(`^([^\n\S]{0,8})[^\n\S]*`)
	reNeedsEscape    = regexp.MustCompile(`^(\s*)(#\+|:)`)
	reHeadingLike    = regexp.MustCompile(`^\*+\s`)
	reTrailingSpaces = regexp.MustCompile(`\s*$`)
)

// Buffer accumulates output lines. The zero value is not usable, call New.
type Buffer struct {
	out        []string
	line       []string
	unsafeText []string
	state      State
	output     outputState
	logger     *slog.Logger
}

// New creates an empty buffer.
func New(logger *slog.Logger) *Buffer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Buffer{logger: logger}
}

// State returns the current formatting context.
func (b *Buffer) State() State { return b.state }

// SetState replaces the formatting context.
func (b *Buffer) SetState(s State) { b.state = s }

// Logger returns the buffer logger.
func (b *Buffer) Logger() *slog.Logger { return b.logger }

// Lines returns finished lines.
func (b *Buffer) Lines() []string {
	return append([]string(nil), b.out...)
}

// String joins finished lines. Call Flush first to get the pending line.
func (b *Buffer) String() string {
	return strings.Join(b.out, "\n")
}

// Push adds elements to the stream. Accepted elements are string, Markup,
// Marker and time.Time. Strings are split into lines.
func (b *Buffer) Push(elements ...any) {
	for _, element := range elements {
		switch e := element.(type) {
		case string:
			normalized := reNewlines.ReplaceAllString(e, "$1\n")
			for i, line := range strings.Split(normalized, "\n") {
				if i > 0 {
					b.pushSingle(StartLine)
				}
				b.pushSingle(line)
			}
		case time.Time:
			b.pushSingle(Markup(FormatDate(e)))
		case *time.Time:
			if e != nil {
				b.pushSingle(Markup(FormatDate(*e)))
			}
		default:
			b.pushSingle(element)
		}
	}
}

// Flush finishes the pending line.
func (b *Buffer) Flush() {
	b.pushSingle(StartLine)
}

func (b *Buffer) pushSingle(element any) {
	next, ok := b.transition(element)
	if !ok {
		b.logger.Debug("org buffer: transition ignored",
			"state", b.output.String(), "element", fmt.Sprintf("%v", element))
		return
	}
	b.output = next
}

func (b *Buffer) indent() string {
	return strings.Repeat(" ", b.state.TextIndent)
}

func (b *Buffer) transition(element any) (outputState, bool) {
	switch e := element.(type) {
	case string:
		return b.pushText(e)
	case Markup:
		return b.pushMarkup(string(e))
	case Marker:
		return b.pushMarker(e)
	}
	b.logger.Warn("org buffer: unsupported element", "type", fmt.Sprintf("%T", element))
	return b.output, false
}

func (b *Buffer) pushText(text string) (outputState, bool) {
	switch b.output {
	case stateInitial:
		if text == "" {
			return stateInitial, true
		}
		b.pushStartOfLineText(text)
		return stateText, true
	case stateText:
		if text != "" {
			b.unsafeText = append(b.unsafeText, text)
		}
		return stateText, true
	case stateMarkup:
		if text == "" {
			return stateMarkup, true
		}
		b.unsafeText = append(b.unsafeText, text)
		return stateText, true
	case stateTextWordSeparator:
		if text == "" {
			return stateTextWordSeparator, true
		}
		if !startsWithSpace(text) && !endsWithSpace(last(b.unsafeText)) {
			b.unsafeText = append(b.unsafeText, " ")
		}
		b.unsafeText = append(b.unsafeText, text)
		return stateText, true
	case stateMarkupWordSeparator:
		if text == "" {
			return stateMarkupWordSeparator, true
		}
		if !startsWithSpace(text) && !endsWithSpace(last(b.line)) {
			b.unsafeText = append(b.unsafeText, " ")
		}
		b.unsafeText = append(b.unsafeText, text)
		return stateText, true
	case stateStartOfLine:
		if text == "" {
			return stateSeparatorLine, true
		}
		b.pushStartOfLineText(text)
		return stateText, true
	case stateSeparatorLine:
		if text == "" {
			return stateSeparatorLine, true
		}
		b.line = append(b.line, "")
		b.flushLine()
		b.pushStartOfLineText(text)
		return stateText, true
	}
	return b.output, false
}

func (b *Buffer) pushMarkup(markup string) (outputState, bool) {
	switch b.output {
	case stateInitial, stateStartOfLine:
		b.line = append(b.line, b.indent(), markup)
	case stateText:
		b.flushUnsafeText(markup)
		b.line = append(b.line, markup)
	case stateMarkup:
		b.line = append(b.line, markup)
	case stateTextWordSeparator:
		if !startsWithSpace(markup) && !endsWithSpace(last(b.unsafeText)) {
			b.unsafeText = append(b.unsafeText, " ")
		}
		b.flushUnsafeText(markup)
		b.line = append(b.line, markup)
	case stateMarkupWordSeparator:
		if !startsWithSpace(markup) && !endsWithSpace(last(b.line)) {
			b.line = append(b.line, " ")
		}
		b.line = append(b.line, markup)
	case stateSeparatorLine:
		b.line = append(b.line, "")
		b.flushLine()
		b.line = append(b.line, b.indent(), markup)
	default:
		return b.output, false
	}
	return stateMarkup, true
}

func (b *Buffer) pushMarker(marker Marker) (outputState, bool) {
	lineEnd := stateStartOfLine
	if marker == SeparatorLine {
		lineEnd = stateSeparatorLine
	}
	switch b.output {
	case stateInitial:
		if marker == WordSeparator {
			return b.output, false
		}
		return stateInitial, true
	case stateText:
		if marker == WordSeparator {
			return stateTextWordSeparator, true
		}
		b.flushUnsafeText("")
		b.flushLine()
		return lineEnd, true
	case stateTextWordSeparator:
		if marker == WordSeparator {
			return stateTextWordSeparator, true
		}
		b.flushUnsafeText("")
		b.flushLine()
		return lineEnd, true
	case stateMarkup, stateMarkupWordSeparator:
		if marker == WordSeparator {
			return stateMarkupWordSeparator, true
		}
		b.flushLine()
		return lineEnd, true
	case stateStartOfLine:
		if marker == WordSeparator {
			return b.output, false
		}
		return lineEnd, true
	case stateSeparatorLine:
		if marker == WordSeparator {
			return b.output, false
		}
		return stateSeparatorLine, true
	}
	return b.output, false
}

func (b *Buffer) pushStartOfLineText(text string) {
	b.unsafeText = append(b.unsafeText, b.indent(), reLeadingSpace.ReplaceAllString(text, "$1"))
}

// flushUnsafeText escapes pending text and moves it to the line. next is
// the markup that follows on the same line, empty at the end of a line.
func (b *Buffer) flushUnsafeText(next string) {
	text := strings.Join(b.unsafeText, "")
	b.unsafeText = b.unsafeText[:0]
	if next == "" {
		text = reTrailingSpaces.ReplaceAllString(text, "")
	}
	if len(b.line) == 0 {
		if reNeedsEscape.MatchString(text) {
			text = reNeedsEscape.ReplaceAllString(text, "$1,$2")
		} else if b.state.TextIndent == 0 && reHeadingLike.MatchString(text) {
			text = "," + text
		}
	} else if text != "" && strings.HasSuffix(last(b.line), "]") {
		text = ZeroWidthSpace + text
	}
	if strings.HasPrefix(next, "[") && strings.HasSuffix(text, "[") {
		text += ZeroWidthSpace
	} else if strings.HasPrefix(next, "]") && strings.HasSuffix(text, "]") {
		text += ZeroWidthSpace
	}
	b.line = append(b.line, EscapeBrackets(text))
}

func (b *Buffer) flushLine() {
	b.out = append(b.out, strings.Join(b.line, ""))
	b.line = b.line[:0]
}

// EscapeBrackets splits "[[" and "]]" with a zero width space.
func EscapeBrackets(text string) string {
	text = strings.ReplaceAll(text, "[[", "["+ZeroWidthSpace+"[")
	return strings.ReplaceAll(text, "]]", "]"+ZeroWidthSpace+"]")
}

// FormatDate returns an inactive Org timestamp in the local time zone of t.
func FormatDate(t time.Time) string {
	return t.Format("[2006-01-02 Mon 15:04]")
}

func last(items []string) string {
	if len(items) == 0 {
		return ""
	}
	return items[len(items)-1]
}

func startsWithSpace(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return s != "" && unicode.IsSpace(r)
}

func endsWithSpace(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return s != "" && unicode.IsSpace(r)
}
