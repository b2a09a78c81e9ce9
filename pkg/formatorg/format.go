// Package formatorg assembles Org notes from merged capture metadata.
//
// A capture is either a chain of frames of one tab (the focused frame
// first, the top level page last) or a group of such chains. Every frame
// becomes a heading with definition items for the extracted properties.
// Frames carrying a schema.org entity registered with RegisterEntity are
// formatted by the entity specific function.
package formatorg

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dtnitsch/org-remark/models"
	"github.com/dtnitsch/org-remark/pkg/meta"
	"github.com/dtnitsch/org-remark/pkg/orgtree"
	"github.com/dtnitsch/org-remark/pkg/schemaorg"
	"github.com/dtnitsch/org-remark/pkg/title"
)

// Capture object types.
const (
	TypeTabFrameChain = "TabFrameChain"
	TypeTabGroup      = "TabGroup"
)

// Capture targets.
const (
	TargetFrame = "frame"
	TargetLink  = "link"
	TargetImage = "image"
)

// FormatName is the projection format produced by Format.
const FormatName = "org"

var (
	ErrUnsupportedType = errors.New("unsupported capture type")
	ErrEmptyCapture    = errors.New("capture has no frames")
	ErrNoTabs          = errors.New("no tab of the group is formatted")
)

// Capture is the input of Format. Frames and Target are used by a
// TabFrameChain, Title and Tabs by a TabGroup.
type Capture struct {
	Type   string
	Target string
	Frames []*meta.Meta

	Title string
	Tabs  []*Capture
}

// Frame is an assembled frame subtree.
type Frame struct {
	// Title is a tree element, use orgtree.PlainText for a string.
	Title any
	URL   string
	Tree  orgtree.Container
}

// FrameOptions control assembly of a single frame.
type FrameOptions struct {
	BaseProperties    []orgtree.Property
	AddReferrer       bool
	SuppressSelection bool
	Target            string
	// Body is appended after the frame's own items, e.g. subframes.
	Body []any
}

// EntityFormatter assembles a frame whose page has a main entity.
type EntityFormatter func(f *Formatter, entity, m *meta.Meta, opts FrameOptions) Frame

// Options configure a Formatter.
type Options struct {
	Logger *slog.Logger
	// Now returns the capture time, time.Now when nil.
	Now func() time.Time
	// Location is the time zone of rendered dates, time.Local when nil.
	Location *time.Location
}

// Formatter converts captures to Org projections.
type Formatter struct {
	logger   *slog.Logger
	now      func() time.Time
	location *time.Location
	entities map[string]EntityFormatter
}

// New creates a Formatter with the Product entity formatter registered.
func New(opts Options) *Formatter {
	f := &Formatter{
		logger:   opts.Logger,
		now:      opts.Now,
		location: opts.Location,
		entities: make(map[string]EntityFormatter),
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	if f.now == nil {
		f.now = time.Now
	}
	if f.location == nil {
		f.location = time.Local
	}
	f.RegisterEntity(schemaorg.EntityProduct, FormatProductFrame)
	return f
}

// RegisterEntity sets the formatter for frames with an entity of type typ.
func (f *Formatter) RegisterEntity(typ string, fn EntityFormatter) {
	f.entities[typ] = fn
}

// Format renders a capture. Partial failures, e.g. tabs of a group that
// could not be formatted, are reported in the Warnings of the result.
func (f *Formatter) Format(c *Capture) (*models.Projection, error) {
	if c == nil {
		return nil, ErrEmptyCapture
	}
	var (
		frame    Frame
		warnings []string
		err      error
	)
	switch c.Type {
	case TypeTabFrameChain:
		frame, err = f.formatChain(c)
	case TypeTabGroup:
		frame, warnings, err = f.formatGroup(c)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, c.Type)
	}
	if err != nil {
		return nil, err
	}
	return &models.Projection{
		Format:   FormatName,
		URL:      frame.URL,
		Title:    orgtree.PlainText(frame.Title),
		Body:     orgtree.ToText(f.logger, frame.Tree),
		Warnings: warnings,
	}, nil
}

func (f *Formatter) baseProperties() []orgtree.Property {
	return []orgtree.Property{{Name: "DATE_ADDED", Values: []any{f.now().In(f.location)}}}
}

// formatChain assembles a TabFrameChain. Link and image targets get a
// heading of their own with the frames nested below, otherwise the
// focused frame is the heading and the rest of the chain is nested.
func (f *Formatter) formatChain(c *Capture) (Frame, error) {
	if len(c.Frames) == 0 || c.Frames[0] == nil {
		return Frame{}, ErrEmptyCapture
	}
	base := f.baseProperties()
	switch c.Target {
	case TargetImage:
		if frame, ok := f.formatImage(c.Frames, c.Target, base); ok {
			return frame, nil
		}
	case TargetLink:
		if frame, ok := f.formatLink(c.Frames, c.Target, base); ok {
			return frame, nil
		}
	}

	subframes := c.Frames[1:]
	var body []any
	for i, m := range subframes {
		body = append(body, f.FormatFrame(m, FrameOptions{
			BaseProperties: base,
			AddReferrer:    i == len(subframes)-1,
			Target:         c.Target,
		}).Tree)
	}
	return f.FormatFrame(c.Frames[0], FrameOptions{
		BaseProperties: base,
		AddReferrer:    len(subframes) == 0,
		Target:         c.Target,
		Body:           body,
	}), nil
}

// formatGroup nests every tab under one heading. A tab that fails is
// skipped with a warning, the group fails only when no tab succeeds.
func (f *Formatter) formatGroup(c *Capture) (Frame, []string, error) {
	var (
		tabs   []any
		url    string
		failed int
	)
	for i, tab := range c.Tabs {
		frame, err := f.formatTab(tab)
		if err != nil {
			f.logger.Warn("formatorg: tab skipped", "index", i, "error", err)
			failed++
			continue
		}
		if url == "" {
			url = frame.URL
		}
		tabs = append(tabs, frame.Tree)
	}
	if len(tabs) == 0 {
		return Frame{}, nil, fmt.Errorf("%w: %d tabs failed", ErrNoTabs, failed)
	}

	var (
		warnings []string
		body     []any
	)
	if failed > 0 {
		warning := fmt.Sprintf("Formatting of %d tabs failed", failed)
		warnings = append(warnings, warning)
		body = append(body, warning, orgtree.SeparatorLine)
	}
	body = append(body, tabs...)

	var heading any = title.EnsureSingleLine(c.Title)
	if c.Title == "" {
		heading = []any{fmt.Sprintf("Tab group (%d)", len(tabs)), title.Separator, f.now().In(f.location)}
	}
	return Frame{
		Title: heading,
		URL:   url,
		Tree:  orgtree.Heading(heading, f.baseProperties(), body...),
	}, warnings, nil
}

func (f *Formatter) formatTab(tab *Capture) (frame Frame, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("formatorg: tab formatter panic: %v", r)
		}
	}()
	if tab == nil {
		return Frame{}, ErrEmptyCapture
	}
	if tab.Type != "" && tab.Type != TypeTabFrameChain {
		return Frame{}, fmt.Errorf("%w: %q in a group", ErrUnsupportedType, tab.Type)
	}
	return f.formatChain(tab)
}
