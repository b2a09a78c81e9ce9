// Package capture merges everything known about one frame of a page into
// a meta.Meta: tab and frame properties, context menu click data and the
// results of the page extractors.
package capture

import (
	"fmt"
	"log/slog"

	"github.com/dtnitsch/org-remark/models"
	"github.com/dtnitsch/org-remark/pkg/meta"
	"github.com/dtnitsch/org-remark/pkg/schemaorg"
)

// Extractor result fields of FrameInfo.Scripts in merge order.
const (
	FieldRelations = "relations"
	FieldMeta      = "meta"
	FieldSelection = "selection"
	FieldImage     = "image"
	FieldLink      = "link"
	FieldMicrodata = "microdata"
)

var scriptFields = []string{FieldRelations, FieldMeta, FieldSelection, FieldImage, FieldLink, FieldMicrodata}

// Tab describes the browser tab or the fetched document.
type Tab struct {
	URL        string `json:"url,omitempty"`
	Title      string `json:"title,omitempty"`
	FavIconURL string `json:"favIconUrl,omitempty"`
	GroupTitle string `json:"groupTitle,omitempty"`
}

// Frame identifies the frame of the tab. FrameID 0 is the top level page.
type Frame struct {
	FrameID   int    `json:"frameId"`
	URL       string `json:"url,omitempty"`
	Synthetic bool   `json:"synthetic,omitempty"`
}

// ClickData is the context the capture was requested in.
type ClickData struct {
	SelectionText string `json:"selectionText,omitempty"`
	LinkText      string `json:"linkText,omitempty"`
	LinkURL       string `json:"linkUrl,omitempty"`
	FrameURL      string `json:"frameUrl,omitempty"`
	PageURL       string `json:"pageUrl,omitempty"`
	MediaType     string `json:"mediaType,omitempty"`
	SrcURL        string `json:"srcUrl,omitempty"`
	// CaptureObject is the capture target: frame, link or image.
	CaptureObject string `json:"captureObject,omitempty"`
}

// Entry is one descriptor reported by an extractor.
type Entry struct {
	Property string         `json:"property"`
	Value    any            `json:"value,omitempty"`
	Key      string         `json:"key,omitempty"`
	Error    *meta.Error    `json:"error,omitempty"`
	Attrs    map[string]any `json:"attrs,omitempty"`
}

// ScriptResult is the outcome of one extractor.
type ScriptResult struct {
	Result []Entry `json:"result,omitempty"`
	Error  any     `json:"error,omitempty"`
}

// Summary holds frame wide extraction flags.
type Summary struct {
	ScriptsForbidden bool `json:"scriptsForbidden,omitempty"`
}

// FrameInfo is everything collected for a frame before merging.
type FrameInfo struct {
	Tab       *Tab                     `json:"tab,omitempty"`
	Frame     *Frame                   `json:"frame,omitempty"`
	ClickData *ClickData               `json:"clickData,omitempty"`
	Summary   *Summary                 `json:"summary,omitempty"`
	Scripts   map[string]*ScriptResult `json:"scripts,omitempty"`
}

// Merger builds a Meta from FrameInfo.
type Merger struct {
	logger     *slog.Logger
	limits     models.Limits
	sanitizers *meta.SanitizerTable
	unifier    *schemaorg.Unifier
	cleanups   []meta.Cleanup
}

// NewMerger creates a Merger with the limits and locale of cfg.
func NewMerger(logger *slog.Logger, cfg *models.Config) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = models.DefaultConfig()
	}
	return &Merger{
		logger:     logger,
		limits:     cfg.Limits,
		sanitizers: meta.DefaultSanitizers(),
		unifier:    schemaorg.NewUnifier(logger, cfg.Locale),
		cleanups:   meta.DefaultCleanups(),
	}
}

// NewMeta returns an empty Meta with the settings of the merger.
func (mg *Merger) NewMeta() *meta.Meta {
	return meta.New(meta.WithLogger(mg.logger), meta.WithLimits(mg.limits), meta.WithSanitizers(mg.sanitizers))
}

// Merge combines extractor results, tab, frame and click data, then the
// schema.org main entity, and finally runs the cleanup passes. A failing
// step is logged and the rest still run.
func (mg *Merger) Merge(info *FrameInfo) *meta.Meta {
	m := mg.NewMeta()
	if info == nil {
		return m
	}

	if info.Summary != nil && info.Summary.ScriptsForbidden {
		m.AddDescriptor("error", &meta.Descriptor{
			Value: map[string]any{"message": "Content scripts are forbidden in a privileged frame"},
			Key:   "content_script",
		})
	} else {
		for _, field := range scriptFields {
			mg.step(m, "content_script."+field, func() { mg.mergeScript(info, field, m) })
		}
	}

	mg.step(m, "tab", func() { mergeTab(info, m) })
	mg.step(m, "frame", func() { mergeFrame(info, m) })
	mg.step(m, "clickData", func() { mergeClickData(info, m) })
	mg.step(m, "schema_org", func() { mg.unifier.MergeSchemaOrg(m) })

	meta.RunCleanups(m, mg.cleanups)
	return m
}

func (mg *Merger) step(m *meta.Meta, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			mg.logger.Error("capture: merge step failed, continue", "step", name, "panic", r)
		}
	}()
	fn()
}

// mergeScript adds extractor entries. An entry without a property stops
// the rest of that extractor's result.
func (mg *Merger) mergeScript(info *FrameInfo, field string, m *meta.Meta) {
	result := info.Scripts[field]
	if result == nil {
		return
	}
	key := "content_script." + field
	if result.Error != nil {
		m.AddDescriptor("error", &meta.Descriptor{Value: errorValue(result.Error), Key: key})
	}
	for _, entry := range result.Result {
		if entry.Property == "" {
			mg.logger.Warn("capture: unspecified property", "field", field, "key", entry.Key)
			m.AddDescriptor("error", &meta.Descriptor{Value: "Unspecified property", Key: key})
			return
		}
		m.AddDescriptor(entry.Property, &meta.Descriptor{
			Value: entry.Value,
			Key:   entry.Key,
			Error: entry.Error,
			Attrs: entry.Attrs,
		})
	}
}

func errorValue(err any) any {
	switch e := err.(type) {
	case error:
		return map[string]any{"name": "Error", "message": e.Error()}
	case string, map[string]any:
		return e
	}
	return fmt.Sprint(err)
}

func addString(m *meta.Meta, property, value, key string) {
	if value == "" {
		return
	}
	m.AddNonEmpty(property, &meta.Descriptor{Value: value, Key: key})
}

func mergeTab(info *FrameInfo, m *meta.Meta) {
	tab := info.Tab
	if tab == nil {
		return
	}
	addString(m, "url", tab.URL, "tab.url")
	addString(m, "title", tab.Title, "tab.title")
	addString(m, "favicon", tab.FavIconURL, "tab.favicon")
	addString(m, "tabGroupTitle", tab.GroupTitle, "tab.groupTitle")
}

func mergeFrame(info *FrameInfo, m *meta.Meta) {
	if info.Frame != nil && !info.Frame.Synthetic {
		addString(m, "url", info.Frame.URL, "frame.url")
	}
}

func mergeClickData(info *FrameInfo, m *meta.Meta) {
	click := info.ClickData
	if click == nil {
		return
	}
	addString(m, "selection", click.SelectionText, "clickData.selectionText")
	addString(m, "linkText", click.LinkText, "clickData.linkText")
	addString(m, "linkUrl", click.LinkURL, "clickData.linkUrl")
	addString(m, "url", click.FrameURL, "clickData.frameUrl")
	if info.Frame == nil || info.Frame.FrameID == 0 {
		addString(m, "url", click.PageURL, "clickData.pageUrl")
	}
	addString(m, "mediaType", click.MediaType, "clickData.mediaType")
	srcProperty := "srcUrl"
	if click.CaptureObject == "frame" || click.CaptureObject == "link" {
		srcProperty = "url"
	}
	addString(m, srcProperty, click.SrcURL, "clickData.srcUrl")
	addString(m, "target", click.CaptureObject, "clickData.captureObject")
}

// MergeChain merges the frames of one tab, the focused frame first.
func (mg *Merger) MergeChain(frames []*FrameInfo) []*meta.Meta {
	chain := make([]*meta.Meta, 0, len(frames))
	for _, info := range frames {
		chain = append(chain, mg.Merge(info))
	}
	return chain
}
