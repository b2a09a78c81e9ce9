package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"github.com/dtnitsch/org-remark/models"
	capturepkg "github.com/dtnitsch/org-remark/pkg/capture"
	"github.com/dtnitsch/org-remark/pkg/extract"
	"github.com/dtnitsch/org-remark/pkg/fetcher"
	"github.com/dtnitsch/org-remark/pkg/formatorg"
)

var ErrNoSource = errors.New("either --html or --url is required")

// Request describes one tab to capture.
type Request struct {
	// URL is the page address. With HTMLPath it is only the base URL of
	// the document.
	URL      string
	HTMLPath string
	// Frames are subframe URLs, the focused one first.
	Frames []string
	// Target is frame, link or image. Empty means derive it from the
	// link and image URLs.
	Target    string
	Referrer  string
	Selection string
	LinkURL   string
	LinkText  string
	SrcURL    string
}

// Runner turns requests into formatter input.
type Runner struct {
	logger    *slog.Logger
	fetcher   *fetcher.Fetcher
	extractor *extract.Extractor
	merger    *capturepkg.Merger
}

// NewRunner creates a Runner. f may be nil when only local files are read.
func NewRunner(cfg *models.Config, logger *slog.Logger, f *fetcher.Fetcher) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		logger:  logger,
		fetcher: f,
		extractor: extract.New(extract.Options{
			Limits:         cfg.Limits,
			Languages:      []string{cfg.Locale},
			Readability:    cfg.Readability,
			DetectLanguage: cfg.DetectLanguage,
			Logger:         logger,
		}),
		merger: capturepkg.NewMerger(logger, cfg),
	}
}

// target returns the capture target of req.
func (req Request) target() (string, error) {
	switch req.Target {
	case "":
		switch {
		case req.SrcURL != "":
			return formatorg.TargetImage, nil
		case req.LinkURL != "":
			return formatorg.TargetLink, nil
		}
		return formatorg.TargetFrame, nil
	case formatorg.TargetFrame, formatorg.TargetLink, formatorg.TargetImage:
		return req.Target, nil
	}
	return "", fmt.Errorf("unknown capture target %q", req.Target)
}

// load returns the document of a frame and its final URL.
func (r *Runner) load(ctx context.Context, rawURL, htmlPath string) (string, []byte, error) {
	if htmlPath != "" {
		body, err := os.ReadFile(htmlPath)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read %s: %w", htmlPath, err)
		}
		if rawURL == "" {
			abs, err := filepath.Abs(htmlPath)
			if err != nil {
				return "", nil, fmt.Errorf("failed to resolve %s: %w", htmlPath, err)
			}
			rawURL = (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
		}
		return rawURL, body, nil
	}
	if rawURL == "" {
		return "", nil, ErrNoSource
	}
	if r.fetcher == nil {
		return "", nil, fmt.Errorf("cannot fetch %s: no fetcher configured", rawURL)
	}
	doc, err := r.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return "", nil, err
	}
	return doc.URL, doc.Body, nil
}

// Chain loads the page and its subframes and merges them into a
// TabFrameChain capture. The click context belongs to the focused frame.
func (r *Runner) Chain(ctx context.Context, req Request) (*formatorg.Capture, error) {
	target, err := req.target()
	if err != nil {
		return nil, err
	}
	topURL, topHTML, err := r.load(ctx, req.URL, req.HTMLPath)
	if err != nil {
		return nil, err
	}

	pages := make([]extract.Page, 0, len(req.Frames)+1)
	for i, frameURL := range req.Frames {
		finalURL, body, err := r.load(ctx, frameURL, "")
		if err != nil {
			return nil, fmt.Errorf("frame %s: %w", frameURL, err)
		}
		pages = append(pages, extract.Page{
			URL:      finalURL,
			HTML:     body,
			FrameID:  i + 1,
			Referrer: topURL,
		})
	}
	pages = append(pages, extract.Page{
		URL:      topURL,
		HTML:     topHTML,
		Referrer: req.Referrer,
	})

	focused := &pages[0]
	focused.Selection = req.Selection
	focused.LinkURL = req.LinkURL
	focused.SrcURL = req.SrcURL

	infos := make([]*capturepkg.FrameInfo, 0, len(pages))
	for _, page := range pages {
		info, err := r.extractor.Extract(page)
		if err != nil {
			return nil, fmt.Errorf("failed to extract %s: %w", page.URL, err)
		}
		infos = append(infos, info)
	}

	click := &capturepkg.ClickData{
		SelectionText: req.Selection,
		LinkText:      req.LinkText,
		LinkURL:       req.LinkURL,
		PageURL:       topURL,
		SrcURL:        req.SrcURL,
		CaptureObject: target,
	}
	if focused.FrameID != 0 {
		click.FrameURL = focused.URL
	}
	if req.SrcURL != "" {
		click.MediaType = "image"
	}
	infos[0].ClickData = click

	r.logger.Debug("capture: frames extracted", "url", topURL, "frames", len(infos), "target", target)
	return &formatorg.Capture{
		Type:   formatorg.TypeTabFrameChain,
		Target: target,
		Frames: r.merger.MergeChain(infos),
	}, nil
}
