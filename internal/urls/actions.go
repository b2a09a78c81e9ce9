package urls

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dtnitsch/org-remark/internal/capture"
	"github.com/dtnitsch/org-remark/internal/common"
	"github.com/dtnitsch/org-remark/pkg/meta"
	"github.com/urfave/cli/v2"
)

// UrlsAction prints the link, image and page URLs of a document as JSON,
// one summary list per frame.
func UrlsAction(c *cli.Context) error {
	logger := common.NewLogger(c)

	cfg, err := common.LoadConfig(c)
	if err != nil {
		return err
	}
	f, err := common.NewFetcher(cfg, logger)
	if err != nil {
		return err
	}

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	capt, err := capture.NewRunner(cfg, logger, f).Chain(ctx, capture.Request{
		URL:      c.String("url"),
		HTMLPath: c.String("html"),
		LinkURL:  c.String("link-url"),
		LinkText: c.String("link-text"),
		SrcURL:   c.String("src-url"),
	})
	if err != nil {
		return fmt.Errorf("failed to capture page: %w", err)
	}

	summaries := make([][]meta.URLSummary, 0, len(capt.Frames))
	for _, m := range capt.Frames {
		summaries = append(summaries, meta.MapToURLs(m))
	}
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summaries); err != nil {
		return fmt.Errorf("failed to encode URLs: %w", err)
	}
	return nil
}
