package group

import (
	"context"
	"fmt"

	"github.com/dtnitsch/org-remark/internal/capture"
	"github.com/dtnitsch/org-remark/internal/common"
	"github.com/urfave/cli/v2"
)

func GroupAction(c *cli.Context) error {
	logger := common.NewLogger(c)

	cfg, err := common.LoadConfig(c)
	if err != nil {
		return err
	}
	capture.ApplyExportFlags(c, cfg)

	urls, invalid := common.SanitizeAndValidateURLs(common.SplitURLs(c.String("url")))
	for _, u := range invalid {
		logger.Warn("skipping invalid URL", "url", u)
	}
	if len(urls) == 0 {
		return fmt.Errorf("no valid URL in --url")
	}

	f, err := common.NewFetcher(cfg, logger)
	if err != nil {
		return err
	}
	runner := capture.NewRunner(cfg, logger, f)

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger.Info("capturing tab group", "url_count", len(urls), "workers", c.Int("workers"))
	group, results := runner.Group(ctx, urls, c.Int("workers"), c.String("title"))

	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
		}
	}
	logger.Info("tab group fetched", "succeeded", len(results)-failed, "failed", failed)

	return capture.Finish(ctx, logger, group, capture.Options{
		Config:    cfg,
		Out:       c.App.Writer,
		OutPath:   c.String("out"),
		NoHistory: c.Bool("no-history"),
	})
}
