package capture

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/dtnitsch/org-remark/internal/common"
	"github.com/dtnitsch/org-remark/models"
	"github.com/dtnitsch/org-remark/pkg/export"
	"github.com/dtnitsch/org-remark/pkg/formatorg"
	"github.com/urfave/cli/v2"
)

// ApplyExportFlags overrides the export section of cfg with --format,
// --method and --template.
func ApplyExportFlags(c *cli.Context, cfg *models.Config) {
	if c.IsSet("format") {
		cfg.Export.Format = c.String("format")
	}
	if c.IsSet("method") {
		cfg.Export.Method = c.String("method")
	}
	if c.IsSet("template") {
		cfg.Export.Template = c.String("template")
	}
	// org-protocol links are only produced by the org-protocol format.
	if cfg.Export.Method == export.MethodOrgProtocol && !c.IsSet("format") {
		cfg.Export.Format = export.FormatOrgProtocol
	}
}

// Options control how a formatted capture is exported and recorded.
type Options struct {
	Config    *models.Config
	Out       io.Writer
	OutPath   string
	NoHistory bool
}

// Finish formats c, delivers the projection and records it in the history.
func Finish(ctx context.Context, logger *slog.Logger, c *formatorg.Capture, opts Options) error {
	cfg := opts.Config
	projection, err := formatorg.New(formatorg.Options{Logger: logger}).Format(c)
	if err != nil {
		return fmt.Errorf("failed to format capture: %w", err)
	}
	for _, w := range projection.Warnings {
		logger.Warn(w)
	}

	exports := export.NewRegistry()
	result, err := exports.Format(cfg.Export.Format, &export.Capture{
		Org:      projection,
		Frames:   Frames(c),
		Template: cfg.Export.Template,
	})
	if err != nil {
		return fmt.Errorf("failed to export capture: %w", err)
	}
	target := export.Target{Out: opts.Out, Path: opts.OutPath}
	if err := exports.Deliver(cfg.Export.Method, result, target); err != nil {
		return fmt.Errorf("failed to deliver capture: %w", err)
	}

	if opts.NoHistory {
		return nil
	}
	rec, err := NewRecord(c, projection, cfg.Export.Format)
	if err != nil {
		return err
	}
	database, err := common.OpenDB(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	id, err := Record(ctx, logger, database, rec, cfg.HistorySize)
	if err != nil {
		return fmt.Errorf("failed to record capture: %w", err)
	}
	logger.Info("capture recorded", "capture_id", id, "url", rec.URL, "format", rec.Format)
	return nil
}

func CaptureAction(c *cli.Context) error {
	logger := common.NewLogger(c)

	cfg, err := common.LoadConfig(c)
	if err != nil {
		return err
	}
	ApplyExportFlags(c, cfg)

	req := Request{
		URL:       c.String("url"),
		HTMLPath:  c.String("html"),
		Frames:    c.StringSlice("frame"),
		Target:    c.String("target"),
		Referrer:  c.String("referrer"),
		Selection: c.String("selection"),
		LinkURL:   c.String("link-url"),
		LinkText:  c.String("link-text"),
		SrcURL:    c.String("src-url"),
	}
	if req.URL == "" && req.HTMLPath == "" {
		return ErrNoSource
	}
	if req.URL != "" && req.HTMLPath == "" {
		valid, invalid := common.SanitizeAndValidateURLs([]string{req.URL})
		if len(invalid) > 0 {
			return fmt.Errorf("invalid URL: %s", invalid[0])
		}
		req.URL = valid[0]
	}

	f, err := common.NewFetcher(cfg, logger)
	if err != nil {
		return err
	}
	runner := NewRunner(cfg, logger, f)

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	capt, err := runner.Chain(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to capture page: %w", err)
	}

	return Finish(ctx, logger, capt, Options{
		Config:    cfg,
		Out:       c.App.Writer,
		OutPath:   c.String("out"),
		NoHistory: c.Bool("no-history"),
	})
}
