package history

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dtnitsch/org-remark/internal/common"
	"github.com/dtnitsch/org-remark/models"
	"github.com/dtnitsch/org-remark/pkg/db"
	"github.com/dtnitsch/org-remark/pkg/meta"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/urfave/cli/v2"
)

const (
	shortIDLength = 8
	titleWidth    = 48
	urlWidth      = 60
)

// HistoryAction lists recent captures, optionally only those of --url.
func HistoryAction(c *cli.Context) error {
	cfg, err := common.LoadConfig(c)
	if err != nil {
		return err
	}
	database, err := common.OpenDB(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	var captures []models.CaptureRecord
	if u := c.String("url"); u != "" {
		captures, err = database.FindCapturesByURL(u)
	} else {
		captures, err = database.ListCaptures(c.Int("limit"))
	}
	if err != nil {
		return fmt.Errorf("failed to list captures: %w", err)
	}

	out := c.App.Writer
	if len(captures) == 0 {
		fmt.Fprintln(out, "No captures found")
		return nil
	}
	fmt.Fprintln(out, renderHistory(captures, time.Now()))
	fmt.Fprintf(out, "\nTotal: %d captures\n", len(captures))
	fmt.Fprintf(out, "Tip: Use 'orr history show <id>' to print a capture\n")
	return nil
}

func renderHistory(captures []models.CaptureRecord, now time.Time) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"ID", "Captured", "Target", "Format", "Title", "URL"})
	for _, rec := range captures {
		tw.AppendRow(table.Row{
			shortID(rec.CaptureID),
			humanize.RelTime(rec.CreatedAt, now, "ago", "from now"),
			rec.Target,
			rec.Format,
			meta.TruncateRunes(rec.Title, titleWidth),
			meta.TruncateRunes(rec.URL, urlWidth),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

func shortID(id string) string {
	if len(id) > shortIDLength {
		return id[:shortIDLength]
	}
	return id
}

// ShowAction prints a stored capture, its body on stdout as it was exported.
func ShowAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("capture ID required. Use 'orr history' to list captures")
	}
	cfg, err := common.LoadConfig(c)
	if err != nil {
		return err
	}
	database, err := common.OpenDB(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	rec, err := database.GetCapture(c.Args().First())
	if errors.Is(err, db.ErrNotFound) || errors.Is(err, db.ErrAmbiguousID) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to get capture: %w", err)
	}

	out := c.App.Writer
	if c.Bool("debug") {
		fmt.Fprintln(out, rec.Debug)
		return nil
	}
	if c.Bool("body-only") {
		fmt.Fprint(out, ensureNewline(rec.Body))
		return nil
	}
	writeCapture(out, rec)
	return nil
}

func writeCapture(out io.Writer, rec *models.CaptureRecord) {
	fmt.Fprintf(out, "Capture %s\n", rec.CaptureID)
	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintf(out, "Captured:  %s (%s)\n", rec.CreatedAt.Format("2006-01-02 15:04:05"), humanize.Time(rec.CreatedAt))
	fmt.Fprintf(out, "Target:    %s\n", rec.Target)
	fmt.Fprintf(out, "Format:    %s\n", rec.Format)
	if rec.Title != "" {
		fmt.Fprintf(out, "Title:     %s\n", rec.Title)
	}
	if rec.URL != "" {
		fmt.Fprintf(out, "URL:       %s\n", rec.URL)
	}
	if len(rec.Warnings) > 0 {
		fmt.Fprintf(out, "\nWarnings (%d):\n", len(rec.Warnings))
		for _, w := range rec.Warnings {
			fmt.Fprintf(out, "  - %s\n", w)
		}
	}
	if len(rec.URLs) > 0 {
		fmt.Fprintf(out, "\nURLs (%d):\n", len(rec.URLs))
		for i, u := range rec.URLs {
			fmt.Fprintf(out, "%2d. [%s] %s\n", i+1, u.Kind, u.URL)
		}
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("-", 60))
	fmt.Fprint(out, ensureNewline(rec.Body))
}

func ensureNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
