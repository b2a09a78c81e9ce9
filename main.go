package main

import (
	"fmt"
	"os"

	"github.com/dtnitsch/org-remark/internal/capture"
	"github.com/dtnitsch/org-remark/internal/group"
	"github.com/dtnitsch/org-remark/internal/history"
	"github.com/dtnitsch/org-remark/internal/urls"
	"github.com/dtnitsch/org-remark/pkg/export"
	"github.com/dtnitsch/org-remark/pkg/help"
	"github.com/urfave/cli/v2"
)

// exportFlags are shared by the commands that produce a note.
func exportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "format",
			Usage: "Export format: org, object, object-yaml, org-protocol",
		},
		&cli.StringFlag{
			Name:  "method",
			Usage: "Delivery method: stdout, file, org-protocol",
		},
		&cli.StringFlag{
			Name:  "template",
			Usage: "org-protocol capture template key",
		},
		&cli.StringFlag{
			Name:    "out",
			Aliases: []string{"o"},
			Usage:   "Output file for --method file",
		},
		&cli.BoolFlag{
			Name:  "no-history",
			Usage: "Do not record the capture in the history database",
		},
	}
}

func main() {
	app := &cli.App{
		Name:  "orr",
		Usage: "Capture web page metadata as Org-mode notes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML config file (default: <user config dir>/org-remark/config.yaml)",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "Capture history database (default: org-remark.db next to the binary)",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Log errors only",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log debug messages",
			},
			&cli.BoolFlag{
				Name:  "detect-language",
				Usage: "Guess the page language when it does not declare one",
			},
			&cli.BoolFlag{
				Name:  "no-readability",
				Usage: "Skip readable article extraction",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "HTTP request timeout",
			},
			&cli.Uint64Flag{
				Name:  "retries",
				Usage: "Retries of failed HTTP requests",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "capture",
				Usage: "Capture one page, a link or an image on it",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "url",
						Usage: "Page URL to fetch, or the base URL of --html",
					},
					&cli.StringFlag{
						Name:  "html",
						Usage: "Read the page from a local HTML file",
					},
					&cli.StringSliceFlag{
						Name:  "frame",
						Usage: "Subframe URL, the focused frame first (repeatable)",
					},
					&cli.StringFlag{
						Name:  "target",
						Usage: "Capture target: frame, link, image (default: derived from --link-url/--src-url)",
					},
					&cli.StringFlag{
						Name:  "selection",
						Usage: "Selected text to quote",
					},
					&cli.StringFlag{
						Name:  "referrer",
						Usage: "Referrer of the page",
					},
					&cli.StringFlag{
						Name:  "link-url",
						Usage: "URL of the captured link",
					},
					&cli.StringFlag{
						Name:  "link-text",
						Usage: "Text of the captured link",
					},
					&cli.StringFlag{
						Name:  "src-url",
						Usage: "URL of the captured image",
					},
				}, exportFlags()...),
				Action: capture.CaptureAction,
			},
			{
				Name:  "group",
				Usage: "Capture several pages as one tab group note",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "url",
						Usage:    "Comma-separated page URLs",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "title",
						Usage: "Group heading (default: tab count and date)",
					},
					&cli.IntFlag{
						Name:  "workers",
						Value: 4,
						Usage: "Number of concurrent fetches",
					},
				}, exportFlags()...),
				Action: group.GroupAction,
			},
			{
				Name:  "history",
				Usage: "List recent captures",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Value: 20,
						Usage: "Number of captures to list (0 for all)",
					},
					&cli.StringFlag{
						Name:  "url",
						Usage: "Only captures mentioning this URL",
					},
				},
				Action: history.HistoryAction,
				Subcommands: []*cli.Command{
					{
						Name:      "show",
						Usage:     "Print a stored capture",
						ArgsUsage: "<capture-id or unique prefix>",
						Flags: []cli.Flag{
							&cli.BoolFlag{
								Name:  "body-only",
								Usage: "Print the exported body only",
							},
							&cli.BoolFlag{
								Name:  "debug",
								Usage: "Print the merged metadata as JSON",
							},
						},
						Action: history.ShowAction,
					},
				},
			},
			{
				Name:  "urls",
				Usage: "Print link, image and page URLs of a document as JSON",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "url",
						Usage: "Page URL to fetch, or the base URL of --html",
					},
					&cli.StringFlag{
						Name:  "html",
						Usage: "Read the page from a local HTML file",
					},
					&cli.StringFlag{
						Name:  "link-url",
						Usage: "URL of a link to summarize",
					},
					&cli.StringFlag{
						Name:  "link-text",
						Usage: "Text of the link",
					},
					&cli.StringFlag{
						Name:  "src-url",
						Usage: "URL of an image to summarize",
					},
				},
				Action: urls.UrlsAction,
			},
			{
				Name:  "quickstart",
				Usage: "Print a quick start guide as YAML",
				Action: func(c *cli.Context) error {
					fmt.Fprint(c.App.Writer, help.ColdstartYAML)
					return nil
				},
			},
			{
				Name:  "formats",
				Usage: "List export formats and delivery methods",
				Action: func(c *cli.Context) error {
					r := export.NewRegistry()
					fmt.Fprintf(c.App.Writer, "Formats: %v\nMethods: %v\n", r.Formats(), r.Methods())
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
