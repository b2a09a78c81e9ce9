package common

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dtnitsch/org-remark/models"
	"github.com/dtnitsch/org-remark/pkg/caching"
	"github.com/dtnitsch/org-remark/pkg/db"
	"github.com/dtnitsch/org-remark/pkg/fetcher"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
)

const appDir = "org-remark"

// NewLogger builds the logger of an action from the global --quiet and
// --verbose flags.
func NewLogger(c *cli.Context) *slog.Logger {
	logLevel := slog.LevelInfo
	switch {
	case c.Bool("quiet"):
		logLevel = slog.LevelError
	case c.Bool("verbose"):
		logLevel = slog.LevelDebug
	}
	return newLogger(os.Stderr, isTerminal(os.Stderr), logLevel)
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// newLogger writes text for humans and JSON for everything else.
func newLogger(w io.Writer, terminal bool, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if terminal {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// DefaultConfigPath is config.yaml in the user config directory, or ""
// when the platform has none.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, appDir, "config.yaml")
}

// LoadConfig reads --config (or the default config file) and applies the
// global flag overrides.
func LoadConfig(c *cli.Context) (*models.Config, error) {
	path := c.String("config")
	if path == "" {
		path = DefaultConfigPath()
	}
	cfg, err := models.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if c.IsSet("db") {
		cfg.DBPath = c.String("db")
	}
	if c.IsSet("detect-language") {
		cfg.DetectLanguage = c.Bool("detect-language")
	}
	if c.IsSet("no-readability") {
		cfg.Readability = !c.Bool("no-readability")
	}
	if c.IsSet("timeout") {
		cfg.Fetch.Timeout = c.Duration("timeout")
	}
	if c.IsSet("retries") {
		cfg.Fetch.Retries = c.Uint64("retries")
	}
	return cfg, nil
}

// OpenDB opens the capture history named by the config.
func OpenDB(cfg *models.Config) (*db.DB, error) {
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}

// NewFetcher builds a fetcher with the on-disk HTML cache enabled when
// the config has a positive cache TTL.
func NewFetcher(cfg *models.Config, logger *slog.Logger) (*fetcher.Fetcher, error) {
	opts := fetcher.Options{
		Timeout: cfg.Fetch.Timeout,
		Retries: cfg.Fetch.Retries,
		Logger:  logger,
	}
	if cfg.Fetch.CacheTTL > 0 {
		dir := cfg.Fetch.CacheDir
		if dir == "" {
			cacheRoot, err := os.UserCacheDir()
			if err != nil {
				return nil, fmt.Errorf("failed to find cache directory: %w", err)
			}
			dir = filepath.Join(cacheRoot, appDir)
		}
		cache, err := caching.NewCache(dir, cfg.Fetch.CacheTTL)
		if err != nil {
			return nil, err
		}
		opts.Cache = cache
	}
	return fetcher.NewFetcher(opts), nil
}

var (
	markdownLinkPattern = regexp.MustCompile(`^\[.*?\]\((https?://[^\)]+)\)$`)
	urlPattern          = regexp.MustCompile(`^https?://[a-zA-Z0-9][-a-zA-Z0-9.]*[a-zA-Z0-9](:[0-9]+)?(/[^\s]*)?$`)
)

// SanitizeURL performs basic cleanup on URLs to handle common copy-paste issues.
// Removes whitespace, trailing punctuation and markdown artifacts.
func SanitizeURL(rawURL string) string {
	cleaned := strings.TrimSpace(rawURL)

	// Example: "[click here](https://example.com)" -> "https://example.com"
	if matches := markdownLinkPattern.FindStringSubmatch(cleaned); len(matches) > 1 {
		cleaned = matches[1]
	}

	// Example: "https://example.com," -> "https://example.com"
	trailingChars := []string{",", ".", ")", "}", "]", "\"", "'", ">", ";"}
	for _, char := range trailingChars {
		cleaned = strings.TrimSuffix(cleaned, char)
	}

	// Example: "(https://example.com)" -> "https://example.com"
	leadingChars := []string{"(", "[", "<", "\"", "'"}
	for _, char := range leadingChars {
		cleaned = strings.TrimPrefix(cleaned, char)
	}

	return strings.TrimSpace(cleaned)
}

// SanitizeAndValidateURLs sanitizes all URLs and returns (sanitized URLs, invalid URLs).
// Invalid URLs are those that fail validation even after sanitization.
func SanitizeAndValidateURLs(urls []string) ([]string, []string) {
	sanitized := make([]string, 0, len(urls))
	var invalidURLs []string

	for _, rawURL := range urls {
		cleaned := SanitizeURL(rawURL)
		if cleaned == "" || strings.Contains(cleaned, " ") || !urlPattern.MatchString(cleaned) {
			invalidURLs = append(invalidURLs, rawURL)
			continue
		}

		parsed, err := url.Parse(cleaned)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			invalidURLs = append(invalidURLs, rawURL)
			continue
		}

		// Example: "https://example.com{}" should fail
		if strings.ContainsAny(parsed.Host, "{}[]<>\"'") {
			invalidURLs = append(invalidURLs, rawURL)
			continue
		}

		sanitized = append(sanitized, cleaned)
	}

	return sanitized, invalidURLs
}

// SplitURLs splits a comma separated --url value.
func SplitURLs(value string) []string {
	var urls []string
	for _, u := range strings.Split(value, ",") {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
