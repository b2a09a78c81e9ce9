package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dtnitsch/org-remark/pkg/caching"
)

// DefaultUserAgent is sent when Options.UserAgent is empty.
const DefaultUserAgent = "orr/1.0 (+https://github.com/dtnitsch/org-remark)"

// maxBodySize caps the downloaded document.
const maxBodySize = 16 << 20

// StatusError is returned for a non-200 response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("failed to fetch %s, status code: %d", e.URL, e.StatusCode)
}

// Temporary reports whether a retry could succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Options configures a Fetcher.
type Options struct {
	Timeout time.Duration
	// Retries is the number of attempts after the first one.
	Retries uint64
	// InitialInterval is the first delay between attempts.
	InitialInterval time.Duration
	UserAgent       string
	Cache           *caching.Cache
	Client          *http.Client
	Logger          *slog.Logger
}

// Document is a fetched page.
type Document struct {
	// URL is the address after redirects.
	URL         string
	Body        []byte
	ContentType string
	FromCache   bool
}

type Fetcher struct {
	client          *http.Client
	retries         uint64
	initialInterval time.Duration
	userAgent       string
	cache           *caching.Cache
	logger          *slog.Logger
}

func NewFetcher(opts Options) *Fetcher {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 500 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Fetcher{
		client:          client,
		retries:         opts.Retries,
		initialInterval: opts.InitialInterval,
		userAgent:       opts.UserAgent,
		cache:           opts.Cache,
		logger:          opts.Logger,
	}
}

// Fetch returns the document at url, from the cache when possible.
// Network errors, 429 and 5xx responses are retried with exponential
// backoff; other statuses fail at once.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Document, error) {
	if f.cache != nil {
		if entry, ok := f.cache.Get(url); ok {
			f.logger.Debug("fetcher: cache hit", "url", url, "stored_at", entry.StoredAt)
			return &Document{URL: entry.URL, Body: entry.Body, FromCache: true}, nil
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = f.initialInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, f.retries), ctx)

	var doc *Document
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		d, err := f.get(ctx, url)
		if err != nil {
			var statusErr *StatusError
			if errors.As(err, &statusErr) && !statusErr.Temporary() {
				return backoff.Permanent(err)
			}
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			f.logger.Warn("fetcher: attempt failed", "url", url, "attempt", attempt, "error", err)
			return err
		}
		doc = d
		return nil
	}, policy)
	if err != nil {
		return nil, err
	}

	if f.cache != nil {
		if err := f.cache.Set(url, doc.URL, doc.Body); err != nil {
			f.logger.Warn("fetcher: failed to cache document", "url", url, "error", err)
		}
	}
	return doc, nil
}

func (f *Fetcher) get(ctx context.Context, url string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return &Document{
		URL:         resp.Request.URL.String(),
		Body:        bodyBytes,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}
