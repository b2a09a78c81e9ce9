package caching

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Entry is a cached document. URL is the address the document was
// finally served from, which differs from the requested one after
// redirects.
type Entry struct {
	URL      string
	Body     []byte
	StoredAt time.Time
}

// Cache provides a simple file-based cache with a TTL.
type Cache struct {
	path string
	ttl  time.Duration
}

// NewCache creates a new Cache instance.
// The cache path will be created if it doesn't exist.
func NewCache(path string, ttl time.Duration) (*Cache, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{
		path: path,
		ttl:  ttl,
	}, nil
}

// key generates a SHA256 hash of the URL to use as a filename.
func (c *Cache) key(url string) string {
	hash := sha256.Sum256([]byte(url))
	return fmt.Sprintf("%x.html", hash)
}

// Get returns the entry stored for url if it exists and is not expired.
func (c *Cache) Get(url string) (Entry, bool) {
	filePath := filepath.Join(c.path, c.key(url))

	info, err := os.Stat(filePath)
	if err != nil {
		return Entry{}, false
	}
	if time.Since(info.ModTime()) > c.ttl {
		return Entry{}, false
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return Entry{}, false
	}
	// The first line holds the final URL.
	finalURL, body, ok := bytes.Cut(data, []byte("\n"))
	if !ok {
		return Entry{}, false
	}
	return Entry{URL: string(finalURL), Body: body, StoredAt: info.ModTime()}, true
}

// Set stores body served from finalURL under the requested url.
func (c *Cache) Set(url, finalURL string, body []byte) error {
	if strings.ContainsAny(finalURL, "\r\n") {
		return fmt.Errorf("invalid final URL %q", finalURL)
	}
	var buf bytes.Buffer
	buf.Grow(len(finalURL) + 1 + len(body))
	buf.WriteString(finalURL)
	buf.WriteByte('\n')
	buf.Write(body)

	filePath := filepath.Join(c.path, c.key(url))
	if err := os.WriteFile(filePath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	return nil
}
