package db

const schema = `
-- Performance and reliability settings
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;
PRAGMA temp_store = MEMORY;

-- Captures: one formatted note per row, newest first by created_at
CREATE TABLE IF NOT EXISTS captures (
    capture_id TEXT PRIMARY KEY,
    created_at INTEGER NOT NULL,  -- unix milliseconds
    url TEXT,
    title TEXT,
    target TEXT,                  -- frame, link, image, group
    format TEXT NOT NULL,         -- org, object, object-yaml, org-protocol
    body TEXT NOT NULL,

    -- Partial failures as JSON array of strings
    warnings TEXT,

    -- JSON dump of the merged metadata of every frame
    debug TEXT
);

CREATE INDEX IF NOT EXISTS idx_captures_created ON captures(created_at DESC);

-- Capture URLs: page, link and image addresses of a capture
CREATE TABLE IF NOT EXISTS capture_urls (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    capture_id TEXT NOT NULL,
    kind TEXT NOT NULL,           -- Frame, Link, Image
    url TEXT NOT NULL,
    FOREIGN KEY (capture_id) REFERENCES captures(capture_id) ON DELETE CASCADE,
    UNIQUE(capture_id, kind, url)
);

CREATE INDEX IF NOT EXISTS idx_capture_urls_capture ON capture_urls(capture_id);
CREATE INDEX IF NOT EXISTS idx_capture_urls_url ON capture_urls(url);
`
