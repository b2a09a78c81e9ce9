package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dtnitsch/org-remark/models"
	"github.com/dtnitsch/org-remark/pkg/db"
	"github.com/dtnitsch/org-remark/pkg/formatorg"
	"github.com/dtnitsch/org-remark/pkg/meta"
	"github.com/gofrs/flock"
)

const (
	lockTimeout    = 10 * time.Second
	lockRetryDelay = 100 * time.Millisecond
)

// Frames returns the merged frames of c, tabs of a group in order.
func Frames(c *formatorg.Capture) []*meta.Meta {
	if c == nil {
		return nil
	}
	frames := append([]*meta.Meta(nil), c.Frames...)
	for _, tab := range c.Tabs {
		frames = append(frames, Frames(tab)...)
	}
	return frames
}

// captureURLs lists page, link and image URLs of the frames without
// repeating one.
func captureURLs(frames []*meta.Meta) []models.CaptureURL {
	seen := make(map[models.CaptureURL]bool)
	var urls []models.CaptureURL
	for _, m := range frames {
		if m == nil {
			continue
		}
		for _, summary := range meta.MapToURLs(m) {
			for _, u := range summary.URLs {
				cu := models.CaptureURL{Kind: summary.Type, URL: u}
				if !seen[cu] {
					seen[cu] = true
					urls = append(urls, cu)
				}
			}
		}
	}
	return urls
}

func debugDump(frames []*meta.Meta) (string, error) {
	dump := make([]map[string]any, 0, len(frames))
	for i, m := range frames {
		if m == nil {
			continue
		}
		frame, err := m.ToMap()
		if err != nil {
			return "", fmt.Errorf("failed to convert frame %d: %w", i, err)
		}
		dump = append(dump, frame)
	}
	data, err := json.Marshal(map[string]any{"frames": dump})
	if err != nil {
		return "", fmt.Errorf("failed to encode frames: %w", err)
	}
	return string(data), nil
}

// NewRecord builds the history entry of a formatted capture.
func NewRecord(c *formatorg.Capture, p *models.Projection, format string) (*models.CaptureRecord, error) {
	frames := Frames(c)
	debug, err := debugDump(frames)
	if err != nil {
		return nil, err
	}
	target := c.Target
	if c.Type == formatorg.TypeTabGroup {
		target = "group"
	}
	return &models.CaptureRecord{
		URL:      p.URL,
		Title:    p.Title,
		Target:   target,
		Format:   format,
		Body:     p.Body,
		Warnings: p.Warnings,
		URLs:     captureURLs(frames),
		Debug:    debug,
	}, nil
}

// Record stores rec and keeps only the newest historySize captures.
// Writers of a database file are serialized by a lock file beside it.
func Record(ctx context.Context, logger *slog.Logger, database *db.DB, rec *models.CaptureRecord, historySize int) (string, error) {
	if path := database.Path(); path != ":memory:" {
		lock := flock.New(path + ".lock")
		lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
		defer cancel()
		locked, err := lock.TryLockContext(lockCtx, lockRetryDelay)
		if err != nil {
			return "", fmt.Errorf("failed to lock history: %w", err)
		}
		if !locked {
			return "", fmt.Errorf("history %s is locked by another capture", path)
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				logger.Warn("failed to release history lock", "error", err)
			}
		}()
	}

	id, err := database.InsertCapture(rec)
	if err != nil {
		return "", err
	}
	if historySize > 0 {
		pruned, err := database.PruneCaptures(historySize)
		if err != nil {
			return id, err
		}
		if pruned > 0 {
			logger.Debug("pruned capture history", "deleted", pruned, "keep", historySize)
		}
	}
	return id, nil
}
