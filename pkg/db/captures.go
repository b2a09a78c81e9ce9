package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dtnitsch/org-remark/models"
	"github.com/google/uuid"
)

// minIDPrefix is the shortest capture ID prefix accepted by GetCapture.
const minIDPrefix = 4

const captureColumns = `capture_id, created_at, url, title, target, format, body, warnings, debug`

// InsertCapture stores rec and its URLs, returning the capture ID.
// Missing ID and creation time are filled in.
func (db *DB) InsertCapture(rec *models.CaptureRecord) (string, error) {
	if rec.CaptureID == "" {
		rec.CaptureID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	warnings, err := json.Marshal(rec.Warnings)
	if err != nil {
		return "", fmt.Errorf("failed to encode warnings: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // no-op after commit

	_, err = tx.Exec(`
		INSERT INTO captures (`+captureColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.CaptureID, rec.CreatedAt.UnixMilli(), rec.URL, rec.Title, rec.Target,
		rec.Format, rec.Body, string(warnings), rec.Debug)
	if err != nil {
		return "", fmt.Errorf("failed to insert capture: %w", err)
	}

	for _, u := range rec.URLs {
		_, err = tx.Exec(`
			INSERT OR IGNORE INTO capture_urls (capture_id, kind, url)
			VALUES (?, ?, ?)
		`, rec.CaptureID, u.Kind, u.URL)
		if err != nil {
			return "", fmt.Errorf("failed to insert capture URL: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit capture: %w", err)
	}
	return rec.CaptureID, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCapture(row rowScanner) (*models.CaptureRecord, error) {
	var (
		rec                 models.CaptureRecord
		createdAt           int64
		url, title, target  sql.NullString
		warnings, debugJSON sql.NullString
	)
	err := row.Scan(&rec.CaptureID, &createdAt, &url, &title, &target,
		&rec.Format, &rec.Body, &warnings, &debugJSON)
	if err != nil {
		return nil, err
	}
	rec.CreatedAt = time.UnixMilli(createdAt)
	rec.URL = url.String
	rec.Title = title.String
	rec.Target = target.String
	rec.Debug = debugJSON.String
	if warnings.Valid && warnings.String != "" {
		if err := json.Unmarshal([]byte(warnings.String), &rec.Warnings); err != nil {
			return nil, fmt.Errorf("failed to decode warnings of %s: %w", rec.CaptureID, err)
		}
	}
	return &rec, nil
}

// GetCapture returns the capture with the given ID. A unique prefix of
// at least four characters is accepted as well.
func (db *DB) GetCapture(id string) (*models.CaptureRecord, error) {
	id = strings.TrimSpace(id)
	rec, err := scanCapture(db.QueryRow(
		`SELECT `+captureColumns+` FROM captures WHERE capture_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		rec, err = db.getCaptureByPrefix(id)
	}
	if err != nil {
		return nil, err
	}
	if rec.URLs, err = db.captureURLs(rec.CaptureID); err != nil {
		return nil, err
	}
	return rec, nil
}

func (db *DB) getCaptureByPrefix(prefix string) (*models.CaptureRecord, error) {
	if len(prefix) < minIDPrefix || strings.ContainsAny(prefix, `%_\`) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, prefix)
	}
	rows, err := db.Query(
		`SELECT `+captureColumns+` FROM captures WHERE capture_id LIKE ? LIMIT 2`, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to query captures: %w", err)
	}
	defer rows.Close()

	var found []*models.CaptureRecord
	for rows.Next() {
		rec, err := scanCapture(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan capture: %w", err)
		}
		found = append(found, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate captures: %w", err)
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, prefix)
	case 1:
		return found[0], nil
	}
	return nil, fmt.Errorf("%w: %s", ErrAmbiguousID, prefix)
}

func (db *DB) captureURLs(captureID string) ([]models.CaptureURL, error) {
	rows, err := db.Query(`SELECT kind, url FROM capture_urls WHERE capture_id = ? ORDER BY id`, captureID)
	if err != nil {
		return nil, fmt.Errorf("failed to query capture URLs: %w", err)
	}
	defer rows.Close()

	var urls []models.CaptureURL
	for rows.Next() {
		var u models.CaptureURL
		if err := rows.Scan(&u.Kind, &u.URL); err != nil {
			return nil, fmt.Errorf("failed to scan capture URL: %w", err)
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

func (db *DB) queryCaptures(query string, args ...any) ([]models.CaptureRecord, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query captures: %w", err)
	}
	defer rows.Close()

	var captures []models.CaptureRecord
	for rows.Next() {
		rec, err := scanCapture(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan capture: %w", err)
		}
		captures = append(captures, *rec)
	}
	return captures, rows.Err()
}

// ListCaptures returns the most recent captures, newest first.
// A non-positive limit returns all of them.
func (db *DB) ListCaptures(limit int) ([]models.CaptureRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	return db.queryCaptures(`
		SELECT `+captureColumns+` FROM captures
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
}

// FindCapturesByURL returns captures mentioning rawURL, newest first.
func (db *DB) FindCapturesByURL(rawURL string) ([]models.CaptureRecord, error) {
	return db.queryCaptures(`
		SELECT `+captureColumns+` FROM captures
		WHERE capture_id IN (SELECT capture_id FROM capture_urls WHERE url = ?)
		ORDER BY created_at DESC, rowid DESC
	`, rawURL)
}

// PruneCaptures keeps the newest keep captures and deletes the rest.
// It returns the number of deleted captures.
func (db *DB) PruneCaptures(keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.Exec(`
		DELETE FROM captures WHERE capture_id NOT IN (
			SELECT capture_id FROM captures
			ORDER BY created_at DESC, rowid DESC
			LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune captures: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned captures: %w", err)
	}
	// Connections opened without the foreign_keys pragma do not cascade.
	if _, err := tx.Exec(`DELETE FROM capture_urls WHERE capture_id NOT IN (SELECT capture_id FROM captures)`); err != nil {
		return 0, fmt.Errorf("failed to prune capture URLs: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prune: %w", err)
	}
	return deleted, nil
}
