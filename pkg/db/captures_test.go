package db

import (
	"errors"
	"testing"
	"time"

	"github.com/dtnitsch/org-remark/models"
)

// setupTestDB creates an in-memory database for testing
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db := &DB{path: ":memory:"}
	sqlDB, err := openDB(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.DB = sqlDB

	if err := db.InitSchema(); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

func insertAt(t *testing.T, db *DB, id string, at time.Time, url string) {
	t.Helper()
	rec := &models.CaptureRecord{
		CaptureID: id,
		CreatedAt: at,
		URL:       url,
		Title:     "Capture " + id,
		Target:    "frame",
		Format:    "org",
		Body:      "* Capture " + id,
		URLs:      []models.CaptureURL{{Kind: "Frame", URL: url}},
	}
	if _, err := db.InsertCapture(rec); err != nil {
		t.Fatalf("InsertCapture(%s) error = %v", id, err)
	}
}

func TestInsertCapture(t *testing.T) {
	db := setupTestDB(t)

	rec := &models.CaptureRecord{
		URL:      "https://example.com/post",
		Title:    "Post",
		Target:   "link",
		Format:   "org",
		Body:     "* Post\n- URL :: [[https://example.com/post]]",
		Warnings: []string{"readability: no article"},
		URLs: []models.CaptureURL{
			{Kind: "Frame", URL: "https://example.com/post"},
			{Kind: "Link", URL: "https://example.com/other"},
			{Kind: "Link", URL: "https://example.com/other"},
		},
		Debug: `{"frames":[]}`,
	}
	id, err := db.InsertCapture(rec)
	if err != nil {
		t.Fatalf("InsertCapture() error = %v", err)
	}
	if len(id) != 36 {
		t.Errorf("InsertCapture() id = %q, want a UUID", id)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("InsertCapture() did not set CreatedAt")
	}

	got, err := db.GetCapture(id)
	if err != nil {
		t.Fatalf("GetCapture() error = %v", err)
	}
	if got.Title != rec.Title || got.Body != rec.Body || got.Target != rec.Target || got.Debug != rec.Debug {
		t.Errorf("GetCapture() = %+v, want %+v", got, rec)
	}
	if got.CreatedAt.UnixMilli() != rec.CreatedAt.UnixMilli() {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, rec.CreatedAt)
	}
	if len(got.Warnings) != 1 || got.Warnings[0] != "readability: no article" {
		t.Errorf("Warnings = %v", got.Warnings)
	}
	if len(got.URLs) != 2 {
		t.Errorf("URLs = %v, want 2 distinct URLs", got.URLs)
	}
}

func TestGetCapture(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now()
	insertAt(t, db, "aaaa1111-0000-0000-0000-000000000000", now, "https://a.example/")
	insertAt(t, db, "aaaa2222-0000-0000-0000-000000000000", now, "https://b.example/")
	insertAt(t, db, "bbbb1111-0000-0000-0000-000000000000", now, "https://c.example/")

	tests := []struct {
		name    string
		id      string
		want    string
		wantErr error
	}{
		{"full id", "aaaa2222-0000-0000-0000-000000000000", "aaaa2222-0000-0000-0000-000000000000", nil},
		{"unique prefix", "bbbb", "bbbb1111-0000-0000-0000-000000000000", nil},
		{"longer prefix", "aaaa1", "aaaa1111-0000-0000-0000-000000000000", nil},
		{"ambiguous prefix", "aaaa", "", ErrAmbiguousID},
		{"prefix too short", "bbb", "", ErrNotFound},
		{"wildcard prefix", "%%%%", "", ErrNotFound},
		{"unknown", "cccc", "", ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.GetCapture(tt.id)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("GetCapture(%q) error = %v, want %v", tt.id, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetCapture(%q) error = %v", tt.id, err)
			}
			if got.CaptureID != tt.want {
				t.Errorf("GetCapture(%q) = %s, want %s", tt.id, got.CaptureID, tt.want)
			}
		})
	}
}

func TestListCaptures(t *testing.T) {
	db := setupTestDB(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	insertAt(t, db, "id-1", base, "https://example.com/1")
	insertAt(t, db, "id-3", base.Add(2*time.Minute), "https://example.com/3")
	insertAt(t, db, "id-2", base.Add(time.Minute), "https://example.com/2")

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{"all", 0, []string{"id-3", "id-2", "id-1"}},
		{"limited", 2, []string{"id-3", "id-2"}},
		{"more than stored", 10, []string{"id-3", "id-2", "id-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.ListCaptures(tt.limit)
			if err != nil {
				t.Fatalf("ListCaptures() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ListCaptures() returned %d captures, want %d", len(got), len(tt.want))
			}
			for i, rec := range got {
				if rec.CaptureID != tt.want[i] {
					t.Errorf("captures[%d] = %s, want %s", i, rec.CaptureID, tt.want[i])
				}
			}
		})
	}
}

func TestFindCapturesByURL(t *testing.T) {
	db := setupTestDB(t)
	base := time.Now()
	insertAt(t, db, "id-1", base, "https://example.com/post")
	insertAt(t, db, "id-2", base.Add(time.Second), "https://example.com/other")
	insertAt(t, db, "id-3", base.Add(2*time.Second), "https://example.com/post")

	got, err := db.FindCapturesByURL("https://example.com/post")
	if err != nil {
		t.Fatalf("FindCapturesByURL() error = %v", err)
	}
	if len(got) != 2 || got[0].CaptureID != "id-3" || got[1].CaptureID != "id-1" {
		t.Errorf("FindCapturesByURL() = %v, want id-3, id-1", got)
	}

	got, err = db.FindCapturesByURL("https://example.com/none")
	if err != nil {
		t.Fatalf("FindCapturesByURL() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("FindCapturesByURL() = %v, want none", got)
	}
}

func TestPruneCaptures(t *testing.T) {
	db := setupTestDB(t)
	base := time.Now()
	for i, id := range []string{"id-1", "id-2", "id-3", "id-4"} {
		insertAt(t, db, id, base.Add(time.Duration(i)*time.Second), "https://example.com/"+id)
	}

	deleted, err := db.PruneCaptures(2)
	if err != nil {
		t.Fatalf("PruneCaptures() error = %v", err)
	}
	if deleted != 2 {
		t.Errorf("PruneCaptures() deleted = %d, want 2", deleted)
	}

	got, err := db.ListCaptures(0)
	if err != nil {
		t.Fatalf("ListCaptures() error = %v", err)
	}
	if len(got) != 2 || got[0].CaptureID != "id-4" || got[1].CaptureID != "id-3" {
		t.Errorf("after prune = %v, want id-4, id-3", got)
	}

	var urls int
	if err := db.QueryRow("SELECT COUNT(*) FROM capture_urls").Scan(&urls); err != nil {
		t.Fatalf("count capture_urls: %v", err)
	}
	if urls != 2 {
		t.Errorf("capture_urls rows = %d, want 2", urls)
	}

	if _, err := db.GetCapture("id-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetCapture(pruned) error = %v, want ErrNotFound", err)
	}
}
