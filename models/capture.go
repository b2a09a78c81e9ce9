package models

import "time"

// Projection is one formatted representation of a capture.
type Projection struct {
	Format string `json:"format" yaml:"format"`
	URL    string `json:"url,omitempty" yaml:"url,omitempty"`
	Title  string `json:"title,omitempty" yaml:"title,omitempty"`
	Body   string `json:"body" yaml:"body"`
	// Warnings holds partial-failure notes such as failed tabs of a group.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// CaptureURL is one address mentioned by a capture: the page, a link or
// an image.
type CaptureURL struct {
	Kind string
	URL  string
}

// CaptureRecord is a capture stored in the history database.
type CaptureRecord struct {
	CaptureID string
	CreatedAt time.Time
	URL       string
	Title     string
	Target    string
	Format    string
	Body      string
	Warnings  []string
	URLs      []CaptureURL
	// Debug is the JSON dump of the merged metadata.
	Debug string
}
