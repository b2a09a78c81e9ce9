// Package models defines data structures for configuration and captures.
package models

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Limits caps the size of values accepted from a captured page.
type Limits struct {
	String                 int `yaml:"string"`
	Text                   int `yaml:"text"`
	JSON                   int `yaml:"json"`
	SelectionFragmentCount int `yaml:"selection_fragment_count"`
	JSONFragmentCount      int `yaml:"json_fragment_count"`
	MicrodataPropertyCount int `yaml:"microdata_property_count"`
	MicrodataOtherCount    int `yaml:"microdata_other_count"`
	MicrodataTotalCount    int `yaml:"microdata_total_count"`
}

// DefaultLimits returns the size caps used when no config file overrides them.
func DefaultLimits() Limits {
	const stringLimit = 1000
	return Limits{
		String:                 stringLimit,
		Text:                   4 * stringLimit,
		JSON:                   4 * 8 * stringLimit,
		SelectionFragmentCount: 128,
		JSONFragmentCount:      4,
		MicrodataPropertyCount: 16,
		MicrodataOtherCount:    16,
		MicrodataTotalCount:    1024,
	}
}

// ExportConfig selects how a capture leaves the program.
type ExportConfig struct {
	Method   string `yaml:"method"`   // stdout | file | org-protocol
	Format   string `yaml:"format"`   // org | object | object-yaml | org-protocol
	Template string `yaml:"template"` // org-protocol capture template key
}

// FetchConfig controls page retrieval.
type FetchConfig struct {
	Timeout  time.Duration `yaml:"timeout"`
	Retries  uint64        `yaml:"retries"`
	CacheDir string        `yaml:"cache_dir"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// Config is the on-disk configuration of the capture tool.
// Every field may be overridden by a CLI flag.
type Config struct {
	Limits         Limits       `yaml:"limits"`
	Locale         string       `yaml:"locale"`
	Export         ExportConfig `yaml:"export"`
	Fetch          FetchConfig  `yaml:"fetch"`
	DetectLanguage bool         `yaml:"detect_language"`
	Readability    bool         `yaml:"readability"`
	DBPath         string       `yaml:"db_path"`
	HistorySize    int          `yaml:"history_size"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Limits: DefaultLimits(),
		Locale: "en-US",
		Export: ExportConfig{
			Method: "stdout",
			Format: "org",
		},
		Fetch: FetchConfig{
			Timeout:  30 * time.Second,
			Retries:  3,
			CacheTTL: time.Hour,
		},
		Readability: true,
		HistorySize: 100,
	}
}

// LoadConfig reads a YAML config file on top of the defaults.
// A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}
