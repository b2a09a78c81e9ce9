package meta

import (
	"testing"

	"github.com/dtnitsch/org-remark/models"
)

func TestSanitizeURL_DOI(t *testing.T) {
	limits := models.DefaultLimits()
	tests := []struct {
		input string
		key   string
		want  string
	}{
		{"10.0.1/just-doi", "meta.name.citation_doi", "doi:10.0.1/just-doi"},
		{"doi:10.0.2/with-doi-schema", "link.canonical", "doi:10.0.2/with-doi-schema"},
		{"hdl:10.0.3/hdl-schema", "link.canonical", "doi:10.0.3/hdl-schema"},
		{"http://dx.doi.org/10.0.4/dx.doi.org/http-resolver", "tab.url", "doi:10.0.4/dx.doi.org/http-resolver"},
		{"https://dx.doi.org/10.0.5/dx.doi.org/tls-resolver", "tab.url", "doi:10.0.5/dx.doi.org/tls-resolver"},
		{"http://doi.pangaea.de/10.0.6/pangea-http-resolver", "tab.url", "doi:10.0.6/pangea-http-resolver"},
		{"https://hdl.handle.net/10.0.7(handle.net)resolver", "tab.url", "doi:10.0.7(handle.net)resolver"},
		{"info:doi/10.0.8/info-doi", "tab.url", "doi:10.0.8/info-doi"},
		{"info:hdl/10.0.9/info-hdl", "tab.url", "doi:10.0.9/info-hdl"},
		{"https://unknown.com/10.0.10/http-heuristics", "meta.name.dc.doi", "doi:10.0.10/http-heuristics"},
		{"https://oadoi.org/10.0.11/http-oadoi-unpaywall", "tab.url", "doi:10.0.11/http-oadoi-unpaywall"},
		{"http://doai.io/10.0.12/http-doai-dissemin", "tab.url", "doi:10.0.12/http-doai-dissemin"},
		{"https://www.science.org/doi/10.0.13/science", "tab.url", "doi:10.0.13/science"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			results := SanitizeURL.Sanitize(&Descriptor{Value: tt.input, Key: tt.key}, limits)
			found := false
			for _, r := range results {
				if r.Value == tt.want {
					found = true
					if r.Error != nil {
						t.Errorf("error = %v, want none", r.Error)
					}
				}
			}
			if !found {
				t.Errorf("results %v do not contain %q", results, tt.want)
			}
		})
	}
}

func TestMatchDOI_NoMatch(t *testing.T) {
	tests := []struct {
		input string
		key   string
	}{
		{"https://unknown.com/10.0.10/no-doi-key", "tab.url"},
		{"https://doi.org/about", "tab.url"},
		{"10.0.1/no-doi-key", "tab.url"},
		{"info:other/10.1/x", "tab.url"},
		{"ftp://doi.org/10.1/x", "tab.url"},
	}

	for _, tt := range tests {
		if got := MatchDOI(&Descriptor{Value: tt.input, Key: tt.key}); got != nil {
			t.Errorf("MatchDOI(%q) = %v, want nil", tt.input, got)
		}
	}
}

func TestMatchDOI_KeepURL(t *testing.T) {
	got := MatchDOI(&Descriptor{Value: "https://dx.doi.org/10.1/x", Key: "tab.url"})
	if len(got) != 1 {
		t.Errorf("canonical resolver variants = %d, want 1", len(got))
	}
	got = MatchDOI(&Descriptor{Value: "https://pubs.acs.org/doi/10.1/x", Key: "tab.url"})
	if len(got) != 2 {
		t.Fatalf("publisher variants = %d, want 2", len(got))
	}
	if got[0].Value != "https://pubs.acs.org/doi/10.1/x" || got[1].Value != "doi:10.1/x" {
		t.Errorf("variants = %v, %v", got[0].Value, got[1].Value)
	}
}
