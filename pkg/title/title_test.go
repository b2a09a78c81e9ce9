package title

import (
	"reflect"
	"testing"

	"github.com/dtnitsch/org-remark/pkg/meta"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		text             string
		min, target, max int
		want             string
		wantTruncated    bool
	}{
		{"very long title", 6, 15, 15, "very long title", false},
		{"Abcdefghijklmn", 8, 10, 12, "Abcdefghij", true},
		{"Abcdefghijklmn", 8, 10, 15, "Abcdefghijklmn", false},
		{"Abcdefgh ijklmn", 8, 10, 12, "Abcdefgh", true},
		{"Abcdefg hij klmn", 6, 10, 14, "Abcdefg hij", true},
		{"Abcdefgh ijkl mn", 6, 10, 14, "Abcdefgh", true},
		{"Ab defgh.ijkl.mn", 6, 10, 14, "Ab defgh", true},
		{"(b defgh)ijklmn", 6, 10, 14, "(b defgh)", true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, truncated := Truncate(tt.text, tt.min, tt.target, tt.max)
			if got != tt.want {
				t.Errorf("Truncate() = %q, want %q", got, tt.want)
			}
			if truncated != tt.wantTruncated {
				t.Errorf("truncated = %v, want %v", truncated, tt.wantTruncated)
			}
		})
	}
}

func TestLimitComponentsLength(t *testing.T) {
	tests := []struct {
		name  string
		input [3]string
		want  []string
	}{
		{name: "short", input: [3]string{"author", "title", "site"}, want: []string{"author", "title", "site"}},
		{
			name:  "long site",
			input: [3]string{"author", "very long title", "site with very long name as well"},
			want:  []string{"author", "very long title", "site with very"},
		},
		{
			name:  "site only",
			input: [3]string{"", "", "Site with empty page title and the author"},
			want:  []string{"Site with empty page title and the"},
		},
		{
			name:  "author only",
			input: [3]string{"Only long author is specified on this page", "", ""},
			want:  []string{"Only long author is specified on"},
		},
		{name: "empty", input: [3]string{"", "", ""}, want: nil},
		{
			name:  "title only",
			input: [3]string{"", "The page with no metadata and only the title is specified", ""},
			want:  []string{"The page with no metadata and only"},
		},
		{
			name:  "everything long",
			input: [3]string{"Author With A Lot Of Names", "Title With a Lot of Words", "Even site name is long"},
			want:  []string{"Author With A", "Title With a", "Even s"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			components := []Component{
				{Value: tt.input[0], Min: 6, Target: 12, Stiff: 1, FlexThreshold: 12},
				{Value: tt.input[1], Min: 6, Target: 12, Stiff: 1, FlexThreshold: 12},
				{Value: tt.input[2], Min: 6, Target: 12, Stiff: 0, FlexThreshold: 12},
			}
			var got []string
			for _, p := range LimitComponentsLength(components) {
				got = append(got, p.Text)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("LimitComponentsLength() = %q, want %q", got, tt.want)
			}
		})
	}
}

type testDescriptor struct {
	property string
	value    string
	key      string
}

func newMeta(descriptors ...testDescriptor) *meta.Meta {
	m := meta.New()
	for _, d := range descriptors {
		m.AddDescriptor(d.property, &meta.Descriptor{Value: d.value, Key: d.key})
	}
	return m
}

func TestPage(t *testing.T) {
	tests := []struct {
		name        string
		descriptors []testDescriptor
		want        string
	}{
		{
			name: "title equal to site name",
			descriptors: []testDescriptor{
				{"title", "MDN Web Docs", "document.title"},
				{"site_name", "MDN Web Docs", "meta.property.og:site_name"},
			},
			want: "MDN Web Docs",
		},
		{
			name: "site name removed from title",
			descriptors: []testDescriptor{
				{"title", "String.prototype.indexOf() - JavaScript | MDN", "document.title"},
				{"site_name", "MDN", "meta.name.site_name"},
				{"author", "Wiki User", "meta.test.fake"},
			},
			want: "Wiki User\u00a0\u2014 String.prototype.indexOf() - JavaScript\u00a0\u2014 MDN",
		},
		{
			name: "every component truncated",
			descriptors: []testDescriptor{
				{"author", "Excessively Long Author Name That Does not Fit into Allowed Range", "meta.name.author"},
				{"title", "Title on this page is incredibly long as well to cause its truncation", "document.title"},
				{"site_name", "Site author believes that site name should be long and detailed", "meta.property.og:site_name"},
			},
			want: "Excessively Long Author Name That\u2026\u00a0\u2014 " +
				"Title on this page is incredibly long as well to\u2026\u00a0\u2014 Site aut\u2026",
		},
		{
			name: "description as title",
			descriptors: []testDescriptor{
				{"description", "Only a description", "meta.name.description"},
			},
			want: "Only a description",
		},
		{name: "empty", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Page(newMeta(tt.descriptors...)); got != tt.want {
				t.Errorf("Page() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPage_SelectionFragments(t *testing.T) {
	m := meta.New()
	m.AddDescriptor("selection", &meta.Descriptor{
		Value: []meta.Fragment{{Value: "first\npart"}, {Value: ""}, {Value: "second"}},
		Key:   "window.getSelection.text",
	})
	want := "first part \u2026 second"
	if got := Page(m); got != want {
		t.Errorf("Page() = %q, want %q", got, want)
	}
}

func TestCleanupVariant(t *testing.T) {
	tests := []struct {
		text     string
		toRemove []string
		want     string
	}{
		{"Page title | Site", []string{"Site"}, "Page title"},
		{"Site: Page title", []string{"Site"}, "Page title"},
		{"Site \u2014 Page title", []string{"Site"}, "Page title"},
		{"Page title :: Site", []string{"Site"}, "Page title"},
		{"Author - Page - Site", []string{"Site", "Author"}, "Page"},
		{"A title with the Site in the middle of a long text", []string{"Site"}, "A title with the Site in the middle of a long text"},
		{"Same", []string{"Same"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := CleanupVariant(tt.text, tt.toRemove); got != tt.want {
				t.Errorf("CleanupVariant() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEnsureSingleLine(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"a\n  b\tc", "a b c"},
		{"a\u00a0\n b", "a\u00a0b"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := EnsureSingleLine(tt.input); got != tt.want {
			t.Errorf("EnsureSingleLine(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestURLVariants(t *testing.T) {
	m := newMeta(
		testDescriptor{"url", "https://example.com/tab", "tab.url"},
		testDescriptor{"url", "https://example.com/og", "meta.property.og:url"},
		testDescriptor{"url", "https://example.com/canonical", "link.canonical"},
	)
	want := []string{"https://example.com/canonical", "https://example.com/og", "https://example.com/tab"}
	if got := URLVariants(m); !reflect.DeepEqual(got, want) {
		t.Errorf("URLVariants() = %q, want %q", got, want)
	}
}

func TestPreferShort(t *testing.T) {
	long := &meta.Descriptor{Value: "a longer value"}
	short := &meta.Descriptor{Value: "short"}
	broken := &meta.Descriptor{Value: "x", Error: meta.Overflow(10)}
	empty := &meta.Descriptor{Value: ""}

	got := PreferShort([]*meta.Descriptor{broken, long, empty, short})
	want := []*meta.Descriptor{short, long, broken}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PreferShort() = %v, want %v", got, want)
	}
}

func TestProduct(t *testing.T) {
	tests := []struct {
		name   string
		entity []testDescriptor
		page   []testDescriptor
		want   string
	}{
		{
			name: "brand in title",
			entity: []testDescriptor{
				{"brand", "BrightPack", "microdata.Product.brand"},
				{"price", "$10.00", "microdata.Product.price"},
				{"availability", "OutOfStock", "microdata.Product.availability"},
			},
			page: []testDescriptor{{"title", "Backpack BrightPack v5 dark white 99 l", "microdata.Product.name"}},
			want: "Backpack BrightPack v5 dark white 99 l\u00a0\u2014 $10.00\u00a0\u2014 OutOfStock",
		},
		{
			name: "brand prepended",
			entity: []testDescriptor{
				{"brand", "Acme", "microdata.Product.brand"},
				{"aggregateRating", "4.5", "microdata.Product.aggregateRating"},
			},
			page: []testDescriptor{{"title", "Rocket skates", "microdata.Product.name"}},
			want: "Acme\u00a0\u2014 Rocket skates\u00a0\u2014 4.5",
		},
		{
			name:   "site name kept",
			entity: []testDescriptor{{"price", "5", "k"}},
			page: []testDescriptor{
				{"title", "Thing | Shop", "document.title"},
				{"site_name", "Shop", "meta.property.og:site_name"},
			},
			want: "Thing\u00a0\u2014 5\u00a0\u2014 Shop",
		},
		{
			name:   "description fallback",
			entity: []testDescriptor{{"price", "5", "k"}},
			page:   []testDescriptor{{"description", "A\nmultiline   description", "meta.name.description"}},
			want:   "A multiline description\u00a0\u2014 5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Product(newMeta(tt.entity...), newMeta(tt.page...)); got != tt.want {
				t.Errorf("Product() = %q, want %q", got, tt.want)
			}
		})
	}
}
