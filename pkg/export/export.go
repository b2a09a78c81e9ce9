// Package export turns a formatted capture into one of the output
// projections and delivers it.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/dtnitsch/org-remark/models"
	"github.com/dtnitsch/org-remark/pkg/meta"
	"gopkg.in/yaml.v3"
)

// Projection formats.
const (
	FormatOrg         = "org"
	FormatObject      = "object"
	FormatObjectYAML  = "object-yaml"
	FormatOrgProtocol = "org-protocol"
)

// Delivery methods.
const (
	MethodStdout      = "stdout"
	MethodFile        = "file"
	MethodOrgProtocol = "org-protocol"
)

// OrgProtocolCapture is the base of org-protocol capture links. A single
// slash keeps the subprotocol out of the host part.
const OrgProtocolCapture = "org-protocol:/capture"

var (
	ErrUnknownFormat = errors.New("unknown export format")
	ErrUnknownMethod = errors.New("unknown export method")
	ErrNoOutputPath  = errors.New("no output file specified")
)

// Capture is everything a projection may need.
type Capture struct {
	// Org is the org-mode projection of the capture.
	Org *models.Projection
	// Frames are the merged metadata of every captured frame.
	Frames []*meta.Meta
	// Template is the org-protocol capture template key.
	Template string
}

// Result is a serialized projection.
type Result struct {
	Format string
	Data   []byte
	// URL is set for formats that produce a link.
	URL string
}

// FormatFunc serializes a capture.
type FormatFunc func(c *Capture) (*Result, error)

// Target says where a method delivers the result.
type Target struct {
	Out  io.Writer
	Path string
}

// MethodFunc delivers a result.
type MethodFunc func(r *Result, t Target) error

// Registry maps format and method names to their implementations.
type Registry struct {
	formats map[string]FormatFunc
	methods map[string]MethodFunc
}

// NewRegistry returns a registry with the built-in formats and methods.
func NewRegistry() *Registry {
	r := &Registry{
		formats: make(map[string]FormatFunc),
		methods: make(map[string]MethodFunc),
	}
	r.RegisterFormat(FormatOrg, formatOrg)
	r.RegisterFormat(FormatObject, formatObject)
	r.RegisterFormat(FormatObjectYAML, formatObjectYAML)
	r.RegisterFormat(FormatOrgProtocol, formatOrgProtocol)
	r.RegisterMethod(MethodStdout, deliverStdout)
	r.RegisterMethod(MethodFile, deliverFile)
	r.RegisterMethod(MethodOrgProtocol, deliverOrgProtocol)
	return r
}

func (r *Registry) RegisterFormat(name string, fn FormatFunc) { r.formats[name] = fn }

func (r *Registry) RegisterMethod(name string, fn MethodFunc) { r.methods[name] = fn }

// Formats lists registered format names.
func (r *Registry) Formats() []string { return sortedKeys(r.formats) }

// Methods lists registered method names.
func (r *Registry) Methods() []string { return sortedKeys(r.methods) }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Format serializes c in the named format.
func (r *Registry) Format(name string, c *Capture) (*Result, error) {
	fn, ok := r.formats[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
	return fn(c)
}

// Deliver sends res with the named method.
func (r *Registry) Deliver(method string, res *Result, t Target) error {
	fn, ok := r.methods[method]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
	return fn(res, t)
}

func requireOrg(c *Capture) (*models.Projection, error) {
	if c == nil || c.Org == nil {
		return nil, errors.New("capture has no org projection")
	}
	return c.Org, nil
}

// formatOrg writes the heading text as is. Title and URL are kept in the
// result for methods that need them.
func formatOrg(c *Capture) (*Result, error) {
	p, err := requireOrg(c)
	if err != nil {
		return nil, err
	}
	return &Result{Format: FormatOrg, Data: []byte(ensureNewline(p.Body)), URL: p.URL}, nil
}

type objectDump struct {
	Projection *models.Projection `json:"projection,omitempty" yaml:"projection,omitempty"`
	Frames     []any              `json:"frames" yaml:"frames"`
}

func dump(c *Capture) (*objectDump, error) {
	d := &objectDump{Frames: make([]any, 0, len(c.Frames))}
	if c.Org != nil {
		d.Projection = c.Org
	}
	for i, m := range c.Frames {
		frame, err := m.ToMap()
		if err != nil {
			return nil, fmt.Errorf("failed to convert frame %d: %w", i, err)
		}
		d.Frames = append(d.Frames, frame)
	}
	return d, nil
}

// formatObject dumps the merged descriptors as JSON.
func formatObject(c *Capture) (*Result, error) {
	if c == nil {
		return nil, errors.New("empty capture")
	}
	d, err := dump(c)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode capture: %w", err)
	}
	return &Result{Format: FormatObject, Data: append(data, '\n')}, nil
}

func formatObjectYAML(c *Capture) (*Result, error) {
	if c == nil {
		return nil, errors.New("empty capture")
	}
	d, err := dump(c)
	if err != nil {
		return nil, err
	}
	data, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to encode capture: %w", err)
	}
	return &Result{Format: FormatObjectYAML, Data: data}, nil
}

func formatOrgProtocol(c *Capture) (*Result, error) {
	p, err := requireOrg(c)
	if err != nil {
		return nil, err
	}
	link := OrgProtocolURL(c.Template, p)
	return &Result{Format: FormatOrgProtocol, Data: []byte(link + "\n"), URL: link}, nil
}

// OrgProtocolURL builds an org-protocol capture link. Empty parameters are
// omitted. Spaces are encoded as %20 since older org-protocol handlers do
// not decode "+".
func OrgProtocolURL(template string, p *models.Projection) string {
	params := [][2]string{
		{"template", template},
		{"url", p.URL},
		{"title", p.Title},
		{"body", p.Body},
	}
	var query []string
	for _, kv := range params {
		if kv[1] == "" {
			continue
		}
		value := strings.ReplaceAll(url.QueryEscape(kv[1]), "+", "%20")
		query = append(query, kv[0]+"="+value)
	}
	if len(query) == 0 {
		return OrgProtocolCapture
	}
	return OrgProtocolCapture + "?" + strings.Join(query, "&")
}

func ensureNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

func deliverStdout(r *Result, t Target) error {
	out := t.Out
	if out == nil {
		out = os.Stdout
	}
	if _, err := out.Write(r.Data); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}

func deliverFile(r *Result, t Target) error {
	if t.Path == "" {
		return ErrNoOutputPath
	}
	if err := os.WriteFile(t.Path, r.Data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", t.Path, err)
	}
	return nil
}

// deliverOrgProtocol prints the link for an external handler. Only
// results that carry an org-protocol link are accepted.
func deliverOrgProtocol(r *Result, t Target) error {
	if r.Format != FormatOrgProtocol || r.URL == "" {
		return fmt.Errorf("method %s requires format %s, got %s", MethodOrgProtocol, FormatOrgProtocol, r.Format)
	}
	return deliverStdout(&Result{Format: r.Format, Data: []byte(r.URL + "\n")}, t)
}
