package orgtree

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/dtnitsch/org-remark/pkg/meta"
	"github.com/dtnitsch/org-remark/pkg/orgbuf"
)

var reSpaces = regexp.MustCompile(`[\s\x{feff}]+`)

// PlainText renders elements as a single line without Org markup. Links
// are replaced by their descriptions or by the decoded URL.
func PlainText(elements ...any) string {
	var sb strings.Builder
	plainWalk(&sb, elements, 0)
	return strings.TrimSpace(reSpaces.ReplaceAllString(sb.String(), " "))
}

func plainWalk(sb *strings.Builder, element any, depth int) {
	if depth > MaxDepth {
		return
	}
	depth++
	switch e := element.(type) {
	case nil, headingMarker:
	case Link:
		if len(e.Description) > 0 {
			plainWalk(sb, e.Description, depth)
			return
		}
		href := e.Href
		if href == "" && e.Descriptor != nil {
			href = e.Descriptor.String()
		}
		if decoded, err := url.PathUnescape(href); err == nil {
			href = decoded
		}
		sb.WriteString(href)
	case Container:
		for _, child := range e {
			plainWalk(sb, child, depth)
		}
	case Nobreak:
		for _, child := range e {
			plainWalk(sb, child, depth)
		}
	case StateScope:
		for _, child := range e.Children {
			plainWalk(sb, child, depth)
		}
	case []any:
		for _, child := range e {
			plainWalk(sb, child, depth)
		}
	case []string:
		for _, child := range e {
			sb.WriteString(child)
		}
	case string:
		sb.WriteString(e)
	case orgbuf.Markup:
		sb.WriteString(string(e))
	case orgbuf.Marker:
		sb.WriteString(" ")
	case time.Time:
		sb.WriteString(orgbuf.FormatDate(e))
	case *time.Time:
		if e != nil {
			sb.WriteString(orgbuf.FormatDate(*e))
		}
	case fmt.Stringer:
		sb.WriteString(e.String())
	default:
		sb.WriteString(meta.ValueString(e))
	}
}
