package orgbuf

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

// ErrNotURL is returned by SafeURL for text that can not be a link target.
var ErrNotURL = errors.New("not a URL")

// Characters that Org may read as emphasis or link delimiters.
const unsafeURLChars = "[]{}()!\\"

// SafeURL returns href in a form suitable for the target part of an Org
// link. Characters that could start emphasis or close the link are
// percent encoded, brackets of an IPv6 host are escaped with backslashes.
func SafeURL(href string) (string, error) {
	if strings.TrimSpace(href) == "" {
		return "", ErrNotURL
	}
	u, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("failed to parse link target: %w", err)
	}
	if u.Scheme == "" {
		return "", fmt.Errorf("%w: no scheme in %q", ErrNotURL, href)
	}

	hostStart, hostEnd := ipv6HostRange(href)
	var sb strings.Builder
	for i := 0; i < len(href); i++ {
		c := href[i]
		switch {
		case (i == hostStart || i == hostEnd) && hostStart >= 0:
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c == '-' && ((i > 0 && href[i-1] == '=') || (i+1 < len(href) && href[i+1] == '=')):
			sb.WriteString("%2D")
		case c <= ' ' || c >= 0x7f || strings.IndexByte(unsafeURLChars, c) >= 0:
			fmt.Fprintf(&sb, "%%%02X", c)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String(), nil
}

// ipv6HostRange returns byte offsets of the brackets around an IPv6 host
// literal or -1, -1.
func ipv6HostRange(href string) (int, int) {
	schemeEnd := strings.Index(href, "://")
	if schemeEnd < 0 {
		return -1, -1
	}
	start := schemeEnd + 3
	authority := href[start:]
	if end := strings.IndexAny(authority, "/?#"); end >= 0 {
		authority = authority[:end]
	}
	if at := strings.LastIndexByte(authority, '@'); at >= 0 {
		start += at + 1
		authority = authority[at+1:]
	}
	if !strings.HasPrefix(authority, "[") {
		return -1, -1
	}
	closing := strings.IndexByte(authority, ']')
	if closing < 0 {
		return -1, -1
	}
	return start, start + closing
}

// ReadableURL returns href percent decoded when the result is valid UTF-8
// and shortened with an ellipsis in the middle to at most limit characters
// when limit is positive. The result is safe for the description part of
// an Org link.
func ReadableURL(href string, limit int) string {
	text := href
	if decoded, err := url.PathUnescape(href); err == nil && utf8.ValidString(decoded) {
		text = decoded
	}
	if runes := []rune(text); limit > 0 && len(runes) > limit {
		available := limit - 1
		tail := (available + 2) / 3
		text = string(runes[:available-tail]) + "\u2026" + string(runes[len(runes)-tail:])
	}
	if strings.HasSuffix(text, "]") && !strings.HasSuffix(text, "]]") {
		text += ZeroWidthSpace
	}
	return EscapeBrackets(text)
}
