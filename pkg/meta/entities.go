package meta

import (
	"regexp"
	"strconv"
)

var reEntity = regexp.MustCompile(`&([a-zA-Z]+|#[xX]?[0-9a-fA-F]+);`)

var namedEntities = map[string]string{
	"amp":    "&",
	"quot":   `"`,
	"apos":   "'",
	"gt":     ">",
	"hellip": "\u2026",
	"lt":     "<",
	"mdash":  "\u2014",
	"ndash":  "\u2013",
	"nbsp":   "\u00a0",
	"laquo":  "\u00ab",
	"raquo":  "\u00bb",
}

// charrefOverrides maps numeric references 0x80..0x9F to Windows-1252
// characters as HTML parsers do.
var charrefOverrides = [32]rune{
	0x20AC, 0x81, 0x201A, 0x0192, 0x201E, 0x2026, 0x2020, 0x2021,
	0x02C6, 0x2030, 0x0160, 0x2039, 0x0152, 0x8D, 0x017D, 0x8F,
	0x90, 0x2018, 0x2019, 0x201C, 0x201D, 0x2022, 0x2013, 0x2014,
	0x02DC, 0x2122, 0x0161, 0x203A, 0x0153, 0x9D, 0x017E, 0x0178,
}

// CharByCode returns the character of a numeric character reference.
func CharByCode(code int64) string {
	switch {
	case code > 0x10FFFF || code == 0 || code == 0x0D || code < 0:
		return "\uFFFD"
	case code >= 0x80 && code <= 0x9F:
		return string(charrefOverrides[code-0x80])
	}
	return string(rune(code))
}

func decodeEntity(match string) string {
	name := match[1 : len(match)-1]
	if name[0] == '#' {
		var code int64
		var err error
		if len(name) > 1 && (name[1] == 'x' || name[1] == 'X') {
			code, err = strconv.ParseInt(name[2:], 16, 64)
		} else {
			code, err = strconv.ParseInt(name[1:], 10, 64)
		}
		if err != nil {
			if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
				return "\uFFFD"
			}
			return match
		}
		return CharByCode(code)
	}
	if s, ok := namedEntities[name]; ok {
		return s
	}
	return match
}

// UnescapeEntities decodes the common named and all numeric HTML entities.
// In JSON mode decoded quotes and backslashes are escaped so the result
// stays valid inside JSON string literals.
func UnescapeEntities(s string, jsonMode bool) string {
	if s == "" {
		return s
	}
	return reEntity.ReplaceAllStringFunc(s, func(match string) string {
		decoded := decodeEntity(match)
		if jsonMode && decoded != match && (decoded == `"` || decoded == `\`) {
			return `\` + decoded
		}
		return decoded
	})
}
