package formatorg

import (
	"regexp"
	"time"

	"github.com/dtnitsch/org-remark/pkg/meta"
)

var (
	reISODateTime = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}`)
	reUSDateTime  = regexp.MustCompile(`^\d{2}/\d{2}/\d{4} \d{2}:\d{2}`)
)

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
}

var usLayouts = []string{
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
}

// parseDate returns an Org timestamp followed by the original text when
// value is recognized as a date. Numbers are milliseconds since epoch.
// Dates without a zone are read in the local time zone.
func (f *Formatter) parseDate(value any) []any {
	switch v := value.(type) {
	case nil:
		return nil
	case time.Time:
		return []any{v.In(f.location)}
	case float64:
		return []any{time.UnixMilli(int64(v)).In(f.location), " ", meta.ValueString(v)}
	case int64:
		return []any{time.UnixMilli(v).In(f.location), " ", meta.ValueString(v)}
	case int:
		return []any{time.UnixMilli(int64(v)).In(f.location), " ", meta.ValueString(v)}
	case string:
		var layouts []string
		switch {
		case reISODateTime.MatchString(v):
			layouts = isoLayouts
		case reUSDateTime.MatchString(v):
			layouts = usLayouts
		}
		for _, layout := range layouts {
			if t, err := time.ParseInLocation(layout, v, f.location); err == nil {
				return []any{t.In(f.location), " ", v}
			}
		}
		return []any{v}
	default:
		return []any{meta.ValueString(v)}
	}
}
