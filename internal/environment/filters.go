package environment

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"time"

	"github.com/ncruces/go-strftime"
	"github.com/yuin/goldmark"
)

// Preset names a set of filters loaded into every environment of a factory
type Preset string

const (
	// PresetNone loads no filters
	PresetNone Preset = ""
	// PresetSheer loads the date and markdown filters of Sheer sites
	PresetSheer Preset = "sheer"
)

// DefaultDateFormat is the strftime layout of the date filter
const DefaultDateFormat = "%Y-%m-%d"

// ErrUnknownPreset is returned for an unsupported filter preset
var ErrUnknownPreset = fmt.Errorf("unknown filter preset")

// dateLayouts are tried in order when the date filter receives a string
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	time.RFC1123Z,
	time.RFC1123,
}

// PresetFilters returns the filters of preset
func PresetFilters(preset Preset) (map[string]Filter, error) {
	switch preset {
	case PresetNone:
		return map[string]Filter{}, nil
	case PresetSheer:
		return map[string]Filter{
			"date":     DateFilter,
			"markdown": MarkdownFilter,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownPreset, preset)
	}
}

// DateFilter formats a date with a strftime layout. The value may be a
// time.Time, a date string or Unix seconds. The optional arguments are the
// layout (default DefaultDateFormat) and an IANA time zone the date is
// converted to.
func DateFilter(value any, args ...any) (any, error) {
	t, err := toTime(value)
	if err != nil {
		return nil, err
	}

	format := DefaultDateFormat
	if len(args) > 0 && args[0] != nil {
		format = fmt.Sprint(args[0])
	}
	if len(args) > 1 && args[1] != nil {
		loc, err := time.LoadLocation(fmt.Sprint(args[1]))
		if err != nil {
			return nil, fmt.Errorf("date filter: %w", err)
		}
		t = t.In(loc)
	}
	return strftime.Format(format, t), nil
}

// MarkdownFilter renders Markdown text to HTML. The result is marked safe
// for html/template.
func MarkdownFilter(value any, args ...any) (any, error) {
	var src string
	if value != nil {
		src = fmt.Sprint(value)
	}
	var out bytes.Buffer
	if err := goldmark.Convert([]byte(src), &out); err != nil {
		return nil, fmt.Errorf("markdown filter: %w", err)
	}
	return template.HTML(out.String()), nil
}

func toTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		if v != nil {
			return *v, nil
		}
	case int:
		return time.Unix(int64(v), 0).UTC(), nil
	case int64:
		return time.Unix(v, 0).UTC(), nil
	case float64:
		return time.Unix(int64(v), 0).UTC(), nil
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Unix(n, 0).UTC(), nil
		}
		return time.Time{}, fmt.Errorf("date filter: unrecognized date %q", v)
	}
	return time.Time{}, fmt.Errorf("date filter: unsupported value %T", value)
}
