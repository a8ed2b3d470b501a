// Package fields normalizes front matter values and formats them for paths
// and sort keys.
package fields

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
)

// DefaultTimeFormat is used for time placeholders that carry no format.
const DefaultTimeFormat = "%Y/%m/%d"

var (
	// ErrMultiValued is returned when a list is used where one value is needed.
	ErrMultiValued = errors.New("multi-valued field has no single representation")
	// ErrUnsupported is returned for values that cannot appear in a path.
	ErrUnsupported = errors.New("unsupported field value")
	// ErrBadFormat is returned when a number format does not fit the value.
	ErrBadFormat = errors.New("invalid number format")
)

// Normalize converts a decoded YAML value into one of the field types used
// throughout the pipeline: string, int, float64, bool, time.Time, []string
// or map[string]any. Sequences become ordered sets of strings.
func Normalize(v any) any {
	switch vv := v.(type) {
	case []any:
		items := make([]string, 0, len(vv))
		for _, item := range vv {
			items = append(items, stringify(item))
		}
		return OrderedSet(items)
	case []string:
		return OrderedSet(vv)
	case int64:
		return int(vv)
	case uint64:
		return int(vv)
	case float32:
		return float64(vv)
	case map[string]any:
		out := make(map[string]any, len(vv))
		for k, val := range vv {
			out[k] = Normalize(val)
		}
		return out
	default:
		return v
	}
}

// OrderedSet trims items, drops empty ones and removes duplicates keeping
// the first occurrence.
func OrderedSet(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

// ToList turns a value into an ordered set. Strings are split on sep.
func ToList(v any, sep string) ([]string, error) {
	switch vv := v.(type) {
	case nil:
		return []string{}, nil
	case string:
		if sep == "" {
			return OrderedSet([]string{vv}), nil
		}
		if trimmed := strings.TrimSpace(sep); trimmed != "" {
			sep = trimmed
		}
		return OrderedSet(strings.Split(vv, sep)), nil
	case []string:
		return OrderedSet(vv), nil
	case []any:
		return Normalize(vv).([]string), nil
	case int, float64, bool:
		return []string{stringify(vv)}, nil
	default:
		return nil, fmt.Errorf("%w: cannot use %T as a list", ErrUnsupported, v)
	}
}

var isoLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

// ParseTime converts a value into a time. Strings are parsed with the
// strftime format, falling back to ISO 8601 timestamps.
func ParseTime(v any, format string) (time.Time, error) {
	switch vv := v.(type) {
	case time.Time:
		return vv, nil
	case string:
		s := strings.TrimSpace(vv)
		t, err := strftime.Parse(format, s)
		if err == nil {
			return t, nil
		}
		// YAML timestamps reach us as strings when decoded into any.
		for _, layout := range isoLayouts {
			if iso, isoErr := time.Parse(layout, s); isoErr == nil {
				return iso, nil
			}
		}
		return time.Time{}, fmt.Errorf("time %q does not match %q: %w", vv, format, err)
	default:
		return time.Time{}, fmt.Errorf("%w: cannot use %T as a time", ErrUnsupported, v)
	}
}

// IsMulti reports whether v is a multi-valued field.
func IsMulti(v any) bool {
	_, ok := v.([]string)
	return ok
}

// Format renders a single-valued field. Times use strftime, numbers accept
// fmt verbs (e.g. "%03d"), everything else ignores format.
func Format(v any, format string) (string, error) {
	switch vv := v.(type) {
	case time.Time:
		if format == "" {
			format = DefaultTimeFormat
		}
		return strftime.Format(format, vv), nil
	case int, float64:
		if format != "" {
			out := fmt.Sprintf(format, vv)
			if strings.Contains(out, "%!") {
				return "", fmt.Errorf("%w: %q for %v", ErrBadFormat, format, vv)
			}
			return out, nil
		}
		return stringify(vv), nil
	case string, bool:
		return stringify(vv), nil
	case []string:
		return "", ErrMultiValued
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupported, v)
	}
}

// Compare orders two field values. Values of the same kind compare
// naturally; mixed kinds compare by kind first so the order stays total.
func Compare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch av := a.(type) {
	case time.Time:
		return av.Compare(b.(time.Time))
	case int, float64:
		return cmp.Compare(number(a), number(b))
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	case []string:
		return strings.Compare(strings.Join(av, "\x00"), strings.Join(b.([]string), "\x00"))
	default:
		return strings.Compare(stringify(a), stringify(b))
	}
}

func rank(v any) int {
	switch v.(type) {
	case bool:
		return 0
	case int, float64:
		return 1
	case time.Time:
		return 2
	case string:
		return 3
	case []string:
		return 4
	default:
		return 5
	}
}

func number(v any) float64 {
	switch vv := v.(type) {
	case int:
		return float64(vv)
	case float64:
		return vv
	default:
		return math.NaN()
	}
}

func stringify(v any) string {
	switch vv := v.(type) {
	case string:
		return vv
	case int:
		return strconv.Itoa(vv)
	case int64:
		return strconv.FormatInt(vv, 10)
	case float64:
		return strconv.FormatFloat(vv, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(vv)
	case time.Time:
		return vv.Format(time.RFC3339)
	case nil:
		return ""
	default:
		return fmt.Sprint(vv)
	}
}

// String renders any field value for display.
func String(v any) string {
	if list, ok := v.([]string); ok {
		return strings.Join(list, ", ")
	}
	return stringify(v)
}
