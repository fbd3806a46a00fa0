package operator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrInvalidValue is returned when a raw value cannot be used with its operator
var ErrInvalidValue = errors.New("invalid value for operator")

// Range is the normalized value of between and not_between
type Range struct {
	Lower any
	Upper any
}

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(T\d{2}:\d{2}:\d{2}(\.\d{3})?(Z|[+-]\d{2}:\d{2})?)?$`)

// Normalize converts a raw filter value into the form Apply expects
func (o Operator) Normalize(raw any) (any, error) {
	switch o.Kind {
	case KindSet:
		vals := Values(raw)
		for i, v := range vals {
			vals[i] = ParseDate(v)
		}
		return vals, nil

	case KindPattern:
		if raw == nil {
			return nil, fmt.Errorf("%w: %s needs a pattern", ErrInvalidValue, o.Name)
		}
		s := fmt.Sprint(raw)
		if !strings.Contains(s, "%") {
			s = "%" + s + "%"
		}
		return s, nil

	case KindRange:
		return normalizeRange(o.Name, raw)

	case KindNull:
		return truthy(raw), nil

	default:
		return ParseDate(raw), nil
	}
}

// Values flattens a raw value into a sequence. Strings are split on commas,
// sequences pass through and any other scalar becomes a single element.
func Values(raw any) []any {
	switch v := raw.(type) {
	case nil:
		return []any{}
	case []any:
		out := make([]any, len(v))
		copy(out, v)
		return out
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	case string:
		parts := strings.Split(v, ",")
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out
	default:
		return []any{v}
	}
}

// Unique is Values with duplicates removed, keeping first occurrences. Values
// are compared by their text form since relation ids are stored as text.
func Unique(raw any) []any {
	vals := Values(raw)
	seen := make(map[string]bool, len(vals))
	out := vals[:0]
	for _, v := range vals {
		key := fmt.Sprint(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

// ParseDate returns a UTC time.Time for ISO-8601 date strings and v unchanged otherwise
func ParseDate(v any) any {
	s, ok := v.(string)
	if !ok || !isoDate.MatchString(s) {
		return v
	}
	layout := "2006-01-02"
	switch {
	case len(s) == len(layout):
	case strings.HasSuffix(s, "Z") || strings.ContainsAny(s[len("2006-01-02T15:04:05"):], "+-"):
		layout = time.RFC3339Nano
	default:
		layout = "2006-01-02T15:04:05"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return v
	}
	return t.UTC()
}

func normalizeRange(name string, raw any) (Range, error) {
	var bounds []any
	switch v := raw.(type) {
	case string:
		bounds = Values(v)
	case []any, []string:
		bounds = Values(v)
	default:
		return Range{}, fmt.Errorf("%w: %s needs two bounds, got %T", ErrInvalidValue, name, raw)
	}
	if len(bounds) != 2 {
		return Range{}, fmt.Errorf("%w: %s needs two bounds, got %d", ErrInvalidValue, name, len(bounds))
	}
	return Range{Lower: ParseDate(bounds[0]), Upper: ParseDate(bounds[1])}, nil
}

func truthy(raw any) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(v) {
		case "false", "0", "no":
			return false
		}
	case int64:
		return v != 0
	case int:
		return v != 0
	}
	return true
}
