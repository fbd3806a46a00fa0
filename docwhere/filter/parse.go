package filter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrMalformed is returned when the input does not follow the filter grammar
var ErrMalformed = errors.New("malformed filter")

const (
	keyAnd   = "and"
	keyOr    = "or"
	keyWhere = "where"
)

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

// ParseJSON parses a JSON filter document. A top-level {"where": {...}} wrapper is accepted.
func ParseJSON(data []byte) (Expr, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, malformed("filter must be a JSON object")
	}
	if inner, ok := m[keyWhere].(map[string]any); ok && len(m) == 1 {
		m = inner
	}
	return FromMap(m)
}

// FromMap converts the nested-object form into an Expr.
//
// A map with a single "and" or "or" key holding an array is a boolean group.
// Otherwise each key is a field path whose value is a single-key operator map;
// several field keys in one map are combined with AND in key order.
func FromMap(m map[string]any) (Expr, error) {
	return fromMap(m, "where")
}

func fromMap(m map[string]any, at string) (Expr, error) {
	if len(m) == 0 {
		return And{}, nil
	}

	if len(m) == 1 {
		for key, v := range m {
			if key == keyAnd || key == keyOr {
				return fromGroup(key, v, at+"."+key)
			}
		}
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	leaves := make(And, 0, len(keys))
	for _, key := range keys {
		if key == keyAnd || key == keyOr {
			group, err := fromGroup(key, m[key], at+"."+key)
			if err != nil {
				return nil, err
			}
			leaves = append(leaves, group)
			continue
		}
		leaf, err := fromLeaf(key, m[key], at)
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, leaf)
	}
	if len(leaves) == 1 {
		return leaves[0], nil
	}
	return leaves, nil
}

func fromGroup(key string, v any, at string) (Expr, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, malformed("%s must be an array, got %T", at, v)
	}
	children := make([]Expr, 0, len(items))
	for i, item := range items {
		child, ok := item.(map[string]any)
		if !ok {
			return nil, malformed("%s[%d] must be an object, got %T", at, i, item)
		}
		expr, err := fromMap(child, fmt.Sprintf("%s[%d]", at, i))
		if err != nil {
			return nil, err
		}
		children = append(children, expr)
	}
	if key == keyOr {
		return Or(children), nil
	}
	return And(children), nil
}

func fromLeaf(field string, v any, at string) (Leaf, error) {
	if field == "" {
		return Leaf{}, malformed("%s: empty field name", at)
	}
	ops, ok := v.(map[string]any)
	if !ok {
		return Leaf{}, malformed("%s.%s must be an operator object, got %T", at, field, v)
	}
	if len(ops) != 1 {
		return Leaf{}, malformed("%s.%s must hold exactly one operator, got %d", at, field, len(ops))
	}
	for op, raw := range ops {
		return Leaf{Field: field, Operator: op, Value: plainValue(raw)}, nil
	}
	return Leaf{}, nil
}

// plainValue replaces json.Number with int64 or float64, recursively in arrays
func plainValue(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = plainValue(item)
		}
		return out
	default:
		return v
	}
}
