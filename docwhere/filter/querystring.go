package filter

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// ParseQueryString parses bracket notation such as
//
//	where[attributes.title][like]=foo&where[or][0][tags][in_array]=a,b
//
// Parameters outside "where" are ignored. Repeated keys collect into an array,
// and "[]" appends. Without any where parameter the result is an empty And.
func ParseQueryString(raw string) (Expr, error) {
	raw = strings.TrimPrefix(raw, "?")
	root := map[string]any{}

	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, malformed("bad key %q: %v", k, err)
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return nil, malformed("bad value for %q: %v", key, err)
		}

		segs, err := LexKey(key)
		if err != nil {
			return nil, err
		}
		if segs[0] != keyWhere {
			continue
		}
		if len(segs) < 2 {
			return nil, malformed("%q has no field", key)
		}
		if err := insert(root, segs[1:], value, key); err != nil {
			return nil, err
		}
	}

	if len(root) == 0 {
		return And{}, nil
	}
	tree, ok := arrayify(root).(map[string]any)
	if !ok {
		return nil, malformed("where must be an object")
	}
	return FromMap(tree)
}

// keyLexer splits "a[b][c]" into segments
type keyLexer struct {
	input []rune
	pos   int
}

// LexKey splits a bracket key into its segments. "where[a.b][equals]" yields
// ["where", "a.b", "equals"].
func LexKey(key string) ([]string, error) {
	l := &keyLexer{input: []rune(key)}
	head := l.scanUntil('[')
	if head == "" {
		return nil, malformed("key %q has no root name", key)
	}
	segs := []string{head}
	for l.pos < len(l.input) {
		if l.input[l.pos] != '[' {
			return nil, malformed("key %q: unexpected character %q at %d", key, l.input[l.pos], l.pos)
		}
		l.pos++ // consume [
		seg := l.scanUntil(']')
		if l.pos >= len(l.input) {
			return nil, malformed("key %q: unterminated bracket", key)
		}
		l.pos++ // consume ]
		segs = append(segs, seg)
	}
	return segs, nil
}

func (l *keyLexer) scanUntil(stop rune) string {
	start := l.pos
	for l.pos < len(l.input) && l.input[l.pos] != stop {
		l.pos++
	}
	return string(l.input[start:l.pos])
}

func insert(node map[string]any, segs []string, value string, key string) error {
	seg := segs[0]
	if seg == "" {
		seg = strconv.Itoa(nextIndex(node))
	}

	if len(segs) == 1 {
		switch prev := node[seg].(type) {
		case nil:
			node[seg] = value
		case string:
			node[seg] = []any{prev, value}
		case []any:
			node[seg] = append(prev, value)
		default:
			return malformed("%q mixes a value with nested keys", key)
		}
		return nil
	}

	child, ok := node[seg].(map[string]any)
	if !ok {
		if node[seg] != nil {
			return malformed("%q mixes a value with nested keys", key)
		}
		child = map[string]any{}
		node[seg] = child
	}
	return insert(child, segs[1:], value, key)
}

func nextIndex(node map[string]any) int {
	n := 0
	for k := range node {
		if i, err := strconv.Atoi(k); err == nil && i >= n {
			n = i + 1
		}
	}
	return n
}

// arrayify turns maps whose keys are all non-negative integers into arrays
// ordered by index.
func arrayify(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	for k, child := range m {
		m[k] = arrayify(child)
	}
	if len(m) == 0 {
		return m
	}

	idx := make([]int, 0, len(m))
	for k := range m {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 {
			return m
		}
		idx = append(idx, i)
	}
	sort.Ints(idx)
	out := make([]any, 0, len(idx))
	for _, i := range idx {
		out = append(out, m[strconv.Itoa(i)])
	}
	return out
}

// QueryString renders an expression back into bracket notation. Values that are
// slices are joined with commas.
func QueryString(expr Expr) string {
	var parts []string
	appendQuery(&parts, "where", expr)
	return strings.Join(parts, "&")
}

func appendQuery(parts *[]string, prefix string, expr Expr) {
	switch e := expr.(type) {
	case And:
		for i, c := range e {
			appendQuery(parts, fmt.Sprintf("%s[and][%d]", prefix, i), c)
		}
	case Or:
		for i, c := range e {
			appendQuery(parts, fmt.Sprintf("%s[or][%d]", prefix, i), c)
		}
	case Leaf:
		key := fmt.Sprintf("%s[%s][%s]", prefix, e.Field, e.Operator)
		*parts = append(*parts, url.QueryEscape(key)+"="+url.QueryEscape(formatValue(e.Value)))
	}
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []any:
		s := make([]string, len(x))
		for i, item := range x {
			s[i] = fmt.Sprint(item)
		}
		return strings.Join(s, ",")
	case []string:
		return strings.Join(x, ",")
	default:
		return fmt.Sprint(x)
	}
}
