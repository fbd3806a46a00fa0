package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromMapLeaf(t *testing.T) {
	expr, err := FromMap(map[string]any{
		"attributes.title": map[string]any{"like": "foo"},
	})
	require.NoError(t, err)
	assert.Equal(t, Leaf{Field: "attributes.title", Operator: "like", Value: "foo"}, expr)
}

func TestFromMapGroups(t *testing.T) {
	expr, err := FromMap(map[string]any{
		"or": []any{
			map[string]any{"title": map[string]any{"equals": "A"}},
			map[string]any{"and": []any{
				map[string]any{"title": map[string]any{"equals": "B"}},
				map[string]any{"tags": map[string]any{"in_array": []any{"t1"}}},
			}},
		},
	})
	require.NoError(t, err)

	or, ok := expr.(Or)
	require.True(t, ok, "expected Or, got %T", expr)
	require.Len(t, or, 2)
	assert.Equal(t, Leaf{Field: "title", Operator: "equals", Value: "A"}, or[0])

	and, ok := or[1].(And)
	require.True(t, ok)
	assert.Len(t, and, 2)
}

func TestFromMapSeveralFieldsAreAnded(t *testing.T) {
	expr, err := FromMap(map[string]any{
		"title":   map[string]any{"equals": "A"},
		"summary": map[string]any{"like": "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, And{
		Leaf{Field: "summary", Operator: "like", Value: "x"},
		Leaf{Field: "title", Operator: "equals", Value: "A"},
	}, expr)
}

func TestFromMapEmptyIsEmptyAnd(t *testing.T) {
	expr, err := FromMap(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, And{}, expr)
}

func TestFromMapMalformed(t *testing.T) {
	cases := map[string]map[string]any{
		"group not array":  {"and": map[string]any{"title": map[string]any{"equals": "A"}}},
		"child not object": {"or": []any{"title"}},
		"two operators":    {"title": map[string]any{"equals": "A", "like": "B"}},
		"no operator":      {"title": map[string]any{}},
		"scalar leaf":      {"title": "A"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromMap(in)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestParseJSONNumbersAndWrapper(t *testing.T) {
	expr, err := ParseJSON([]byte(`{"where":{"views":{"greater_than":10}}}`))
	require.NoError(t, err)
	assert.Equal(t, Leaf{Field: "views", Operator: "greater_than", Value: int64(10)}, expr)

	expr, err = ParseJSON([]byte(`{"rating":{"between":[1.5, 4]}}`))
	require.NoError(t, err)
	assert.Equal(t, Leaf{Field: "rating", Operator: "between", Value: []any{1.5, int64(4)}}, expr)
}

func TestParseJSONRejectsNonObject(t *testing.T) {
	_, err := ParseJSON([]byte(`[1,2]`))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = ParseJSON([]byte(`{`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestValidateLimits(t *testing.T) {
	deep := Expr(Leaf{Field: "a", Operator: "equals", Value: 1})
	for i := 0; i < 5; i++ {
		deep = And{deep}
	}
	assert.Equal(t, 6, Depth(deep))

	assert.NoError(t, Validate(deep, Limits{MaxDepth: 6}))
	assert.ErrorIs(t, Validate(deep, Limits{MaxDepth: 5}), ErrTooComplex)

	wide := Or{}
	for i := 0; i < 4; i++ {
		wide = append(wide, Leaf{Field: "a", Operator: "equals", Value: i})
	}
	assert.ErrorIs(t, Validate(wide, Limits{MaxLeaves: 3}), ErrTooComplex)
}

func TestValidateRejectsEmptySegments(t *testing.T) {
	err := Validate(Leaf{Field: "attributes..title", Operator: "equals", Value: "x"}, DefaultLimits())
	assert.ErrorIs(t, err, ErrMalformed)
}
