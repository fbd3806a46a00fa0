package operator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func normalize(t *testing.T, name string, raw any) any {
	t.Helper()
	op, err := Default().Lookup(name)
	require.NoError(t, err)
	v, err := op.Normalize(raw)
	require.NoError(t, err)
	return v
}

func TestParseDate(t *testing.T) {
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), ParseDate("2024-03-01"))
	assert.Equal(t, time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC), ParseDate("2024-03-01T10:20:30"))
	assert.Equal(t, time.Date(2024, 3, 1, 10, 20, 30, 123e6, time.UTC), ParseDate("2024-03-01T10:20:30.123Z"))
	assert.Equal(t, time.Date(2024, 3, 1, 8, 20, 30, 0, time.UTC), ParseDate("2024-03-01T10:20:30+02:00"))

	assert.Equal(t, "2024-3-1", ParseDate("2024-3-1"))
	assert.Equal(t, "2024-13-45", ParseDate("2024-13-45"))
	assert.Equal(t, int64(2024), ParseDate(int64(2024)))
}

func TestNormalizeCompare(t *testing.T) {
	assert.Equal(t, "A", normalize(t, Equals, "A"))
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), normalize(t, "gte", "2020-01-01"))
}

func TestNormalizeSet(t *testing.T) {
	assert.Equal(t, []any{"a", "b"}, normalize(t, InArray, "a,b"))
	assert.Equal(t, []any{"a"}, normalize(t, InArray, "a"))
	assert.Equal(t, []any{"a", "b,c"}, normalize(t, NotInArray, []any{"a", "b,c"}))
	assert.Equal(t, []any{int64(7)}, normalize(t, InArray, int64(7)))
}

func TestNormalizePattern(t *testing.T) {
	assert.Equal(t, "%foo%", normalize(t, Like, "foo"))
	assert.Equal(t, "foo%", normalize(t, NotLike, "foo%"))
	assert.Equal(t, "%2024-01-01%", normalize(t, ILike, "2024-01-01"))

	op, err := Default().Lookup(Like)
	require.NoError(t, err)
	_, err = op.Normalize(nil)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestNormalizeRange(t *testing.T) {
	assert.Equal(t, Range{Lower: "1", Upper: "5"}, normalize(t, Between, "1,5"))
	assert.Equal(t, Range{
		Lower: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Upper: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
	}, normalize(t, NotBetween, []any{"2020-01-01", "2021-01-01"}))

	op, err := Default().Lookup(Between)
	require.NoError(t, err)
	for _, bad := range []any{"1", "1,2,3", int64(4), []any{1}} {
		_, err := op.Normalize(bad)
		assert.ErrorIs(t, err, ErrInvalidValue, "value %v", bad)
	}
}

func TestUnique(t *testing.T) {
	assert.Equal(t, []any{"t1", "t2"}, Unique("t1,t2,t1"))
	assert.Equal(t, []any{"t1", int64(1)}, Unique([]any{"t1", int64(1), "t1", int64(1)}))
	assert.Equal(t, []any{}, Unique(nil))
	assert.Equal(t, []any{int64(1)}, Unique([]any{int64(1), "1", float64(1)}))
}
