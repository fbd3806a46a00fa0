package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	msgs []string
}

func (c *captured) Warn(msg string, _ error, _ ...map[string]interface{}) {
	c.msgs = append(c.msgs, msg)
}

func value(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestSinkCountsByReason(t *testing.T) {
	m := New(false)
	next := &captured{}
	s := Sink{Metrics: m, Next: next}

	s.Warn("a", nil, map[string]interface{}{"reason": "unresolved_field"})
	s.Warn("b", nil, map[string]interface{}{"reason": "unresolved_field"})
	s.Warn("c", nil)

	assert.Equal(t, float64(2), value(t, m.Degradations.WithLabelValues("unresolved_field")))
	assert.Equal(t, float64(1), value(t, m.Degradations.WithLabelValues("unknown")))
	assert.Equal(t, []string{"a", "b", "c"}, next.msgs)
}

func TestSinkWithoutMetricsForwards(t *testing.T) {
	next := &captured{}
	Sink{Next: next}.Warn("only", nil)
	assert.Equal(t, []string{"only"}, next.msgs)
}

func TestObserveCompile(t *testing.T) {
	m := New(false)
	m.ObserveCompile("articles", nil)
	m.ObserveCompile("articles", nil)
	m.ObserveCompile("articles", errors.New("bad"))

	assert.Equal(t, float64(2), value(t, m.FiltersCompiled.WithLabelValues("articles")))
	assert.Equal(t, float64(1), value(t, m.CompileErrors.WithLabelValues("articles")))

	var nilMetrics *Metrics
	nilMetrics.ObserveCompile("articles", nil)
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New(false)
	m.ObserveCompile("pages", nil)

	rec := httptest.NewRecorder()
	m.Server(":0").Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `docwhere_filters_compiled_total{collection="pages"} 1`), body)
}
