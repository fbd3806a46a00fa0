// Package metrics exposes Prometheus counters for filter compilation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docwhere"

// Metrics owns a private registry and the docwhere collectors
type Metrics struct {
	Registry *prometheus.Registry

	FiltersCompiled *prometheus.CounterVec
	Degradations    *prometheus.CounterVec
	CompileErrors   *prometheus.CounterVec
}

// New registers the docwhere counters on a fresh registry. Go runtime and
// process collectors are added when runtime is true.
func New(runtime bool) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		FiltersCompiled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filters_compiled_total",
			Help:      "Filters compiled, by collection.",
		}, []string{"collection"}),
		Degradations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filter_degradations_total",
			Help:      "Filter leaves compiled to always-false, by reason.",
		}, []string{"reason"}),
		CompileErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filter_errors_total",
			Help:      "Filters rejected during compilation, by collection.",
		}, []string{"collection"}),
	}
	reg.MustRegister(m.FiltersCompiled, m.Degradations, m.CompileErrors)
	if runtime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// ObserveCompile records the outcome of one compilation
func (m *Metrics) ObserveCompile(collection string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.CompileErrors.WithLabelValues(collection).Inc()
		return
	}
	m.FiltersCompiled.WithLabelValues(collection).Inc()
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Server returns an http server exposing /metrics on addr
func (m *Metrics) Server(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return &http.Server{Addr: addr, Handler: mux}
}
