package gateway

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics are registered on a per-server registry so several servers can
// coexist in one process.
type metrics struct {
	registry     *prometheus.Registry
	requests     *prometheus.CounterVec
	lintDuration prometheus.Histogram
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sqlgate_gateway_requests_total",
			Help: "Lint requests by outcome.",
		}, []string{"outcome"}),
		lintDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sqlgate_linter_duration_seconds",
			Help:    "Wall time of external linter invocations.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
	}
	m.registry.MustRegister(
		m.requests,
		m.lintDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
