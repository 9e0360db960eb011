package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jrsteele09/go-auth-login/login"
)

// Metrics counts login outcomes on a registry of its own.
type Metrics struct {
	registry *prometheus.Registry
	outcomes *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "login",
			Name:      "outcomes_total",
			Help:      "Terminal outcomes of login flow passes by provider, outcome and failure kind.",
		}, []string{"provider", "outcome", "kind"}),
	}
	m.registry.MustRegister(
		m.outcomes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Observe records one outcome.
func (m *Metrics) Observe(providerKey string, outcome login.Outcome) {
	kind := ""
	if outcome.Kind == login.OutcomeFailure {
		kind = login.KindLabel(outcome.Err)
	}
	m.outcomes.WithLabelValues(providerKey, outcome.Kind.String(), kind).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
