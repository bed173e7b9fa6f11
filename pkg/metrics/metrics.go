// Package metrics exposes Prometheus collectors for routing activity.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "agent_router"

// Route outcomes.
const (
	OutcomeMatched   = "matched"
	OutcomeNoMatch   = "no_match"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

// Metrics holds the router collectors. It implements discovery.Observer.
type Metrics struct {
	routes        *prometheus.CounterVec
	routeDuration prometheus.Histogram
	agents        *prometheus.GaugeVec
}

// MustNewMetrics creates and registers the collectors on reg, panicking on a
// registration conflict. Collectors already registered with the same
// descriptors are reused.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		routes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "routes_total",
				Help:      "Routing decisions by winning strategy and outcome.",
			},
			[]string{"strategy", "outcome"},
		),
		routeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "route_duration_seconds",
				Help:      "Time spent walking the strategy chain.",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
		),
		agents: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "agents",
				Help:      "Pooled agents by health state.",
			},
			[]string{"state"},
		),
	}

	m.routes = register(reg, m.routes)
	m.routeDuration = register(reg, m.routeDuration)
	m.agents = register(reg, m.agents)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// ObserveDiscovery records one strategy walk.
func (m *Metrics) ObserveDiscovery(strategy string, matched bool, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeNoMatch
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = OutcomeCancelled
	case err != nil:
		outcome = OutcomeError
	case matched:
		outcome = OutcomeMatched
	}
	if strategy == "" {
		strategy = "none"
	}
	m.routes.WithLabelValues(strategy, outcome).Inc()
	m.routeDuration.Observe(elapsed.Seconds())
}

// SetAgents reports the current pool composition.
func (m *Metrics) SetAgents(healthy, unhealthy int) {
	if m == nil {
		return
	}
	m.agents.WithLabelValues("healthy").Set(float64(healthy))
	m.agents.WithLabelValues("unhealthy").Set(float64(unhealthy))
}
