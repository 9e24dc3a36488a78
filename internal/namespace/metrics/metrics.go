package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the namespace registry.
type Metrics struct {
	// Registrations by outcome: created, updated, rejected, forbidden
	Registrations *prometheus.CounterVec

	// Lookups that found no namespace
	LookupMisses prometheus.Counter
}

// New registers the namespace metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Registrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "feedlog_namespace_registrations_total",
			Help: "Namespace register/update requests by outcome",
		}, []string{"outcome"}),

		LookupMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "feedlog_namespace_lookup_misses_total",
			Help: "Namespace lookups for issuers that are not registered",
		}),
	}
}

func (m *Metrics) IncrementRegistration(outcome string) {
	if m != nil {
		m.Registrations.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementLookupMiss() {
	if m != nil {
		m.LookupMisses.Inc()
	}
}
