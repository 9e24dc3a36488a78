package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the submission pipeline.
type Metrics struct {
	// Submissions by outcome: accepted, invalid, not_found, forbidden, conflict, error
	Submissions *prometheus.CounterVec

	// Verification rejections by reason
	Rejections *prometheus.CounterVec

	SubmitLatency prometheus.Histogram

	EventPublishFailures prometheus.Counter
}

// New registers the feed metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "feedlog_submissions_total",
			Help: "Submissions by pipeline outcome",
		}, []string{"outcome"}),

		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "feedlog_verification_rejections_total",
			Help: "Envelopes rejected during identity verification, by reason",
		}, []string{"reason"}),

		SubmitLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "feedlog_submit_duration_seconds",
			Help:    "Duration of the submission pipeline from parse to commit",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		EventPublishFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "feedlog_event_publish_failures_total",
			Help: "Item events that could not be published after commit",
		}),
	}
}

func (m *Metrics) IncrementSubmission(outcome string) {
	if m != nil {
		m.Submissions.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementRejection(reason string) {
	if m != nil {
		m.Rejections.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) ObserveSubmitLatency(d time.Duration) {
	if m != nil {
		m.SubmitLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementPublishFailure() {
	if m != nil {
		m.EventPublishFailures.Inc()
	}
}
