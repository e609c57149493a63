package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the workflow counters. A nil *Metrics records nothing.
type Metrics struct {
	transitions       *prometheus.CounterVec
	decisions         *prometheus.CounterVec
	reviews           *prometheus.CounterVec
	rejections        *prometheus.CounterVec
	notifications     *prometheus.CounterVec
	integrityFailures prometheus.Counter
}

// NewMetrics creates the counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "journal_stage_transitions_total",
			Help: "Manuscript stage transitions by source stage, target stage and trigger",
		}, []string{"from", "to", "trigger"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "journal_decisions_total",
			Help: "Recorded editorial decisions by type",
		}, []string{"type"}),
		reviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "journal_review_status_changes_total",
			Help: "Review status changes by resulting status",
		}, []string{"status"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "journal_operation_rejections_total",
			Help: "Rejected workflow operations by operation and error kind",
		}, []string{"operation", "kind"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "journal_notifications_total",
			Help: "Notification deliveries by channel and outcome",
		}, []string{"channel", "outcome"}),
		integrityFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "journal_integrity_failures_total",
			Help: "Units of work whose decision and stage writes may have diverged",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.transitions, m.decisions, m.reviews, m.rejections, m.notifications, m.integrityFailures)
	}
	return m
}

func (m *Metrics) transition(from, to, trigger string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to, trigger).Inc()
}

func (m *Metrics) decision(t string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(t).Inc()
}

func (m *Metrics) reviewStatus(status string) {
	if m == nil {
		return
	}
	m.reviews.WithLabelValues(status).Inc()
}

func (m *Metrics) rejected(operation string, kind ErrorKind) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(operation, string(kind)).Inc()
	if kind == KindIntegrity {
		m.integrityFailures.Inc()
	}
}

func (m *Metrics) notification(channel, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(channel, outcome).Inc()
}
