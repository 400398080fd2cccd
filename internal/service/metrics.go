package service

import (
	"github.com/prometheus/client_golang/prometheus"

	"signapi/internal/apperr"
)

// Metrics are the domain counters of the signing service.
type Metrics struct {
	fieldTransitions    *prometheus.CounterVec
	recipientsCompleted *prometheus.CounterVec
	envelopesCompleted  prometheus.Counter
	failures            *prometheus.CounterVec
}

// NewMetrics creates and registers the signing counters on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		fieldTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signing_field_transitions_total",
				Help: "Field insert and un-insert transitions committed.",
			},
			[]string{"type", "action"},
		),
		recipientsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signing_recipients_completed_total",
				Help: "Recipients that completed signing.",
			},
			[]string{"role"},
		),
		envelopesCompleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "signing_envelopes_completed_total",
				Help: "Envelopes transitioned to COMPLETED.",
			},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signing_failures_total",
				Help: "Rejected or failed signing operations by error kind.",
			},
			[]string{"operation", "kind"},
		),
	}
	for _, c := range []prometheus.Collector{m.fieldTransitions, m.recipientsCompleted, m.envelopesCompleted, m.failures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) fieldTransition(fieldType, action string) {
	if m == nil {
		return
	}
	m.fieldTransitions.WithLabelValues(fieldType, action).Inc()
}

func (m *Metrics) recipientCompleted(role string) {
	if m == nil {
		return
	}
	m.recipientsCompleted.WithLabelValues(role).Inc()
}

func (m *Metrics) envelopeCompleted() {
	if m == nil {
		return
	}
	m.envelopesCompleted.Inc()
}

func (m *Metrics) failure(operation string, err error) {
	if m == nil || err == nil {
		return
	}
	kind := string(apperr.KindOf(err))
	if kind == "" {
		kind = "INTERNAL"
	}
	m.failures.WithLabelValues(operation, kind).Inc()
}
