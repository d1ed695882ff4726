package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics tracks the outbox publisher's row outcomes.
type OutboxMetrics struct {
	rows    *prometheus.CounterVec
	batches prometheus.Counter
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	m := &OutboxMetrics{
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outbox_rows_total",
			Help: "Outbox rows handled by the publisher, by event type and result.",
		}, []string{"event_type", "result"}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "outbox_batch_errors_total",
			Help: "Publisher batches aborted by a database error.",
		}),
	}
	reg.MustRegister(m.rows, m.batches)
	return m
}

// IncRow records one row result: published, retry or terminal.
func (m *OutboxMetrics) IncRow(eventType, result string) {
	if m == nil || m.rows == nil {
		return
	}
	m.rows.WithLabelValues(eventType, result).Inc()
}

func (m *OutboxMetrics) IncBatchError() {
	if m == nil || m.batches == nil {
		return
	}
	m.batches.Inc()
}
