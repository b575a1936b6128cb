package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outbox delivery outcomes used as label values.
const (
	OutboxPublished    = "published"
	OutboxRetry        = "retry"
	OutboxDeadLettered = "dead_lettered"
)

// OutboxMetrics tracks how outbox rows leave the database.
type OutboxMetrics struct {
	events    *prometheus.CounterVec
	batchTime prometheus.Histogram
}

// NewOutboxMetrics registers the publisher metrics on the provided registerer.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_events_total",
		Help:      "Outbox rows handled by event type and outcome.",
	}, []string{"event_type", "outcome"})
	batchTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "outbox_batch_duration_seconds",
		Help:      "Wall time of one claimed outbox batch.",
		Buckets:   prometheus.DefBuckets,
	})
	reg.MustRegister(events, batchTime)
	return &OutboxMetrics{events: events, batchTime: batchTime}
}

// ObserveEvent counts one handled row.
func (m *OutboxMetrics) ObserveEvent(eventType, outcome string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// ObserveBatch records how long a claimed batch took.
func (m *OutboxMetrics) ObserveBatch(duration time.Duration) {
	if m == nil || m.batchTime == nil {
		return
	}
	m.batchTime.Observe(duration.Seconds())
}
