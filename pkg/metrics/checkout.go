package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Settlement outcomes used as label values.
const (
	OutcomeSettled           = "settled"
	OutcomeReplayed          = "replayed"
	OutcomeVerificationError = "verification_failed"
	OutcomeInsufficientStock = "insufficient_stock"
	OutcomeFailed            = "failed"
)

// CheckoutMetrics tracks settlement outcomes and payment gateway calls.
type CheckoutMetrics struct {
	settlements *prometheus.CounterVec
	settleTime  prometheus.Histogram
	gateway     *prometheus.CounterVec
	gatewayTime *prometheus.HistogramVec
}

// NewCheckoutMetrics registers checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "settlements_total",
		Help:      "Settlement attempts by outcome.",
	}, []string{"outcome"})
	settleTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "settlement_duration_seconds",
		Help:      "Wall time of settlement calls.",
		Buckets:   prometheus.DefBuckets,
	})
	gateway := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gateway_requests_total",
		Help:      "Payment gateway calls by operation and outcome.",
	}, []string{"operation", "outcome"})
	gatewayTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "gateway_request_duration_seconds",
		Help:      "Latency of payment gateway calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(settlements, settleTime, gateway, gatewayTime)
	return &CheckoutMetrics{
		settlements: settlements,
		settleTime:  settleTime,
		gateway:     gateway,
		gatewayTime: gatewayTime,
	}
}

// ObserveSettlement records one settlement call.
func (m *CheckoutMetrics) ObserveSettlement(outcome string, duration time.Duration) {
	if m == nil || m.settlements == nil {
		return
	}
	m.settlements.WithLabelValues(normalizeLabel(outcome)).Inc()
	m.settleTime.Observe(duration.Seconds())
}

// ObserveGateway records one gateway call.
func (m *CheckoutMetrics) ObserveGateway(operation string, err error, duration time.Duration) {
	if m == nil || m.gateway == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.gateway.WithLabelValues(normalizeLabel(operation), outcome).Inc()
	m.gatewayTime.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}
