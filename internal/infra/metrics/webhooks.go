package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		webhookNotificationsTotal,
		webhookSideEffectFailures,
		webhookFetchLatencyMs,
	)
}

var (
	webhookNotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_notifications_total",
			Help: "Processor notifications by outcome (applied/duplicate/unmatched/ignored/upstream_error).",
		},
		[]string{"outcome"},
	)

	webhookSideEffectFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_side_effect_failures_total",
			Help: "Completion side-effect sub-steps that failed after the status write (step/substep label).",
		},
		[]string{"step"},
	)

	webhookFetchLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "webhook_payment_fetch_latency_ms",
			Help:    "Latency of the authoritative payment fetch from the processor.",
			Buckets: []float64{25, 50, 100, 200, 400, 800, 1600, 3000, 5000},
		},
	)
)

func IncWebhookNotification(outcome string) {
	webhookNotificationsTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncWebhookSideEffectFailure(step string) {
	webhookSideEffectFailures.WithLabelValues(norm(step)).Inc()
}

func ObservePaymentFetchLatency(ms float64) {
	webhookFetchLatencyMs.Observe(ms)
}
