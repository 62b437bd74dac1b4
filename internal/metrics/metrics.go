package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SendsTotal counts every gateway send attempt by notification category
	// and terminal outcome (sent / failed).
	SendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_sends_total",
			Help: "Push gateway send attempts by category and outcome",
		},
		[]string{"category", "status"},
	)

	// SendDuration observes wall-clock time of one gateway send.
	SendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "push_send_duration_seconds",
			Help:    "Push gateway send duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~10s
		},
	)

	// DispatchesTotal counts dispatch invocations by outcome: ok, empty
	// audience, or aborted at audience resolution.
	DispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_dispatches_total",
			Help: "Notification dispatches by outcome",
		},
		[]string{"outcome"},
	)

	// TokensDeactivated counts self-healing deactivations of tokens the
	// gateway reported permanently invalid.
	TokensDeactivated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "push_tokens_deactivated_total",
			Help: "Device tokens deactivated after permanent gateway failures",
		},
	)

	// StaleTokensSwept counts tokens retired by the retention sweeper.
	StaleTokensSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "push_stale_tokens_swept_total",
			Help: "Device tokens deactivated by the retention sweeper",
		},
	)
)
