package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docgate", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docgate", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	Operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docgate", Name: "operations_total", Help: "Document operations by kind and outcome."},
		[]string{"op", "outcome"},
	)
	AuthDenied = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "docgate", Name: "authorization_denied_total", Help: "Operations rejected for missing account-level grants."},
	)
	BatchSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "docgate", Name: "batch_items_skipped_total", Help: "Batch write items skipped over a foreign account."},
	)
	TrashOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docgate", Name: "trash_operations_total", Help: "Trash vault operations by kind."},
		[]string{"op"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(Operations)
	reg.MustRegister(AuthDenied)
	reg.MustRegister(BatchSkipped)
	reg.MustRegister(TrashOps)
}
