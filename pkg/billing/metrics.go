package billing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registered on the default Prometheus registry and exposed by the /metrics endpoint.
var (
	gateDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotagate_gate_decisions_total",
			Help: "Usage gate decisions by outcome and deny reason.",
		},
		[]string{"outcome", "reason"},
	)

	reconcileResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotagate_reconcile_results_total",
			Help: "Provider reconciliation results by trigger.",
		},
		[]string{"trigger", "result"},
	)

	webhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotagate_webhook_events_total",
			Help: "Webhook events by normalized type and handling status.",
		},
		[]string{"type", "status"},
	)

	sweepDowngradesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotagate_sweep_downgrades_total",
			Help: "Forced downgrades performed by the reconciliation sweep.",
		},
		[]string{"reason"},
	)

	sweepFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotagate_sweep_failures_total",
			Help: "Per-subscription failures during the reconciliation sweep.",
		},
		[]string{"pass"},
	)
)
