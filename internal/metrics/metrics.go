// Package metrics defines and registers all custom Prometheus metrics for the
// courier tracking service. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation and exposed by the /metrics route.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tracking"

// ── Ingestion metrics ─────────────────────────────────────────────────────────

// PositionsSubmittedTotal counts reports persisted by the ingestion service.
var PositionsSubmittedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "positions_submitted_total",
		Help:      "Total number of position reports persisted.",
	},
)

// PositionsRejectedTotal counts submissions that were not persisted.
// Label:
//   - reason: "validation", "store" or "in_progress"
var PositionsRejectedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "positions_rejected_total",
		Help:      "Total number of position submissions rejected before persistence.",
	},
	[]string{"reason"},
)

// PositionsReplayedTotal counts submissions answered from the idempotency store.
var PositionsReplayedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "positions_replayed_total",
		Help:      "Total number of position submissions replayed by idempotency key.",
	},
)

// SubmitDuration measures persistence plus publish of a single submission.
var SubmitDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "submit_duration_seconds",
		Help:      "Duration of a position submission from validation to publish.",
		Buckets:   prometheus.DefBuckets,
	},
)

// ── Broadcast hub metrics ─────────────────────────────────────────────────────

// HubSubscribers tracks the number of live subscriptions.
var HubSubscribers = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "hub_subscribers",
		Help:      "Current number of live feed subscribers.",
	},
)

// HubDeliveriesTotal counts per-subscriber delivery outcomes.
// Label:
//   - result: "delivered", "failed" or "dropped" (subscriber lagging)
var HubDeliveriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "hub_deliveries_total",
		Help:      "Total number of per-subscriber event deliveries, by result.",
	},
	[]string{"result"},
)

// HubEvictionsTotal counts subscribers removed by the hub itself.
// Label:
//   - reason: "delivery_failed", "stalled" or "overflow"
var HubEvictionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "hub_evictions_total",
		Help:      "Total number of subscribers evicted by the hub.",
	},
	[]string{"reason"},
)

// ── HTTP metrics ──────────────────────────────────────────────────────────────

// RateLimitedTotal counts requests rejected by the per-client rate limiter.
var RateLimitedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Total number of requests rejected with 429.",
	},
)

// ForwardedTotal counts events republished to the message queue.
// Label:
//   - result: "ok" or "error"
var ForwardedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "forwarded_total",
		Help:      "Total number of position events forwarded to NSQ, by result.",
	},
	[]string{"result"},
)

// ForwarderResubscribesTotal counts forwarder subscriptions renewed after the
// hub evicted the forwarder.
var ForwarderResubscribesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "forwarder_resubscribes_total",
		Help:      "Total number of times the NSQ forwarder resubscribed to the hub.",
	},
)
