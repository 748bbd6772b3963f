package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transition outcomes.
const (
	OutcomeApplied  = "applied"
	OutcomeNoop     = "noop"
	OutcomeRejected = "rejected"
)

// Reconciliation record results.
const (
	SyncResultCompleted    = "completed"
	SyncResultReverted     = "reverted"
	SyncResultProcessing   = "processing"
	SyncResultUnknown      = "unknown_status"
	SyncResultGatewayError = "gateway_error"
	SyncResultCreated      = "created"
	SyncResultSkipped      = "skipped"
)

var (
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pix_lifecycle",
			Name:      "transitions_total",
			Help:      "Lifecycle transitions by entity, transition and outcome.",
		},
		[]string{"entity", "transition", "outcome"},
	)
	SyncRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pix_lifecycle",
			Name:      "sync_records_total",
			Help:      "Records visited by reconciliation jobs.",
		},
		[]string{"job", "result"},
	)
	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pix_lifecycle",
			Name:      "sync_duration_seconds",
			Help:      "Duration of a reconciliation pass.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"job"},
	)
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pix_lifecycle",
			Name:      "events_published_total",
			Help:      "Domain events handed to the broker by topic and result.",
		},
		[]string{"topic", "result"},
	)
)

var GatewayCallsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "pix_lifecycle",
		Name:      "gateway_calls_total",
		Help:      "Outbound gateway calls by gateway, operation and result.",
	},
	[]string{"gateway", "operation", "result"},
)
