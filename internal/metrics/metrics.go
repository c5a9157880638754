// Package metrics defines the Prometheus collectors for the real-time
// broadcast subsystem. All collectors are registered on the default registry
// and exposed via /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Connection lifecycle metrics
var (
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_active_connections",
		Help: "Number of registered WebSocket connections.",
	})

	ActiveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_active_subscriptions",
		Help: "Number of live topic subscriptions across all connections.",
	})

	ConnectionsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_connections_rejected_total",
			Help: "Connections rejected before registration, by reason.",
		},
		[]string{"reason"},
	)
)

// Broadcast metrics
var (
	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_broadcasts_total",
			Help: "Broadcast calls by event type.",
		},
		[]string{"event_type"},
	)

	EnvelopesSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "realtime_envelopes_sent_total",
		Help: "Envelopes successfully enqueued to subscriber connections.",
	})

	SendFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "realtime_send_failures_total",
		Help: "Per-connection send failures detected during fan-out.",
	})

	BroadcastDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "realtime_broadcast_duration_seconds",
		Help:    "Duration of one broadcast fan-out pass.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
	})

	BroadcastsSuppressedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "realtime_broadcasts_suppressed_total",
		Help: "Canonical broadcasts skipped because broadcasting was disabled.",
	})
)

// Hook bus metrics
var (
	HookInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_hook_invocations_total",
			Help: "Custom hook invocations by event name and status.",
		},
		[]string{"event", "status"},
	)
)

// Client frame metrics
var (
	ClientFramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_client_frames_total",
			Help: "Inbound client frames by frame type.",
		},
		[]string{"type"},
	)

	InvalidFramesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "realtime_invalid_frames_total",
		Help: "Inbound frames that failed to decode or carried an unknown type.",
	})
)

// Writer metrics
var (
	MessageSendDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "realtime_message_send_duration_seconds",
		Help:    "Duration of a single WebSocket write.",
		Buckets: prometheus.DefBuckets,
	})

	PingFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "realtime_ping_failures_total",
		Help: "Keepalive pings that failed to write.",
	})

	IdleDisconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "realtime_idle_disconnects_total",
		Help: "Connections dropped after exceeding the idle timeout.",
	})
)

// Redis relay metrics
var (
	RelayPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_relay_published_total",
			Help: "Envelopes published to the cross-instance relay, by status.",
		},
		[]string{"status"},
	)

	RelayReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "realtime_relay_received_total",
		Help: "Foreign envelopes received from the relay and re-delivered locally.",
	})

	RedisOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_redis_operations_total",
			Help: "Redis operations by command and status.",
		},
		[]string{"operation", "status"},
	)

	RedisOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "realtime_redis_operation_duration_seconds",
			Help:    "Redis operation latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "realtime_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open).",
		},
		[]string{"component"},
	)

	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions by component and new state.",
		},
		[]string{"component", "state"},
	)
)
