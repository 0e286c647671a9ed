package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Relay direction labels.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

var (
	relayedMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_messages_total",
			Help: "Total number of routed messages labeled by direction, payload kind and outcome",
		},
		[]string{"direction", "kind", "outcome"},
	)
	relayDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_duration_seconds",
			Help:    "Duration of message routing in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"direction"},
	)
	topicsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_topics_created_total",
			Help: "Total number of forum topics created for first-contact users",
		},
	)
	ackNoticesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_ack_notices_total",
			Help: "Total number of acknowledgement notices sent to users",
		},
	)
	updatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Total number of bot updates handled labeled by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)
	updateDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bot_update_duration_seconds",
			Help:    "Duration of bot update handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
	rateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_rate_limited_total",
			Help: "Total number of updates rejected by the flood limiter",
		},
	)
)

// RecordRelay counts one routed message and observes its duration.
func RecordRelay(direction, kind, outcome string, duration time.Duration) {
	if kind == "" {
		kind = "none"
	}

	relayedMessagesTotal.WithLabelValues(direction, kind, outcome).Inc()
	relayDurationSeconds.WithLabelValues(direction).Observe(duration.Seconds())
}

// RecordTopicCreated counts one created forum topic.
func RecordTopicCreated() {
	topicsCreatedTotal.Inc()
}

// RecordAckNotice counts one acknowledgement notice sent to a user.
func RecordAckNotice() {
	ackNoticesTotal.Inc()
}

// RecordUpdate counts one handled bot update and observes its duration.
func RecordUpdate(endpoint, status string, duration time.Duration) {
	updatesTotal.WithLabelValues(endpoint, status).Inc()
	updateDurationSeconds.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordRateLimited counts one update rejected by the flood limiter.
func RecordRateLimited() {
	rateLimitedTotal.Inc()
}
