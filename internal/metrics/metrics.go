package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Connections is the number of registered websocket connections.
	Connections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pomstud",
		Name:      "connections",
		Help:      "Live relay connections.",
	})

	// Rooms is the number of rooms with at least one member.
	Rooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pomstud",
		Name:      "rooms",
		Help:      "Live rooms.",
	})

	// Received counts inbound messages by event type.
	Received = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pomstud",
		Name:      "messages_received_total",
		Help:      "Inbound messages by event.",
	}, []string{"event"})

	// Sent counts messages queued for delivery by event type.
	Sent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pomstud",
		Name:      "messages_sent_total",
		Help:      "Outbound messages queued by event.",
	}, []string{"event"})

	// Dropped counts messages that were not delivered, by reason.
	Dropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pomstud",
		Name:      "messages_dropped_total",
		Help:      "Messages dropped by reason.",
	}, []string{"reason"})
)

// Drop reasons.
const (
	ReasonQueueFull     = "queue_full"
	ReasonUnknownTarget = "unknown_target"
	ReasonUnknownRoom   = "unknown_room"
	ReasonRateLimited   = "rate_limited"
	ReasonInvalid       = "invalid"
)

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
