// Package metrics provides Prometheus instrumentation for the chat service.
// It exposes gauges for connection and room counts, counters for message and
// presence throughput, and a histogram for persistence latency.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectionsActive tracks the current number of active WebSocket connections.
	ConnectionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_connections_active",
		Help: "Current number of active WebSocket connections",
	})

	// MessagesTotal counts messages processed by the relay, labeled by
	// outcome: "relayed", "rejected", or "failed".
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_messages_total",
		Help: "Total number of chat messages processed",
	}, []string{"outcome"}) // outcome = "relayed", "rejected", "failed"

	// PersistLatency records message persistence latency in seconds.
	PersistLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "chat_message_persist_latency_seconds",
		Help:    "Message persistence latency in seconds",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	})

	// PresenceEvents counts presence transitions, labeled "online" or "offline".
	PresenceEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_presence_events_total",
		Help: "Total number of presence transitions broadcast",
	}, []string{"state"}) // state = "online", "offline"

	// RoomsActive tracks the current number of rooms with at least one member.
	RoomsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_rooms_active",
		Help: "Current number of rooms with at least one member",
	})

	// TypingEvents counts typing indicator broadcasts, labeled "start" or "stop".
	TypingEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_typing_events_total",
		Help: "Total number of typing indicator broadcasts",
	}, []string{"kind"}) // kind = "start", "stop"
)

func init() {
	prometheus.MustRegister(
		ConnectionsActive,
		MessagesTotal,
		PersistLatency,
		PresenceEvents,
		RoomsActive,
		TypingEvents,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
