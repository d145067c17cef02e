package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OpenConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "realtime",
		Name:      "open_connections",
		Help:      "Open websocket connections, authenticated or not",
	})

	Sessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "realtime",
		Name:      "authenticated_sessions",
		Help:      "Identities with a live connection",
	})

	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "realtime",
		Name:      "active_rooms",
		Help:      "Rooms with at least one member",
	})

	EnvelopesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "realtime",
		Name:      "envelopes_received_total",
		Help:      "Inbound envelopes by kind",
	}, []string{"type"})

	ErrorsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "realtime",
		Name:      "errors_sent_total",
		Help:      "Error envelopes sent to clients by code",
	}, []string{"code"})

	DroppedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "realtime",
		Name:      "dropped_frames_total",
		Help:      "Outbound frames dropped because the connection was closed or its queue was full",
	})

	LivenessTerminations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "realtime",
		Name:      "liveness_terminations_total",
		Help:      "Connections terminated for missing a liveness ping",
	})

	HandlerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "realtime",
		Name:      "handler_duration_seconds",
		Help:      "Time spent handling one inbound envelope",
		Buckets:   prometheus.DefBuckets,
	}, []string{"type"})
)
