// Package metrics provides Prometheus metrics for the realtime gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "corkboard_realtime"

// Stream metrics
var (
	// StreamsActive tracks currently open SSE streams by scope
	// ("project" or "global").
	StreamsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sse",
			Name:      "streams_active",
			Help:      "Number of currently open event streams",
		},
		[]string{"scope"},
	)

	// StreamsRejected counts stream requests rejected before opening,
	// by reason ("user_limit", "project_limit", "membership").
	StreamsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sse",
			Name:      "streams_rejected_total",
			Help:      "Total stream requests rejected during admission",
		},
		[]string{"reason"},
	)

	// FramesDropped counts event frames dropped because a client's
	// write buffer was full.
	FramesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sse",
			Name:      "frames_dropped_total",
			Help:      "Total event frames dropped on slow client buffers",
		},
	)
)

// Bus metrics
var (
	// EventsEmitted counts events published on the bus by family.
	EventsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "events_emitted_total",
			Help:      "Total events emitted on the event bus",
		},
		[]string{"family"},
	)
)
