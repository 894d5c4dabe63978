// Vigia - Video Quality-of-Experience Telemetry SDK for Go
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: Apache-2.0
// https://github.com/vigialabs/vigia-go

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus self-instrumentation for the SDK.
// Hosts that expose a /metrics endpoint (like cmd/vigia-demo) get:
// - Heartbeat delivery outcomes and suppression counts
// - Event production per wire type
// - Flush batch sizes
// - Gateway circuit breaker state

var (
	// HeartbeatsSent counts heartbeat POST outcomes by result:
	// "ok", "backend_error", "transport_error".
	HeartbeatsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigia_heartbeats_sent_total",
			Help: "Total number of heartbeat POSTs by result",
		},
		[]string{"result"},
	)

	// HeartbeatsSuppressed counts heartbeats skipped because the device
	// was asleep, invisible, or in data-saver mode with nothing urgent.
	HeartbeatsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vigia_heartbeats_suppressed_total",
			Help: "Total number of heartbeats suppressed by device state",
		},
	)

	// EventsEnqueued counts events entering session queues by wire type.
	EventsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigia_events_enqueued_total",
			Help: "Total number of events enqueued by type",
		},
		[]string{"type"},
	)

	// FlushBatchSize observes how many events each heartbeat carried.
	FlushBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vigia_flush_batch_size",
			Help:    "Number of events drained per heartbeat",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
	)

	// SessionsActive tracks currently registered sessions.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vigia_sessions_active",
			Help: "Current number of registered sessions",
		},
	)

	// BreakerState mirrors the gateway circuit breaker state
	// (0=closed, 1=half-open, 2=open).
	BreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vigia_gateway_breaker_state",
			Help: "Gateway circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)
