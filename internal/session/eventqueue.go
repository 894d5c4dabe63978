// Vigia - Video Quality-of-Experience Telemetry SDK for Go
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: Apache-2.0
// https://github.com/vigialabs/vigia-go

package session

import (
	"sync"

	"github.com/vigialabs/vigia-go/internal/metrics"
)

// Event is one wire event: a free-form field map stamped with its type
// ("t"), its session-relative timestamp ("st") and its sequence number
// ("seq") on enqueue.
type Event map[string]any

// EventQueue buffers a session's events between heartbeats. Sequence
// numbers are monotonic per queue and survive flushes, so the backend can
// detect gaps across heartbeat batches.
type EventQueue struct {
	mu      sync.Mutex
	events  []Event
	nextSeq int
}

// NewEventQueue returns an empty queue with sequence numbers starting at 0.
func NewEventQueue() *EventQueue {
	return &EventQueue{}
}

// Enqueue stamps data with type, session time and the next sequence number,
// then appends it. The caller hands over ownership of data.
func (q *EventQueue) Enqueue(eventType string, data Event, sessionTimeMs int) {
	if data == nil {
		data = Event{}
	}
	data["t"] = eventType
	data["st"] = sessionTimeMs

	q.mu.Lock()
	data["seq"] = q.nextSeq
	q.nextSeq++
	q.events = append(q.events, data)
	q.mu.Unlock()

	metrics.EventsEnqueued.WithLabelValues(eventType).Inc()
}

// Size reports the number of buffered events.
func (q *EventQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Flush returns all buffered events and empties the queue in one step, so
// no concurrent Enqueue can land in both the returned batch and the queue.
// Sequence numbering continues where it left off.
func (q *EventQueue) Flush() []Event {
	q.mu.Lock()
	drained := q.events
	q.events = nil
	q.mu.Unlock()
	if drained == nil {
		drained = []Event{}
	}
	return drained
}
