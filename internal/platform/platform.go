// Vigia - Video Quality-of-Experience Telemetry SDK for Go
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: Apache-2.0
// https://github.com/vigialabs/vigia-go

// Package platform isolates everything the SDK needs from its host
// environment behind small interfaces: wall-clock time, cancellable timers,
// HTTP transport, durable key-value storage, device metadata, and device
// power/visibility state. The engine only ever sees these interfaces; the
// production implementations live in this package too, and tests substitute
// fakes. Nothing here is a global.
package platform

import (
	"github.com/vigialabs/vigia-go/internal/logging"
	"github.com/vigialabs/vigia-go/internal/protocol"
)

// Callback delivers the result of an asynchronous operation. ok reports
// success; data carries the response body or loaded value on success and a
// diagnostic message on failure. Implementations of HTTPClient and Storage
// must invoke it exactly once per operation.
type Callback func(ok bool, data string)

// Clock supplies the current time in epoch milliseconds. Sessions stamp
// every event and heartbeat through it so tests can freeze time.
type Clock interface {
	NowMs() int64
}

// Timer is a scheduled task handle. Cancel stops future firings; it is safe
// to call more than once and after the task has fired.
type Timer interface {
	Cancel()
}

// Scheduler creates cancellable timers. Recurring fires fn every interval
// until cancelled; OnceAfter fires fn a single time. The name identifies
// the task in logs.
type Scheduler interface {
	Recurring(intervalMs int64, name string, fn func()) Timer
	OnceAfter(delayMs int64, name string, fn func()) Timer
}

// HTTPClient performs an HTTP exchange off the caller's goroutine and
// reports completion through cb. A nil cb is allowed for fire-and-forget
// requests.
type HTTPClient interface {
	Request(method, url, body, contentType string, cb Callback)
}

// Storage is an asynchronous durable key-value store. Keys are namespaced
// by the implementation; values are opaque strings. Completion is reported
// through cb off the caller's goroutine.
type Storage interface {
	Load(key string, cb Callback)
	Save(key, value string, cb Callback)
	Delete(key string, cb Callback)
}

// DeviceMetadata describes the immutable properties of the host device.
type DeviceMetadata interface {
	Info() protocol.DeviceInfo
}

// DeviceState exposes the live device conditions that gate telemetry:
// heartbeats and data samples are suppressed while the device sleeps, the
// application is invisible, or the user enabled data saving. Network
// properties feed the ct/le/ss heartbeat fields.
type DeviceState interface {
	InSleepingMode() bool
	IsVisible() bool
	DataSaverEnabled() bool
	ConnectionType() string
	LinkEncryption() string
	SignalStrengthDBm() int
}

// Bundle carries one of each platform adapter. The client builds it once at
// startup and threads it through every component.
type Bundle struct {
	Clock     Clock
	Scheduler Scheduler
	HTTP      HTTPClient
	Storage   Storage
	Device    DeviceMetadata
	State     DeviceState
	Guard     *Guard

	// LogBuffer, when set, retains recent log lines for heartbeats that
	// carry logs after the backend requests them.
	LogBuffer *logging.Buffer
}
