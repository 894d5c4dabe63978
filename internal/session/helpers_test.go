// Vigia - Video Quality-of-Experience Telemetry SDK for Go
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: Apache-2.0
// https://github.com/vigialabs/vigia-go

package session

import (
	"sync"

	"github.com/vigialabs/vigia-go/internal/platform"
	"github.com/vigialabs/vigia-go/internal/protocol"
)

// testClock is a manually advanced clock.
type testClock struct {
	mu sync.Mutex
	ms int64
}

func (c *testClock) NowMs() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ms
}

func (c *testClock) Advance(deltaMs int64) {
	c.mu.Lock()
	c.ms += deltaMs
	c.mu.Unlock()
}

// manualTimer fires only when the test says so.
type manualTimer struct {
	mu         sync.Mutex
	name       string
	intervalMs int64
	fn         func()
	cancelled  bool
}

func (t *manualTimer) Cancel() {
	t.mu.Lock()
	t.cancelled = true
	t.mu.Unlock()
}

func (t *manualTimer) fire() {
	t.mu.Lock()
	cancelled := t.cancelled
	fn := t.fn
	t.mu.Unlock()
	if !cancelled {
		fn()
	}
}

// manualScheduler records timers without running them.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (s *manualScheduler) Recurring(intervalMs int64, name string, fn func()) platform.Timer {
	return s.add(intervalMs, name, fn)
}

func (s *manualScheduler) OnceAfter(delayMs int64, name string, fn func()) platform.Timer {
	return s.add(delayMs, name, fn)
}

func (s *manualScheduler) add(intervalMs int64, name string, fn func()) *manualTimer {
	t := &manualTimer{name: name, intervalMs: intervalMs, fn: fn}
	s.mu.Lock()
	s.timers = append(s.timers, t)
	s.mu.Unlock()
	return t
}

func (s *manualScheduler) last() *manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.timers) == 0 {
		return nil
	}
	return s.timers[len(s.timers)-1]
}

// httpCall is one recorded request.
type httpCall struct {
	method      string
	url         string
	body        string
	contentType string
	cb          platform.Callback
}

// recordingHTTP captures requests and optionally answers them in line.
type recordingHTTP struct {
	mu       sync.Mutex
	calls    []httpCall
	respond  bool
	ok       bool
	response string
}

func (h *recordingHTTP) Request(method, url, body, contentType string, cb platform.Callback) {
	h.mu.Lock()
	h.calls = append(h.calls, httpCall{method, url, body, contentType, cb})
	respond, ok, resp := h.respond, h.ok, h.response
	h.mu.Unlock()
	if respond && cb != nil {
		cb(ok, resp)
	}
}

func (h *recordingHTTP) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

func (h *recordingHTTP) lastCall() httpCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls[len(h.calls)-1]
}

func (h *recordingHTTP) snapshot() []httpCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]httpCall(nil), h.calls...)
}

// memStorage is a synchronous in-memory Storage.
type memStorage struct {
	mu     sync.Mutex
	values map[string]string
	// manual defers Load callbacks until flushLoads, to model slow storage.
	manual  bool
	pending []func()
}

func newMemStorage() *memStorage {
	return &memStorage{values: map[string]string{}}
}

func (s *memStorage) Load(key string, cb platform.Callback) {
	s.mu.Lock()
	v := s.values[key]
	if s.manual {
		s.pending = append(s.pending, func() { cb(true, v) })
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	cb(true, v)
}

func (s *memStorage) Save(key, value string, cb platform.Callback) {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
	if cb != nil {
		cb(true, "")
	}
}

func (s *memStorage) Delete(key string, cb platform.Callback) {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
	if cb != nil {
		cb(true, "")
	}
}

func (s *memStorage) flushLoads() {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
}

// testDeviceState is a mutable DeviceState fake, visible by default.
type testDeviceState struct {
	mu             sync.Mutex
	sleeping       bool
	visible        bool
	dataSaver      bool
	connectionType string
	linkEncryption string
	signalDBm      int
}

func newTestDeviceState() *testDeviceState {
	return &testDeviceState{visible: true}
}

func (d *testDeviceState) InSleepingMode() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sleeping
}

func (d *testDeviceState) IsVisible() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.visible
}

func (d *testDeviceState) DataSaverEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dataSaver
}

func (d *testDeviceState) ConnectionType() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connectionType
}

func (d *testDeviceState) LinkEncryption() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.linkEncryption
}

func (d *testDeviceState) SignalStrengthDBm() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.signalDBm
}

func (d *testDeviceState) set(fn func(*testDeviceState)) {
	d.mu.Lock()
	fn(d)
	d.mu.Unlock()
}

// testDeviceMetadata reports a fixed device description.
type testDeviceMetadata struct{}

func (testDeviceMetadata) Info() protocol.DeviceInfo {
	return protocol.DeviceInfo{
		OSVersion:    "test-1.0",
		Brand:        "vigia",
		Manufacturer: "vigia",
		Model:        "bench",
		Type:         protocol.DeviceTypeSettop,
	}
}

// testMeasurements returns fixed readings.
type testMeasurements struct {
	pht int64
	bl  int
	ss  float64
	fps int
}

func (m *testMeasurements) PlayHeadTimeMs() int64   { return m.pht }
func (m *testMeasurements) BufferLengthMs() int     { return m.bl }
func (m *testMeasurements) SignalStrength() float64 { return m.ss }
func (m *testMeasurements) FrameRate() int          { return m.fps }

// testEnv bundles a fully faked platform around a factory.
type testEnv struct {
	clock    *testClock
	sched    *manualScheduler
	http     *recordingHTTP
	storage  *memStorage
	state    *testDeviceState
	cfg      *ClientConfig
	settings *ClientSettings
	bundle   platform.Bundle
	factory  *Factory
}

func newTestEnv() *testEnv {
	e := &testEnv{
		clock:   &testClock{ms: 1_000_000},
		sched:   &manualScheduler{},
		http:    &recordingHTTP{respond: true, ok: true, response: `{"err":"ok","clid":"12345"}`},
		storage: newMemStorage(),
		state:   newTestDeviceState(),
	}
	e.bundle = platform.Bundle{
		Clock:     e.clock,
		Scheduler: e.sched,
		HTTP:      e.http,
		Storage:   e.storage,
		Device:    testDeviceMetadata{},
		State:     e.state,
	}
	e.cfg = NewClientConfig(e.storage)
	e.cfg.Load()
	e.settings, _ = NewClientSettings("TESTKEY")
	e.factory = NewFactory(e.cfg, e.settings, e.bundle, 777)
	return e
}

func contentMetadata() *ContentMetadata {
	return &ContentMetadata{
		AssetName:       "Big Buck Bunny",
		ApplicationName: "VigiaDemo",
		ViewerID:        "viewer-1",
		StreamURL:       "https://cdn.example.com/bbb.m3u8",
		StreamType:      StreamTypeVOD,
		Duration:        596,
		Custom:          map[string]string{"genre": "animation"},
	}
}
