// Vigia - Video Quality-of-Experience Telemetry SDK for Go
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: Apache-2.0
// https://github.com/vigialabs/vigia-go

package session

import (
	"sync"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/vigialabs/vigia-go/internal/logging"
	"github.com/vigialabs/vigia-go/internal/metrics"
	"github.com/vigialabs/vigia-go/internal/platform"
	"github.com/vigialabs/vigia-go/internal/protocol"
)

// Session owns one monitored playback: its event queue, its monitor, and
// the heartbeat loop that ships both to the gateway. A global session has
// no monitor and only heartbeats when it holds events.
type Session struct {
	mu  sync.Mutex
	log zerolog.Logger

	key         int
	internalID  int32
	instanceID  int32
	sessionType SessionType

	metadata *ContentMetadata
	queue    *EventQueue
	monitor  *Monitor
	cfg      *ClientConfig
	settings *ClientSettings
	bundle   platform.Bundle

	seq         int
	startTimeMs int64
	hbTimer     platform.Timer
	cleanedUp   bool
}

// NewSession wires a session together. monitor is nil for global sessions.
func NewSession(key int, internalID, instanceID int32, sessionType SessionType,
	metadata *ContentMetadata, queue *EventQueue, monitor *Monitor,
	cfg *ClientConfig, settings *ClientSettings, bundle platform.Bundle) *Session {
	return &Session{
		log:         logging.Module("Session").Session(internalID),
		key:         key,
		internalID:  internalID,
		instanceID:  instanceID,
		sessionType: sessionType,
		metadata:    metadata,
		queue:       queue,
		monitor:     monitor,
		cfg:         cfg,
		settings:    settings,
		bundle:      bundle,
	}
}

// Key returns the public session key handed to the integrator.
func (s *Session) Key() int { return s.key }

// InternalID returns the random wire id reported as sid.
func (s *Session) InternalID() int32 { return s.internalID }

// Type returns what this session monitors.
func (s *Session) Type() SessionType { return s.sessionType }

// IsGlobal reports whether this is the client-wide event session.
func (s *Session) IsGlobal() bool { return s.sessionType == SessionTypeGlobal }

// Monitor exposes the playback monitor; nil for global sessions.
func (s *Session) Monitor() *Monitor { return s.monitor }

// Start begins the session lifecycle: stamps the epoch, starts the
// monitor, arms the heartbeat timer, and fires the first heartbeat as soon
// as the client config is ready.
func (s *Session) Start() {
	now := s.bundle.Clock.NowMs()
	s.mu.Lock()
	s.startTimeMs = now
	s.seq = 0
	s.mu.Unlock()

	s.log.Info().Int("key", s.key).Msg("session started")

	if s.monitor != nil {
		s.monitor.Start(now)
		s.monitor.SetDefaultBitrateAndResource()
	}

	// The timer waits for the config load with the first heartbeat, so a
	// tick cannot race the load and lose the backend's client id.
	begin := func() {
		s.SendHeartbeat()
		s.createHBTimer()
	}
	if s.cfg.IsReady() {
		begin()
	} else {
		s.cfg.Register(begin)
	}
}

// AttachPlayer binds a player tracker to the session's monitor.
func (s *Session) AttachPlayer(t *PlayerTracker) {
	if s.monitor != nil {
		s.monitor.AttachPlayer(t)
	}
}

// DetachPlayer unbinds the current player tracker.
func (s *Session) DetachPlayer() {
	if s.monitor != nil {
		s.monitor.DetachPlayer()
	}
}

// ContentPreload tells the monitor buffering has started ahead of intent
// to play.
func (s *Session) ContentPreload() {
	if s.monitor != nil {
		s.monitor.ContentPreload()
	}
}

// ContentStart tells the monitor the viewer actually started the content.
func (s *Session) ContentStart() {
	if s.monitor != nil {
		s.monitor.ContentStart()
	}
}

// AdStart applies the monitor's ad suppression overlay.
func (s *Session) AdStart(stream AdStream, player AdPlayer, position AdPosition) {
	if s.monitor != nil {
		s.monitor.AdStart(stream, player, position)
	}
}

// AdEnd lifts the monitor's ad suppression overlay.
func (s *Session) AdEnd() {
	if s.monitor != nil {
		s.monitor.AdEnd()
	}
}

// ReportError enqueues a playback error against the session.
func (s *Session) ReportError(code string, severity ErrorSeverity) {
	if s.monitor != nil {
		s.monitor.OnError(StreamerError{Code: code, Severity: severity})
	}
}

// UpdateContentMetadata merges new metadata into the session.
func (s *Session) UpdateContentMetadata(md *ContentMetadata) {
	if s.monitor != nil {
		s.monitor.OnContentMetadataUpdate(md)
	}
}

// SendCustomEvent enqueues an application-defined event. Attribute values
// reach the wire as given; the codec decides their representation.
func (s *Session) SendCustomEvent(name string, attributes map[string]any) {
	s.enqueueEvent(protocol.EventCustom, Event{"name": name, "attr": attributes})
}

func (s *Session) enqueueEvent(eventType string, data Event) {
	s.queue.Enqueue(eventType, data, s.sessionTimeMs())
}

func (s *Session) sessionTimeMs() int {
	s.mu.Lock()
	start := s.startTimeMs
	s.mu.Unlock()
	return int(s.bundle.Clock.NowMs() - start)
}

// SendHeartbeat ships one heartbeat if the session has something worth
// saying and the device allows it. Heartbeats with pending events are
// urgent and bypass the sleeping and visibility suppression; data saver
// suppresses even urgent ones.
func (s *Session) SendHeartbeat() {
	s.mu.Lock()
	done := s.cleanedUp
	s.mu.Unlock()
	if done {
		return
	}
	s.sendHeartbeat()
}

// sendHeartbeat skips the cleanedUp gate so Cleanup can flush the final
// heartbeat after marking the session dead.
func (s *Session) sendHeartbeat() {
	urgent := s.queue.Size() > 0
	if s.IsGlobal() && !urgent {
		return
	}

	if s.monitor != nil {
		s.monitor.RefreshNetworkMetrics()
	}

	if st := s.bundle.State; st != nil {
		if (!urgent && (st.InSleepingMode() || !st.IsVisible())) || st.DataSaverEnabled() {
			s.log.Debug().Bool("urgent", urgent).Msg("heartbeat suppressed by device state")
			metrics.HeartbeatsSuppressed.Inc()
			return
		}
	}

	hb := s.makeHeartbeat()
	body, err := json.Marshal(hb)
	if err != nil {
		s.log.Error().Err(err).Msg("encode heartbeat failed")
		return
	}

	url := s.settings.GatewayURL() + protocol.GatewayPath
	s.log.Debug().Str("url", url).Int("seq", hb["seq"].(int)).Msg("posting heartbeat")
	s.bundle.HTTP.Request("POST", url, string(body), "application/json", s.onHeartbeatResponse)
}

// makeHeartbeat drains the queue and assembles the wire payload.
func (s *Session) makeHeartbeat() map[string]any {
	events := s.queue.Flush()
	metrics.FlushBatchSize.Observe(float64(len(events)))

	now := s.bundle.Clock.NowMs()

	s.mu.Lock()
	seq := s.seq
	s.seq++
	start := s.startTimeMs
	s.mu.Unlock()

	hb := map[string]any{
		"t":    protocol.EventHeartbeat,
		"evs":  events,
		"cid":  s.settings.CustomerKey(),
		"clid": s.cfg.ClientID(),
		"sid":  s.internalID,
		"seq":  seq,
		"pver": protocol.Version,
		"clv":  protocol.ClientVersion,
		"iid":  s.instanceID,
		"sdk":  true,
		"st":   int(now - start),
		"sst":  start,
		"caps": 0,
	}
	if s.sessionType == SessionTypeAd {
		hb["ad"] = true
	}

	if s.bundle.Device != nil {
		hb["pm"] = protocol.BuildPlatformMetadata(s.bundle.Device.Info())
	}

	if s.monitor != nil {
		s.monitor.UpdateHeartbeat(hb)
	} else {
		hb["sf"] = 0
	}

	if s.cfg.SendLogs() && s.bundle.LogBuffer != nil {
		hb["lg"] = s.bundle.LogBuffer.Lines()
	}
	return hb
}

// onHeartbeatResponse applies backend directives: an adopted client id is
// persisted, and gateway, interval and log-shipping overrides take effect
// for every later heartbeat.
func (s *Session) onHeartbeatResponse(ok bool, data string) {
	if !ok {
		metrics.HeartbeatsSent.WithLabelValues("transport_error").Inc()
		s.log.Warn().Str("error", data).Msg("heartbeat POST failed")
		return
	}

	var resp map[string]any
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		metrics.HeartbeatsSent.WithLabelValues("transport_error").Inc()
		s.log.Error().Err(err).Msg("decode heartbeat response failed")
		return
	}

	result := "ok"
	if errMsg, ok := resp["err"].(string); ok && errMsg != protocol.BackendResponseNoErrors {
		result = "backend_error"
		s.log.Warn().Str("err", errMsg).Msg("backend reported an error")
	}
	metrics.HeartbeatsSent.WithLabelValues(result).Inc()

	if clid, ok := resp["clid"].(string); ok &&
		clid != "" && clid != "null" && clid != protocol.DefaultClientID &&
		clid != s.cfg.ClientID() {
		s.log.Info().Str("clientID", clid).Msg("adopting client id from backend")
		s.cfg.SetClientID(clid)
		s.cfg.Save()
	}

	cfg, ok := resp["cfg"].(map[string]any)
	if !ok {
		return
	}
	if slg, ok := cfg["slg"].(bool); ok {
		s.cfg.SetSendLogs(slg)
	}
	if hbi, ok := cfg["hbi"].(float64); ok {
		if int(hbi) != s.settings.HeartbeatIntervalSec() {
			s.log.Info().Int("seconds", int(hbi)).Msg("backend changed heartbeat interval")
			s.settings.SetHeartbeatIntervalSec(int(hbi))
			s.createHBTimer()
		}
	}
	if gw, ok := cfg["gw"].(string); ok && gw != s.settings.GatewayURL() {
		s.log.Info().Str("url", gw).Msg("backend changed gateway URL")
		s.settings.SetGatewayURL(gw)
	}
}

// createHBTimer arms the recurring heartbeat timer, replacing any existing
// one so an interval change takes effect immediately.
func (s *Session) createHBTimer() {
	intervalMs := int64(s.settings.HeartbeatIntervalSec()) * 1000
	s.mu.Lock()
	if s.hbTimer != nil {
		s.hbTimer.Cancel()
		s.hbTimer = nil
	}
	if s.cleanedUp {
		s.mu.Unlock()
		return
	}
	s.hbTimer = s.bundle.Scheduler.Recurring(intervalMs, "sendHeartbeat", s.SendHeartbeat)
	s.mu.Unlock()
}

// Cleanup ends the session: stops the timer, flushes a final heartbeat
// carrying the session-end event, and releases the monitor. Idempotent;
// when called from several goroutines, only the first sends the final
// heartbeat.
func (s *Session) Cleanup() {
	s.mu.Lock()
	if s.cleanedUp {
		s.mu.Unlock()
		return
	}
	s.cleanedUp = true
	if s.hbTimer != nil {
		s.hbTimer.Cancel()
		s.hbTimer = nil
	}
	s.mu.Unlock()

	s.log.Info().Int("key", s.key).Msg("session cleanup")

	if !s.IsGlobal() {
		s.enqueueEvent(protocol.EventSessionEnd, Event{})
	}
	s.sendHeartbeat()

	if s.monitor != nil {
		s.monitor.Cleanup()
	}
}
