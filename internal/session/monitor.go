// Vigia - Video Quality-of-Experience Telemetry SDK for Go
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: Apache-2.0
// https://github.com/vigialabs/vigia-go

package session

import (
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vigialabs/vigia-go/internal/logging"
	"github.com/vigialabs/vigia-go/internal/platform"
	"github.com/vigialabs/vigia-go/internal/protocol"
)

// Monitor is the per-session playback state machine. It receives raw
// observations from the attached PlayerTracker, emits a change event only
// when a value actually changed, applies the ad and preload suppression
// overlays, and augments each outgoing heartbeat with the current metrics.
//
// One mutex guards all mutable state. The monitor calls into the tracker
// only for measurement reads, which never call back, so the monitor lock
// may be held across them.
type Monitor struct {
	mu  sync.Mutex
	log zerolog.Logger

	sessionID int32
	queue     *EventQueue
	metadata  *ContentMetadata
	clock     platform.Clock
	device    platform.DeviceState

	startTimeMs int64

	hasJoined  bool
	pauseJoin  bool
	preloading bool

	ignorePlayerState          bool
	ignoreBitrateAndResource   bool
	ignoreFrameRateAndDuration bool
	ignoreError                bool

	adPlaying bool
	adStream  AdStream
	adPlayer  AdPlayer

	playerState  protocol.PlayerState
	pooledState  protocol.PlayerState
	bitrateKbps  int
	sessionFlags int
	videoWidth   int
	videoHeight  int
	cdnServerIP  string

	connectionType string
	linkEncryption string

	autoDuration  bool
	autoFrameRate bool

	fpsTotal int64
	fpsCount int

	oldAssetName string
	oldResource  string

	tracker *PlayerTracker
}

// NewMonitor builds a monitor for one session. metadata is owned by the
// session and mutated in place as values are learned. When the caller
// already supplied duration or frame rate, automatic detection through
// player metadata stays off for that field permanently.
func NewMonitor(sessionID int32, queue *EventQueue, metadata *ContentMetadata, clock platform.Clock, device platform.DeviceState) *Monitor {
	m := &Monitor{
		log:       logging.Module("Monitor").Session(sessionID),
		sessionID: sessionID,
		queue:     queue,
		metadata:  metadata,
		clock:     clock,
		device:    device,

		playerState: protocol.StateNotMonitored,
		pooledState: protocol.StateNotMonitored,
		bitrateKbps: -1,
		sessionFlags: protocol.CapabilityVideo |
			protocol.CapabilityQualityMetrics |
			protocol.CapabilityBitrateMetrics,
		autoDuration:  true,
		autoFrameRate: true,
	}
	if metadata != nil && metadata.Duration > 0 {
		m.autoDuration = false
	}
	if metadata != nil && metadata.EncodedFrameRate > 0 {
		m.autoFrameRate = false
	}
	return m
}

// Start marks the session epoch; event timestamps are offsets from it.
func (m *Monitor) Start(nowMs int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log.Info().Msg("monitor starts")
	m.startTimeMs = nowMs
}

// SetDefaultBitrateAndResource seeds the bitrate and resource from the
// content metadata defaults, so the first heartbeat reports them even if
// the player never does.
func (m *Monitor) SetDefaultBitrateAndResource() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.metadata == nil {
		return
	}
	if m.metadata.DefaultBitrateKbps > 0 && m.bitrateKbps < 0 {
		m.setBitrateLocked(m.metadata.DefaultBitrateKbps)
	}
	if m.metadata.DefaultResource != "" {
		m.setResourceLocked(m.metadata.DefaultResource)
	}
}

// SetBitrateKbps reports a new stream bitrate.
func (m *Monitor) SetBitrateKbps(kbps int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setBitrateLocked(kbps)
}

func (m *Monitor) setBitrateLocked(kbps int) {
	if m.ignoreBitrateAndResource {
		m.log.Info().Msg("setBitrateKbps: ignored")
		return
	}
	old := m.bitrateKbps
	if old != kbps && kbps >= -1 {
		m.log.Info().Int("from", old).Int("to", kbps).Msg("bitrate changed")
		var oldVal any
		if old > 0 {
			oldVal = old
		}
		m.enqueueStateChangeLocked("br", oldVal, kbps)
		m.bitrateKbps = kbps
	}
}

func (m *Monitor) setResourceLocked(resource string) {
	if m.ignoreBitrateAndResource {
		m.log.Info().Msg("setResource: ignored")
		return
	}
	if resource != "" && resource != m.oldResource {
		m.log.Info().Str("from", m.oldResource).Str("to", resource).Msg("resource changed")
		var oldVal any
		if m.oldResource != "" {
			oldVal = m.oldResource
		}
		m.enqueueStateChangeLocked("rs", oldVal, resource)
		m.metadata.DefaultResource = resource
		m.oldResource = resource
	}
}

// SetVideoWidth reports the rendered width.
func (m *Monitor) SetVideoWidth(w int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.videoWidth != w && w >= -1 {
		m.enqueueStateChangeLocked("w", m.videoWidth, w)
		m.videoWidth = w
	}
}

// SetVideoHeight reports the rendered height.
func (m *Monitor) SetVideoHeight(h int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.videoHeight != h && h >= -1 {
		m.enqueueStateChangeLocked("h", m.videoHeight, h)
		m.videoHeight = h
	}
}

// SetCDNServerIP reports the CDN edge serving the stream.
func (m *Monitor) SetCDNServerIP(ip string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ip != "" && ip != m.cdnServerIP {
		m.log.Info().Str("from", m.cdnServerIP).Str("to", ip).Msg("CDN server IP changed")
		m.enqueueStateChangeLocked("csi", m.cdnServerIP, ip)
		m.cdnServerIP = ip
	}
}

// AttachPlayer binds a tracker to this monitor. Attaching while another
// tracker is bound, or a tracker that is already serving another session,
// fails with a log line.
func (m *Monitor) AttachPlayer(t *PlayerTracker) {
	m.log.Info().Msg("attachPlayer()")

	m.mu.Lock()
	if m.tracker != nil {
		m.mu.Unlock()
		m.log.Error().Msg("attachPlayer: detach current player first")
		return
	}
	m.mu.Unlock()

	// The tracker replays its cached state into us here; the tracker
	// pointer is installed after, so replayed events carry no bl/pht.
	if t.setMonitoringNotifier(m, m.sessionID) {
		m.mu.Lock()
		m.tracker = t
		m.mu.Unlock()
	} else {
		m.log.Error().Msg("attachPlayer: player is already attached to another session")
	}
}

// DetachPlayer unbinds the tracker and stops monitoring.
func (m *Monitor) DetachPlayer() {
	m.log.Info().Msg("detachPlayer()")
	m.mu.Lock()
	t := m.tracker
	if t != nil {
		m.tracker = nil
		m.setPlayerStateLocked(protocol.StateNotMonitored)
	}
	m.mu.Unlock()
	if t != nil {
		t.removeMonitoringNotifier()
	}
}

// ContentPreload suppresses player state reporting until ContentStart, so
// pre-buffering a stream does not look like playback.
func (m *Monitor) ContentPreload() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.preloading {
		m.log.Debug().Msg("contentPreload: called twice, ignoring")
		return
	}
	m.log.Info().Msg("contentPreload()")
	m.preloading = true
	m.ignorePlayerState = true
}

// ContentStart ends the preload overlay. If an ad is running the ad
// overlay keeps state suppressed until AdEnd.
func (m *Monitor) ContentStart() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.preloading {
		m.log.Warn().Msg("contentStart: called without contentPreload, ignoring")
		return
	}
	m.preloading = false
	if !m.adPlaying {
		m.ignorePlayerState = false
		m.setPlayerStateLocked(m.pooledState)
	}
}

// AdStart applies the ad suppression overlay. What gets suppressed depends
// on where the ad runs: an ad in the content stream (or in a separate
// player) only hides player state, while a separate ad stream in the
// content player hides everything until AdEnd.
func (m *Monitor) AdStart(stream AdStream, player AdPlayer, position AdPosition) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.adPlaying {
		m.log.Warn().Msg("adStart: multiple adStart calls, ignoring")
		return
	}
	m.log.Debug().
		Int("adStream", int(stream)).
		Int("adPlayer", int(player)).
		Int("adPosition", int(position)).
		Msg("adStart()")

	m.adPlaying = true
	m.adStream = stream
	m.adPlayer = player

	if !m.hasJoined {
		m.togglePauseJoinLocked(true)
	}

	if stream == AdStreamContent || player == AdPlayerSeparate {
		if m.playerState != protocol.StateNotMonitored {
			m.pooledState = m.playerState
		}
		m.setPlayerStateLocked(protocol.StateNotMonitored)
		m.ignorePlayerState = true
	} else if stream == AdStreamSeparate && player == AdPlayerContent {
		if m.playerState != protocol.StateNotMonitored {
			m.pooledState = m.playerState
		}
		m.setPlayerStateLocked(protocol.StateNotMonitored)
		m.ignorePlayerState = true
		m.ignoreBitrateAndResource = true
		m.ignoreFrameRateAndDuration = true
		m.ignoreError = true
	}
}

// AdEnd lifts the ad overlay and restores the pooled player state, unless
// a preload overlay is still active.
func (m *Monitor) AdEnd() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.adPlaying {
		m.log.Info().Msg("adEnd: called before adStart, ignoring")
		return
	}
	m.log.Info().Msg("adEnd()")

	if !m.hasJoined {
		m.togglePauseJoinLocked(false)
	}

	if m.adStream == AdStreamContent || m.adPlayer == AdPlayerSeparate {
		if !m.preloading {
			m.ignorePlayerState = false
			m.setPlayerStateLocked(m.pooledState)
		}
	} else if m.adStream == AdStreamSeparate && m.adPlayer == AdPlayerContent {
		m.ignoreBitrateAndResource = false
		m.ignoreFrameRateAndDuration = false
		m.ignoreError = false
		if !m.preloading {
			m.ignorePlayerState = false
			m.setPlayerStateLocked(m.pooledState)
		}
	}

	m.adPlaying = false
}

func (m *Monitor) togglePauseJoinLocked(paused bool) {
	if m.pauseJoin == paused {
		m.log.Info().Msg("togglePauseJoin: same value, ignoring")
		return
	}
	m.enqueueStateChangeLocked("pj", m.pauseJoin, paused)
	m.pauseJoin = paused
}

// SetPlayerState reports a player state transition. Equal states are
// dropped; states arriving under a suppression overlay are pooled for
// restore instead of emitted. The first PLAYING marks the join.
func (m *Monitor) SetPlayerState(state protocol.PlayerState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setPlayerStateLocked(state)
}

func (m *Monitor) setPlayerStateLocked(state protocol.PlayerState) {
	if m.playerState == state {
		return
	}

	if m.playerState == protocol.StateNotMonitored && state != protocol.StateNotMonitored {
		m.pooledState = state
	}

	if m.ignorePlayerState {
		reason := "preloading"
		if m.adPlaying {
			reason = "ad playing"
		}
		m.log.Debug().Str("state", state.String()).Str("reason", reason).Msg("player state pooled")
		return
	}

	if !m.hasJoined && state == protocol.StatePlaying {
		m.hasJoined = true
		m.togglePauseJoinLocked(false)
	}

	m.log.Info().
		Str("from", m.playerState.String()).
		Str("to", state.String()).
		Msg("player state changed")
	m.enqueueStateChangeLocked("ps", m.playerState.Code(), state.Code())
	m.playerState = state
}

// OnSeekStart reports the beginning of a seek.
func (m *Monitor) OnSeekStart(seekToPosMs int) {
	m.enqueueSeek(protocol.SeekActStart, seekToPosMs, true)
}

// OnSeekEnd reports the completion of a seek.
func (m *Monitor) OnSeekEnd() {
	m.enqueueSeek(protocol.SeekActEnd, 0, false)
}

// OnSeekButtonDown reports a pressed seek control.
func (m *Monitor) OnSeekButtonDown() {
	m.enqueueSeek(protocol.SeekActButtonDown, 0, false)
}

// OnSeekButtonUp reports a released seek control.
func (m *Monitor) OnSeekButtonUp() {
	m.enqueueSeek(protocol.SeekActButtonUp, 0, false)
}

func (m *Monitor) enqueueSeek(action string, seekToPosMs int, withTarget bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data := Event{"act": action}
	if withTarget {
		data["skto"] = seekToPosMs
	}
	m.stampPlaybackPositionLocked(data)
	m.enqueueEventLocked(protocol.EventSeek, data)
}

// OnError reports a playback error against the session. Errors with an
// empty code are rejected; errors under the full ad overlay are dropped.
func (m *Monitor) OnError(e StreamerError) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.Code == "" {
		m.log.Error().Msg("onError: empty error code, ignoring")
		return
	}
	if m.ignoreError {
		m.log.Info().Msg("onError: ignored")
		return
	}
	m.log.Info().Str("code", e.Code).Bool("fatal", e.IsFatal()).Msg("enqueue error event")

	data := Event{
		"ft":  e.IsFatal(),
		"err": e.Code,
	}
	m.stampPlaybackPositionLocked(data)
	m.enqueueEventLocked(protocol.EventError, data)
}

// OnMetadata consumes player-reported metadata. Duration and encoded frame
// rate are picked up only while their automatic detection is enabled; a
// manual value from UpdateContentMetadata disables detection permanently.
func (m *Monitor) OnMetadata(md map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.metadata == nil {
		return
	}

	if v, ok := md[metadataEncodedFramerate]; ok && m.autoFrameRate {
		fps, err := strconv.Atoi(v)
		if err == nil && fps > 0 && !m.ignoreFrameRateAndDuration {
			if fps != m.metadata.EncodedFrameRate {
				var oldVal any
				if m.metadata.EncodedFrameRate > 0 {
					oldVal = m.metadata.EncodedFrameRate
				}
				m.enqueueStateChangeLocked("efps", oldVal, fps)
			}
			m.metadata.EncodedFrameRate = fps
		}
	}

	if v, ok := md[metadataDuration]; ok && m.autoDuration {
		sec, err := strconv.Atoi(v)
		if err == nil && sec > 0 && !m.ignoreFrameRateAndDuration {
			if sec != m.metadata.Duration {
				m.enqueueStateChangeLocked("cl", m.metadata.Duration, sec)
			}
			m.metadata.Duration = sec
		}
	}
}

// OnRenderedFramerateUpdate accumulates rendered-fps observations while
// the player is in PLAYING state.
func (m *Monitor) OnRenderedFramerateUpdate(fps int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if fps > 0 && m.playerState == protocol.StatePlaying {
		m.fpsTotal += int64(fps)
		m.fpsCount++
	}
}

// RefreshNetworkMetrics polls the device for connection type and link
// encryption, emitting change events for both.
func (m *Monitor) RefreshNetworkMetrics() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil {
		return
	}
	if ct := m.device.ConnectionType(); ct != "" && ct != m.connectionType {
		var oldVal any
		if m.connectionType != "" {
			oldVal = m.connectionType
		}
		m.enqueueStateChangeLocked("ct", oldVal, ct)
		m.connectionType = ct
	}
	if le := m.device.LinkEncryption(); le != "" && le != m.linkEncryption {
		var oldVal any
		if m.linkEncryption != "" {
			oldVal = m.linkEncryption
		}
		m.enqueueStateChangeLocked("le", oldVal, le)
		m.linkEncryption = le
	}
}

// UpdateHeartbeat merges the monitor's current metrics into an outgoing
// heartbeat payload and enqueues a data-samples event. Pure merge plus the
// data-samples enqueue: all other event emission happens on change.
func (m *Monitor) UpdateHeartbeat(hb map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hb["ps"] = m.playerState.Code()
	hb["pj"] = m.pauseJoin
	hb["sf"] = m.sessionFlags

	if m.tracker != nil {
		pht := m.tracker.PlayHeadTimeMs()
		bl := m.tracker.BufferLengthMs()
		ss := m.tracker.SignalStrength()

		m.enqueueDataSamplesLocked(Event{"pht": pht, "bl": bl, "ss": ss})

		hb["pht"] = pht
		hb["bl"] = bl
		hb["ss"] = ss

		cc := map[string]string{}
		if mn := m.tracker.ModuleName(); mn != "" {
			cc["mn"] = mn
		}
		if mv := m.tracker.ModuleVersion(); mv != "" {
			cc["mv"] = mv
		}
		if len(cc) > 0 {
			hb["cc"] = cc
		}

		// Backfill the platform metadata's framework fields from the
		// player when the device info did not provide them.
		if pm, ok := hb["pm"].(map[string]string); ok {
			if pm["fw"] == "" {
				if pt := m.tracker.PlayerType(); pt != "" {
					pm["fw"] = pt
				}
			}
			if pm["fwv"] == "" {
				if pv := m.tracker.PlayerVersion(); pv != "" {
					pm["fwv"] = pv
				}
			}
		}
	} else {
		// Without a player the samples still flow, carrying the
		// unknown markers.
		m.enqueueDataSamplesLocked(Event{"pht": int64(-1), "bl": -1, "ss": -1.0})
	}

	if avg := m.averageFrameRateLocked(); avg >= 0 {
		hb["afps"] = avg
	}
	if m.fpsCount > 0 && m.fpsTotal > 0 {
		hb["rfpscnt"] = m.fpsCount
		hb["rfpstot"] = m.fpsTotal
	}

	if m.metadata != nil {
		tags := map[string]string{}
		for k, v := range m.metadata.Custom {
			if k != "" && v != "" {
				tags[k] = v
			}
		}
		if len(tags) > 0 {
			hb["tags"] = tags
		}

		if m.metadata.ViewerID != "" {
			hb["vid"] = m.metadata.ViewerID
		}

		hb["an"] = m.metadata.AssetName
		if m.metadata.AssetName != "" && m.metadata.AssetName != m.oldAssetName {
			var oldVal any
			if m.oldAssetName != "" {
				oldVal = m.oldAssetName
			}
			m.enqueueStateChangeLocked("an", oldVal, m.metadata.AssetName)
			m.oldAssetName = m.metadata.AssetName
		}

		if m.metadata.StreamType != StreamTypeUnknown {
			hb["lv"] = m.metadata.StreamType == StreamTypeLive
		}
		if m.metadata.ApplicationName != "" {
			hb["pn"] = m.metadata.ApplicationName
		}
		if m.metadata.StreamURL != "" {
			hb["url"] = m.metadata.StreamURL
		}
		if m.metadata.DefaultResource != "" {
			hb["rs"] = m.metadata.DefaultResource
		}
		if m.metadata.Duration > 0 {
			hb["cl"] = m.metadata.Duration
		}
		if m.metadata.EncodedFrameRate > 0 {
			hb["efps"] = m.metadata.EncodedFrameRate
		}
	}

	if m.bitrateKbps > 0 {
		hb["br"] = m.bitrateKbps
	}
	if m.cdnServerIP != "" {
		hb["csi"] = m.cdnServerIP
	}
	if m.videoWidth >= 0 && m.videoHeight >= 0 {
		hb["w"] = m.videoWidth
		hb["h"] = m.videoHeight
	}
	if m.connectionType != "" {
		hb["ct"] = m.connectionType
	}
	if m.linkEncryption != "" {
		hb["le"] = m.linkEncryption
	}
}

// averageFrameRateLocked reports the session-lifetime average rendered
// fps, backfilling one observation from the player if none were pushed.
func (m *Monitor) averageFrameRateLocked() int {
	if m.fpsTotal > 0 && m.fpsCount > 0 {
		return int(m.fpsTotal / int64(m.fpsCount))
	}
	if m.tracker != nil {
		if fps := m.tracker.FrameRate(); fps > 0 {
			m.fpsTotal += int64(fps)
			m.fpsCount++
			return int(m.fpsTotal / int64(m.fpsCount))
		}
	}
	return -1
}

func (m *Monitor) enqueueDataSamplesLocked(samples Event) {
	if m.device != nil &&
		(m.device.InSleepingMode() || m.device.DataSaverEnabled() || !m.device.IsVisible()) {
		return
	}
	m.log.Debug().Msg("enqueue data samples")
	m.enqueueEventLocked(protocol.EventDataSamples, samples)
}

// OnContentMetadataUpdate merges caller-provided metadata into the
// session, emitting one combined change event covering every field that
// actually changed. Asset name diffs at the top level; application name
// and viewer id diff under "strmetadata"; tags merge key by key.
func (m *Monitor) OnContentMetadataUpdate(md *ContentMetadata) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if md == nil {
		m.log.Warn().Msg("updateContentMetadata: nil metadata")
		return
	}
	if m.metadata == nil {
		m.metadata = &ContentMetadata{Custom: map[string]string{}}
	}

	oldMD := Event{}
	newMD := Event{}

	if md.AssetName != "" && md.AssetName != m.metadata.AssetName {
		if m.metadata.AssetName != "" {
			oldMD["an"] = m.metadata.AssetName
		}
		newMD["an"] = md.AssetName
		m.metadata.AssetName = md.AssetName
		m.oldAssetName = md.AssetName
	}

	oldStr := map[string]string{}
	newStr := map[string]string{}

	if md.ApplicationName != "" && md.ApplicationName != m.metadata.ApplicationName {
		if m.metadata.ApplicationName != "" {
			oldStr["pn"] = m.metadata.ApplicationName
		}
		newStr["pn"] = md.ApplicationName
		m.metadata.ApplicationName = md.ApplicationName
	}
	if md.ViewerID != "" && md.ViewerID != m.metadata.ViewerID {
		if m.metadata.ViewerID != "" {
			oldStr["vid"] = m.metadata.ViewerID
		}
		newStr["vid"] = md.ViewerID
		m.metadata.ViewerID = md.ViewerID
	}
	if len(newStr) > 0 {
		if len(oldStr) > 0 {
			oldMD["strmetadata"] = oldStr
		}
		newMD["strmetadata"] = newStr
	}

	if md.StreamURL != "" && md.StreamURL != m.metadata.StreamURL {
		if m.metadata.StreamURL != "" {
			oldMD["url"] = m.metadata.StreamURL
		}
		newMD["url"] = md.StreamURL
		m.metadata.StreamURL = md.StreamURL
	}

	if md.DefaultResource != "" && md.DefaultResource != m.metadata.DefaultResource {
		if m.metadata.DefaultResource != "" {
			oldMD["rs"] = m.metadata.DefaultResource
		}
		newMD["rs"] = md.DefaultResource
		m.metadata.DefaultResource = md.DefaultResource
	}

	if md.Duration > 0 && md.Duration != m.metadata.Duration {
		if m.metadata.Duration > 0 {
			oldMD["cl"] = m.metadata.Duration
		}
		newMD["cl"] = md.Duration
		m.metadata.Duration = md.Duration
		// A manual duration disables automatic detection for good.
		m.autoDuration = false
	}

	if md.EncodedFrameRate > 0 && md.EncodedFrameRate != m.metadata.EncodedFrameRate {
		if m.metadata.EncodedFrameRate > 0 {
			oldMD["efps"] = m.metadata.EncodedFrameRate
		}
		newMD["efps"] = md.EncodedFrameRate
		m.metadata.EncodedFrameRate = md.EncodedFrameRate
		m.autoFrameRate = false
	}

	if md.StreamType != StreamTypeUnknown && md.StreamType != m.metadata.StreamType {
		if m.metadata.StreamType != StreamTypeUnknown {
			oldMD["lv"] = m.metadata.StreamType == StreamTypeLive
		}
		newMD["lv"] = md.StreamType == StreamTypeLive
		m.metadata.StreamType = md.StreamType
	}

	if m.metadata.Custom == nil {
		m.metadata.Custom = map[string]string{}
	}
	if len(md.Custom) > 0 {
		oldTags := map[string]string{}
		newTags := map[string]string{}
		for k, v := range md.Custom {
			if k == "" || v == "" {
				continue
			}
			if cur, ok := m.metadata.Custom[k]; ok {
				if cur != v {
					newTags[k] = v
					oldTags[k] = cur
				}
			} else {
				newTags[k] = v
			}
		}
		if len(newTags) > 0 {
			if len(oldTags) > 0 {
				oldMD["tags"] = oldTags
			}
			newMD["tags"] = newTags
			for k, v := range newTags {
				m.metadata.Custom[k] = v
			}
		}
	}

	if len(newMD) > 0 {
		data := Event{"new": newMD}
		if len(oldMD) > 0 {
			data["old"] = oldMD
		}
		m.stampPlaybackPositionLocked(data)
		m.enqueueEventLocked(protocol.EventStateChange, data)
	}
}

// Release detaches the player; invoked by the tracker when it goes away.
func (m *Monitor) Release() {
	m.DetachPlayer()
}

// Cleanup detaches the player and drops the queue and metadata references.
// The monitor emits nothing afterwards.
func (m *Monitor) Cleanup() {
	m.log.Info().Msg("cleanup()")
	m.DetachPlayer()
	m.mu.Lock()
	m.queue = nil
	m.metadata = nil
	m.mu.Unlock()
}

// SessionTimeMs returns milliseconds since the session epoch.
func (m *Monitor) SessionTimeMs() int {
	return int(m.clock.NowMs() - m.startTimeMs)
}

func (m *Monitor) enqueueEventLocked(eventType string, data Event) {
	if m.queue != nil {
		m.queue.Enqueue(eventType, data, int(m.clock.NowMs()-m.startTimeMs))
	}
}

// enqueueStateChangeLocked emits a single-key change event. A nil oldVal
// omits the "old" map entirely.
func (m *Monitor) enqueueStateChangeLocked(key string, oldVal, newVal any) {
	data := Event{
		"new": Event{key: newVal},
	}
	if oldVal != nil {
		data["old"] = Event{key: oldVal}
	}
	m.stampPlaybackPositionLocked(data)
	m.enqueueEventLocked(protocol.EventStateChange, data)
}

// stampPlaybackPositionLocked adds bl/pht when a player is attached.
func (m *Monitor) stampPlaybackPositionLocked(data Event) {
	if m.tracker != nil {
		data["bl"] = m.tracker.BufferLengthMs()
		data["pht"] = m.tracker.PlayHeadTimeMs()
	}
}
