// Vigia - Video Quality-of-Experience Telemetry SDK for Go
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: Apache-2.0
// https://github.com/vigialabs/vigia-go

package session

import (
	"errors"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vigialabs/vigia-go/internal/logging"
	"github.com/vigialabs/vigia-go/internal/protocol"
)

// Metadata keys the tracker forwards to the monitor.
const (
	metadataDuration         = "duration"
	metadataEncodedFramerate = "framerate"
)

// ErrInvalidPlayerState rejects states outside the five reportable ones.
var ErrInvalidPlayerState = errors.New("invalid player state")

// notifier is the monitor-side interface the tracker forwards into. The
// Monitor implements it; tests substitute a recorder.
type notifier interface {
	SetPlayerState(state protocol.PlayerState)
	SetBitrateKbps(kbps int)
	SetVideoWidth(w int)
	SetVideoHeight(h int)
	SetCDNServerIP(ip string)
	OnError(e StreamerError)
	OnMetadata(md map[string]string)
	OnSeekStart(seekToPosMs int)
	OnSeekEnd()
	OnSeekButtonDown()
	OnSeekButtonUp()
	OnRenderedFramerateUpdate(fps int)
	OnContentMetadataUpdate(md *ContentMetadata)
	Release()
}

// Measurements supplies live playback readings from the integration. All
// methods return -1 when the reading is unavailable.
type Measurements interface {
	PlayHeadTimeMs() int64
	BufferLengthMs() int
	SignalStrength() float64
	FrameRate() int
}

// PlayerTracker adapts one video player to the SDK. The integration pushes
// state, bitrate, resolution and errors into it; when a session attaches,
// the tracker replays its cached state and any errors reported before the
// attach, then forwards everything live. A tracker serves at most one
// session at a time.
//
// The tracker never invokes the monitor while holding its own lock, so
// monitor callbacks may freely read measurements back from the tracker.
type PlayerTracker struct {
	mu  sync.Mutex
	log zerolog.Logger

	mon notifier

	state         protocol.PlayerState
	bitrateKbps   int
	videoWidth    int
	videoHeight   int
	cdnServerIP   string
	metadata      map[string]string
	pendingErrors []StreamerError

	playerType    string
	playerVersion string
	moduleName    string
	moduleVersion string

	measure Measurements
}

// NewPlayerTracker returns a tracker with everything unknown.
func NewPlayerTracker() *PlayerTracker {
	return &PlayerTracker{
		log:         logging.Module("PlayerTracker").Logger(),
		state:       protocol.StateUnknown,
		bitrateKbps: -2,
		videoWidth:  -1,
		videoHeight: -1,
		metadata:    map[string]string{},
	}
}

// setMonitoringNotifier binds the tracker to a session's monitor. It
// refuses when another monitor is already attached. On success the cached
// state, metadata and pending errors are replayed into the monitor.
func (p *PlayerTracker) setMonitoringNotifier(n notifier, sessionID int32) bool {
	p.mu.Lock()
	if p.mon != nil {
		p.mu.Unlock()
		return false
	}
	p.mon = n
	p.log = logging.Module("PlayerTracker").Session(sessionID)
	p.mu.Unlock()

	p.pushCurrentState()
	return true
}

// removeMonitoringNotifier detaches the tracker from its monitor.
func (p *PlayerTracker) removeMonitoringNotifier() {
	p.mu.Lock()
	p.mon = nil
	p.log = logging.Module("PlayerTracker").Logger()
	p.mu.Unlock()
}

// pushCurrentState replays cached values into a freshly attached monitor.
func (p *PlayerTracker) pushCurrentState() {
	p.mu.Lock()
	mon := p.mon
	state := p.state
	bitrate := p.bitrateKbps
	md := make(map[string]string, len(p.metadata))
	for k, v := range p.metadata {
		md[k] = v
	}
	pending := p.pendingErrors
	p.pendingErrors = nil
	p.mu.Unlock()

	if mon == nil {
		return
	}
	mon.SetPlayerState(state)
	if bitrate >= -1 {
		mon.SetBitrateKbps(bitrate)
	}
	if len(md) > 0 {
		mon.OnMetadata(md)
	}
	for _, e := range pending {
		mon.OnError(e)
	}
}

// SetPlayerState reports a new player state. Only the five reportable
// states are accepted.
func (p *PlayerTracker) SetPlayerState(state protocol.PlayerState) error {
	switch state {
	case protocol.StateStopped, protocol.StatePlaying, protocol.StateBuffering,
		protocol.StatePaused, protocol.StateUnknown:
	default:
		p.log.Error().Str("state", state.String()).Msg("rejecting invalid player state")
		return ErrInvalidPlayerState
	}

	p.mu.Lock()
	p.state = state
	mon := p.mon
	p.mu.Unlock()

	if mon != nil {
		mon.SetPlayerState(state)
	}
	return nil
}

// PlayerState returns the last reported state.
func (p *PlayerTracker) PlayerState() protocol.PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SetBitrateKbps reports the stream bitrate. Values below -1 are ignored.
func (p *PlayerTracker) SetBitrateKbps(kbps int) {
	if kbps < -1 {
		return
	}
	p.mu.Lock()
	p.bitrateKbps = kbps
	mon := p.mon
	p.mu.Unlock()

	if mon != nil {
		mon.SetBitrateKbps(kbps)
	}
}

// BitrateKbps returns the last reported bitrate, -2 if never reported.
func (p *PlayerTracker) BitrateKbps() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bitrateKbps
}

// SetVideoWidth reports the rendered video width in pixels.
func (p *PlayerTracker) SetVideoWidth(w int) {
	p.mu.Lock()
	p.videoWidth = w
	mon := p.mon
	p.mu.Unlock()

	if mon != nil {
		mon.SetVideoWidth(w)
	}
}

// SetVideoHeight reports the rendered video height in pixels.
func (p *PlayerTracker) SetVideoHeight(h int) {
	p.mu.Lock()
	p.videoHeight = h
	mon := p.mon
	p.mu.Unlock()

	if mon != nil {
		mon.SetVideoHeight(h)
	}
}

// SetCDNServerIP reports the CDN edge serving the stream.
func (p *PlayerTracker) SetCDNServerIP(ip string) {
	if ip == "" {
		return
	}
	p.mu.Lock()
	p.cdnServerIP = ip
	mon := p.mon
	p.mu.Unlock()

	if mon != nil {
		mon.SetCDNServerIP(ip)
	}
}

// SendError reports a playback error. Errors reported before a monitor
// attaches are buffered and replayed on attach, in order.
func (p *PlayerTracker) SendError(code string, severity ErrorSeverity) {
	e := StreamerError{Code: code, Severity: severity}
	p.mu.Lock()
	mon := p.mon
	if mon == nil {
		p.pendingErrors = append(p.pendingErrors, e)
	}
	p.mu.Unlock()

	if mon != nil {
		mon.OnError(e)
	}
}

// SetDuration reports the content duration in seconds once it is known.
func (p *PlayerTracker) SetDuration(seconds int) {
	if seconds < -1 {
		seconds = -1
	}
	p.setMetadata(metadataDuration, strconv.Itoa(seconds))
}

// SetEncodedFrameRate reports the encoded frame rate once it is known.
func (p *PlayerTracker) SetEncodedFrameRate(fps int) {
	if fps < -1 {
		fps = -1
	}
	p.setMetadata(metadataEncodedFramerate, strconv.Itoa(fps))
}

func (p *PlayerTracker) setMetadata(key, value string) {
	p.mu.Lock()
	p.metadata[key] = value
	md := make(map[string]string, len(p.metadata))
	for k, v := range p.metadata {
		md[k] = v
	}
	mon := p.mon
	p.mu.Unlock()

	if mon != nil {
		mon.OnMetadata(md)
	}
}

// SetRenderedFrameRate reports a rendered-fps observation.
func (p *PlayerTracker) SetRenderedFrameRate(fps int) {
	if fps < -1 {
		fps = -1
	}
	p.mu.Lock()
	mon := p.mon
	p.mu.Unlock()

	if mon != nil {
		mon.OnRenderedFramerateUpdate(fps)
	}
}

// SeekStart reports the beginning of a seek to the given position in ms.
func (p *PlayerTracker) SeekStart(seekToPosMs int) {
	if mon := p.monitor(); mon != nil {
		mon.OnSeekStart(seekToPosMs)
	}
}

// SeekEnd reports the completion of a seek.
func (p *PlayerTracker) SeekEnd() {
	if mon := p.monitor(); mon != nil {
		mon.OnSeekEnd()
	}
}

// SeekButtonDown reports the viewer pressing a seek control.
func (p *PlayerTracker) SeekButtonDown() {
	if mon := p.monitor(); mon != nil {
		mon.OnSeekButtonDown()
	}
}

// SeekButtonUp reports the viewer releasing a seek control.
func (p *PlayerTracker) SeekButtonUp() {
	if mon := p.monitor(); mon != nil {
		mon.OnSeekButtonUp()
	}
}

// UpdateContentMetadata merges new content metadata into the attached
// session. Duration and frame rate are mirrored into the tracker's own
// cache so a later attach replays them.
func (p *PlayerTracker) UpdateContentMetadata(md *ContentMetadata) {
	mon := p.monitor()
	if mon == nil || md == nil {
		return
	}
	mon.OnContentMetadataUpdate(md)

	p.mu.Lock()
	if md.Duration > 0 {
		p.metadata[metadataDuration] = strconv.Itoa(md.Duration)
	}
	if md.EncodedFrameRate > 0 {
		p.metadata[metadataEncodedFramerate] = strconv.Itoa(md.EncodedFrameRate)
	}
	p.mu.Unlock()
}

// SetPlayerInfo records the underlying player implementation, reported in
// the heartbeat platform metadata when the device info lacks it.
func (p *PlayerTracker) SetPlayerInfo(playerType, playerVersion string) {
	p.mu.Lock()
	p.playerType = playerType
	p.playerVersion = playerVersion
	p.mu.Unlock()
}

// PlayerType returns the recorded player implementation name.
func (p *PlayerTracker) PlayerType() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playerType
}

// PlayerVersion returns the recorded player implementation version.
func (p *PlayerTracker) PlayerVersion() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playerVersion
}

// SetModuleNameAndVersion records the integration module identity,
// reported under "cc" in heartbeats.
func (p *PlayerTracker) SetModuleNameAndVersion(name, version string) {
	p.mu.Lock()
	p.moduleName = name
	p.moduleVersion = version
	p.mu.Unlock()
}

// ModuleName returns the integration module name, empty if unset.
func (p *PlayerTracker) ModuleName() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.moduleName
}

// ModuleVersion returns the integration module version, empty if unset.
func (p *PlayerTracker) ModuleVersion() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.moduleVersion
}

// SetMeasurements installs the live measurement source.
func (p *PlayerTracker) SetMeasurements(m Measurements) {
	p.mu.Lock()
	p.measure = m
	p.mu.Unlock()
}

// RemoveMeasurements detaches the live measurement source.
func (p *PlayerTracker) RemoveMeasurements() {
	p.mu.Lock()
	p.measure = nil
	p.mu.Unlock()
}

// PlayHeadTimeMs returns the current play-head time, -1 if unknown.
func (p *PlayerTracker) PlayHeadTimeMs() int64 {
	p.mu.Lock()
	m := p.measure
	p.mu.Unlock()
	if m == nil {
		return -1
	}
	return m.PlayHeadTimeMs()
}

// BufferLengthMs returns the current buffer length, -1 if unknown.
func (p *PlayerTracker) BufferLengthMs() int {
	p.mu.Lock()
	m := p.measure
	p.mu.Unlock()
	if m == nil {
		return -1
	}
	return m.BufferLengthMs()
}

// SignalStrength returns the device signal strength, -1 if unknown.
func (p *PlayerTracker) SignalStrength() float64 {
	p.mu.Lock()
	m := p.measure
	p.mu.Unlock()
	if m == nil {
		return -1.0
	}
	return m.SignalStrength()
}

// FrameRate returns the player's measured frame rate, -1 if unknown.
func (p *PlayerTracker) FrameRate() int {
	p.mu.Lock()
	m := p.measure
	p.mu.Unlock()
	if m == nil {
		return -1
	}
	return m.FrameRate()
}

// Reset discards all cached quality data, returning the tracker to its
// initial unknown state. The monitor binding is kept.
func (p *PlayerTracker) Reset() {
	p.mu.Lock()
	p.state = protocol.StateUnknown
	p.bitrateKbps = -1
	p.videoWidth = -1
	p.videoHeight = -1
	p.cdnServerIP = ""
	p.metadata = map[string]string{}
	p.pendingErrors = nil
	p.playerType = ""
	p.playerVersion = ""
	p.mu.Unlock()
}

// Release detaches from the monitor, notifying it first so the session
// transitions to NOT_MONITORED. Call when the player goes away.
func (p *PlayerTracker) Release() {
	mon := p.monitor()
	if mon != nil {
		mon.Release()
	}
	p.removeMonitoringNotifier()
	p.RemoveMeasurements()
}

func (p *PlayerTracker) monitor() notifier {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mon
}
