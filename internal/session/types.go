// Vigia - Video Quality-of-Experience Telemetry SDK for Go
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: Apache-2.0
// https://github.com/vigialabs/vigia-go

// Package session implements the telemetry engine: the per-session event
// queue, the player monitor, the heartbeat cycle, the async client config,
// and the session registry. The public SDK surface in the root package is a
// thin facade over this package.
package session

import (
	"github.com/vigialabs/vigia-go/internal/protocol"
)

// NoSessionKey is returned by session-creating operations that fail. It is
// never a valid session key.
const NoSessionKey = -2

// PlayerState re-exports the protocol player state for the public API.
// Valid states for reporting are Stopped, Playing, Buffering, Paused and
// Unknown; NotMonitored is reserved for the engine.
type PlayerState = protocol.PlayerState

// SessionType distinguishes what a session monitors.
type SessionType int

const (
	// SessionTypeVideo monitors main video content.
	SessionTypeVideo SessionType = iota
	// SessionTypeAd monitors ad content.
	SessionTypeAd
	// SessionTypeGlobal carries events not tied to any playback.
	SessionTypeGlobal
)

// AdStream describes where the ad is served relative to the content stream.
type AdStream int

const (
	// AdStreamContent: the ad is stitched into the content stream.
	AdStreamContent AdStream = iota
	// AdStreamSeparate: the ad comes from a separate stream.
	AdStreamSeparate
)

// AdPlayer describes which player renders the ad.
type AdPlayer int

const (
	// AdPlayerContent: the content player renders the ad.
	AdPlayerContent AdPlayer = iota
	// AdPlayerSeparate: a dedicated ad player renders the ad.
	AdPlayerSeparate
)

// AdPosition is the ad slot relative to content playback.
type AdPosition int

const (
	AdPositionPreroll AdPosition = iota
	AdPositionMidroll
	AdPositionPostroll
)

// ErrorSeverity classifies a playback error.
type ErrorSeverity int

const (
	// SeverityFatal ends the viewing experience.
	SeverityFatal ErrorSeverity = iota
	// SeverityWarning is recoverable.
	SeverityWarning
)

// StreamerError is a playback error reported against a session.
type StreamerError struct {
	Code     string
	Severity ErrorSeverity
}

// IsFatal reports whether the error ends playback.
func (e StreamerError) IsFatal() bool {
	return e.Severity == SeverityFatal
}

// StreamType says whether content is live or on-demand.
type StreamType int

const (
	StreamTypeUnknown StreamType = iota
	StreamTypeLive
	StreamTypeVOD
)

// ContentMetadata describes the content a session monitors. Zero values
// mean "unknown" and are omitted from the wire payload. The engine never
// shares a caller's instance: Clone is called at every ownership boundary.
type ContentMetadata struct {
	// AssetName identifies the content, e.g. a title.
	AssetName string
	// ApplicationName identifies the integrating application.
	ApplicationName string
	// ViewerID identifies the viewer for cross-session analytics.
	ViewerID string
	// StreamURL is the URL the player loads.
	StreamURL string
	// DefaultResource names the CDN or delivery resource to report until
	// the player provides a better value.
	DefaultResource string
	// DefaultBitrateKbps is the bitrate to report before the player
	// provides a measured one.
	DefaultBitrateKbps int
	// Duration of the content in seconds.
	Duration int
	// EncodedFrameRate of the content in frames per second.
	EncodedFrameRate int
	// StreamType distinguishes live from on-demand.
	StreamType StreamType
	// Custom carries free-form tags reported under "tags".
	Custom map[string]string
}

// Clone returns a deep copy, detaching the Custom map. A nil receiver
// clones to an empty metadata with a non-nil Custom map.
func (m *ContentMetadata) Clone() *ContentMetadata {
	if m == nil {
		return &ContentMetadata{Custom: map[string]string{}}
	}
	cp := *m
	cp.Custom = make(map[string]string, len(m.Custom))
	for k, v := range m.Custom {
		cp.Custom[k] = v
	}
	return &cp
}
