// Vigia - Video Quality-of-Experience Telemetry SDK for Go
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: Apache-2.0
// https://github.com/vigialabs/vigia-go

// Package protocol defines the CWS wire protocol: versions, payload field
// encodings, the numeric player-state mapping, capability flags, and the
// gateway and diagnostic-ping URL builders. Everything here is pure data
// and pure functions; no I/O happens in this package.
package protocol

import (
	"net/url"
)

// Protocol and SDK identity.
const (
	// Version is the CWS protocol version reported in the "pver" field.
	Version = "2.4"

	// ClientVersion is the SDK release version reported in the "clv" field.
	ClientVersion = "1.2.0"

	// GatewayPath is appended to the gateway URL for heartbeat POSTs.
	GatewayPath = "/0/wsg"

	// DefaultClientID is the placeholder client id sent until the backend
	// assigns a durable one.
	DefaultClientID = "0"

	// BackendResponseNoErrors is the "err" value of a healthy gateway reply.
	BackendResponseNoErrors = "ok"

	// MetadataSchema tags the platform metadata ("pm") shape.
	MetadataSchema = "sdk.go.1"

	// ComponentName identifies this SDK in diagnostic pings.
	ComponentName = "sdkgo"

	// PingServiceURL is the out-of-band error reporting endpoint.
	PingServiceURL = "https://pings.conviva.com/ping.ping"

	// EventHeartbeat is the heartbeat payload type ("t" field).
	EventHeartbeat = "CwsSessionHb"
)

// Event type names carried in the heartbeat "evs" array.
const (
	EventStateChange = "CwsStateChangeEvent"
	EventSeek        = "CwsSeekEvent"
	EventError       = "CwsErrorEvent"
	EventCustom      = "CwsCustomEvent"
	EventSessionEnd  = "CwsSessionEndEvent"
	EventDataSamples = "CwsDataSamplesEvent"
)

// Seek event actions ("act" field).
const (
	SeekActStart      = "pss"
	SeekActEnd        = "pse"
	SeekActButtonDown = "bd"
	SeekActButtonUp   = "bu"
)

// PlayerState is the state of the monitored player as tracked internally.
// Its wire encoding is fixed; see Code.
type PlayerState int

const (
	StateStopped PlayerState = iota
	StatePlaying
	StateBuffering
	StatePaused
	StateUnknown
	StateNotMonitored
)

// Wire codes for player states. The values are protocol constants and must
// never change.
const (
	codeStopped      = 1
	codePlaying      = 3
	codeBuffering    = 6
	codePaused       = 12
	codeNotMonitored = 98
	codeUnknown      = 100
)

// Code returns the numeric wire encoding of the player state.
func (s PlayerState) Code() int {
	switch s {
	case StateStopped:
		return codeStopped
	case StatePlaying:
		return codePlaying
	case StateBuffering:
		return codeBuffering
	case StatePaused:
		return codePaused
	case StateNotMonitored:
		return codeNotMonitored
	default:
		return codeUnknown
	}
}

// String reports the state name for logs.
func (s PlayerState) String() string {
	switch s {
	case StateStopped:
		return "STOPPED"
	case StatePlaying:
		return "PLAYING"
	case StateBuffering:
		return "BUFFERING"
	case StatePaused:
		return "PAUSED"
	case StateNotMonitored:
		return "NOT_MONITORED"
	default:
		return "UNKNOWN"
	}
}

// Session capability flags reported in the "sf" field. A session's flags
// are the bitwise OR of the data classes it reports.
const (
	CapabilityGlobal         = 0
	CapabilityVideo          = 1
	CapabilityQualityMetrics = 2
	CapabilityBitrateMetrics = 4
)

// DeviceType categorizes the device running the SDK.
type DeviceType int

const (
	DeviceTypeUnknown DeviceType = iota
	DeviceTypeDesktop
	DeviceTypeConsole
	DeviceTypeSettop
	DeviceTypeMobile
	DeviceTypeTablet
	DeviceTypeSmartTV
)

// String returns the wire spelling of the device type. Unknown maps to the
// empty string so callers can omit the field entirely.
func (d DeviceType) String() string {
	switch d {
	case DeviceTypeDesktop:
		return "DESKTOP"
	case DeviceTypeConsole:
		return "Console"
	case DeviceTypeSettop:
		return "Settop"
	case DeviceTypeMobile:
		return "Mobile"
	case DeviceTypeTablet:
		return "Tablet"
	case DeviceTypeSmartTV:
		return "SmartTV"
	default:
		return ""
	}
}

// DeviceInfo describes the device and embedding framework. Zero-valued
// fields are omitted from the platform metadata.
type DeviceInfo struct {
	BuildModel       string
	OSVersion        string
	Brand            string
	Manufacturer     string
	Model            string
	Type             DeviceType
	Version          string
	FrameworkName    string
	FrameworkVersion string
}

// BuildPlatformMetadata folds device info into the short-keyed "pm" map.
func BuildPlatformMetadata(info DeviceInfo) map[string]string {
	md := map[string]string{"sch": MetadataSchema}
	put := func(key, val string) {
		if val != "" {
			md[key] = val
		}
	}
	put("abm", info.BuildModel)
	put("osv", info.OSVersion)
	put("dvb", info.Brand)
	put("dvma", info.Manufacturer)
	put("dvm", info.Model)
	put("dvt", info.Type.String())
	put("dvv", info.Version)
	put("fw", info.FrameworkName)
	put("fwv", info.FrameworkVersion)
	return md
}

// DefaultGatewayURL returns the per-customer production gateway.
func DefaultGatewayURL(customerKey string) string {
	return "https://" + customerKey + ".cws.conviva.com"
}

// DefaultProductionGatewayHost is the bare gateway host that per-customer
// URLs are derived from. Settings pointing at it directly are rewritten to
// the per-customer form.
const DefaultProductionGatewayHost = "https://cws.conviva.com"

// PingURL assembles the diagnostic ping URL for an error message.
func PingURL(customerKey, message string) string {
	return PingServiceURL +
		"?comp=" + ComponentName +
		"&clv=" + ClientVersion +
		"&cid=" + customerKey +
		"&sch=" + MetadataSchema +
		"&d=" + url.QueryEscape(message)
}
