// Vigia - Video Quality-of-Experience Telemetry SDK for Go
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: Apache-2.0
// https://github.com/vigialabs/vigia-go

package session

import (
	"errors"
	"net/url"
	"sync"

	"github.com/vigialabs/vigia-go/internal/logging"
	"github.com/vigialabs/vigia-go/internal/protocol"
)

// DefaultHeartbeatIntervalSec is the production heartbeat cadence.
const DefaultHeartbeatIntervalSec = 20

// ErrMissingCustomerKey is returned when settings are built without a key.
var ErrMissingCustomerKey = errors.New("customer key is required")

// ClientSettings holds the per-customer configuration shared by all
// sessions of a client. The backend may adjust the gateway URL and the
// heartbeat interval at runtime, so access is serialized; sessions read
// through the accessors and apply server overrides through the setters.
type ClientSettings struct {
	mu                   sync.Mutex
	customerKey          string
	gatewayURL           string
	heartbeatIntervalSec int
}

// NewClientSettings validates the customer key and applies defaults:
// heartbeat every DefaultHeartbeatIntervalSec seconds, gateway at the
// per-customer production URL.
func NewClientSettings(customerKey string) (*ClientSettings, error) {
	if customerKey == "" {
		return nil, ErrMissingCustomerKey
	}
	s := &ClientSettings{
		customerKey:          customerKey,
		heartbeatIntervalSec: DefaultHeartbeatIntervalSec,
	}
	s.gatewayURL = protocol.DefaultGatewayURL(customerKey)
	return s, nil
}

// Copy returns an independent settings instance with the same values.
func (s *ClientSettings) Copy() *ClientSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &ClientSettings{
		customerKey:          s.customerKey,
		gatewayURL:           s.gatewayURL,
		heartbeatIntervalSec: s.heartbeatIntervalSec,
	}
}

// CustomerKey returns the immutable customer key.
func (s *ClientSettings) CustomerKey() string {
	return s.customerKey
}

// GatewayURL returns the current heartbeat gateway base URL.
func (s *ClientSettings) GatewayURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gatewayURL
}

// SetGatewayURL installs a new gateway URL after sanitizing it. An
// unparsable URL, a non-http(s) scheme, or the bare production host (which
// only works with a customer prefix) all fall back to the per-customer
// default.
func (s *ClientSettings) SetGatewayURL(raw string) {
	sanitized := s.sanitizeGatewayURL(raw)
	s.mu.Lock()
	s.gatewayURL = sanitized
	s.mu.Unlock()
}

func (s *ClientSettings) sanitizeGatewayURL(raw string) string {
	fallback := protocol.DefaultGatewayURL(s.customerKey)
	if raw == "" || raw == protocol.DefaultProductionGatewayHost {
		return fallback
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		logging.Warn().Str("url", raw).Msg("invalid gateway URL, using default")
		return fallback
	}
	return raw
}

// HeartbeatIntervalSec returns the current heartbeat cadence in seconds.
func (s *ClientSettings) HeartbeatIntervalSec() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heartbeatIntervalSec
}

// SetHeartbeatIntervalSec installs a new cadence. Negative values reset to
// the production default.
func (s *ClientSettings) SetHeartbeatIntervalSec(sec int) {
	if sec < 0 {
		sec = DefaultHeartbeatIntervalSec
	}
	s.mu.Lock()
	s.heartbeatIntervalSec = sec
	s.mu.Unlock()
}
