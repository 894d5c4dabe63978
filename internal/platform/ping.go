// Vigia - Video Quality-of-Experience Telemetry SDK for Go
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: Apache-2.0
// https://github.com/vigialabs/vigia-go

package platform

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/vigialabs/vigia-go/internal/logging"
	"github.com/vigialabs/vigia-go/internal/protocol"
)

// Ping reports SDK runtime errors out-of-band to the ping service, so
// defects are visible even when the heartbeat path itself is broken.
type Ping struct {
	mu          sync.Mutex
	log         zerolog.Logger
	http        HTTPClient
	customerKey string
	sending     bool
}

// NewPing builds a Ping bound to a customer key.
func NewPing(http HTTPClient, customerKey string) *Ping {
	return &Ping{
		log:         logging.Module("Ping").Logger(),
		http:        http,
		customerKey: customerKey,
	}
}

// Send fires a diagnostic GET carrying message. A failure while a previous
// ping is in flight is dropped: a ping failure must never ping.
func (p *Ping) Send(message string) {
	p.mu.Lock()
	if p.sending {
		p.mu.Unlock()
		return
	}
	p.sending = true
	p.mu.Unlock()

	url := protocol.PingURL(p.customerKey, message)
	p.log.Error().Str("url", url).Msg("reporting runtime error")
	p.http.Request("GET", url, "", "", func(ok bool, _ string) {
		p.mu.Lock()
		p.sending = false
		p.mu.Unlock()
		if !ok {
			p.log.Error().Msg("failed to send ping")
		}
	})
}
