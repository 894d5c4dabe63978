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
	"github.com/vigialabs/vigia-go/internal/platform"
	"github.com/vigialabs/vigia-go/internal/protocol"
)

// configStorageKey is the key the client config persists under.
const configStorageKey = "sdkConfig"

// persistedConfig is the stored shape of the client config. Only the
// backend-assigned client id survives restarts.
type persistedConfig struct {
	ClientID string `json:"clId"`
}

// ClientConfig holds backend-controlled settings, chiefly the client id
// assigned on first contact. It loads asynchronously from storage at
// client startup; sessions that want to send a heartbeat before the load
// completes register a callback and are drained when it does.
type ClientConfig struct {
	mu      sync.Mutex
	log     zerolog.Logger
	storage platform.Storage

	loaded   bool
	clientID string
	sendLogs bool

	// waiting is drained last-in first-out when the load completes.
	waiting []func()
}

// NewClientConfig returns an unloaded config with defaults in place.
func NewClientConfig(storage platform.Storage) *ClientConfig {
	return &ClientConfig{
		log:      logging.Module("ClientConfig").Logger(),
		storage:  storage,
		clientID: protocol.DefaultClientID,
	}
}

// Load reads the persisted config from storage. Whatever the outcome the
// config becomes ready and all registered callbacks fire.
func (c *ClientConfig) Load() {
	c.storage.Load(configStorageKey, func(ok bool, data string) {
		if ok {
			c.parse(data)
		} else {
			c.log.Error().Str("error", data).Msg("load failed")
		}
		c.markLoaded()
	})
}

func (c *ClientConfig) parse(data string) {
	if data == "" {
		return
	}
	var p persistedConfig
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		c.log.Error().Err(err).Msg("parse failed")
		return
	}
	if p.ClientID != "" && p.ClientID != protocol.DefaultClientID && p.ClientID != "null" {
		c.mu.Lock()
		c.clientID = p.ClientID
		c.mu.Unlock()
		c.log.Info().Str("clientID", p.ClientID).Msg("loaded client id from storage")
	}
}

func (c *ClientConfig) markLoaded() {
	c.mu.Lock()
	c.loaded = true
	pending := c.waiting
	c.waiting = nil
	c.mu.Unlock()

	for i := len(pending) - 1; i >= 0; i-- {
		pending[i]()
	}
}

// IsReady reports whether the storage load has completed.
func (c *ClientConfig) IsReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Register invokes fn once the config is ready: immediately if the load
// already completed, otherwise when it does.
func (c *ClientConfig) Register(fn func()) {
	c.mu.Lock()
	if c.loaded {
		c.mu.Unlock()
		fn()
		return
	}
	c.waiting = append(c.waiting, fn)
	c.mu.Unlock()
}

// ClientID returns the backend-assigned client id, or the default before
// the first assignment.
func (c *ClientConfig) ClientID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clientID
}

// SetClientID adopts a backend-assigned client id. Ignored until loaded,
// so a racing heartbeat response cannot clobber the persisted id.
func (c *ClientConfig) SetClientID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return
	}
	c.clientID = id
}

// SendLogs reports whether heartbeats should carry the log buffer.
func (c *ClientConfig) SendLogs() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLogs
}

// SetSendLogs toggles log shipping. Ignored until loaded. Not persisted.
func (c *ClientConfig) SetSendLogs(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return
	}
	c.sendLogs = v
}

// Save persists the current config fire-and-forget.
func (c *ClientConfig) Save() {
	c.mu.Lock()
	p := persistedConfig{ClientID: c.clientID}
	c.mu.Unlock()

	data, err := json.Marshal(p)
	if err != nil {
		c.log.Error().Err(err).Msg("marshal failed")
		return
	}
	c.storage.Save(configStorageKey, string(data), func(ok bool, msg string) {
		if !ok {
			c.log.Error().Str("error", msg).Msg("save failed")
		}
	})
}
