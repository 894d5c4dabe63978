// Vigia - Video Quality-of-Experience Telemetry SDK for Go
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: Apache-2.0
// https://github.com/vigialabs/vigia-go

package vigia

import (
	"errors"
	"math/rand"
	"sync"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/vigialabs/vigia-go/internal/logging"
	"github.com/vigialabs/vigia-go/internal/platform"
	"github.com/vigialabs/vigia-go/internal/protocol"
	"github.com/vigialabs/vigia-go/internal/session"
)

// Re-exported domain types. The engine lives in internal/session; the
// public surface is these aliases plus the Client.
type (
	ContentMetadata = session.ContentMetadata
	PlayerTracker   = session.PlayerTracker
	Measurements    = session.Measurements
	PlayerState     = session.PlayerState
	StreamType      = session.StreamType
	ErrorSeverity   = session.ErrorSeverity
	AdStream        = session.AdStream
	AdPlayer        = session.AdPlayer
	AdPosition      = session.AdPosition
)

// Player states an integration may report.
const (
	StateStopped   = protocol.StateStopped
	StatePlaying   = protocol.StatePlaying
	StateBuffering = protocol.StateBuffering
	StatePaused    = protocol.StatePaused
	StateUnknown   = protocol.StateUnknown
)

const (
	StreamTypeUnknown = session.StreamTypeUnknown
	StreamTypeLive    = session.StreamTypeLive
	StreamTypeVOD     = session.StreamTypeVOD
)

const (
	SeverityFatal   = session.SeverityFatal
	SeverityWarning = session.SeverityWarning
)

const (
	AdStreamContent  = session.AdStreamContent
	AdStreamSeparate = session.AdStreamSeparate
	AdPlayerContent  = session.AdPlayerContent
	AdPlayerSeparate = session.AdPlayerSeparate

	AdPositionPreroll  = session.AdPositionPreroll
	AdPositionMidroll  = session.AdPositionMidroll
	AdPositionPostroll = session.AdPositionPostroll
)

// NoSessionKey is returned by session-creating calls that fail.
const NoSessionKey = session.NoSessionKey

var (
	// ErrClientReleased is returned by calls on a released client.
	ErrClientReleased = errors.New("client has been released")
	// ErrNoSuchSession is returned when a session key is unknown or
	// already cleaned up.
	ErrNoSuchSession = errors.New("no such session")
)

// NewPlayerTracker returns an unattached player adapter. Bind it to a
// session with Client.AttachPlayer.
func NewPlayerTracker() *PlayerTracker {
	return session.NewPlayerTracker()
}

// Options configures a Client.
type Options struct {
	// CustomerKey is the account key telemetry is reported under. Required.
	CustomerKey string
	// GatewayURL overrides the per-customer production gateway.
	GatewayURL string
	// HeartbeatIntervalSec overrides the initial heartbeat cadence.
	HeartbeatIntervalSec int
	// StoragePath is the directory for persisted client state. Empty runs
	// an in-memory store.
	StoragePath string
	// HTTPTimeoutMs bounds each heartbeat exchange.
	HTTPTimeoutMs int64
	// AllowUncaught surfaces internal panics to the caller instead of
	// swallowing them. Meant for integration testing.
	AllowUncaught bool
	// SendLogs ships recent SDK log lines with every heartbeat without
	// waiting for a backend directive.
	SendLogs bool
	// Platform substitutes the host adapters wholesale. Production callers
	// leave it nil; tests and exotic embeddings supply their own bundle.
	Platform *platform.Bundle
}

// Client is the SDK entry point. One Client per application; sessions are
// created per playback and addressed by the returned key.
type Client struct {
	mu       sync.Mutex
	released bool

	settings *session.ClientSettings
	cfg      *session.ClientConfig
	factory  *session.Factory
	guard    *platform.Guard

	globalKey int

	// db is owned only when the client built its own storage.
	db *badger.DB
}

// NewClient builds and starts a client. The client config loads from
// storage in the background; sessions created before it finishes defer
// their first heartbeat until it does.
func NewClient(opts Options) (*Client, error) {
	settings, err := session.NewClientSettings(opts.CustomerKey)
	if err != nil {
		return nil, err
	}
	if opts.GatewayURL != "" {
		settings.SetGatewayURL(opts.GatewayURL)
	}
	if opts.HeartbeatIntervalSec > 0 {
		settings.SetHeartbeatIntervalSec(opts.HeartbeatIntervalSec)
	}

	c := &Client{
		settings:  settings,
		globalKey: NoSessionKey,
	}

	var bundle platform.Bundle
	if opts.Platform != nil {
		bundle = *opts.Platform
	} else {
		timeoutMs := opts.HTTPTimeoutMs
		if timeoutMs <= 0 {
			timeoutMs = platform.DefaultHTTPTimeoutMs
		}
		sched := platform.NewTimeScheduler()
		db, err := platform.OpenBadger(opts.StoragePath)
		if err != nil {
			return nil, err
		}
		c.db = db
		buf := logging.NewBuffer(logging.DefaultBufferSize)
		logging.AttachBuffer(buf)
		bundle = platform.Bundle{
			Clock:     platform.SystemClock{},
			Scheduler: sched,
			HTTP:      platform.NewNetHTTPClient(timeoutMs),
			Storage:   platform.NewBadgerStorage(db, sched, platform.DefaultStorageTimeoutMs),
			Device:    platform.DetectDeviceMetadata(),
			State:     platform.NewActiveDeviceState(),
			LogBuffer: buf,
		}
	}

	if bundle.Guard == nil {
		policy := platform.PolicyProduction
		if opts.AllowUncaught {
			policy = platform.PolicyAllowUncaught
		}
		bundle.Guard = platform.NewGuard(policy, platform.NewPing(bundle.HTTP, opts.CustomerKey))
	}
	c.guard = bundle.Guard

	c.cfg = session.NewClientConfig(bundle.Storage)
	c.cfg.Load()
	if opts.SendLogs {
		cfg := c.cfg
		cfg.Register(func() { cfg.SetSendLogs(true) })
	}

	c.factory = session.NewFactory(c.cfg, settings, bundle, rand.Int31())

	log := logging.Module("Client").Logger()
	log.Info().
		Str("customerKey", opts.CustomerKey).
		Str("gateway", settings.GatewayURL()).
		Msg("client initialized")
	return c, nil
}

func (c *Client) isReleased() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}

// CreateSession starts monitoring one playback and returns its key. The
// caller's metadata is copied, never shared.
func (c *Client) CreateSession(md *ContentMetadata) (int, error) {
	key := NoSessionKey
	err := c.guard.RunProtected("createSession", func() error {
		if c.isReleased() {
			return ErrClientReleased
		}
		key = c.factory.MakeVideoSession(md)
		return nil
	})
	return key, err
}

// CreateAdSession starts monitoring an ad interrupting the content session
// identified by parentKey.
func (c *Client) CreateAdSession(parentKey int, md *ContentMetadata) (int, error) {
	key := NoSessionKey
	err := c.guard.RunProtected("createAdSession", func() error {
		if c.isReleased() {
			return ErrClientReleased
		}
		key = c.factory.MakeAdSession(parentKey, md)
		if key == NoSessionKey {
			return ErrNoSuchSession
		}
		return nil
	})
	return key, err
}

// AttachPlayer binds a tracker to the session's monitor. The tracker's
// cached state replays into the session immediately.
func (c *Client) AttachPlayer(key int, t *PlayerTracker) error {
	return c.withSession("attachPlayer", key, func(s *session.Session) {
		s.AttachPlayer(t)
	})
}

// DetachPlayer unbinds the session's tracker; the session reports
// not-monitored until another player attaches.
func (c *Client) DetachPlayer(key int) error {
	return c.withSession("detachPlayer", key, func(s *session.Session) {
		s.DetachPlayer()
	})
}

// ContentPreload marks the start of pre-buffering ahead of viewer intent.
func (c *Client) ContentPreload(key int) error {
	return c.withSession("contentPreload", key, func(s *session.Session) {
		s.ContentPreload()
	})
}

// ContentStart marks the viewer actually starting the content.
func (c *Client) ContentStart(key int) error {
	return c.withSession("contentStart", key, func(s *session.Session) {
		s.ContentStart()
	})
}

// AdStart tells the session an ad broke into playback.
func (c *Client) AdStart(key int, stream AdStream, player AdPlayer, position AdPosition) error {
	return c.withSession("adStart", key, func(s *session.Session) {
		s.AdStart(stream, player, position)
	})
}

// AdEnd tells the session the ad finished and content playback resumes.
func (c *Client) AdEnd(key int) error {
	return c.withSession("adEnd", key, func(s *session.Session) {
		s.AdEnd()
	})
}

// ReportError records a playback error against the session.
func (c *Client) ReportError(key int, code string, severity ErrorSeverity) error {
	return c.withSession("reportError", key, func(s *session.Session) {
		s.ReportError(code, severity)
	})
}

// UpdateContentMetadata merges new metadata into the session.
func (c *Client) UpdateContentMetadata(key int, md *ContentMetadata) error {
	return c.withSession("updateContentMetadata", key, func(s *session.Session) {
		s.UpdateContentMetadata(md)
	})
}

// SendCustomEvent records an application-defined event. Pass NoSessionKey
// to record it against the client-wide global session, which is created on
// first use.
func (c *Client) SendCustomEvent(key int, name string, attributes map[string]any) error {
	return c.guard.RunProtected("sendCustomEvent", func() error {
		if c.isReleased() {
			return ErrClientReleased
		}
		var s *session.Session
		if key == NoSessionKey {
			s = c.globalSession()
		} else {
			s = c.factory.Get(key)
		}
		if s == nil {
			return ErrNoSuchSession
		}
		s.SendCustomEvent(name, attributes)
		return nil
	})
}

// CleanupSession ends the session, flushing a final heartbeat.
func (c *Client) CleanupSession(key int) error {
	return c.guard.RunProtected("cleanupSession", func() error {
		if c.isReleased() {
			return ErrClientReleased
		}
		if c.factory.Get(key) == nil {
			return ErrNoSuchSession
		}
		c.factory.Cleanup(key)
		return nil
	})
}

// Release ends every session and shuts the client down. Further calls on
// the client fail with ErrClientReleased. Idempotent.
func (c *Client) Release() error {
	return c.guard.RunProtected("release", func() error {
		c.mu.Lock()
		if c.released {
			c.mu.Unlock()
			return nil
		}
		c.released = true
		db := c.db
		c.db = nil
		c.mu.Unlock()

		c.factory.CleanupAll()
		if db != nil {
			return db.Close()
		}
		return nil
	})
}

// withSession runs fn against a playback session under panic protection.
func (c *Client) withSession(label string, key int, fn func(*session.Session)) error {
	return c.guard.RunProtected(label, func() error {
		if c.isReleased() {
			return ErrClientReleased
		}
		s := c.factory.GetVideo(key)
		if s == nil {
			return ErrNoSuchSession
		}
		fn(s)
		return nil
	})
}

// globalSession lazily creates the client-wide session. The lock is held
// across the create so concurrent first callers share one session.
func (c *Client) globalSession() *session.Session {
	c.mu.Lock()
	if c.globalKey == NoSessionKey {
		c.globalKey = c.factory.MakeGlobalSession()
	}
	key := c.globalKey
	c.mu.Unlock()
	return c.factory.Get(key)
}
