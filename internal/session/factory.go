// Vigia - Video Quality-of-Experience Telemetry SDK for Go
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: Apache-2.0
// https://github.com/vigialabs/vigia-go

package session

import (
	"math/rand"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vigialabs/vigia-go/internal/logging"
	"github.com/vigialabs/vigia-go/internal/metrics"
	"github.com/vigialabs/vigia-go/internal/platform"
)

// adParentTag carries the parent session's wire id on ad sessions so the
// backend can join an ad to the content it interrupted.
const adParentTag = "c3.csid"

// Factory creates and tracks the client's sessions. Public keys count up
// from zero and are never reused within a client; the wire ids are random.
type Factory struct {
	mu  sync.Mutex
	log zerolog.Logger

	cfg        *ClientConfig
	settings   *ClientSettings
	bundle     platform.Bundle
	instanceID int32

	sessions map[int]*Session
	nextKey  int
}

// NewFactory returns an empty session registry.
func NewFactory(cfg *ClientConfig, settings *ClientSettings, bundle platform.Bundle, instanceID int32) *Factory {
	return &Factory{
		log:        logging.Module("SessionFactory").Logger(),
		cfg:        cfg,
		settings:   settings,
		bundle:     bundle,
		instanceID: instanceID,
		sessions:   make(map[int]*Session),
	}
}

// MakeVideoSession creates and starts a session monitoring main content.
// The caller's metadata is cloned, never shared.
func (f *Factory) MakeVideoSession(md *ContentMetadata) int {
	return f.makeSession(md.Clone(), SessionTypeVideo)
}

// MakeGlobalSession creates the client-wide session that carries events
// not tied to any playback. It has no monitor and only heartbeats when it
// holds events.
func (f *Factory) MakeGlobalSession() int {
	return f.makeSession((*ContentMetadata)(nil).Clone(), SessionTypeGlobal)
}

// MakeAdSession creates a session for an ad interrupting the content
// session identified by parentKey. The ad metadata is tagged with the
// parent's wire id, and inherits the parent's application name and viewer
// id when the ad metadata leaves them blank. Returns NoSessionKey when the
// parent is gone.
func (f *Factory) MakeAdSession(parentKey int, adMD *ContentMetadata) int {
	parent := f.Get(parentKey)
	if parent == nil {
		f.log.Error().Int("parentKey", parentKey).Msg("makeAdSession: no such content session")
		return NoSessionKey
	}

	md := adMD.Clone()
	md.Custom[adParentTag] = strconv.Itoa(int(parent.InternalID()))
	if md.ApplicationName == "" && parent.metadata != nil {
		md.ApplicationName = parent.metadata.ApplicationName
	}
	if md.ViewerID == "" && parent.metadata != nil {
		md.ViewerID = parent.metadata.ViewerID
	}
	return f.makeSession(md, SessionTypeAd)
}

func (f *Factory) makeSession(md *ContentMetadata, sessionType SessionType) int {
	internalID := rand.Int31()
	queue := NewEventQueue()

	var monitor *Monitor
	if sessionType != SessionTypeGlobal {
		monitor = NewMonitor(internalID, queue, md, f.bundle.Clock, f.bundle.State)
	}

	f.mu.Lock()
	key := f.nextKey
	f.nextKey++
	sess := NewSession(key, internalID, f.instanceID, sessionType, md, queue, monitor, f.cfg, f.settings, f.bundle)
	f.sessions[key] = sess
	f.mu.Unlock()

	f.log.Info().
		Int("key", key).
		Int32("sid", internalID).
		Int("type", int(sessionType)).
		Msg("session created")
	metrics.SessionsActive.Inc()

	sess.Start()
	return key
}

// Get returns the session for key, or nil.
func (f *Factory) Get(key int) *Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[key]
}

// GetVideo returns the session for key only if it monitors playback; the
// global session is not addressable through playback operations.
func (f *Factory) GetVideo(key int) *Session {
	s := f.Get(key)
	if s == nil || s.IsGlobal() {
		return nil
	}
	return s
}

// Count reports the number of live sessions.
func (f *Factory) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

// Cleanup ends the session for key and removes it from the registry.
func (f *Factory) Cleanup(key int) {
	f.mu.Lock()
	s := f.sessions[key]
	delete(f.sessions, key)
	f.mu.Unlock()

	if s == nil {
		f.log.Warn().Int("key", key).Msg("cleanup: no such session")
		return
	}
	s.Cleanup()
	metrics.SessionsActive.Dec()
}

// CleanupAll ends every session and resets the key counter.
func (f *Factory) CleanupAll() {
	f.mu.Lock()
	pending := make([]*Session, 0, len(f.sessions))
	for key, s := range f.sessions {
		pending = append(pending, s)
		delete(f.sessions, key)
	}
	f.nextKey = 0
	f.mu.Unlock()

	for _, s := range pending {
		s.Cleanup()
		metrics.SessionsActive.Dec()
	}
}
