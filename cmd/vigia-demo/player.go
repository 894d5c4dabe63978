// Vigia - Video Quality-of-Experience Telemetry SDK for Go
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: Apache-2.0
// https://github.com/vigialabs/vigia-go

package main

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	vigia "github.com/vigialabs/vigia-go"
	"github.com/vigialabs/vigia-go/internal/logging"
)

// scriptedMeasurements simulates a playing stream: the play head advances
// in real time while the buffer and signal wobble a little.
type scriptedMeasurements struct {
	mu      sync.Mutex
	started time.Time
	playing bool
	basisMs int64
}

func newScriptedMeasurements() *scriptedMeasurements {
	return &scriptedMeasurements{started: time.Now()}
}

func (m *scriptedMeasurements) play() {
	m.mu.Lock()
	if !m.playing {
		m.playing = true
		m.started = time.Now()
	}
	m.mu.Unlock()
}

func (m *scriptedMeasurements) pause() {
	m.mu.Lock()
	if m.playing {
		m.basisMs += time.Since(m.started).Milliseconds()
		m.playing = false
	}
	m.mu.Unlock()
}

func (m *scriptedMeasurements) PlayHeadTimeMs() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.playing {
		return m.basisMs + time.Since(m.started).Milliseconds()
	}
	return m.basisMs
}

func (m *scriptedMeasurements) BufferLengthMs() int {
	return 8_000 + rand.Intn(4_000)
}

func (m *scriptedMeasurements) SignalStrength() float64 {
	return -1.0
}

func (m *scriptedMeasurements) FrameRate() int {
	return 30
}

// playbackScript drives one simulated viewing through the SDK: join,
// bitrate switches, a seek, a midroll ad break, a warning, then teardown.
type playbackScript struct {
	log      zerolog.Logger
	client   *vigia.Client
	stepWait time.Duration
}

func newPlaybackScript(client *vigia.Client, stepWait time.Duration) *playbackScript {
	return &playbackScript{
		log:      logging.Module("Script").Logger(),
		client:   client,
		stepWait: stepWait,
	}
}

func (p *playbackScript) run(ctx context.Context) error {
	key, err := p.client.CreateSession(&vigia.ContentMetadata{
		AssetName:        "Tears of Steel",
		ApplicationName:  "vigia-demo",
		ViewerID:         "demo-viewer",
		StreamURL:        "https://cdn.example.com/tos/master.m3u8",
		StreamType:       vigia.StreamTypeVOD,
		Duration:         734,
		EncodedFrameRate: 24,
		Custom:           map[string]string{"genre": "scifi"},
	})
	if err != nil {
		return err
	}
	p.log.Info().Int("key", key).Msg("session created")

	tracker := vigia.NewPlayerTracker()
	tracker.SetPlayerInfo("demo-player", "1.0.0")
	tracker.SetModuleNameAndVersion("vigia-demo", "1.0.0")
	measure := newScriptedMeasurements()
	tracker.SetMeasurements(measure)

	if err := p.client.AttachPlayer(key, tracker); err != nil {
		return err
	}

	steps := []struct {
		name string
		fn   func()
	}{
		{"buffering", func() { _ = tracker.SetPlayerState(vigia.StateBuffering) }},
		{"join", func() {
			_ = tracker.SetPlayerState(vigia.StatePlaying)
			measure.play()
			tracker.SetBitrateKbps(1_800)
			tracker.SetVideoWidth(1280)
			tracker.SetVideoHeight(720)
			tracker.SetCDNServerIP("198.51.100.7")
		}},
		{"bitrate up", func() { tracker.SetBitrateKbps(4_500) }},
		{"seek", func() {
			tracker.SeekStart(120_000)
			_ = tracker.SetPlayerState(vigia.StateBuffering)
			measure.pause()
		}},
		{"seek done", func() {
			tracker.SeekEnd()
			_ = tracker.SetPlayerState(vigia.StatePlaying)
			measure.play()
		}},
		{"midroll", func() {
			_ = p.client.AdStart(key, vigia.AdStreamSeparate, vigia.AdPlayerContent, vigia.AdPositionMidroll)
		}},
		{"midroll done", func() { _ = p.client.AdEnd(key) }},
		{"hiccup", func() { p.reportWarning(key) }},
		{"pause", func() {
			_ = tracker.SetPlayerState(vigia.StatePaused)
			measure.pause()
		}},
		{"resume", func() {
			_ = tracker.SetPlayerState(vigia.StatePlaying)
			measure.play()
		}},
	}

	for _, step := range steps {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.stepWait):
		}
		p.log.Info().Str("step", step.name).Msg("script step")
		step.fn()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.stepWait):
	}

	tracker.Release()
	if err := p.client.CleanupSession(key); err != nil {
		return err
	}
	p.log.Info().Msg("playback finished")
	return nil
}

func (p *playbackScript) reportWarning(key int) {
	if err := p.client.ReportError(key, "BITRATE_OSCILLATION", vigia.SeverityWarning); err != nil {
		p.log.Warn().Err(err).Msg("report error failed")
	}
}
