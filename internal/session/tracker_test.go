// Vigia - Video Quality-of-Experience Telemetry SDK for Go
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: Apache-2.0
// https://github.com/vigialabs/vigia-go

package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/vigialabs/vigia-go/internal/protocol"
)

// recordingNotifier captures everything a tracker forwards.
type recordingNotifier struct {
	mu       sync.Mutex
	states   []protocol.PlayerState
	bitrates []int
	widths   []int
	heights  []int
	cdnIPs   []string
	errs     []StreamerError
	metadata []map[string]string
	seeks    []string
	fps      []int
	released bool
}

func (r *recordingNotifier) SetPlayerState(state protocol.PlayerState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *recordingNotifier) SetBitrateKbps(kbps int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bitrates = append(r.bitrates, kbps)
}

func (r *recordingNotifier) SetVideoWidth(w int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.widths = append(r.widths, w)
}

func (r *recordingNotifier) SetVideoHeight(h int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.heights = append(r.heights, h)
}

func (r *recordingNotifier) SetCDNServerIP(ip string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cdnIPs = append(r.cdnIPs, ip)
}

func (r *recordingNotifier) OnError(e StreamerError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, e)
}

func (r *recordingNotifier) OnMetadata(md map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metadata = append(r.metadata, md)
}

func (r *recordingNotifier) OnSeekStart(seekToPosMs int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seeks = append(r.seeks, protocol.SeekActStart)
}

func (r *recordingNotifier) OnSeekEnd() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seeks = append(r.seeks, protocol.SeekActEnd)
}

func (r *recordingNotifier) OnSeekButtonDown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seeks = append(r.seeks, protocol.SeekActButtonDown)
}

func (r *recordingNotifier) OnSeekButtonUp() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seeks = append(r.seeks, protocol.SeekActButtonUp)
}

func (r *recordingNotifier) OnRenderedFramerateUpdate(fps int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fps = append(r.fps, fps)
}

func (r *recordingNotifier) OnContentMetadataUpdate(md *ContentMetadata) {}

func (r *recordingNotifier) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = true
}

func TestTrackerRejectsReservedState(t *testing.T) {
	p := NewPlayerTracker()
	if err := p.SetPlayerState(protocol.StateNotMonitored); !errors.Is(err, ErrInvalidPlayerState) {
		t.Errorf("expected ErrInvalidPlayerState, got %v", err)
	}
	if err := p.SetPlayerState(protocol.PlayerState(42)); !errors.Is(err, ErrInvalidPlayerState) {
		t.Errorf("expected ErrInvalidPlayerState for unknown value, got %v", err)
	}
	if err := p.SetPlayerState(protocol.StatePlaying); err != nil {
		t.Errorf("expected Playing accepted, got %v", err)
	}
}

func TestTrackerForwardsLiveUpdates(t *testing.T) {
	p := NewPlayerTracker()
	n := &recordingNotifier{}
	if !p.setMonitoringNotifier(n, 1) {
		t.Fatal("expected attach to succeed")
	}

	if err := p.SetPlayerState(protocol.StateBuffering); err != nil {
		t.Fatalf("SetPlayerState: %v", err)
	}
	p.SetBitrateKbps(2500)
	p.SetVideoWidth(1920)
	p.SetVideoHeight(1080)
	p.SetCDNServerIP("203.0.113.9")
	p.SeekStart(30_000)
	p.SeekEnd()

	if len(n.states) == 0 || n.states[len(n.states)-1] != protocol.StateBuffering {
		t.Errorf("expected Buffering forwarded, got %v", n.states)
	}
	if len(n.bitrates) == 0 || n.bitrates[len(n.bitrates)-1] != 2500 {
		t.Errorf("expected bitrate forwarded, got %v", n.bitrates)
	}
	if len(n.widths) != 1 || n.widths[0] != 1920 {
		t.Errorf("expected width forwarded, got %v", n.widths)
	}
	if len(n.heights) != 1 || n.heights[0] != 1080 {
		t.Errorf("expected height forwarded, got %v", n.heights)
	}
	if len(n.cdnIPs) != 1 || n.cdnIPs[0] != "203.0.113.9" {
		t.Errorf("expected CDN IP forwarded, got %v", n.cdnIPs)
	}
	if len(n.seeks) != 2 || n.seeks[0] != protocol.SeekActStart || n.seeks[1] != protocol.SeekActEnd {
		t.Errorf("expected seek start then end, got %v", n.seeks)
	}
}

func TestTrackerReplaysCachedStateOnAttach(t *testing.T) {
	p := NewPlayerTracker()
	if err := p.SetPlayerState(protocol.StatePaused); err != nil {
		t.Fatalf("SetPlayerState: %v", err)
	}
	p.SetBitrateKbps(800)
	p.SetDuration(600)

	n := &recordingNotifier{}
	if !p.setMonitoringNotifier(n, 7) {
		t.Fatal("expected attach to succeed")
	}

	if len(n.states) != 1 || n.states[0] != protocol.StatePaused {
		t.Errorf("expected cached state replayed, got %v", n.states)
	}
	if len(n.bitrates) != 1 || n.bitrates[0] != 800 {
		t.Errorf("expected cached bitrate replayed, got %v", n.bitrates)
	}
	if len(n.metadata) != 1 || n.metadata[0][metadataDuration] != "600" {
		t.Errorf("expected cached metadata replayed, got %v", n.metadata)
	}
}

func TestTrackerSkipsUnsetValuesOnAttach(t *testing.T) {
	p := NewPlayerTracker()
	n := &recordingNotifier{}
	if !p.setMonitoringNotifier(n, 7) {
		t.Fatal("expected attach to succeed")
	}

	if len(n.bitrates) != 0 {
		t.Errorf("expected no bitrate replay when never reported, got %v", n.bitrates)
	}
	if len(n.metadata) != 0 {
		t.Errorf("expected no metadata replay when empty, got %v", n.metadata)
	}
	if len(n.states) != 1 || n.states[0] != protocol.StateUnknown {
		t.Errorf("expected Unknown state replayed, got %v", n.states)
	}
}

func TestTrackerBuffersErrorsUntilAttach(t *testing.T) {
	p := NewPlayerTracker()
	p.SendError("NO_NETWORK", SeverityFatal)
	p.SendError("DRIFT", SeverityWarning)

	n := &recordingNotifier{}
	if !p.setMonitoringNotifier(n, 3) {
		t.Fatal("expected attach to succeed")
	}

	if len(n.errs) != 2 {
		t.Fatalf("expected 2 replayed errors, got %d", len(n.errs))
	}
	if n.errs[0].Code != "NO_NETWORK" || !n.errs[0].IsFatal() {
		t.Errorf("expected first error NO_NETWORK fatal, got %+v", n.errs[0])
	}
	if n.errs[1].Code != "DRIFT" || n.errs[1].IsFatal() {
		t.Errorf("expected second error DRIFT warning, got %+v", n.errs[1])
	}

	// Replayed errors are consumed, not replayed twice.
	p.removeMonitoringNotifier()
	n2 := &recordingNotifier{}
	if !p.setMonitoringNotifier(n2, 4) {
		t.Fatal("expected re-attach to succeed")
	}
	if len(n2.errs) != 0 {
		t.Errorf("expected no errors on second attach, got %v", n2.errs)
	}
}

func TestTrackerSingleSessionAtATime(t *testing.T) {
	p := NewPlayerTracker()
	if !p.setMonitoringNotifier(&recordingNotifier{}, 1) {
		t.Fatal("expected first attach to succeed")
	}
	if p.setMonitoringNotifier(&recordingNotifier{}, 2) {
		t.Error("expected second attach to fail")
	}
	p.removeMonitoringNotifier()
	if !p.setMonitoringNotifier(&recordingNotifier{}, 3) {
		t.Error("expected attach after detach to succeed")
	}
}

func TestTrackerMeasurementsDefaults(t *testing.T) {
	p := NewPlayerTracker()
	if got := p.PlayHeadTimeMs(); got != -1 {
		t.Errorf("expected play head -1 without measurements, got %d", got)
	}
	if got := p.BufferLengthMs(); got != -1 {
		t.Errorf("expected buffer length -1 without measurements, got %d", got)
	}
	if got := p.SignalStrength(); got != -1.0 {
		t.Errorf("expected signal strength -1 without measurements, got %v", got)
	}

	p.SetMeasurements(&testMeasurements{pht: 42_000, bl: 8_000, ss: 0.9, fps: 30})
	if got := p.PlayHeadTimeMs(); got != 42_000 {
		t.Errorf("expected play head 42000, got %d", got)
	}
	if got := p.BufferLengthMs(); got != 8_000 {
		t.Errorf("expected buffer length 8000, got %d", got)
	}
	if got := p.FrameRate(); got != 30 {
		t.Errorf("expected frame rate 30, got %d", got)
	}

	p.RemoveMeasurements()
	if got := p.FrameRate(); got != -1 {
		t.Errorf("expected frame rate -1 after remove, got %d", got)
	}
}

func TestTrackerResetKeepsBinding(t *testing.T) {
	p := NewPlayerTracker()
	n := &recordingNotifier{}
	p.setMonitoringNotifier(n, 1)
	if err := p.SetPlayerState(protocol.StatePlaying); err != nil {
		t.Fatalf("SetPlayerState: %v", err)
	}

	p.Reset()
	if got := p.PlayerState(); got != protocol.StateUnknown {
		t.Errorf("expected Unknown after reset, got %v", got)
	}

	// Still attached: new updates keep flowing.
	before := len(n.states)
	if err := p.SetPlayerState(protocol.StateBuffering); err != nil {
		t.Fatalf("SetPlayerState: %v", err)
	}
	if len(n.states) != before+1 {
		t.Error("expected updates to keep flowing after reset")
	}
}

func TestTrackerReleaseNotifiesMonitor(t *testing.T) {
	p := NewPlayerTracker()
	n := &recordingNotifier{}
	p.setMonitoringNotifier(n, 1)
	p.SetMeasurements(&testMeasurements{})

	p.Release()
	if !n.released {
		t.Error("expected monitor notified on release")
	}
	if got := p.PlayHeadTimeMs(); got != -1 {
		t.Errorf("expected measurements removed on release, got %d", got)
	}
	if !p.setMonitoringNotifier(&recordingNotifier{}, 2) {
		t.Error("expected tracker attachable again after release")
	}
}
