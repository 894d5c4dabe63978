// Vigia - Video Quality-of-Experience Telemetry SDK for Go
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: Apache-2.0
// https://github.com/vigialabs/vigia-go

package platform

import (
	"runtime"
	"sync"

	"github.com/vigialabs/vigia-go/internal/protocol"
)

// StaticDeviceMetadata serves a fixed DeviceInfo, computed once. Hosts that
// know more about their hardware provide their own DeviceMetadata instead.
type StaticDeviceMetadata struct {
	info protocol.DeviceInfo
}

// NewStaticDeviceMetadata caches info for the lifetime of the client.
func NewStaticDeviceMetadata(info protocol.DeviceInfo) *StaticDeviceMetadata {
	return &StaticDeviceMetadata{info: info}
}

// DetectDeviceMetadata builds a best-effort DeviceInfo from the Go runtime.
func DetectDeviceMetadata() *StaticDeviceMetadata {
	return &StaticDeviceMetadata{info: protocol.DeviceInfo{
		OSVersion:        runtime.GOOS,
		Model:            runtime.GOARCH,
		FrameworkName:    "go",
		FrameworkVersion: runtime.Version(),
	}}
}

// Info returns the cached device description.
func (m *StaticDeviceMetadata) Info() protocol.DeviceInfo {
	return m.info
}

// ActiveDeviceState is the default DeviceState: always awake, always
// visible, no data saving, unknown network. Hosts with real signals (a
// mobile runtime, a TV platform) implement DeviceState themselves; this
// default never suppresses telemetry.
type ActiveDeviceState struct {
	mu             sync.Mutex
	sleeping       bool
	hidden         bool
	dataSaver      bool
	connectionType string
	linkEncryption string
	signalDBm      int
}

// NewActiveDeviceState returns a DeviceState reporting full activity.
func NewActiveDeviceState() *ActiveDeviceState {
	return &ActiveDeviceState{}
}

func (s *ActiveDeviceState) InSleepingMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sleeping
}

func (s *ActiveDeviceState) IsVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.hidden
}

func (s *ActiveDeviceState) DataSaverEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dataSaver
}

func (s *ActiveDeviceState) ConnectionType() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectionType
}

func (s *ActiveDeviceState) LinkEncryption() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.linkEncryption
}

func (s *ActiveDeviceState) SignalStrengthDBm() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signalDBm
}

// SetSleeping updates the sleep flag; heartbeats pause while sleeping.
func (s *ActiveDeviceState) SetSleeping(v bool) {
	s.mu.Lock()
	s.sleeping = v
	s.mu.Unlock()
}

// SetVisible updates application visibility.
func (s *ActiveDeviceState) SetVisible(v bool) {
	s.mu.Lock()
	s.hidden = !v
	s.mu.Unlock()
}

// SetDataSaver updates the user's data-saving preference.
func (s *ActiveDeviceState) SetDataSaver(v bool) {
	s.mu.Lock()
	s.dataSaver = v
	s.mu.Unlock()
}

// SetNetwork updates connection type and link encryption.
func (s *ActiveDeviceState) SetNetwork(connectionType, linkEncryption string) {
	s.mu.Lock()
	s.connectionType = connectionType
	s.linkEncryption = linkEncryption
	s.mu.Unlock()
}

// SetSignalStrength updates the measured signal strength in dBm.
func (s *ActiveDeviceState) SetSignalStrength(dbm int) {
	s.mu.Lock()
	s.signalDBm = dbm
	s.mu.Unlock()
}
