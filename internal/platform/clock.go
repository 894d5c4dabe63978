// Vigia - Video Quality-of-Experience Telemetry SDK for Go
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: Apache-2.0
// https://github.com/vigialabs/vigia-go

package platform

import "time"

// SystemClock reads the wall clock.
type SystemClock struct{}

// NowMs returns the current time in epoch milliseconds.
func (SystemClock) NowMs() int64 {
	return time.Now().UnixMilli()
}
