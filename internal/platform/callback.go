// Vigia - Video Quality-of-Experience Telemetry SDK for Go
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: Apache-2.0
// https://github.com/vigialabs/vigia-go

package platform

import "sync"

// ResolveOnce wraps cb so it resolves at most once. Later invocations are
// silently dropped. Storage and HTTP adapters use it so a late completion
// can never fire after a timeout already delivered a failure.
func ResolveOnce(cb Callback) Callback {
	var once sync.Once
	return func(ok bool, data string) {
		once.Do(func() {
			if cb != nil {
				cb(ok, data)
			}
		})
	}
}

// WithTimeout wraps cb so that it resolves exactly once: with the real
// result if the operation completes within timeoutMs, or with a failure
// carrying timeoutMsg otherwise. The returned callback is handed to the
// asynchronous operation.
func WithTimeout(sched Scheduler, cb Callback, timeoutMs int64, timeoutMsg string) Callback {
	wrapped := ResolveOnce(cb)
	timer := sched.OnceAfter(timeoutMs, "callback timeout", func() {
		wrapped(false, timeoutMsg)
	})
	return func(ok bool, data string) {
		timer.Cancel()
		wrapped(ok, data)
	}
}
