// Vigia - Video Quality-of-Experience Telemetry SDK for Go
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: Apache-2.0
// https://github.com/vigialabs/vigia-go

package platform

import (
	"sync"
	"time"

	"github.com/vigialabs/vigia-go/internal/logging"
)

// TimeScheduler implements Scheduler on top of time.AfterFunc. Each
// recurring task reschedules itself after running, so a slow callback
// delays the next firing instead of stacking concurrent runs.
type TimeScheduler struct{}

// NewTimeScheduler returns the production scheduler.
func NewTimeScheduler() *TimeScheduler {
	return &TimeScheduler{}
}

type timeTask struct {
	mu        sync.Mutex
	timer     *time.Timer
	cancelled bool
}

func (t *timeTask) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelled = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// Recurring fires fn every intervalMs milliseconds until cancelled.
func (s *TimeScheduler) Recurring(intervalMs int64, name string, fn func()) Timer {
	task := &timeTask{}
	interval := time.Duration(intervalMs) * time.Millisecond

	var run func()
	run = func() {
		fn()
		task.mu.Lock()
		defer task.mu.Unlock()
		if task.cancelled {
			return
		}
		task.timer = time.AfterFunc(interval, run)
	}

	logging.Debug().Str("task", name).Int64("interval_ms", intervalMs).Msg("recurring timer created")
	task.mu.Lock()
	task.timer = time.AfterFunc(interval, run)
	task.mu.Unlock()
	return task
}

// OnceAfter fires fn a single time after delayMs milliseconds.
func (s *TimeScheduler) OnceAfter(delayMs int64, name string, fn func()) Timer {
	task := &timeTask{}
	logging.Debug().Str("task", name).Int64("delay_ms", delayMs).Msg("one-shot timer created")
	task.mu.Lock()
	task.timer = time.AfterFunc(time.Duration(delayMs)*time.Millisecond, fn)
	task.mu.Unlock()
	return task
}
