// Vigia - Video Quality-of-Experience Telemetry SDK for Go
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: Apache-2.0
// https://github.com/vigialabs/vigia-go

package platform

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestRecurringFiresRepeatedly(t *testing.T) {
	s := NewTimeScheduler()
	var fired atomic.Int32

	timer := s.Recurring(5, "tick", func() { fired.Add(1) })
	defer timer.Cancel()

	deadline := time.After(2 * time.Second)
	for fired.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d firings before deadline", fired.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestRecurringCancelStopsFirings(t *testing.T) {
	s := NewTimeScheduler()
	var fired atomic.Int32

	timer := s.Recurring(5, "tick", func() { fired.Add(1) })
	time.Sleep(30 * time.Millisecond)
	timer.Cancel()

	n := fired.Load()
	time.Sleep(50 * time.Millisecond)
	if got := fired.Load(); got != n {
		t.Errorf("timer fired %d more times after Cancel", got-n)
	}
}

func TestOnceAfterFiresOnce(t *testing.T) {
	s := NewTimeScheduler()
	var fired atomic.Int32

	s.OnceAfter(5, "once", func() { fired.Add(1) })
	time.Sleep(60 * time.Millisecond)

	if got := fired.Load(); got != 1 {
		t.Errorf("fired %d times, want 1", got)
	}
}

func TestCancelBeforeFiring(t *testing.T) {
	s := NewTimeScheduler()
	var fired atomic.Int32

	timer := s.OnceAfter(50, "once", func() { fired.Add(1) })
	timer.Cancel()
	timer.Cancel() // idempotent
	time.Sleep(80 * time.Millisecond)

	if got := fired.Load(); got != 0 {
		t.Errorf("fired %d times after Cancel, want 0", got)
	}
}

func TestSystemClockAdvances(t *testing.T) {
	c := SystemClock{}
	a := c.NowMs()
	time.Sleep(5 * time.Millisecond)
	b := c.NowMs()
	if b <= a {
		t.Errorf("clock did not advance: %d then %d", a, b)
	}
}
