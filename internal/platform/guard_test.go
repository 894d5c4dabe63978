// Vigia - Video Quality-of-Experience Telemetry SDK for Go
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: Apache-2.0
// https://github.com/vigialabs/vigia-go

package platform

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

// recordingHTTPClient captures requests for inspection.
type recordingHTTPClient struct {
	mu       sync.Mutex
	requests []string
}

func (c *recordingHTTPClient) Request(method, url, body, contentType string, cb Callback) {
	c.mu.Lock()
	c.requests = append(c.requests, method+" "+url)
	c.mu.Unlock()
	if cb != nil {
		cb(true, "")
	}
}

func (c *recordingHTTPClient) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func TestRunProtectedPassesThroughError(t *testing.T) {
	g := NewGuard(PolicyProduction, nil)
	want := errors.New("boom")
	if err := g.RunProtected("op", func() error { return want }); !errors.Is(err, want) {
		t.Errorf("got %v, want %v", err, want)
	}
}

func TestRunProtectedProductionSwallowsPanic(t *testing.T) {
	http := &recordingHTTPClient{}
	g := NewGuard(PolicyProduction, NewPing(http, "cust1"))

	err := g.RunProtected("createSession", func() error {
		panic("bad state")
	})
	if err != nil {
		t.Errorf("production policy must swallow, got %v", err)
	}
	if http.count() != 1 {
		t.Errorf("expected 1 ping request, got %d", http.count())
	}
}

func TestRunProtectedAllowUncaughtSurfacesPanic(t *testing.T) {
	g := NewGuard(PolicyAllowUncaught, nil)

	err := g.RunProtected("attachPlayer", func() error {
		panic("bad state")
	})
	if err == nil {
		t.Fatal("expected error from panic")
	}
	if !strings.Contains(err.Error(), "attachPlayer") || !strings.Contains(err.Error(), "bad state") {
		t.Errorf("error %q missing label or cause", err)
	}
}

func TestPingReentrancyGuard(t *testing.T) {
	// An HTTP client that never completes keeps the first ping in flight.
	stuck := &stuckHTTPClient{}
	p := NewPing(stuck, "cust1")

	p.Send("first")
	p.Send("second") // dropped while first is in flight

	if stuck.count() != 1 {
		t.Errorf("expected 1 request, got %d", stuck.count())
	}
}

type stuckHTTPClient struct {
	mu sync.Mutex
	n  int
}

func (c *stuckHTTPClient) Request(method, url, body, contentType string, cb Callback) {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
	// never invokes cb
}

func (c *stuckHTTPClient) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}
