// Vigia - Video Quality-of-Experience Telemetry SDK for Go
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: Apache-2.0
// https://github.com/vigialabs/vigia-go

package platform

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/vigialabs/vigia-go/internal/logging"
	"github.com/vigialabs/vigia-go/internal/metrics"
)

// DefaultHTTPTimeoutMs bounds each request including body read.
const DefaultHTTPTimeoutMs = 10_000

// maxResponseBytes caps gateway response bodies; real replies are a few
// hundred bytes of JSON.
const maxResponseBytes = 1 << 20

// NetHTTPClient implements HTTPClient over net/http, guarded by a circuit
// breaker so a dead gateway is not hammered every heartbeat. Requests run
// on their own goroutine and report through the callback.
type NetHTTPClient struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[string]
}

// NewNetHTTPClient builds the production HTTP transport. A non-positive
// timeout falls back to DefaultHTTPTimeoutMs.
func NewNetHTTPClient(timeoutMs int64) *NetHTTPClient {
	if timeoutMs <= 0 {
		timeoutMs = DefaultHTTPTimeoutMs
	}

	settings := gobreaker.Settings{
		Name:        "gateway",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
			metrics.BreakerState.Set(float64(to))
		},
	}

	return &NetHTTPClient{
		client:  &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
		breaker: gobreaker.NewCircuitBreaker[string](settings),
	}
}

// Request performs the exchange asynchronously. cb receives the response
// body on success, or a diagnostic message on transport error, non-2xx
// status, or breaker rejection.
func (c *NetHTTPClient) Request(method, url, body, contentType string, cb Callback) {
	done := ResolveOnce(cb)
	go func() {
		result, err := c.breaker.Execute(func() (string, error) {
			return c.exchange(method, url, body, contentType)
		})
		if err != nil {
			done(false, err.Error())
			return
		}
		done(true, result)
	}()
}

func (c *NetHTTPClient) exchange(method, url, body, contentType string) (string, error) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%s %s: status %d", method, url, resp.StatusCode)
	}
	return string(data), nil
}
