// Vigia - Video Quality-of-Experience Telemetry SDK for Go
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: Apache-2.0
// https://github.com/vigialabs/vigia-go

package main

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vigialabs/vigia-go/internal/logging"
	"github.com/vigialabs/vigia-go/internal/protocol"
)

// collector is a local stand-in for the telemetry gateway. It accepts
// heartbeats on the wire path, assigns client ids, and can push interval
// overrides back to clients, which makes the backend-directive machinery
// observable without a real backend.
type collector struct {
	log           zerolog.Logger
	listen        string
	hbIntervalSec int

	mu         sync.Mutex
	heartbeats int
}

func newCollector(listen string, hbIntervalSec int) *collector {
	return &collector{
		log:           logging.Module("Collector").Logger(),
		listen:        listen,
		hbIntervalSec: hbIntervalSec,
	}
}

// Serve implements suture.Service.
func (c *collector) Serve(ctx context.Context) error {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Post(protocol.GatewayPath, c.handleHeartbeat)

	srv := &http.Server{
		Addr:              c.listen,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	c.log.Info().Str("listen", c.listen).Msg("collector listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return ctx.Err()
		}
		return err
	}
}

func (c *collector) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var hb map[string]any
	if err := json.NewDecoder(r.Body).Decode(&hb); err != nil {
		http.Error(w, "bad heartbeat", http.StatusBadRequest)
		return
	}

	c.mu.Lock()
	c.heartbeats++
	n := c.heartbeats
	c.mu.Unlock()

	events := 0
	if evs, ok := hb["evs"].([]any); ok {
		events = len(evs)
	}
	c.log.Info().
		Any("sid", hb["sid"]).
		Any("seq", hb["seq"]).
		Int("events", events).
		Int("total", n).
		Msg("heartbeat received")

	resp := map[string]any{"err": protocol.BackendResponseNoErrors}
	if clid, _ := hb["clid"].(string); clid == protocol.DefaultClientID || clid == "" {
		resp["clid"] = uuid.NewString()
	}
	if c.hbIntervalSec > 0 {
		resp["cfg"] = map[string]any{"hbi": c.hbIntervalSec}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		c.log.Error().Err(err).Msg("encode response failed")
	}
}
