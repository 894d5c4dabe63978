// Vigia - Video Quality-of-Experience Telemetry SDK for Go
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: Apache-2.0
// https://github.com/vigialabs/vigia-go

// Command vigia-demo runs a scripted playback through the SDK against an
// embedded collector, so the full heartbeat cycle can be watched locally:
//
//	VIGIA_CUSTOMER_KEY=demo VIGIA_COLLECTOR_ENABLED=true vigia-demo
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	vigia "github.com/vigialabs/vigia-go"
	"github.com/vigialabs/vigia-go/internal/config"
	"github.com/vigialabs/vigia-go/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "vigia-demo:", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	log := logging.Module("Main").Logger()

	handler := &sutureslog.Handler{Logger: slog.New(slog.NewJSONHandler(os.Stderr, nil))}
	root := suture.New("vigia-demo", suture.Spec{
		EventHook: handler.MustHook(),
	})

	if cfg.Collector.Enabled {
		root.Add(newCollector(cfg.Collector.Listen, cfg.Collector.HeartbeatIntervalSec))
	}
	if cfg.Metrics.Enabled {
		root.Add(&metricsServer{listen: cfg.Metrics.Listen})
	}
	root.Add(&demoRunner{cfg: cfg})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("customerKey", cfg.Client.CustomerKey).Msg("starting")
	if err := root.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("supervisor exited")
		os.Exit(1)
	}
}

// metricsServer exposes the Prometheus registry.
type metricsServer struct {
	listen string
}

// Serve implements suture.Service.
func (m *metricsServer) Serve(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              m.listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

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

// demoRunner builds an SDK client and plays the script once.
type demoRunner struct {
	cfg *config.Config
}

// Serve implements suture.Service. A completed script does not restart.
func (d *demoRunner) Serve(ctx context.Context) error {
	gateway := d.cfg.Client.GatewayURL
	if d.cfg.Collector.Enabled {
		gateway = "http://" + d.cfg.Collector.Listen
		// Give the collector a moment to bind.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}

	client, err := vigia.NewClient(vigia.Options{
		CustomerKey:          d.cfg.Client.CustomerKey,
		GatewayURL:           gateway,
		HeartbeatIntervalSec: d.cfg.Client.HeartbeatIntervalSec,
		StoragePath:          d.cfg.Storage.Path,
		HTTPTimeoutMs:        int64(d.cfg.Transport.TimeoutMs),
		AllowUncaught:        d.cfg.Client.AllowUncaught,
		SendLogs:             d.cfg.Client.SendLogs,
	})
	if err != nil {
		return err
	}
	defer func() { _ = client.Release() }()

	script := newPlaybackScript(client, 2*time.Second)
	if err := script.run(ctx); err != nil {
		return err
	}

	// Let the final heartbeats drain before shutting down.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(d.cfg.Client.HeartbeatIntervalSec) * time.Second):
	}
	return suture.ErrDoNotRestart
}
