// Vigia - Video Quality-of-Experience Telemetry SDK for Go
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: Apache-2.0
// https://github.com/vigialabs/vigia-go

// Package config loads the SDK host-application configuration with Koanf v2
// layered sources: built-in defaults, an optional YAML file, then environment
// variables. The result is validated before use and immutable afterwards.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"vigia.yaml",
	"vigia.yml",
	"/etc/vigia/vigia.yaml",
	"/etc/vigia/vigia.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "VIGIA_CONFIG_PATH"

// Config holds everything the SDK and the demo tooling read at startup.
// Thread safety: immutable after Load, safe for concurrent reads.
type Config struct {
	Client    ClientConfig    `koanf:"client"`
	Storage   StorageConfig   `koanf:"storage"`
	Transport TransportConfig `koanf:"transport"`
	Logging   LoggingConfig   `koanf:"logging"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Collector CollectorConfig `koanf:"collector"`
}

// ClientConfig identifies the customer account and the telemetry cadence.
type ClientConfig struct {
	// CustomerKey is the account key heartbeats are billed against.
	CustomerKey string `koanf:"customer_key" validate:"required"`
	// GatewayURL overrides the per-customer production gateway. Empty
	// means derive it from the customer key.
	GatewayURL string `koanf:"gateway_url" validate:"omitempty,url"`
	// HeartbeatIntervalSec is the initial heartbeat cadence; the backend
	// may adjust it at runtime.
	HeartbeatIntervalSec int `koanf:"heartbeat_interval_sec" validate:"min=1,max=300"`
	// AllowUncaught surfaces internal SDK panics to the host application
	// instead of swallowing them. Meant for integration testing.
	AllowUncaught bool `koanf:"allow_uncaught"`
	// SendLogs ships recent SDK log lines with every heartbeat from the
	// start, without waiting for a backend directive.
	SendLogs bool `koanf:"send_logs"`
}

// StorageConfig locates the durable client state.
type StorageConfig struct {
	// Path is the Badger directory for persisted state. Empty runs an
	// in-memory store that forgets everything on exit.
	Path string `koanf:"path"`
}

// TransportConfig tunes the heartbeat HTTP client.
type TransportConfig struct {
	TimeoutMs int `koanf:"timeout_ms" validate:"min=100,max=120000"`
}

// LoggingConfig mirrors the logging package's setup knobs.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// MetricsConfig controls the Prometheus endpoint of the demo binary.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Listen  string `koanf:"listen" validate:"omitempty,hostname_port"`
}

// CollectorConfig controls the demo's embedded gateway stand-in.
type CollectorConfig struct {
	Enabled bool   `koanf:"enabled"`
	Listen  string `koanf:"listen" validate:"omitempty,hostname_port"`
	// HeartbeatIntervalSec, when positive, is echoed back to clients as a
	// backend interval override.
	HeartbeatIntervalSec int `koanf:"heartbeat_interval_sec" validate:"min=0,max=300"`
}

// defaultConfig returns a Config with all defaults applied. Defaults load
// first, then the config file, then environment variables.
func defaultConfig() *Config {
	return &Config{
		Client: ClientConfig{
			CustomerKey:          "",
			GatewayURL:           "",
			HeartbeatIntervalSec: 20,
			AllowUncaught:        false,
			SendLogs:             false,
		},
		Storage: StorageConfig{
			Path: "",
		},
		Transport: TransportConfig{
			TimeoutMs: 10_000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  "127.0.0.1:9464",
		},
		Collector: CollectorConfig{
			Enabled:              false,
			Listen:               "127.0.0.1:8402",
			HeartbeatIntervalSec: 0,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment variables, in that order of precedence (env wins).
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first config file that exists, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables return "" and are skipped, so random environment noise
// never pollutes the configuration.
//
// Examples:
//   - VIGIA_CUSTOMER_KEY -> client.customer_key
//   - VIGIA_LOG_LEVEL    -> logging.level
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		"vigia_customer_key":           "client.customer_key",
		"vigia_gateway_url":            "client.gateway_url",
		"vigia_heartbeat_interval_sec": "client.heartbeat_interval_sec",
		"vigia_allow_uncaught":         "client.allow_uncaught",
		"vigia_send_logs":              "client.send_logs",

		"vigia_storage_path": "storage.path",

		"vigia_http_timeout_ms": "transport.timeout_ms",

		"vigia_log_level":  "logging.level",
		"vigia_log_format": "logging.format",
		"vigia_log_caller": "logging.caller",

		"vigia_metrics_enabled": "metrics.enabled",
		"vigia_metrics_listen":  "metrics.listen",

		"vigia_collector_enabled":                "collector.enabled",
		"vigia_collector_listen":                 "collector.listen",
		"vigia_collector_heartbeat_interval_sec": "collector.heartbeat_interval_sec",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration against its struct tags and returns
// the first violation as a readable error naming the offending field.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("field %s failed %q validation (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
	}
	return err
}
