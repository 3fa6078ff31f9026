// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{} // every ORDWIZ_* key the loader looked at
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

// Load resolves the configuration: defaults, then the file, then ENV, then Validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes path over cfg so keys absent from the file keep their defaults.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return ErrMultipleDocuments
	}
	return nil
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	cfg.Log.Level = l.envString(EnvPrefix+"LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = l.envString(EnvPrefix+"LOG_FORMAT", cfg.Log.Format)
	cfg.Log.Service = l.envString(EnvPrefix+"LOG_SERVICE", cfg.Log.Service)

	cfg.API.Listen = l.envString(EnvPrefix+"LISTEN", cfg.API.Listen)
	cfg.API.RateLimit.Requests = l.envInt(EnvPrefix+"RATE_LIMIT_REQUESTS", cfg.API.RateLimit.Requests)
	cfg.API.RateLimit.Window = l.envDuration(EnvPrefix+"RATE_LIMIT_WINDOW", cfg.API.RateLimit.Window)
	cfg.API.SessionEvents.PerSecond = l.envFloat(EnvPrefix+"SESSION_EVENTS_RATE", cfg.API.SessionEvents.PerSecond)
	cfg.API.SessionEvents.Burst = l.envInt(EnvPrefix+"SESSION_EVENTS_BURST", cfg.API.SessionEvents.Burst)

	cfg.Store.Backend = l.envString(EnvPrefix+"STORE_BACKEND", cfg.Store.Backend)
	cfg.Store.Path = l.envString(EnvPrefix+"STORE_PATH", cfg.Store.Path)
	cfg.Store.Redis.Addr = l.envString(EnvPrefix+"REDIS_ADDR", cfg.Store.Redis.Addr)
	cfg.Store.Redis.Password = l.envString(EnvPrefix+"REDIS_PASSWORD", cfg.Store.Redis.Password)
	cfg.Store.Redis.DB = l.envInt(EnvPrefix+"REDIS_DB", cfg.Store.Redis.DB)

	cfg.Sweeper.Interval = l.envDuration(EnvPrefix+"SWEEP_INTERVAL", cfg.Sweeper.Interval)
	cfg.Sweeper.SessionTTL = l.envDuration(EnvPrefix+"SESSION_TTL", cfg.Sweeper.SessionTTL)

	cfg.Catalog.Path = l.envString(EnvPrefix+"CATALOG_PATH", cfg.Catalog.Path)
	cfg.Catalog.Watch = l.envBool(EnvPrefix+"CATALOG_WATCH", cfg.Catalog.Watch)

	cfg.Orders.DBPath = l.envString(EnvPrefix+"ORDERS_DB", cfg.Orders.DBPath)

	cfg.Receipts.Dir = l.envString(EnvPrefix+"RECEIPTS_DIR", cfg.Receipts.Dir)
	cfg.Receipts.Language = l.envString(EnvPrefix+"RECEIPT_LANGUAGE", cfg.Receipts.Language)

	cfg.Telemetry.Enabled = l.envBool(EnvPrefix+"TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString(EnvPrefix+"OTLP_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString(EnvPrefix+"OTLP_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat(EnvPrefix+"TRACE_SAMPLING", cfg.Telemetry.SamplingRate)
}
