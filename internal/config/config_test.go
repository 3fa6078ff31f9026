// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/ordwiz/internal/domain/wizard/store"
	"github.com/ManuGH/ordwiz/internal/validate"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := NewLoader("", "v1.2.3").Load()
	require.NoError(t, err)

	assert.Equal(t, Defaults().API, cfg.API)
	assert.Equal(t, store.BackendMemory, cfg.Store.Backend)
	assert.Equal(t, "v1.2.3", cfg.Version)
	assert.Equal(t, "v1.2.3", cfg.TelemetryOptions().ServiceVersion)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
api:
  listen: "127.0.0.1:9090"
store:
  backend: redis
  redis:
    addr: "localhost:6379"
    db: 2
sweeper:
  interval: 30s
  sessionTTL: 2h
catalog:
  path: /etc/ordwiz/catalog.yaml
  watch: true
`)
	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "ordwiz", cfg.Log.Service, "unset keys keep their defaults")
	assert.Equal(t, "127.0.0.1:9090", cfg.API.Listen)
	assert.Equal(t, 120, cfg.API.RateLimit.Requests)
	assert.Equal(t, 30*time.Second, cfg.Sweeper.Interval)

	so := cfg.StoreOptions()
	assert.Equal(t, store.BackendRedis, so.Backend)
	assert.Equal(t, 2, so.Redis.DB)
	assert.Equal(t, 2*time.Hour, so.TTL)
	assert.True(t, cfg.Catalog.Watch)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "api:\n  listen: \":9090\"\n")
	t.Setenv("ORDWIZ_LISTEN", ":7070")
	t.Setenv("ORDWIZ_SESSION_TTL", "45m")
	t.Setenv("ORDWIZ_CATALOG_WATCH", "no")
	t.Setenv("ORDWIZ_RATE_LIMIT_REQUESTS", "not-a-number")
	t.Setenv("ORDWIZ_SESSION_EVENTS_RATE", "2.5")

	l := NewLoader(path, "")
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.API.Listen)
	assert.Equal(t, 45*time.Minute, cfg.Sweeper.SessionTTL)
	assert.False(t, cfg.Catalog.Watch)
	assert.Equal(t, 120, cfg.API.RateLimit.Requests, "unparsable values fall back")
	assert.InDelta(t, 2.5, cfg.API.SessionEvents.PerSecond, 1e-9)
	assert.Equal(t, 10, cfg.API.SessionEvents.Burst)
	assert.Contains(t, l.ConsumedEnvKeys, "ORDWIZ_LISTEN")
}

func TestLoad_StrictParsing(t *testing.T) {
	t.Run("unknown key", func(t *testing.T) {
		_, err := NewLoader(writeConfig(t, "api:\n  listn: \":1\"\n"), "").Load()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnknownConfigField))
	})
	t.Run("two documents", func(t *testing.T) {
		_, err := NewLoader(writeConfig(t, "log:\n  level: info\n---\nlog:\n  level: debug\n"), "").Load()
		assert.ErrorIs(t, err, ErrMultipleDocuments)
	})
	t.Run("empty file", func(t *testing.T) {
		_, err := NewLoader(writeConfig(t, ""), "").Load()
		assert.NoError(t, err)
	})
	t.Run("wrong extension", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
		_, err := NewLoader(path, "").Load()
		assert.ErrorContains(t, err, "only YAML supported")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
		fields []string
	}{
		{"defaults", func(*AppConfig) {}, nil},
		{"log level", func(c *AppConfig) { c.Log.Level = "trace" }, []string{"log.level"}},
		{"listen", func(c *AppConfig) { c.API.Listen = "8080" }, []string{"api.listen"}},
		{"window", func(c *AppConfig) { c.API.RateLimit.Window = 0 }, []string{"api.rateLimit.window"}},
		{"rate limit off", func(c *AppConfig) { c.API.RateLimit = RateLimitConfig{} }, nil},
		{"log format", func(c *AppConfig) { c.Log.Format = "xml" }, []string{"log.format"}},
		{"negative event rate", func(c *AppConfig) { c.API.SessionEvents.PerSecond = -1 }, []string{"api.sessionEvents.perSecond"}},
		{"zero burst", func(c *AppConfig) { c.API.SessionEvents.Burst = 0 }, []string{"api.sessionEvents.burst"}},
		{"event throttle off", func(c *AppConfig) { c.API.SessionEvents = SessionEventsConfig{} }, nil},
		{"backend", func(c *AppConfig) { c.Store.Backend = "etcd" }, []string{"store.backend"}},
		{"sqlite without path", func(c *AppConfig) { c.Store.Backend = store.BackendSqlite }, []string{"store.path"}},
		{"redis without addr", func(c *AppConfig) { c.Store.Backend = store.BackendRedis }, []string{"store.redis.addr"}},
		{"half sweeper", func(c *AppConfig) { c.Sweeper.Interval = 0 }, []string{"sweeper.interval"}},
		{"sweeper off", func(c *AppConfig) { c.Sweeper = SweeperConfig{} }, nil},
		{"watch builtin", func(c *AppConfig) { c.Catalog.Watch = true }, []string{"catalog.watch"}},
		{"traversal", func(c *AppConfig) { c.Orders.DBPath = "../orders.sqlite" }, []string{"orders.dbPath"}},
		{"language", func(c *AppConfig) { c.Receipts.Language = "" }, []string{"receipts.language"}},
		{
			"telemetry",
			func(c *AppConfig) {
				c.Telemetry = TelemetryConfig{Enabled: true, Exporter: "zipkin", SamplingRate: 2}
			},
			[]string{"telemetry.exporter", "telemetry.endpoint", "telemetry.samplingRate"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			var ve validate.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.fields, ve.Fields())
		})
	}
}
