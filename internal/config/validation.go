// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"golang.org/x/text/language"

	"github.com/ManuGH/ordwiz/internal/domain/wizard/store"
	"github.com/ManuGH/ordwiz/internal/validate"
)

var logLevels = []string{"debug", "info", "warn", "error"}

// Validate reports every invalid field at once.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.OneOf("log.level", cfg.Log.Level, logLevels)
	v.OneOf("log.format", cfg.Log.Format, []string{"json", "console"})
	v.ListenAddr("api.listen", cfg.API.Listen)
	if cfg.API.RateLimit.Requests < 0 {
		v.AddError("api.rateLimit.requests", "must not be negative", cfg.API.RateLimit.Requests)
	}
	if cfg.API.RateLimit.Requests > 0 {
		v.PositiveDuration("api.rateLimit.window", cfg.API.RateLimit.Window)
	}
	if cfg.API.SessionEvents.PerSecond < 0 {
		v.AddError("api.sessionEvents.perSecond", "must not be negative", cfg.API.SessionEvents.PerSecond)
	}
	if cfg.API.SessionEvents.PerSecond > 0 && cfg.API.SessionEvents.Burst < 1 {
		v.AddError("api.sessionEvents.burst", "must be at least 1", cfg.API.SessionEvents.Burst)
	}

	v.OneOf("store.backend", cfg.Store.Backend,
		[]string{store.BackendMemory, store.BackendSqlite, store.BackendBadger, store.BackendRedis})
	switch cfg.Store.Backend {
	case store.BackendSqlite, store.BackendBadger:
		v.NotEmpty("store.path", cfg.Store.Path)
		v.Path("store.path", cfg.Store.Path)
	case store.BackendRedis:
		v.HostPort("store.redis.addr", cfg.Store.Redis.Addr)
		v.Range("store.redis.db", cfg.Store.Redis.DB, 0, 15)
	}

	if cfg.Sweeper.Interval != 0 || cfg.Sweeper.SessionTTL != 0 {
		v.PositiveDuration("sweeper.interval", cfg.Sweeper.Interval)
		v.PositiveDuration("sweeper.sessionTTL", cfg.Sweeper.SessionTTL)
	}

	v.Path("catalog.path", cfg.Catalog.Path)
	if cfg.Catalog.Watch && cfg.Catalog.Path == "" {
		v.AddError("catalog.watch", "requires catalog.path", cfg.Catalog.Watch)
	}

	v.NotEmpty("orders.dbPath", cfg.Orders.DBPath)
	v.Path("orders.dbPath", cfg.Orders.DBPath)

	v.Path("receipts.dir", cfg.Receipts.Dir)
	v.NotEmpty("receipts.shopName", cfg.Receipts.ShopName)
	v.NotEmpty("receipts.currency", cfg.Receipts.Currency)
	if _, err := language.Parse(cfg.Receipts.Language); err != nil {
		v.AddError("receipts.language", "must be a BCP 47 language tag", cfg.Receipts.Language)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.Fraction("telemetry.samplingRate", cfg.Telemetry.SamplingRate)
	}

	return v.Err()
}
