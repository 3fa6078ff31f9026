// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the service configuration.
//
// Precedence is ENV (ORDWIZ_*) > YAML file > defaults. The YAML file is
// parsed strictly: unknown keys and multiple documents are rejected.
package config

import (
	"time"

	"github.com/ManuGH/ordwiz/internal/domain/wizard/store"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/sweeper"
	"github.com/ManuGH/ordwiz/internal/receipt"
	"github.com/ManuGH/ordwiz/internal/telemetry"
)

// AppConfig is the fully resolved configuration.
type AppConfig struct {
	Log       LogConfig       `yaml:"log"`
	API       APIConfig       `yaml:"api"`
	Store     StoreConfig     `yaml:"store"`
	Sweeper   SweeperConfig   `yaml:"sweeper"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Orders    OrdersConfig    `yaml:"orders"`
	Receipts  ReceiptsConfig  `yaml:"receipts"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Version is the binary version, never read from file.
	Version string `yaml:"-"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
	Service string `yaml:"service"`
}

type APIConfig struct {
	Listen        string              `yaml:"listen"`
	RateLimit     RateLimitConfig     `yaml:"rateLimit"`
	SessionEvents SessionEventsConfig `yaml:"sessionEvents"`
}

// RateLimitConfig limits requests per client IP. Requests 0 disables limiting.
type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// SessionEventsConfig is a token bucket per wizard session. PerSecond 0 disables it.
type SessionEventsConfig struct {
	PerSecond float64 `yaml:"perSecond"`
	Burst     int     `yaml:"burst"`
}

type StoreConfig struct {
	Backend string      `yaml:"backend"`
	Path    string      `yaml:"path"`
	Redis   RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SweeperConfig controls the TTL sweep. Zero values disable it.
type SweeperConfig struct {
	Interval   time.Duration `yaml:"interval"`
	SessionTTL time.Duration `yaml:"sessionTTL"`
}

// CatalogConfig points at the price list. An empty path uses the built-in catalog.
type CatalogConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

type OrdersConfig struct {
	DBPath string `yaml:"dbPath"`
}

type ReceiptsConfig struct {
	Dir      string `yaml:"dir"`
	ShopName string `yaml:"shopName"`
	Language string `yaml:"language"`
	Currency string `yaml:"currency"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// Defaults returns the configuration used when neither file nor ENV set a value.
func Defaults() AppConfig {
	rc := receipt.DefaultConfig()
	return AppConfig{
		Log: LogConfig{Level: "info", Format: "json", Service: "ordwiz"},
		API: APIConfig{
			Listen:        ":8080",
			RateLimit:     RateLimitConfig{Requests: 120, Window: time.Minute},
			SessionEvents: SessionEventsConfig{PerSecond: 5, Burst: 10},
		},
		Store:   StoreConfig{Backend: store.BackendMemory},
		Sweeper: SweeperConfig{Interval: time.Minute, SessionTTL: 24 * time.Hour},
		Orders:  OrdersConfig{DBPath: "data/orders.sqlite"},
		Receipts: ReceiptsConfig{
			ShopName: rc.ShopName,
			Language: rc.Language,
			Currency: rc.Currency,
		},
		Telemetry: TelemetryConfig{Exporter: "grpc", Endpoint: "localhost:4317", SamplingRate: 1.0},
	}
}

// StoreOptions maps the store section onto the store factory config.
// Redis keys expire together with the sweeper TTL.
func (c AppConfig) StoreOptions() store.Config {
	return store.Config{
		Backend: c.Store.Backend,
		Path:    c.Store.Path,
		Redis: store.RedisConfig{
			Addr:     c.Store.Redis.Addr,
			Password: c.Store.Redis.Password,
			DB:       c.Store.Redis.DB,
		},
		TTL: c.Sweeper.SessionTTL,
	}
}

func (c AppConfig) SweeperOptions() sweeper.Config {
	return sweeper.Config{Interval: c.Sweeper.Interval, SessionTTL: c.Sweeper.SessionTTL}
}

func (c AppConfig) ReceiptOptions() receipt.Config {
	return receipt.Config{
		ShopName: c.Receipts.ShopName,
		Language: c.Receipts.Language,
		Currency: c.Receipts.Currency,
		Dir:      c.Receipts.Dir,
	}
}

func (c AppConfig) TelemetryOptions() telemetry.Config {
	return telemetry.Config{
		Enabled:        c.Telemetry.Enabled,
		ServiceName:    c.Log.Service,
		ServiceVersion: c.Version,
		ExporterType:   c.Telemetry.Exporter,
		Endpoint:       c.Telemetry.Endpoint,
		SamplingRate:   c.Telemetry.SamplingRate,
	}
}
