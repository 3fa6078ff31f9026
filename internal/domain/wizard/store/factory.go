// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSqlite = "sqlite"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

// Config selects and configures a backend.
type Config struct {
	Backend string
	Path    string // sqlite file or badger directory
	Redis   RedisConfig
	TTL     time.Duration // native expiry, redis only
}

// Open creates the configured backend wrapped with metrics.
func Open(cfg Config, logger zerolog.Logger, opts ...Option) (Store, error) {
	var (
		inner Store
		err   error
	)
	switch cfg.Backend {
	case BackendMemory, "":
		inner = NewMemoryStore(opts...)
	case BackendSqlite:
		inner, err = NewSqliteStore(cfg.Path, opts...)
	case BackendBadger:
		inner, err = OpenBadgerStore(cfg.Path, opts...)
	case BackendRedis:
		if cfg.TTL > 0 {
			opts = append(opts, WithTTL(cfg.TTL))
		}
		inner, err = NewRedisStore(cfg.Redis, logger, opts...)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	backend := cfg.Backend
	if backend == "" {
		backend = BackendMemory
	}
	logger.Info().Str("backend", backend).Str("path", cfg.Path).Msg("context store opened")
	return NewInstrumentedStore(inner, backend), nil
}
