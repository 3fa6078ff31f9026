// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ManuGH/ordwiz/internal/domain/wizard/model"
	"github.com/ManuGH/ordwiz/internal/platform/syncx"
)

const redisKeyPrefix = "ordwiz:session:"

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string // Redis server address (host:port)
	Password string // Redis password (optional)
	DB       int    // Redis database number
}

// RedisStore shares sessions between processes.
// Update runs under WATCH/MULTI and retries when the watched key changed.
// With WithTTL every write refreshes the key's expiry.
type RedisStore struct {
	client *redis.Client
	logger zerolog.Logger
	locks  syncx.KeyedMutex
	opts   options
}

// NewRedisStore connects and pings the server.
func NewRedisStore(cfg RedisConfig, logger zerolog.Logger, opts ...Option) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info().
		Str("addr", cfg.Addr).
		Int("db", cfg.DB).
		Msg("connected to Redis context store")

	return &RedisStore{client: client, logger: logger, opts: buildOptions(opts)}, nil
}

func redisKey(id string) string { return redisKeyPrefix + id }

func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) Create(ctx context.Context, id string) (*model.Session, error) {
	sess, b, err := newRecord(id, s.opts.stamp())
	if err != nil {
		return nil, err
	}
	ok, err := s.client.SetNX(ctx, redisKey(id), b, s.opts.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrSessionExists
	}
	return sess, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*model.Session, error) {
	raw, err := s.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return model.Decode(raw)
}

func (s *RedisStore) GetOrCreate(ctx context.Context, id string) (*model.Session, bool, error) {
	sess, err := s.Create(ctx, id)
	if err == nil {
		return sess, true, nil
	}
	if !errors.Is(err, model.ErrSessionExists) {
		return nil, false, err
	}
	sess, err = s.Get(ctx, id)
	return sess, false, err
}

func (s *RedisStore) Update(ctx context.Context, id string, fn func(*model.Session) error) (*model.Session, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	key := redisKey(id)
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		var out *model.Session
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return model.ErrSessionNotFound
			}
			if err != nil {
				return err
			}
			sess, b, err := mutate(raw, fn, s.opts.stamp())
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, b, s.opts.ttl)
				return nil
			})
			if err != nil {
				return err
			}
			out = sess
			return nil
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			s.logger.Debug().Str("session_id", id).Int("attempt", attempt).Msg("redis update lost watch race, retrying")
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("session %s: %w", id, ErrConflict)
}

func (s *RedisStore) Remove(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	n, err := s.client.Del(ctx, redisKey(id)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrSessionNotFound
	}
	return nil
}

func (s *RedisStore) Scan(ctx context.Context, fn func(*model.Session) error) error {
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue // removed or expired since SCAN
		}
		if err != nil {
			return err
		}
		sess, err := model.Decode(raw)
		if err != nil {
			return err
		}
		if err := fn(sess); err != nil {
			return err
		}
	}
	return nil
}
