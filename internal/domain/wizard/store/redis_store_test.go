// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/ordwiz/internal/domain/wizard/model"
)

func newTestRedisStore(t *testing.T, opts ...Option) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(RedisConfig{Addr: mr.Addr()}, zerolog.Nop(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStore_Conformance(t *testing.T) {
	runConformance(t, func(t *testing.T) Store {
		s, _ := newTestRedisStore(t)
		return s
	})
}

func TestRedisStore_TTLExpiresSession(t *testing.T) {
	s, mr := newTestRedisStore(t, WithTTL(time.Minute))
	ctx := context.Background()

	_, err := s.Create(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL(redisKey("s1")))

	mr.FastForward(2 * time.Minute)
	_, err = s.Get(ctx, "s1")
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
}

func TestRedisStore_UpdateRefreshesTTL(t *testing.T) {
	s, mr := newTestRedisStore(t, WithTTL(time.Minute))
	ctx := context.Background()

	_, err := s.Create(ctx, "s1")
	require.NoError(t, err)
	mr.FastForward(50 * time.Second)

	_, err = s.Update(ctx, "s1", func(sess *model.Session) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL(redisKey("s1")))
}

func TestNewRedisStore_ConnectionFailure(t *testing.T) {
	_, err := NewRedisStore(RedisConfig{Addr: "127.0.0.1:1"}, zerolog.Nop())
	require.Error(t, err)
}
