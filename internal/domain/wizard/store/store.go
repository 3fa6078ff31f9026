// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package store is the keyed, concurrency-safe context store for wizard sessions.
//
// Every backend serializes Update per session id. Updates on different ids never
// block each other. Reads return private copies, so callers may mutate results freely.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ManuGH/ordwiz/internal/domain/wizard/model"
)

// ErrUnchanged may be returned by an Update fn that left the session as it
// was. Nothing is written and Update returns it like any other fn error.
var ErrUnchanged = errors.New("store: session unchanged")

// Store is the context store contract.
type Store interface {
	// Create inserts a fresh session. It fails with model.ErrSessionExists.
	Create(ctx context.Context, id string) (*model.Session, error)
	// Get returns a copy of the session or model.ErrSessionNotFound.
	Get(ctx context.Context, id string) (*model.Session, error)
	// GetOrCreate returns the session, creating it when absent.
	GetOrCreate(ctx context.Context, id string) (*model.Session, bool, error)
	// Update applies fn atomically. If fn fails nothing is written and its error is returned.
	Update(ctx context.Context, id string, fn func(*model.Session) error) (*model.Session, error)
	// Remove deletes the session or reports model.ErrSessionNotFound.
	Remove(ctx context.Context, id string) error
	// Scan visits a snapshot of every session. Returning an error from fn stops the scan.
	Scan(ctx context.Context, fn func(*model.Session) error) error
	Close() error
}

type options struct {
	now func() time.Time
	ttl time.Duration
}

// Option configures a backend.
type Option func(*options)

// WithClock overrides the clock used for CreatedAt/UpdatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithTTL sets a native expiry on backends that support one (redis).
func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

func (o options) stamp() time.Time {
	return o.now().UTC()
}

// mutate decodes raw, applies fn and re-encodes. The returned session is the caller's copy.
func mutate(raw []byte, fn func(*model.Session) error, now time.Time) (*model.Session, []byte, error) {
	s, err := model.Decode(raw)
	if err != nil {
		return nil, nil, err
	}
	id := s.ID
	if err := fn(s); err != nil {
		return nil, nil, err
	}
	s.ID = id
	s.Version++
	s.UpdatedAt = now
	b, err := model.Encode(s)
	if err != nil {
		return nil, nil, err
	}
	return s, b, nil
}

func newRecord(id string, now time.Time) (*model.Session, []byte, error) {
	s := model.NewSession(id, now)
	b, err := model.Encode(s)
	if err != nil {
		return nil, nil, err
	}
	return s, b, nil
}
