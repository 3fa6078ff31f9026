// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"errors"
	"sync"

	"github.com/ManuGH/ordwiz/internal/domain/wizard/model"
	"github.com/ManuGH/ordwiz/internal/platform/syncx"
)

// MemoryStore keeps encoded sessions in a map.
// The map lock is held only for map access; read-modify-write runs under a per-id lock.
type MemoryStore struct {
	mu    sync.RWMutex
	data  map[string][]byte
	locks syncx.KeyedMutex
	opts  options
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
		opts: buildOptions(opts),
	}
}

func (m *MemoryStore) Create(ctx context.Context, id string) (*model.Session, error) {
	unlock := m.locks.Lock(id)
	defer unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[id]; ok {
		return nil, model.ErrSessionExists
	}
	s, b, err := newRecord(id, m.opts.stamp())
	if err != nil {
		return nil, err
	}
	m.data[id] = b
	return s, nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*model.Session, error) {
	m.mu.RLock()
	raw, ok := m.data[id]
	m.mu.RUnlock()
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	return model.Decode(raw)
}

func (m *MemoryStore) GetOrCreate(ctx context.Context, id string) (*model.Session, bool, error) {
	s, err := m.Create(ctx, id)
	if err == nil {
		return s, true, nil
	}
	if !errors.Is(err, model.ErrSessionExists) {
		return nil, false, err
	}
	s, err = m.Get(ctx, id)
	return s, false, err
}

func (m *MemoryStore) Update(ctx context.Context, id string, fn func(*model.Session) error) (*model.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	unlock := m.locks.Lock(id)
	defer unlock()

	m.mu.RLock()
	raw, ok := m.data[id]
	m.mu.RUnlock()
	if !ok {
		return nil, model.ErrSessionNotFound
	}

	s, b, err := mutate(raw, fn, m.opts.stamp())
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.data[id] = b
	m.mu.Unlock()
	return s, nil
}

func (m *MemoryStore) Remove(ctx context.Context, id string) error {
	unlock := m.locks.Lock(id)
	defer unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[id]; !ok {
		return model.ErrSessionNotFound
	}
	delete(m.data, id)
	return nil
}

// Scan iterates over a snapshot taken under the read lock; fn runs without any lock held.
func (m *MemoryStore) Scan(ctx context.Context, fn func(*model.Session) error) error {
	m.mu.RLock()
	snapshot := make([][]byte, 0, len(m.data))
	for _, raw := range m.data {
		snapshot = append(snapshot, raw)
	}
	m.mu.RUnlock()

	for _, raw := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		s, err := model.Decode(raw)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }
