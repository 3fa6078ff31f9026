// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/ManuGH/ordwiz/internal/domain/wizard/model"
	"github.com/ManuGH/ordwiz/internal/platform/syncx"
)

const badgerPrefix = "sess:"

// BadgerStore keeps sessions under "sess:<id>" keys.
// Badger transactions detect write conflicts; Update retries on badger.ErrConflict.
type BadgerStore struct {
	db    *badger.DB
	locks syncx.KeyedMutex
	opts  options
}

// OpenBadgerStore opens a store at path. An empty path keeps everything in memory.
func OpenBadgerStore(path string, opts ...Option) (*BadgerStore, error) {
	bopts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		bopts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("context store: open badger: %w", err)
	}
	return &BadgerStore{db: db, opts: buildOptions(opts)}, nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

func badgerKey(id string) []byte { return []byte(badgerPrefix + id) }

func (s *BadgerStore) Create(ctx context.Context, id string) (*model.Session, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	var out *model.Session
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(badgerKey(id)); err == nil {
			return model.ErrSessionExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		sess, b, err := newRecord(id, s.opts.stamp())
		if err != nil {
			return err
		}
		out = sess
		return txn.Set(badgerKey(id), b)
	})
	if errors.Is(err, badger.ErrConflict) {
		// Another process inserted the key first.
		return nil, model.ErrSessionExists
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BadgerStore) Get(ctx context.Context, id string) (*model.Session, error) {
	var out *model.Session
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return model.ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out, err = model.Decode(val)
			return err
		})
	})
	return out, err
}

func (s *BadgerStore) GetOrCreate(ctx context.Context, id string) (*model.Session, bool, error) {
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

func (s *BadgerStore) Update(ctx context.Context, id string, fn func(*model.Session) error) (*model.Session, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		var out *model.Session
		err := s.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(badgerKey(id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				return model.ErrSessionNotFound
			}
			if err != nil {
				return err
			}
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			sess, b, err := mutate(raw, fn, s.opts.stamp())
			if err != nil {
				return err
			}
			out = sess
			return txn.Set(badgerKey(id), b)
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("session %s: %w", id, ErrConflict)
}

func (s *BadgerStore) Remove(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(badgerKey(id)); errors.Is(err, badger.ErrKeyNotFound) {
			return model.ErrSessionNotFound
		} else if err != nil {
			return err
		}
		return txn.Delete(badgerKey(id))
	})
}

func (s *BadgerStore) Scan(ctx context.Context, fn func(*model.Session) error) error {
	var snapshot []*model.Session
	prefix := []byte(badgerPrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			raw, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			sess, err := model.Decode(raw)
			if err != nil {
				return err
			}
			snapshot = append(snapshot, sess)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, sess := range snapshot {
		if err := fn(sess); err != nil {
			return err
		}
	}
	return nil
}
