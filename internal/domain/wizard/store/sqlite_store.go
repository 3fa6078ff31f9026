// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ManuGH/ordwiz/internal/domain/wizard/model"
	"github.com/ManuGH/ordwiz/internal/persistence/sqlite"
	"github.com/ManuGH/ordwiz/internal/platform/syncx"
)

const sqliteSchemaVersion = 1

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS wizard_sessions (
	session_id TEXT PRIMARY KEY,
	top_state TEXT NOT NULL,
	version INTEGER NOT NULL,
	payload_json TEXT NOT NULL,
	created_at_ms INTEGER NOT NULL,
	updated_at_ms INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_wizard_sessions_updated ON wizard_sessions(updated_at_ms);
`

// maxCASAttempts bounds optimistic retries when another process wins the race.
const maxCASAttempts = 16

// ErrConflict is returned when an update lost every compare-and-swap attempt.
var ErrConflict = errors.New("context store: concurrent update conflict")

// SqliteStore persists sessions as JSON rows.
// Updates are compare-and-swap on the version column; the per-id lock removes in-process contention.
type SqliteStore struct {
	DB    *sql.DB
	locks syncx.KeyedMutex
	opts  options
}

// NewSqliteStore opens (and migrates) a session database at dbPath.
func NewSqliteStore(dbPath string, opts ...Option) (*SqliteStore, error) {
	db, err := sqlite.Open(dbPath, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if err := sqlite.Migrate(context.Background(), db, sqliteSchemaVersion, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("context store: migration failed: %w", err)
	}
	return &SqliteStore{DB: db, opts: buildOptions(opts)}, nil
}

func (s *SqliteStore) Close() error {
	return s.DB.Close()
}

func (s *SqliteStore) Create(ctx context.Context, id string) (*model.Session, error) {
	sess, created, err := s.insert(ctx, id)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, model.ErrSessionExists
	}
	return sess, nil
}

func (s *SqliteStore) insert(ctx context.Context, id string) (*model.Session, bool, error) {
	sess, b, err := newRecord(id, s.opts.stamp())
	if err != nil {
		return nil, false, err
	}
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO wizard_sessions (session_id, top_state, version, payload_json, created_at_ms, updated_at_ms)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO NOTHING`,
		id, string(sess.TopState), sess.Version, string(b), sess.CreatedAt.UnixMilli(), sess.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return nil, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	return sess, n == 1, nil
}

func (s *SqliteStore) Get(ctx context.Context, id string) (*model.Session, error) {
	raw, _, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return model.Decode(raw)
}

func (s *SqliteStore) load(ctx context.Context, id string) ([]byte, int64, error) {
	var (
		payload string
		version int64
	)
	err := s.DB.QueryRowContext(ctx,
		"SELECT payload_json, version FROM wizard_sessions WHERE session_id = ?", id).Scan(&payload, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, model.ErrSessionNotFound
	}
	if err != nil {
		return nil, 0, err
	}
	return []byte(payload), version, nil
}

func (s *SqliteStore) GetOrCreate(ctx context.Context, id string) (*model.Session, bool, error) {
	sess, created, err := s.insert(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if created {
		return sess, true, nil
	}
	sess, err = s.Get(ctx, id)
	return sess, false, err
}

func (s *SqliteStore) Update(ctx context.Context, id string, fn func(*model.Session) error) (*model.Session, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		raw, version, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		sess, b, err := mutate(raw, fn, s.opts.stamp())
		if err != nil {
			return nil, err
		}
		res, err := s.DB.ExecContext(ctx, `
			UPDATE wizard_sessions
			SET top_state = ?, version = ?, payload_json = ?, updated_at_ms = ?
			WHERE session_id = ? AND version = ?`,
			string(sess.TopState), sess.Version, string(b), sess.UpdatedAt.UnixMilli(), id, version,
		)
		if err != nil {
			return nil, err
		}
		if n, _ := res.RowsAffected(); n == 1 {
			return sess, nil
		}
	}
	return nil, fmt.Errorf("session %s: %w", id, ErrConflict)
}

func (s *SqliteStore) Remove(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	res, err := s.DB.ExecContext(ctx, "DELETE FROM wizard_sessions WHERE session_id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrSessionNotFound
	}
	return nil
}

func (s *SqliteStore) Scan(ctx context.Context, fn func(*model.Session) error) error {
	rows, err := s.DB.QueryContext(ctx, "SELECT payload_json FROM wizard_sessions")
	if err != nil {
		return err
	}
	// Collect first so fn may call back into the store without holding a cursor.
	var payloads []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			_ = rows.Close()
			return err
		}
		payloads = append(payloads, p)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	for _, p := range payloads {
		if err := ctx.Err(); err != nil {
			return err
		}
		sess, err := model.Decode([]byte(p))
		if err != nil {
			return err
		}
		if err := fn(sess); err != nil {
			return err
		}
	}
	return nil
}
