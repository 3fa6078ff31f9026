// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package sweeper removes abandoned wizard sessions from the context store.
package sweeper

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/ManuGH/ordwiz/internal/domain/wizard/model"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/store"
	"github.com/ManuGH/ordwiz/internal/log"
)

var sweptTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ordwiz_sweeper_removed_total",
		Help: "Sessions removed by the TTL sweeper",
	},
	[]string{"reason"}, // reason=expired/terminal
)

// Config defines retention policy.
type Config struct {
	Interval   time.Duration
	SessionTTL time.Duration // idle time after which a session is removed
}

// Sweeper deletes sessions whose last update is older than SessionTTL.
// The coordinator sees a swept session as an ordinary SessionNotFound.
type Sweeper struct {
	Store  store.Store
	Conf   Config
	Now    func() time.Time
	logger zerolog.Logger
}

func New(st store.Store, conf Config) *Sweeper {
	return &Sweeper{
		Store:  st,
		Conf:   conf,
		Now:    time.Now,
		logger: log.WithComponent("sweeper"),
	}
}

// Run periodically calls SweepOnce until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	if s.Conf.Interval <= 0 || s.Conf.SessionTTL <= 0 {
		return
	}

	ticker := time.NewTicker(s.Conf.Interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.Conf.Interval).Dur("ttl", s.Conf.SessionTTL).Msg("session sweeper started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Warn().Err(err).Msg("sweep failed")
			}
		}
	}
}

// SweepOnce performs one deterministic pass and returns how many sessions it removed.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	now := s.Now().UTC()

	type victim struct {
		id     string
		reason string
	}
	var toDelete []victim
	scanned := 0
	err := s.Store.Scan(ctx, func(sess *model.Session) error {
		scanned++
		if sess.TopState.IsTerminal() {
			toDelete = append(toDelete, victim{sess.ID, "terminal"})
			return nil
		}
		last := sess.UpdatedAt
		if last.IsZero() {
			last = sess.CreatedAt
		}
		if s.Conf.SessionTTL > 0 && now.Sub(last) > s.Conf.SessionTTL {
			toDelete = append(toDelete, victim{sess.ID, "expired"})
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, v := range toDelete {
		if err := s.Store.Remove(ctx, v.id); err != nil {
			if errors.Is(err, model.ErrSessionNotFound) {
				continue
			}
			s.logger.Warn().Err(err).Str(log.FieldSessionID, v.id).Msg("failed to remove stale session")
			continue
		}
		removed++
		sweptTotal.WithLabelValues(v.reason).Inc()
	}

	if removed > 0 {
		s.logger.Info().Int("scanned", scanned).Int("removed", removed).Msg("swept stale sessions")
	}
	return removed, nil
}
