// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/ordwiz/internal/domain/wizard/model"
)

// runConformance exercises the Store contract against one backend.
func runConformance(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CreateGetRemove", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		created, err := s.Create(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, model.StateOrderStart, created.TopState)

		_, err = s.Create(ctx, "s1")
		assert.ErrorIs(t, err, model.ErrSessionExists)

		got, err := s.Get(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "s1", got.ID)

		require.NoError(t, s.Remove(ctx, "s1"))
		_, err = s.Get(ctx, "s1")
		assert.ErrorIs(t, err, model.ErrSessionNotFound)
		assert.ErrorIs(t, s.Remove(ctx, "s1"), model.ErrSessionNotFound)
	})

	t.Run("GetOrCreate", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, created, err := s.GetOrCreate(ctx, "s1")
		require.NoError(t, err)
		assert.True(t, created)

		_, err = s.Update(ctx, "s1", func(sess *model.Session) error {
			sess.Vars.ClientID = "c1"
			return nil
		})
		require.NoError(t, err)

		again, created, err := s.GetOrCreate(ctx, "s1")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "c1", again.Vars.ClientID)
	})

	t.Run("UpdateMissingSession", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Update(context.Background(), "nope", func(*model.Session) error { return nil })
		assert.ErrorIs(t, err, model.ErrSessionNotFound)
	})

	t.Run("UpdateErrorWritesNothing", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.Create(ctx, "s1")
		require.NoError(t, err)

		boom := errors.New("boom")
		_, err = s.Update(ctx, "s1", func(sess *model.Session) error {
			sess.Vars.ClientID = "should-not-stick"
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := s.Get(ctx, "s1")
		require.NoError(t, err)
		assert.Empty(t, got.Vars.ClientID)
		assert.Equal(t, int64(0), got.Version)
	})

	t.Run("ReadsAreCopies", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.Create(ctx, "s1")
		require.NoError(t, err)

		got, err := s.Get(ctx, "s1")
		require.NoError(t, err)
		got.Vars.ClientID = "mutated"

		again, err := s.Get(ctx, "s1")
		require.NoError(t, err)
		assert.Empty(t, again.Vars.ClientID)
	})

	t.Run("ConcurrentUpdatesAreSerialized", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.Create(ctx, "s1")
		require.NoError(t, err)
		_, err = s.Update(ctx, "s1", func(sess *model.Session) error {
			sess.Items = &model.ItemManagementContext{Phase: model.PhaseIdle, EditingIndex: -1}
			return nil
		})
		require.NoError(t, err)

		const writers = 20
		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := s.Update(ctx, "s1", func(sess *model.Session) error {
					sess.Items.Items = append(sess.Items.Items, model.OrderItem{ID: fmt.Sprintf("item-%d", i)})
					return nil
				})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		got, err := s.Get(ctx, "s1")
		require.NoError(t, err)
		assert.Len(t, got.Items.Items, writers, "lost update detected")
		assert.Equal(t, int64(writers+1), got.Version)
	})

	t.Run("ConcurrentQuantityEntryHasOneWinner", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.Create(ctx, "s1")
		require.NoError(t, err)

		enter := func(qty int64, tag string) {
			_, err := s.Update(ctx, "s1", func(sess *model.Session) error {
				if sess.Items == nil {
					sess.Items = &model.ItemManagementContext{EditingIndex: -1}
				}
				sess.Items.Current = &model.ItemWizardContext{
					ItemID:    tag,
					BasicInfo: &model.BasicInfo{State: model.StepEnteringQuantity, Quantity: decimal.NewFromInt(qty)},
				}
				return nil
			})
			assert.NoError(t, err)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); enter(3, "writer-a") }()
		go func() { defer wg.Done(); enter(7, "writer-b") }()
		wg.Wait()

		got, err := s.Get(ctx, "s1")
		require.NoError(t, err)
		cur := got.Items.Current
		switch cur.ItemID {
		case "writer-a":
			assert.True(t, cur.BasicInfo.Quantity.Equal(decimal.NewFromInt(3)))
		case "writer-b":
			assert.True(t, cur.BasicInfo.Quantity.Equal(decimal.NewFromInt(7)))
		default:
			t.Fatalf("unexpected winner %q", cur.ItemID)
		}
	})

	t.Run("ScanVisitsAll", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for _, id := range []string{"a", "b", "c"} {
			_, err := s.Create(ctx, id)
			require.NoError(t, err)
		}

		seen := map[string]bool{}
		require.NoError(t, s.Scan(ctx, func(sess *model.Session) error {
			seen[sess.ID] = true
			return nil
		}))
		assert.Equal(t, map[string]bool{"a": true, "b": true, "c": true}, seen)
	})

	t.Run("ScanAllowsRemoveFromCallback", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for _, id := range []string{"a", "b"} {
			_, err := s.Create(ctx, id)
			require.NoError(t, err)
		}
		require.NoError(t, s.Scan(ctx, func(sess *model.Session) error {
			return s.Remove(ctx, sess.ID)
		}))

		count := 0
		require.NoError(t, s.Scan(ctx, func(*model.Session) error { count++; return nil }))
		assert.Zero(t, count)
	})
}
