// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/ordwiz/internal/domain/pricing"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/model"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/ports"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "orders.sqlite"), DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo, err := NewRepository(context.Background(), db)
	require.NoError(t, err)
	return repo
}

func testDraft(sessionID string, client model.Client) ports.DraftOrder {
	return ports.DraftOrder{
		SessionID:     sessionID,
		Client:        client,
		BranchID:      "branch-1",
		ReceiptNumber: "R-0001",
		Items: []model.OrderItem{{
			ID: "line-1",
			Record: model.ItemWizardContext{
				BasicInfo: &model.BasicInfo{ItemID: "coat", ItemName: "Coat", Quantity: decimal.NewFromInt(2)},
			},
			Breakdown: pricing.PriceBreakdown{FinalTotalPrice: 32400},
		}},
		Totals:             pricing.OrderTotals{ItemCount: 1, TotalAmount: 32400},
		ExpectedCompletion: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Payment:            model.PaymentDetails{Method: model.PaymentCash, Prepayment: 10000},
		SignerName:         "Ivan Petrenko",
		Signature:          "data:image/png;base64,AAAA",
		ReceiptCopies:      1,
	}
}

func TestRepository_SaveAndGetOrder(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	client, err := repo.CreateClient(ctx, model.Client{FirstName: "Ivan", LastName: "Petrenko", Phone: "+380501112233"})
	require.NoError(t, err)

	id, err := repo.SaveOrder(ctx, testDraft("sess-1", client))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := repo.GetOrder(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "R-0001", got.ReceiptNumber)
	assert.Equal(t, pricing.Money(32400), got.Totals.TotalAmount)
	assert.Equal(t, client.ID, got.Client.ID)
	require.Len(t, got.Items, 1)
	assert.True(t, got.Items[0].Record.BasicInfo.Quantity.Equal(decimal.NewFromInt(2)))

	n, err := repo.CountOrderItems(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRepository_SaveOrder_IdempotentPerSession(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first, err := repo.SaveOrder(ctx, testDraft("sess-1", model.Client{ID: "c1"}))
	require.NoError(t, err)
	second, err := repo.SaveOrder(ctx, testDraft("sess-1", model.Client{ID: "c1"}))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRepository_SaveOrder_RejectsEmptyDraft(t *testing.T) {
	repo := newTestRepository(t)
	draft := testDraft("sess-1", model.Client{ID: "c1"})
	draft.Items = nil
	_, err := repo.SaveOrder(context.Background(), draft)
	require.Error(t, err)
}

func TestRepository_GetOrder_NotFound(t *testing.T) {
	repo := newTestRepository(t)
	_, err := repo.GetOrder(context.Background(), "missing")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestRepository_Clients(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	c, err := repo.CreateClient(ctx, model.Client{FirstName: "Olena", LastName: "Shevchenko", Phone: "+380671234567", Email: "olena@example.com"})
	require.NoError(t, err)

	got, err := repo.GetClient(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c, got)

	_, err = repo.CreateClient(ctx, model.Client{FirstName: "Other", LastName: "Person", Phone: "+380671234567"})
	assert.ErrorIs(t, err, ErrDuplicateClient)

	found, err := repo.SearchClients(ctx, "shev", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, c.ID, found[0].ID)

	_, err = repo.GetClient(ctx, "nope")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestMigrate_IsIdempotent(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "m.sqlite"), DefaultConfig())
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db, 1, "CREATE TABLE IF NOT EXISTS t (id INTEGER)"))
	require.NoError(t, Migrate(ctx, db, 1, "this is not sql and must not run"))

	var v int
	require.NoError(t, db.QueryRow("PRAGMA user_version").Scan(&v))
	assert.Equal(t, 1, v)
}
