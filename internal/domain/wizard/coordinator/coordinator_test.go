// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package coordinator

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/ordwiz/internal/domain/pricing"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/fsm"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/model"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/store"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/workflow"
	"github.com/ManuGH/ordwiz/internal/metrics"
	"github.com/ManuGH/ordwiz/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

type harness struct {
	c        *Coordinator
	st       store.Store
	orders   *testutil.Orders
	receipts *testutil.Renderer
	ctx      context.Context
	id       string
}

func newHarness(t *testing.T, opts ...func(*Config)) *harness {
	t.Helper()
	clock := func() time.Time { return testNow }
	st := store.NewMemoryStore(store.WithClock(clock))
	cat := testutil.NewCatalog()
	var seq atomic.Int64
	svc := workflow.New(&workflow.Deps{
		Store:     st,
		Catalog:   cat,
		Modifiers: cat,
		Clients:   testutil.NewClients(model.Client{ID: "c1", FirstName: "Olena", LastName: "Koval", Phone: "+380501234567"}),
		Branches:  cat,
		Now:       clock,
		NewID:     func() string { return fmt.Sprintf("id-%d", seq.Add(1)) },
	})
	h := &harness{st: st, orders: testutil.NewOrders(), receipts: &testutil.Renderer{}, ctx: context.Background(), id: "s1"}
	cfg := Config{Store: st, Services: svc, Orders: h.orders, Receipts: h.receipts}
	for _, o := range opts {
		o(&cfg)
	}
	c, err := New(cfg)
	require.NoError(t, err)
	h.c = c
	return h
}

// send dispatches an event and fails the test unless it fired cleanly.
func (h *harness) send(t *testing.T, typ model.EventType, payload any) *Outcome {
	t.Helper()
	out := h.try(t, typ, payload)
	require.False(t, out.Denied, "%s denied: %v", typ, out.Errors)
	require.Empty(t, out.Errors, "%s rejected", typ)
	return out
}

func (h *harness) try(t *testing.T, typ model.EventType, payload any) *Outcome {
	t.Helper()
	out, err := h.c.Dispatch(h.ctx, h.id, model.MustEvent(typ, payload))
	require.NoError(t, err, "dispatch %s", typ)
	return out
}

func (h *harness) toItems(t *testing.T) {
	t.Helper()
	out, err := h.c.Start(h.ctx, h.id)
	require.NoError(t, err)
	require.Equal(t, model.StateClientSelection, out.To)
	h.send(t, model.EventSelectClient, model.SelectClientPayload{ClientID: "c1"})
	h.send(t, model.EventSetOrderInfo, model.OrderInfoPayload{BranchID: "main", ReceiptNumber: "R-0001"})
	out = h.send(t, model.EventCompleteClientSelection, nil)
	require.Equal(t, model.StateItemManagement, out.To)
	require.Equal(t, model.PhaseIdle, out.Phase)
}

// addCoat walks one coat (2 pcs, delicate fabric) through every substep.
func (h *harness) addCoat(t *testing.T) {
	t.Helper()
	out := h.send(t, model.EventStartItem, nil)
	require.Equal(t, model.PhaseBasicInfo, out.Phase)
	h.send(t, model.EventSelectServiceCategory, model.SelectCategoryPayload{CategoryID: "clean"})
	h.send(t, model.EventSelectCatalogItem, model.SelectItemPayload{ItemID: "coat"})
	h.send(t, model.EventEnterQuantity, model.QuantityPayload{Quantity: decimal.NewFromInt(2)})
	out = h.send(t, model.EventSubmitSubstep, nil)
	require.Equal(t, model.PhaseCharacteristics, out.Phase)
	require.Equal(t, []model.EventType{model.EventSubmitSubstep, model.EventSubstepCompleted}, out.Fired)

	h.send(t, model.EventSelectMaterial, model.MaterialPayload{Material: "wool"})
	h.send(t, model.EventSetCharacteristics, model.CharacteristicsPayload{Color: "black", WearDegree: 30})
	require.Equal(t, model.PhaseStainsDefects, h.send(t, model.EventSubmitSubstep, nil).Phase)

	h.send(t, model.EventSelectStains, model.StainsPayload{Stains: []string{"wine"}})
	require.Equal(t, model.PhasePriceDiscount, h.send(t, model.EventSubmitSubstep, nil).Phase)

	h.send(t, model.EventToggleModifier, model.ToggleModifierPayload{ModifierID: "silk", Selected: true})
	require.Equal(t, model.PhasePhotoDocumentation, h.send(t, model.EventSubmitSubstep, nil).Phase)

	h.send(t, model.EventSkipPhotos, model.SkipPhotosPayload{Reason: "client in a hurry"})
	out = h.send(t, model.EventSubmitSubstep, nil)
	require.Equal(t, model.PhaseIdle, out.Phase)
	require.Nil(t, out.Snapshot.Items.Current)
}

func (h *harness) toReceipt(t *testing.T) {
	t.Helper()
	h.toItems(t)
	h.addCoat(t)
	out := h.send(t, model.EventCompleteItems, nil)
	require.Equal(t, model.StateExecutionParams, out.To)

	h.send(t, model.EventSetCompletionDate, model.CompletionDatePayload{Date: "2026-03-12"})
	h.send(t, model.EventSetPayment, model.PaymentPayload{Method: model.PaymentCash, Prepayment: 10000})
	out = h.send(t, model.EventCompleteExecutionParams, nil)
	require.Equal(t, model.StateOrderSummary, out.To)
	require.Equal(t, []model.EventType{model.EventEnterSummary}, out.FollowUps)

	require.Equal(t, model.StateLegalAcceptance, h.send(t, model.EventApproveSummary, nil).To)
	h.send(t, model.EventAcceptTerms, model.AcceptTermsPayload{Accepted: true, SignerName: "Olena Koval", Signature: "sig"})
	require.Equal(t, model.StateReceiptConfiguration, h.send(t, model.EventSubmitLegal, nil).To)
	h.send(t, model.EventConfigureReceipt, model.ReceiptConfigPayload{Copies: 1})
}

func TestDispatch_HappyPath(t *testing.T) {
	h := newHarness(t)
	h.toReceipt(t)

	out := h.send(t, model.EventConfirmReceipt, nil)
	assert.Equal(t, model.StateReceiptConfiguration, out.From)
	assert.Equal(t, model.StateCompleted, out.To)
	assert.Equal(t, []model.EventType{model.EventConfirmReceipt, model.EventCompleteOrder}, out.Fired)
	assert.Empty(t, out.AllowedEvents)

	require.NotNil(t, out.Snapshot)
	assert.Equal(t, "order-1", out.Snapshot.Vars.OrderID)
	assert.NotNil(t, out.Snapshot.Vars.CompletedAt)
	assert.True(t, out.Snapshot.Confirmation.Receipt.Rendered)

	assert.Equal(t, 1, h.orders.Count())
	draft, ok := h.orders.Draft("order-1")
	require.True(t, ok)
	assert.Equal(t, pricing.Money(24000), draft.Totals.TotalAmount)
	assert.Equal(t, pricing.Money(10000), draft.Payment.Prepayment)
	assert.Len(t, draft.Items, 1)

	_, err := h.st.Get(h.ctx, h.id)
	assert.ErrorIs(t, err, model.ErrSessionNotFound, "completed session must be removed")
}

func TestDispatch_RepricingVoidsLegalAcceptance(t *testing.T) {
	h := newHarness(t)
	h.toReceipt(t)

	require.Equal(t, model.StateLegalAcceptance, h.send(t, model.EventGoBack, nil).To)
	require.Equal(t, model.StateOrderSummary, h.send(t, model.EventGoBack, nil).To)
	require.Equal(t, model.StateExecutionParams, h.send(t, model.EventGoBack, nil).To)
	h.send(t, model.EventSetUrgency, model.UrgencyPayload{Urgency: pricing.Urgency24h})
	out := h.send(t, model.EventCompleteExecutionParams, nil)
	require.Equal(t, model.StateOrderSummary, out.To)
	assert.Equal(t, pricing.Money(48000), out.Snapshot.Confirmation.Summary.Totals.TotalAmount)
	assert.False(t, out.Snapshot.Confirmation.Legal.TermsAccepted)
	assert.Nil(t, out.Snapshot.Vars.ConfirmedAt)

	require.Equal(t, model.StateLegalAcceptance, h.send(t, model.EventApproveSummary, nil).To)
	out = h.try(t, model.EventSubmitLegal, nil)
	assert.True(t, out.Denied)
	assert.Equal(t, model.StateLegalAcceptance, out.To)

	h.send(t, model.EventAcceptTerms, model.AcceptTermsPayload{Accepted: true, SignerName: "Olena Koval", Signature: "sig-2"})
	assert.Equal(t, model.StateReceiptConfiguration, h.send(t, model.EventSubmitLegal, nil).To)
}

func TestDispatch_UnchangedSummaryKeepsLegalAcceptance(t *testing.T) {
	h := newHarness(t)
	h.toReceipt(t)

	h.send(t, model.EventGoBack, nil)
	out := h.send(t, model.EventGoBack, nil)
	require.Equal(t, model.StateOrderSummary, out.To)
	assert.True(t, out.Snapshot.Confirmation.Legal.TermsAccepted)

	require.Equal(t, model.StateLegalAcceptance, h.send(t, model.EventApproveSummary, nil).To)
	assert.Equal(t, model.StateReceiptConfiguration, h.send(t, model.EventSubmitLegal, nil).To)
}

func TestDispatch_GuardDenied(t *testing.T) {
	h := newHarness(t)
	_, err := h.c.Start(h.ctx, h.id)
	require.NoError(t, err)

	before := promtest.ToFloat64(metrics.WizardGuardDeniedTotal.WithLabelValues(machineTop, string(model.EventCompleteClientSelection)))
	out := h.try(t, model.EventCompleteClientSelection, nil)
	assert.True(t, out.Denied)
	assert.NotEmpty(t, out.Errors)
	assert.Equal(t, model.StateClientSelection, out.To)
	assert.Empty(t, out.Fired)
	after := promtest.ToFloat64(metrics.WizardGuardDeniedTotal.WithLabelValues(machineTop, string(model.EventCompleteClientSelection)))
	assert.Equal(t, before+1, after)
	assert.ErrorIs(t, out.Err(), model.ErrGuardDenied)

	// A denial does not touch the session.
	assert.Nil(t, out.Snapshot.Vars.ClientSelectedAt)
	assert.Equal(t, model.StageInProgress, out.Snapshot.ClientSelection.State)
}

func TestDispatch_EventNotAllowed(t *testing.T) {
	h := newHarness(t)
	_, err := h.c.Start(h.ctx, h.id)
	require.NoError(t, err)

	out := h.try(t, model.EventStartItem, nil)
	assert.True(t, out.Denied)
	assert.Equal(t, []string{"event START_ITEM is not allowed in state CLIENT_SELECTION"}, out.Errors)
}

func TestDispatch_ValidationErrorIsRecorded(t *testing.T) {
	h := newHarness(t)
	_, err := h.c.Start(h.ctx, h.id)
	require.NoError(t, err)

	out := h.try(t, model.EventSelectClient, model.SelectClientPayload{ClientID: "missing"})
	assert.False(t, out.Denied)
	assert.Equal(t, []string{"client not found"}, out.Errors)
	assert.Equal(t, model.StateClientSelection, out.To)
	assert.Equal(t, "client not found", out.Snapshot.Vars.LastError)
	msgs, ok := model.AsValidation(out.Err())
	require.True(t, ok)
	assert.Equal(t, []string{"client not found"}, msgs)

	out = h.try(t, model.EventSelectClient, nil)
	require.Len(t, out.Errors, 1)
	assert.Contains(t, out.Errors[0], "payload is required")
}

func TestDispatch_SubstepErrorStaysInPhase(t *testing.T) {
	h := newHarness(t)
	h.toItems(t)
	h.send(t, model.EventStartItem, nil)

	out := h.try(t, model.EventSubmitSubstep, nil)
	assert.NotEmpty(t, out.Errors)
	assert.Equal(t, model.PhaseBasicInfo, out.Phase)
	assert.Equal(t, model.StepValidationError, out.Snapshot.Items.Current.BasicInfo.State)

	// SUBSTEP_COMPLETED cannot skip validation.
	out = h.try(t, model.EventSubstepCompleted, nil)
	assert.True(t, out.Denied)
	assert.Equal(t, model.PhaseBasicInfo, out.Phase)
}

func TestDispatch_GoBack(t *testing.T) {
	h := newHarness(t)
	h.toItems(t)
	h.addCoat(t)

	h.send(t, model.EventEditItem, model.ItemIndexPayload{Index: 0})
	require.Equal(t, model.PhaseCharacteristics, h.send(t, model.EventSubmitSubstep, nil).Phase)
	out := h.send(t, model.EventGoBack, nil)
	assert.Equal(t, model.PhaseBasicInfo, out.Phase)
	assert.Equal(t, model.StateItemManagement, out.To)

	out = h.try(t, model.EventGoBack, nil)
	assert.True(t, out.Denied)
	assert.Equal(t, []string{"finish or cancel the item in progress first"}, out.Errors)

	out = h.send(t, model.EventCancelItem, nil)
	assert.Equal(t, model.PhaseIdle, out.Phase)
	assert.Len(t, out.Snapshot.Items.Items, 1, "cancelled edit keeps the stored item")

	out = h.send(t, model.EventGoBack, nil)
	assert.Equal(t, model.StateClientSelection, out.To)
	assert.Equal(t, model.StageInProgress, out.Snapshot.ClientSelection.State)
	assert.Equal(t, "c1", out.Snapshot.ClientSelection.Client.ID)
}

func TestDispatch_ActionFailureThenRetry(t *testing.T) {
	h := newHarness(t)
	h.toReceipt(t)
	h.orders.FailN.Store(1)

	out := h.try(t, model.EventConfirmReceipt, nil)
	assert.Equal(t, model.StateSystemError, out.To)
	require.Len(t, out.Errors, 1)
	assert.Contains(t, out.Errors[0], testutil.ErrInjected.Error())
	assert.Equal(t, model.StateOrderCompletion, out.Snapshot.Vars.StateBeforeError)
	require.NotNil(t, out.Snapshot.Vars.LastEvent)
	assert.Equal(t, model.EventCompleteOrder, out.Snapshot.Vars.LastEvent.Type)
	assert.Equal(t, []model.EventType{model.EventCancelOrder, model.EventRetry}, out.AllowedEvents)
	var af *model.ActionFailure
	require.ErrorAs(t, out.Err(), &af)
	assert.Equal(t, model.EventConfirmReceipt, af.Event)

	out = h.send(t, model.EventRetry, nil)
	assert.Equal(t, model.StateCompleted, out.To)
	assert.Equal(t, []model.EventType{model.EventRetry, model.EventCompleteOrder}, out.Fired)
	assert.Empty(t, out.Snapshot.Vars.ErrorMessage)
	assert.NoError(t, out.Err())
	assert.EqualValues(t, 2, h.orders.Calls.Load())
	assert.Equal(t, 1, h.orders.Count())
}

func TestDispatch_RenderFailureDoesNotDuplicateOrder(t *testing.T) {
	h := newHarness(t)
	h.toReceipt(t)
	h.receipts.Err = fmt.Errorf("printer offline")

	out := h.try(t, model.EventConfirmReceipt, nil)
	require.Equal(t, model.StateSystemError, out.To)

	h.receipts.Err = nil
	out = h.send(t, model.EventRetry, nil)
	assert.Equal(t, model.StateCompleted, out.To)
	assert.Equal(t, 1, h.orders.Count())
	assert.Equal(t, "order-1", out.Snapshot.Vars.OrderID)
}

func TestAbandon(t *testing.T) {
	t.Run("from stage", func(t *testing.T) {
		h := newHarness(t)
		h.toItems(t)
		h.send(t, model.EventStartItem, nil)

		out, err := h.c.Abandon(h.ctx, h.id)
		require.NoError(t, err)
		assert.Equal(t, model.StateAbandoned, out.To)
		_, err = h.st.Get(h.ctx, h.id)
		assert.ErrorIs(t, err, model.ErrSessionNotFound)

		_, err = h.c.Dispatch(h.ctx, h.id, model.Event{Type: model.EventStartItem})
		assert.ErrorIs(t, err, model.ErrSessionNotFound)
	})

	t.Run("from system error", func(t *testing.T) {
		h := newHarness(t)
		h.toReceipt(t)
		h.orders.FailN.Store(1)
		require.Equal(t, model.StateSystemError, h.try(t, model.EventConfirmReceipt, nil).To)

		out, err := h.c.Abandon(h.ctx, h.id)
		require.NoError(t, err)
		assert.Equal(t, model.StateAbandoned, out.To)
		assert.Equal(t, 0, h.orders.Count())
	})
}

func TestStart(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.NewID = func() string { return "generated" } })

	out, err := h.c.Start(h.ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "generated", out.SessionID)
	assert.Equal(t, model.StateOrderStart, out.From)
	assert.Equal(t, model.StateClientSelection, out.To)
	assert.Contains(t, out.AllowedEvents, model.EventSelectClient)
	assert.Contains(t, out.AllowedEvents, model.EventCancelOrder)

	_, err = h.c.Start(h.ctx, "generated")
	assert.ErrorIs(t, err, model.ErrSessionExists)
}

func TestSnapshot_MergesItemEvents(t *testing.T) {
	h := newHarness(t)
	h.toItems(t)
	h.send(t, model.EventStartItem, nil)

	out, err := h.c.Snapshot(h.ctx, h.id)
	require.NoError(t, err)
	assert.Equal(t, model.PhaseBasicInfo, out.Phase)
	assert.Contains(t, out.AllowedEvents, model.EventSelectServiceCategory)
	assert.Contains(t, out.AllowedEvents, model.EventCompleteItems)
	assert.NotContains(t, out.AllowedEvents, model.EventStartItem)

	_, err = h.c.Snapshot(h.ctx, "ghost")
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
}

func TestDispatch_AutoAdvanceLimit(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.MaxAutoSteps = 1 })
	h.toItems(t)
	h.send(t, model.EventStartItem, nil)
	h.send(t, model.EventSelectServiceCategory, model.SelectCategoryPayload{CategoryID: "clean"})
	h.send(t, model.EventSelectCatalogItem, model.SelectItemPayload{ItemID: "coat"})
	h.send(t, model.EventEnterQuantity, model.QuantityPayload{Quantity: decimal.NewFromInt(1)})

	_, err := h.c.Dispatch(h.ctx, h.id, model.Event{Type: model.EventSubmitSubstep})
	assert.ErrorIs(t, err, ErrAutoAdvanceLimit)
}

func TestDispatch_SerializesPerSession(t *testing.T) {
	h := newHarness(t)
	h.toItems(t)
	h.send(t, model.EventStartItem, nil)
	h.send(t, model.EventSelectServiceCategory, model.SelectCategoryPayload{CategoryID: "clean"})
	h.send(t, model.EventSelectCatalogItem, model.SelectItemPayload{ItemID: "coat"})

	before, err := h.st.Get(h.ctx, h.id)
	require.NoError(t, err)

	const writers = 20
	var g errgroup.Group
	for i := 1; i <= writers; i++ {
		ev := model.MustEvent(model.EventEnterQuantity, model.QuantityPayload{Quantity: decimal.NewFromInt(int64(i))})
		g.Go(func() error {
			out, err := h.c.Dispatch(h.ctx, h.id, ev)
			if err != nil {
				return err
			}
			if len(out.Errors) > 0 {
				return fmt.Errorf("unexpected errors: %v", out.Errors)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	after, err := h.st.Get(h.ctx, h.id)
	require.NoError(t, err)
	assert.Equal(t, before.Version+writers, after.Version, "every update must be applied exactly once")
	q := after.Items.Current.BasicInfo.Quantity
	assert.True(t, q.GreaterThanOrEqual(decimal.NewFromInt(1)) && q.LessThanOrEqual(decimal.NewFromInt(writers)))
}

func TestFire_DetectsConcurrentTransition(t *testing.T) {
	h := newHarness(t)
	_, err := h.c.Start(h.ctx, h.id)
	require.NoError(t, err)

	// The action moves the session behind the machine's back.
	m := fsm.MustNew("order", []topEdge{{
		From: model.StateClientSelection, Event: model.EventCompleteClientSelection, To: model.StateItemManagement,
		Action: func(ctx context.Context, in *Input) (model.EventType, error) {
			_, err := h.st.Update(ctx, in.SessionID, func(s *model.Session) error {
				s.TopState = model.StateExecutionParams
				return nil
			})
			return "", err
		},
	}})
	in := &Input{SessionID: h.id, Event: model.Event{Type: model.EventCompleteClientSelection}}
	_, err = fire(h.ctx, h.c, m, model.StateClientSelection, in, topStateOf, setTopState)
	assert.ErrorIs(t, err, ErrConcurrentTransition)

	sess, err := h.st.Get(h.ctx, h.id)
	require.NoError(t, err)
	assert.Equal(t, model.StateExecutionParams, sess.TopState)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
