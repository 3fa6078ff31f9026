// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/ManuGH/ordwiz/internal/domain/wizard/model"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/ports"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/validation"
)

// Confirmation drives stage 4: summary, legal acceptance, receipt
// configuration and completion bookkeeping.
type Confirmation struct{ d *Deps }

func (c *Confirmation) Initialize(ctx context.Context, id string) (*model.Session, error) {
	return c.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		if s.Confirmation == nil {
			s.Confirmation = &model.ConfirmationContext{
				Receipt: model.ReceiptConfiguration{Copies: 1},
			}
		}
		return nil, nil
	})
}

func confirmation(s *model.Session) (*model.ConfirmationContext, error) {
	if s.Confirmation == nil {
		return nil, missing("confirmation")
	}
	return s.Confirmation, nil
}

// ComputeSummary reprices every item with the final execution parameters.
func (c *Confirmation) ComputeSummary(ctx context.Context, id string) (*model.Session, error) {
	return c.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		cf, err := confirmation(s)
		if err != nil {
			return nil, err
		}
		items, totals, err := Quote(s)
		if err != nil {
			return nil, err
		}
		for i := range items {
			s.Items.Items[i].Breakdown = items[i]
		}
		now := c.d.now()
		next := model.OrderSummary{Items: items, Totals: totals, ComputedAt: &now}
		if cf.Summary.ComputedAt != nil && summaryChanged(cf.Summary, next) {
			// A signature covers the amounts it was given for.
			cf.Legal = model.LegalAcceptance{}
			s.Vars.ConfirmedAt = nil
		}
		cf.Summary = next
		return ok(&cf.Errors)
	})
}

func summaryChanged(prev, next model.OrderSummary) bool {
	if prev.Totals != next.Totals || len(prev.Items) != len(next.Items) {
		return true
	}
	for i := range prev.Items {
		if prev.Items[i].FinalTotalPrice != next.Items[i].FinalTotalPrice {
			return true
		}
	}
	return false
}

func (c *Confirmation) CheckSummary(s *model.Session) []string {
	if s.Confirmation == nil || s.Confirmation.Summary.ComputedAt == nil {
		return []string{"order summary has not been computed"}
	}
	if len(s.Confirmation.Summary.Items) == 0 {
		return []string{"order must contain at least one item"}
	}
	return nil
}

func (c *Confirmation) ApproveSummary(ctx context.Context, id string) (*model.Session, error) {
	return c.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		cf, err := confirmation(s)
		if err != nil {
			return nil, err
		}
		if errs := c.CheckSummary(s); errs != nil {
			return fail(&cf.Errors, errs)
		}
		cf.Summary.Reviewed = true
		return ok(&cf.Errors)
	})
}

func (c *Confirmation) AcceptTerms(ctx context.Context, id string, p model.AcceptTermsPayload) (*model.Session, error) {
	return c.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		cf, err := confirmation(s)
		if err != nil {
			return nil, err
		}
		legal := model.LegalAcceptance{
			TermsAccepted: p.Accepted,
			SignerName:    strings.TrimSpace(p.SignerName),
			Signature:     p.Signature,
		}
		if errs := validation.Legal(legal); errs != nil {
			return fail(&cf.Errors, errs)
		}
		now := c.d.now()
		legal.AcceptedAt = &now
		cf.Legal = legal
		s.Vars.ConfirmedAt = &now
		return ok(&cf.Errors)
	})
}

func (c *Confirmation) CheckLegal(s *model.Session) []string {
	if s.Confirmation == nil {
		return []string{"terms must be accepted"}
	}
	return validation.Legal(s.Confirmation.Legal)
}

func (c *Confirmation) ConfigureReceipt(ctx context.Context, id string, p model.ReceiptConfigPayload) (*model.Session, error) {
	return c.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		cf, err := confirmation(s)
		if err != nil {
			return nil, err
		}
		if errs := validation.ReceiptConfig(p); errs != nil {
			return fail(&cf.Errors, errs)
		}
		cf.Receipt.Copies = p.Copies
		cf.Receipt.EmailReceipt = p.EmailReceipt
		cf.Receipt.Email = strings.TrimSpace(p.Email)
		cf.Receipt.Configured = true
		return ok(&cf.Errors)
	})
}

func (c *Confirmation) CheckReceipt(s *model.Session) []string {
	if s.Confirmation == nil {
		return []string{"receipt must be configured"}
	}
	return validation.Receipt(s.Confirmation.Receipt)
}

// BuildDraft assembles the order handed to persistence. Every stage must be complete.
func (c *Confirmation) BuildDraft(s *model.Session) (ports.DraftOrder, error) {
	cs, ex, cf := s.ClientSelection, s.Execution, s.Confirmation
	switch {
	case cs == nil || cs.Client == nil:
		return ports.DraftOrder{}, missing("client selection")
	case s.Items == nil || len(s.Items.Items) == 0:
		return ports.DraftOrder{}, missing("order items")
	case ex == nil || ex.ExpectedCompletion == nil:
		return ports.DraftOrder{}, missing("execution parameters")
	case cf == nil || cf.Summary.ComputedAt == nil:
		return ports.DraftOrder{}, missing("order summary")
	}
	if len(cf.Summary.Items) != len(s.Items.Items) {
		return ports.DraftOrder{}, fmt.Errorf("summary covers %d items, order has %d", len(cf.Summary.Items), len(s.Items.Items))
	}
	draft := ports.DraftOrder{
		SessionID:          s.ID,
		Client:             *cs.Client,
		BranchID:           cs.BranchID,
		ReceiptNumber:      cs.ReceiptNumber,
		UniqueTag:          cs.UniqueTag,
		Items:              append([]model.OrderItem(nil), s.Items.Items...),
		Totals:             cf.Summary.Totals,
		ExpectedCompletion: *ex.ExpectedCompletion,
		Urgency:            ex.Urgency,
		Discount:           ex.Discount,
		Payment:            ex.Payment,
		Notes:              ex.Notes,
		SignerName:         cf.Legal.SignerName,
		Signature:          cf.Legal.Signature,
		ReceiptCopies:      cf.Receipt.Copies,
	}
	if cf.Receipt.EmailReceipt {
		draft.ReceiptEmail = cf.Receipt.Email
	}
	return draft, nil
}

// RecordCompletion stores the persisted order id and the rendered receipt size.
func (c *Confirmation) RecordCompletion(ctx context.Context, id, orderID string, receiptSize int) (*model.Session, error) {
	return c.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		cf, err := confirmation(s)
		if err != nil {
			return nil, err
		}
		now := c.d.now()
		cf.Completion = model.OrderCompletion{OrderID: orderID, SavedAt: &now}
		cf.Receipt.Rendered = receiptSize > 0
		cf.Receipt.DocumentSize = receiptSize
		s.Vars.OrderID = orderID
		s.Vars.CompletedAt = &now
		return ok(&cf.Errors)
	})
}

// CurrentState reports the stage 4 sub-stage, which is the top-level state.
func (c *Confirmation) CurrentState(ctx context.Context, id string) (model.TopState, error) {
	s, err := c.d.Store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if s.Confirmation == nil {
		return "", missing("confirmation")
	}
	return s.TopState, nil
}

func (c *Confirmation) CurrentData(ctx context.Context, id string) (*model.ConfirmationContext, error) {
	s, err := c.d.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return confirmation(s)
}

func (c *Confirmation) Reset(ctx context.Context, id string) (*model.Session, error) {
	return c.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		s.Confirmation = &model.ConfirmationContext{Receipt: model.ReceiptConfiguration{Copies: 1}}
		s.Vars.ConfirmedAt = nil
		return nil, nil
	})
}
