// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package workflow

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ManuGH/ordwiz/internal/domain/pricing"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/model"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/validation"
)

// ExecutionParams drives stage 3: due date, urgency, discount and payment.
type ExecutionParams struct{ d *Deps }

func (e *ExecutionParams) Initialize(ctx context.Context, id string) (*model.Session, error) {
	return e.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		if s.Execution == nil {
			s.Execution = &model.ExecutionParamsContext{
				State:    model.StageInProgress,
				Urgency:  pricing.UrgencyStandard,
				Discount: model.DiscountSelection{Type: model.DiscountNone},
			}
		}
		return nil, nil
	})
}

// field runs one stage 3 mutator. set returns the verdict for the new value.
func (e *ExecutionParams) field(ctx context.Context, id string, set func(s *model.Session, ex *model.ExecutionParamsContext) []string) (*model.Session, error) {
	return e.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		ex := s.Execution
		if ex == nil {
			return nil, missing("execution parameters")
		}
		if errs := set(s, ex); errs != nil {
			return fail(&ex.Errors, errs)
		}
		ex.State = model.StageInProgress
		return ok(&ex.Errors)
	})
}

func (e *ExecutionParams) SetCompletionDate(ctx context.Context, id string, p model.CompletionDatePayload) (*model.Session, error) {
	return e.field(ctx, id, func(s *model.Session, ex *model.ExecutionParamsContext) []string {
		due, errs := validation.ParseDate(p.Date)
		if errs != nil {
			return errs
		}
		if errs := validation.CompletionDate(due, s.Vars.StartedAt); errs != nil {
			return errs
		}
		ex.ExpectedCompletion = &due
		return nil
	})
}

func (e *ExecutionParams) SetUrgency(ctx context.Context, id string, p model.UrgencyPayload) (*model.Session, error) {
	return e.field(ctx, id, func(_ *model.Session, ex *model.ExecutionParamsContext) []string {
		if errs := validation.Urgency(p.Urgency); errs != nil {
			return errs
		}
		ex.Urgency = p.Urgency
		return nil
	})
}

func (e *ExecutionParams) SetDiscount(ctx context.Context, id string, p model.DiscountPayload) (*model.Session, error) {
	return e.field(ctx, id, func(_ *model.Session, ex *model.ExecutionParamsContext) []string {
		sel := model.DiscountSelection{Type: p.Type, CustomPercent: p.CustomPercent}
		if sel.Type != model.DiscountCustom {
			sel.CustomPercent = decimal.Zero
		}
		if errs := validation.Discount(sel); errs != nil {
			return errs
		}
		ex.Discount = sel
		return nil
	})
}

func (e *ExecutionParams) SetPayment(ctx context.Context, id string, p model.PaymentPayload) (*model.Session, error) {
	return e.field(ctx, id, func(s *model.Session, ex *model.ExecutionParamsContext) []string {
		_, totals, err := Quote(s)
		if err != nil {
			return []string{"order total is not available: " + err.Error()}
		}
		pay := model.PaymentDetails{Method: p.Method, Prepayment: p.Prepayment}
		if errs := validation.Payment(pay, totals.TotalAmount); errs != nil {
			return errs
		}
		ex.Payment = pay
		return nil
	})
}

func (e *ExecutionParams) SetNotes(ctx context.Context, id string, p model.NotesPayload) (*model.Session, error) {
	return e.field(ctx, id, func(_ *model.Session, ex *model.ExecutionParamsContext) []string {
		notes := strings.TrimSpace(p.Notes)
		if errs := validation.Notes(notes); errs != nil {
			return errs
		}
		ex.Notes = notes
		return nil
	})
}

// Check validates the whole stage against the current order total.
func (e *ExecutionParams) Check(s *model.Session) []string {
	_, totals, err := Quote(s)
	if err != nil {
		return []string{"order total is not available: " + err.Error()}
	}
	return validation.ExecutionParams(s.Execution, s.Vars.StartedAt, totals.TotalAmount)
}

func (e *ExecutionParams) Complete(ctx context.Context, id string) (*model.Session, error) {
	return e.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		ex := s.Execution
		if ex == nil {
			return nil, missing("execution parameters")
		}
		if errs := e.Check(s); errs != nil {
			ex.State = model.StageValidationError
			return fail(&ex.Errors, errs)
		}
		ex.State = model.StageCompleted
		now := e.d.now()
		s.Vars.ParamsCompletedAt = &now
		return ok(&ex.Errors)
	})
}

func (e *ExecutionParams) Reopen(ctx context.Context, id string) (*model.Session, error) {
	return e.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		if s.Execution != nil {
			s.Execution.State = model.StageInProgress
		}
		return nil, nil
	})
}

func (e *ExecutionParams) CurrentState(ctx context.Context, id string) (model.StageState, error) {
	ex, err := e.CurrentData(ctx, id)
	if err != nil {
		return "", err
	}
	return ex.State, nil
}

func (e *ExecutionParams) CurrentData(ctx context.Context, id string) (*model.ExecutionParamsContext, error) {
	s, err := e.d.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Execution == nil {
		return nil, missing("execution parameters")
	}
	return s.Execution, nil
}

func (e *ExecutionParams) Reset(ctx context.Context, id string) (*model.Session, error) {
	return e.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		s.Execution = &model.ExecutionParamsContext{
			State:    model.StageInProgress,
			Urgency:  pricing.UrgencyStandard,
			Discount: model.DiscountSelection{Type: model.DiscountNone},
		}
		s.Vars.ParamsCompletedAt = nil
		return nil, nil
	})
}
