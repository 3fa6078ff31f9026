// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package workflow

import (
	"context"

	"github.com/ManuGH/ordwiz/internal/domain/pricing"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/model"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/validation"
)

// PriceDiscountStep is item substep 4: modifier selection with a live price preview.
type PriceDiscountStep struct{ d *Deps }

// Initialize loads the modifiers applicable to the item's category.
func (p *PriceDiscountStep) Initialize(ctx context.Context, id string) (*model.Session, error) {
	cur, err := p.d.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	bi, err := basicInfo(cur)
	if err != nil {
		return nil, err
	}
	defs, err := p.d.Modifiers.ListApplicableModifiers(ctx, bi.CategoryID)
	if err != nil {
		return nil, err
	}
	opts := make([]model.ModifierOption, 0, len(defs))
	for _, def := range defs {
		opts = append(opts, model.ModifierOption{
			ModifierSelection: pricing.ModifierSelection{
				ID:       def.ID,
				Kind:     def.Kind,
				Category: def.Category,
				Sequence: def.Sequence,
				Value:    def.Value,
			},
			Name: def.Name,
			Min:  def.Min,
			Max:  def.Max,
		})
	}
	return initStep(ctx, p.d, id, model.PhasePriceDiscount, func(w *model.ItemWizardContext) {
		if w.PriceDiscount != nil {
			return
		}
		w.PriceDiscount = &model.PriceDiscount{State: model.StepSelectingModifiers, Modifiers: opts}
	})
}

func (p *PriceDiscountStep) ToggleModifier(ctx context.Context, id string, in model.ToggleModifierPayload) (*model.Session, error) {
	return p.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		w, err := currentItem(s)
		if err != nil {
			return nil, err
		}
		pd := w.PriceDiscount
		if pd == nil {
			return nil, missing("price discount")
		}
		idx := -1
		for i := range pd.Modifiers {
			if pd.Modifiers[i].ID == in.ModifierID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fail(&pd.Errors, []string{"unknown modifier " + in.ModifierID})
		}
		next := pd.Modifiers[idx]
		next.Selected = in.Selected
		if in.ChosenValue != nil {
			if next.Kind != pricing.KindRangePercentage {
				return fail(&pd.Errors, []string{"modifier " + next.ID + " does not accept a chosen value"})
			}
			v := *in.ChosenValue
			next.ChosenValue = &v
		}
		if in.Quantity != nil {
			if next.Kind != pricing.KindFixed && next.Kind != pricing.KindAddition {
				return fail(&pd.Errors, []string{"modifier " + next.ID + " does not accept a quantity"})
			}
			q := *in.Quantity
			next.Quantity = &q
		}
		if errs := validation.ModifierChoice(next); errs != nil {
			return fail(&pd.Errors, errs)
		}
		pd.Modifiers[idx] = next

		urgency, discount := orderTerms(s)
		bd, err := PriceItem(w, urgency, discount)
		if err != nil {
			return nil, err
		}
		pd.Preview = &bd
		pd.State = model.StepSelectingModifiers
		return ok(&pd.Errors)
	})
}

func (p *PriceDiscountStep) CurrentState(ctx context.Context, id string) (model.StepState, error) {
	pd, err := p.CurrentData(ctx, id)
	if err != nil {
		return "", err
	}
	return pd.State, nil
}

func (p *PriceDiscountStep) CurrentData(ctx context.Context, id string) (*model.PriceDiscount, error) {
	s, err := p.d.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	w, err := currentItem(s)
	if err != nil {
		return nil, err
	}
	if w.PriceDiscount == nil {
		return nil, missing("price discount")
	}
	return w.PriceDiscount, nil
}

// Reset deselects every modifier and drops the preview.
func (p *PriceDiscountStep) Reset(ctx context.Context, id string) (*model.Session, error) {
	return p.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		w, err := currentItem(s)
		if err != nil {
			return nil, err
		}
		if w.PriceDiscount == nil {
			return nil, nil
		}
		for i := range w.PriceDiscount.Modifiers {
			m := &w.PriceDiscount.Modifiers[i]
			m.Selected = false
			m.ChosenValue = nil
			m.Quantity = nil
		}
		w.PriceDiscount.Preview = nil
		w.PriceDiscount.Errors = nil
		w.PriceDiscount.State = model.StepSelectingModifiers
		return nil, nil
	})
}
