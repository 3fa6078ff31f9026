// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package workflow

import (
	"context"
	"strings"

	"github.com/ManuGH/ordwiz/internal/domain/wizard/model"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/validation"
)

// CharacteristicsStep is item substep 2: material, color, filler and wear.
type CharacteristicsStep struct{ d *Deps }

// initStep creates a substep record once every earlier substep is COMPLETED.
// Gate failures are reported on the item management context.
func initStep(ctx context.Context, d *Deps, id string, phase model.ItemPhase, create func(w *model.ItemWizardContext)) (*model.Session, error) {
	return d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		w, err := currentItem(s)
		if err != nil {
			return nil, err
		}
		if errs := validation.SubstepUnlocked(w, phase); errs != nil {
			return fail(&s.Items.Errors, errs)
		}
		create(w)
		return nil, nil
	})
}

func (c *CharacteristicsStep) Initialize(ctx context.Context, id string) (*model.Session, error) {
	return initStep(ctx, c.d, id, model.PhaseCharacteristics, func(w *model.ItemWizardContext) {
		if w.Characteristics == nil {
			w.Characteristics = &model.Characteristics{State: model.StepSelectingMaterial}
		}
	})
}

func (c *CharacteristicsStep) SelectMaterial(ctx context.Context, id string, p model.MaterialPayload) (*model.Session, error) {
	return c.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		ch, err := characteristics(s)
		if err != nil {
			return nil, err
		}
		m := strings.TrimSpace(p.Material)
		if m == "" {
			return fail(&ch.Errors, []string{validation.MsgMaterialRequired})
		}
		ch.Material = m
		ch.State = model.StepEnteringDetails
		return ok(&ch.Errors)
	})
}

func (c *CharacteristicsStep) SetCharacteristics(ctx context.Context, id string, p model.CharacteristicsPayload) (*model.Session, error) {
	return c.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		ch, err := characteristics(s)
		if err != nil {
			return nil, err
		}
		next := *ch
		next.Color = strings.TrimSpace(p.Color)
		next.Filler = strings.TrimSpace(p.Filler)
		next.FillerCompressed = p.FillerCompressed
		next.WearDegree = p.WearDegree
		if next.Material == "" {
			return fail(&ch.Errors, []string{validation.MsgMaterialRequired})
		}
		if errs := validation.Characteristics(&next); errs != nil {
			return fail(&ch.Errors, errs)
		}
		*ch = next
		ch.State = model.StepEnteringDetails
		return ok(&ch.Errors)
	})
}

func (c *CharacteristicsStep) CurrentState(ctx context.Context, id string) (model.StepState, error) {
	ch, err := c.CurrentData(ctx, id)
	if err != nil {
		return "", err
	}
	return ch.State, nil
}

func (c *CharacteristicsStep) CurrentData(ctx context.Context, id string) (*model.Characteristics, error) {
	s, err := c.d.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return characteristics(s)
}

func (c *CharacteristicsStep) Reset(ctx context.Context, id string) (*model.Session, error) {
	return c.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		ch, err := characteristics(s)
		if err != nil {
			return nil, err
		}
		*ch = model.Characteristics{State: model.StepSelectingMaterial}
		return nil, nil
	})
}

func characteristics(s *model.Session) (*model.Characteristics, error) {
	w, err := currentItem(s)
	if err != nil {
		return nil, err
	}
	if w.Characteristics == nil {
		return nil, missing("characteristics")
	}
	return w.Characteristics, nil
}
