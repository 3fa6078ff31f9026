// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package workflow

import (
	"context"
	"slices"
	"strings"

	"github.com/ManuGH/ordwiz/internal/domain/wizard/model"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/validation"
)

// StainsDefectsStep is item substep 3.
type StainsDefectsStep struct{ d *Deps }

func (st *StainsDefectsStep) Initialize(ctx context.Context, id string) (*model.Session, error) {
	return initStep(ctx, st.d, id, model.PhaseStainsDefects, func(w *model.ItemWizardContext) {
		if w.StainsDefects == nil {
			w.StainsDefects = &model.StainsDefects{State: model.StepSelectingStains}
		}
	})
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.ToUpper(strings.TrimSpace(v))
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func (st *StainsDefectsStep) SelectStains(ctx context.Context, id string, p model.StainsPayload) (*model.Session, error) {
	return st.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		sd, err := stainsDefects(s)
		if err != nil {
			return nil, err
		}
		next := *sd
		next.Stains = normalizeList(p.Stains)
		next.OtherStain = strings.TrimSpace(p.OtherStain)
		if !slices.Contains(next.Stains, model.StainOther) {
			next.OtherStain = ""
		}
		if errs := validation.StainsDefects(&next); errs != nil {
			return fail(&sd.Errors, errs)
		}
		*sd = next
		sd.State = model.StepEnteringNotes
		return ok(&sd.Errors)
	})
}

func (st *StainsDefectsStep) SetDefects(ctx context.Context, id string, p model.DefectsPayload) (*model.Session, error) {
	return st.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		sd, err := stainsDefects(s)
		if err != nil {
			return nil, err
		}
		next := *sd
		next.Defects = normalizeList(p.Defects)
		next.NoGuarantee = p.NoGuarantee
		next.NoGuaranteeReason = strings.TrimSpace(p.NoGuaranteeReason)
		next.Notes = strings.TrimSpace(p.Notes)
		if errs := validation.StainsDefects(&next); errs != nil {
			return fail(&sd.Errors, errs)
		}
		*sd = next
		sd.State = model.StepEnteringNotes
		return ok(&sd.Errors)
	})
}

func (st *StainsDefectsStep) CurrentState(ctx context.Context, id string) (model.StepState, error) {
	sd, err := st.CurrentData(ctx, id)
	if err != nil {
		return "", err
	}
	return sd.State, nil
}

func (st *StainsDefectsStep) CurrentData(ctx context.Context, id string) (*model.StainsDefects, error) {
	s, err := st.d.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return stainsDefects(s)
}

func (st *StainsDefectsStep) Reset(ctx context.Context, id string) (*model.Session, error) {
	return st.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		sd, err := stainsDefects(s)
		if err != nil {
			return nil, err
		}
		*sd = model.StainsDefects{State: model.StepSelectingStains}
		return nil, nil
	})
}

func stainsDefects(s *model.Session) (*model.StainsDefects, error) {
	w, err := currentItem(s)
	if err != nil {
		return nil, err
	}
	if w.StainsDefects == nil {
		return nil, missing("stains and defects")
	}
	return w.StainsDefects, nil
}
