// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package workflow

import (
	"context"
	"fmt"
	"slices"

	"github.com/ManuGH/ordwiz/internal/domain/wizard/model"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/validation"
)

// ItemManagement owns the item list and the lifecycle of the item in progress.
// The nested phase itself is committed by the coordinator.
type ItemManagement struct{ d *Deps }

func (m *ItemManagement) Initialize(ctx context.Context, id string) (*model.Session, error) {
	return m.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		if s.Items == nil {
			s.Items = &model.ItemManagementContext{
				Phase:        model.PhaseIdle,
				Items:        []model.OrderItem{},
				EditingIndex: -1,
			}
		}
		return nil, nil
	})
}

func idle(im *model.ItemManagementContext) bool {
	return im.Phase == model.PhaseIdle || im.Phase == ""
}

// StartItem opens a fresh item record.
func (m *ItemManagement) StartItem(ctx context.Context, id string) (*model.Session, error) {
	return m.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		im := s.Items
		if im == nil {
			return nil, missing("item management")
		}
		if !idle(im) || im.Current != nil {
			return fail(&im.Errors, []string{"finish or cancel the item in progress first"})
		}
		im.Current = &model.ItemWizardContext{ItemID: m.d.newID()}
		im.EditingIndex = -1
		return ok(&im.Errors)
	})
}

// EditItem loads a finished item back into the wizard. Its substeps stay
// COMPLETED so the operator may resubmit them unchanged.
func (m *ItemManagement) EditItem(ctx context.Context, id string, p model.ItemIndexPayload) (*model.Session, error) {
	return m.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		im := s.Items
		if im == nil {
			return nil, missing("item management")
		}
		if !idle(im) || im.Current != nil {
			return fail(&im.Errors, []string{"finish or cancel the item in progress first"})
		}
		if p.Index < 0 || p.Index >= len(im.Items) {
			return fail(&im.Errors, []string{fmt.Sprintf("no item at index %d", p.Index)})
		}
		rec := im.Items[p.Index].Record
		clone, err := cloneItem(&rec)
		if err != nil {
			return nil, err
		}
		im.Current = clone
		im.EditingIndex = p.Index
		return ok(&im.Errors)
	})
}

func (m *ItemManagement) DeleteItem(ctx context.Context, id string, p model.ItemIndexPayload) (*model.Session, error) {
	return m.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		im := s.Items
		if im == nil {
			return nil, missing("item management")
		}
		if !idle(im) {
			return fail(&im.Errors, []string{"finish or cancel the item in progress first"})
		}
		if p.Index < 0 || p.Index >= len(im.Items) {
			return fail(&im.Errors, []string{fmt.Sprintf("no item at index %d", p.Index)})
		}
		im.Items = slices.Delete(im.Items, p.Index, p.Index+1)
		return ok(&im.Errors)
	})
}

// CancelItem drops the item in progress. An edited item keeps its stored version.
func (m *ItemManagement) CancelItem(ctx context.Context, id string) (*model.Session, error) {
	return m.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		if s.Items == nil {
			return nil, missing("item management")
		}
		s.Items.Current = nil
		s.Items.EditingIndex = -1
		return ok(&s.Items.Errors)
	})
}

// stepSlots exposes the state and error slots of one substep record.
func stepSlots(w *model.ItemWizardContext, phase model.ItemPhase) (*model.StepState, *[]string, bool) {
	switch phase {
	case model.PhaseBasicInfo:
		if w.BasicInfo != nil {
			return &w.BasicInfo.State, &w.BasicInfo.Errors, true
		}
	case model.PhaseCharacteristics:
		if w.Characteristics != nil {
			return &w.Characteristics.State, &w.Characteristics.Errors, true
		}
	case model.PhaseStainsDefects:
		if w.StainsDefects != nil {
			return &w.StainsDefects.State, &w.StainsDefects.Errors, true
		}
	case model.PhasePriceDiscount:
		if w.PriceDiscount != nil {
			return &w.PriceDiscount.State, &w.PriceDiscount.Errors, true
		}
	case model.PhasePhotoDocumentation:
		if w.Photos != nil {
			return &w.Photos.State, &w.Photos.Errors, true
		}
	}
	return nil, nil, false
}

// CheckSubstep is the pure predicate behind SubmitSubstep.
func (m *ItemManagement) CheckSubstep(s *model.Session, phase model.ItemPhase) []string {
	w, err := currentItem(s)
	if err != nil {
		return []string{"no item in progress"}
	}
	if errs := validation.SubstepUnlocked(w, phase); errs != nil {
		return errs
	}
	return validation.Substep(w, phase)
}

// SubmitSubstep validates the record of phase and moves it to COMPLETED or
// VALIDATION_ERROR.
func (m *ItemManagement) SubmitSubstep(ctx context.Context, id string, phase model.ItemPhase) (*model.Session, error) {
	return m.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		w, err := currentItem(s)
		if err != nil {
			return nil, err
		}
		state, errSlot, found := stepSlots(w, phase)
		if !found {
			return nil, missing(string(phase))
		}
		*state = model.StepValidating
		if errs := m.CheckSubstep(s, phase); errs != nil {
			*state = model.StepValidationError
			return fail(errSlot, errs)
		}
		*state = model.StepCompleted
		return ok(errSlot)
	})
}

// ItemReady reports whether every substep of the current item is COMPLETED.
func (m *ItemManagement) ItemReady(s *model.Session) bool {
	w, err := currentItem(s)
	if err != nil {
		return false
	}
	for _, p := range model.Substeps {
		if w.StepState(p) != model.StepCompleted {
			return false
		}
	}
	return true
}

// FinalizeItem prices the current item and appends it to the order, or
// replaces the original when the item was opened for editing.
func (m *ItemManagement) FinalizeItem(ctx context.Context, id string) (*model.Session, error) {
	return m.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		im := s.Items
		w, err := currentItem(s)
		if err != nil {
			return nil, err
		}
		if !m.ItemReady(s) {
			return fail(&im.Errors, []string{"every substep must be completed"})
		}
		urgency, discount := orderTerms(s)
		bd, err := PriceItem(w, urgency, discount)
		if err != nil {
			return nil, err
		}
		item := model.OrderItem{ID: w.ItemID, Record: *w, Breakdown: bd}
		if im.EditingIndex >= 0 && im.EditingIndex < len(im.Items) {
			im.Items[im.EditingIndex] = item
		} else {
			im.Items = append(im.Items, item)
		}
		im.Current = nil
		im.EditingIndex = -1
		return ok(&im.Errors)
	})
}

func (m *ItemManagement) Check(s *model.Session) []string {
	return validation.ItemsComplete(s.Items)
}

func (m *ItemManagement) Complete(ctx context.Context, id string) (*model.Session, error) {
	return m.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		if s.Items == nil {
			return nil, missing("item management")
		}
		if errs := m.Check(s); errs != nil {
			return fail(&s.Items.Errors, errs)
		}
		now := m.d.now()
		s.Vars.ItemsCompletedAt = &now
		return ok(&s.Items.Errors)
	})
}

func (m *ItemManagement) CurrentState(ctx context.Context, id string) (model.ItemPhase, error) {
	im, err := m.CurrentData(ctx, id)
	if err != nil {
		return "", err
	}
	if im.Phase == "" {
		return model.PhaseIdle, nil
	}
	return im.Phase, nil
}

func (m *ItemManagement) CurrentData(ctx context.Context, id string) (*model.ItemManagementContext, error) {
	s, err := m.d.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Items == nil {
		return nil, missing("item management")
	}
	return s.Items, nil
}

// Reset clears the item list and any item in progress.
func (m *ItemManagement) Reset(ctx context.Context, id string) (*model.Session, error) {
	return m.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		s.Items = &model.ItemManagementContext{Phase: model.PhaseIdle, Items: []model.OrderItem{}, EditingIndex: -1}
		s.Vars.ItemsCompletedAt = nil
		return nil, nil
	})
}
