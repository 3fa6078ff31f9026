// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package workflow

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/ManuGH/ordwiz/internal/domain/wizard/model"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/ports"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/validation"
)

// BasicInfoStep is item substep 1: category, catalog item and quantity.
type BasicInfoStep struct{ d *Deps }

func (b *BasicInfoStep) Initialize(ctx context.Context, id string) (*model.Session, error) {
	return b.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		w, err := currentItem(s)
		if err != nil {
			return nil, err
		}
		if w.BasicInfo == nil {
			w.BasicInfo = &model.BasicInfo{State: model.StepSelectingServiceCategory}
		}
		return nil, nil
	})
}

func (b *BasicInfoStep) SelectServiceCategory(ctx context.Context, id string, p model.SelectCategoryPayload) (*model.Session, error) {
	cats, err := b.d.Catalog.ListServiceCategories(ctx)
	if err != nil {
		return nil, err
	}
	var (
		cat   ports.Category
		found bool
	)
	for _, c := range cats {
		if c.ID == p.CategoryID {
			cat, found = c, true
			break
		}
	}
	return b.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		bi, err := basicInfo(s)
		if err != nil {
			return nil, err
		}
		if !found {
			return fail(&bi.Errors, []string{"unknown service category"})
		}
		if bi.CategoryID != cat.ID {
			w := s.Items.Current
			*bi = model.BasicInfo{}
			// Modifiers are category specific.
			w.PriceDiscount = nil
			// Later substeps keep their data but must be confirmed again.
			if w.Characteristics != nil && w.Characteristics.State == model.StepCompleted {
				w.Characteristics.State = model.StepSelectingMaterial
			}
			if w.StainsDefects != nil && w.StainsDefects.State == model.StepCompleted {
				w.StainsDefects.State = model.StepSelectingStains
			}
		}
		bi.CategoryID = cat.ID
		bi.CategoryName = cat.Name
		bi.DiscountEligible = cat.DiscountEligible
		bi.State = model.StepSelectingItemName
		return ok(&bi.Errors)
	})
}

func (b *BasicInfoStep) SelectCatalogItem(ctx context.Context, id string, p model.SelectItemPayload) (*model.Session, error) {
	item, err := b.d.Catalog.GetItem(ctx, p.ItemID)
	notFound := errors.Is(err, ports.ErrNotFound)
	if err != nil && !notFound {
		return nil, err
	}
	return b.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		bi, err := basicInfo(s)
		if err != nil {
			return nil, err
		}
		if notFound {
			return fail(&bi.Errors, []string{"unknown catalog item"})
		}
		if errs := validation.ItemMatchesCategory(bi, item); errs != nil {
			return fail(&bi.Errors, errs)
		}
		if bi.ItemID != item.ID {
			bi.Quantity = decimal.Zero
		}
		bi.ItemID = item.ID
		bi.ItemName = item.Name
		bi.Unit = item.Unit
		bi.BaseUnitPrice = item.BasePrice
		bi.State = model.StepEnteringQuantity
		return ok(&bi.Errors)
	})
}

func (b *BasicInfoStep) EnterQuantity(ctx context.Context, id string, p model.QuantityPayload) (*model.Session, error) {
	return b.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		bi, err := basicInfo(s)
		if err != nil {
			return nil, err
		}
		if errs := validation.ReadyForQuantity(bi); errs != nil {
			return fail(&bi.Errors, errs)
		}
		if errs := validation.Quantity(bi.Unit, p.Quantity); errs != nil {
			return fail(&bi.Errors, errs)
		}
		bi.Quantity = p.Quantity
		bi.State = model.StepEnteringQuantity
		return ok(&bi.Errors)
	})
}

func (b *BasicInfoStep) CurrentState(ctx context.Context, id string) (model.StepState, error) {
	bi, err := b.CurrentData(ctx, id)
	if err != nil {
		return "", err
	}
	return bi.State, nil
}

func (b *BasicInfoStep) CurrentData(ctx context.Context, id string) (*model.BasicInfo, error) {
	s, err := b.d.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return basicInfo(s)
}

func (b *BasicInfoStep) Reset(ctx context.Context, id string) (*model.Session, error) {
	return b.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		w, err := currentItem(s)
		if err != nil {
			return nil, err
		}
		w.BasicInfo = &model.BasicInfo{State: model.StepSelectingServiceCategory}
		w.PriceDiscount = nil
		return nil, nil
	})
}

func basicInfo(s *model.Session) (*model.BasicInfo, error) {
	w, err := currentItem(s)
	if err != nil {
		return nil, err
	}
	if w.BasicInfo == nil {
		return nil, missing("basic info")
	}
	return w.BasicInfo, nil
}
