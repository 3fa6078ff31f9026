// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package workflow

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ManuGH/ordwiz/internal/domain/pricing"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/model"
)

// ItemInput builds the pricing input of w under the order-level urgency and discount.
func ItemInput(w *model.ItemWizardContext, urgency pricing.Urgency, discount decimal.Decimal) (pricing.Input, error) {
	if w == nil || w.BasicInfo == nil {
		return pricing.Input{}, missing("basic info")
	}
	b := w.BasicInfo
	return pricing.Input{
		BaseUnitPrice:    b.BaseUnitPrice,
		Quantity:         b.Quantity,
		Modifiers:        w.PriceDiscount.Selections(),
		Urgency:          urgency,
		DiscountPercent:  discount,
		DiscountEligible: b.DiscountEligible,
	}, nil
}

func PriceItem(w *model.ItemWizardContext, urgency pricing.Urgency, discount decimal.Decimal) (pricing.PriceBreakdown, error) {
	in, err := ItemInput(w, urgency, discount)
	if err != nil {
		return pricing.PriceBreakdown{}, err
	}
	return pricing.Compute(in)
}

// orderTerms returns the urgency and discount currently chosen for the order.
func orderTerms(s *model.Session) (pricing.Urgency, decimal.Decimal) {
	if s.Execution == nil {
		return pricing.UrgencyStandard, decimal.Zero
	}
	u := s.Execution.Urgency
	if u == "" {
		u = pricing.UrgencyStandard
	}
	p, ok := s.Execution.Discount.Percent()
	if !ok {
		p = decimal.Zero
	}
	return u, p
}

// Quote reprices every finished item of s and aggregates the order totals.
func Quote(s *model.Session) ([]pricing.PriceBreakdown, pricing.OrderTotals, error) {
	if s.Items == nil {
		return nil, pricing.OrderTotals{}, nil
	}
	urgency, discount := orderTerms(s)
	out := make([]pricing.PriceBreakdown, 0, len(s.Items.Items))
	for i := range s.Items.Items {
		bd, err := PriceItem(&s.Items.Items[i].Record, urgency, discount)
		if err != nil {
			return nil, pricing.OrderTotals{}, fmt.Errorf("price item %d: %w", i, err)
		}
		out = append(out, bd)
	}
	totals, err := pricing.Aggregate(out)
	if err != nil {
		return nil, pricing.OrderTotals{}, err
	}
	return out, totals, nil
}
