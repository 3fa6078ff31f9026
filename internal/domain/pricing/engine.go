// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package pricing computes deterministic item and order prices in integer minor units.
//
// Every intermediate amount is rounded half-up to a whole minor unit at the
// point it is produced, so totals are reproducible across implementations.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// ErrInvalidInput is returned for non-positive quantities or malformed modifiers.
var ErrInvalidInput = errors.New("pricing: invalid input")

var hundred = decimal.NewFromInt(100)

// Compute prices a single item. It performs no I/O and is referentially transparent.
func Compute(in Input) (PriceBreakdown, error) {
	if err := validate(in); err != nil {
		return PriceBreakdown{}, err
	}

	factor, _ := in.Urgency.Factor()
	urgency := in.Urgency
	if urgency == "" {
		urgency = UrgencyStandard
	}

	out := PriceBreakdown{
		BaseUnitPrice:    in.BaseUnitPrice,
		Quantity:         in.Quantity,
		Modifiers:        []ModifierImpact{},
		Urgency:          urgency,
		UrgencyFactor:    factor,
		DiscountPercent:  in.DiscountPercent,
		DiscountEligible: in.DiscountEligible,
	}

	var c calc

	// 1. base total
	out.BaseTotal = c.money("base total", in.BaseUnitPrice.Decimal().Mul(in.Quantity))

	// 2. modifiers in application order
	running := out.BaseTotal
	for _, m := range ordered(in.Modifiers) {
		var impact Money
		value := m.EffectiveValue()
		qty := m.EffectiveQuantity()
		if m.Kind.IsPercentage() {
			impact = c.money("modifier "+m.ID, running.Decimal().Mul(value).Div(hundred))
		} else {
			impact = c.money("modifier "+m.ID, value.Mul(decimal.NewFromInt(int64(qty))))
		}
		running = c.add("running subtotal", running, impact)
		out.Modifiers = append(out.Modifiers, ModifierImpact{
			ModifierID:      m.ID,
			Kind:            m.Kind,
			AppliedValue:    value,
			Quantity:        qty,
			Impact:          impact,
			RunningSubtotal: running,
		})
	}
	out.SubtotalAfterModifiers = running

	// 3. expedite
	out.UrgencyAmount = c.money("urgency amount", running.Decimal().Mul(factor))
	out.SubtotalAfterUrgency = c.add("subtotal after urgency", out.SubtotalAfterModifiers, out.UrgencyAmount)

	// 4. discount
	if in.DiscountEligible {
		out.DiscountAmount = c.money("discount amount", out.SubtotalAfterUrgency.Decimal().Mul(in.DiscountPercent).Div(hundred))
	}
	out.FinalTotalPrice = out.SubtotalAfterUrgency - out.DiscountAmount

	// 5. unit price
	out.FinalUnitPrice = c.money("final unit price", out.FinalTotalPrice.Decimal().Div(in.Quantity))

	if c.err != nil {
		return PriceBreakdown{}, c.err
	}
	return out, nil
}

// Aggregate sums item breakdowns into order totals. It never re-derives item numbers.
func Aggregate(items []PriceBreakdown) (OrderTotals, error) {
	var (
		t OrderTotals
		c calc
	)
	for _, b := range items {
		t.ItemCount++
		t.ItemsSubtotal = c.add("items subtotal", t.ItemsSubtotal, b.SubtotalAfterModifiers)
		t.UrgencyAmount = c.add("urgency amount", t.UrgencyAmount, b.UrgencyAmount)
		t.DiscountAmount = c.add("discount amount", t.DiscountAmount, b.DiscountAmount)
		t.TotalAmount = c.add("total amount", t.TotalAmount, b.FinalTotalPrice)
	}
	if c.err != nil {
		return OrderTotals{}, c.err
	}
	return t, nil
}

func validate(in Input) error {
	if !in.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be > 0, got %s", ErrInvalidInput, in.Quantity)
	}
	if in.BaseUnitPrice < 0 {
		return fmt.Errorf("%w: base unit price must not be negative", ErrInvalidInput)
	}
	if _, ok := in.Urgency.Factor(); !ok {
		return fmt.Errorf("%w: unknown urgency %q", ErrInvalidInput, in.Urgency)
	}
	if in.DiscountPercent.IsNegative() || in.DiscountPercent.GreaterThan(hundred) {
		return fmt.Errorf("%w: discount percent %s outside [0,100]", ErrInvalidInput, in.DiscountPercent)
	}
	for i, m := range in.Modifiers {
		if !m.Selected {
			continue
		}
		if !m.Kind.Valid() {
			return fmt.Errorf("%w: modifier[%d] %s: unknown kind %q", ErrInvalidInput, i, m.ID, m.Kind)
		}
		if m.EffectiveValue().IsNegative() {
			return fmt.Errorf("%w: modifier[%d] %s: negative value", ErrInvalidInput, i, m.ID)
		}
		if m.EffectiveQuantity() < 1 {
			return fmt.Errorf("%w: modifier[%d] %s: quantity must be >= 1", ErrInvalidInput, i, m.ID)
		}
	}
	return nil
}

// ordered returns the selected modifiers sorted by their catalog sequence.
// The sort is stable, so equal sequences keep caller order.
func ordered(mods []ModifierSelection) []ModifierSelection {
	out := make([]ModifierSelection, 0, len(mods))
	for _, m := range mods {
		if m.Selected {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

var (
	minMoney = decimal.NewFromInt(math.MinInt64)
	maxMoney = decimal.NewFromInt(math.MaxInt64)
)

// calc converts decimal amounts to Money and keeps the first overflow.
type calc struct {
	err error
}

// money rounds d to whole minor units, halves away from zero.
func (c *calc) money(what string, d decimal.Decimal) Money {
	if c.err != nil {
		return 0
	}
	r := d.Round(0)
	if r.LessThan(minMoney) || r.GreaterThan(maxMoney) {
		c.err = fmt.Errorf("%w: %s %s exceeds the money range", ErrInvalidInput, what, r)
		return 0
	}
	return Money(r.IntPart())
}

func (c *calc) add(what string, a, b Money) Money {
	return c.money(what, a.Decimal().Add(b.Decimal()))
}

// Decimal returns m as a decimal amount of minor units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(m))
}
