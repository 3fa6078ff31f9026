// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pricing

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func qty(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func intPtr(v int) *int { return &v }

func pct(id string, seq int, value string) ModifierSelection {
	return ModifierSelection{ID: id, Kind: KindPercentage, Sequence: seq, Value: qty(value), Selected: true}
}

func TestCompute_PercentageUrgencyDiscount(t *testing.T) {
	got, err := Compute(Input{
		BaseUnitPrice:    10000,
		Quantity:         qty("2"),
		Modifiers:        []ModifierSelection{pct("silk", 1, "20")},
		Urgency:          Urgency48h,
		DiscountPercent:  qty("10"),
		DiscountEligible: true,
	})
	require.NoError(t, err)

	want := PriceBreakdown{
		BaseUnitPrice: 10000,
		Quantity:      qty("2"),
		BaseTotal:     20000,
		Modifiers: []ModifierImpact{
			{ModifierID: "silk", Kind: KindPercentage, AppliedValue: qty("20"), Quantity: 1, Impact: 4000, RunningSubtotal: 24000},
		},
		SubtotalAfterModifiers: 24000,
		Urgency:                Urgency48h,
		UrgencyFactor:          qty("0.5"),
		UrgencyAmount:          12000,
		SubtotalAfterUrgency:   36000,
		DiscountPercent:        qty("10"),
		DiscountEligible:       true,
		DiscountAmount:         3600,
		FinalUnitPrice:         16200,
		FinalTotalPrice:        32400,
	}
	if diff := cmp.Diff(want, got, decimalEqual); diff != "" {
		t.Fatalf("breakdown mismatch (-want +got):\n%s", diff)
	}
}

func TestCompute_ZeroQuantityIsInvalid(t *testing.T) {
	_, err := Compute(Input{BaseUnitPrice: 10000, Quantity: decimal.Zero})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestCompute_InvalidInputs(t *testing.T) {
	cases := map[string]Input{
		"negative quantity": {BaseUnitPrice: 100, Quantity: qty("-1")},
		"negative modifier": {BaseUnitPrice: 100, Quantity: qty("1"), Modifiers: []ModifierSelection{pct("m", 1, "-20")}},
		"unknown kind": {BaseUnitPrice: 100, Quantity: qty("1"), Modifiers: []ModifierSelection{
			{ID: "m", Kind: "BOGUS", Value: qty("1"), Selected: true},
		}},
		"zero fixed quantity": {BaseUnitPrice: 100, Quantity: qty("1"), Modifiers: []ModifierSelection{
			{ID: "m", Kind: KindFixed, Value: qty("500"), Quantity: intPtr(0), Selected: true},
		}},
		"discount above 100": {BaseUnitPrice: 100, Quantity: qty("1"), DiscountPercent: qty("101")},
		"unknown urgency":    {BaseUnitPrice: 100, Quantity: qty("1"), Urgency: "YESTERDAY"},
		"negative base":      {BaseUnitPrice: -1, Quantity: qty("1")},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Compute(in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestCompute_UnselectedNegativeModifierIgnored(t *testing.T) {
	m := pct("m", 1, "-20")
	m.Selected = false
	got, err := Compute(Input{BaseUnitPrice: 1000, Quantity: qty("1"), Modifiers: []ModifierSelection{m}})
	require.NoError(t, err)
	assert.Equal(t, Money(1000), got.FinalTotalPrice)
	assert.Empty(t, got.Modifiers)
}

func TestCompute_Deterministic(t *testing.T) {
	in := Input{
		BaseUnitPrice: 12345,
		Quantity:      qty("3"),
		Modifiers: []ModifierSelection{
			pct("a", 1, "15"),
			{ID: "b", Kind: KindFixed, Sequence: 2, Value: qty("250"), Quantity: intPtr(2), Selected: true},
			{ID: "c", Kind: KindRangePercentage, Sequence: 3, Value: qty("30"), ChosenValue: ptrDec(qty("42.5")), Selected: true},
		},
		Urgency:          Urgency24h,
		DiscountPercent:  qty("5"),
		DiscountEligible: true,
	}
	first, err := Compute(in)
	require.NoError(t, err)
	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		again, err := Compute(in)
		require.NoError(t, err)
		b, err := json.Marshal(again)
		require.NoError(t, err)
		require.Equal(t, string(firstJSON), string(b))
	}
}

func ptrDec(d decimal.Decimal) *decimal.Decimal { return &d }

func TestCompute_ModifiersAppliedInSequenceOrder(t *testing.T) {
	fixed := ModifierSelection{ID: "fixed", Kind: KindFixed, Sequence: 1, Value: qty("1000"), Selected: true}
	percent := pct("percent", 2, "50")

	// Caller order must not matter; sequence decides.
	a, err := Compute(Input{BaseUnitPrice: 1000, Quantity: qty("1"), Modifiers: []ModifierSelection{percent, fixed}})
	require.NoError(t, err)
	b, err := Compute(Input{BaseUnitPrice: 1000, Quantity: qty("1"), Modifiers: []ModifierSelection{fixed, percent}})
	require.NoError(t, err)

	assert.Equal(t, Money(3000), a.FinalTotalPrice) // (1000 + 1000) * 1.5
	assert.Equal(t, a.FinalTotalPrice, b.FinalTotalPrice)
	require.Len(t, a.Modifiers, 2)
	assert.Equal(t, "fixed", a.Modifiers[0].ModifierID)
	assert.Equal(t, Money(2000), a.Modifiers[0].RunningSubtotal)
	assert.Equal(t, Money(3000), a.Modifiers[1].RunningSubtotal)
}

func TestCompute_FixedUsesExplicitQuantity(t *testing.T) {
	got, err := Compute(Input{
		BaseUnitPrice: 5000,
		Quantity:      qty("1"),
		Modifiers: []ModifierSelection{
			{ID: "buttons", Kind: KindAddition, Sequence: 1, Value: qty("150"), Quantity: intPtr(4), Selected: true},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, Money(600), got.Modifiers[0].Impact)
	assert.Equal(t, Money(5600), got.FinalTotalPrice)
}

func TestCompute_RoundsHalfUpAtEachStep(t *testing.T) {
	// 4500 per kg * 1.235 kg = 5557.5 -> 5558
	got, err := Compute(Input{
		BaseUnitPrice: 4500,
		Quantity:      qty("1.235"),
		Modifiers:     []ModifierSelection{pct("p", 1, "10")}, // 555.8 -> 556
		Urgency:       Urgency48h,                             // 6114 * 0.5 = 3057
	})
	require.NoError(t, err)
	assert.Equal(t, Money(5558), got.BaseTotal)
	assert.Equal(t, Money(556), got.Modifiers[0].Impact)
	assert.Equal(t, Money(6114), got.SubtotalAfterModifiers)
	assert.Equal(t, Money(3057), got.UrgencyAmount)
	assert.Equal(t, Money(9171), got.FinalTotalPrice)
	// 9171 / 1.235 = 7425.91... -> 7426
	assert.Equal(t, Money(7426), got.FinalUnitPrice)
}

func TestCompute_DiscountSkippedWhenIneligible(t *testing.T) {
	got, err := Compute(Input{
		BaseUnitPrice:    10000,
		Quantity:         qty("1"),
		DiscountPercent:  qty("10"),
		DiscountEligible: false,
	})
	require.NoError(t, err)
	assert.Equal(t, Money(0), got.DiscountAmount)
	assert.Equal(t, Money(10000), got.FinalTotalPrice)
}

func TestAggregate_SumEqualsItemTotals(t *testing.T) {
	inputs := []Input{
		{BaseUnitPrice: 10000, Quantity: qty("2"), Modifiers: []ModifierSelection{pct("a", 1, "20")}, Urgency: Urgency48h, DiscountPercent: qty("10"), DiscountEligible: true},
		{BaseUnitPrice: 3333, Quantity: qty("3"), Urgency: Urgency48h, DiscountPercent: qty("10"), DiscountEligible: false},
		{BaseUnitPrice: 777, Quantity: qty("1.5"), Modifiers: []ModifierSelection{pct("b", 1, "33")}, Urgency: Urgency48h, DiscountPercent: qty("10"), DiscountEligible: true},
	}
	var items []PriceBreakdown
	var sum Money
	var discounts Money
	for _, in := range inputs {
		b, err := Compute(in)
		require.NoError(t, err)
		items = append(items, b)
		sum += b.FinalTotalPrice
		discounts += b.DiscountAmount
	}

	totals, err := Aggregate(items)
	require.NoError(t, err)
	assert.Equal(t, 3, totals.ItemCount)
	assert.Equal(t, sum, totals.TotalAmount)
	assert.Equal(t, discounts, totals.DiscountAmount)
	assert.Equal(t, totals.ItemsSubtotal+totals.UrgencyAmount-totals.DiscountAmount, totals.TotalAmount)
}

func TestCompute_RejectsMoneyOverflow(t *testing.T) {
	cases := map[string]Input{
		"base total": {BaseUnitPrice: math.MaxInt64 / 2, Quantity: qty("3")},
		"fixed modifier": {BaseUnitPrice: 1, Quantity: qty("1"), Modifiers: []ModifierSelection{
			{ID: "m", Kind: KindFixed, Value: qty("1e19"), Selected: true},
		}},
		"running subtotal": {BaseUnitPrice: math.MaxInt64 - 10, Quantity: qty("1"), Modifiers: []ModifierSelection{
			{ID: "m", Kind: KindAddition, Value: qty("100"), Selected: true},
		}},
		"subtotal after urgency": {BaseUnitPrice: math.MaxInt64/2 + 1, Quantity: qty("1"), Urgency: Urgency24h},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := Compute(in)
			require.ErrorIs(t, err, ErrInvalidInput)
			assert.Equal(t, PriceBreakdown{}, got)
		})
	}
}

func TestCompute_LargestRepresentableTotal(t *testing.T) {
	got, err := Compute(Input{BaseUnitPrice: math.MaxInt64, Quantity: qty("1")})
	require.NoError(t, err)
	assert.Equal(t, Money(math.MaxInt64), got.FinalTotalPrice)
	assert.Equal(t, Money(math.MaxInt64), got.FinalUnitPrice)
}

func TestAggregate_RejectsOverflow(t *testing.T) {
	big := PriceBreakdown{SubtotalAfterModifiers: math.MaxInt64, FinalTotalPrice: math.MaxInt64}
	_, err := Aggregate([]PriceBreakdown{big, big})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUrgency_Factor(t *testing.T) {
	for u, want := range map[Urgency]string{"": "0", UrgencyStandard: "0", Urgency48h: "0.5", Urgency24h: "1"} {
		f, ok := u.Factor()
		require.True(t, ok, u)
		assert.True(t, f.Equal(qty(want)), "urgency %s: got %s", u, f)
	}
}
