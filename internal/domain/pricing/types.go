// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pricing

import (
	"github.com/shopspring/decimal"
)

// Money is an amount in minor currency units (kopecks, cents).
type Money int64

// ModifierKind selects how a modifier changes the running subtotal.
type ModifierKind string

const (
	KindPercentage      ModifierKind = "PERCENTAGE"
	KindRangePercentage ModifierKind = "RANGE_PERCENTAGE"
	KindFixed           ModifierKind = "FIXED"
	KindAddition        ModifierKind = "ADDITION"
)

// IsPercentage reports whether the modifier is applied as a percentage of the running subtotal.
func (k ModifierKind) IsPercentage() bool {
	return k == KindPercentage || k == KindRangePercentage
}

// Valid reports whether k is a known kind.
func (k ModifierKind) Valid() bool {
	switch k {
	case KindPercentage, KindRangePercentage, KindFixed, KindAddition:
		return true
	}
	return false
}

// ModifierCategory groups modifiers by the material family they target.
type ModifierCategory string

const (
	CategoryGeneral ModifierCategory = "GENERAL"
	CategoryTextile ModifierCategory = "TEXTILE"
	CategoryLeather ModifierCategory = "LEATHER"
)

// Urgency is the execution speed requested for the whole order.
type Urgency string

const (
	UrgencyStandard Urgency = "STANDARD"
	Urgency48h      Urgency = "HOURS_48"
	Urgency24h      Urgency = "HOURS_24"
)

var urgencyFactors = map[Urgency]decimal.Decimal{
	UrgencyStandard: decimal.Zero,
	Urgency48h:      decimal.RequireFromString("0.5"),
	Urgency24h:      decimal.NewFromInt(1),
}

// Factor returns the surcharge multiplier for u. An empty urgency means standard.
func (u Urgency) Factor() (decimal.Decimal, bool) {
	if u == "" {
		return decimal.Zero, true
	}
	f, ok := urgencyFactors[u]
	return f, ok
}

// ModifierSelection is one modifier as chosen for an item.
// Value is a percentage for percentage kinds and an amount in minor units for FIXED/ADDITION.
type ModifierSelection struct {
	ID          string           `json:"id"`
	Kind        ModifierKind     `json:"kind"`
	Category    ModifierCategory `json:"category,omitempty"`
	Sequence    int              `json:"sequence"`
	Value       decimal.Decimal  `json:"value"`
	ChosenValue *decimal.Decimal `json:"chosenValue,omitempty"`
	Quantity    *int             `json:"quantity,omitempty"`
	Selected    bool             `json:"selected"`
}

// EffectiveValue is the user-chosen value for range modifiers, otherwise the declared value.
func (m ModifierSelection) EffectiveValue() decimal.Decimal {
	if m.ChosenValue != nil {
		return *m.ChosenValue
	}
	return m.Value
}

// EffectiveQuantity is the explicit quantity of a fixed modifier, or 1.
func (m ModifierSelection) EffectiveQuantity() int {
	if m.Quantity != nil {
		return *m.Quantity
	}
	return 1
}

// Input holds everything needed to price one item.
type Input struct {
	BaseUnitPrice    Money
	Quantity         decimal.Decimal
	Modifiers        []ModifierSelection
	Urgency          Urgency
	DiscountPercent  decimal.Decimal
	DiscountEligible bool
}

// ModifierImpact records what a single modifier contributed.
type ModifierImpact struct {
	ModifierID      string          `json:"modifierId"`
	Kind            ModifierKind    `json:"kind"`
	AppliedValue    decimal.Decimal `json:"appliedValue"`
	Quantity        int             `json:"quantity"`
	Impact          Money           `json:"impact"`
	RunningSubtotal Money           `json:"runningSubtotal"`
}

// PriceBreakdown is the fully derived price of one item.
type PriceBreakdown struct {
	BaseUnitPrice          Money            `json:"baseUnitPrice"`
	Quantity               decimal.Decimal  `json:"quantity"`
	BaseTotal              Money            `json:"baseTotal"`
	Modifiers              []ModifierImpact `json:"modifiers"`
	SubtotalAfterModifiers Money            `json:"subtotalAfterModifiers"`
	Urgency                Urgency          `json:"urgency"`
	UrgencyFactor          decimal.Decimal  `json:"urgencyFactor"`
	UrgencyAmount          Money            `json:"urgencyAmount"`
	SubtotalAfterUrgency   Money            `json:"subtotalAfterUrgency"`
	DiscountPercent        decimal.Decimal  `json:"discountPercent"`
	DiscountEligible       bool             `json:"discountEligible"`
	DiscountAmount         Money            `json:"discountAmount"`
	FinalUnitPrice         Money            `json:"finalUnitPrice"`
	FinalTotalPrice        Money            `json:"finalTotalPrice"`
}

// OrderTotals is the sum of independently computed item breakdowns.
type OrderTotals struct {
	ItemCount      int   `json:"itemCount"`
	ItemsSubtotal  Money `json:"itemsSubtotal"`
	UrgencyAmount  Money `json:"urgencyAmount"`
	DiscountAmount Money `json:"discountAmount"`
	TotalAmount    Money `json:"totalAmount"`
}
