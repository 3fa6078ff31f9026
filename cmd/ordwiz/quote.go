// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ManuGH/ordwiz/internal/domain/pricing"
)

var modifierKinds = map[string]pricing.ModifierKind{
	"pct":   pricing.KindPercentage,
	"range": pricing.KindRangePercentage,
	"fixed": pricing.KindFixed,
	"add":   pricing.KindAddition,
}

// parseModifier reads "kind:value" or "kind:valueXqty", e.g. "pct:20", "fixed:500x3".
// Modifiers are applied in the order given.
func parseModifier(raw string, seq int) (pricing.ModifierSelection, error) {
	kindStr, rest, ok := strings.Cut(raw, ":")
	if !ok {
		return pricing.ModifierSelection{}, fmt.Errorf("modifier %q: want kind:value", raw)
	}
	kind, ok := modifierKinds[strings.ToLower(kindStr)]
	if !ok {
		return pricing.ModifierSelection{}, fmt.Errorf("modifier %q: unknown kind %q (pct, range, fixed, add)", raw, kindStr)
	}
	m := pricing.ModifierSelection{
		ID:       fmt.Sprintf("m%d", seq),
		Kind:     kind,
		Sequence: seq,
		Selected: true,
	}
	valStr, qtyStr, hasQty := strings.Cut(strings.ToLower(rest), "x")
	v, err := decimal.NewFromString(valStr)
	if err != nil {
		return pricing.ModifierSelection{}, fmt.Errorf("modifier %q: value: %w", raw, err)
	}
	m.Value = v
	if hasQty {
		q, err := strconv.Atoi(qtyStr)
		if err != nil {
			return pricing.ModifierSelection{}, fmt.Errorf("modifier %q: quantity: %w", raw, err)
		}
		m.Quantity = &q
	}
	return m, nil
}

func newQuoteCmd() *cobra.Command {
	var (
		base        int64
		qty         string
		mods        []string
		urgency     string
		discount    string
		notEligible bool
	)
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a single item and print the breakdown as JSON",
		Example: `  ordwiz quote --base 10000 --qty 2 --modifier pct:20 --urgency HOURS_48 --discount 10
  ordwiz quote --base 4500 --qty 3.5 --modifier fixed:500x2 --not-eligible`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := decimal.NewFromString(qty)
			if err != nil {
				return fmt.Errorf("--qty: %w", err)
			}
			d, err := decimal.NewFromString(discount)
			if err != nil {
				return fmt.Errorf("--discount: %w", err)
			}
			in := pricing.Input{
				BaseUnitPrice:    pricing.Money(base),
				Quantity:         q,
				Urgency:          pricing.Urgency(strings.ToUpper(urgency)),
				DiscountPercent:  d,
				DiscountEligible: !notEligible,
			}
			for i, raw := range mods {
				m, err := parseModifier(raw, i+1)
				if err != nil {
					return err
				}
				in.Modifiers = append(in.Modifiers, m)
			}
			br, err := pricing.Compute(in)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(br)
		},
	}
	f := cmd.Flags()
	f.Int64Var(&base, "base", 0, "base unit price in minor units")
	f.StringVar(&qty, "qty", "1", "quantity (pieces or kilograms)")
	f.StringArrayVar(&mods, "modifier", nil, "modifier as kind:value[xqty], repeatable")
	f.StringVar(&urgency, "urgency", string(pricing.UrgencyStandard), "STANDARD, HOURS_48 or HOURS_24")
	f.StringVar(&discount, "discount", "0", "discount percent")
	f.BoolVar(&notEligible, "not-eligible", false, "the item's category is excluded from discounts")
	_ = cmd.MarkFlagRequired("base")
	return cmd
}
