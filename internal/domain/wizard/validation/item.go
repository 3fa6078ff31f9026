// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package validation holds the wizard's pure validation predicates.
//
// Every predicate consumes only the context fragment it judges and returns the
// list of human-readable problems it found. A nil result means valid. Nothing
// here touches the context store; workflow services apply the verdict.
package validation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ManuGH/ordwiz/internal/domain/pricing"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/model"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/ports"
)

const (
	MaxQuantity      = 1000
	MaxKilogramScale = 3

	MaxPhotos     = 5
	MaxPhotoBytes = 5 << 20
)

// Messages matched by callers and tests.
const (
	MsgCategoryRequired    = "service category must be selected"
	MsgItemRequired        = "catalog item must be selected"
	MsgItemCategory        = "item does not match category"
	MsgQuantityPositive    = "quantity must be greater than zero"
	MsgMaterialRequired    = "material is required"
	MsgColorRequired       = "color is required"
	MsgOtherStainRequired  = "description is required for OTHER stain"
	MsgNoGuaranteeReason   = "reason is required when no guarantee is given"
	MsgSkipReasonRequired  = "reason is required to skip photos"
	MsgPhotosRequired      = "add at least one photo or skip with a reason"
	MsgSubstepNotCompleted = "previous substep is not completed"
)

var (
	// WearDegrees are the accepted wear percentages.
	WearDegrees = []int{10, 30, 50, 75}

	// PhotoMimeTypes are the accepted photo encodings.
	PhotoMimeTypes = []string{"image/jpeg", "image/png", "image/webp"}
)

type collector []string

func (c *collector) add(format string, args ...any) {
	*c = append(*c, fmt.Sprintf(format, args...))
}

func (c collector) result() []string {
	if len(c) == 0 {
		return nil
	}
	return c
}

// CategorySelected checks that a service category is chosen.
func CategorySelected(b *model.BasicInfo) []string {
	if b == nil || strings.TrimSpace(b.CategoryID) == "" {
		return []string{MsgCategoryRequired}
	}
	return nil
}

// ItemMatchesCategory checks that item belongs to the category chosen in b.
func ItemMatchesCategory(b *model.BasicInfo, item ports.CatalogItem) []string {
	if errs := CategorySelected(b); errs != nil {
		return errs
	}
	if item.CategoryID != b.CategoryID {
		return []string{MsgItemCategory}
	}
	return nil
}

// ReadyForQuantity checks that both selections exist before quantity entry.
func ReadyForQuantity(b *model.BasicInfo) []string {
	var errs collector
	if b == nil || b.CategoryID == "" {
		errs.add(MsgCategoryRequired)
	}
	if b == nil || b.ItemID == "" {
		errs.add(MsgItemRequired)
	}
	return errs.result()
}

// Quantity enforces the per-unit quantity rules.
func Quantity(unit model.Unit, q decimal.Decimal) []string {
	var errs collector
	switch {
	case !q.IsPositive():
		errs.add(MsgQuantityPositive)
	case q.GreaterThan(decimal.NewFromInt(MaxQuantity)):
		errs.add("quantity must not exceed %d", MaxQuantity)
	}
	switch unit {
	case model.UnitPiece:
		if !q.Equal(q.Truncate(0)) {
			errs.add("quantity must be a whole number of pieces")
		}
	case model.UnitKilogram:
		if !q.Equal(q.Truncate(MaxKilogramScale)) {
			errs.add("weight allows at most %d decimal places", MaxKilogramScale)
		}
	default:
		errs.add("unknown unit %q", unit)
	}
	return errs.result()
}

// BasicInfo validates the complete first substep.
func BasicInfo(b *model.BasicInfo) []string {
	if errs := ReadyForQuantity(b); errs != nil {
		return errs
	}
	return Quantity(b.Unit, b.Quantity)
}

func Characteristics(c *model.Characteristics) []string {
	var errs collector
	if c == nil {
		errs.add(MsgMaterialRequired)
		errs.add(MsgColorRequired)
		return errs.result()
	}
	if strings.TrimSpace(c.Material) == "" {
		errs.add(MsgMaterialRequired)
	}
	if strings.TrimSpace(c.Color) == "" {
		errs.add(MsgColorRequired)
	}
	if c.WearDegree != 0 && !slices.Contains(WearDegrees, c.WearDegree) {
		errs.add("wear degree must be one of %v", WearDegrees)
	}
	if c.FillerCompressed && strings.TrimSpace(c.Filler) == "" {
		errs.add("filler is required when marked compressed")
	}
	return errs.result()
}

func StainsDefects(s *model.StainsDefects) []string {
	if s == nil {
		return nil
	}
	var errs collector
	if slices.Contains(s.Stains, model.StainOther) && strings.TrimSpace(s.OtherStain) == "" {
		errs.add(MsgOtherStainRequired)
	}
	if s.NoGuarantee && strings.TrimSpace(s.NoGuaranteeReason) == "" {
		errs.add(MsgNoGuaranteeReason)
	}
	if len(s.Notes) > MaxNotesLength {
		errs.add("notes must not exceed %d characters", MaxNotesLength)
	}
	return errs.result()
}

// ModifierChoice validates one selected modifier against its definition bounds.
func ModifierChoice(opt model.ModifierOption) []string {
	if !opt.Selected {
		return nil
	}
	var errs collector
	v := opt.EffectiveValue()
	if v.IsNegative() {
		errs.add("modifier %s: value must not be negative", opt.ID)
	}
	if opt.Kind == pricing.KindRangePercentage {
		if opt.ChosenValue == nil {
			errs.add("modifier %s: a value within the range is required", opt.ID)
		} else {
			if opt.Min != nil && v.LessThan(*opt.Min) {
				errs.add("modifier %s: value below minimum %s", opt.ID, opt.Min.String())
			}
			if opt.Max != nil && v.GreaterThan(*opt.Max) {
				errs.add("modifier %s: value above maximum %s", opt.ID, opt.Max.String())
			}
		}
	}
	if opt.Quantity != nil && *opt.Quantity < 1 {
		errs.add("modifier %s: quantity must be at least 1", opt.ID)
	}
	return errs.result()
}

func PriceDiscount(p *model.PriceDiscount) []string {
	if p == nil {
		return nil
	}
	var errs collector
	seen := make(map[string]bool, len(p.Modifiers))
	for _, m := range p.Modifiers {
		if seen[m.ID] {
			errs.add("modifier %s listed twice", m.ID)
		}
		seen[m.ID] = true
		errs = append(errs, ModifierChoice(m)...)
	}
	return errs.result()
}

// Photo checks a single upload against the remaining capacity.
func Photo(p model.Photo, existing int) []string {
	var errs collector
	if existing >= MaxPhotos {
		errs.add("at most %d photos are allowed", MaxPhotos)
	}
	if strings.TrimSpace(p.FileName) == "" {
		errs.add("photo file name is required")
	}
	if !slices.Contains(PhotoMimeTypes, p.MimeType) {
		errs.add("unsupported photo type %q", p.MimeType)
	}
	if p.SizeBytes <= 0 || p.SizeBytes > MaxPhotoBytes {
		errs.add("photo size must be between 1 byte and %d MiB", MaxPhotoBytes>>20)
	}
	return errs.result()
}

func Photos(p *model.PhotoDocumentation) []string {
	if p == nil {
		return []string{MsgPhotosRequired}
	}
	if p.Skipped {
		if strings.TrimSpace(p.SkipReason) == "" {
			return []string{MsgSkipReasonRequired}
		}
		return nil
	}
	if len(p.Photos) == 0 {
		return []string{MsgPhotosRequired}
	}
	if len(p.Photos) > MaxPhotos {
		return []string{fmt.Sprintf("at most %d photos are allowed", MaxPhotos)}
	}
	return nil
}

// Substep dispatches to the predicate for phase.
func Substep(w *model.ItemWizardContext, phase model.ItemPhase) []string {
	if w == nil {
		return []string{"no item in progress"}
	}
	switch phase {
	case model.PhaseBasicInfo:
		return BasicInfo(w.BasicInfo)
	case model.PhaseCharacteristics:
		return Characteristics(w.Characteristics)
	case model.PhaseStainsDefects:
		return StainsDefects(w.StainsDefects)
	case model.PhasePriceDiscount:
		return PriceDiscount(w.PriceDiscount)
	case model.PhasePhotoDocumentation:
		return Photos(w.Photos)
	default:
		return []string{fmt.Sprintf("unknown substep %q", phase)}
	}
}

// SubstepUnlocked reports whether phase may be started, i.e. every earlier
// substep is COMPLETED.
func SubstepUnlocked(w *model.ItemWizardContext, phase model.ItemPhase) []string {
	for _, p := range model.Substeps {
		if p == phase {
			return nil
		}
		if w.StepState(p) != model.StepCompleted {
			return []string{MsgSubstepNotCompleted}
		}
	}
	return []string{fmt.Sprintf("unknown substep %q", phase)}
}
