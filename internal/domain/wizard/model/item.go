// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ManuGH/ordwiz/internal/domain/pricing"
)

// Unit is how an item is counted.
type Unit string

const (
	UnitPiece    Unit = "PIECE"
	UnitKilogram Unit = "KILOGRAM"
)

// ItemWizardContext holds the five ordered substeps of one item.
// A substep record is nil until the preceding one is COMPLETED.
type ItemWizardContext struct {
	ItemID          string              `json:"itemId"`
	BasicInfo       *BasicInfo          `json:"basicInfo,omitempty"`
	Characteristics *Characteristics    `json:"characteristics,omitempty"`
	StainsDefects   *StainsDefects      `json:"stainsDefects,omitempty"`
	PriceDiscount   *PriceDiscount      `json:"priceDiscount,omitempty"`
	Photos          *PhotoDocumentation `json:"photos,omitempty"`
}

// StepState returns the state of substep p, or NOT_STARTED if it has no record.
func (w *ItemWizardContext) StepState(p ItemPhase) StepState {
	if w == nil {
		return StepNotStarted
	}
	var st StepState
	switch p {
	case PhaseBasicInfo:
		if w.BasicInfo != nil {
			st = w.BasicInfo.State
		}
	case PhaseCharacteristics:
		if w.Characteristics != nil {
			st = w.Characteristics.State
		}
	case PhaseStainsDefects:
		if w.StainsDefects != nil {
			st = w.StainsDefects.State
		}
	case PhasePriceDiscount:
		if w.PriceDiscount != nil {
			st = w.PriceDiscount.State
		}
	case PhasePhotoDocumentation:
		if w.Photos != nil {
			st = w.Photos.State
		}
	}
	if st == "" {
		return StepNotStarted
	}
	return st
}

// BasicInfo is substep 1: category, catalog item and quantity.
type BasicInfo struct {
	State            StepState       `json:"state"`
	CategoryID       string          `json:"categoryId,omitempty"`
	CategoryName     string          `json:"categoryName,omitempty"`
	DiscountEligible bool            `json:"discountEligible"`
	ItemID           string          `json:"itemId,omitempty"`
	ItemName         string          `json:"itemName,omitempty"`
	Unit             Unit            `json:"unit,omitempty"`
	BaseUnitPrice    pricing.Money   `json:"baseUnitPrice"`
	Quantity         decimal.Decimal `json:"quantity"`
	Errors           []string        `json:"errors,omitempty"`
}

// Characteristics is substep 2.
type Characteristics struct {
	State            StepState `json:"state"`
	Material         string    `json:"material,omitempty"`
	Color            string    `json:"color,omitempty"`
	Filler           string    `json:"filler,omitempty"`
	FillerCompressed bool      `json:"fillerCompressed"`
	WearDegree       int       `json:"wearDegree"`
	Errors           []string  `json:"errors,omitempty"`
}

// StainOther marks a free-text stain that needs a description.
const StainOther = "OTHER"

// StainsDefects is substep 3.
type StainsDefects struct {
	State             StepState `json:"state"`
	Stains            []string  `json:"stains,omitempty"`
	OtherStain        string    `json:"otherStain,omitempty"`
	Defects           []string  `json:"defects,omitempty"`
	NoGuarantee       bool      `json:"noGuarantee"`
	NoGuaranteeReason string    `json:"noGuaranteeReason,omitempty"`
	Notes             string    `json:"notes,omitempty"`
	Errors            []string  `json:"errors,omitempty"`
}

// ModifierOption is a modifier offered for the item's category, selected or not.
type ModifierOption struct {
	pricing.ModifierSelection
	Name string           `json:"name"`
	Min  *decimal.Decimal `json:"min,omitempty"`
	Max  *decimal.Decimal `json:"max,omitempty"`
}

// PriceDiscount is substep 4.
type PriceDiscount struct {
	State     StepState               `json:"state"`
	Modifiers []ModifierOption        `json:"modifiers"`
	Preview   *pricing.PriceBreakdown `json:"preview,omitempty"`
	Errors    []string                `json:"errors,omitempty"`
}

// Selections returns the options as pricing selections, in catalog order.
func (p *PriceDiscount) Selections() []pricing.ModifierSelection {
	if p == nil {
		return nil
	}
	out := make([]pricing.ModifierSelection, 0, len(p.Modifiers))
	for _, m := range p.Modifiers {
		out = append(out, m.ModifierSelection)
	}
	return out
}

// Photo is metadata for one uploaded photo. Binary content lives outside the wizard.
type Photo struct {
	ID        string    `json:"id"`
	FileName  string    `json:"fileName"`
	MimeType  string    `json:"mimeType"`
	SizeBytes int64     `json:"sizeBytes"`
	AddedAt   time.Time `json:"addedAt"`
}

// PhotoDocumentation is substep 5.
type PhotoDocumentation struct {
	State      StepState `json:"state"`
	Photos     []Photo   `json:"photos,omitempty"`
	Skipped    bool      `json:"skipped"`
	SkipReason string    `json:"skipReason,omitempty"`
	Errors     []string  `json:"errors,omitempty"`
}
