// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

// TopState is the wizard's top-level state.
type TopState string

const (
	StateOrderStart           TopState = "ORDER_START"
	StateClientSelection      TopState = "CLIENT_SELECTION"
	StateItemManagement       TopState = "ITEM_MANAGEMENT"
	StateExecutionParams      TopState = "EXECUTION_PARAMS"
	StateOrderConfirmation    TopState = "ORDER_CONFIRMATION"
	StateOrderSummary         TopState = "ORDER_SUMMARY"
	StateLegalAcceptance      TopState = "LEGAL_ACCEPTANCE_PENDING"
	StateReceiptConfiguration TopState = "RECEIPT_CONFIGURATION"
	StateOrderCompletion      TopState = "ORDER_COMPLETION"
	StateCompleted            TopState = "STAGE4_COMPLETED"
	StateSystemError          TopState = "SYSTEM_ERROR"
	StateAbandoned            TopState = "ABANDONED"
)

// IsTerminal reports whether no further transitions leave s.
func (s TopState) IsTerminal() bool {
	return s == StateCompleted || s == StateAbandoned
}

// ItemPhase is the state of the per-item FSM nested inside ITEM_MANAGEMENT.
// Every phase other than IDLE names the substep currently being edited.
type ItemPhase string

const (
	PhaseIdle               ItemPhase = "IDLE"
	PhaseBasicInfo          ItemPhase = "BASIC_INFO"
	PhaseCharacteristics    ItemPhase = "CHARACTERISTICS"
	PhaseStainsDefects      ItemPhase = "STAINS_DEFECTS"
	PhasePriceDiscount      ItemPhase = "PRICE_DISCOUNT"
	PhasePhotoDocumentation ItemPhase = "PHOTO_DOCUMENTATION"
)

// Substeps lists the item substeps in their mandatory order.
var Substeps = []ItemPhase{
	PhaseBasicInfo,
	PhaseCharacteristics,
	PhaseStainsDefects,
	PhasePriceDiscount,
	PhasePhotoDocumentation,
}

// Next returns the substep after p, or PhaseIdle after the last one.
func (p ItemPhase) Next() ItemPhase {
	for i, s := range Substeps {
		if s == p && i+1 < len(Substeps) {
			return Substeps[i+1]
		}
	}
	return PhaseIdle
}

// StepState is the local state of one item substep.
type StepState string

const (
	StepNotStarted               StepState = "NOT_STARTED"
	StepSelectingServiceCategory StepState = "SELECTING_SERVICE_CATEGORY"
	StepSelectingItemName        StepState = "SELECTING_ITEM_NAME"
	StepEnteringQuantity         StepState = "ENTERING_QUANTITY"
	StepSelectingMaterial        StepState = "SELECTING_MATERIAL"
	StepEnteringDetails          StepState = "ENTERING_DETAILS"
	StepSelectingStains          StepState = "SELECTING_STAINS"
	StepEnteringNotes            StepState = "ENTERING_NOTES"
	StepSelectingModifiers       StepState = "SELECTING_MODIFIERS"
	StepEnteringPhotos           StepState = "ENTERING_PHOTOS"
	StepValidating               StepState = "VALIDATING"
	StepCompleted                StepState = "COMPLETED"
	StepValidationError          StepState = "VALIDATION_ERROR"
)

// StageState is the local state of a stage context.
type StageState string

const (
	StageInProgress      StageState = "IN_PROGRESS"
	StageCompleted       StageState = "COMPLETED"
	StageValidationError StageState = "VALIDATION_ERROR"
)
