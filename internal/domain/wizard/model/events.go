// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ManuGH/ordwiz/internal/domain/pricing"
)

// EventType names a wizard event.
type EventType string

// Lifecycle and navigation.
const (
	EventStartOrder  EventType = "START_ORDER"
	EventCancelOrder EventType = "CANCEL_ORDER"
	EventGoBack      EventType = "GO_BACK"
	EventRetry       EventType = "RETRY"
)

// Stage 1.
const (
	EventSelectClient            EventType = "SELECT_CLIENT"
	EventCreateClient            EventType = "CREATE_CLIENT"
	EventSetOrderInfo            EventType = "SET_ORDER_INFO"
	EventCompleteClientSelection EventType = "COMPLETE_CLIENT_SELECTION"
)

// Stage 2: item list and item substeps.
const (
	EventStartItem     EventType = "START_ITEM"
	EventEditItem      EventType = "EDIT_ITEM"
	EventDeleteItem    EventType = "DELETE_ITEM"
	EventCancelItem    EventType = "CANCEL_ITEM"
	EventCompleteItems EventType = "COMPLETE_ITEMS"

	EventSelectServiceCategory EventType = "SELECT_SERVICE_CATEGORY"
	EventSelectCatalogItem     EventType = "SELECT_CATALOG_ITEM"
	EventEnterQuantity         EventType = "ENTER_QUANTITY"
	EventSelectMaterial        EventType = "SELECT_MATERIAL"
	EventSetCharacteristics    EventType = "SET_CHARACTERISTICS"
	EventSelectStains          EventType = "SELECT_STAINS"
	EventSetDefects            EventType = "SET_DEFECTS"
	EventToggleModifier        EventType = "TOGGLE_MODIFIER"
	EventAddPhoto              EventType = "ADD_PHOTO"
	EventRemovePhoto           EventType = "REMOVE_PHOTO"
	EventSkipPhotos            EventType = "SKIP_PHOTOS"
	EventSubmitSubstep         EventType = "SUBMIT_SUBSTEP"
	EventSubstepCompleted      EventType = "SUBSTEP_COMPLETED"
)

// Stage 3.
const (
	EventSetCompletionDate       EventType = "SET_COMPLETION_DATE"
	EventSetUrgency              EventType = "SET_URGENCY"
	EventSetDiscount             EventType = "SET_DISCOUNT"
	EventSetPayment              EventType = "SET_PAYMENT"
	EventSetNotes                EventType = "SET_NOTES"
	EventCompleteExecutionParams EventType = "COMPLETE_EXECUTION_PARAMS"
)

// Stage 4.
const (
	EventEnterSummary     EventType = "ENTER_SUMMARY"
	EventApproveSummary   EventType = "APPROVE_SUMMARY"
	EventAcceptTerms      EventType = "ACCEPT_TERMS"
	EventSubmitLegal      EventType = "SUBMIT_LEGAL"
	EventConfigureReceipt EventType = "CONFIGURE_RECEIPT"
	EventConfirmReceipt   EventType = "CONFIRM_RECEIPT"
	EventCompleteOrder    EventType = "COMPLETE_ORDER"
)

// Event is a wizard event with an optional JSON payload.
type Event struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent builds an event, encoding payload when non-nil.
func NewEvent(t EventType, payload any) (Event, error) {
	ev := Event{Type: t}
	if payload == nil {
		return ev, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", t, err)
	}
	ev.Payload = b
	return ev, nil
}

// MustEvent is NewEvent for payloads that are known to encode.
func MustEvent(t EventType, payload any) Event {
	ev, err := NewEvent(t, payload)
	if err != nil {
		panic(err)
	}
	return ev
}

// DecodePayload decodes the event payload into T.
// A missing payload is reported as a validation error.
func DecodePayload[T any](ev Event) (T, error) {
	var out T
	if len(ev.Payload) == 0 {
		return out, NewValidationError(fmt.Sprintf("%s: payload is required", ev.Type))
	}
	if err := json.Unmarshal(ev.Payload, &out); err != nil {
		return out, NewValidationError(fmt.Sprintf("%s: malformed payload: %v", ev.Type, err))
	}
	return out, nil
}

type SelectClientPayload struct {
	ClientID string `json:"clientId"`
}

type CreateClientPayload struct {
	FirstName string `json:"firstName" validate:"required,max=64"`
	LastName  string `json:"lastName" validate:"required,max=64"`
	Phone     string `json:"phone" validate:"required,min=10,max=20"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
}

type OrderInfoPayload struct {
	BranchID      string `json:"branchId"`
	ReceiptNumber string `json:"receiptNumber"`
	UniqueTag     string `json:"uniqueTag,omitempty"`
}

type ItemIndexPayload struct {
	Index int `json:"index"`
}

type SelectCategoryPayload struct {
	CategoryID string `json:"categoryId"`
}

type SelectItemPayload struct {
	ItemID string `json:"itemId"`
}

type QuantityPayload struct {
	Quantity decimal.Decimal `json:"quantity"`
}

type MaterialPayload struct {
	Material string `json:"material"`
}

type CharacteristicsPayload struct {
	Color            string `json:"color"`
	Filler           string `json:"filler,omitempty"`
	FillerCompressed bool   `json:"fillerCompressed"`
	WearDegree       int    `json:"wearDegree"`
}

type StainsPayload struct {
	Stains     []string `json:"stains"`
	OtherStain string   `json:"otherStain,omitempty"`
}

type DefectsPayload struct {
	Defects           []string `json:"defects"`
	NoGuarantee       bool     `json:"noGuarantee"`
	NoGuaranteeReason string   `json:"noGuaranteeReason,omitempty"`
	Notes             string   `json:"notes,omitempty"`
}

type ToggleModifierPayload struct {
	ModifierID  string           `json:"modifierId"`
	Selected    bool             `json:"selected"`
	ChosenValue *decimal.Decimal `json:"chosenValue,omitempty"`
	Quantity    *int             `json:"quantity,omitempty"`
}

type AddPhotoPayload struct {
	FileName  string `json:"fileName"`
	MimeType  string `json:"mimeType"`
	SizeBytes int64  `json:"sizeBytes"`
}

type RemovePhotoPayload struct {
	PhotoID string `json:"photoId"`
}

type SkipPhotosPayload struct {
	Reason string `json:"reason"`
}

// CompletionDatePayload carries a calendar date as YYYY-MM-DD.
type CompletionDatePayload struct {
	Date string `json:"date"`
}

type UrgencyPayload struct {
	Urgency pricing.Urgency `json:"urgency"`
}

type DiscountPayload struct {
	Type          DiscountType    `json:"type"`
	CustomPercent decimal.Decimal `json:"customPercent"`
}

type PaymentPayload struct {
	Method     PaymentMethod `json:"method"`
	Prepayment pricing.Money `json:"prepayment"`
}

type NotesPayload struct {
	Notes string `json:"notes"`
}

type AcceptTermsPayload struct {
	Accepted   bool   `json:"accepted"`
	SignerName string `json:"signerName"`
	Signature  string `json:"signature"`
}

type ReceiptConfigPayload struct {
	Copies       int    `json:"copies" validate:"min=1,max=5"`
	EmailReceipt bool   `json:"emailReceipt"`
	Email        string `json:"email,omitempty" validate:"omitempty,email"`
}
