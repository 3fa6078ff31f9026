// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package model defines the typed context tree of an order wizard session.
package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ManuGH/ordwiz/internal/domain/pricing"
)

// Session is the root of one wizard run. It is addressed by ID through the context store.
type Session struct {
	ID              string                  `json:"id"`
	TopState        TopState                `json:"topState"`
	Vars            Vars                    `json:"vars"`
	ClientSelection *ClientSelectionContext `json:"clientSelection,omitempty"`
	Items           *ItemManagementContext  `json:"items,omitempty"`
	Execution       *ExecutionParamsContext `json:"execution,omitempty"`
	Confirmation    *ConfirmationContext    `json:"confirmation,omitempty"`
	Version         int64                   `json:"version"`
	CreatedAt       time.Time               `json:"createdAt"`
	UpdatedAt       time.Time               `json:"updatedAt"`
}

// NewSession returns a session in ORDER_START.
func NewSession(id string, now time.Time) *Session {
	now = now.UTC()
	return &Session{
		ID:        id,
		TopState:  StateOrderStart,
		Vars:      Vars{StartedAt: now},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Vars are the coordinator's shared variables.
type Vars struct {
	ClientID string `json:"clientId,omitempty"`
	BranchID string `json:"branchId,omitempty"`
	OrderID  string `json:"orderId,omitempty"`

	// ErrorMessage is set when an action failure moved the session to SYSTEM_ERROR.
	ErrorMessage     string   `json:"errorMessage,omitempty"`
	StateBeforeError TopState `json:"stateBeforeError,omitempty"`
	LastEvent        *Event   `json:"lastEvent,omitempty"`

	// LastError holds the most recent user-correctable error.
	LastError string `json:"lastError,omitempty"`

	StartedAt         time.Time  `json:"startedAt"`
	ClientSelectedAt  *time.Time `json:"clientSelectedAt,omitempty"`
	ItemsCompletedAt  *time.Time `json:"itemsCompletedAt,omitempty"`
	ParamsCompletedAt *time.Time `json:"paramsCompletedAt,omitempty"`
	ConfirmedAt       *time.Time `json:"confirmedAt,omitempty"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
}

// Client is the subset of a client record the wizard keeps.
type Client struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Email     string `json:"email,omitempty"`
}

// ClientSelectionContext is stage 1: who the order is for and where it is taken.
type ClientSelectionContext struct {
	State         StageState `json:"state"`
	ClientID      string     `json:"clientId,omitempty"`
	Client        *Client    `json:"client,omitempty"`
	BranchID      string     `json:"branchId,omitempty"`
	ReceiptNumber string     `json:"receiptNumber,omitempty"`
	UniqueTag     string     `json:"uniqueTag,omitempty"`
	Errors        []string   `json:"errors,omitempty"`
}

// ItemManagementContext is stage 2: the item list plus the in-progress item.
type ItemManagementContext struct {
	Phase        ItemPhase          `json:"phase"`
	Items        []OrderItem        `json:"items"`
	Current      *ItemWizardContext `json:"current,omitempty"`
	EditingIndex int                `json:"editingIndex"`
	Errors       []string           `json:"errors,omitempty"`
}

// OrderItem is a finished item. Record keeps every substep so the item can be reopened.
type OrderItem struct {
	ID        string                 `json:"id"`
	Record    ItemWizardContext      `json:"record"`
	Breakdown pricing.PriceBreakdown `json:"breakdown"`
}

// DiscountType is the order-level discount program.
type DiscountType string

const (
	DiscountNone        DiscountType = "NONE"
	DiscountEvercard    DiscountType = "EVERCARD"
	DiscountSocialMedia DiscountType = "SOCIAL_MEDIA"
	DiscountMilitary    DiscountType = "MILITARY"
	DiscountCustom      DiscountType = "CUSTOM"
)

var discountPercents = map[DiscountType]int64{
	DiscountNone:        0,
	DiscountEvercard:    10,
	DiscountSocialMedia: 5,
	DiscountMilitary:    10,
}

// DiscountSelection is the chosen discount program.
type DiscountSelection struct {
	Type          DiscountType    `json:"type"`
	CustomPercent decimal.Decimal `json:"customPercent"`
}

// Percent resolves the effective discount percentage.
func (d DiscountSelection) Percent() (decimal.Decimal, bool) {
	if d.Type == "" {
		return decimal.Zero, true
	}
	if d.Type == DiscountCustom {
		return d.CustomPercent, true
	}
	p, ok := discountPercents[d.Type]
	return decimal.NewFromInt(p), ok
}

// PaymentMethod is how the client pays.
type PaymentMethod string

const (
	PaymentTerminal     PaymentMethod = "TERMINAL"
	PaymentCash         PaymentMethod = "CASH"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
)

// PaymentDetails holds the payment method and prepaid amount.
type PaymentDetails struct {
	Method     PaymentMethod `json:"method,omitempty"`
	Prepayment pricing.Money `json:"prepayment"`
}

// ExecutionParamsContext is stage 3.
type ExecutionParamsContext struct {
	State              StageState        `json:"state"`
	ExpectedCompletion *time.Time        `json:"expectedCompletion,omitempty"`
	Urgency            pricing.Urgency   `json:"urgency"`
	Discount           DiscountSelection `json:"discount"`
	Payment            PaymentDetails    `json:"payment"`
	Notes              string            `json:"notes,omitempty"`
	Errors             []string          `json:"errors,omitempty"`
}

// OrderSummary is the repriced order shown for review.
type OrderSummary struct {
	Items      []pricing.PriceBreakdown `json:"items"`
	Totals     pricing.OrderTotals      `json:"totals"`
	Reviewed   bool                     `json:"reviewed"`
	ComputedAt *time.Time               `json:"computedAt,omitempty"`
}

// LegalAcceptance records the client's agreement to the terms.
type LegalAcceptance struct {
	TermsAccepted bool       `json:"termsAccepted"`
	SignerName    string     `json:"signerName,omitempty"`
	Signature     string     `json:"signature,omitempty"`
	AcceptedAt    *time.Time `json:"acceptedAt,omitempty"`
}

// ReceiptConfiguration controls how the receipt is issued.
type ReceiptConfiguration struct {
	Copies       int    `json:"copies"`
	EmailReceipt bool   `json:"emailReceipt"`
	Email        string `json:"email,omitempty"`
	Configured   bool   `json:"configured"`
	Rendered     bool   `json:"rendered"`
	DocumentSize int    `json:"documentSize,omitempty"`
}

// OrderCompletion records the persisted order.
type OrderCompletion struct {
	OrderID string     `json:"orderId,omitempty"`
	SavedAt *time.Time `json:"savedAt,omitempty"`
}

// ConfirmationContext is stage 4 with its four sub-records.
type ConfirmationContext struct {
	Summary    OrderSummary         `json:"summary"`
	Legal      LegalAcceptance      `json:"legal"`
	Receipt    ReceiptConfiguration `json:"receipt"`
	Completion OrderCompletion      `json:"completion"`
	Errors     []string             `json:"errors,omitempty"`
}
