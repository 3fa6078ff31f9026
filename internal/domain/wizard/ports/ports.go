// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package ports declares the collaborators the wizard depends on.
// Implementations live in catalog, persistence and receipt packages.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ManuGH/ordwiz/internal/domain/pricing"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/model"
)

// ErrNotFound is returned by lookups for unknown ids.
var ErrNotFound = errors.New("not found")

// Category is a service category such as dry cleaning or laundry.
type Category struct {
	ID               string `json:"id" yaml:"id"`
	Code             string `json:"code" yaml:"code"`
	Name             string `json:"name" yaml:"name"`
	DiscountEligible bool   `json:"discountEligible" yaml:"discountEligible"`
}

// CatalogItem is a priced item of a category.
type CatalogItem struct {
	ID         string        `json:"id" yaml:"id"`
	CategoryID string        `json:"categoryId" yaml:"categoryId"`
	Name       string        `json:"name" yaml:"name"`
	Unit       model.Unit    `json:"unit" yaml:"unit"`
	BasePrice  pricing.Money `json:"basePrice" yaml:"basePrice"`
}

// ModifierDefinition is a catalog modifier. Sequence defines application order.
type ModifierDefinition struct {
	ID       string                   `json:"id" yaml:"id"`
	Name     string                   `json:"name" yaml:"name"`
	Kind     pricing.ModifierKind     `json:"kind" yaml:"kind"`
	Category pricing.ModifierCategory `json:"category" yaml:"category"`
	Value    decimal.Decimal          `json:"value" yaml:"value"`
	Min      *decimal.Decimal         `json:"min,omitempty" yaml:"min,omitempty"`
	Max      *decimal.Decimal         `json:"max,omitempty" yaml:"max,omitempty"`
	Sequence int                      `json:"sequence" yaml:"sequence"`
}

// CatalogProvider is a read-only view of the price list.
// Branch is a reception point. Opens and Closes are "HH:MM" local times.
type Branch struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Opens  string `json:"opens" yaml:"opens"`
	Closes string `json:"closes" yaml:"closes"`
}

// BranchDirectory resolves branches selected during client selection.
type BranchDirectory interface {
	GetBranch(ctx context.Context, id string) (Branch, error)
}

type CatalogProvider interface {
	ListServiceCategories(ctx context.Context) ([]Category, error)
	ListItemsForCategory(ctx context.Context, categoryID string) ([]CatalogItem, error)
	GetItem(ctx context.Context, itemID string) (CatalogItem, error)
}

// ModifierProvider lists modifiers applicable to a category, ordered by Sequence.
type ModifierProvider interface {
	ListApplicableModifiers(ctx context.Context, categoryID string) ([]ModifierDefinition, error)
}

// ClientDirectory resolves and registers clients.
type ClientDirectory interface {
	GetClient(ctx context.Context, id string) (model.Client, error)
	CreateClient(ctx context.Context, c model.Client) (model.Client, error)
}

// ClientSearcher finds existing clients by name or phone fragment.
type ClientSearcher interface {
	SearchClients(ctx context.Context, query string, limit int) ([]model.Client, error)
}

// DraftOrder is a fully validated, fully priced order ready to persist.
type DraftOrder struct {
	SessionID          string                  `json:"sessionId"`
	Client             model.Client            `json:"client"`
	BranchID           string                  `json:"branchId"`
	ReceiptNumber      string                  `json:"receiptNumber"`
	UniqueTag          string                  `json:"uniqueTag,omitempty"`
	Items              []model.OrderItem       `json:"items"`
	Totals             pricing.OrderTotals     `json:"totals"`
	ExpectedCompletion time.Time               `json:"expectedCompletion"`
	Urgency            pricing.Urgency         `json:"urgency"`
	Discount           model.DiscountSelection `json:"discount"`
	Payment            model.PaymentDetails    `json:"payment"`
	Notes              string                  `json:"notes,omitempty"`
	SignerName         string                  `json:"signerName"`
	Signature          string                  `json:"signature"`
	ReceiptCopies      int                     `json:"receiptCopies"`
	ReceiptEmail       string                  `json:"receiptEmail,omitempty"`
}

// Order is a persisted order.
type Order struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	DraftOrder
}

// OrderPersistence stores completed orders.
type OrderPersistence interface {
	SaveOrder(ctx context.Context, draft DraftOrder) (string, error)
}

// ReceiptRenderer renders the receipt document of a persisted order.
type ReceiptRenderer interface {
	Render(ctx context.Context, orderID string) ([]byte, error)
}
