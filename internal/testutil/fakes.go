// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/ManuGH/ordwiz/internal/domain/pricing"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/model"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/ports"
)

// Catalog is an in-memory catalog, modifier and branch provider.
type Catalog struct {
	Categories []ports.Category
	Items      []ports.CatalogItem
	Modifiers  map[string][]ports.ModifierDefinition
	Branches   []ports.Branch
	Err        error
}

func ptr(d decimal.Decimal) *decimal.Decimal { return &d }

// NewCatalog returns the fixture used across wizard tests.
//
//	clean   (discount eligible): coat 100.00/piece
//	laundry (not eligible):      bedding 45.00/kg
func NewCatalog() *Catalog {
	return &Catalog{
		Categories: []ports.Category{
			{ID: "clean", Code: "CLEANING", Name: "Dry cleaning", DiscountEligible: true},
			{ID: "laundry", Code: "LAUNDRY", Name: "Laundry", DiscountEligible: false},
		},
		Items: []ports.CatalogItem{
			{ID: "coat", CategoryID: "clean", Name: "Coat", Unit: model.UnitPiece, BasePrice: 10000},
			{ID: "bedding", CategoryID: "laundry", Name: "Bedding", Unit: model.UnitKilogram, BasePrice: 4500},
		},
		Modifiers: map[string][]ports.ModifierDefinition{
			"clean": {
				{ID: "silk", Name: "Delicate fabric", Kind: pricing.KindPercentage, Category: pricing.CategoryTextile, Value: decimal.NewFromInt(20), Sequence: 1},
				{ID: "soiling", Name: "Heavy soiling", Kind: pricing.KindRangePercentage, Category: pricing.CategoryGeneral, Value: decimal.NewFromInt(20), Min: ptr(decimal.NewFromInt(20)), Max: ptr(decimal.NewFromInt(100)), Sequence: 2},
				{ID: "buttons", Name: "Button replacement", Kind: pricing.KindFixed, Category: pricing.CategoryGeneral, Value: decimal.NewFromInt(500), Sequence: 3},
			},
		},
		Branches: []ports.Branch{{ID: "main", Name: "Main street", Opens: "08:00", Closes: "20:00"}},
	}
}

func (c *Catalog) ListServiceCategories(context.Context) ([]ports.Category, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	return append([]ports.Category(nil), c.Categories...), nil
}

func (c *Catalog) ListItemsForCategory(_ context.Context, categoryID string) ([]ports.CatalogItem, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	var out []ports.CatalogItem
	for _, it := range c.Items {
		if it.CategoryID == categoryID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (c *Catalog) GetItem(_ context.Context, itemID string) (ports.CatalogItem, error) {
	if c.Err != nil {
		return ports.CatalogItem{}, c.Err
	}
	for _, it := range c.Items {
		if it.ID == itemID {
			return it, nil
		}
	}
	return ports.CatalogItem{}, ports.ErrNotFound
}

func (c *Catalog) ListApplicableModifiers(_ context.Context, categoryID string) ([]ports.ModifierDefinition, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	return append([]ports.ModifierDefinition(nil), c.Modifiers[categoryID]...), nil
}

func (c *Catalog) GetBranch(_ context.Context, id string) (ports.Branch, error) {
	for _, b := range c.Branches {
		if b.ID == id {
			return b, nil
		}
	}
	return ports.Branch{}, ports.ErrNotFound
}

// Clients is an in-memory client directory.
type Clients struct {
	mu      sync.Mutex
	clients map[string]model.Client
	seq     int
}

func NewClients(seed ...model.Client) *Clients {
	c := &Clients{clients: make(map[string]model.Client)}
	for _, cl := range seed {
		c.clients[cl.ID] = cl
	}
	return c
}

func (c *Clients) GetClient(_ context.Context, id string) (model.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cl, ok := c.clients[id]
	if !ok {
		return model.Client{}, ports.ErrNotFound
	}
	return cl, nil
}

func (c *Clients) CreateClient(_ context.Context, cl model.Client) (model.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	cl.ID = fmt.Sprintf("client-%d", c.seq)
	c.clients[cl.ID] = cl
	return cl, nil
}

// SearchClients matches query case-insensitively against names and phone.
func (c *Clients) SearchClients(_ context.Context, query string, limit int) ([]model.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q := strings.ToLower(strings.TrimSpace(query))
	var out []model.Client
	for _, cl := range c.clients {
		if strings.Contains(strings.ToLower(cl.FirstName), q) ||
			strings.Contains(strings.ToLower(cl.LastName), q) ||
			strings.Contains(cl.Phone, q) {
			out = append(out, cl)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastName+out[i].FirstName < out[j].LastName+out[j].FirstName })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Orders records saved drafts. Saves are idempotent per session id.
type Orders struct {
	mu      sync.Mutex
	drafts  map[string]ports.DraftOrder
	ids     map[string]string
	FailN   atomic.Int32 // fail this many upcoming saves
	Calls   atomic.Int32
	FailErr error
}

func NewOrders() *Orders {
	return &Orders{drafts: make(map[string]ports.DraftOrder), ids: make(map[string]string)}
}

var ErrInjected = errors.New("injected failure")

func (o *Orders) SaveOrder(_ context.Context, d ports.DraftOrder) (string, error) {
	o.Calls.Add(1)
	if o.FailN.Load() > 0 {
		o.FailN.Add(-1)
		if o.FailErr != nil {
			return "", o.FailErr
		}
		return "", ErrInjected
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if id, ok := o.ids[d.SessionID]; ok {
		return id, nil
	}
	id := fmt.Sprintf("order-%d", len(o.ids)+1)
	o.ids[d.SessionID] = id
	o.drafts[id] = d
	return id, nil
}

func (o *Orders) Draft(orderID string) (ports.DraftOrder, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	d, ok := o.drafts[orderID]
	return d, ok
}

func (o *Orders) Count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.drafts)
}

// Renderer returns a fixed receipt document.
type Renderer struct {
	Err   error
	Calls atomic.Int32
}

func (r *Renderer) Render(_ context.Context, orderID string) ([]byte, error) {
	r.Calls.Add(1)
	if r.Err != nil {
		return nil, r.Err
	}
	return []byte("receipt " + orderID), nil
}
