// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package workflow implements the stage and substep services of the order wizard.
//
// Services are stateless. Every mutation goes through the context store, so a
// service value can be shared by any number of sessions and goroutines. Each
// mutator validates first; on failure it records the messages on the affected
// sub-context and in Vars.LastError, leaves the local state untouched and
// returns a *model.ValidationError.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ManuGH/ordwiz/internal/domain/wizard/model"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/ports"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/store"
)

// Deps are the collaborators shared by all services.
type Deps struct {
	Store     store.Store
	Catalog   ports.CatalogProvider
	Modifiers ports.ModifierProvider
	Clients   ports.ClientDirectory
	Branches  ports.BranchDirectory // optional

	Now   func() time.Time
	NewID func() string
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

func (d *Deps) newID() string {
	if d.NewID != nil {
		return d.NewID()
	}
	return uuid.NewString()
}

// edit applies fn under the session lock. fn returns the validation verdict;
// a non-empty verdict is still committed (fn records it on the sub-context)
// and then surfaced as a *model.ValidationError. When fn changes nothing the
// write is skipped, so Version, UpdatedAt and Vars.LastError stay as they were.
func (d *Deps) edit(ctx context.Context, id string, fn func(*model.Session) ([]string, error)) (*model.Session, error) {
	var (
		verdict   []string
		unchanged *model.Session
	)
	sess, err := d.Store.Update(ctx, id, func(s *model.Session) error {
		before, err := model.Encode(s)
		if err != nil {
			return err
		}
		errs, err := fn(s)
		if err != nil {
			return err
		}
		verdict = errs
		after, err := model.Encode(s)
		if err != nil {
			return err
		}
		if bytes.Equal(before, after) {
			unchanged = s
			return store.ErrUnchanged
		}
		if len(errs) > 0 {
			s.Vars.LastError = strings.Join(errs, "; ")
		} else {
			s.Vars.LastError = ""
		}
		return nil
	})
	if errors.Is(err, store.ErrUnchanged) {
		sess, err = unchanged, nil
	}
	if err != nil {
		return nil, err
	}
	if len(verdict) > 0 {
		return sess, model.NewValidationError(verdict...)
	}
	return sess, nil
}

// Services bundles one instance of every stage service.
type Services struct {
	Deps            *Deps
	Client          *ClientSelection
	Items           *ItemManagement
	BasicInfo       *BasicInfoStep
	Characteristics *CharacteristicsStep
	StainsDefects   *StainsDefectsStep
	PriceDiscount   *PriceDiscountStep
	Photos          *PhotoStep
	Execution       *ExecutionParams
	Confirmation    *Confirmation
}

func New(d *Deps) *Services {
	return &Services{
		Deps:            d,
		Client:          &ClientSelection{d},
		Items:           &ItemManagement{d},
		BasicInfo:       &BasicInfoStep{d},
		Characteristics: &CharacteristicsStep{d},
		StainsDefects:   &StainsDefectsStep{d},
		PriceDiscount:   &PriceDiscountStep{d},
		Photos:          &PhotoStep{d},
		Execution:       &ExecutionParams{d},
		Confirmation:    &Confirmation{d},
	}
}

// currentItem returns the item being edited, or ErrContextNotFound.
func currentItem(s *model.Session) (*model.ItemWizardContext, error) {
	if s.Items == nil || s.Items.Current == nil {
		return nil, fmt.Errorf("%w: no item in progress", model.ErrContextNotFound)
	}
	return s.Items.Current, nil
}

func missing(what string) error {
	return fmt.Errorf("%w: %s", model.ErrContextNotFound, what)
}

// fail records errs on a sub-context error slot and passes them through.
func fail(slot *[]string, errs []string) ([]string, error) {
	*slot = errs
	return errs, nil
}

func ok(slot *[]string) ([]string, error) {
	*slot = nil
	return nil, nil
}

func cloneItem(w *model.ItemWizardContext) (*model.ItemWizardContext, error) {
	b, err := json.Marshal(w)
	if err != nil {
		return nil, err
	}
	var out model.ItemWizardContext
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
