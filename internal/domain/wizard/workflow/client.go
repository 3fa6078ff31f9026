// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package workflow

import (
	"context"
	"errors"
	"strings"

	"github.com/ManuGH/ordwiz/internal/domain/wizard/model"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/ports"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/validation"
)

// ClientSelection drives stage 1: choosing or registering the client and
// recording the branch and receipt number.
type ClientSelection struct{ d *Deps }

// Initialize creates the stage context. Calling it again keeps existing data.
func (c *ClientSelection) Initialize(ctx context.Context, id string) (*model.Session, error) {
	return c.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		if s.ClientSelection == nil {
			s.ClientSelection = &model.ClientSelectionContext{State: model.StageInProgress}
		}
		return nil, nil
	})
}

func (c *ClientSelection) SelectClient(ctx context.Context, id string, p model.SelectClientPayload) (*model.Session, error) {
	var (
		client model.Client
		verr   []string
	)
	if strings.TrimSpace(p.ClientID) == "" {
		verr = []string{"client id is required"}
	} else {
		var err error
		client, err = c.d.Clients.GetClient(ctx, p.ClientID)
		switch {
		case errors.Is(err, ports.ErrNotFound):
			verr = []string{"client not found"}
		case err != nil:
			return nil, err
		}
	}
	return c.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		cs := s.ClientSelection
		if cs == nil {
			return nil, missing("client selection")
		}
		if verr != nil {
			return fail(&cs.Errors, verr)
		}
		setClient(s, client)
		return ok(&cs.Errors)
	})
}

// CreateClient registers a new client in the directory and selects it.
func (c *ClientSelection) CreateClient(ctx context.Context, id string, p model.CreateClientPayload) (*model.Session, error) {
	verr := validation.NewClient(p)
	var client model.Client
	if verr == nil {
		var err error
		client, err = c.d.Clients.CreateClient(ctx, model.Client{
			FirstName: strings.TrimSpace(p.FirstName),
			LastName:  strings.TrimSpace(p.LastName),
			Phone:     strings.TrimSpace(p.Phone),
			Email:     strings.TrimSpace(p.Email),
		})
		if err != nil {
			return nil, err
		}
	}
	return c.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		cs := s.ClientSelection
		if cs == nil {
			return nil, missing("client selection")
		}
		if verr != nil {
			return fail(&cs.Errors, verr)
		}
		setClient(s, client)
		return ok(&cs.Errors)
	})
}

func setClient(s *model.Session, client model.Client) {
	cl := client
	s.ClientSelection.ClientID = client.ID
	s.ClientSelection.Client = &cl
	s.Vars.ClientID = client.ID
}

// SetOrderInfo records branch, receipt number and the optional unique tag.
func (c *ClientSelection) SetOrderInfo(ctx context.Context, id string, p model.OrderInfoPayload) (*model.Session, error) {
	verr := validation.ReceiptNumber(p.ReceiptNumber)
	switch {
	case p.BranchID == "":
		verr = append(verr, "branch must be selected")
	case c.d.Branches != nil:
		_, err := c.d.Branches.GetBranch(ctx, p.BranchID)
		if errors.Is(err, ports.ErrNotFound) {
			verr = append(verr, "branch not found")
		} else if err != nil {
			return nil, err
		}
	}
	return c.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		cs := s.ClientSelection
		if cs == nil {
			return nil, missing("client selection")
		}
		if len(verr) > 0 {
			return fail(&cs.Errors, verr)
		}
		cs.BranchID = p.BranchID
		cs.ReceiptNumber = p.ReceiptNumber
		cs.UniqueTag = strings.TrimSpace(p.UniqueTag)
		s.Vars.BranchID = p.BranchID
		return ok(&cs.Errors)
	})
}

// Check is the pure completeness predicate used by guards.
func (c *ClientSelection) Check(s *model.Session) []string {
	return validation.ClientSelection(s.ClientSelection)
}

// Complete marks the stage COMPLETED when Check passes.
func (c *ClientSelection) Complete(ctx context.Context, id string) (*model.Session, error) {
	return c.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		cs := s.ClientSelection
		if cs == nil {
			return nil, missing("client selection")
		}
		if errs := c.Check(s); errs != nil {
			cs.State = model.StageValidationError
			return fail(&cs.Errors, errs)
		}
		cs.State = model.StageCompleted
		now := c.d.now()
		s.Vars.ClientSelectedAt = &now
		return ok(&cs.Errors)
	})
}

// Reopen moves a completed stage back to IN_PROGRESS for editing.
func (c *ClientSelection) Reopen(ctx context.Context, id string) (*model.Session, error) {
	return c.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		if s.ClientSelection != nil {
			s.ClientSelection.State = model.StageInProgress
		}
		return nil, nil
	})
}

func (c *ClientSelection) CurrentState(ctx context.Context, id string) (model.StageState, error) {
	data, err := c.CurrentData(ctx, id)
	if err != nil {
		return "", err
	}
	return data.State, nil
}

func (c *ClientSelection) CurrentData(ctx context.Context, id string) (*model.ClientSelectionContext, error) {
	s, err := c.d.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.ClientSelection == nil {
		return nil, missing("client selection")
	}
	return s.ClientSelection, nil
}

// Reset discards every stage 1 input.
func (c *ClientSelection) Reset(ctx context.Context, id string) (*model.Session, error) {
	return c.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		s.ClientSelection = &model.ClientSelectionContext{State: model.StageInProgress}
		s.Vars.ClientID = ""
		s.Vars.BranchID = ""
		s.Vars.ClientSelectedAt = nil
		return nil, nil
	})
}
