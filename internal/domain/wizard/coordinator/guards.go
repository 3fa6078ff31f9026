// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package coordinator

import (
	"context"
	"fmt"

	"github.com/ManuGH/ordwiz/internal/domain/wizard/model"
)

// check adapts a workflow predicate into a guard. Its messages become the
// denial reasons.
func (c *Coordinator) check(pred func(*model.Session) []string) guard {
	return func(_ context.Context, in *Input) (bool, error) {
		if in.Session == nil {
			return false, fmt.Errorf("guard for %s: no session loaded", in.Event.Type)
		}
		if errs := pred(in.Session); len(errs) > 0 {
			return in.deny(errs...), nil
		}
		return true, nil
	}
}

// all passes when every guard passes. Evaluation stops at the first denial.
func (c *Coordinator) all(gs ...guard) guard {
	return func(ctx context.Context, in *Input) (bool, error) {
		for _, g := range gs {
			ok, err := g(ctx, in)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
}

func (c *Coordinator) itemIdle(_ context.Context, in *Input) (bool, error) {
	if in.Session == nil {
		return false, nil
	}
	if phaseOf(in.Session) != model.PhaseIdle {
		return in.deny("finish or cancel the item in progress first"), nil
	}
	return true, nil
}

func (c *Coordinator) substepDone(p model.ItemPhase) guard {
	return func(_ context.Context, in *Input) (bool, error) {
		s := in.Session
		if s == nil || s.Items == nil || s.Items.Current == nil {
			return in.deny("no item in progress"), nil
		}
		if st := s.Items.Current.StepState(p); st != model.StepCompleted {
			return in.deny(fmt.Sprintf("%s is %s, submit it first", p, st)), nil
		}
		return true, nil
	}
}

func (c *Coordinator) itemReady(_ context.Context, in *Input) (bool, error) {
	if in.Session == nil || !c.svc.Items.ItemReady(in.Session) {
		return in.deny("every substep must be completed"), nil
	}
	return true, nil
}

// errorFrom selects the RETRY edge back to the state the failure interrupted.
func errorFrom(s model.TopState) guard {
	return func(_ context.Context, in *Input) (bool, error) {
		return in.Session != nil && in.Session.Vars.StateBeforeError == s, nil
	}
}
