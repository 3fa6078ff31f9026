// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package coordinator

import (
	"context"
	"fmt"

	"github.com/ManuGH/ordwiz/internal/domain/wizard/model"
	"github.com/ManuGH/ordwiz/internal/log"
)

// Input is what guards and actions see for one event.
type Input struct {
	SessionID string
	Event     model.Event
	// Session is the state the event is evaluated against. Guards read it;
	// actions go through the workflow services.
	Session *model.Session

	reasons []string
	replay  *model.Event
}

// deny records why a guard refused the event.
func (in *Input) deny(reasons ...string) bool {
	in.reasons = append(in.reasons, reasons...)
	return false
}

type service func(ctx context.Context, id string) (*model.Session, error)

func run(fns ...service) action {
	return func(ctx context.Context, in *Input) (model.EventType, error) {
		for _, fn := range fns {
			if _, err := fn(ctx, in.SessionID); err != nil {
				return "", err
			}
		}
		return "", nil
	}
}

// withPayload decodes the event payload into P before calling fn.
func withPayload[P any](fn func(context.Context, string, P) (*model.Session, error), more ...service) action {
	return func(ctx context.Context, in *Input) (model.EventType, error) {
		p, err := model.DecodePayload[P](in.Event)
		if err != nil {
			return "", err
		}
		if _, err := fn(ctx, in.SessionID, p); err != nil {
			return "", err
		}
		return run(more...)(ctx, in)
	}
}

// then requests follow once a succeeds. A nil a only requests the follow-up.
func then(a action, follow model.EventType) action {
	return func(ctx context.Context, in *Input) (model.EventType, error) {
		if a != nil {
			if _, err := a(ctx, in); err != nil {
				return "", err
			}
		}
		return follow, nil
	}
}

func (c *Coordinator) submit(p model.ItemPhase) action {
	return func(ctx context.Context, in *Input) (model.EventType, error) {
		if _, err := c.svc.Items.SubmitSubstep(ctx, in.SessionID, p); err != nil {
			return "", err
		}
		return model.EventSubstepCompleted, nil
	}
}

// retry restores the state saved by the failure and replays the failed event.
func (c *Coordinator) retry(ctx context.Context, in *Input) (model.EventType, error) {
	var last *model.Event
	_, err := c.store.Update(ctx, in.SessionID, func(s *model.Session) error {
		last = s.Vars.LastEvent
		s.Vars.ErrorMessage = ""
		s.Vars.StateBeforeError = ""
		s.Vars.LastEvent = nil
		return nil
	})
	if err != nil {
		return "", err
	}
	if last == nil {
		return "", nil
	}
	in.replay = last
	return last.Type, nil
}

// completeOrder persists the order and renders its receipt. SaveOrder must be
// idempotent per session, so a RETRY after a render failure does not create
// a second order.
func (c *Coordinator) completeOrder(ctx context.Context, in *Input) (model.EventType, error) {
	sess, err := c.store.Get(ctx, in.SessionID)
	if err != nil {
		return "", err
	}
	draft, err := c.svc.Confirmation.BuildDraft(sess)
	if err != nil {
		return "", fmt.Errorf("build order: %w", err)
	}
	orderID, err := c.orders.SaveOrder(ctx, draft)
	if err != nil {
		return "", fmt.Errorf("save order: %w", err)
	}

	var doc []byte
	if c.receipts != nil {
		doc, err = c.receipts.Render(ctx, orderID)
		if err != nil {
			return "", fmt.Errorf("render receipt for order %s: %w", orderID, err)
		}
	}
	if _, err := c.svc.Confirmation.RecordCompletion(ctx, in.SessionID, orderID, len(doc)); err != nil {
		return "", err
	}
	log.FromContext(ctx).Info().
		Str(log.FieldSessionID, in.SessionID).
		Str(log.FieldOrderID, orderID).
		Int64("total_minor", int64(draft.Totals.TotalAmount)).
		Msg("order saved")
	return "", nil
}
