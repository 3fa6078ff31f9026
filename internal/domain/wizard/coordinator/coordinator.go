// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package coordinator owns the top-level order wizard state machine and the
// nested item machine. It is the only component that changes TopState or the
// item phase of a session.
//
// Every event for a session is processed under that session's lock: the
// current state is loaded, guards are evaluated, the winning action runs and
// the new state is committed with a compare-and-set against the state the
// event was evaluated in. Actions may request a follow-up event, which is
// processed in the same critical section.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/ordwiz/internal/domain/wizard/fsm"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/model"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/ports"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/store"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/workflow"
	"github.com/ManuGH/ordwiz/internal/log"
	"github.com/ManuGH/ordwiz/internal/metrics"
	"github.com/ManuGH/ordwiz/internal/platform/syncx"
	"github.com/ManuGH/ordwiz/internal/telemetry"
)

var (
	// ErrConcurrentTransition means the committed state no longer matched the
	// state the event was evaluated against.
	ErrConcurrentTransition = errors.New("concurrent transition detected")
	// ErrAutoAdvanceLimit stops a runaway chain of follow-up events.
	ErrAutoAdvanceLimit = errors.New("auto-advance limit exceeded")
)

// DefaultMaxAutoSteps bounds the events processed by one Dispatch.
const DefaultMaxAutoSteps = 16

const (
	machineTop  = "order"
	machineItem = "item"
)

// Config wires the coordinator.
type Config struct {
	Store    store.Store
	Services *workflow.Services
	Orders   ports.OrderPersistence
	Receipts ports.ReceiptRenderer // optional

	NewID        func() string
	MaxAutoSteps int
}

// Coordinator dispatches events to wizard sessions.
type Coordinator struct {
	store    store.Store
	svc      *workflow.Services
	orders   ports.OrderPersistence
	receipts ports.ReceiptRenderer

	top  *fsm.Machine[model.TopState, model.EventType, *Input]
	item *fsm.Machine[model.ItemPhase, model.EventType, *Input]

	locks    syncx.KeyedMutex
	newID    func() string
	maxSteps int
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// New validates cfg and builds both transition tables.
func New(cfg Config) (*Coordinator, error) {
	if cfg.Store == nil {
		return nil, errors.New("coordinator: store is required")
	}
	if cfg.Services == nil {
		return nil, errors.New("coordinator: workflow services are required")
	}
	if cfg.Orders == nil {
		return nil, errors.New("coordinator: order persistence is required")
	}
	c := &Coordinator{
		store:    cfg.Store,
		svc:      cfg.Services,
		orders:   cfg.Orders,
		receipts: cfg.Receipts,
		newID:    cfg.NewID,
		maxSteps: cfg.MaxAutoSteps,
		logger:   log.WithComponent("coordinator"),
		tracer:   telemetry.Tracer("ordwiz/wizard"),
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	if c.maxSteps <= 0 {
		c.maxSteps = DefaultMaxAutoSteps
	}

	var err error
	if c.top, err = fsm.New(machineTop, c.topTransitions()); err != nil {
		return nil, err
	}
	if c.item, err = fsm.New(machineItem, c.itemTransitions()); err != nil {
		return nil, err
	}
	return c, nil
}

// Outcome reports what one Dispatch did.
type Outcome struct {
	SessionID string          `json:"sessionId"`
	Event     model.EventType `json:"event"`
	From      model.TopState  `json:"from"`
	To        model.TopState  `json:"to"`
	Phase     model.ItemPhase `json:"phase,omitempty"`
	// Fired lists every event that fired, including follow-ups.
	Fired     []model.EventType `json:"fired,omitempty"`
	FollowUps []model.EventType `json:"followUps,omitempty"`
	Denied    bool              `json:"denied"`
	Errors    []string          `json:"errors,omitempty"`
	// Snapshot is the session after the dispatch. For terminal states it is
	// the last copy before removal.
	Snapshot      *model.Session    `json:"snapshot,omitempty"`
	AllowedEvents []model.EventType `json:"allowedEvents,omitempty"`
}

// Err maps the outcome onto the error taxonomy: ErrGuardDenied for denials,
// *model.ValidationError for rejected input and *model.ActionFailure when the
// session was parked in SYSTEM_ERROR. It is nil when the event fired.
func (o *Outcome) Err() error {
	switch {
	case o.Denied:
		return fmt.Errorf("%w: %s", model.ErrGuardDenied, strings.Join(o.Errors, "; "))
	case len(o.Errors) == 0:
		return nil
	case o.To == model.StateSystemError:
		return &model.ActionFailure{Event: o.Event, Err: errors.New(o.Errors[0])}
	default:
		return model.NewValidationError(o.Errors...)
	}
}

// Start creates a session and fires START_ORDER. An empty id is generated.
func (c *Coordinator) Start(ctx context.Context, id string) (*Outcome, error) {
	if id == "" {
		id = c.newID()
	}
	if _, err := c.store.Create(ctx, id); err != nil {
		return nil, err
	}
	c.logger.Info().Str(log.FieldSessionID, id).Msg("wizard session created")
	return c.Dispatch(ctx, id, model.Event{Type: model.EventStartOrder})
}

// Abandon cancels the session.
func (c *Coordinator) Abandon(ctx context.Context, id string) (*Outcome, error) {
	return c.Dispatch(ctx, id, model.Event{Type: model.EventCancelOrder})
}

// Snapshot returns the session together with the events it currently accepts.
func (c *Coordinator) Snapshot(ctx context.Context, id string) (*Outcome, error) {
	unlock := c.locks.Lock(id)
	defer unlock()

	sess, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &Outcome{SessionID: id, From: sess.TopState}
	c.finish(out, sess)
	return out, nil
}

// AllowedEvents lists the events with an edge out of the session's current
// state. Guards are not evaluated.
func (c *Coordinator) AllowedEvents(s *model.Session) []model.EventType {
	events := c.top.Events(s.TopState)
	if s.TopState == model.StateItemManagement {
		seen := make(map[model.EventType]bool, len(events))
		for _, ev := range events {
			seen[ev] = true
		}
		for _, ev := range c.item.Events(phaseOf(s)) {
			if !seen[ev] {
				events = append(events, ev)
			}
		}
	}
	return events
}

// Dispatch processes ev and any follow-up events it triggers. Validation
// failures and guard denials are reported in the Outcome with a nil error.
// Action failures move the session to SYSTEM_ERROR and are also reported in
// the Outcome. The returned error is reserved for missing sessions, lost
// compare-and-set races and store failures.
func (c *Coordinator) Dispatch(ctx context.Context, id string, ev model.Event) (*Outcome, error) {
	unlock := c.locks.Lock(id)
	defer unlock()

	start := time.Now()
	ctx = log.ContextWithSessionID(ctx, id)
	ctx, span := c.tracer.Start(ctx, "wizard.dispatch",
		trace.WithAttributes(telemetry.DispatchAttributes(id, string(ev.Type), "")...))
	defer span.End()

	out := &Outcome{SessionID: id, Event: ev.Type}
	result := metrics.OutcomeFired
	defer func() {
		metrics.WizardDispatchDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	}()

	err := c.run(ctx, id, ev, out)
	switch {
	case err != nil && errors.Is(err, ErrConcurrentTransition):
		result = metrics.OutcomeConflict
	case err != nil:
		result = metrics.OutcomeFailed
	case out.Denied:
		result = metrics.OutcomeDenied
	case len(out.Errors) > 0:
		result = metrics.OutcomeInvalid
	}
	if err != nil {
		telemetry.Fail(span, err, result)
		return out, err
	}

	sess, err := c.store.Get(ctx, id)
	if err != nil {
		telemetry.Fail(span, err, "store")
		return out, err
	}
	c.finish(out, sess)
	span.SetAttributes(telemetry.TransitionAttributes(machineTop, string(out.To), len(out.FollowUps))...)
	span.SetAttributes(attribute.String(telemetry.WizardFromKey, string(out.From)))

	if sess.TopState.IsTerminal() {
		if err := c.store.Remove(ctx, id); err != nil && !errors.Is(err, model.ErrSessionNotFound) {
			c.logger.Warn().Err(err).Str(log.FieldSessionID, id).Msg("failed to remove terminal session")
		}
		c.logger.Info().
			Str(log.FieldSessionID, id).
			Str(log.FieldNewState, string(sess.TopState)).
			Str(log.FieldOrderID, sess.Vars.OrderID).
			Msg("wizard session finished")
	}
	return out, nil
}

func (c *Coordinator) finish(out *Outcome, sess *model.Session) {
	out.To = sess.TopState
	if sess.TopState == model.StateItemManagement {
		out.Phase = phaseOf(sess)
	}
	out.Snapshot = sess
	if !sess.TopState.IsTerminal() {
		out.AllowedEvents = c.AllowedEvents(sess)
	}
}

// run is the auto-advance loop. It holds the session lock for its whole duration.
func (c *Coordinator) run(ctx context.Context, id string, ev model.Event, out *Outcome) error {
	logger := log.WithContext(ctx, c.logger)
	cur := ev
	for n := 0; ; n++ {
		if n >= c.maxSteps {
			return fmt.Errorf("%w: %d events, last %s", ErrAutoAdvanceLimit, n, cur.Type)
		}
		sess, err := c.store.Get(ctx, id)
		if err != nil {
			return err
		}
		if n == 0 {
			out.From = sess.TopState
		}

		in := &Input{SessionID: id, Event: cur, Session: sess}
		st, err := c.step(ctx, sess, in)
		if err != nil {
			if msgs, ok := model.AsValidation(err); ok {
				metrics.WizardValidationErrorsTotal.WithLabelValues(string(cur.Type)).Inc()
				logger.Debug().Str(log.FieldEvent, string(cur.Type)).Strs("errors", msgs).Msg("event rejected")
				out.Errors = msgs
				return nil
			}
			if !isActionFailure(err) {
				return err
			}
			return c.fail(ctx, sess, cur, err, out)
		}

		if st.denied {
			metrics.WizardGuardDeniedTotal.WithLabelValues(st.machine, string(cur.Type)).Inc()
			if len(in.reasons) == 0 {
				in.deny(fmt.Sprintf("event %s was denied in state %s", cur.Type, st.from))
			}
			denied := logger.Info().Str(log.FieldMachine, st.machine).Str(log.FieldEvent, string(cur.Type)).Str(log.FieldOldState, st.from)
			if len(st.guardErrs) > 0 {
				denied = denied.Errs("guard_errors", st.guardErrs)
			}
			denied.Strs("reasons", in.reasons).Msg("transition denied")
			out.Denied = true
			out.Errors = in.reasons
			return nil
		}

		out.Fired = append(out.Fired, cur.Type)
		if st.from != st.to {
			metrics.WizardTransitionsTotal.WithLabelValues(st.machine, st.from, st.to, string(cur.Type)).Inc()
			logger.Info().
				Str(log.FieldMachine, st.machine).
				Str(log.FieldEvent, string(cur.Type)).
				Str(log.FieldOldState, st.from).
				Str(log.FieldNewState, st.to).
				Msg("transition")
			switch model.TopState(st.to) {
			case model.StateCompleted:
				metrics.WizardOrdersCompletedTotal.Inc()
			case model.StateAbandoned:
				metrics.WizardSessionsAbandonedTotal.Inc()
			}
		}

		if st.follow == "" {
			return nil
		}
		out.FollowUps = append(out.FollowUps, st.follow)
		logger.Debug().Str(log.FieldFollowUp, string(st.follow)).Msg("auto-advance")
		if in.replay != nil && in.replay.Type == st.follow {
			cur = *in.replay
		} else {
			cur = model.Event{Type: st.follow}
		}
	}
}

// isActionFailure separates collaborator failures, which park the session in
// SYSTEM_ERROR, from conditions reported to the caller directly.
func isActionFailure(err error) bool {
	switch {
	case errors.Is(err, ErrConcurrentTransition),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, model.ErrContextNotFound):
		return true
	case errors.Is(err, model.ErrSessionNotFound):
		return false
	}
	return true
}

// fail parks the session in SYSTEM_ERROR, remembering where it was and which
// event to replay on RETRY.
func (c *Coordinator) fail(ctx context.Context, sess *model.Session, ev model.Event, cause error, out *Outcome) error {
	af := &model.ActionFailure{Event: ev.Type, Err: cause}
	metrics.WizardActionFailuresTotal.WithLabelValues(string(ev.Type)).Inc()

	var pe *fsm.PanicError
	logger := log.WithContext(ctx, c.logger)
	logEvt := logger.Error().Err(cause).
		Str(log.FieldEvent, string(ev.Type)).
		Str(log.FieldOldState, string(sess.TopState))
	if errors.As(cause, &pe) {
		logEvt = logEvt.Bytes("stack", pe.Stack)
	}
	logEvt.Msg("action failed, session moved to SYSTEM_ERROR")

	_, err := c.store.Update(ctx, sess.ID, func(s *model.Session) error {
		if s.TopState != model.StateSystemError {
			s.Vars.StateBeforeError = s.TopState
		}
		s.TopState = model.StateSystemError
		s.Vars.ErrorMessage = af.Error()
		last := ev
		s.Vars.LastEvent = &last
		return nil
	})
	if err != nil {
		return err
	}
	if sess.TopState != model.StateSystemError {
		metrics.WizardTransitionsTotal.WithLabelValues(machineTop, string(sess.TopState), string(model.StateSystemError), string(ev.Type)).Inc()
	}
	out.Errors = []string{af.Error()}
	return nil
}

type stepResult struct {
	machine   string
	from, to  string
	denied    bool
	follow    model.EventType
	guardErrs []error
}

// step routes one event. While an item substep is open the item machine
// handles the events it knows; everything else goes to the order machine.
func (c *Coordinator) step(ctx context.Context, sess *model.Session, in *Input) (stepResult, error) {
	if sess.TopState == model.StateItemManagement && c.item.Can(phaseOf(sess), in.Event.Type) {
		return fire(ctx, c, c.item, phaseOf(sess), in, itemPhaseOf, setPhase)
	}
	return fire(ctx, c, c.top, sess.TopState, in, topStateOf, setTopState)
}

func fire[S ~string](
	ctx context.Context,
	c *Coordinator,
	m *fsm.Machine[S, model.EventType, *Input],
	from S,
	in *Input,
	stateOf func(*model.Session) S,
	set func(*model.Session, S),
) (stepResult, error) {
	res, err := m.Step(ctx, from, in.Event.Type, in)
	out := stepResult{
		machine:   m.Name(),
		from:      string(from),
		to:        string(res.To),
		denied:    res.Denied,
		follow:    res.Follow,
		guardErrs: res.GuardErrs,
	}
	if errors.Is(err, fsm.ErrNoTransition) {
		out.denied = true
		in.deny(fmt.Sprintf("event %s is not allowed in state %s", in.Event.Type, from))
		return out, nil
	}
	if err != nil || res.Denied || res.To == from {
		return out, err
	}

	_, err = c.store.Update(ctx, in.SessionID, func(s *model.Session) error {
		if got := stateOf(s); got != from {
			return fmt.Errorf("%w: %s expected %s, found %s", ErrConcurrentTransition, m.Name(), from, got)
		}
		set(s, res.To)
		return nil
	})
	return out, err
}

func phaseOf(s *model.Session) model.ItemPhase {
	if s.Items == nil || s.Items.Phase == "" {
		return model.PhaseIdle
	}
	return s.Items.Phase
}

func topStateOf(s *model.Session) model.TopState { return s.TopState }

func setTopState(s *model.Session, st model.TopState) { s.TopState = st }

// itemPhaseOf reports no phase once the session has left ITEM_MANAGEMENT,
// so a stale item commit loses the compare-and-set.
func itemPhaseOf(s *model.Session) model.ItemPhase {
	if s.TopState != model.StateItemManagement {
		return ""
	}
	return phaseOf(s)
}

func setPhase(s *model.Session, p model.ItemPhase) {
	if s.Items == nil {
		s.Items = &model.ItemManagementContext{Items: []model.OrderItem{}, EditingIndex: -1}
	}
	s.Items.Phase = p
}
