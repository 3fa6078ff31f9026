// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package fsm is a small table-driven state machine whose state lives outside
// the machine. Callers load the current state, Step it, and persist the result.
package fsm

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"
)

// ErrNoTransition means no edge leaves the current state on the event.
var ErrNoTransition = errors.New("invalid transition")

// Guard decides whether a transition may fire. An error counts as false.
type Guard[In any] func(ctx context.Context, in In) (bool, error)

// Action runs the side effects of a transition. It may request a follow-up
// event, which the caller dispatches after committing To.
type Action[E ~string, In any] func(ctx context.Context, in In) (follow E, err error)

// Transition describes a single edge. Several edges may share From and Event;
// the first whose guard passes wins.
type Transition[S ~string, E ~string, In any] struct {
	From   S
	Event  E
	To     S
	Guard  Guard[In]
	Action Action[E, In]
}

// Internal reports whether the edge keeps the machine in the same state.
func (t Transition[S, E, In]) Internal() bool { return t.From == t.To }

// Result is the outcome of Step.
type Result[S ~string, E ~string] struct {
	From      S
	To        S
	Fired     bool
	Denied    bool
	Follow    E
	GuardErrs []error
}

// PanicError is returned when an action panics.
type PanicError struct {
	Value any
	Stack []byte
}

func (p *PanicError) Error() string { return fmt.Sprintf("action panicked: %v", p.Value) }

// Machine is an immutable transition table. It is safe for concurrent use.
type Machine[S ~string, E ~string, In any] struct {
	name  string
	index map[string][]Transition[S, E, In]
}

// New indexes transitions. An edge that follows an unguarded edge with the
// same From and Event can never fire and is rejected.
func New[S ~string, E ~string, In any](name string, transitions []Transition[S, E, In]) (*Machine[S, E, In], error) {
	idx := make(map[string][]Transition[S, E, In], len(transitions))
	for _, t := range transitions {
		k := key(t.From, t.Event)
		for _, prev := range idx[k] {
			if prev.Guard == nil {
				return nil, fmt.Errorf("%s: duplicate transition: %s -> %s", name, t.From, t.Event)
			}
		}
		idx[k] = append(idx[k], t)
	}
	return &Machine[S, E, In]{name: name, index: idx}, nil
}

// MustNew is New for static tables.
func MustNew[S ~string, E ~string, In any](name string, transitions []Transition[S, E, In]) *Machine[S, E, In] {
	m, err := New(name, transitions)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Machine[S, E, In]) Name() string { return m.name }

// Can reports whether any edge leaves from on event, ignoring guards.
func (m *Machine[S, E, In]) Can(from S, event E) bool {
	return len(m.index[key(from, event)]) > 0
}

// Events lists the events accepted in state from, sorted.
func (m *Machine[S, E, In]) Events(from S) []E {
	var out []E
	for _, ts := range m.index {
		if ts[0].From == from {
			out = append(out, ts[0].Event)
		}
	}
	slices.Sort(out)
	return out
}

// Step evaluates the guards of every edge matching (from, event) in order and
// runs the action of the first one that passes. The action never runs when
// its guard is false. Step does not persist anything.
func (m *Machine[S, E, In]) Step(ctx context.Context, from S, event E, in In) (Result[S, E], error) {
	res := Result[S, E]{From: from, To: from}
	candidates := m.index[key(from, event)]
	if len(candidates) == 0 {
		return res, fmt.Errorf("%w: machine=%s state=%s event=%s", ErrNoTransition, m.name, from, event)
	}

	for _, t := range candidates {
		if t.Guard != nil {
			ok, err := t.Guard(ctx, in)
			if err != nil {
				res.GuardErrs = append(res.GuardErrs, err)
				continue
			}
			if !ok {
				continue
			}
		}
		follow, err := runAction(ctx, t.Action, in)
		if err != nil {
			return res, err
		}
		res.Fired = true
		res.To = t.To
		res.Follow = follow
		return res, nil
	}

	res.Denied = true
	return res, nil
}

func runAction[E ~string, In any](ctx context.Context, a Action[E, In], in In) (follow E, err error) {
	if a == nil {
		return follow, nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return a(ctx, in)
}

func key[S ~string, E ~string](from S, event E) string {
	return string(from) + "|" + string(event)
}
