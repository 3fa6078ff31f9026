// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package fsm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	state string
	event string
)

type spy struct {
	guard   bool
	guardE  error
	actions int
}

func (s *spy) allow(context.Context, *spy) (bool, error) { return s.guard, s.guardE }

func count(_ context.Context, s *spy) (event, error) {
	s.actions++
	return "", nil
}

func TestStep_FalseGuardNeverRunsAction(t *testing.T) {
	sp := &spy{guard: false}
	m := MustNew("test", []Transition[state, event, *spy]{
		{From: "a", Event: "go", To: "b", Guard: sp.allow, Action: count},
	})

	res, err := m.Step(context.Background(), "a", "go", sp)
	require.NoError(t, err)
	assert.True(t, res.Denied)
	assert.False(t, res.Fired)
	assert.Equal(t, state("a"), res.To)
	assert.Zero(t, sp.actions)

	sp.guard = true
	res, err = m.Step(context.Background(), "a", "go", sp)
	require.NoError(t, err)
	assert.True(t, res.Fired)
	assert.Equal(t, state("b"), res.To)
	assert.Equal(t, 1, sp.actions)
}

func TestStep_GuardErrorIsDenial(t *testing.T) {
	sp := &spy{guard: true, guardE: errors.New("store down")}
	m := MustNew("test", []Transition[state, event, *spy]{
		{From: "a", Event: "go", To: "b", Guard: sp.allow, Action: count},
	})

	res, err := m.Step(context.Background(), "a", "go", sp)
	require.NoError(t, err)
	assert.True(t, res.Denied)
	assert.Len(t, res.GuardErrs, 1)
	assert.Zero(t, sp.actions)
}

func TestStep_FirstPassingAlternativeWins(t *testing.T) {
	deny := func(context.Context, *spy) (bool, error) { return false, nil }
	m := MustNew("test", []Transition[state, event, *spy]{
		{From: "a", Event: "next", To: "b", Guard: deny},
		{From: "a", Event: "next", To: "c", Action: func(context.Context, *spy) (event, error) { return "auto", nil }},
	})

	res, err := m.Step(context.Background(), "a", "next", &spy{})
	require.NoError(t, err)
	assert.Equal(t, state("c"), res.To)
	assert.Equal(t, event("auto"), res.Follow)
}

func TestStep_UnknownTransition(t *testing.T) {
	m := MustNew[state, event, *spy]("test", nil)
	_, err := m.Step(context.Background(), "a", "go", &spy{})
	assert.ErrorIs(t, err, ErrNoTransition)
}

func TestStep_ActionErrorAndPanic(t *testing.T) {
	boom := errors.New("boom")
	m := MustNew("test", []Transition[state, event, *spy]{
		{From: "a", Event: "fail", To: "b", Action: func(context.Context, *spy) (event, error) { return "", boom }},
		{From: "a", Event: "panic", To: "b", Action: func(context.Context, *spy) (event, error) { panic("kaput") }},
	})

	res, err := m.Step(context.Background(), "a", "fail", &spy{})
	assert.ErrorIs(t, err, boom)
	assert.False(t, res.Fired)

	_, err = m.Step(context.Background(), "a", "panic", &spy{})
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "kaput", pe.Value)
}

func TestNew_RejectsShadowedTransition(t *testing.T) {
	_, err := New("test", []Transition[state, event, *spy]{
		{From: "a", Event: "go", To: "b"},
		{From: "a", Event: "go", To: "c"},
	})
	assert.ErrorContains(t, err, "duplicate transition")
}

func TestEventsAndCan(t *testing.T) {
	m := MustNew("test", []Transition[state, event, *spy]{
		{From: "a", Event: "z", To: "a"},
		{From: "a", Event: "b", To: "b"},
		{From: "b", Event: "x", To: "a"},
	})
	assert.Equal(t, []event{"b", "z"}, m.Events("a"))
	assert.True(t, m.Can("b", "x"))
	assert.False(t, m.Can("b", "z"))
	assert.True(t, Transition[state, event, *spy]{From: "a", To: "a"}.Internal())
}
