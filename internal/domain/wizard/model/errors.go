// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSessionNotFound means the session is gone; callers re-initialize.
	ErrSessionNotFound = errors.New("session not found")
	// ErrContextNotFound means a stage or substep context has not been created yet.
	ErrContextNotFound = fmt.Errorf("%w: stage context missing", ErrSessionNotFound)
	ErrSessionExists   = errors.New("session already exists")
	ErrGuardDenied     = errors.New("transition denied by guard")
)

// ValidationError is a user-correctable failure with field-level messages.
type ValidationError struct {
	Errors []string
}

func NewValidationError(msgs ...string) *ValidationError {
	return &ValidationError{Errors: msgs}
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

// ActionFailure wraps a collaborator failure raised while running an action.
type ActionFailure struct {
	Event EventType
	Err   error
}

func (e *ActionFailure) Error() string {
	return fmt.Sprintf("action for %s failed: %v", e.Event, e.Err)
}

func (e *ActionFailure) Unwrap() error { return e.Err }

// AsValidation extracts the validation messages from err, if any.
func AsValidation(err error) ([]string, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Errors, true
	}
	return nil, false
}
