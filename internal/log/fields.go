// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID = "session_id"
	FieldRequestID = "request_id"
	FieldOrderID   = "order_id"
	FieldClientID  = "client_id"
	FieldService   = "service"
	FieldVersion   = "version"

	// Wizard fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldMachine   = "machine"
	FieldSubstep   = "substep"
	FieldOldState  = "old_state"
	FieldNewState  = "new_state"
	FieldFollowUp  = "follow_up"

	// Store fields
	FieldBackend = "backend"
	FieldPath    = "path"
	FieldAddr    = "addr"
)
