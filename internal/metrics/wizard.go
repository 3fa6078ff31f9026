// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics provides Prometheus metrics for the order wizard.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// No session or order ids in labels.

var (
	// WizardTransitionsTotal counts committed state changes by machine.
	WizardTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordwiz_wizard_transitions_total",
		Help: "Total number of committed wizard transitions, by machine, source, target and event.",
	}, []string{"machine", "from", "to", "event"})

	// WizardGuardDeniedTotal counts events blocked by a guard or without a matching edge.
	WizardGuardDeniedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordwiz_wizard_guard_denied_total",
		Help: "Total number of wizard events denied by a guard, by machine and event.",
	}, []string{"machine", "event"})

	// WizardActionFailuresTotal counts actions that moved a session to SYSTEM_ERROR.
	WizardActionFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordwiz_wizard_action_failures_total",
		Help: "Total number of wizard action failures, by event.",
	}, []string{"event"})

	// WizardValidationErrorsTotal counts user-correctable rejections.
	WizardValidationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordwiz_wizard_validation_errors_total",
		Help: "Total number of events rejected with validation errors, by event.",
	}, []string{"event"})

	// WizardOrdersCompletedTotal counts sessions that reached STAGE4_COMPLETED.
	WizardOrdersCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordwiz_wizard_orders_completed_total",
		Help: "Total number of orders completed through the wizard.",
	})

	// WizardSessionsAbandonedTotal counts cancelled sessions.
	WizardSessionsAbandonedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordwiz_wizard_sessions_abandoned_total",
		Help: "Total number of abandoned wizard sessions.",
	})

	// WizardDispatchDuration observes one Dispatch call including follow-ups.
	WizardDispatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ordwiz_wizard_dispatch_duration_seconds",
		Help:    "Duration of wizard dispatches, by outcome.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	}, []string{"outcome"})
)

// Dispatch outcomes.
const (
	OutcomeFired    = "fired"
	OutcomeDenied   = "denied"
	OutcomeInvalid  = "invalid"
	OutcomeFailed   = "failed"
	OutcomeConflict = "conflict"
)
