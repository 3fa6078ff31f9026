// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by every span ordwiz emits.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"

	WizardSessionKey  = "wizard.session_id"
	WizardMachineKey  = "wizard.machine"
	WizardEventKey    = "wizard.event"
	WizardFromKey     = "wizard.from"
	WizardToKey       = "wizard.to"
	WizardFollowUpKey = "wizard.follow_ups"

	PricingItemsKey = "pricing.items"
	PricingTotalKey = "pricing.total_minor"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes labels a server span with the matched route.
func HTTPAttributes(method, route string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// DispatchAttributes describes one coordinator dispatch.
func DispatchAttributes(sessionID, event, from string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if sessionID != "" {
		attrs = append(attrs, attribute.String(WizardSessionKey, sessionID))
	}
	attrs = append(attrs, attribute.String(WizardEventKey, event))
	if from != "" {
		attrs = append(attrs, attribute.String(WizardFromKey, from))
	}
	return attrs
}

// TransitionAttributes describes the result of a dispatch.
func TransitionAttributes(machine, to string, followUps int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(WizardMachineKey, machine),
		attribute.String(WizardToKey, to),
		attribute.Int(WizardFollowUpKey, followUps),
	}
}

func PricingAttributes(items int, totalMinor int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(PricingItemsKey, items),
		attribute.Int64(PricingTotalKey, totalMinor),
	}
}

func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
