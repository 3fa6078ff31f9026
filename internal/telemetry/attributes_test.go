// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func attr(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, a := range attrs {
		if string(a.Key) == key {
			return a.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestHTTPAttributes(t *testing.T) {
	attrs := HTTPAttributes("POST", "/api/v1/wizard/sessions/{id}/events", 200)
	if len(attrs) != 3 {
		t.Fatalf("Expected 3 attributes, got %d", len(attrs))
	}
	if v, _ := attr(attrs, HTTPStatusCodeKey); v.AsInt64() != 200 {
		t.Errorf("status code = %d", v.AsInt64())
	}
}

func TestDispatchAttributes(t *testing.T) {
	tests := []struct {
		name              string
		session, ev, from string
		wantLen           int
	}{
		{"all fields", "s1", "START_ORDER", "ORDER_START", 3},
		{"no session", "", "START_ORDER", "ORDER_START", 2},
		{"event only", "", "START_ORDER", "", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := DispatchAttributes(tt.session, tt.ev, tt.from)
			if len(attrs) != tt.wantLen {
				t.Errorf("Expected %d attributes, got %d", tt.wantLen, len(attrs))
			}
			if v, ok := attr(attrs, WizardEventKey); !ok || v.AsString() != tt.ev {
				t.Errorf("event attribute = %q", v.AsString())
			}
		})
	}
}

func TestTransitionAndPricingAttributes(t *testing.T) {
	attrs := TransitionAttributes("top", "ITEM_MANAGEMENT", 2)
	if v, _ := attr(attrs, WizardFollowUpKey); v.AsInt64() != 2 {
		t.Errorf("follow ups = %d", v.AsInt64())
	}
	attrs = PricingAttributes(3, 32400)
	if v, _ := attr(attrs, PricingTotalKey); v.AsInt64() != 32400 {
		t.Errorf("total = %d", v.AsInt64())
	}
}

func TestErrorAttributes(t *testing.T) {
	attrs := ErrorAttributes("guard_error")
	if v, _ := attr(attrs, ErrorKey); !v.AsBool() {
		t.Error("error flag not set")
	}
}
