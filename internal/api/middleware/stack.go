// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package middleware holds the HTTP ingress stack shared by every route.
package middleware

import (
	"github.com/go-chi/chi/v5"
)

// StackConfig configures the canonical HTTP ingress middleware stack.
type StackConfig struct {
	EnableMetrics  bool
	TracingService string // empty disables tracing
	EnableLogging  bool
	// RateLimit.RequestLimit 0 disables rate limiting.
	RateLimit RateLimitConfig
	// SessionEvents throttles event dispatch per wizard session.
	SessionEvents ThrottleConfig
}

// ApplyStack applies the canonical middleware stack to r.
func ApplyStack(r chi.Router, cfg StackConfig) {
	// Recoverer is outermost so every other layer is covered.
	r.Use(Recoverer)
	r.Use(RequestID)
	if cfg.TracingService != "" {
		r.Use(OTelHTTP(cfg.TracingService))
	}
	if cfg.EnableMetrics {
		r.Use(Metrics())
	}
	if cfg.EnableLogging {
		r.Use(AccessLog())
	}
	if cfg.RateLimit.RequestLimit > 0 {
		r.Use(RateLimit(cfg.RateLimit))
	}
}
