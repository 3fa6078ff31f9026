// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/ordwiz/internal/log"
)

func ok(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func TestRateLimit_EnforcesLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{RequestLimit: 3, WindowSize: time.Minute})(http.HandlerFunc(ok))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "RATE_LIMITED", body["code"])

	other := httptest.NewRequest(http.MethodGet, "/x", nil)
	other.RemoteAddr = "10.0.0.7:1"
	w = httptest.NewRecorder()
	h.ServeHTTP(w, other)
	assert.Equal(t, http.StatusOK, w.Code, "limits are per client IP")
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = log.RequestIDFromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(HeaderRequestID))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", seen)
}

func TestRecoverer(t *testing.T) {
	h := Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	w := httptest.NewRecorder()
	require.NotPanics(t, func() { h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil)) })

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "INTERNAL_ERROR", body["code"])
}

func TestApplyStack(t *testing.T) {
	r := chi.NewRouter()
	ApplyStack(r, StackConfig{
		EnableMetrics: true,
		EnableLogging: true,
		RateLimit:     RateLimitConfig{RequestLimit: 1, WindowSize: time.Minute},
	})
	r.Get("/items/{id}", ok)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/2", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestThrottle_PerKey(t *testing.T) {
	mw := Throttle("test", ThrottleConfig{PerSecond: 0.001, Burst: 2}, func(r *http.Request) string {
		return r.URL.Query().Get("k")
	})
	h := mw(http.HandlerFunc(ok))

	codes := func(key string, n int) []int {
		var out []int
		for range n {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/?k="+key, nil))
			out = append(out, w.Code)
		}
		return out
	}

	assert.Equal(t, []int{200, 200, 429}, codes("a", 3))
	assert.Equal(t, []int{200, 200}, codes("b", 2), "buckets are independent")
	assert.Equal(t, []int{200, 200, 200}, codes("", 3), "empty key is not throttled")
}

func TestThrottle_Disabled(t *testing.T) {
	h := Throttle("test", ThrottleConfig{}, func(*http.Request) string { return "k" })(http.HandlerFunc(ok))
	for range 5 {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestKeyedLimiter_DropsIdleBuckets(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewKeyedLimiter(ThrottleConfig{PerSecond: 1, Burst: 1, IdleTTL: time.Minute})
	l.now = func() time.Time { return now }
	l.lastCleanup = now

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.Equal(t, 1, l.Len())

	now = now.Add(2 * time.Minute)
	assert.True(t, l.Allow("b"))
	assert.Equal(t, 1, l.Len(), "idle bucket a is gone")
}
