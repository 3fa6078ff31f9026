// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ManuGH/ordwiz/internal/domain/pricing"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/coordinator"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/model"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/ports"
	"github.com/ManuGH/ordwiz/internal/log"
)

// Error codes carried in the envelope.
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeSessionNotFound      = "SESSION_NOT_FOUND"
	CodeSessionExists        = "SESSION_EXISTS"
	CodeConcurrentTransition = "CONCURRENT_TRANSITION"
	CodeInvalidPricingInput  = "INVALID_PRICING_INPUT"
	CodeNotFound             = "NOT_FOUND"
	CodeMethodNotAllowed     = "METHOD_NOT_ALLOWED"
	CodeReceiptsDisabled     = "RECEIPTS_DISABLED"
	CodeClientsDisabled      = "CLIENT_SEARCH_DISABLED"
	CodeInternal             = "INTERNAL_ERROR"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	if status >= http.StatusInternalServerError {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Str("code", code).Str(log.FieldPath, r.URL.Path).Msg(message)
	}
	writeJSON(w, status, ErrorResponse{Code: code, Message: message, Details: details})
}

// writeDomainError maps sentinel errors onto status codes. Unknown errors are 500s
// and their text is not exposed.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrSessionNotFound):
		writeError(w, r, http.StatusNotFound, CodeSessionNotFound, err.Error(), nil)
	case errors.Is(err, model.ErrSessionExists):
		writeError(w, r, http.StatusConflict, CodeSessionExists, err.Error(), nil)
	case errors.Is(err, coordinator.ErrConcurrentTransition):
		writeError(w, r, http.StatusConflict, CodeConcurrentTransition, err.Error(), nil)
	case errors.Is(err, pricing.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, CodeInvalidPricingInput, err.Error(), nil)
	case errors.Is(err, ports.ErrNotFound):
		writeError(w, r, http.StatusNotFound, CodeNotFound, err.Error(), nil)
	default:
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Str(log.FieldPath, r.URL.Path).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Code: CodeInternal, Message: "internal error"})
	}
}

// decodeJSON reads a single JSON object with unknown fields rejected.
// An empty body leaves v untouched when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return true
		}
		writeError(w, r, http.StatusBadRequest, CodeInvalidRequest, "invalid JSON body: "+err.Error(), nil)
		return false
	}
	if dec.More() {
		writeError(w, r, http.StatusBadRequest, CodeInvalidRequest, "body must contain a single JSON object", nil)
		return false
	}
	return true
}
