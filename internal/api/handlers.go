// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/ordwiz/internal/domain/pricing"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/model"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/ports"
	"github.com/ManuGH/ordwiz/internal/telemetry"
)

type startRequest struct {
	SessionID string `json:"sessionId,omitempty"`
}

type eventRequest struct {
	Type    model.EventType `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	out, err := s.deps.Wizard.Start(r.Context(), req.SessionID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/wizard/sessions/"+out.SessionID)
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	out, err := s.deps.Wizard.Snapshot(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAbandonSession(w http.ResponseWriter, r *http.Request) {
	out, err := s.deps.Wizard.Abandon(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleDispatch answers 200 for every processed event, including denied and
// invalid ones; the outcome body says what happened.
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if req.Type == "" {
		writeError(w, r, http.StatusBadRequest, CodeInvalidRequest, "event type is required", nil)
		return
	}
	ev := model.Event{Type: req.Type, Payload: req.Payload}
	out, err := s.deps.Wizard.Dispatch(r.Context(), chi.URLParam(r, "sessionID"), ev)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSearchClients(w http.ResponseWriter, r *http.Request) {
	if s.deps.Clients == nil {
		writeError(w, r, http.StatusServiceUnavailable, CodeClientsDisabled, "client search is not configured", nil)
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if utf8.RuneCountInString(q) < 2 {
		writeError(w, r, http.StatusBadRequest, CodeInvalidRequest, "query parameter q needs at least 2 characters", nil)
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			writeError(w, r, http.StatusBadRequest, CodeInvalidRequest, "limit must be between 1 and 100", nil)
			return
		}
		limit = n
	}
	found, err := s.deps.Clients.SearchClients(r.Context(), q, limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if found == nil {
		found = []model.Client{}
	}
	writeJSON(w, http.StatusOK, found)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.deps.Catalog.ListServiceCategories(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.deps.Catalog.ListItemsForCategory(r.Context(), chi.URLParam(r, "categoryID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleListModifiers(w http.ResponseWriter, r *http.Request) {
	mods, err := s.deps.Modifiers.ListApplicableModifiers(r.Context(), chi.URLParam(r, "categoryID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mods)
}

// QuoteRequest prices a single item outside any wizard session.
type QuoteRequest struct {
	BasePrice        pricing.Money               `json:"basePrice"`
	Quantity         decimal.Decimal             `json:"quantity"`
	Modifiers        []pricing.ModifierSelection `json:"modifiers,omitempty"`
	Urgency          pricing.Urgency             `json:"urgency,omitempty"`
	DiscountPercent  decimal.Decimal             `json:"discountPercent"`
	DiscountEligible bool                        `json:"discountEligible"`
}

// Input converts the request into engine input.
func (q QuoteRequest) Input() pricing.Input {
	return pricing.Input{
		BaseUnitPrice:    q.BasePrice,
		Quantity:         q.Quantity,
		Modifiers:        q.Modifiers,
		Urgency:          q.Urgency,
		DiscountPercent:  q.DiscountPercent,
		DiscountEligible: q.DiscountEligible,
	}
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	br, err := pricing.Compute(req.Input())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	trace.SpanFromContext(r.Context()).SetAttributes(telemetry.PricingAttributes(1, int64(br.FinalTotalPrice))...)
	writeJSON(w, http.StatusOK, br)
}

func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	if s.deps.Receipts == nil {
		writeError(w, r, http.StatusServiceUnavailable, CodeReceiptsDisabled, "receipt rendering is not configured", nil)
		return
	}
	orderID := chi.URLParam(r, "orderID")
	body, err := s.deps.Receipts.Render(r.Context(), orderID)
	if errors.Is(err, ports.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, CodeNotFound, "order "+orderID+" not found", nil)
		return
	}
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
