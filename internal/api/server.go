// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api exposes the order wizard over HTTP. Clients start a session,
// send events and read back snapshots; the coordinator decides everything else.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/ordwiz/internal/api/middleware"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/coordinator"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/ports"
	"github.com/ManuGH/ordwiz/internal/log"
)

const maxBodyBytes = 1 << 20

// Deps are the collaborators behind the routes. Receipts and Clients are optional.
type Deps struct {
	Wizard    *coordinator.Coordinator
	Catalog   ports.CatalogProvider
	Modifiers ports.ModifierProvider
	Receipts  ports.ReceiptRenderer
	Clients   ports.ClientSearcher
	Stack     middleware.StackConfig
	Version   string
}

// Server owns the router.
type Server struct {
	deps       Deps
	router     chi.Router
	apiVersion string
	logger     zerolog.Logger
}

// New builds the router. Wizard and Catalog are required.
func New(deps Deps) (*Server, error) {
	if deps.Wizard == nil {
		return nil, errors.New("api: wizard coordinator is required")
	}
	if deps.Catalog == nil || deps.Modifiers == nil {
		return nil, errors.New("api: catalog and modifier providers are required")
	}
	doc, err := LoadOpenAPI(context.Background())
	if err != nil {
		return nil, err
	}
	s := &Server{deps: deps, logger: log.WithComponent("api"), apiVersion: doc.Info.Version}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	middleware.ApplyStack(r, s.deps.Stack)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route(BaseURL, func(r chi.Router) {
		r.Get("/openapi.yaml", s.handleOpenAPI)
		r.Route("/wizard/sessions", func(r chi.Router) {
			r.Post("/", s.handleStartSession)
			r.Get("/{sessionID}", s.handleGetSession)
			r.Delete("/{sessionID}", s.handleAbandonSession)
			r.With(middleware.Throttle("session_events", s.deps.Stack.SessionEvents, sessionKey)).
				Post("/{sessionID}/events", s.handleDispatch)
		})
		r.Route("/catalog/categories", func(r chi.Router) {
			r.Get("/", s.handleListCategories)
			r.Get("/{categoryID}/items", s.handleListItems)
			r.Get("/{categoryID}/modifiers", s.handleListModifiers)
		})
		r.Get("/clients", s.handleSearchClients)
		r.Post("/pricing/quote", s.handleQuote)
		r.Get("/orders/{orderID}/receipt", s.handleReceipt)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, CodeNotFound, "no such route", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed", nil)
	})
	return r
}

func sessionKey(r *http.Request) string { return chi.URLParam(r, "sessionID") }

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.deps.Version})
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info().Msg("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
