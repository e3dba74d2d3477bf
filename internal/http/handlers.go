package http

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks every registered dependency.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for name, p := range s.checks {
		if err := p.Ping(ctx); err != nil {
			checks[name] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	NewJSONResponse().Status(httpStatus).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	in, err := DecodeTransactionInput(w, r)
	if err != nil {
		WriteError(ctx, w, err)
		return
	}

	t, err := s.ledger.CreateTransaction(ctx, in)
	if err != nil {
		WriteError(ctx, w, err)
		return
	}

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", fmt.Sprintf("/api/transactions/%d", t.ID)).
		Body(newTransactionResponse(t)).
		Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		WriteError(ctx, w, err)
		return
	}

	entries, err := s.ledger.ListTransactions(ctx, f)
	if err != nil {
		WriteError(ctx, w, err)
		return
	}
	NewJSONResponse().Body(newListResponse(entries)).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := ParseID(r)
	if err != nil {
		WriteError(ctx, w, err)
		return
	}
	in, err := DecodeTransactionInput(w, r)
	if err != nil {
		WriteError(ctx, w, err)
		return
	}

	t, err := s.ledger.UpdateTransaction(ctx, id, in)
	if err != nil {
		WriteError(ctx, w, err)
		return
	}
	NewJSONResponse().Body(newTransactionResponse(t)).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := ParseID(r)
	if err != nil {
		WriteError(ctx, w, err)
		return
	}

	if err := s.ledger.DeleteTransaction(ctx, id); err != nil {
		WriteError(ctx, w, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleRates returns the raw rate mapping for ?base= (default base when
// omitted). An unavailable provider yields an empty mapping, never an error.
func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap, err := s.ledger.Rates(ctx, r.URL.Query().Get("base"))
	if err != nil {
		WriteError(ctx, w, err)
		return
	}
	NewJSONResponse().Body(newRatesResponse(snap)).Write(w)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusNotFound, "not found").Write(w)
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
}
