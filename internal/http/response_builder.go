// Package http provides HTTP server and handler implementations.
//
// This file implements a small builder for JSON responses and the single
// mapping from ledger errors to status codes.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"fxledger/internal/core"
	"fxledger/internal/log"
	"fxledger/internal/services"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	payload    any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body. A nil body writes no
// content.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.payload == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.payload)
}

// errorBody is the shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

// WriteError maps err to a status code. Internal failures were already
// logged by the ledger; the caller only ever sees a generic message.
func WriteError(ctx context.Context, w http.ResponseWriter, err error) {
	var verr *core.ValidationError
	switch {
	case errors.Is(err, core.ErrUnauthorized):
		ErrorResponse(http.StatusUnauthorized, "authentication required").
			Header("WWW-Authenticate", `Bearer realm="fxledger"`).
			Write(w)
	case errors.As(err, &verr):
		NewJSONResponse().
			Status(http.StatusBadRequest).
			Body(errorBody{Error: verr.Error(), Field: verr.Field}).
			Write(w)
	case errors.Is(err, core.ErrNotFound):
		ErrorResponse(http.StatusNotFound, "transaction not found").Write(w)
	default:
		if !errors.Is(err, core.ErrInternal) {
			log.FromContext(ctx).ErrorContext(ctx, "Unclassified handler error",
				log.FieldErrorType, log.ErrorTypeInternal,
				log.FieldError, err)
		}
		ErrorResponse(http.StatusInternalServerError, "internal server error").Write(w)
	}
}

// transactionResponse is the wire form of a transaction. Amounts are JSON
// numbers written with their stored scale.
type transactionResponse struct {
	ID                int64       `json:"id"`
	Amount            json.Number `json:"amount"`
	Currency          string      `json:"currency"`
	Category          string      `json:"category"`
	Description       string      `json:"description"`
	CreatedAt         time.Time   `json:"createdAt"`
	ConvertedAmount   json.Number `json:"convertedAmount,omitempty"`
	ConvertedCurrency string      `json:"convertedCurrency,omitempty"`
	Converted         *bool       `json:"converted,omitempty"`
}

func newTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		Amount:      json.Number(core.FormatAmount(t.Amount)),
		Currency:    t.Currency,
		Category:    t.Category,
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
	}
}

func newEntryResponse(e services.Entry) transactionResponse {
	resp := newTransactionResponse(e.Transaction)
	if e.Conversion != nil {
		converted := e.Conversion.Converted
		resp.ConvertedAmount = json.Number(core.FormatAmount(e.Conversion.Amount))
		resp.ConvertedCurrency = e.Conversion.Currency
		resp.Converted = &converted
	}
	return resp
}

type listResponse struct {
	Transactions []transactionResponse `json:"transactions"`
	Count        int                   `json:"count"`
}

func newListResponse(entries []services.Entry) listResponse {
	out := make([]transactionResponse, len(entries))
	for i, e := range entries {
		out[i] = newEntryResponse(e)
	}
	return listResponse{Transactions: out, Count: len(out)}
}

type ratesResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

func newRatesResponse(s core.RateSnapshot) ratesResponse {
	rates := s.Rates
	if rates == nil {
		rates = map[string]float64{}
	}
	return ratesResponse{Base: s.Base, Rates: rates}
}
