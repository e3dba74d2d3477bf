// Package http provides HTTP server and handler implementations.
//
// This file implements decoding of request bodies, path ids and listing
// filters into core types.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"fxledger/internal/core"
)

const maxBodyBytes = 64 << 10

// transactionRequest is the create/update body. Amount accepts a JSON number
// or a numeric string; both keep their written scale. Currency and category
// are taken verbatim. A null or missing description leaves the stored one
// untouched and "" clears it.
type transactionRequest struct {
	Amount      json.RawMessage `json:"amount"`
	Currency    string          `json:"currency"`
	Category    string          `json:"category"`
	Description *string         `json:"description"`
}

// DecodeTransactionInput reads and decodes the request body. Malformed JSON
// is reported as a validation error on field "body".
func DecodeTransactionInput(w http.ResponseWriter, r *http.Request) (core.TransactionInput, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return core.TransactionInput{}, bodyError("request body too large", err)
		}
		return core.TransactionInput{}, bodyError("unreadable request body", err)
	}

	var req transactionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return core.TransactionInput{}, bodyError("malformed JSON", err)
	}

	amount, err := amountText(req.Amount)
	if err != nil {
		return core.TransactionInput{}, &core.ValidationError{Field: "amount", Reason: "must be a number", Err: core.ErrInvalidAmount}
	}

	in := core.TransactionInput{
		Amount:   amount,
		Currency: req.Currency,
		Category: req.Category,
	}
	if req.Description != nil {
		d := sanitizeInput(*req.Description)
		in.Description = &d
	}
	return in, nil
}

// amountText returns the literal digits of a JSON number, the content of a
// JSON string, or "" for null/absent.
func amountText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

func bodyError(reason string, err error) error {
	return &core.ValidationError{Field: "body", Reason: reason, Err: err}
}

// ParseID reads the {id} path parameter. Non-positive ids are valid input
// and simply match nothing.
func ParseID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &core.ValidationError{Field: "id", Reason: "must be an integer"}
	}
	return id, nil
}

// ParseFilter maps listing query parameters onto a core.Filter. A date-only
// endDate covers that whole day.
func ParseFilter(q url.Values) (core.Filter, error) {
	f := core.Filter{
		Category:  q.Get("category"),
		Currency:  q.Get("currency"),
		ConvertTo: strings.TrimSpace(q.Get("convertTo")),
	}

	var err error
	if v := strings.TrimSpace(q.Get("startDate")); v != "" {
		if f.Start, _, err = parseDate(v); err != nil {
			return core.Filter{}, &core.ValidationError{Field: "startDate", Reason: err.Error()}
		}
	}
	if v := strings.TrimSpace(q.Get("endDate")); v != "" {
		var dateOnly bool
		if f.End, dateOnly, err = parseDate(v); err != nil {
			return core.Filter{}, &core.ValidationError{Field: "endDate", Reason: err.Error()}
		}
		if dateOnly {
			f.End = f.End.Add(24*time.Hour - time.Nanosecond)
		}
	}
	return f, nil
}

// parseDate accepts YYYY-MM-DD (UTC midnight) or RFC 3339.
func parseDate(s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, false, nil
	}
	return time.Time{}, false, fmt.Errorf("must be YYYY-MM-DD or RFC 3339, got %q", s)
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
