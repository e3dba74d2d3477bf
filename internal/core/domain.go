package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// Transaction is a single ledger record. OwnerID and CreatedAt never change
	// after creation.
	Transaction struct {
		ID          int64
		OwnerID     string
		Amount      decimal.Decimal
		Currency    string
		Category    string
		Description string
		CreatedAt   time.Time
	}

	// TransactionInput carries caller-supplied fields before validation.
	// Amount is kept as raw text so parsing stays an explicit, fallible step.
	TransactionInput struct {
		Amount      string
		Currency    string
		Category    string
		Description *string
	}

	// TransactionChanges is a validated update. A nil Description leaves the
	// stored description untouched.
	TransactionChanges struct {
		Amount      decimal.Decimal
		Currency    string
		Category    string
		Description *string
	}
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("transaction not found")
	ErrValidation   = errors.New("validation failed")
	ErrInternal     = errors.New("internal error")

	ErrInvalidAmount = errors.New("invalid amount")
)

// ValidationError reports the offending field. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func fieldError(field, reason string, err error) error {
	return &ValidationError{Field: field, Reason: reason, Err: err}
}

// Validate checks required fields and parses the amount.
func (in TransactionInput) Validate() (TransactionChanges, error) {
	if strings.TrimSpace(in.Amount) == "" {
		return TransactionChanges{}, fieldError("amount", "is required", nil)
	}
	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return TransactionChanges{}, fieldError("amount", "must be a finite number", err)
	}
	// currency and category are stored verbatim; only the empty string is missing
	if in.Currency == "" {
		return TransactionChanges{}, fieldError("currency", "is required", nil)
	}
	if in.Category == "" {
		return TransactionChanges{}, fieldError("category", "is required", nil)
	}
	return TransactionChanges{
		Amount:      amount,
		Currency:    in.Currency,
		Category:    in.Category,
		Description: in.Description,
	}, nil
}

// NewTransaction validates in and returns an unsaved transaction owned by ownerID.
func NewTransaction(ownerID string, in TransactionInput, now time.Time) (Transaction, error) {
	ch, err := in.Validate()
	if err != nil {
		return Transaction{}, err
	}
	t := Transaction{
		OwnerID:   ownerID,
		Amount:    ch.Amount,
		Currency:  ch.Currency,
		Category:  ch.Category,
		CreatedAt: now.UTC(),
	}
	if ch.Description != nil {
		t.Description = *ch.Description
	}
	return t, nil
}

// Apply returns t with the changes applied. Owner, id and creation time are kept.
func (t Transaction) Apply(ch TransactionChanges) Transaction {
	t.Amount = ch.Amount
	t.Currency = ch.Currency
	t.Category = ch.Category
	if ch.Description != nil {
		t.Description = *ch.Description
	}
	return t
}
