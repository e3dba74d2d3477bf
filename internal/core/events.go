package core

import "time"

const (
	EventTransactionCreated EventType = "transaction.created"
	EventTransactionUpdated EventType = "transaction.updated"
	EventTransactionDeleted EventType = "transaction.deleted"
)

type (
	EventType string

	// LedgerEvent describes a committed mutation. Amount is the stored decimal text.
	LedgerEvent struct {
		Type          EventType `json:"type"`
		TransactionID int64     `json:"transaction_id"`
		OwnerID       string    `json:"owner_id"`
		Amount        string    `json:"amount,omitempty"`
		Currency      string    `json:"currency,omitempty"`
		Category      string    `json:"category,omitempty"`
		Description   string    `json:"description,omitempty"`
		OccurredAt    time.Time `json:"occurred_at"`
	}
)

// NewLedgerEvent snapshots t for publication.
func NewLedgerEvent(typ EventType, t Transaction, at time.Time) LedgerEvent {
	ev := LedgerEvent{
		Type:          typ,
		TransactionID: t.ID,
		OwnerID:       t.OwnerID,
		OccurredAt:    at.UTC(),
	}
	if typ != EventTransactionDeleted {
		ev.Amount = FormatAmount(t.Amount)
		ev.Currency = t.Currency
		ev.Category = t.Category
		ev.Description = t.Description
	}
	return ev
}
