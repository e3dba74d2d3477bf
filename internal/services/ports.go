package services

import (
	"context"

	"fxledger/internal/core"
)

// Ports the ledger depends on.
type (
	// TransactionStore persists transactions. Every read and mutation is
	// scoped by owner inside the store's own predicate; a record belonging to
	// another owner is reported as core.ErrNotFound.
	TransactionStore interface {
		Create(ctx context.Context, t core.Transaction) (core.Transaction, error)
		Get(ctx context.Context, ownerID string, id int64) (core.Transaction, error)
		// List returns matches newest first.
		List(ctx context.Context, ownerID string, f core.Filter) ([]core.Transaction, error)
		Update(ctx context.Context, ownerID string, id int64, ch core.TransactionChanges) (core.Transaction, error)
		Delete(ctx context.Context, ownerID string, id int64) error
	}

	// RateProvider returns a fresh snapshot relative to base. Failures degrade
	// to an empty snapshot and are never returned as errors.
	RateProvider interface {
		FetchRates(ctx context.Context, base string) core.RateSnapshot
	}

	EventPublisher interface {
		PublishLedgerEvent(ctx context.Context, ev core.LedgerEvent) error
	}
)
