package sheets

import (
	"context"

	"fxledger/internal/core"
)

// JournalWriter appends ledger events to an external journal and returns a
// reference to the written row.
type JournalWriter interface {
	AppendEvent(ctx context.Context, ev core.LedgerEvent) (rowRef string, err error)
}
