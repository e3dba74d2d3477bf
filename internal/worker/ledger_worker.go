package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"fxledger/internal/core"
	"fxledger/internal/log"
	"fxledger/internal/sheets"
)

// LedgerEventWorker mirrors ledger events into a journal. Without a journal
// it only logs them.
type LedgerEventWorker struct {
	journal sheets.JournalWriter
	logger  *log.Logger

	handled atomic.Int64
	failed  atomic.Int64
}

func NewLedgerEventWorker(journal sheets.JournalWriter) *LedgerEventWorker {
	return &LedgerEventWorker{
		journal: journal,
		logger:  log.Component(log.ComponentWorker),
	}
}

// HandleEvent processes a single ledger event from AMQP. A returned error
// makes the consumer requeue the message.
func (w *LedgerEventWorker) HandleEvent(ctx context.Context, ev core.LedgerEvent) error {
	fields := []any{
		log.FieldEventType, string(ev.Type),
		log.FieldTransactionID, ev.TransactionID,
		log.FieldOwnerID, ev.OwnerID,
	}

	if w.journal == nil {
		w.handled.Add(1)
		w.logger.InfoContext(ctx, "Ledger event received", fields...)
		return nil
	}

	ref, err := w.journal.AppendEvent(ctx, ev)
	if err != nil {
		w.failed.Add(1)
		return fmt.Errorf("append %s event for transaction %d: %w", ev.Type, ev.TransactionID, err)
	}
	w.handled.Add(1)

	w.logger.InfoContext(ctx, "Ledger event journaled", append(fields, "row_ref", ref)...)
	return nil
}

// Stats returns the number of handled and failed events so far.
func (w *LedgerEventWorker) Stats() (handled, failed int64) {
	return w.handled.Load(), w.failed.Load()
}
