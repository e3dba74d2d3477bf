package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"fxledger/internal/core"
)

type fakeJournal struct {
	rows []core.LedgerEvent
	err  error
}

func (f *fakeJournal) AppendEvent(_ context.Context, ev core.LedgerEvent) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.rows = append(f.rows, ev)
	return "Ledger!A1:H1", nil
}

func event(id int64) core.LedgerEvent {
	return core.LedgerEvent{
		Type:          core.EventTransactionCreated,
		TransactionID: id,
		OwnerID:       "alice",
		Amount:        "1.00",
		Currency:      "USD",
		Category:      "food",
		OccurredAt:    time.Now().UTC(),
	}
}

func TestLedgerEventWorker_Journals(t *testing.T) {
	j := &fakeJournal{}
	w := NewLedgerEventWorker(j)

	for i := int64(1); i <= 3; i++ {
		if err := w.HandleEvent(context.Background(), event(i)); err != nil {
			t.Fatalf("HandleEvent: %v", err)
		}
	}
	if len(j.rows) != 3 || j.rows[2].TransactionID != 3 {
		t.Fatalf("rows = %+v", j.rows)
	}
	if handled, failed := w.Stats(); handled != 3 || failed != 0 {
		t.Fatalf("stats = %d/%d", handled, failed)
	}
}

func TestLedgerEventWorker_JournalErrorRequeues(t *testing.T) {
	sentinel := errors.New("quota exceeded")
	w := NewLedgerEventWorker(&fakeJournal{err: sentinel})

	err := w.HandleEvent(context.Background(), event(9))
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped journal error, got %v", err)
	}
	if handled, failed := w.Stats(); handled != 0 || failed != 1 {
		t.Fatalf("stats = %d/%d", handled, failed)
	}
}

func TestLedgerEventWorker_WithoutJournal(t *testing.T) {
	w := NewLedgerEventWorker(nil)
	if err := w.HandleEvent(context.Background(), event(1)); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if handled, _ := w.Stats(); handled != 1 {
		t.Fatalf("handled = %d", handled)
	}
}
