package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"fxledger/internal/auth"
	"fxledger/internal/core"
	"fxledger/internal/log"
	"fxledger/internal/storage/memory"

	"github.com/shopspring/decimal"
)

func strPtr(s string) *string { return &s }

var fixedNow = time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)

func newTestService(store TransactionStore, opts ...Option) *LedgerService {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewLedgerService(store, &fakeRates{snap: core.RateSnapshot{
		Base:  "USD",
		Rates: map[string]float64{"USD": 1, "EUR": 0.9},
	}}, "USD", opts...)
}

func as(owner string) context.Context {
	return auth.WithOwner(context.Background(), owner)
}

func TestLedgerService_RequiresIdentityBeforeIO(t *testing.T) {
	store := &brokenStore{}
	s := newTestService(store)
	ctx := context.Background()
	in := core.TransactionInput{Amount: "1", Currency: "USD", Category: "x"}

	if _, err := s.CreateTransaction(ctx, in); !errors.Is(err, core.ErrUnauthorized) {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.ListTransactions(ctx, core.Filter{}); !errors.Is(err, core.ErrUnauthorized) {
		t.Fatalf("list: %v", err)
	}
	if _, err := s.UpdateTransaction(ctx, 1, in); !errors.Is(err, core.ErrUnauthorized) {
		t.Fatalf("update: %v", err)
	}
	if err := s.DeleteTransaction(ctx, 1); !errors.Is(err, core.ErrUnauthorized) {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Rates(ctx, "EUR"); !errors.Is(err, core.ErrUnauthorized) {
		t.Fatalf("rates: %v", err)
	}
	if store.calls != 0 {
		t.Fatalf("store touched %d times without identity", store.calls)
	}
}

func TestLedgerService_CreateTransaction(t *testing.T) {
	pub := &fakePublisher{}
	s := newTestService(memory.New(), WithEvents(pub))

	got, err := s.CreateTransaction(as("alice"), core.TransactionInput{
		Amount:      "-12.340",
		Currency:    "EUR",
		Category:    "groceries",
		Description: strPtr("market"),
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if got.ID != 1 || got.OwnerID != "alice" {
		t.Fatalf("unexpected id/owner: %+v", got)
	}
	if core.FormatAmount(got.Amount) != "-12.340" {
		t.Fatalf("amount scale lost: %s", core.FormatAmount(got.Amount))
	}
	if !got.CreatedAt.Equal(fixedNow) || got.Description != "market" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if len(pub.events) != 1 || pub.events[0].Type != core.EventTransactionCreated || pub.events[0].Amount != "-12.340" {
		t.Fatalf("events = %+v", pub.events)
	}
}

func TestLedgerService_CreateValidation(t *testing.T) {
	store := &brokenStore{}
	s := newTestService(store)

	tests := []struct {
		name      string
		in        core.TransactionInput
		wantField string
	}{
		{"missing amount", core.TransactionInput{Currency: "USD", Category: "x"}, "amount"},
		{"non numeric amount", core.TransactionInput{Amount: "abc", Currency: "USD", Category: "x"}, "amount"},
		{"missing currency", core.TransactionInput{Amount: "1", Category: "x"}, "currency"},
		{"missing category", core.TransactionInput{Amount: "1", Currency: "USD"}, "category"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateTransaction(as("alice"), tt.in)
			var ve *core.ValidationError
			if !errors.As(err, &ve) || !errors.Is(err, core.ErrValidation) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.wantField {
				t.Fatalf("field = %q, want %q", ve.Field, tt.wantField)
			}
		})
	}
	if store.calls != 0 {
		t.Fatalf("store called %d times for invalid input", store.calls)
	}
}

func TestLedgerService_ListTransactions(t *testing.T) {
	s := newTestService(memory.New())
	for _, in := range []core.TransactionInput{
		{Amount: "100", Currency: "USD", Category: "food"},
		{Amount: "5", Currency: "GBP", Category: "food"},
	} {
		if _, err := s.CreateTransaction(as("alice"), in); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.CreateTransaction(as("bob"), core.TransactionInput{Amount: "1", Currency: "USD", Category: "food"}); err != nil {
		t.Fatal(err)
	}

	entries, err := s.ListTransactions(as("alice"), core.Filter{ConvertTo: "EUR"})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("alice sees %d entries, want 2", len(entries))
	}
	for _, e := range entries {
		if e.OwnerID != "alice" {
			t.Fatalf("foreign entry leaked: %+v", e)
		}
		switch e.Currency {
		case "USD":
			if !e.Conversion.Converted || e.Conversion.Currency != "EUR" {
				t.Fatalf("USD entry not converted: %+v", e.Conversion)
			}
		case "GBP":
			if e.Conversion.Converted || e.Conversion.Currency != "GBP" {
				t.Fatalf("GBP entry should fall back: %+v", e.Conversion)
			}
		}
	}
}

func TestLedgerService_UpdateTransaction(t *testing.T) {
	pub := &fakePublisher{}
	s := newTestService(memory.New(), WithEvents(pub))
	created, err := s.CreateTransaction(as("alice"), core.TransactionInput{
		Amount: "10", Currency: "USD", Category: "food", Description: strPtr("lunch"),
	})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := s.UpdateTransaction(as("alice"), created.ID, core.TransactionInput{
		Amount: "12.5", Currency: "EUR", Category: "dining",
	})
	if err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	if updated.Currency != "EUR" || updated.Category != "dining" || !updated.Amount.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("fields not overwritten: %+v", updated)
	}
	if updated.Description != "lunch" {
		t.Fatalf("description dropped: %q", updated.Description)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) || updated.OwnerID != "alice" {
		t.Fatalf("immutable fields changed: %+v", updated)
	}

	cleared, err := s.UpdateTransaction(as("alice"), created.ID, core.TransactionInput{
		Amount: "12.5", Currency: "EUR", Category: "dining", Description: strPtr(""),
	})
	if err != nil {
		t.Fatal(err)
	}
	if cleared.Description != "" {
		t.Fatalf("explicit empty description not applied: %q", cleared.Description)
	}
	if len(pub.events) != 3 || pub.events[1].Type != core.EventTransactionUpdated {
		t.Fatalf("events = %+v", pub.events)
	}
}

func TestLedgerService_CrossOwnerMutationsAreNotFound(t *testing.T) {
	s := newTestService(memory.New())
	created, err := s.CreateTransaction(as("alice"), core.TransactionInput{Amount: "10", Currency: "USD", Category: "food"})
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.UpdateTransaction(as("mallory"), created.ID, core.TransactionInput{Amount: "0", Currency: "USD", Category: "pwned"})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("cross-owner update: %v", err)
	}
	if err := s.DeleteTransaction(as("mallory"), created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("cross-owner delete: %v", err)
	}

	entries, _ := s.ListTransactions(as("alice"), core.Filter{})
	if len(entries) != 1 || entries[0].Category != "food" {
		t.Fatalf("alice's record changed: %+v", entries)
	}
}

func TestLedgerService_NotFound(t *testing.T) {
	s := newTestService(memory.New())
	in := core.TransactionInput{Amount: "1", Currency: "USD", Category: "x"}

	for _, id := range []int64{0, -1, 999} {
		if _, err := s.UpdateTransaction(as("alice"), id, in); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("update %d: %v", id, err)
		}
		if err := s.DeleteTransaction(as("alice"), id); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("delete %d: %v", id, err)
		}
	}
}

func TestLedgerService_DeleteTransaction(t *testing.T) {
	pub := &fakePublisher{}
	s := newTestService(memory.New(), WithEvents(pub))
	created, _ := s.CreateTransaction(as("alice"), core.TransactionInput{Amount: "1", Currency: "USD", Category: "x"})

	if err := s.DeleteTransaction(as("alice"), created.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if err := s.DeleteTransaction(as("alice"), created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
	last := pub.events[len(pub.events)-1]
	if last.Type != core.EventTransactionDeleted || last.TransactionID != created.ID || last.Amount != "" {
		t.Fatalf("delete event = %+v", last)
	}
}

func TestLedgerService_StoreFailuresAreOpaque(t *testing.T) {
	s := newTestService(&brokenStore{})
	in := core.TransactionInput{Amount: "1", Currency: "USD", Category: "x"}

	_, err := s.CreateTransaction(as("alice"), in)
	if !errors.Is(err, core.ErrInternal) || errors.Is(err, errDisk) {
		t.Fatalf("create: %v", err)
	}
	_, err = s.ListTransactions(as("alice"), core.Filter{})
	if !errors.Is(err, core.ErrInternal) {
		t.Fatalf("list: %v", err)
	}
	if err := s.DeleteTransaction(as("alice"), 1); !errors.Is(err, core.ErrInternal) {
		t.Fatalf("delete: %v", err)
	}
}

func TestLedgerService_StoreFailuresAreLogged(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	log.SetDefault(log.New(log.Config{Level: slog.LevelInfo, Output: &buf}))
	t.Cleanup(func() { slog.SetDefault(prev) })

	s := newTestService(&brokenStore{})
	_, _ = s.CreateTransaction(as("alice"), core.TransactionInput{Amount: "1", Currency: "USD", Category: "x"})

	out := buf.String()
	for _, want := range []string{
		`msg="Ledger operation failed"`,
		log.FieldOperation + "=" + log.OpCreate,
		log.FieldOwnerID + "=alice",
		log.FieldErrorType + "=" + log.ErrorTypeInternal,
		log.FieldError + `="disk on fire"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s:\n%s", want, out)
		}
	}
}

func TestLedgerService_PublishFailureDoesNotFailMutation(t *testing.T) {
	s := newTestService(memory.New(), WithEvents(&fakePublisher{err: errors.New("broker down")}))
	if _, err := s.CreateTransaction(as("alice"), core.TransactionInput{Amount: "1", Currency: "USD", Category: "x"}); err != nil {
		t.Fatalf("create should succeed despite publish failure: %v", err)
	}
}

func TestLedgerService_Rates(t *testing.T) {
	rates := &fakeRates{snap: core.RateSnapshot{Base: "EUR", Rates: map[string]float64{"USD": 1.1}}}
	s := NewLedgerService(memory.New(), rates, "USD")

	if _, err := s.Rates(as("alice"), ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Rates(as("alice"), "EUR"); err != nil {
		t.Fatal(err)
	}
	if len(rates.calls) != 2 || rates.calls[0] != "USD" || rates.calls[1] != "EUR" {
		t.Fatalf("fetch bases = %v", rates.calls)
	}
}

func TestLedgerService_ConcurrentOwnersDoNotInterfere(t *testing.T) {
	s := newTestService(memory.New())
	owners := []string{"a", "b", "c", "d"}

	var wg sync.WaitGroup
	for _, o := range owners {
		wg.Add(1)
		go func(owner string) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				if _, err := s.CreateTransaction(as(owner), core.TransactionInput{Amount: "1", Currency: "USD", Category: owner}); err != nil {
					t.Errorf("create for %s: %v", owner, err)
					return
				}
			}
		}(o)
	}
	wg.Wait()

	for _, o := range owners {
		entries, err := s.ListTransactions(as(o), core.Filter{})
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 25 {
			t.Fatalf("owner %s has %d entries, want 25", o, len(entries))
		}
		for _, e := range entries {
			if e.Category != o {
				t.Fatalf("owner %s sees %+v", o, e)
			}
		}
	}
}
