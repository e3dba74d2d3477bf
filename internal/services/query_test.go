package services

import (
	"context"
	"testing"
	"time"

	"fxledger/internal/core"
	"fxledger/internal/metrics"
	"fxledger/internal/storage/memory"

	"github.com/shopspring/decimal"
)

func seed(t *testing.T, s TransactionStore, owner, amount, currency, category string, at time.Time) core.Transaction {
	t.Helper()
	created, err := s.Create(context.Background(), core.Transaction{
		OwnerID:   owner,
		Amount:    decimal.RequireFromString(amount),
		Currency:  currency,
		Category:  category,
		CreatedAt: at,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return created
}

func TestQueryEngine_FiltersAndOrder(t *testing.T) {
	store := memory.New()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	seed(t, store, "alice", "10", "USD", "food", base)
	seed(t, store, "alice", "20", "EUR", "food", base.Add(24*time.Hour))
	seed(t, store, "alice", "30", "USD", "travel", base.Add(48*time.Hour))
	seed(t, store, "bob", "40", "USD", "food", base.Add(72*time.Hour))

	q := NewQueryEngine(store, nil, "USD", nil)

	tests := []struct {
		name    string
		filter  core.Filter
		wantIDs []int64
	}{
		{"no filter", core.Filter{}, []int64{3, 2, 1}},
		{"category", core.Filter{Category: "food"}, []int64{2, 1}},
		{"category and currency", core.Filter{Category: "food", Currency: "USD"}, []int64{1}},
		{"case sensitive", core.Filter{Category: "Food"}, nil},
		{"full range", core.Filter{Start: base.Add(time.Hour), End: base.Add(48 * time.Hour)}, []int64{3, 2}},
		{"start only is ignored", core.Filter{Start: base.Add(100 * time.Hour)}, []int64{3, 2, 1}},
		{"end only is ignored", core.Filter{End: base.Add(-time.Hour)}, []int64{3, 2, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := q.Query(context.Background(), "alice", tt.filter)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("got %d entries, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Fatalf("entry[%d].ID = %d, want %d", i, got[i].ID, id)
				}
				if got[i].Conversion != nil {
					t.Fatalf("conversion set without ConvertTo")
				}
			}
		})
	}
}

func TestQueryEngine_HalfRangeNotPassedToStore(t *testing.T) {
	store := &unorderedStore{}
	q := NewQueryEngine(store, nil, "USD", nil)

	_, err := q.Query(context.Background(), "alice", core.Filter{Start: time.Now()})
	if err != nil {
		t.Fatal(err)
	}
	if !store.last.Start.IsZero() || !store.last.End.IsZero() {
		t.Fatalf("store received half range: %+v", store.last)
	}
}

func TestQueryEngine_SortsWhateverTheStoreReturns(t *testing.T) {
	store := &unorderedStore{}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seed(t, store, "alice", "1", "USD", "a", base)
	seed(t, store, "alice", "2", "USD", "a", base.Add(time.Hour))
	seed(t, store, "alice", "3", "USD", "a", base)

	got, _ := NewQueryEngine(store, nil, "USD", nil).Query(context.Background(), "alice", core.Filter{})
	want := []int64{2, 3, 1}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("entry[%d].ID = %d, want %d", i, got[i].ID, id)
		}
	}
}

func TestQueryEngine_ConversionPass(t *testing.T) {
	store := memory.New()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	seed(t, store, "alice", "100", "USD", "food", base)
	seed(t, store, "alice", "50", "XYZ", "food", base.Add(time.Hour))
	seed(t, store, "alice", "90", "EUR", "food", base.Add(2*time.Hour))

	rates := &fakeRates{snap: core.RateSnapshot{
		Base:  "USD",
		Rates: map[string]float64{"USD": 1, "EUR": 0.9},
	}}
	m := metrics.New()
	q := NewQueryEngine(store, rates, "USD", m)

	got, err := q.Query(context.Background(), "alice", core.Filter{ConvertTo: "EUR"})
	if err != nil {
		t.Fatal(err)
	}
	if len(rates.calls) != 1 || rates.calls[0] != "USD" {
		t.Fatalf("rate fetches = %v, want one for USD", rates.calls)
	}

	// newest first: EUR (identity), XYZ (fallback), USD (converted)
	eur, xyz, usd := got[0], got[1], got[2]

	if !eur.Conversion.Converted || eur.Conversion.Currency != "EUR" || !eur.Conversion.Amount.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("identity entry: %+v", eur.Conversion)
	}
	if xyz.Conversion.Converted || xyz.Conversion.Currency != "XYZ" || !xyz.Conversion.Amount.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("fallback entry: %+v", xyz.Conversion)
	}
	if !usd.Conversion.Converted || usd.Conversion.Currency != "EUR" {
		t.Fatalf("converted entry: %+v", usd.Conversion)
	}
	if f, _ := usd.Conversion.Amount.Float64(); f < 89.999999 || f > 90.000001 {
		t.Fatalf("converted amount = %v, want 90", usd.Conversion.Amount)
	}
	if !usd.Amount.Equal(decimal.NewFromInt(100)) || usd.Currency != "USD" {
		t.Fatalf("original amount must stay visible: %+v", usd.Transaction)
	}
}

func TestQueryEngine_EmptySnapshotFallsBackEverywhere(t *testing.T) {
	store := memory.New()
	seed(t, store, "alice", "100", "USD", "food", time.Now().UTC())
	seed(t, store, "alice", "7", "GBP", "food", time.Now().UTC())

	rates := &fakeRates{snap: core.EmptySnapshot("USD")}
	got, err := NewQueryEngine(store, rates, "USD", nil).Query(context.Background(), "alice", core.Filter{ConvertTo: "JPY"})
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range got {
		if e.Conversion.Converted || e.Conversion.Currency != e.Currency || !e.Conversion.Amount.Equal(e.Amount) {
			t.Fatalf("expected fallback, got %+v", e.Conversion)
		}
	}
}

func TestQueryEngine_NoRateFetchWhenNothingToConvert(t *testing.T) {
	rates := &fakeRates{}
	q := NewQueryEngine(memory.New(), rates, "USD", nil)

	if _, err := q.Query(context.Background(), "alice", core.Filter{}); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Query(context.Background(), "alice", core.Filter{ConvertTo: "EUR"}); err != nil {
		t.Fatal(err)
	}
	if len(rates.calls) != 0 {
		t.Fatalf("unexpected rate fetches: %v", rates.calls)
	}
}

func TestQueryEngine_StoreError(t *testing.T) {
	_, err := NewQueryEngine(&brokenStore{}, nil, "USD", nil).Query(context.Background(), "alice", core.Filter{})
	if err == nil {
		t.Fatal("expected error")
	}
}
