package core

import (
	"testing"
	"time"
)

func day(d int) time.Time {
	return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestFilterMatches(t *testing.T) {
	tx := Transaction{Category: "food", Currency: "USD", CreatedAt: day(10)}
	cases := []struct {
		name string
		f    Filter
		want bool
	}{
		{"empty filter", Filter{}, true},
		{"category match", Filter{Category: "food"}, true},
		{"category mismatch", Filter{Category: "rent"}, false},
		{"category is case sensitive", Filter{Category: "Food"}, false},
		{"intersection", Filter{Category: "food", Currency: "USD"}, true},
		{"intersection mismatch", Filter{Category: "food", Currency: "EUR"}, false},
		{"inside range", Filter{Start: day(1), End: day(31)}, true},
		{"range bounds inclusive", Filter{Start: day(10), End: day(10)}, true},
		{"outside range", Filter{Start: day(11), End: day(31)}, false},
		{"start only ignored", Filter{Start: day(20)}, true},
		{"end only ignored", Filter{End: day(1)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.f.Matches(tx); got != tc.want {
				t.Fatalf("Matches = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFilterEffective(t *testing.T) {
	f := Filter{Category: "food", Start: day(1)}
	if !f.HalfDateRange() {
		t.Fatalf("expected half range")
	}
	eff := f.Effective()
	if !eff.Start.IsZero() || !eff.End.IsZero() || eff.Category != "food" {
		t.Fatalf("unexpected effective filter: %+v", eff)
	}

	full := Filter{Start: day(1), End: day(2)}
	if got := full.Effective(); !got.HasDateRange() {
		t.Fatalf("full range should be kept")
	}
}

func TestSortNewestFirst(t *testing.T) {
	txs := []Transaction{
		{ID: 1, CreatedAt: day(1)},
		{ID: 2, CreatedAt: day(3)},
		{ID: 3, CreatedAt: day(3)},
		{ID: 4, CreatedAt: day(2)},
	}
	SortNewestFirst(txs)
	want := []int64{3, 2, 4, 1}
	for i, id := range want {
		if txs[i].ID != id {
			t.Fatalf("position %d: want id %d, got %d", i, id, txs[i].ID)
		}
	}
}
