package core

import (
	"sort"
	"time"
)

// Filter narrows a ledger listing. Empty fields impose no constraint.
// Category and Currency are exact, case-sensitive matches.
type Filter struct {
	Category  string
	Currency  string
	Start     time.Time
	End       time.Time
	ConvertTo string
}

// HasDateRange reports whether the date range applies. Start and End only
// constrain a listing as a pair.
func (f Filter) HasDateRange() bool {
	return !f.Start.IsZero() && !f.End.IsZero()
}

// HalfDateRange reports whether exactly one of Start and End was supplied.
func (f Filter) HalfDateRange() bool {
	return f.Start.IsZero() != f.End.IsZero()
}

// Effective drops a half-supplied date range.
func (f Filter) Effective() Filter {
	if f.HalfDateRange() {
		f.Start = time.Time{}
		f.End = time.Time{}
	}
	return f
}

// Matches reports whether t passes every supplied constraint. The range is
// inclusive on both ends.
func (f Filter) Matches(t Transaction) bool {
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Currency != "" && t.Currency != f.Currency {
		return false
	}
	if f.HasDateRange() {
		if t.CreatedAt.Before(f.Start) || t.CreatedAt.After(f.End) {
			return false
		}
	}
	return true
}

// SortNewestFirst orders by CreatedAt descending, then by ID descending.
func SortNewestFirst(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].CreatedAt.Equal(txs[j].CreatedAt) {
			return txs[i].CreatedAt.After(txs[j].CreatedAt)
		}
		return txs[i].ID > txs[j].ID
	})
}
