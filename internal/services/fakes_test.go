package services

import (
	"context"
	"errors"
	"sync"

	"fxledger/internal/core"
)

type fakeRates struct {
	mu    sync.Mutex
	snap  core.RateSnapshot
	calls []string
}

func (f *fakeRates) FetchRates(_ context.Context, base string) core.RateSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, base)
	return f.snap
}

type fakePublisher struct {
	mu     sync.Mutex
	events []core.LedgerEvent
	err    error
}

func (f *fakePublisher) PublishLedgerEvent(_ context.Context, ev core.LedgerEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

// brokenStore fails every call and counts them.
type brokenStore struct {
	calls int
}

var errDisk = errors.New("disk on fire")

func (b *brokenStore) Create(context.Context, core.Transaction) (core.Transaction, error) {
	b.calls++
	return core.Transaction{}, errDisk
}

func (b *brokenStore) Get(context.Context, string, int64) (core.Transaction, error) {
	b.calls++
	return core.Transaction{}, errDisk
}

func (b *brokenStore) List(context.Context, string, core.Filter) ([]core.Transaction, error) {
	b.calls++
	return nil, errDisk
}

func (b *brokenStore) Update(context.Context, string, int64, core.TransactionChanges) (core.Transaction, error) {
	b.calls++
	return core.Transaction{}, errDisk
}

func (b *brokenStore) Delete(context.Context, string, int64) error {
	b.calls++
	return errDisk
}

// unorderedStore returns the owner's rows in insertion order.
type unorderedStore struct {
	rows []core.Transaction
	last core.Filter
}

func (u *unorderedStore) Create(_ context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = int64(len(u.rows) + 1)
	u.rows = append(u.rows, t)
	return t, nil
}

func (u *unorderedStore) Get(context.Context, string, int64) (core.Transaction, error) {
	return core.Transaction{}, core.ErrNotFound
}

func (u *unorderedStore) List(_ context.Context, owner string, f core.Filter) ([]core.Transaction, error) {
	u.last = f
	var out []core.Transaction
	for _, t := range u.rows {
		if t.OwnerID == owner {
			out = append(out, t)
		}
	}
	return out, nil
}

func (u *unorderedStore) Update(context.Context, string, int64, core.TransactionChanges) (core.Transaction, error) {
	return core.Transaction{}, core.ErrNotFound
}

func (u *unorderedStore) Delete(context.Context, string, int64) error {
	return core.ErrNotFound
}
