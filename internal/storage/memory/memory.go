// Package memory is a process-local TransactionStore for development and tests.
package memory

import (
	"context"
	"sync"

	"fxledger/internal/core"
)

type Store struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]core.Transaction
}

func New() *Store {
	return &Store{items: make(map[int64]core.Transaction)}
}

// Create assigns the next id. Ids are never reused, even after deletes.
func (s *Store) Create(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t.ID = s.nextID
	s.items[t.ID] = t
	return t, nil
}

func (s *Store) Get(_ context.Context, ownerID string, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.items[id]
	if !ok || t.OwnerID != ownerID {
		return core.Transaction{}, core.ErrNotFound
	}
	return t, nil
}

// List returns the owner's transactions matching f, newest first.
func (s *Store) List(_ context.Context, ownerID string, f core.Filter) ([]core.Transaction, error) {
	s.mu.Lock()
	out := make([]core.Transaction, 0, len(s.items))
	for _, t := range s.items {
		if t.OwnerID == ownerID && f.Matches(t) {
			out = append(out, t)
		}
	}
	s.mu.Unlock()

	core.SortNewestFirst(out)
	return out, nil
}

// Update applies ch under the lock so the id and owner check and the write are one step.
func (s *Store) Update(_ context.Context, ownerID string, id int64, ch core.TransactionChanges) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.items[id]
	if !ok || t.OwnerID != ownerID {
		return core.Transaction{}, core.ErrNotFound
	}
	t = t.Apply(ch)
	s.items[id] = t
	return t, nil
}

func (s *Store) Delete(_ context.Context, ownerID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.items[id]
	if !ok || t.OwnerID != ownerID {
		return core.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
