package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"fxledger/internal/auth"
	"fxledger/internal/core"
	"fxledger/internal/log"
	"fxledger/internal/metrics"
)

// LedgerService orchestrates ledger operations for the authenticated owner
type LedgerService struct {
	store   TransactionStore
	query   *QueryEngine
	rates   RateProvider
	base    string
	events  EventPublisher
	metrics *metrics.Metrics
	logger  *log.Logger
	now     func() time.Time
}

type Option func(*LedgerService)

// WithEvents publishes a LedgerEvent after every committed mutation.
func WithEvents(p EventPublisher) Option {
	return func(s *LedgerService) { s.events = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *LedgerService) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

func NewLedgerService(store TransactionStore, rates RateProvider, defaultBase string, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:  store,
		rates:  rates,
		base:   defaultBase,
		logger: log.Component(log.ComponentLedger),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.query = NewQueryEngine(store, rates, defaultBase, s.metrics)
	return s
}

// CreateTransaction validates and stores a transaction for the caller
func (s *LedgerService) CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	owner, ok := auth.OwnerID(ctx)
	if !ok {
		return core.Transaction{}, core.ErrUnauthorized
	}

	t, err := core.NewTransaction(owner, in, s.now())
	if err != nil {
		s.metrics.ObserveLedgerOp(log.OpCreate, err)
		return core.Transaction{}, err
	}

	created, err := s.store.Create(ctx, t)
	if err != nil {
		return core.Transaction{}, s.fail(ctx, log.OpCreate, owner, err)
	}
	s.metrics.ObserveLedgerOp(log.OpCreate, nil)

	s.logger.InfoContext(ctx, "Transaction created",
		log.NewFields().
			WithOwner(owner).
			WithTransaction(created.ID, core.FormatAmount(created.Amount), created.Currency, created.Category).
			ToSlice()...)

	s.publish(ctx, core.NewLedgerEvent(core.EventTransactionCreated, created, s.now()))
	return created, nil
}

// ListTransactions returns the caller's transactions matching f
func (s *LedgerService) ListTransactions(ctx context.Context, f core.Filter) ([]Entry, error) {
	owner, ok := auth.OwnerID(ctx)
	if !ok {
		return nil, core.ErrUnauthorized
	}

	entries, err := s.query.Query(ctx, owner, f)
	if err != nil {
		return nil, s.fail(ctx, log.OpList, owner, err)
	}
	s.metrics.ObserveLedgerOp(log.OpList, nil)
	return entries, nil
}

// UpdateTransaction overwrites amount, currency and category of one of the
// caller's transactions. A nil description keeps the stored one.
func (s *LedgerService) UpdateTransaction(ctx context.Context, id int64, in core.TransactionInput) (core.Transaction, error) {
	owner, ok := auth.OwnerID(ctx)
	if !ok {
		return core.Transaction{}, core.ErrUnauthorized
	}

	ch, err := in.Validate()
	if err != nil {
		s.metrics.ObserveLedgerOp(log.OpUpdate, err)
		return core.Transaction{}, err
	}
	if id <= 0 {
		s.metrics.ObserveLedgerOp(log.OpUpdate, core.ErrNotFound)
		return core.Transaction{}, core.ErrNotFound
	}

	updated, err := s.store.Update(ctx, owner, id, ch)
	if err != nil {
		return core.Transaction{}, s.fail(ctx, log.OpUpdate, owner, err)
	}
	s.metrics.ObserveLedgerOp(log.OpUpdate, nil)

	s.logger.InfoContext(ctx, "Transaction updated",
		log.NewFields().
			WithOwner(owner).
			WithTransaction(updated.ID, core.FormatAmount(updated.Amount), updated.Currency, updated.Category).
			ToSlice()...)

	s.publish(ctx, core.NewLedgerEvent(core.EventTransactionUpdated, updated, s.now()))
	return updated, nil
}

// DeleteTransaction removes one of the caller's transactions
func (s *LedgerService) DeleteTransaction(ctx context.Context, id int64) error {
	owner, ok := auth.OwnerID(ctx)
	if !ok {
		return core.ErrUnauthorized
	}
	if id <= 0 {
		s.metrics.ObserveLedgerOp(log.OpDelete, core.ErrNotFound)
		return core.ErrNotFound
	}

	if err := s.store.Delete(ctx, owner, id); err != nil {
		return s.fail(ctx, log.OpDelete, owner, err)
	}
	s.metrics.ObserveLedgerOp(log.OpDelete, nil)

	s.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldOwnerID, owner,
		log.FieldTransactionID, id)

	s.publish(ctx, core.NewLedgerEvent(core.EventTransactionDeleted,
		core.Transaction{ID: id, OwnerID: owner}, s.now()))
	return nil
}

// Rates returns the current snapshot for base, or for the default base when
// base is blank. An unavailable provider yields an empty mapping.
func (s *LedgerService) Rates(ctx context.Context, base string) (core.RateSnapshot, error) {
	if _, ok := auth.OwnerID(ctx); !ok {
		return core.RateSnapshot{}, core.ErrUnauthorized
	}
	base = strings.TrimSpace(base)
	if base == "" {
		base = s.base
	}
	if s.rates == nil {
		return core.EmptySnapshot(base), nil
	}
	return s.rates.FetchRates(ctx, base), nil
}

// fail passes not-found and validation errors through and turns anything
// else into an opaque ErrInternal after logging it.
func (s *LedgerService) fail(ctx context.Context, op, owner string, err error) error {
	s.metrics.ObserveLedgerOp(op, err)
	switch {
	case errors.Is(err, core.ErrNotFound):
		return core.ErrNotFound
	case errors.Is(err, core.ErrValidation):
		return err
	}
	fields := log.NewFields().WithOperation(op).WithOwner(owner).WithError(err)
	fields[log.FieldErrorType] = log.ErrorTypeInternal
	s.logger.ErrorContext(ctx, "Ledger operation failed", fields.ToSlice()...)
	return core.ErrInternal
}

func (s *LedgerService) publish(ctx context.Context, ev core.LedgerEvent) {
	if s.events == nil {
		s.logger.DebugContext(ctx, "Event publisher not available, skipping ledger event",
			log.FieldEventType, string(ev.Type))
		return
	}
	err := s.events.PublishLedgerEvent(ctx, ev)
	s.metrics.ObserveEventPublish(string(ev.Type), err)
	if err != nil {
		// The mutation is committed; the event is best effort.
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldEventType, string(ev.Type),
			log.FieldTransactionID, ev.TransactionID,
			log.FieldError, err)
	}
}
