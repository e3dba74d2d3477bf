package services

import (
	"context"
	"fmt"

	"fxledger/internal/core"
	"fxledger/internal/log"
	"fxledger/internal/metrics"
)

// Entry is a listed transaction. Conversion is set only when a target
// currency was requested.
type Entry struct {
	core.Transaction
	Conversion *core.Conversion
}

// QueryEngine composes filters over the store and runs the conversion pass.
type QueryEngine struct {
	store   TransactionStore
	rates   RateProvider
	base    string
	metrics *metrics.Metrics
	logger  *log.Logger
}

func NewQueryEngine(store TransactionStore, rates RateProvider, defaultBase string, m *metrics.Metrics) *QueryEngine {
	return &QueryEngine{
		store:   store,
		rates:   rates,
		base:    defaultBase,
		metrics: m,
		logger:  log.Component(log.ComponentQuery),
	}
}

// Query lists the owner's transactions matching f, newest first. A date
// range applies only when both ends are given; a half range is dropped and
// logged. With f.ConvertTo set, one snapshot for the default base is fetched
// and every entry is converted independently.
func (q *QueryEngine) Query(ctx context.Context, ownerID string, f core.Filter) ([]Entry, error) {
	if f.HalfDateRange() {
		q.logger.WarnContext(ctx, "date range ignored: both start and end are required",
			log.FieldOwnerID, ownerID,
			"start", f.Start,
			"end", f.End)
	}
	f = f.Effective()

	txs, err := q.store.List(ctx, ownerID, f)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	core.SortNewestFirst(txs)

	entries := make([]Entry, len(txs))
	for i, t := range txs {
		entries[i] = Entry{Transaction: t}
	}
	if f.ConvertTo == "" || len(entries) == 0 {
		return entries, nil
	}

	snap := core.EmptySnapshot(q.base)
	if q.rates != nil {
		snap = q.rates.FetchRates(ctx, q.base)
	}

	fallbacks := 0
	for i := range entries {
		c := core.Convert(entries[i].Amount, entries[i].Currency, f.ConvertTo, snap.Rates)
		entries[i].Conversion = &c
		switch {
		case entries[i].Currency == f.ConvertTo:
			q.metrics.ObserveConversion(metrics.OutcomeIdentity)
		case c.Converted:
			q.metrics.ObserveConversion(metrics.OutcomeConverted)
		default:
			fallbacks++
			q.metrics.ObserveConversion(metrics.OutcomeFallback)
		}
	}
	if fallbacks > 0 {
		q.logger.WarnContext(ctx, "Some amounts left unconverted: rate unavailable",
			log.FieldOwnerID, ownerID,
			log.FieldTargetCurrency, f.ConvertTo,
			log.FieldBaseCurrency, snap.Base,
			log.FieldRateCount, len(snap.Rates),
			"unconverted", fallbacks)
	}

	return entries, nil
}
