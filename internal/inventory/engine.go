// Package inventory is the only component permitted to change a product's
// stock. Writes go through the ledger's version check; a conflicting
// concurrent write is retried from a fresh read, bounded by MaxAttempts.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-suitcase-market.git/internal/ledger"
	"github.com/ariefcatur/go-suitcase-market.git/internal/market"
	"github.com/ariefcatur/go-suitcase-market.git/internal/metrics"
)

var (
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrInvalidQuantity      = errors.New("quantity must be at least 1")
	ErrConcurrencyExhausted = errors.New("too many concurrent stock updates, retry")
)

// DefaultMaxAttempts bounds the optimistic retry loop. Tunable via
// RESERVE_MAX_ATTEMPTS, not a business rule.
const DefaultMaxAttempts = 5

type Engine struct {
	Store       ledger.Store
	MaxAttempts int
}

func New(store ledger.Store) *Engine {
	return &Engine{Store: store, MaxAttempts: DefaultMaxAttempts}
}

func (e *Engine) attempts() int {
	if e.MaxAttempts > 0 {
		return e.MaxAttempts
	}
	return DefaultMaxAttempts
}

// Reserve decrements stock by qty, setting IsSold when stock reaches zero in
// the same write. Fails ErrInsufficientStock without writing when stock is
// short; never lets stock go negative.
func (e *Engine) Reserve(ctx context.Context, productID string, qty int) (market.Product, error) {
	if qty < 1 {
		metrics.ReservationFailures.WithLabelValues("reserve", "invalid_quantity").Inc()
		return market.Product{}, ErrInvalidQuantity
	}

	for i := 0; i < e.attempts(); i++ {
		p, err := e.Store.GetProduct(ctx, productID)
		if err != nil {
			return market.Product{}, err
		}
		if p.Stock < qty {
			metrics.ReservationFailures.WithLabelValues("reserve", "insufficient_stock").Inc()
			return market.Product{}, fmt.Errorf("product %s: %w", productID, ErrInsufficientStock)
		}

		p.Stock -= qty
		if p.Stock == 0 {
			p.IsSold = true
		}
		updated, err := e.Store.PutProduct(ctx, p, p.Version)
		if errors.Is(err, ledger.ErrVersionConflict) {
			metrics.ReservationRetries.WithLabelValues("reserve").Inc()
			continue
		}
		if err != nil {
			return market.Product{}, err
		}
		return updated, nil
	}

	metrics.ReservationFailures.WithLabelValues("reserve", "concurrency_exhausted").Inc()
	return market.Product{}, ErrConcurrencyExhausted
}

// Release returns qty units to stock, clearing IsSold once stock is positive
// again. Same retry discipline as Reserve.
func (e *Engine) Release(ctx context.Context, productID string, qty int) (market.Product, error) {
	if qty < 1 {
		metrics.ReservationFailures.WithLabelValues("release", "invalid_quantity").Inc()
		return market.Product{}, ErrInvalidQuantity
	}

	for i := 0; i < e.attempts(); i++ {
		p, err := e.Store.GetProduct(ctx, productID)
		if err != nil {
			return market.Product{}, err
		}

		p.Stock += qty
		if p.Stock > 0 {
			p.IsSold = false
		}
		updated, err := e.Store.PutProduct(ctx, p, p.Version)
		if errors.Is(err, ledger.ErrVersionConflict) {
			metrics.ReservationRetries.WithLabelValues("release").Inc()
			continue
		}
		if err != nil {
			return market.Product{}, err
		}
		return updated, nil
	}

	metrics.ReservationFailures.WithLabelValues("release", "concurrency_exhausted").Inc()
	return market.Product{}, ErrConcurrencyExhausted
}

// MarkSold forces stock to zero regardless of outstanding orders. Destructive
// override for sellers; a later cancellation releases stock back and clears
// IsSold again.
func (e *Engine) MarkSold(ctx context.Context, productID string) (market.Product, error) {
	for i := 0; i < e.attempts(); i++ {
		p, err := e.Store.GetProduct(ctx, productID)
		if err != nil {
			return market.Product{}, err
		}

		p.Stock = 0
		p.IsSold = true
		updated, err := e.Store.PutProduct(ctx, p, p.Version)
		if errors.Is(err, ledger.ErrVersionConflict) {
			metrics.ReservationRetries.WithLabelValues("mark_sold").Inc()
			continue
		}
		if err != nil {
			return market.Product{}, err
		}
		return updated, nil
	}

	metrics.ReservationFailures.WithLabelValues("mark_sold", "concurrency_exhausted").Inc()
	return market.Product{}, ErrConcurrencyExhausted
}
