// Package ledger is the sole writer of persisted marketplace state. Every
// record carries a monotonic version; Put is a compare-and-swap on that
// version, which is the primitive the reservation engine builds on.
package ledger

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-suitcase-market.git/internal/market"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrVersionConflict = errors.New("version conflict")
)

// Put semantics, shared by all record kinds:
//   - expectedVersion == 0 inserts; fails ErrVersionConflict if the id exists.
//   - expectedVersion > 0 updates iff the stored version matches; fails
//     ErrVersionConflict on mismatch, ErrNotFound if the record is gone.
//
// A successful Put returns the record with Version bumped and UpdatedAt set.
// A Put either fully applies or has no effect.
type Store interface {
	GetProduct(ctx context.Context, id string) (market.Product, error)
	PutProduct(ctx context.Context, p market.Product, expectedVersion int64) (market.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	ListProducts(ctx context.Context, f ProductFilter) ([]market.Product, error)

	GetOrder(ctx context.Context, id string) (market.Order, error)
	PutOrder(ctx context.Context, o market.Order, expectedVersion int64) (market.Order, error)
	ListOrders(ctx context.Context, f OrderFilter) ([]market.Order, error)

	GetUser(ctx context.Context, id string) (market.User, error)
	PutUser(ctx context.Context, u market.User, expectedVersion int64) (market.User, error)
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context, f UserFilter) ([]market.User, error)
}

type ProductFilter struct {
	SellerID string
	Material market.Material
}

type OrderFilter struct {
	BuyerID   string
	ProductID string
	SellerID  string // orders placed against this seller's products
	Statuses  []market.Status
}

type UserFilter struct {
	Role market.Role
}
