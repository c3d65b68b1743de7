// Package authz maps caller roles to capability sets. Every mutating
// operation checks the gate once, before touching the ledger; role checks are
// not scattered through the services.
package authz

import (
	"errors"

	"github.com/ariefcatur/go-suitcase-market.git/internal/market"
)

var ErrUnauthorized = errors.New("unauthorized")

type Caller struct {
	ID   string
	Role market.Role
}

type Op string

const (
	OpViewProducts     Op = "view-products"
	OpPlaceOrder       Op = "place-order"
	OpViewOwnOrders    Op = "view-own-orders"
	OpCancelOrder      Op = "cancel-order"
	OpAdvanceOrder     Op = "advance-order"
	OpCreateProduct    Op = "create-product"
	OpUpdateProduct    Op = "update-product"
	OpDeleteProduct    Op = "delete-product"
	OpMarkSold         Op = "mark-sold"
	OpViewDashboard    Op = "view-dashboard"
	OpListUsers        Op = "list-users"
	OpUpdateUserStatus Op = "update-user-status"
	OpDeleteUser       Op = "delete-user"
	OpViewSystemHealth Op = "view-system-health"
)

var capabilities = map[market.Role]map[Op]bool{
	market.RoleBuyer: {
		OpViewProducts:  true,
		OpPlaceOrder:    true,
		OpViewOwnOrders: true,
		OpCancelOrder:   true,
		OpViewDashboard: true,
	},
	market.RoleSeller: {
		OpViewProducts:  true,
		OpCreateProduct: true,
		OpUpdateProduct: true,
		OpDeleteProduct: true,
		OpMarkSold:      true,
		OpAdvanceOrder:  true,
		OpViewDashboard: true,
	},
	market.RoleAdmin: {
		OpViewProducts:     true,
		OpViewOwnOrders:    true,
		OpCancelOrder:      true,
		OpAdvanceOrder:     true,
		OpUpdateProduct:    true,
		OpDeleteProduct:    true,
		OpMarkSold:         true,
		OpViewDashboard:    true,
		OpListUsers:        true,
		OpUpdateUserStatus: true,
		OpDeleteUser:       true,
		OpViewSystemHealth: true,
	},
}

// Ops that are owner-scoped for non-admin callers. The resource owner is the
// seller for product ops, the buyer for order ops.
var ownerScoped = map[Op]bool{
	OpUpdateProduct: true,
	OpDeleteProduct: true,
	OpMarkSold:      true,
	OpCancelOrder:   true,
	OpAdvanceOrder:  true,
}

// Allowed reports whether the caller may perform op on a resource owned by
// ownerID. Pass an empty ownerID for ops with no owned resource.
func Allowed(c Caller, op Op, ownerID string) bool {
	if !capabilities[c.Role][op] {
		return false
	}
	if c.Role == market.RoleAdmin {
		return true
	}
	if ownerScoped[op] && ownerID != c.ID {
		return false
	}
	return true
}

// Check is Allowed with the error shape services return. No information about
// resource existence is leaked: the caller sees the same error whether the
// resource is foreign or missing.
func Check(c Caller, op Op, ownerID string) error {
	if !Allowed(c, op, ownerID) {
		return ErrUnauthorized
	}
	return nil
}
