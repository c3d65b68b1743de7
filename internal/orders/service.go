// Package orders enforces the order state machine and couples transitions to
// reservation effects. Orders are created by a successful reservation and are
// never physically deleted; cancellation is a terminal state.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/go-suitcase-market.git/internal/authz"
	"github.com/ariefcatur/go-suitcase-market.git/internal/inventory"
	kafkax "github.com/ariefcatur/go-suitcase-market.git/internal/kafka"
	"github.com/ariefcatur/go-suitcase-market.git/internal/ledger"
	"github.com/ariefcatur/go-suitcase-market.git/internal/logging"
	"github.com/ariefcatur/go-suitcase-market.git/internal/market"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

var ErrInvalidTransition = errors.New("invalid order transition")

// writeAttempts bounds the optimistic retry on the order record itself, e.g.
// a buyer's cancel racing a seller's confirm.
const writeAttempts = 5

type Service struct {
	Store     ledger.Store
	Inventory *inventory.Engine

	Placed  kafkax.Publisher // market.order.placed
	Status  kafkax.Publisher // market.order.status
	SoldOut kafkax.Publisher // market.product.soldout

	ServiceName string
}

type PlaceOrderInput struct {
	ProductID       string               `json:"product_id"`
	Quantity        int                  `json:"quantity"`
	PaymentMethod   market.PaymentMethod `json:"payment_method"`
	ShippingAddress string               `json:"shipping_address"`
	OrderNotes      string               `json:"order_notes"`
}

func (in PlaceOrderInput) validate() error {
	if in.ProductID == "" {
		return fmt.Errorf("product_id is required: %w", market.ErrValidation)
	}
	if in.Quantity < 1 {
		return fmt.Errorf("quantity must be at least 1: %w", market.ErrValidation)
	}
	if !in.PaymentMethod.Valid() {
		return fmt.Errorf("payment_method must be cod or online: %w", market.ErrValidation)
	}
	if strings.TrimSpace(in.ShippingAddress) == "" {
		return fmt.Errorf("shipping_address is required: %w", market.ErrValidation)
	}
	return nil
}

// PlaceOrder reserves stock, then persists the order with the product's rate
// snapshotted in. All-or-nothing: a failed reservation creates no order, and
// a failed order write releases the reservation.
func (s *Service) PlaceOrder(ctx context.Context, caller authz.Caller, in PlaceOrderInput) (market.Order, error) {
	if err := authz.Check(caller, authz.OpPlaceOrder, ""); err != nil {
		return market.Order{}, err
	}
	if err := in.validate(); err != nil {
		return market.Order{}, err
	}

	product, err := s.Inventory.Reserve(ctx, in.ProductID, in.Quantity)
	if err != nil {
		return market.Order{}, err
	}

	order := market.Order{
		ID:              uuid.NewString(),
		OrderNumber:     newOrderNumber(),
		BuyerID:         caller.ID,
		ProductID:       product.ID,
		Quantity:        in.Quantity,
		UnitRateCents:   product.RateCents,
		TotalCents:      product.RateCents * int64(in.Quantity),
		PaymentMethod:   in.PaymentMethod,
		Status:          market.StatusPending,
		PaymentStatus:   market.PaymentPending,
		ShippingAddress: in.ShippingAddress,
		OrderNotes:      in.OrderNotes,
	}

	order, err = s.Store.PutOrder(ctx, order, 0)
	if err != nil {
		// undo the reservation so stock is not left short
		if _, relErr := s.Inventory.Release(ctx, product.ID, in.Quantity); relErr != nil {
			logging.FromContext(ctx).Error("release after failed order write",
				"product_id", product.ID, "qty", in.Quantity, "error", relErr)
		}
		return market.Order{}, err
	}

	s.publish(s.Placed, market.EventOrderPlaced, order.ID, market.OrderPlacedPayload{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		BuyerID:     order.BuyerID,
		ProductID:   order.ProductID,
		Quantity:    order.Quantity,
		TotalCents:  order.TotalCents,
	})
	if product.Stock == 0 {
		s.publish(s.SoldOut, market.EventProductSoldOut, product.ID, market.ProductSoldOutPayload{
			ProductID: product.ID, SellerID: product.SellerID, Forced: false,
		})
	}
	return order, nil
}

// Advance moves an order forward through pending→confirmed→shipped→delivered.
// Forward transitions are for the product's seller or an admin; buyers cancel
// via Cancel instead. Delivery of a cod order marks it paid.
func (s *Service) Advance(ctx context.Context, caller authz.Caller, orderID string, target market.Status) (market.Order, error) {
	if !target.Valid() {
		return market.Order{}, fmt.Errorf("unknown status %q: %w", target, market.ErrValidation)
	}
	if target == market.StatusCancelled {
		return s.Cancel(ctx, caller, orderID)
	}

	for i := 0; i < writeAttempts; i++ {
		order, err := s.Store.GetOrder(ctx, orderID)
		if err != nil {
			return market.Order{}, err
		}
		owner, err := s.sellerOf(ctx, order.ProductID)
		if err != nil {
			return market.Order{}, err
		}
		if err := authz.Check(caller, authz.OpAdvanceOrder, owner); err != nil {
			return market.Order{}, err
		}
		if !market.CanTransition(order.Status, target) {
			return market.Order{}, fmt.Errorf("%s -> %s: %w", order.Status, target, ErrInvalidTransition)
		}

		from := order.Status
		order.Status = target
		if target == market.StatusDelivered && order.PaymentMethod == market.PaymentCOD {
			order.PaymentStatus = market.PaymentPaid
		}
		updated, err := s.Store.PutOrder(ctx, order, order.Version)
		if errors.Is(err, ledger.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return market.Order{}, err
		}

		s.publish(s.Status, market.EventOrderStatusChanged, updated.ID, market.OrderStatusChangedPayload{
			OrderID: updated.ID, From: from, To: target,
		})
		return updated, nil
	}
	return market.Order{}, inventory.ErrConcurrencyExhausted
}

// Cancel is legal only while the order is pending. The cancelled status and
// the stock release are one logical unit: if the release cannot be applied,
// the status write is rolled back.
func (s *Service) Cancel(ctx context.Context, caller authz.Caller, orderID string) (market.Order, error) {
	for i := 0; i < writeAttempts; i++ {
		order, err := s.Store.GetOrder(ctx, orderID)
		if err != nil {
			return market.Order{}, err
		}
		if err := authz.Check(caller, authz.OpCancelOrder, order.BuyerID); err != nil {
			return market.Order{}, err
		}
		if order.Status != market.StatusPending {
			return market.Order{}, fmt.Errorf("%s -> cancelled: %w", order.Status, ErrInvalidTransition)
		}

		prev := order
		order.Status = market.StatusCancelled
		if order.PaymentStatus == market.PaymentPaid {
			order.PaymentStatus = market.PaymentRefunded
		}
		updated, err := s.Store.PutOrder(ctx, order, order.Version)
		if errors.Is(err, ledger.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return market.Order{}, err
		}

		if err := s.releaseWithRetry(ctx, order.ProductID, order.Quantity); err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				// product was deleted; nothing to restore
			} else {
				// roll the status back rather than leave stock short
				prev.Status = market.StatusPending
				var rbErr error
				for a := 0; a < writeAttempts; a++ {
					if _, rbErr = s.Store.PutOrder(ctx, prev, updated.Version); rbErr == nil {
						break
					}
				}
				if rbErr != nil {
					logging.FromContext(ctx).Error("cancel rollback failed",
						"order_id", orderID, "error", rbErr)
				}
				return market.Order{}, err
			}
		}

		s.publish(s.Status, market.EventOrderCancelled, updated.ID, market.OrderCancelledPayload{
			OrderID: updated.ID, ProductID: updated.ProductID, Quantity: updated.Quantity,
		})
		return updated, nil
	}
	return market.Order{}, inventory.ErrConcurrencyExhausted
}

// Get returns an order visible to the caller: the buyer who placed it, the
// product's seller, or an admin. Foreign and missing orders look identical.
func (s *Service) Get(ctx context.Context, caller authz.Caller, orderID string) (market.Order, error) {
	order, err := s.Store.GetOrder(ctx, orderID)
	if err != nil {
		return market.Order{}, err
	}
	if caller.Role == market.RoleAdmin || order.BuyerID == caller.ID {
		return order, nil
	}
	if caller.Role == market.RoleSeller {
		if owner, err := s.sellerOf(ctx, order.ProductID); err == nil && owner == caller.ID {
			return order, nil
		}
	}
	return market.Order{}, ledger.ErrNotFound
}

// List returns the caller's orders: own purchases for buyers, orders against
// own products for sellers, everything for admins.
func (s *Service) List(ctx context.Context, caller authz.Caller) ([]market.Order, error) {
	switch caller.Role {
	case market.RoleAdmin:
		return s.Store.ListOrders(ctx, ledger.OrderFilter{})
	case market.RoleSeller:
		return s.Store.ListOrders(ctx, ledger.OrderFilter{SellerID: caller.ID})
	default:
		return s.Store.ListOrders(ctx, ledger.OrderFilter{BuyerID: caller.ID})
	}
}

// releaseWithRetry absorbs transient release failures on the cancel path; a
// cancelled order without its stock returned would leave the product
// permanently short.
func (s *Service) releaseWithRetry(ctx context.Context, productID string, qty int) error {
	var err error
	for a := 0; a < writeAttempts; a++ {
		_, err = s.Inventory.Release(ctx, productID, qty)
		if err == nil || errors.Is(err, ledger.ErrNotFound) {
			return err
		}
	}
	return err
}

func (s *Service) sellerOf(ctx context.Context, productID string) (string, error) {
	p, err := s.Store.GetProduct(ctx, productID)
	if errors.Is(err, ledger.ErrNotFound) {
		// product deleted after the order was placed; only admin passes the gate
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return p.SellerID, nil
}

func (s *Service) publish(p kafkax.Publisher, eventType, correlationID string, payload any) {
	if p == nil {
		return
	}
	ev := market.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		CorrelationID: correlationID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(market.PartitionKey(correlationID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func newOrderNumber() string {
	frag := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("SM-%s-%s", time.Now().UTC().Format("20060102"), frag)
}
