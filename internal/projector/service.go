// Package projector consumes the order/product event stream and keeps the
// Redis read caches in step: order status entries and dashboard snapshots.
// Handlers are idempotent; replays are dropped via event-id dedup.
package projector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkax "github.com/ariefcatur/go-suitcase-market.git/internal/kafka"
	"github.com/ariefcatur/go-suitcase-market.git/internal/market"
	"github.com/ariefcatur/go-suitcase-market.git/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

type Service struct {
	Redis       *redis.Client
	ServiceName string
}

func (s *Service) Handle(ctx context.Context, m kafkago.Message) error {
	var env market.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	seen, _ := redisx.Exists(ctx, s.Redis, dkey)
	if seen {
		return nil
	}

	switch env.EventType {
	case market.EventOrderPlaced:
		p, err := kafkax.UnwrapPayload[market.OrderPlacedPayload](env.Payload)
		if err != nil {
			return err
		}
		s.setStatus(ctx, p.OrderID, market.StatusPending)
		s.invalidateDashboards(ctx, dashboardKey(market.RoleBuyer, p.BuyerID))

	case market.EventOrderStatusChanged:
		p, err := kafkax.UnwrapPayload[market.OrderStatusChangedPayload](env.Payload)
		if err != nil {
			return err
		}
		s.setStatus(ctx, p.OrderID, p.To)
		s.invalidateDashboards(ctx)

	case market.EventOrderCancelled:
		p, err := kafkax.UnwrapPayload[market.OrderCancelledPayload](env.Payload)
		if err != nil {
			return err
		}
		s.setStatus(ctx, p.OrderID, market.StatusCancelled)
		s.invalidateDashboards(ctx)

	case market.EventProductSoldOut:
		p, err := kafkax.UnwrapPayload[market.ProductSoldOutPayload](env.Payload)
		if err != nil {
			return err
		}
		s.invalidateDashboards(ctx, dashboardKey(market.RoleSeller, p.SellerID))

	default:
		slog.Debug("ignoring event", "type", env.EventType)
	}

	// marked seen only after the handlers ran, so a crash mid-event leaves the
	// redelivery able to apply it
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	return nil
}

func (s *Service) setStatus(ctx context.Context, orderID string, st market.Status) {
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	body, _ := json.Marshal(map[string]string{"status": string(st)})
	if err := s.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err(); err != nil {
		slog.Warn("status cache write failed", "order_id", orderID, "error", err)
	}
}

// invalidateDashboards always drops the admin snapshot, plus any extra
// role-scoped snapshot keys.
func (s *Service) invalidateDashboards(ctx context.Context, extra ...string) {
	keys := append([]string{dashboardKey(market.RoleAdmin, "_")}, extra...)
	if err := s.Redis.Del(ctx, keys...).Err(); err != nil {
		slog.Warn("dashboard invalidation failed", "error", err)
	}
}

func dashboardKey(role market.Role, id string) string {
	return fmt.Sprintf(redisx.KeyDashboard, role, id)
}
