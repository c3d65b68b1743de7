// Package stats computes the role-scoped dashboard projections. Reads are
// not transactionally consistent with in-flight reservations; they reflect
// some committed ledger state, cached briefly in Redis.
package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ariefcatur/go-suitcase-market.git/internal/authz"
	"github.com/ariefcatur/go-suitcase-market.git/internal/ledger"
	"github.com/ariefcatur/go-suitcase-market.git/internal/logging"
	"github.com/ariefcatur/go-suitcase-market.git/internal/market"
	"github.com/ariefcatur/go-suitcase-market.git/internal/redisx"
	"github.com/redis/go-redis/v9"
)

const recentLimit = 5

type CountByKey struct {
	Key   string `json:"_id"`
	Count int    `json:"count"`
}

type UserStats struct {
	TotalUsers      int          `json:"totalUsers"`
	VerifiedUsers   int          `json:"verifiedUsers"`
	UnverifiedUsers int          `json:"unverifiedUsers"`
	UsersByRole     []CountByKey `json:"usersByRole"`
}

type ProductStats struct {
	TotalProducts      int          `json:"totalProducts"`
	SoldProducts       int          `json:"soldProducts"`
	AvailableProducts  int          `json:"availableProducts"`
	SoldPercentage     float64      `json:"soldPercentage"`
	ProductsByMaterial []CountByKey `json:"productsByMaterial"`
}

type OrderStats struct {
	TotalOrders       int          `json:"totalOrders"`
	PendingOrders     int          `json:"pendingOrders"`
	CompletedOrders   int          `json:"completedOrders"`
	OrdersByStatus    []CountByKey `json:"ordersByStatus"`
	TotalRevenueCents int64        `json:"totalRevenueCents"`
}

type RecentActivities struct {
	RecentUsers  []market.User  `json:"recentUsers"`
	RecentOrders []market.Order `json:"recentOrders"`
}

type Dashboard struct {
	UserStats        UserStats         `json:"userStats"`
	ProductStats     ProductStats      `json:"productStats"`
	OrderStats       OrderStats        `json:"orderStats"`
	RecentActivities *RecentActivities `json:"recentActivities,omitempty"`
}

type Service struct {
	Store ledger.Store
	Redis *redis.Client // optional; nil disables caching
}

// Dashboard returns the caller's view: admins see everything plus recent
// activity, sellers their own catalogue and the orders against it, buyers
// their own purchases.
func (s *Service) Dashboard(ctx context.Context, caller authz.Caller) (Dashboard, error) {
	if err := authz.Check(caller, authz.OpViewDashboard, ""); err != nil {
		return Dashboard{}, err
	}

	key := cacheKey(caller)
	if s.Redis != nil {
		if raw, err := s.Redis.Get(ctx, key).Result(); err == nil && raw != "" {
			var d Dashboard
			if err := json.Unmarshal([]byte(raw), &d); err == nil {
				return d, nil
			}
		}
	}

	d, err := s.compute(ctx, caller)
	if err != nil {
		return Dashboard{}, err
	}

	if s.Redis != nil {
		if err := s.Redis.Set(ctx, key, string(mustJSON(d)), redisx.TTLDashboard).Err(); err != nil {
			logging.FromContext(ctx).Warn("dashboard cache write failed", "error", err)
		}
	}
	return d, nil
}

func (s *Service) compute(ctx context.Context, caller authz.Caller) (Dashboard, error) {
	var d Dashboard

	productFilter := ledger.ProductFilter{}
	orderFilter := ledger.OrderFilter{}
	switch caller.Role {
	case market.RoleSeller:
		productFilter.SellerID = caller.ID
		orderFilter.SellerID = caller.ID
	case market.RoleBuyer:
		orderFilter.BuyerID = caller.ID
	}

	if caller.Role != market.RoleBuyer {
		products, err := s.Store.ListProducts(ctx, productFilter)
		if err != nil {
			return Dashboard{}, err
		}
		d.ProductStats = productStats(products)
	}

	orders, err := s.Store.ListOrders(ctx, orderFilter)
	if err != nil {
		return Dashboard{}, err
	}
	d.OrderStats = orderStats(orders)

	if caller.Role == market.RoleAdmin {
		allUsers, err := s.Store.ListUsers(ctx, ledger.UserFilter{})
		if err != nil {
			return Dashboard{}, err
		}
		d.UserStats = userStats(allUsers)
		d.RecentActivities = &RecentActivities{
			RecentUsers:  head(allUsers, recentLimit),
			RecentOrders: head(orders, recentLimit),
		}
	}
	return d, nil
}

func userStats(users []market.User) UserStats {
	st := UserStats{TotalUsers: len(users)}
	byRole := map[string]int{}
	for _, u := range users {
		if u.IsVerified {
			st.VerifiedUsers++
		} else {
			st.UnverifiedUsers++
		}
		byRole[string(u.Role)]++
	}
	st.UsersByRole = toCounts(byRole)
	return st
}

func productStats(products []market.Product) ProductStats {
	st := ProductStats{TotalProducts: len(products)}
	byMaterial := map[string]int{}
	for _, p := range products {
		if p.IsSold {
			st.SoldProducts++
		} else {
			st.AvailableProducts++
		}
		byMaterial[string(p.Material)]++
	}
	// defined as 0 when there are no products
	if st.TotalProducts > 0 {
		st.SoldPercentage = float64(st.SoldProducts) / float64(st.TotalProducts) * 100
	}
	st.ProductsByMaterial = toCounts(byMaterial)
	return st
}

func orderStats(orders []market.Order) OrderStats {
	st := OrderStats{TotalOrders: len(orders)}
	byStatus := map[string]int{}
	for _, o := range orders {
		byStatus[string(o.Status)]++
		switch o.Status {
		case market.StatusPending:
			st.PendingOrders++
		case market.StatusDelivered:
			st.CompletedOrders++
			st.TotalRevenueCents += o.TotalCents
		}
	}
	st.OrdersByStatus = toCounts(byStatus)
	return st
}

func toCounts(m map[string]int) []CountByKey {
	out := make([]CountByKey, 0, len(m))
	for k, n := range m {
		out = append(out, CountByKey{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func head[T any](s []T, n int) []T {
	if len(s) < n {
		n = len(s)
	}
	return s[:n]
}

func cacheKey(caller authz.Caller) string {
	id := caller.ID
	if caller.Role == market.RoleAdmin {
		id = "_"
	}
	return fmt.Sprintf(redisx.KeyDashboard, caller.Role, id)
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
