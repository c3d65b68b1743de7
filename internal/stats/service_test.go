package stats

import (
	"context"
	"testing"

	"github.com/ariefcatur/go-suitcase-market.git/internal/authz"
	"github.com/ariefcatur/go-suitcase-market.git/internal/ledger"
	"github.com/ariefcatur/go-suitcase-market.git/internal/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStore(t *testing.T) *ledger.MemoryStore {
	t.Helper()
	ctx := context.Background()
	s := ledger.NewMemory()

	users := []market.User{
		{ID: "a1", Email: "a@x.dev", Role: market.RoleAdmin, IsVerified: true},
		{ID: "s1", Email: "s1@x.dev", Role: market.RoleSeller, IsVerified: true},
		{ID: "s2", Email: "s2@x.dev", Role: market.RoleSeller},
		{ID: "b1", Email: "b1@x.dev", Role: market.RoleBuyer, IsVerified: true},
	}
	for _, u := range users {
		_, err := s.PutUser(ctx, u, 0)
		require.NoError(t, err)
	}

	products := []market.Product{
		{ID: "p1", SellerID: "s1", Name: "cabin case", Material: market.MaterialLeather, RateCents: 5000, Stock: 3},
		{ID: "p2", SellerID: "s1", Name: "trunk", Material: market.MaterialAluminum, RateCents: 20000, IsSold: true},
		{ID: "p3", SellerID: "s2", Name: "duffel", Material: market.MaterialFabric, RateCents: 3000, Stock: 7},
	}
	for _, p := range products {
		_, err := s.PutProduct(ctx, p, 0)
		require.NoError(t, err)
	}

	orders := []market.Order{
		{ID: "o1", BuyerID: "b1", ProductID: "p1", Quantity: 1, TotalCents: 5000, Status: market.StatusPending},
		{ID: "o2", BuyerID: "b1", ProductID: "p2", Quantity: 1, TotalCents: 20000, Status: market.StatusDelivered},
		{ID: "o3", BuyerID: "b2", ProductID: "p3", Quantity: 2, TotalCents: 6000, Status: market.StatusDelivered},
		{ID: "o4", BuyerID: "b2", ProductID: "p3", Quantity: 1, TotalCents: 3000, Status: market.StatusCancelled},
	}
	for _, o := range orders {
		_, err := s.PutOrder(ctx, o, 0)
		require.NoError(t, err)
	}
	return s
}

func TestDashboard_Admin(t *testing.T) {
	t.Parallel()

	svc := &Service{Store: seedStore(t)}
	d, err := svc.Dashboard(context.Background(), authz.Caller{ID: "a1", Role: market.RoleAdmin})
	require.NoError(t, err)

	assert.Equal(t, 4, d.UserStats.TotalUsers)
	assert.Equal(t, 3, d.UserStats.VerifiedUsers)
	assert.Equal(t, 1, d.UserStats.UnverifiedUsers)
	assert.Contains(t, d.UserStats.UsersByRole, CountByKey{Key: "seller", Count: 2})

	assert.Equal(t, 3, d.ProductStats.TotalProducts)
	assert.Equal(t, 1, d.ProductStats.SoldProducts)
	assert.Equal(t, 2, d.ProductStats.AvailableProducts)
	assert.InDelta(t, 33.33, d.ProductStats.SoldPercentage, 0.01)

	assert.Equal(t, 4, d.OrderStats.TotalOrders)
	assert.Equal(t, 1, d.OrderStats.PendingOrders)
	assert.Equal(t, 2, d.OrderStats.CompletedOrders)
	// revenue counts delivered orders only
	assert.EqualValues(t, 26000, d.OrderStats.TotalRevenueCents)
	assert.Contains(t, d.OrderStats.OrdersByStatus, CountByKey{Key: "cancelled", Count: 1})

	require.NotNil(t, d.RecentActivities)
	assert.Len(t, d.RecentActivities.RecentUsers, 4)
	assert.Len(t, d.RecentActivities.RecentOrders, 4)
}

func TestDashboard_SellerScopedToOwnCatalogue(t *testing.T) {
	t.Parallel()

	svc := &Service{Store: seedStore(t)}
	d, err := svc.Dashboard(context.Background(), authz.Caller{ID: "s1", Role: market.RoleSeller})
	require.NoError(t, err)

	assert.Equal(t, 2, d.ProductStats.TotalProducts)
	assert.InDelta(t, 50.0, d.ProductStats.SoldPercentage, 0.001)

	// only orders against s1's products
	assert.Equal(t, 2, d.OrderStats.TotalOrders)
	assert.EqualValues(t, 20000, d.OrderStats.TotalRevenueCents)

	assert.Zero(t, d.UserStats.TotalUsers)
	assert.Nil(t, d.RecentActivities)
}

func TestDashboard_BuyerSeesOwnOrdersOnly(t *testing.T) {
	t.Parallel()

	svc := &Service{Store: seedStore(t)}
	d, err := svc.Dashboard(context.Background(), authz.Caller{ID: "b1", Role: market.RoleBuyer})
	require.NoError(t, err)

	assert.Equal(t, 2, d.OrderStats.TotalOrders)
	assert.EqualValues(t, 20000, d.OrderStats.TotalRevenueCents)
	assert.Zero(t, d.ProductStats.TotalProducts)
	assert.Nil(t, d.RecentActivities)
}

func TestDashboard_EmptyCatalogue(t *testing.T) {
	t.Parallel()

	svc := &Service{Store: ledger.NewMemory()}
	d, err := svc.Dashboard(context.Background(), authz.Caller{ID: "s9", Role: market.RoleSeller})
	require.NoError(t, err)

	assert.Zero(t, d.ProductStats.TotalProducts)
	assert.Zero(t, d.ProductStats.SoldPercentage)
	assert.Zero(t, d.OrderStats.TotalOrders)
}

func TestDashboard_UnknownRoleDenied(t *testing.T) {
	t.Parallel()

	svc := &Service{Store: ledger.NewMemory()}
	_, err := svc.Dashboard(context.Background(), authz.Caller{ID: "x", Role: "auditor"})
	assert.ErrorIs(t, err, authz.ErrUnauthorized)
}
