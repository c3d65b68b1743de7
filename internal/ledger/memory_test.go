package ledger

import (
	"context"
	"testing"

	"github.com/ariefcatur/go-suitcase-market.git/internal/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_PutProduct_InsertAndUpdate(t *testing.T) {
	t.Parallel()

	s := NewMemory()
	ctx := context.Background()

	p := market.Product{ID: "p1", SellerID: "s1", Name: "cabin case", Material: market.MaterialLeather, Stock: 5}
	stored, err := s.PutProduct(ctx, p, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stored.Version)
	assert.False(t, stored.CreatedAt.IsZero())

	// inserting the same id again conflicts
	_, err = s.PutProduct(ctx, p, 0)
	assert.ErrorIs(t, err, ErrVersionConflict)

	stored.Stock = 4
	updated, err := s.PutProduct(ctx, stored, stored.Version)
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated.Version)

	// stale version is rejected, nothing is written
	stored.Stock = 0
	_, err = s.PutProduct(ctx, stored, 1)
	assert.ErrorIs(t, err, ErrVersionConflict)

	got, err := s.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Stock)
	assert.EqualValues(t, 2, got.Version)
}

func TestMemoryStore_PutProduct_MissingRecord(t *testing.T) {
	t.Parallel()

	s := NewMemory()
	_, err := s.PutProduct(context.Background(), market.Product{ID: "ghost"}, 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_GetProduct_NotFound(t *testing.T) {
	t.Parallel()

	s := NewMemory()
	_, err := s.GetProduct(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_DeleteProduct(t *testing.T) {
	t.Parallel()

	s := NewMemory()
	ctx := context.Background()
	_, err := s.PutProduct(ctx, market.Product{ID: "p1", Material: market.MaterialFabric}, 0)
	require.NoError(t, err)

	require.NoError(t, s.DeleteProduct(ctx, "p1"))
	assert.ErrorIs(t, s.DeleteProduct(ctx, "p1"), ErrNotFound)
}

func TestMemoryStore_ListProducts_Filters(t *testing.T) {
	t.Parallel()

	s := NewMemory()
	ctx := context.Background()
	seed := []market.Product{
		{ID: "p1", SellerID: "s1", Material: market.MaterialLeather},
		{ID: "p2", SellerID: "s1", Material: market.MaterialPlastic},
		{ID: "p3", SellerID: "s2", Material: market.MaterialLeather},
	}
	for _, p := range seed {
		_, err := s.PutProduct(ctx, p, 0)
		require.NoError(t, err)
	}

	all, err := s.ListProducts(ctx, ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	bySeller, err := s.ListProducts(ctx, ProductFilter{SellerID: "s1"})
	require.NoError(t, err)
	assert.Len(t, bySeller, 2)

	byMaterial, err := s.ListProducts(ctx, ProductFilter{Material: market.MaterialLeather})
	require.NoError(t, err)
	assert.Len(t, byMaterial, 2)

	both, err := s.ListProducts(ctx, ProductFilter{SellerID: "s2", Material: market.MaterialLeather})
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, "p3", both[0].ID)
}

func TestMemoryStore_ListOrders_SellerScope(t *testing.T) {
	t.Parallel()

	s := NewMemory()
	ctx := context.Background()
	_, err := s.PutProduct(ctx, market.Product{ID: "p1", SellerID: "s1", Material: market.MaterialFabric}, 0)
	require.NoError(t, err)
	_, err = s.PutProduct(ctx, market.Product{ID: "p2", SellerID: "s2", Material: market.MaterialFabric}, 0)
	require.NoError(t, err)

	orders := []market.Order{
		{ID: "o1", BuyerID: "b1", ProductID: "p1", Status: market.StatusPending},
		{ID: "o2", BuyerID: "b2", ProductID: "p1", Status: market.StatusCancelled},
		{ID: "o3", BuyerID: "b1", ProductID: "p2", Status: market.StatusPending},
	}
	for _, o := range orders {
		_, err := s.PutOrder(ctx, o, 0)
		require.NoError(t, err)
	}

	forSeller, err := s.ListOrders(ctx, OrderFilter{SellerID: "s1"})
	require.NoError(t, err)
	assert.Len(t, forSeller, 2)

	active, err := s.ListOrders(ctx, OrderFilter{SellerID: "s1", Statuses: []market.Status{market.StatusPending}})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "o1", active[0].ID)

	byBuyer, err := s.ListOrders(ctx, OrderFilter{BuyerID: "b1"})
	require.NoError(t, err)
	assert.Len(t, byBuyer, 2)
}

// Deleting a product must not hide its orders from buyer or unfiltered
// listings; only the seller-scoped view loses them (no owner left to scope to).
func TestMemoryStore_ListOrders_SurvivesProductDeletion(t *testing.T) {
	t.Parallel()

	s := NewMemory()
	ctx := context.Background()
	_, err := s.PutProduct(ctx, market.Product{ID: "p1", SellerID: "s1", Material: market.MaterialFabric}, 0)
	require.NoError(t, err)
	_, err = s.PutOrder(ctx, market.Order{ID: "o1", BuyerID: "b1", ProductID: "p1", Status: market.StatusPending}, 0)
	require.NoError(t, err)

	require.NoError(t, s.DeleteProduct(ctx, "p1"))

	all, err := s.ListOrders(ctx, OrderFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	byBuyer, err := s.ListOrders(ctx, OrderFilter{BuyerID: "b1"})
	require.NoError(t, err)
	require.Len(t, byBuyer, 1)
	assert.Equal(t, "o1", byBuyer[0].ID)

	forSeller, err := s.ListOrders(ctx, OrderFilter{SellerID: "s1"})
	require.NoError(t, err)
	assert.Empty(t, forSeller)
}

func TestMemoryStore_Users(t *testing.T) {
	t.Parallel()

	s := NewMemory()
	ctx := context.Background()
	u := market.User{ID: "u1", Email: "a@b.c", Role: market.RoleBuyer}
	stored, err := s.PutUser(ctx, u, 0)
	require.NoError(t, err)

	stored.IsVerified = true
	updated, err := s.PutUser(ctx, stored, stored.Version)
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated.Version)

	buyers, err := s.ListUsers(ctx, UserFilter{Role: market.RoleBuyer})
	require.NoError(t, err)
	assert.Len(t, buyers, 1)

	require.NoError(t, s.DeleteUser(ctx, "u1"))
	_, err = s.GetUser(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}
