package orders

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/ariefcatur/go-suitcase-market.git/internal/authz"
	"github.com/ariefcatur/go-suitcase-market.git/internal/inventory"
	"github.com/ariefcatur/go-suitcase-market.git/internal/ledger"
	"github.com/ariefcatur/go-suitcase-market.git/internal/market"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	buyer       = authz.Caller{ID: "buyer-1", Role: market.RoleBuyer}
	otherBuyer  = authz.Caller{ID: "buyer-2", Role: market.RoleBuyer}
	seller      = authz.Caller{ID: "seller-1", Role: market.RoleSeller}
	otherSeller = authz.Caller{ID: "seller-2", Role: market.RoleSeller}
	admin       = authz.Caller{ID: "admin-1", Role: market.RoleAdmin}
)

type capturePublisher struct {
	mu   sync.Mutex
	msgs [][]byte
}

func (c *capturePublisher) Publish(_, value []byte, _ ...kafkago.Header) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, value)
}

func (c *capturePublisher) types(t *testing.T) []string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.msgs))
	for _, raw := range c.msgs {
		var env market.Envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		out = append(out, env.EventType)
	}
	return out
}

func newService(t *testing.T, stock int) (*Service, *ledger.MemoryStore, *capturePublisher) {
	t.Helper()
	store := ledger.NewMemory()
	_, err := store.PutProduct(context.Background(), market.Product{
		ID: "p1", SellerID: seller.ID, Name: "weekender", Material: market.MaterialLeather,
		Height: 40, Width: 30, RateCents: 8500, Stock: stock,
	}, 0)
	require.NoError(t, err)

	pub := &capturePublisher{}
	svc := &Service{
		Store:       store,
		Inventory:   inventory.New(store),
		Placed:      pub,
		Status:      pub,
		SoldOut:     pub,
		ServiceName: "test",
	}
	return svc, store, pub
}

func placeInput() PlaceOrderInput {
	return PlaceOrderInput{
		ProductID:       "p1",
		Quantity:        2,
		PaymentMethod:   market.PaymentCOD,
		ShippingAddress: "12 Harbour Rd",
	}
}

func TestPlaceOrder_SnapshotsProduct(t *testing.T) {
	t.Parallel()

	svc, store, pub := newService(t, 5)
	ctx := context.Background()

	order, err := svc.PlaceOrder(ctx, buyer, placeInput())
	require.NoError(t, err)

	assert.Equal(t, market.StatusPending, order.Status)
	assert.Equal(t, market.PaymentPending, order.PaymentStatus)
	assert.Equal(t, buyer.ID, order.BuyerID)
	assert.Equal(t, 2, order.Quantity)
	assert.EqualValues(t, 8500, order.UnitRateCents)
	assert.EqualValues(t, 17000, order.TotalCents)
	assert.NotEmpty(t, order.OrderNumber)

	p, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock)

	assert.Equal(t, []string{market.EventOrderPlaced}, pub.types(t))
}

func TestPlaceOrder_InsufficientStockCreatesNoOrder(t *testing.T) {
	t.Parallel()

	svc, store, _ := newService(t, 1)
	ctx := context.Background()

	in := placeInput() // qty 2 against stock 1
	_, err := svc.PlaceOrder(ctx, buyer, in)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)

	all, err := store.ListOrders(ctx, ledger.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)

	p, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Stock)
}

func TestPlaceOrder_Validation(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t, 5)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*PlaceOrderInput)
	}{
		{"missing product", func(in *PlaceOrderInput) { in.ProductID = "" }},
		{"zero quantity", func(in *PlaceOrderInput) { in.Quantity = 0 }},
		{"negative quantity", func(in *PlaceOrderInput) { in.Quantity = -3 }},
		{"bad payment method", func(in *PlaceOrderInput) { in.PaymentMethod = "barter" }},
		{"blank address", func(in *PlaceOrderInput) { in.ShippingAddress = "  " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := placeInput()
			tt.mutate(&in)
			_, err := svc.PlaceOrder(ctx, buyer, in)
			assert.ErrorIs(t, err, market.ErrValidation)
		})
	}
}

func TestPlaceOrder_SellerForbidden(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t, 5)
	_, err := svc.PlaceOrder(context.Background(), seller, placeInput())
	assert.ErrorIs(t, err, authz.ErrUnauthorized)
}

func TestPlaceOrder_RateChangeDoesNotAlterTotal(t *testing.T) {
	t.Parallel()

	svc, store, _ := newService(t, 5)
	ctx := context.Background()

	order, err := svc.PlaceOrder(ctx, buyer, placeInput())
	require.NoError(t, err)

	p, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	p.RateCents = 99900
	_, err = store.PutProduct(ctx, p, p.Version)
	require.NoError(t, err)

	got, err := store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 8500, got.UnitRateCents)
	assert.EqualValues(t, 17000, got.TotalCents)
}

func TestCancel_RestoresStockExactlyOnce(t *testing.T) {
	t.Parallel()

	svc, store, pub := newService(t, 5)
	ctx := context.Background()

	order, err := svc.PlaceOrder(ctx, buyer, placeInput())
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, buyer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, market.StatusCancelled, cancelled.Status)

	p, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)
	assert.False(t, p.IsSold)

	// second cancel fails and must not release again
	_, err = svc.Cancel(ctx, buyer, order.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	p, err = store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)

	assert.Equal(t, []string{market.EventOrderPlaced, market.EventOrderCancelled}, pub.types(t))
}

func TestCancel_LastUnitRoundTrip(t *testing.T) {
	t.Parallel()

	svc, store, _ := newService(t, 1)
	ctx := context.Background()

	in := placeInput()
	in.Quantity = 1
	order, err := svc.PlaceOrder(ctx, buyer, in)
	require.NoError(t, err)

	p, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, 0, p.Stock)
	require.True(t, p.IsSold)

	_, err = svc.Cancel(ctx, buyer, order.ID)
	require.NoError(t, err)

	p, err = store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Stock)
	assert.False(t, p.IsSold)
}

func TestCancel_ForeignBuyerLooksLikeMissing(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t, 5)
	ctx := context.Background()

	order, err := svc.PlaceOrder(ctx, buyer, placeInput())
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, otherBuyer, order.ID)
	assert.ErrorIs(t, err, authz.ErrUnauthorized)

	_, err = svc.Cancel(ctx, buyer, "no-such-order")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestCancel_AfterConfirmFails(t *testing.T) {
	t.Parallel()

	svc, store, _ := newService(t, 5)
	ctx := context.Background()

	order, err := svc.PlaceOrder(ctx, buyer, placeInput())
	require.NoError(t, err)
	_, err = svc.Advance(ctx, seller, order.ID, market.StatusConfirmed)
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, buyer, order.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	p, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock)
}

func TestAdvance_FullLifecycle(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t, 5)
	ctx := context.Background()

	order, err := svc.PlaceOrder(ctx, buyer, placeInput())
	require.NoError(t, err)

	for _, target := range []market.Status{market.StatusConfirmed, market.StatusShipped} {
		order, err = svc.Advance(ctx, seller, order.ID, target)
		require.NoError(t, err)
		assert.Equal(t, target, order.Status)
		assert.Equal(t, market.PaymentPending, order.PaymentStatus)
	}

	order, err = svc.Advance(ctx, seller, order.ID, market.StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, market.StatusDelivered, order.Status)
	// cod orders settle on delivery
	assert.Equal(t, market.PaymentPaid, order.PaymentStatus)
}

func TestAdvance_SkippingStatesFails(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t, 5)
	ctx := context.Background()

	order, err := svc.PlaceOrder(ctx, buyer, placeInput())
	require.NoError(t, err)

	for _, target := range []market.Status{market.StatusShipped, market.StatusDelivered} {
		_, err := svc.Advance(ctx, seller, order.ID, target)
		assert.ErrorIs(t, err, ErrInvalidTransition, "pending -> %s", target)
	}
}

func TestAdvance_Authorization(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t, 5)
	ctx := context.Background()

	order, err := svc.PlaceOrder(ctx, buyer, placeInput())
	require.NoError(t, err)

	// buyers cannot move an order forward
	_, err = svc.Advance(ctx, buyer, order.ID, market.StatusConfirmed)
	assert.ErrorIs(t, err, authz.ErrUnauthorized)

	// nor can a seller who does not own the product
	_, err = svc.Advance(ctx, otherSeller, order.ID, market.StatusConfirmed)
	assert.ErrorIs(t, err, authz.ErrUnauthorized)

	// admin can
	_, err = svc.Advance(ctx, admin, order.ID, market.StatusConfirmed)
	assert.NoError(t, err)
}

func TestAdvance_CancelledTargetDelegates(t *testing.T) {
	t.Parallel()

	svc, store, _ := newService(t, 5)
	ctx := context.Background()

	order, err := svc.PlaceOrder(ctx, buyer, placeInput())
	require.NoError(t, err)

	got, err := svc.Advance(ctx, buyer, order.ID, market.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, market.StatusCancelled, got.Status)

	p, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)
}

// stock + sum of non-cancelled order quantities stays equal to the initial
// stock through placements and cancellations.
func TestConservation(t *testing.T) {
	t.Parallel()

	const initial = 10
	svc, store, _ := newService(t, initial)
	ctx := context.Background()

	var placed []market.Order
	for i := 0; i < 4; i++ {
		in := placeInput()
		in.Quantity = 2
		o, err := svc.PlaceOrder(ctx, buyer, in)
		require.NoError(t, err)
		placed = append(placed, o)
	}
	for _, o := range placed[:2] {
		_, err := svc.Cancel(ctx, buyer, o.ID)
		require.NoError(t, err)
	}

	p, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)

	all, err := store.ListOrders(ctx, ledger.OrderFilter{})
	require.NoError(t, err)
	reserved := 0
	for _, o := range all {
		if o.Status != market.StatusCancelled {
			reserved += o.Quantity
		}
	}
	assert.Equal(t, initial, p.Stock+reserved)
}

// Two buyers race for the last unit: exactly one order is created.
func TestPlaceOrder_ConcurrentLastUnit(t *testing.T) {
	t.Parallel()

	svc, store, _ := newService(t, 1)
	ctx := context.Background()

	in := placeInput()
	in.Quantity = 1

	type result struct {
		order market.Order
		err   error
	}
	results := make(chan result, 2)
	var wg sync.WaitGroup
	for _, c := range []authz.Caller{buyer, otherBuyer} {
		wg.Add(1)
		go func(c authz.Caller) {
			defer wg.Done()
			o, err := svc.PlaceOrder(ctx, c, in)
			results <- result{o, err}
		}(c)
	}
	wg.Wait()
	close(results)

	var wins, stockFails int
	for r := range results {
		if r.err == nil {
			wins++
			assert.Equal(t, market.StatusPending, r.order.Status)
		} else {
			require.ErrorIs(t, r.err, inventory.ErrInsufficientStock)
			stockFails++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, stockFails)

	p, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)
	assert.True(t, p.IsSold)
}

// flakyStore fails product writes a set number of times before recovering,
// standing in for transient storage trouble.
type flakyStore struct {
	*ledger.MemoryStore
	mu    sync.Mutex
	fails int
}

func (f *flakyStore) setFails(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fails = n
}

func (f *flakyStore) PutProduct(ctx context.Context, p market.Product, v int64) (market.Product, error) {
	f.mu.Lock()
	failing := f.fails > 0
	if failing {
		f.fails--
	}
	f.mu.Unlock()
	if failing {
		return market.Product{}, errors.New("write timeout")
	}
	return f.MemoryStore.PutProduct(ctx, p, v)
}

func newFlakyService(t *testing.T, stock int) (*Service, *flakyStore) {
	t.Helper()
	fs := &flakyStore{MemoryStore: ledger.NewMemory()}
	_, err := fs.PutProduct(context.Background(), market.Product{
		ID: "p1", SellerID: seller.ID, Name: "weekender", Material: market.MaterialLeather,
		Height: 40, Width: 30, RateCents: 8500, Stock: stock,
	}, 0)
	require.NoError(t, err)
	return &Service{Store: fs, Inventory: inventory.New(fs), ServiceName: "test"}, fs
}

func TestCancel_RetriesTransientReleaseFailure(t *testing.T) {
	t.Parallel()

	svc, fs := newFlakyService(t, 5)
	ctx := context.Background()

	order, err := svc.PlaceOrder(ctx, buyer, placeInput())
	require.NoError(t, err)

	fs.setFails(2)
	cancelled, err := svc.Cancel(ctx, buyer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, market.StatusCancelled, cancelled.Status)

	p, err := fs.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)
}

func TestCancel_RollsBackWhenReleaseKeepsFailing(t *testing.T) {
	t.Parallel()

	svc, fs := newFlakyService(t, 5)
	ctx := context.Background()

	order, err := svc.PlaceOrder(ctx, buyer, placeInput())
	require.NoError(t, err)

	fs.setFails(1000)
	_, err = svc.Cancel(ctx, buyer, order.ID)
	require.Error(t, err)

	// the order is back to pending, never cancelled-without-release
	got, err := fs.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, market.StatusPending, got.Status)

	// once storage recovers the cancel goes through and restores stock
	fs.setFails(0)
	_, err = svc.Cancel(ctx, buyer, order.ID)
	require.NoError(t, err)
	p, err := fs.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)
}

func TestGetAndList_Visibility(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t, 5)
	ctx := context.Background()

	order, err := svc.PlaceOrder(ctx, buyer, placeInput())
	require.NoError(t, err)

	// buyer and the product's seller see it, a stranger gets not-found
	_, err = svc.Get(ctx, buyer, order.ID)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, seller, order.ID)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, otherBuyer, order.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	own, err := svc.List(ctx, buyer)
	require.NoError(t, err)
	assert.Len(t, own, 1)

	foreign, err := svc.List(ctx, otherBuyer)
	require.NoError(t, err)
	assert.Empty(t, foreign)

	bySeller, err := svc.List(ctx, seller)
	require.NoError(t, err)
	assert.Len(t, bySeller, 1)
}
