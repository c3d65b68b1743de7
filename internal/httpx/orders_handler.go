package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ariefcatur/go-suitcase-market.git/internal/logging"
	"github.com/ariefcatur/go-suitcase-market.git/internal/market"
	"github.com/ariefcatur/go-suitcase-market.git/internal/orders"
	"github.com/ariefcatur/go-suitcase-market.git/internal/redisx"
	"github.com/go-chi/chi/v5"
)

func (h *Handlers) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logging.FromContext(ctx).With("handler", "order.place")

	var in orders.PlaceOrderInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		failStatus(w, http.StatusBadRequest, "invalid json")
		return
	}

	order, err := h.Orders.PlaceOrder(ctx, mustCaller(r), in)
	if err != nil {
		l.Warn("place_order_failed", "product_id", in.ProductID, "qty", in.Quantity, "error", err)
		writeErr(w, r, err)
		return
	}

	// seed the status cache so GETs are cheap until the worker takes over
	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, order.ID)
		_ = h.Redis.Set(ctx, key, `{"status":"pending"}`, redisx.TTLStatusCache).Err()
	}

	l.Info("place_order_success", "order_id", order.ID, "order_number", order.OrderNumber)
	created(w, "order placed", order)
}

func (h *Handlers) listOrders(w http.ResponseWriter, r *http.Request) {
	items, err := h.Orders.List(r.Context(), mustCaller(r))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	page, limit := pageParams(r)
	pageItems, p := window(items, page, limit)
	paginated(w, "orders fetched", pageItems, p)
}

func (h *Handlers) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.Orders.Get(r.Context(), mustCaller(r), chi.URLParam(r, "id"))
	if err != nil {
		writeErrOpaque(w, r, err)
		return
	}
	ok(w, "order fetched", order)
}

// orderStatus serves the worker-maintained status cache, falling back to the
// ledger and reseeding the key on a miss. Visibility rules are the same as
// getOrder.
func (h *Handlers) orderStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	order, err := h.Orders.Get(ctx, mustCaller(r), id)
	if err != nil {
		writeErrOpaque(w, r, err)
		return
	}

	key := fmt.Sprintf(redisx.KeyOrderStatus, id)
	if h.Redis != nil {
		if raw, err := h.Redis.Get(ctx, key).Result(); err == nil && raw != "" {
			var body map[string]string
			if json.Unmarshal([]byte(raw), &body) == nil {
				ok(w, "order status fetched", body)
				return
			}
		}
	}

	body := map[string]string{"status": string(order.Status)}
	if h.Redis != nil {
		raw, _ := json.Marshal(body)
		_ = h.Redis.Set(ctx, key, raw, redisx.TTLStatusCache).Err()
	}
	ok(w, "order status fetched", body)
}

func (h *Handlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logging.FromContext(ctx).With("handler", "order.cancel")

	order, err := h.Orders.Cancel(ctx, mustCaller(r), chi.URLParam(r, "id"))
	if err != nil {
		l.Warn("cancel_order_failed", "order_id", chi.URLParam(r, "id"), "error", err)
		writeErrOpaque(w, r, err)
		return
	}
	l.Info("cancel_order_success", "order_id", order.ID)
	ok(w, "order cancelled", order)
}

type advanceOrderReq struct {
	Status market.Status `json:"status"`
}

func (h *Handlers) advanceOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logging.FromContext(ctx).With("handler", "order.advance")

	var req advanceOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		failStatus(w, http.StatusBadRequest, "invalid json")
		return
	}

	order, err := h.Orders.Advance(ctx, mustCaller(r), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		l.Warn("advance_order_failed", "order_id", chi.URLParam(r, "id"), "target", req.Status, "error", err)
		writeErrOpaque(w, r, err)
		return
	}
	l.Info("advance_order_success", "order_id", order.ID, "status", order.Status)
	ok(w, "order updated", order)
}

func (h *Handlers) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.Stats.Dashboard(r.Context(), mustCaller(r))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	ok(w, "dashboard fetched", d)
}
