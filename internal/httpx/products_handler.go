package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/ariefcatur/go-suitcase-market.git/internal/ledger"
	"github.com/ariefcatur/go-suitcase-market.git/internal/logging"
	"github.com/ariefcatur/go-suitcase-market.git/internal/market"
	"github.com/ariefcatur/go-suitcase-market.git/internal/products"
	"github.com/go-chi/chi/v5"
)

func (h *Handlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f := ledger.ProductFilter{Material: market.Material(r.URL.Query().Get("material"))}
	items, err := h.Products.List(ctx, f)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	page, limit := pageParams(r)
	pageItems, p := window(items, page, limit)
	paginated(w, "products fetched", pageItems, p)
}

func (h *Handlers) getProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.Products.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErrOpaque(w, r, err)
		return
	}
	ok(w, "product fetched", product)
}

func (h *Handlers) sellerProducts(w http.ResponseWriter, r *http.Request) {
	items, err := h.Products.ListOwn(r.Context(), mustCaller(r))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	page, limit := pageParams(r)
	pageItems, p := window(items, page, limit)
	paginated(w, "products fetched", pageItems, p)
}

func (h *Handlers) createProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logging.FromContext(ctx).With("handler", "product.create")

	var in products.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		failStatus(w, http.StatusBadRequest, "invalid json")
		return
	}

	product, err := h.Products.Create(ctx, mustCaller(r), in)
	if err != nil {
		l.Warn("create_product_failed", "error", err)
		writeErr(w, r, err)
		return
	}
	l.Info("create_product_success", "product_id", product.ID)
	created(w, "product created", product)
}

func (h *Handlers) patchProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logging.FromContext(ctx).With("handler", "product.patch")

	var in products.PatchInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		failStatus(w, http.StatusBadRequest, "invalid json")
		return
	}

	product, err := h.Products.Patch(ctx, mustCaller(r), chi.URLParam(r, "id"), in)
	if err != nil {
		l.Warn("patch_product_failed", "error", err)
		writeErrOpaque(w, r, err)
		return
	}
	ok(w, "product updated", product)
}

func (h *Handlers) markSold(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logging.FromContext(ctx).With("handler", "product.mark_sold")

	product, err := h.Products.MarkSold(ctx, mustCaller(r), chi.URLParam(r, "id"))
	if err != nil {
		l.Warn("mark_sold_failed", "error", err)
		writeErrOpaque(w, r, err)
		return
	}
	l.Info("mark_sold_success", "product_id", product.ID)
	ok(w, "product marked as sold", product)
}

func (h *Handlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logging.FromContext(ctx).With("handler", "product.delete")

	if err := h.Products.Delete(ctx, mustCaller(r), chi.URLParam(r, "id")); err != nil {
		l.Warn("delete_product_failed", "error", err)
		writeErrOpaque(w, r, err)
		return
	}
	ok(w, "product deleted", nil)
}
