package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ariefcatur/go-suitcase-market.git/internal/authz"
	"github.com/ariefcatur/go-suitcase-market.git/internal/inventory"
	"github.com/ariefcatur/go-suitcase-market.git/internal/ledger"
	"github.com/ariefcatur/go-suitcase-market.git/internal/logging"
	"github.com/ariefcatur/go-suitcase-market.git/internal/market"
	"github.com/ariefcatur/go-suitcase-market.git/internal/orders"
)

// Envelope is the response contract consumed by the UI.
type Envelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	Data       any         `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type Pagination struct {
	CurrentPage  int `json:"currentPage"`
	TotalPages   int `json:"totalPages"`
	TotalItems   int `json:"totalItems"`
	ItemsPerPage int `json:"itemsPerPage"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func ok(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

func created(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusCreated, Envelope{Success: true, Message: message, Data: data})
}

func paginated(w http.ResponseWriter, message string, data any, p Pagination) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Message: message, Data: data, Pagination: &p})
}

func failStatus(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, Envelope{Success: false, Message: message})
}

// writeErr maps the error taxonomy onto HTTP statuses: 400 validation,
// 403 authorization, 404 not-found, 409 conflict, 500 everything else.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, market.ErrValidation), errors.Is(err, inventory.ErrInvalidQuantity):
		failStatus(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, authz.ErrUnauthorized):
		failStatus(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, ledger.ErrNotFound):
		failStatus(w, http.StatusNotFound, "not found")
	case errors.Is(err, inventory.ErrInsufficientStock),
		errors.Is(err, orders.ErrInvalidTransition),
		errors.Is(err, inventory.ErrConcurrencyExhausted),
		errors.Is(err, ledger.ErrVersionConflict):
		failStatus(w, http.StatusConflict, err.Error())
	default:
		logging.FromContext(r.Context()).Error("internal error", "path", r.URL.Path, "error", err)
		failStatus(w, http.StatusInternalServerError, "internal error")
	}
}

// writeErrOpaque is writeErr for id-addressed resources: authorization
// failures come back as not-found so callers cannot probe for existence.
func writeErrOpaque(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, authz.ErrUnauthorized) {
		failStatus(w, http.StatusNotFound, "not found")
		return
	}
	writeErr(w, r, err)
}
