package httpx

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ariefcatur/go-suitcase-market.git/internal/authz"
	"github.com/ariefcatur/go-suitcase-market.git/internal/logging"
	"github.com/ariefcatur/go-suitcase-market.git/internal/market"
	"github.com/go-chi/chi/v5"
)

func (h *Handlers) listUsers(w http.ResponseWriter, r *http.Request) {
	role := market.Role(r.URL.Query().Get("role"))
	items, err := h.Users.List(r.Context(), mustCaller(r), role)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	page, limit := pageParams(r)
	pageItems, p := window(items, page, limit)
	paginated(w, "users fetched", pageItems, p)
}

type userStatusReq struct {
	IsVerified bool `json:"isVerified"`
}

func (h *Handlers) updateUserStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logging.FromContext(ctx).With("handler", "admin.user_status")

	var req userStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		failStatus(w, http.StatusBadRequest, "invalid json")
		return
	}

	user, err := h.Users.SetVerified(ctx, mustCaller(r), chi.URLParam(r, "id"), req.IsVerified)
	if err != nil {
		l.Warn("update_user_status_failed", "user_id", chi.URLParam(r, "id"), "error", err)
		writeErr(w, r, err)
		return
	}
	l.Info("update_user_status_success", "user_id", user.ID, "is_verified", user.IsVerified)
	ok(w, "user status updated", user)
}

func (h *Handlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logging.FromContext(ctx).With("handler", "admin.user_delete")

	if err := h.Users.Delete(ctx, mustCaller(r), chi.URLParam(r, "id")); err != nil {
		l.Warn("delete_user_failed", "user_id", chi.URLParam(r, "id"), "error", err)
		writeErr(w, r, err)
		return
	}
	ok(w, "user deleted", nil)
}

func (h *Handlers) systemHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := authz.Check(mustCaller(r), authz.OpViewSystemHealth, ""); err != nil {
		writeErr(w, r, err)
		return
	}

	health := map[string]any{
		"uptime": time.Since(h.StartedAt).String(),
	}
	if h.DB != nil {
		if err := h.DB.Ping(ctx); err != nil {
			health["postgres"] = "down: " + err.Error()
		} else {
			health["postgres"] = "ok"
		}
	}
	if h.Redis != nil {
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			health["redis"] = "down: " + err.Error()
		} else {
			health["redis"] = "ok"
		}
	}
	ok(w, "system health", health)
}
