package httpx

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ariefcatur/go-suitcase-market.git/internal/orders"
	"github.com/ariefcatur/go-suitcase-market.git/internal/products"
	"github.com/ariefcatur/go-suitcase-market.git/internal/stats"
	"github.com/ariefcatur/go-suitcase-market.git/internal/users"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const defaultPageSize = 10

type Handlers struct {
	Products *products.Service
	Orders   *orders.Service
	Users    *users.Service
	Stats    *stats.Service

	Redis     *redis.Client
	DB        *pgxpool.Pool
	JWTSecret []byte
	StartedAt time.Time
}

func (h *Handlers) Register(r *chi.Mux) {
	r.Group(func(r chi.Router) {
		r.Use(Authenticate(h.JWTSecret))

		r.Get("/products", h.listProducts)
		r.Get("/products/{id}", h.getProduct)

		r.Route("/seller", func(r chi.Router) {
			r.Get("/products", h.sellerProducts)
			r.Post("/products", h.createProduct)
			r.Patch("/products/{id}", h.patchProduct)
			r.Patch("/products/{id}/sold", h.markSold)
			r.Delete("/products/{id}", h.deleteProduct)
			r.Get("/dashboard", h.dashboard)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.placeOrder)
			r.Get("/", h.listOrders)
			r.Get("/{id}", h.getOrder)
			r.Get("/{id}/status", h.orderStatus)
			r.Patch("/{id}/cancel", h.cancelOrder)
			r.Patch("/{id}/status", h.advanceOrder)
			r.Get("/dashboard/stats", h.dashboard)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/users", h.listUsers)
			r.Patch("/users/{id}/status", h.updateUserStatus)
			r.Delete("/users/{id}", h.deleteUser)
			r.Get("/dashboard", h.dashboard)
			r.Get("/system", h.systemHealth)
		})
	})
}

// pageParams reads page/limit query params with the original UI's defaults.
func pageParams(r *http.Request) (page, limit int) {
	page = parseIntDefault(r.URL.Query().Get("page"), 1)
	limit = parseIntDefault(r.URL.Query().Get("limit"), defaultPageSize)
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	return page, limit
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

// window slices one page out of items and describes it.
func window[T any](items []T, page, limit int) ([]T, Pagination) {
	total := len(items)
	totalPages := (total + limit - 1) / limit
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return items[start:end], Pagination{
		CurrentPage:  page,
		TotalPages:   totalPages,
		TotalItems:   total,
		ItemsPerPage: limit,
	}
}
