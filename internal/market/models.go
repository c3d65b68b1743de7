package market

import (
	"errors"
	"time"
)

// ErrValidation marks malformed input rejected before any ledger access.
var ErrValidation = errors.New("validation failed")

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleSeller Role = "seller"
	RoleBuyer  Role = "buyer"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleSeller || r == RoleBuyer
}

type Material string

const (
	MaterialLeather     Material = "leather"
	MaterialPlastic     Material = "plastic"
	MaterialFabric      Material = "fabric"
	MaterialAluminum    Material = "aluminum"
	MaterialCarbonFiber Material = "carbon-fiber"
)

var Materials = []Material{
	MaterialLeather, MaterialPlastic, MaterialFabric, MaterialAluminum, MaterialCarbonFiber,
}

func (m Material) Valid() bool {
	for _, v := range Materials {
		if m == v {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "cod"
	PaymentOnline PaymentMethod = "online"
)

func (p PaymentMethod) Valid() bool { return p == PaymentCOD || p == PaymentOnline }

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type Product struct {
	ID          string   `json:"id"`
	SellerID    string   `json:"seller_id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Material    Material `json:"material"`
	Height      float64  `json:"height"`
	Width       float64  `json:"width"`
	Depth       float64  `json:"depth,omitempty"`
	RateCents   int64    `json:"rate_cents"`
	Stock       int      `json:"stock"`
	IsSold      bool     `json:"is_sold"`
	Features    []string `json:"features,omitempty"`
	Color       string   `json:"color,omitempty"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Order snapshots quantity and unit rate at creation; TotalCents is never
// recomputed from the live product.
type Order struct {
	ID              string        `json:"id"`
	OrderNumber     string        `json:"order_number"`
	BuyerID         string        `json:"buyer_id"`
	ProductID       string        `json:"product_id"`
	Quantity        int           `json:"quantity"`
	UnitRateCents   int64         `json:"unit_rate_cents"`
	TotalCents      int64         `json:"total_cents"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	Status          Status        `json:"status"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	ShippingAddress string        `json:"shipping_address"`
	OrderNotes      string        `json:"order_notes,omitempty"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	IsVerified bool      `json:"is_verified"`
	Version    int64     `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
}
