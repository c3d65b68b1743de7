package market

import (
	"encoding/json"
	"time"
)

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventOrderCancelled     = "OrderCancelled"
	EventProductSoldOut     = "ProductSoldOut"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id or product_id
	Payload       json.RawMessage `json:"payload"`
}

type OrderPlacedPayload struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	BuyerID     string `json:"buyer_id"`
	ProductID   string `json:"product_id"`
	Quantity    int    `json:"qty"`
	TotalCents  int64  `json:"total_cents"`
}

type OrderStatusChangedPayload struct {
	OrderID string `json:"order_id"`
	From    Status `json:"from"`
	To      Status `json:"to"`
}

type OrderCancelledPayload struct {
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"qty"` // stock returned to the product
}

type ProductSoldOutPayload struct {
	ProductID string `json:"product_id"`
	SellerID  string `json:"seller_id"`
	Forced    bool   `json:"forced"` // true when a seller marked it sold
}
