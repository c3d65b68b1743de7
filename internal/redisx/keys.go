package redisx

import "time"

const (
	// Cached order status: order_status:{order_id} -> {"status":"..."}
	KeyOrderStatus = "order_status:%s"

	// Cached dashboard stats: dashboard:{role}:{user_id} -> stats JSON.
	// Admin dashboards use dashboard:admin:_ so one delete invalidates them.
	KeyDashboard = "dashboard:%s:%s"

	// Dedup for event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDashboard   = 30 * time.Second
	TTLDedup       = 48 * time.Hour
)
