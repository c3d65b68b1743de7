package market

const (
	TopicOrderPlaced    = "market.order.placed"
	TopicOrderStatus    = "market.order.status"
	TopicProductSoldOut = "market.product.soldout"
)

// Partition key = order_id (or product_id for sold-out events) so every
// event of one aggregate stays ordered.
func PartitionKey(id string) []byte { return []byte(id) }
