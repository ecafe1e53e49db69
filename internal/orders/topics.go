package orders

const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status.changed"
	TopicPaymentApplied     = "order.payment.applied"
)

// PartitionKey keeps every event of one order on one partition, in order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
