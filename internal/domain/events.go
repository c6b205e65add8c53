package domain

import "time"

type OrderCreatedEvent struct {
	OrderID     string      `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	CustomerID  string      `json:"customer_id"`
	Items       []OrderItem `json:"items"`
	Total       Money       `json:"total"`
	OccurredAt  time.Time   `json:"occurred_at"`
}

// Notification is fire-and-forget user feedback; delivery is not part of
// any correctness contract.
type Notification struct {
	Kind      string    `json:"kind"`
	Recipient string    `json:"recipient"`
	Message   string    `json:"message"`
	SentAt    time.Time `json:"sent_at"`
}

const (
	NotifyOrderPlaced        = "order.placed"
	NotifyOrderConfirmed     = "order.confirmed"
	NotifyOrderStatusChanged = "order.status_changed"
)
