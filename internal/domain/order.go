package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cod"
	PaymentBankTransfer   PaymentMethod = "transfer"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCashOnDelivery || m == PaymentBankTransfer
}

// Order is the persisted result of a checkout. TotalAmount,
// PaymentMethod and CreatedAt never change after creation; Status moves
// through the fulfillment workflow only.
type Order struct {
	ID              string        `json:"id"`
	OrderNumber     string        `json:"order_number"`
	CustomerID      string        `json:"customer_id"`
	Status          OrderStatus   `json:"status"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	ShippingAddress string        `json:"shipping_address"`
	Notes           string        `json:"notes,omitempty"`
	TotalAmount     Money         `json:"total_amount"`
	Items           []OrderItem   `json:"items"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// OrderItem is immutable once persisted. UnitPrice is the cart's price
// snapshot, never the catalog price at read time.
type OrderItem struct {
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Unit      string `json:"unit"`
	Quantity  int    `json:"quantity"`
	UnitPrice Money  `json:"unit_price"`
	LineTotal Money  `json:"line_total"`
}

// OrderStats feeds the admin dashboard.
type OrderStats struct {
	PendingCount     int   `json:"pending_count"`
	DeliveredRevenue Money `json:"delivered_revenue"`
}
