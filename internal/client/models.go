package client

import "festival-orders/internal/tokenstore"

// MenuItem is one entry of the public menu.
type MenuItem struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       int64  `json:"price"`
	IsSoldOut   bool   `json:"is_sold_out"`
	QtySold     int64  `json:"qty_sold,omitempty"`
}

// OrderLine is one line item of a pending order.
type OrderLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// PendingOrder is the transient order payload built immediately before
// submission. It is never persisted.
type PendingOrder struct {
	OrderType string      `json:"order_type"`
	PayerName string      `json:"payer_name"`
	Items     []OrderLine `json:"items"`
}

// OrderTypeFor maps a session channel to the wire order_type value.
func OrderTypeFor(ch tokenstore.Channel) string {
	if ch == tokenstore.ChannelTakeout {
		return "TAKEOUT"
	}
	return "DINE_IN"
}

// OrderResult is the backend acknowledgement of a created order.
type OrderResult struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status,omitempty"`
}

// OrderDetail is the running state of an order shown to a waiting customer.
type OrderDetail struct {
	OrderID   string      `json:"order_id"`
	Status    string      `json:"status"`
	OrderType string      `json:"order_type"`
	PayerName string      `json:"payer_name"`
	Items     []OrderLine `json:"items,omitempty"`
	Total     int64       `json:"total,omitempty"`
}
