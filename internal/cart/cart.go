// Package cart holds the order lines a customer has picked, and builds the
// submission payload. Takeout carries a 10% discount.
package cart

import (
	"festival-orders/internal/client"
	"festival-orders/internal/tokenstore"
)

// Line is one menu item in the cart.
type Line struct {
	ProductID int64
	Name      string
	UnitPrice int64
	Quantity  int
}

// Cart maps menu items to quantities. A quantity of zero removes the line;
// it is never retained.
type Cart struct {
	lines map[int64]*Line
	order []int64
}

// New creates an empty cart.
func New() *Cart {
	return &Cart{lines: make(map[int64]*Line)}
}

// Set pins the quantity for an item, adding or removing the line as needed.
func (c *Cart) Set(productID int64, name string, unitPrice int64, quantity int) {
	if quantity <= 0 {
		c.remove(productID)
		return
	}
	if line, ok := c.lines[productID]; ok {
		line.Quantity = quantity
		return
	}
	c.lines[productID] = &Line{ProductID: productID, Name: name, UnitPrice: unitPrice, Quantity: quantity}
	c.order = append(c.order, productID)
}

// Adjust changes an item's quantity by delta, clamping at zero.
func (c *Cart) Adjust(productID int64, name string, unitPrice int64, delta int) {
	qty := delta
	if line, ok := c.lines[productID]; ok {
		qty = line.Quantity + delta
	}
	c.Set(productID, name, unitPrice, qty)
}

func (c *Cart) remove(productID int64) {
	if _, ok := c.lines[productID]; !ok {
		return
	}
	delete(c.lines, productID)
	for i, id := range c.order {
		if id == productID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool {
	return len(c.lines) == 0
}

// Lines returns the cart contents in the order items were first added.
func (c *Cart) Lines() []Line {
	out := make([]Line, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.lines[id])
	}
	return out
}

// Subtotal is the undiscounted total.
func (c *Cart) Subtotal() int64 {
	var sum int64
	for _, line := range c.lines {
		sum += line.UnitPrice * int64(line.Quantity)
	}
	return sum
}

// Discount is the channel discount applied to the subtotal: 10% for takeout,
// rounded down, nothing for dine-in.
func (c *Cart) Discount(ch tokenstore.Channel) int64 {
	if ch != tokenstore.ChannelTakeout {
		return 0
	}
	return c.Subtotal() / 10
}

// Total is the amount due for the channel.
func (c *Cart) Total(ch tokenstore.Channel) int64 {
	return c.Subtotal() - c.Discount(ch)
}

// PendingOrder serializes the cart for submission.
func (c *Cart) PendingOrder(ch tokenstore.Channel, payerName string) client.PendingOrder {
	items := make([]client.OrderLine, 0, len(c.order))
	for _, line := range c.Lines() {
		items = append(items, client.OrderLine{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return client.PendingOrder{
		OrderType: client.OrderTypeFor(ch),
		PayerName: payerName,
		Items:     items,
	}
}
