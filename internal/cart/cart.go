// Package cart maintains the customer's in-progress selection. Carts
// live in memory only; they become durable by turning into an order at
// checkout. Stock checks here use the last observed product snapshot,
// true admission control is re-run at submission time.
package cart

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/umistore/storefront/internal/domain"
	"github.com/umistore/storefront/internal/inventory"
)

// ErrItemNotInCart is returned when updating a product that was never
// added. Removal of an absent product is a no-op, not an error.
var ErrItemNotInCart = errors.New("item not in cart")

// Cart is an insertion-ordered set of items, unique per product.
// It is not safe for concurrent use; the Store serializes access.
type Cart struct {
	items []domain.CartItem
	index map[string]int
}

func New() *Cart {
	return &Cart{index: make(map[string]int)}
}

// AddItem inserts the product with a frozen price snapshot, or tops up
// the quantity if it is already present. It returns the resulting
// quantity of the item.
func (c *Cart) AddItem(product *domain.Product, quantity int) (int, error) {
	if product == nil {
		return 0, domain.ErrProductNotFound
	}
	if !product.Purchasable() {
		return 0, domain.ErrOutOfStock
	}
	if quantity < 1 {
		quantity = 1
	}

	if i, ok := c.index[product.ID]; ok {
		removed, err := c.UpdateQuantity(product, c.items[i].Quantity+quantity)
		if err != nil {
			return 0, err
		}
		if removed {
			return 0, nil
		}
		return c.items[c.index[product.ID]].Quantity, nil
	}

	if err := inventory.Validate(product, quantity); err != nil {
		return 0, err
	}

	c.items = append(c.items, domain.CartItem{
		ProductID:     product.ID,
		Name:          product.Name,
		Unit:          product.Unit,
		ImageURL:      product.ImageURL,
		PriceSnapshot: product.Price,
		Quantity:      quantity,
	})
	c.index[product.ID] = len(c.items) - 1

	return quantity, nil
}

// UpdateQuantity sets the quantity of an existing item. A quantity of
// zero or less removes the item and reports removal. A quantity above
// the product's stock snapshot fails and leaves the cart unchanged.
func (c *Cart) UpdateQuantity(product *domain.Product, quantity int) (removed bool, err error) {
	if product == nil {
		return false, domain.ErrProductNotFound
	}
	if _, ok := c.index[product.ID]; !ok {
		return false, ErrItemNotInCart
	}

	if quantity <= 0 {
		c.RemoveItem(product.ID)
		return true, nil
	}

	if err := inventory.Validate(product, quantity); err != nil {
		return false, err
	}

	c.items[c.index[product.ID]].Quantity = quantity
	return false, nil
}

// RemoveItem is idempotent; removing an absent product is a no-op.
func (c *Cart) RemoveItem(productID string) {
	i, ok := c.index[productID]
	if !ok {
		return
	}

	c.items = append(c.items[:i], c.items[i+1:]...)
	delete(c.index, productID)
	for j := i; j < len(c.items); j++ {
		c.index[c.items[j].ProductID] = j
	}
}

// Items returns a display-ordered copy of the cart contents.
func (c *Cart) Items() []domain.CartItem {
	out := make([]domain.CartItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Len() int {
	return len(c.items)
}

// Totals sums quantities and snapshot line totals. Pure, no side effects.
func (c *Cart) Totals() domain.CartTotals {
	totals := domain.CartTotals{
		Subtotal: domain.Money{Amount: decimal.Zero, Currency: domain.DefaultCurrency},
	}

	for _, item := range c.items {
		totals.ItemCount += item.Quantity
		totals.Subtotal.Amount = totals.Subtotal.Amount.Add(item.LineTotal().Amount)
		totals.Subtotal.Currency = item.PriceSnapshot.Currency
	}

	return totals
}

// Clear empties the cart after a successful submission or explicit
// abandonment.
func (c *Cart) Clear() {
	c.items = nil
	c.index = make(map[string]int)
}
