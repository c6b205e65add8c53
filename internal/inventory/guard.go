// Package inventory decides whether a requested quantity of a product is
// purchasable against a stock snapshot. Both the cart and checkout run
// the same check so the two paths can never diverge.
package inventory

import "github.com/umistore/storefront/internal/domain"

// Validate reports whether quantity units of the product are admissible.
// A nil product means the catalog no longer knows it. The check is pure;
// callers supply the snapshot and decide what staleness they accept.
func Validate(product *domain.Product, quantity int) error {
	if product == nil {
		return domain.ErrProductNotFound
	}
	if !product.Active {
		return domain.ErrProductInactive
	}
	if quantity > product.StockQuantity {
		return domain.InsufficientStockError{Available: product.StockQuantity}
	}
	return nil
}
