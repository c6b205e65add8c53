package domain

import "time"

// Product is a catalog snapshot as observed at one point in time. The
// cart and checkout treat it as immutable for the duration of a request;
// purchasability is decided from the snapshot, not from a live lock.
type Product struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	ImageURL      string `json:"image_url,omitempty"`
	Category      string `json:"category"`
	Price         Money  `json:"price"`
	OriginalPrice *Money `json:"original_price,omitempty"`
	StockQuantity int    `json:"stock_quantity"`
	Unit          string `json:"unit"`
	Active        bool   `json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Purchasable reports whether the product can be added to a cart at all.
func (p Product) Purchasable() bool {
	return p.Active && p.StockQuantity > 0
}

type Category struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}
