package domain

// CartItem is one line of a customer's working selection. PriceSnapshot
// is frozen when the product is first added; later catalog price changes
// never rewrite it.
type CartItem struct {
	ProductID     string `json:"product_id"`
	Name          string `json:"name"`
	Unit          string `json:"unit"`
	ImageURL      string `json:"image_url,omitempty"`
	PriceSnapshot Money  `json:"price_snapshot"`
	Quantity      int    `json:"quantity"`
}

// LineTotal is quantity times the frozen unit price.
func (i CartItem) LineTotal() Money {
	return i.PriceSnapshot.MulInt(i.Quantity)
}

type CartTotals struct {
	ItemCount int   `json:"item_count"`
	Subtotal  Money `json:"subtotal"`
}
