package cart_test

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umistore/storefront/internal/cart"
	"github.com/umistore/storefront/internal/domain"
)

func randomProduct(stock int) *domain.Product {
	return &domain.Product{
		ID:            gofakeit.UUID(),
		Name:          gofakeit.ProductName(),
		Unit:          "1kg",
		Price:         domain.IDR(int64(gofakeit.Number(1000, 100000))),
		StockQuantity: stock,
		Active:        true,
	}
}

func TestCart_AddItem(t *testing.T) {
	t.Run("adds new item with frozen price snapshot", func(t *testing.T) {
		c := cart.New()
		p := randomProduct(10)

		qty, err := c.AddItem(p, 2)
		require.NoError(t, err)
		assert.Equal(t, 2, qty)

		items := c.Items()
		require.Len(t, items, 1)
		assert.Equal(t, p.ID, items[0].ProductID)
		assert.True(t, items[0].PriceSnapshot.Equal(p.Price))
	})

	t.Run("defaults quantity to one", func(t *testing.T) {
		c := cart.New()

		qty, err := c.AddItem(randomProduct(5), 0)
		require.NoError(t, err)
		assert.Equal(t, 1, qty)
	})

	t.Run("tops up existing item", func(t *testing.T) {
		c := cart.New()
		p := randomProduct(10)

		_, err := c.AddItem(p, 2)
		require.NoError(t, err)

		qty, err := c.AddItem(p, 3)
		require.NoError(t, err)
		assert.Equal(t, 5, qty)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("rejects inactive product", func(t *testing.T) {
		c := cart.New()
		p := randomProduct(10)
		p.Active = false

		_, err := c.AddItem(p, 1)
		require.ErrorIs(t, err, domain.ErrOutOfStock)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("rejects zero stock product", func(t *testing.T) {
		c := cart.New()

		_, err := c.AddItem(randomProduct(0), 1)
		require.ErrorIs(t, err, domain.ErrOutOfStock)
	})

	t.Run("rejects quantity above stock and leaves cart unchanged", func(t *testing.T) {
		c := cart.New()
		p := randomProduct(3)

		_, err := c.AddItem(p, 2)
		require.NoError(t, err)

		_, err = c.AddItem(p, 2)
		require.ErrorIs(t, err, domain.ErrInsufficientStock)

		items := c.Items()
		require.Len(t, items, 1)
		assert.Equal(t, 2, items[0].Quantity)
	})

	t.Run("preserves insertion order", func(t *testing.T) {
		c := cart.New()
		first, second, third := randomProduct(5), randomProduct(5), randomProduct(5)

		for _, p := range []*domain.Product{first, second, third} {
			_, err := c.AddItem(p, 1)
			require.NoError(t, err)
		}

		items := c.Items()
		require.Len(t, items, 3)
		assert.Equal(t, first.ID, items[0].ProductID)
		assert.Equal(t, second.ID, items[1].ProductID)
		assert.Equal(t, third.ID, items[2].ProductID)
	})
}

func TestCart_UpdateQuantity(t *testing.T) {
	t.Run("sets quantity within stock", func(t *testing.T) {
		c := cart.New()
		p := randomProduct(10)

		_, err := c.AddItem(p, 1)
		require.NoError(t, err)

		removed, err := c.UpdateQuantity(p, 7)
		require.NoError(t, err)
		assert.False(t, removed)
		assert.Equal(t, 7, c.Items()[0].Quantity)
	})

	t.Run("zero quantity removes the item", func(t *testing.T) {
		c := cart.New()
		p := randomProduct(10)

		_, err := c.AddItem(p, 2)
		require.NoError(t, err)

		removed, err := c.UpdateQuantity(p, 0)
		require.NoError(t, err)
		assert.True(t, removed)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("quantity above stock fails and leaves cart unchanged", func(t *testing.T) {
		c := cart.New()
		p := randomProduct(4)

		_, err := c.AddItem(p, 3)
		require.NoError(t, err)
		before := c.Items()

		_, err = c.UpdateQuantity(p, 5)
		require.ErrorIs(t, err, domain.ErrInsufficientStock)

		var insufficient domain.InsufficientStockError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, 4, insufficient.Available)

		if diff := cmp.Diff(before, c.Items()); diff != "" {
			t.Errorf("cart changed after rejected update (-want +got):\n%s", diff)
		}
	})

	t.Run("updating absent item fails", func(t *testing.T) {
		c := cart.New()

		_, err := c.UpdateQuantity(randomProduct(5), 2)
		require.ErrorIs(t, err, cart.ErrItemNotInCart)
	})
}

func TestCart_RemoveItem(t *testing.T) {
	c := cart.New()
	first, second := randomProduct(5), randomProduct(5)

	_, err := c.AddItem(first, 1)
	require.NoError(t, err)
	_, err = c.AddItem(second, 1)
	require.NoError(t, err)

	c.RemoveItem(first.ID)
	require.Equal(t, 1, c.Len())
	assert.Equal(t, second.ID, c.Items()[0].ProductID)

	// Idempotent: removing again is a no-op.
	c.RemoveItem(first.ID)
	assert.Equal(t, 1, c.Len())

	// Index stays consistent after compaction.
	removed, err := c.UpdateQuantity(second, 3)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, 3, c.Items()[0].Quantity)
}

func TestCart_PriceSnapshotImmutable(t *testing.T) {
	c := cart.New()
	p := randomProduct(10)
	original := p.Price

	_, err := c.AddItem(p, 1)
	require.NoError(t, err)

	// A catalog price change must not rewrite the snapshot of an item
	// already in the cart.
	p.Price = domain.IDR(p.Price.Amount.IntPart() * 2)

	assert.True(t, c.Items()[0].PriceSnapshot.Equal(original))

	totals := c.Totals()
	assert.True(t, totals.Subtotal.Equal(original))
}

func TestCart_Totals(t *testing.T) {
	c := cart.New()

	a := randomProduct(10)
	a.Price = domain.IDR(10000)
	b := randomProduct(10)
	b.Price = domain.IDR(5000)

	_, err := c.AddItem(a, 2)
	require.NoError(t, err)
	_, err = c.AddItem(b, 1)
	require.NoError(t, err)

	totals := c.Totals()
	assert.Equal(t, 3, totals.ItemCount)
	assert.True(t, totals.Subtotal.Amount.Equal(decimal.NewFromInt(25000)),
		"subtotal %s", totals.Subtotal.Amount)

	t.Run("empty cart totals are zero", func(t *testing.T) {
		c.Clear()
		totals := c.Totals()
		assert.Equal(t, 0, totals.ItemCount)
		assert.True(t, totals.Subtotal.IsZero())
	})
}
