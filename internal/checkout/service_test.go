package checkout_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umistore/storefront/internal/auth"
	"github.com/umistore/storefront/internal/cart"
	"github.com/umistore/storefront/internal/checkout"
	"github.com/umistore/storefront/internal/domain"
)

type fakeCatalog struct {
	mu       sync.Mutex
	products map[string]*domain.Product
}

func (f *fakeCatalog) GetSnapshot(_ context.Context, productID string) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[productID]
	if !ok {
		return nil, nil
	}
	snapshot := *p
	return &snapshot, nil
}

func (f *fakeCatalog) setStock(productID string, stock int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[productID].StockQuantity = stock
}

type fakeOrders struct {
	mu      sync.Mutex
	created []*domain.Order
	err     error
	entered chan struct{}
	barrier chan struct{}
}

func (f *fakeOrders) Create(_ context.Context, order *domain.Order) error {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.barrier != nil {
		<-f.barrier
	}
	if f.err != nil {
		return f.err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	order.ID = "order-1"
	order.OrderNumber = "UMI-20260829-TEST0001"
	f.created = append(f.created, order)
	return nil
}

func (f *fakeOrders) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

type fakeNotifier struct {
	mu    sync.Mutex
	notes []domain.Notification
}

func (f *fakeNotifier) Notify(_ context.Context, n domain.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, n)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []any
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, _ string, event any) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

type staticGate struct {
	identity auth.Identity
}

func (g staticGate) CurrentIdentity(context.Context) auth.Identity {
	return g.identity
}

type fixture struct {
	service   *checkout.Service
	catalog   *fakeCatalog
	orders    *fakeOrders
	carts     *cart.Store
	notifier  *fakeNotifier
	publisher *fakePublisher
}

func newFixture(t *testing.T, identity auth.Identity, products ...*domain.Product) *fixture {
	t.Helper()

	catalog := &fakeCatalog{products: make(map[string]*domain.Product)}
	for _, p := range products {
		catalog.products[p.ID] = p
	}

	f := &fixture{
		catalog:   catalog,
		orders:    &fakeOrders{},
		carts:     cart.NewStore(),
		notifier:  &fakeNotifier{},
		publisher: &fakePublisher{},
	}
	f.service = checkout.NewService(f.catalog, f.orders, f.carts, staticGate{identity},
		f.publisher, f.notifier, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return f
}

func product(id string, price int64, stock int) *domain.Product {
	return &domain.Product{
		ID:            id,
		Name:          "product " + id,
		Unit:          "1kg",
		Price:         domain.IDR(price),
		StockQuantity: stock,
		Active:        true,
	}
}

var customer = auth.Identity{CustomerID: "cust-1"}

func validRequest() checkout.SubmitRequest {
	return checkout.SubmitRequest{
		PaymentMethod:   domain.PaymentCashOnDelivery,
		ShippingAddress: "Jl. Merdeka No. 1, Jakarta",
	}
}

func TestService_Submit(t *testing.T) {
	t.Run("creates pending order with computed total and clears cart", func(t *testing.T) {
		a := product("a", 10000, 10)
		b := product("b", 5000, 10)
		f := newFixture(t, customer, a, b)

		_, err := f.carts.AddItem("cust-1", a, 1)
		require.NoError(t, err)
		_, err = f.carts.AddItem("cust-1", b, 3)
		require.NoError(t, err)

		order, err := f.service.Submit(t.Context(), "cust-1", validRequest())
		require.NoError(t, err)

		assert.Equal(t, domain.OrderStatusPending, order.Status)
		assert.Equal(t, "cust-1", order.CustomerID)
		assert.True(t, order.TotalAmount.Amount.Equal(decimal.NewFromInt(25000)),
			"total %s", order.TotalAmount.Amount)
		require.Len(t, order.Items, 2)

		items, _ := f.carts.View("cust-1")
		assert.Empty(t, items, "cart must be cleared on success")

		require.Len(t, f.notifier.notes, 1)
		assert.Equal(t, domain.NotifyOrderPlaced, f.notifier.notes[0].Kind)
		assert.Len(t, f.publisher.events, 1)
	})

	t.Run("total equals sum of item line totals", func(t *testing.T) {
		a := product("a", 10000, 10)
		b := product("b", 5000, 10)
		f := newFixture(t, customer, a, b)

		_, err := f.carts.AddItem("cust-1", a, 2)
		require.NoError(t, err)
		_, err = f.carts.AddItem("cust-1", b, 1)
		require.NoError(t, err)

		order, err := f.service.Submit(t.Context(), "cust-1", validRequest())
		require.NoError(t, err)

		sum := decimal.Zero
		for _, item := range order.Items {
			assert.True(t, item.LineTotal.Amount.Equal(item.UnitPrice.Amount.Mul(decimal.NewFromInt(int64(item.Quantity)))))
			sum = sum.Add(item.LineTotal.Amount)
		}
		assert.True(t, order.TotalAmount.Amount.Equal(sum))
	})

	t.Run("stock drop since add rejects whole submission and keeps cart", func(t *testing.T) {
		a := product("a", 10000, 5)
		b := product("b", 5000, 5)
		f := newFixture(t, customer, a, b)

		_, err := f.carts.AddItem("cust-1", a, 2)
		require.NoError(t, err)
		_, err = f.carts.AddItem("cust-1", b, 1)
		require.NoError(t, err)

		f.catalog.setStock("a", 1)

		_, err = f.service.Submit(t.Context(), "cust-1", validRequest())

		var stockChanged domain.StockChangedError
		require.ErrorAs(t, err, &stockChanged)
		assert.Equal(t, "a", stockChanged.ProductID)
		assert.Equal(t, 1, stockChanged.Available)

		items, _ := f.carts.View("cust-1")
		require.Len(t, items, 2, "cart must stay untouched")
		assert.Equal(t, 2, items[0].Quantity)
		assert.Equal(t, 0, f.orders.count(), "no partial order may be created")
	})

	t.Run("deleted product rejects with zero available", func(t *testing.T) {
		a := product("a", 10000, 5)
		f := newFixture(t, customer, a)

		_, err := f.carts.AddItem("cust-1", a, 1)
		require.NoError(t, err)

		f.catalog.mu.Lock()
		delete(f.catalog.products, "a")
		f.catalog.mu.Unlock()

		_, err = f.service.Submit(t.Context(), "cust-1", validRequest())

		var stockChanged domain.StockChangedError
		require.ErrorAs(t, err, &stockChanged)
		assert.Equal(t, 0, stockChanged.Available)
	})

	t.Run("uses frozen snapshot price even after catalog price change", func(t *testing.T) {
		a := product("a", 10000, 10)
		f := newFixture(t, customer, a)

		_, err := f.carts.AddItem("cust-1", a, 1)
		require.NoError(t, err)

		f.catalog.mu.Lock()
		f.catalog.products["a"].Price = domain.IDR(99000)
		f.catalog.mu.Unlock()

		order, err := f.service.Submit(t.Context(), "cust-1", validRequest())
		require.NoError(t, err)
		assert.True(t, order.TotalAmount.Amount.Equal(decimal.NewFromInt(10000)))
	})

	t.Run("empty cart is rejected", func(t *testing.T) {
		f := newFixture(t, customer)

		_, err := f.service.Submit(t.Context(), "cust-1", validRequest())
		require.ErrorIs(t, err, domain.ErrEmptyCart)
	})

	t.Run("blank shipping address is rejected", func(t *testing.T) {
		f := newFixture(t, customer)

		req := validRequest()
		req.ShippingAddress = "   "
		_, err := f.service.Submit(t.Context(), "cust-1", req)
		require.ErrorIs(t, err, domain.ErrMissingShippingAddress)
	})

	t.Run("unknown payment method is rejected", func(t *testing.T) {
		f := newFixture(t, customer)

		req := validRequest()
		req.PaymentMethod = "crypto"
		_, err := f.service.Submit(t.Context(), "cust-1", req)
		require.ErrorIs(t, err, domain.ErrInvalidPaymentMethod)
	})

	t.Run("anonymous caller is rejected", func(t *testing.T) {
		f := newFixture(t, auth.Identity{})

		_, err := f.service.Submit(t.Context(), "anon-session", validRequest())
		require.ErrorIs(t, err, domain.ErrNotAuthenticated)
	})

	t.Run("persistence failure leaves cart untouched", func(t *testing.T) {
		a := product("a", 10000, 10)
		f := newFixture(t, customer, a)
		f.orders.err = errors.New("connection reset")

		_, err := f.carts.AddItem("cust-1", a, 2)
		require.NoError(t, err)

		_, err = f.service.Submit(t.Context(), "cust-1", validRequest())
		require.ErrorIs(t, err, domain.ErrPersistenceFailure)

		items, _ := f.carts.View("cust-1")
		require.Len(t, items, 1)
		assert.Empty(t, f.notifier.notes)
	})

	t.Run("publish failure does not fail the checkout", func(t *testing.T) {
		a := product("a", 10000, 10)
		f := newFixture(t, customer, a)
		f.publisher.err = errors.New("broker unavailable")

		_, err := f.carts.AddItem("cust-1", a, 1)
		require.NoError(t, err)

		_, err = f.service.Submit(t.Context(), "cust-1", validRequest())
		require.NoError(t, err)
	})
}

func TestService_Submit_SingleFlight(t *testing.T) {
	a := product("a", 10000, 10)
	f := newFixture(t, customer, a)

	_, err := f.carts.AddItem("cust-1", a, 1)
	require.NoError(t, err)

	// Hold the first submission inside the persistence call, then fire a
	// second one for the same session.
	f.orders.barrier = make(chan struct{})
	f.orders.entered = make(chan struct{}, 2)

	firstDone := make(chan error, 1)
	go func() {
		_, err := f.service.Submit(context.Background(), "cust-1", validRequest())
		firstDone <- err
	}()

	select {
	case <-f.orders.entered:
	case <-time.After(time.Second):
		t.Fatal("first submission never reached persistence")
	}

	_, err = f.service.Submit(context.Background(), "cust-1", validRequest())
	require.ErrorIs(t, err, domain.ErrSubmissionInProgress,
		"second submission must be rejected while the first is in flight")

	close(f.orders.barrier)
	require.NoError(t, <-firstDone)

	assert.Equal(t, 1, f.orders.count(), "exactly one order for the double submit")

	// After completion the guard is released; a retry with a fresh cart
	// goes through.
	_, err = f.carts.AddItem("cust-1", a, 1)
	require.NoError(t, err)
	_, err = f.service.Submit(context.Background(), "cust-1", validRequest())
	require.NoError(t, err)
	assert.Equal(t, 2, f.orders.count())
}
