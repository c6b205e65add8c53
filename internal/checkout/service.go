// Package checkout converts a validated cart into a persisted order,
// exactly once per submit gesture.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/umistore/storefront/internal/auth"
	"github.com/umistore/storefront/internal/cart"
	"github.com/umistore/storefront/internal/domain"
	"github.com/umistore/storefront/internal/inventory"
)

// ProductCatalog supplies live product snapshots for re-validation.
type ProductCatalog interface {
	GetSnapshot(ctx context.Context, productID string) (*domain.Product, error)
}

// OrderWriter persists an order and its items atomically.
type OrderWriter interface {
	Create(ctx context.Context, order *domain.Order) error
}

// EventPublisher announces a created order; failures are logged, never
// surfaced to the customer.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Notifier is the fire-and-forget feedback channel.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification)
}

type SubmitRequest struct {
	PaymentMethod   domain.PaymentMethod
	ShippingAddress string
	Notes           string
}

type Service struct {
	catalog   ProductCatalog
	orders    OrderWriter
	carts     *cart.Store
	gate      auth.Gate
	publisher EventPublisher
	notifier  Notifier
	logger    *slog.Logger

	// inflight rejects a second submission for a session while the
	// first is still pending; duplicates are refused, not queued.
	mu       sync.Mutex
	inflight map[string]struct{}

	ordersCreated      metric.Int64Counter
	submissionRejected metric.Int64Counter
}

func NewService(catalog ProductCatalog, orders OrderWriter, carts *cart.Store,
	gate auth.Gate, publisher EventPublisher, notifier Notifier, logger *slog.Logger) *Service {

	meter := otel.Meter("checkout")
	ordersCreated, err := meter.Int64Counter("storefront.orders.created")
	if err != nil {
		logger.Error("failed to create counter", "error", err)
	}
	submissionRejected, err := meter.Int64Counter("storefront.checkout.rejected")
	if err != nil {
		logger.Error("failed to create counter", "error", err)
	}

	return &Service{
		catalog:            catalog,
		orders:             orders,
		carts:              carts,
		gate:               gate,
		publisher:          publisher,
		notifier:           notifier,
		logger:             logger,
		inflight:           make(map[string]struct{}),
		ordersCreated:      ordersCreated,
		submissionRejected: submissionRejected,
	}
}

// Submit re-validates the session's cart against live stock, computes
// the total from the frozen price snapshots, and persists the order
// atomically. On success the cart is cleared; on any failure the cart is
// left untouched so the customer can adjust and retry.
func (s *Service) Submit(ctx context.Context, session string, req SubmitRequest) (*domain.Order, error) {
	identity := s.gate.CurrentIdentity(ctx)
	if identity.CustomerID == "" {
		return nil, domain.ErrNotAuthenticated
	}

	address := strings.TrimSpace(req.ShippingAddress)
	if address == "" {
		return nil, s.reject(ctx, domain.ErrMissingShippingAddress)
	}
	if !req.PaymentMethod.Valid() {
		return nil, s.reject(ctx, domain.ErrInvalidPaymentMethod)
	}

	if !s.acquire(session) {
		return nil, s.reject(ctx, domain.ErrSubmissionInProgress)
	}
	defer s.release(session)

	items := s.carts.Items(session)
	if len(items) == 0 {
		return nil, s.reject(ctx, domain.ErrEmptyCart)
	}

	if err := s.revalidate(ctx, items); err != nil {
		return nil, s.reject(ctx, err)
	}

	order, err := buildOrder(identity.CustomerID, req.PaymentMethod, address, req.Notes, items)
	if err != nil {
		return nil, err
	}

	if err := s.orders.Create(ctx, order); err != nil {
		if errors.Is(err, domain.ErrStockChanged) {
			return nil, s.reject(ctx, err)
		}
		s.logger.Error("order persistence failed", "error", err, "customer_id", identity.CustomerID)
		return nil, errors.Join(domain.ErrPersistenceFailure, err)
	}

	s.carts.Clear(session)
	s.announce(ctx, order)
	if s.ordersCreated != nil {
		s.ordersCreated.Add(ctx, 1)
	}

	s.logger.Info("order created",
		"order_id", order.ID, "order_number", order.OrderNumber,
		"customer_id", order.CustomerID, "total", order.TotalAmount.String())

	return order, nil
}

// revalidate re-fetches every item's snapshot and runs the shared
// admission check. One stale item rejects the whole submission; partial
// orders are never created.
func (s *Service) revalidate(ctx context.Context, items []domain.CartItem) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, item := range items {
		g.Go(func() error {
			product, err := s.catalog.GetSnapshot(ctx, item.ProductID)
			if err != nil {
				return fmt.Errorf("fetch snapshot for %s: %w", item.ProductID, err)
			}

			if err := inventory.Validate(product, item.Quantity); err != nil {
				available := 0
				var insufficient domain.InsufficientStockError
				if errors.As(err, &insufficient) {
					available = insufficient.Available
				}
				return domain.StockChangedError{ProductID: item.ProductID, Available: available}
			}
			return nil
		})
	}

	return g.Wait()
}

func buildOrder(customerID string, method domain.PaymentMethod, address, notes string, items []domain.CartItem) (*domain.Order, error) {
	now := time.Now().UTC()
	order := &domain.Order{
		CustomerID:      customerID,
		Status:          domain.OrderStatusPending,
		PaymentMethod:   method,
		ShippingAddress: address,
		Notes:           notes,
		TotalAmount:     domain.Money{Amount: decimal.Zero, Currency: domain.DefaultCurrency},
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	order.TotalAmount.Currency = items[0].PriceSnapshot.Currency
	for _, item := range items {
		lineTotal := item.LineTotal()
		order.Items = append(order.Items, domain.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Unit:      item.Unit,
			Quantity:  item.Quantity,
			UnitPrice: item.PriceSnapshot,
			LineTotal: lineTotal,
		})

		// The total comes from the frozen snapshots only; a
		// client-supplied total is never trusted.
		total, err := order.TotalAmount.Add(lineTotal)
		if err != nil {
			return nil, err
		}
		order.TotalAmount = total
	}

	return order, nil
}

func (s *Service) announce(ctx context.Context, order *domain.Order) {
	if s.publisher != nil {
		event := domain.OrderCreatedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			CustomerID:  order.CustomerID,
			Items:       order.Items,
			Total:       order.TotalAmount,
			OccurredAt:  order.CreatedAt,
		}
		if err := s.publisher.Publish(ctx, order.ID, event); err != nil {
			s.logger.Error("failed to publish order created event", "error", err, "order_id", order.ID)
		}
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, domain.Notification{
			Kind:      domain.NotifyOrderPlaced,
			Recipient: order.CustomerID,
			Message:   fmt.Sprintf("Order %s placed, total %s.", order.OrderNumber, order.TotalAmount),
			SentAt:    order.CreatedAt,
		})
	}
}

func (s *Service) acquire(session string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[session]; busy {
		return false
	}
	s.inflight[session] = struct{}{}
	return true
}

func (s *Service) release(session string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, session)
}

func (s *Service) reject(ctx context.Context, err error) error {
	if s.submissionRejected != nil {
		s.submissionRejected.Add(ctx, 1)
	}
	return err
}
