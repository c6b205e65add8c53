// Package fulfillment governs an order's status after creation. Normal
// progress is monotonic, one step at a time; a separate override path
// exists for manual correction by staff.
package fulfillment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/umistore/storefront/internal/auth"
	"github.com/umistore/storefront/internal/domain"
)

// OrderStore is the slice of the order repository the workflow needs.
type OrderStore interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	UpdateStatusFrom(ctx context.Context, id string, from, to domain.OrderStatus) (bool, error)
	SetStatus(ctx context.Context, id string, to domain.OrderStatus) (bool, error)
}

// Notifier mirrors checkout's fire-and-forget feedback channel.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification)
}

type Workflow struct {
	store    OrderStore
	gate     auth.Gate
	notifier Notifier
	logger   *slog.Logger
}

func NewWorkflow(store OrderStore, gate auth.Gate, notifier Notifier, logger *slog.Logger) *Workflow {
	return &Workflow{
		store:    store,
		gate:     gate,
		notifier: notifier,
		logger:   logger,
	}
}

// next returns the only status reachable from s through the normal
// workflow. Delivered is terminal.
func next(s domain.OrderStatus) (domain.OrderStatus, bool) {
	switch s {
	case domain.OrderStatusPending:
		return domain.OrderStatusProcessing, true
	case domain.OrderStatusProcessing:
		return domain.OrderStatusShipped, true
	case domain.OrderStatusShipped:
		return domain.OrderStatusDelivered, true
	}
	return "", false
}

// Transition moves the order one step forward. Any backward target, any
// skip ahead, and any move out of Delivered fail without touching the
// order. Only staff may transition.
func (w *Workflow) Transition(ctx context.Context, orderID string, target domain.OrderStatus) (*domain.Order, error) {
	order, err := w.authorize(ctx, orderID)
	if err != nil {
		return nil, err
	}

	expected, ok := next(order.Status)
	if !ok || expected != target {
		return nil, domain.InvalidTransitionError{From: order.Status, To: target}
	}

	moved, err := w.store.UpdateStatusFrom(ctx, orderID, order.Status, target)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	if !moved {
		// Someone advanced the order between our read and the write.
		return nil, domain.InvalidTransitionError{From: order.Status, To: target}
	}

	w.logger.Info("order status updated", "order_id", orderID, "from", order.Status, "to", target)
	w.announce(ctx, order, target)

	order.Status = target
	order.UpdatedAt = time.Now().UTC()
	return order, nil
}

// Override sets any valid status directly. It exists for manual
// correction (mis-clicks, returned shipments) and deliberately bypasses
// the monotonic rule; it is logged as an override and restricted to
// staff like every other transition.
func (w *Workflow) Override(ctx context.Context, orderID string, target domain.OrderStatus) (*domain.Order, error) {
	order, err := w.authorize(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !target.Valid() {
		return nil, domain.InvalidTransitionError{From: order.Status, To: target}
	}

	moved, err := w.store.SetStatus(ctx, orderID, target)
	if err != nil {
		return nil, fmt.Errorf("set status: %w", err)
	}
	if !moved {
		return nil, domain.ErrOrderNotFound
	}

	w.logger.Warn("order status overridden", "order_id", orderID, "from", order.Status, "to", target)
	w.announce(ctx, order, target)

	order.Status = target
	order.UpdatedAt = time.Now().UTC()
	return order, nil
}

func (w *Workflow) authorize(ctx context.Context, orderID string) (*domain.Order, error) {
	identity := w.gate.CurrentIdentity(ctx)
	if !identity.Authenticated() {
		return nil, domain.ErrNotAuthenticated
	}
	if !identity.Staff() {
		return nil, domain.ErrUnauthorized
	}

	order, err := w.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func (w *Workflow) announce(ctx context.Context, order *domain.Order, target domain.OrderStatus) {
	if w.notifier == nil {
		return
	}
	w.notifier.Notify(ctx, domain.Notification{
		Kind:      domain.NotifyOrderStatusChanged,
		Recipient: order.CustomerID,
		Message:   fmt.Sprintf("Order %s is now %s.", order.OrderNumber, target),
		SentAt:    time.Now().UTC(),
	})
}
