// Package worker relays durable order events into customer-facing
// notifications.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/umistore/storefront/internal/domain"
)

// Publisher writes a notification to the notifications topic. Unlike the
// in-process notifier this is not fire-and-forget: a publish failure must
// bubble up so the consumed event is redelivered.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type ReceiptHandler struct {
	publisher Publisher
	logger    *slog.Logger
}

func NewReceiptHandler(publisher Publisher, logger *slog.Logger) *ReceiptHandler {
	return &ReceiptHandler{
		publisher: publisher,
		logger:    logger,
	}
}

// Handle turns one order.created event into an order confirmation
// notification addressed to the customer.
func (h *ReceiptHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderCreatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order created event: %w", err)
	}

	h.logger.Info("processing order created event",
		"order_id", event.OrderID, "order_number", event.OrderNumber, "customer_id", event.CustomerID)

	note := domain.Notification{
		Kind:      domain.NotifyOrderConfirmed,
		Recipient: event.CustomerID,
		Message:   confirmationMessage(event),
		SentAt:    time.Now().UTC(),
	}

	if err := h.publisher.Publish(ctx, event.CustomerID, note); err != nil {
		return fmt.Errorf("publish confirmation for order %s: %w", event.OrderID, err)
	}

	h.logger.Info("order confirmation sent", "order_id", event.OrderID, "customer_id", event.CustomerID)
	return nil
}

func confirmationMessage(event domain.OrderCreatedEvent) string {
	units := 0
	for _, item := range event.Items {
		units += item.Quantity
	}

	return fmt.Sprintf("Order %s confirmed: %d item(s), total %s.",
		event.OrderNumber, units, event.Total)
}
