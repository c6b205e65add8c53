package messaging

import (
	"context"
	"log/slog"

	"github.com/umistore/storefront/internal/domain"
)

// Notifier publishes user-facing notifications. Delivery is
// fire-and-forget: a broker failure is logged and swallowed, it never
// fails the operation that produced the notification.
type Notifier struct {
	producer *Producer
	logger   *slog.Logger
}

func NewNotifier(producer *Producer, logger *slog.Logger) *Notifier {
	return &Notifier{
		producer: producer,
		logger:   logger,
	}
}

func (n *Notifier) Notify(ctx context.Context, notification domain.Notification) {
	if n.producer == nil {
		n.logger.Info("notification",
			"kind", notification.Kind, "recipient", notification.Recipient, "message", notification.Message)
		return
	}

	if err := n.producer.Publish(ctx, notification.Recipient, notification); err != nil {
		n.logger.Error("failed to publish notification",
			"error", err, "kind", notification.Kind, "recipient", notification.Recipient)
	}
}
