package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/payflow/server/internal/shared/metrics"
	"go.uber.org/zap"
)

// successMessageFormat is the customer-facing message for a successful
// payment.
const successMessageFormat = "Pembayaran untuk payment %s berhasil"

// Sender delivers a recorded notification over its channel. Delivery is
// best effort; the database record is the durable fact.
type Sender interface {
	Send(ctx context.Context, n *Notification) error
}

// NoopSender records notifications without delivering them anywhere.
// Used until a real channel integration is configured.
type NoopSender struct{}

func (NoopSender) Send(ctx context.Context, n *Notification) error {
	return nil
}

// Emitter records and dispatches customer notifications for successful
// payments.
type Emitter struct {
	repo    Repository
	sender  Sender
	channel string
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewEmitter creates a new notification emitter.
func NewEmitter(repo Repository, sender Sender, channel string, m *metrics.Metrics, logger *zap.Logger) *Emitter {
	if channel == "" {
		channel = "EMAIL"
	}
	if sender == nil {
		sender = NoopSender{}
	}
	return &Emitter{
		repo:    repo,
		sender:  sender,
		channel: channel,
		metrics: m,
		logger:  logger,
	}
}

// NotifyPaymentSuccess records exactly one success notification for the
// payment. A duplicate insert means a concurrent or replayed callback
// already notified the customer; that is success, not an error. Any
// other failure propagates so the surrounding transaction rolls back.
func (e *Emitter) NotifyPaymentSuccess(ctx context.Context, paymentID, customerID string) error {
	n := &Notification{
		ID:         uuid.New(),
		PaymentID:  paymentID,
		CustomerID: customerID,
		Channel:    e.channel,
		Message:    fmt.Sprintf(successMessageFormat, paymentID),
		Status:     StatusSent,
		CreatedAt:  time.Now().UTC(),
	}

	if err := e.repo.CreateNotification(ctx, n); err != nil {
		if errors.Is(err, ErrAlreadySent) {
			e.count("duplicate")
			e.logger.Info("success notification already recorded",
				zap.String("payment_id", paymentID),
			)
			return nil
		}
		e.count("error")
		return fmt.Errorf("record success notification: %w", err)
	}

	if err := e.sender.Send(ctx, n); err != nil {
		e.logger.Warn("notification delivery failed, record kept",
			zap.String("payment_id", paymentID),
			zap.String("channel", e.channel),
			zap.Error(err),
		)
	}

	e.count("sent")
	e.logger.Info("success notification sent",
		zap.String("payment_id", paymentID),
		zap.String("customer_id", customerID),
		zap.String("channel", e.channel),
	)
	return nil
}

func (e *Emitter) count(result string) {
	if e.metrics != nil {
		e.metrics.NotificationsTotal.WithLabelValues(result).Inc()
	}
}
