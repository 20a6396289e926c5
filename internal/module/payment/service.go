package payment

import (
	"context"
	"errors"
	"time"

	"github.com/payflow/server/internal/module/payment/domain"
	"github.com/payflow/server/internal/shared/database"
	"github.com/payflow/server/internal/shared/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Callback reconciliation outcomes, used as metric labels.
const (
	outcomeApplied             = "applied"
	outcomeReplayed            = "replayed"
	outcomeIgnoredAfterSuccess = "ignored_after_success"
	outcomeAmountMismatch      = "amount_mismatch"
	outcomeNotFound            = "not_found"
	outcomeConflict            = "conflict"
)

// Service implements payment intake and status reconciliation.
type Service struct {
	repo     Repository
	notifier SuccessNotifier
	gateway  ChargeInitiator
	cache    *Cache
	metrics  *metrics.Metrics
	logger   *zap.Logger

	// runInTx wraps the read-validate-write-notify sequence of a callback
	// into one unit of work.
	runInTx func(ctx context.Context, fn func(ctx context.Context) error) error

	// conflictRetries bounds how often a callback is re-applied after a
	// lost-update race before the conflict is surfaced to the caller.
	conflictRetries int

	// initiateTimeout bounds the out-of-band gateway call fired after a
	// payment creation commits.
	initiateTimeout time.Duration
}

// NewService creates a new payment service.
func NewService(
	db *gorm.DB,
	repo Repository,
	notifier SuccessNotifier,
	gateway ChargeInitiator,
	cache *Cache,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		gateway:  gateway,
		cache:    cache,
		metrics:  m,
		logger:   logger,
		runInTx: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return database.WithinTransaction(ctx, db, fn)
		},
		conflictRetries: 3,
		initiateTimeout: 15 * time.Second,
	}
}

// CreatePayment persists a new payment in the INITIATED state and fires
// the gateway initiation out of band. A failing or slow gateway never
// rolls back or stalls payment durability.
func (s *Service) CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*CreatePaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = DefaultCurrency
	}

	p := domain.NewPayment(req.MerchantID, req.CustomerID, req.Amount, currency, req.Description)
	if err := s.repo.CreatePayment(ctx, p); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.PaymentsCreatedTotal.WithLabelValues(currency).Inc()
	}
	s.logger.Info("payment created, waiting for payment callback",
		zap.String("payment_id", p.ID()),
		zap.String("merchant_id", p.MerchantID()),
		zap.String("customer_id", p.CustomerID()),
	)

	s.dispatchInitiation(p)

	return ToCreateResponse(p), nil
}

// dispatchInitiation invokes the gateway after the creation write has
// committed, detached from the request context. Gateway failure leaves
// the payment INITIATED; reconciliation happens later via callback.
func (s *Service) dispatchInitiation(p *domain.Payment) {
	init := ChargeInitiation{
		PaymentID:  p.ID(),
		MerchantID: p.MerchantID(),
		CustomerID: p.CustomerID(),
		Amount:     p.Amount(),
		Currency:   p.Currency(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.initiateTimeout)
		defer cancel()

		if err := s.gateway.InitiateCharge(ctx, init); err != nil {
			s.logger.Error("payment initiation failed, payment stays INITIATED",
				zap.String("payment_id", init.PaymentID),
				zap.Error(err),
			)
			return
		}
		s.logger.Info("payment initiation sent", zap.String("payment_id", init.PaymentID))
	}()
}

// GetPayment returns the full payment record.
func (s *Service) GetPayment(ctx context.Context, paymentID string) (*PaymentResponse, error) {
	if resp, ok := s.cache.Get(ctx, paymentID); ok {
		return resp, nil
	}

	p, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	resp := ToResponse(p)
	s.cache.Set(ctx, resp)
	return resp, nil
}

// HandleCallback applies an asynchronous status callback to the stored
// payment. Check order is load-bearing: amount match before any status
// logic, idempotent replay before the terminal-state check. Callback
// payloads are untrusted and may arrive duplicated or out of order.
func (s *Service) HandleCallback(ctx context.Context, req *PaymentCallbackRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	reported := domain.Normalize(req.Status)

	for attempt := 0; ; attempt++ {
		p, err := s.repo.GetPayment(ctx, req.PaymentID)
		if err != nil {
			s.countCallback(outcomeNotFound)
			return err
		}

		if !p.AmountMatches(req.Amount) {
			s.countCallback(outcomeAmountMismatch)
			s.logger.Warn("callback amount does not match stored amount",
				zap.String("payment_id", p.ID()),
				zap.String("stored", p.Amount().String()),
				zap.String("reported", req.Amount.String()),
			)
			return ErrAmountMismatch
		}

		if reported == p.Status() {
			s.countCallback(outcomeReplayed)
			s.logger.Info("idempotent callback ignored",
				zap.String("payment_id", p.ID()),
				zap.String("status", string(reported)),
			)
			return nil
		}

		if p.IsSucceeded() {
			s.countCallback(outcomeIgnoredAfterSuccess)
			s.logger.Warn("ignoring conflicting callback for already successful payment",
				zap.String("payment_id", p.ID()),
				zap.String("reported_status", string(reported)),
			)
			return nil
		}

		previous := p.Status()
		expected := p.Version()

		err = s.runInTx(ctx, func(txCtx context.Context) error {
			if err := s.applyTransition(p, reported); err != nil {
				return err
			}
			if err := s.repo.UpdatePaymentIfVersion(txCtx, p, expected); err != nil {
				return err
			}
			if p.IsSucceeded() {
				return s.notifier.NotifyPaymentSuccess(txCtx, p.ID(), p.CustomerID())
			}
			return nil
		})
		if err == nil {
			s.cache.Invalidate(ctx, p.ID())
			s.countCallback(outcomeApplied)
			s.logger.Info("payment status transitioned",
				zap.String("payment_id", p.ID()),
				zap.String("from", string(previous)),
				zap.String("to", string(p.Status())),
			)
			return nil
		}

		if errors.Is(err, ErrVersionConflict) {
			if attempt < s.conflictRetries {
				s.logger.Warn("concurrent payment update detected, retrying with fresh read",
					zap.String("payment_id", req.PaymentID),
					zap.Int("attempt", attempt+1),
				)
				continue
			}
			s.countCallback(outcomeConflict)
			s.logger.Error("payment update conflict not resolved after retries",
				zap.String("payment_id", req.PaymentID),
			)
		}
		return err
	}
}

func (s *Service) applyTransition(p *domain.Payment, reported domain.PaymentStatus) error {
	switch reported {
	case domain.StatusSuccess:
		return p.MarkSuccess()
	case domain.StatusFailed:
		return p.MarkFailed()
	default:
		return p.MarkUnknown()
	}
}

func (s *Service) countCallback(outcome string) {
	if s.metrics != nil {
		s.metrics.CallbacksTotal.WithLabelValues(outcome).Inc()
	}
}
