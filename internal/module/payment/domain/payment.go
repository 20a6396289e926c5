package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment errors.
var (
	ErrPaymentAlreadySucceeded = errors.New("payment already succeeded")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

// Payment represents a payment aggregate root. Amount and createdAt are
// immutable after creation; status moves only through the Mark methods.
type Payment struct {
	id          string
	merchantID  string
	customerID  string
	amount      decimal.Decimal
	currency    string
	description string
	status      PaymentStatus
	version     int64
	createdAt   time.Time
	updatedAt   time.Time
}

// NewPayment creates a new Payment in the INITIATED state.
func NewPayment(merchantID, customerID string, amount decimal.Decimal, currency, description string) *Payment {
	now := time.Now()
	return &Payment{
		id:          uuid.NewString(),
		merchantID:  merchantID,
		customerID:  customerID,
		amount:      amount,
		currency:    currency,
		description: description,
		status:      StatusInitiated,
		version:     0,
		createdAt:   now,
		updatedAt:   now,
	}
}

// RestorePayment recreates a Payment from persisted data.
func RestorePayment(
	id, merchantID, customerID string,
	amount decimal.Decimal,
	currency, description string,
	status PaymentStatus,
	version int64,
	createdAt, updatedAt time.Time,
) *Payment {
	return &Payment{
		id:          id,
		merchantID:  merchantID,
		customerID:  customerID,
		amount:      amount,
		currency:    currency,
		description: description,
		status:      status,
		version:     version,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// --- Getters ---

func (p *Payment) ID() string              { return p.id }
func (p *Payment) MerchantID() string      { return p.merchantID }
func (p *Payment) CustomerID() string      { return p.customerID }
func (p *Payment) Amount() decimal.Decimal { return p.amount }
func (p *Payment) Currency() string        { return p.currency }
func (p *Payment) Description() string     { return p.description }
func (p *Payment) Status() PaymentStatus   { return p.status }
func (p *Payment) Version() int64          { return p.version }
func (p *Payment) CreatedAt() time.Time    { return p.createdAt }
func (p *Payment) UpdatedAt() time.Time    { return p.updatedAt }

// IsSucceeded returns true if the payment reached its terminal SUCCESS state.
func (p *Payment) IsSucceeded() bool {
	return p.status == StatusSuccess
}

// AmountMatches reports whether reported equals the stored amount exactly.
// Decimal equality, not tolerance-based.
func (p *Payment) AmountMatches(reported decimal.Decimal) bool {
	return p.amount.Equal(reported)
}

// --- Domain Methods ---

// MarkSuccess marks the payment as succeeded.
func (p *Payment) MarkSuccess() error {
	return p.transition(StatusSuccess)
}

// MarkFailed marks the payment as failed.
func (p *Payment) MarkFailed() error {
	return p.transition(StatusFailed)
}

// MarkUnknown marks the payment status as unknown, the defensive default
// for unrecognized or ambiguous status codes.
func (p *Payment) MarkUnknown() error {
	return p.transition(StatusUnknown)
}

func (p *Payment) transition(target PaymentStatus) error {
	if p.status == StatusSuccess {
		return ErrPaymentAlreadySucceeded
	}
	if !p.status.CanTransitionTo(target) {
		return ErrInvalidStatusTransition
	}
	p.status = target
	p.updatedAt = time.Now()
	return nil
}
