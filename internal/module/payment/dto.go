package payment

import (
	"strings"
	"time"

	"github.com/payflow/server/internal/module/payment/domain"
	apperrors "github.com/payflow/server/internal/shared/errors"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is applied when a create request omits the currency.
const DefaultCurrency = "IDR"

var minAmount = decimal.RequireFromString("0.01")

// CreatePaymentRequest represents a request to create a payment.
type CreatePaymentRequest struct {
	MerchantID  string          `json:"merchantId" binding:"required"`
	CustomerID  string          `json:"customerId" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description" binding:"required"`
}

// Validate checks field constraints the JSON binding cannot express.
func (r *CreatePaymentRequest) Validate() error {
	if strings.TrimSpace(r.MerchantID) == "" {
		return apperrors.Validation("merchantId must not be blank")
	}
	if strings.TrimSpace(r.CustomerID) == "" {
		return apperrors.Validation("customerId must not be blank")
	}
	if strings.TrimSpace(r.Description) == "" {
		return apperrors.Validation("description must not be blank")
	}
	if r.Amount.LessThan(minAmount) {
		return apperrors.Validation("amount must be greater than zero")
	}
	return nil
}

// PaymentCallbackRequest represents an asynchronous status callback from
// the gateway. Signature is accepted for wire compatibility but not
// verified here.
type PaymentCallbackRequest struct {
	PaymentID string          `json:"paymentId" binding:"required"`
	Status    string          `json:"status" binding:"required"`
	Amount    decimal.Decimal `json:"amount"`
	Signature string          `json:"signature,omitempty"`
}

// Validate checks field constraints the JSON binding cannot express.
func (r *PaymentCallbackRequest) Validate() error {
	if strings.TrimSpace(r.PaymentID) == "" {
		return apperrors.Validation("paymentId must not be blank")
	}
	if strings.TrimSpace(r.Status) == "" {
		return apperrors.Validation("status must not be blank")
	}
	if r.Amount.IsNegative() {
		return apperrors.Validation("amount must not be negative")
	}
	return nil
}

// CreatePaymentResponse represents a newly created payment.
type CreatePaymentResponse struct {
	PaymentID   string               `json:"paymentId"`
	MerchantID  string               `json:"merchantId"`
	CustomerID  string               `json:"customerId"`
	Amount      decimal.Decimal      `json:"amount"`
	Currency    string               `json:"currency"`
	Description string               `json:"description"`
	Status      domain.PaymentStatus `json:"status"`
}

// PaymentResponse represents a full payment record in API responses.
type PaymentResponse struct {
	PaymentID   string               `json:"paymentId"`
	MerchantID  string               `json:"merchantId"`
	CustomerID  string               `json:"customerId"`
	Amount      decimal.Decimal      `json:"amount"`
	Currency    string               `json:"currency"`
	Description string               `json:"description"`
	Status      domain.PaymentStatus `json:"status"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

// ToCreateResponse converts a domain Payment to CreatePaymentResponse.
func ToCreateResponse(p *domain.Payment) *CreatePaymentResponse {
	return &CreatePaymentResponse{
		PaymentID:   p.ID(),
		MerchantID:  p.MerchantID(),
		CustomerID:  p.CustomerID(),
		Amount:      p.Amount(),
		Currency:    p.Currency(),
		Description: p.Description(),
		Status:      p.Status(),
	}
}

// ToResponse converts a domain Payment to PaymentResponse.
func ToResponse(p *domain.Payment) *PaymentResponse {
	return &PaymentResponse{
		PaymentID:   p.ID(),
		MerchantID:  p.MerchantID(),
		CustomerID:  p.CustomerID(),
		Amount:      p.Amount(),
		Currency:    p.Currency(),
		Description: p.Description(),
		Status:      p.Status(),
		CreatedAt:   p.CreatedAt(),
		UpdatedAt:   p.UpdatedAt(),
	}
}
