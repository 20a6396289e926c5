package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// ChargeInitiation is the slim view of a payment handed to the gateway
// for charge initiation.
type ChargeInitiation struct {
	PaymentID  string
	MerchantID string
	CustomerID string
	Amount     decimal.Decimal
	Currency   string
}

// ChargeInitiator sends a payment-initiation request to the external
// gateway. The interface is defined here, on the consumer side; the
// gateway module provides the implementation through an adapter.
type ChargeInitiator interface {
	InitiateCharge(ctx context.Context, init ChargeInitiation) error
}

// SuccessNotifier records a customer notification when a payment first
// transitions to SUCCESS. Implementations must be idempotent per payment
// identifier and must join the transaction carried in ctx.
type SuccessNotifier interface {
	NotifyPaymentSuccess(ctx context.Context, paymentID, customerID string) error
}
