package app

import (
	"context"

	"github.com/payflow/server/internal/module/gateway"
	"github.com/payflow/server/internal/module/payment"
)

// chargeInitiator adapts the gateway client to the payment module's
// consumer-side ChargeInitiator interface.
type chargeInitiator struct {
	client gateway.Client
}

func newChargeInitiator(client gateway.Client) payment.ChargeInitiator {
	return &chargeInitiator{client: client}
}

func (a *chargeInitiator) InitiateCharge(ctx context.Context, init payment.ChargeInitiation) error {
	return a.client.InitiateCharge(ctx, gateway.Charge{
		PaymentID:  init.PaymentID,
		MerchantID: init.MerchantID,
		CustomerID: init.CustomerID,
		Amount:     init.Amount,
		Currency:   init.Currency,
	})
}
