package payment

import "errors"

// Module errors.
var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrPaymentExists   = errors.New("payment already exists")
	ErrAmountMismatch  = errors.New("payment amount mismatch")
	ErrVersionConflict = errors.New("payment version conflict")
)
