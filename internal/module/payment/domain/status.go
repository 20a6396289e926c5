package domain

// PaymentStatus represents the status of a payment.
type PaymentStatus string

const (
	StatusInitiated PaymentStatus = "INITIATED"
	StatusSuccess   PaymentStatus = "SUCCESS"
	StatusFailed    PaymentStatus = "FAILED"
	StatusUnknown   PaymentStatus = "UNKNOWN"
)

// Normalize maps a reported status token onto the closed status set.
// Unrecognized tokens map to UNKNOWN: gateways have shipped new codes
// before and callers rely on them being absorbed rather than rejected.
func Normalize(raw string) PaymentStatus {
	switch PaymentStatus(raw) {
	case StatusInitiated, StatusSuccess, StatusFailed, StatusUnknown:
		return PaymentStatus(raw)
	default:
		return StatusUnknown
	}
}

// IsTerminal returns true if the status is a terminal absorbing state.
// FAILED and UNKNOWN are not terminal: a later callback can still move
// them, including to SUCCESS.
func (s PaymentStatus) IsTerminal() bool {
	return s == StatusSuccess
}

// CanTransitionTo returns true if the status can transition to the target status.
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	if s == StatusSuccess {
		return false
	}
	return target == StatusSuccess || target == StatusFailed || target == StatusUnknown
}
