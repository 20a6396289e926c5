package notification

import (
	"time"

	"github.com/google/uuid"
)

// NotificationStatus represents the delivery state of a notification.
type NotificationStatus string

const (
	StatusPending NotificationStatus = "PENDING"
	StatusSent    NotificationStatus = "SENT"
	StatusFailed  NotificationStatus = "FAILED"
)

// Notification is a customer-facing message recorded when a payment
// succeeds. The unique index on (payment_id, status) makes the insert
// the at-most-once guard: a second success notification for the same
// payment is rejected by the database, not by application logic.
type Notification struct {
	ID         uuid.UUID          `gorm:"type:uuid;primaryKey"`
	PaymentID  string             `gorm:"size:36;not null;uniqueIndex:idx_notifications_payment_status,priority:1"`
	CustomerID string             `gorm:"size:64;not null;index"`
	Channel    string             `gorm:"size:16;not null"`
	Message    string             `gorm:"size:500;not null"`
	Status     NotificationStatus `gorm:"size:16;not null;uniqueIndex:idx_notifications_payment_status,priority:2"`
	CreatedAt  time.Time          `gorm:"not null"`
}

// TableName overrides the table name.
func (Notification) TableName() string {
	return "notifications"
}
