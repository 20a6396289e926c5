package entity

import (
	"time"

	"github.com/payflow/server/internal/module/payment/domain"
	"github.com/shopspring/decimal"
)

// PaymentEntity is the GORM entity for Payment.
type PaymentEntity struct {
	PaymentID   string          `gorm:"primaryKey;size:36"`
	MerchantID  string          `gorm:"not null;index"`
	CustomerID  string          `gorm:"not null;index"`
	Amount      decimal.Decimal `gorm:"type:numeric(19,4);not null"`
	Currency    string          `gorm:"size:8;not null"`
	Description string          `gorm:"size:500;not null"`
	Status      string          `gorm:"not null"`
	Version     int64           `gorm:"not null;default:0"`
	CreatedAt   time.Time       `gorm:"not null"`
	UpdatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the database table name.
func (PaymentEntity) TableName() string {
	return "payments"
}

// ToDomain converts entity to domain Payment.
func (e *PaymentEntity) ToDomain() *domain.Payment {
	return domain.RestorePayment(
		e.PaymentID,
		e.MerchantID,
		e.CustomerID,
		e.Amount,
		e.Currency,
		e.Description,
		domain.PaymentStatus(e.Status),
		e.Version,
		e.CreatedAt,
		e.UpdatedAt,
	)
}

// FromDomainPayment converts domain Payment to entity.
func FromDomainPayment(p *domain.Payment) *PaymentEntity {
	return &PaymentEntity{
		PaymentID:   p.ID(),
		MerchantID:  p.MerchantID(),
		CustomerID:  p.CustomerID(),
		Amount:      p.Amount(),
		Currency:    p.Currency(),
		Description: p.Description(),
		Status:      string(p.Status()),
		Version:     p.Version(),
		CreatedAt:   p.CreatedAt(),
		UpdatedAt:   p.UpdatedAt(),
	}
}
