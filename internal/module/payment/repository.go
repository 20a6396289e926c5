package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/payflow/server/internal/module/payment/domain"
	"github.com/payflow/server/internal/module/payment/entity"
	"github.com/payflow/server/internal/shared/database"
	"gorm.io/gorm"
)

// Repository defines the interface for payment data access. It is a pure
// keyed-record store: no reconciliation logic lives here.
type Repository interface {
	// CreatePayment persists a new record. Fails with ErrPaymentExists
	// if the identifier is already taken.
	CreatePayment(ctx context.Context, payment *domain.Payment) error

	// GetPayment returns the current record or ErrPaymentNotFound.
	GetPayment(ctx context.Context, id string) (*domain.Payment, error)

	// UpdatePaymentIfVersion persists a mutated record only if the stored
	// version still equals expectedVersion (compare-and-swap). A lost
	// update surfaces as ErrVersionConflict; the caller retries with a
	// fresh read. Amount and created_at are never written.
	UpdatePaymentIfVersion(ctx context.Context, payment *domain.Payment, expectedVersion int64) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new payment repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// conn returns the transaction bound to ctx, if any, so that callback
// reconciliation and notification writes share one unit of work.
func (r *repository) conn(ctx context.Context) *gorm.DB {
	return database.FromContext(ctx, r.db)
}

func (r *repository) CreatePayment(ctx context.Context, payment *domain.Payment) error {
	ent := entity.FromDomainPayment(payment)
	if err := r.conn(ctx).WithContext(ctx).Create(ent).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrPaymentExists
		}
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

func (r *repository) GetPayment(ctx context.Context, id string) (*domain.Payment, error) {
	var ent entity.PaymentEntity
	err := r.conn(ctx).WithContext(ctx).First(&ent, "payment_id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return ent.ToDomain(), nil
}

func (r *repository) UpdatePaymentIfVersion(ctx context.Context, payment *domain.Payment, expectedVersion int64) error {
	res := r.conn(ctx).WithContext(ctx).
		Model(&entity.PaymentEntity{}).
		Where("payment_id = ? AND version = ?", payment.ID(), expectedVersion).
		Updates(map[string]interface{}{
			"status":     string(payment.Status()),
			"updated_at": payment.UpdatedAt(),
			"version":    expectedVersion + 1,
		})
	if res.Error != nil {
		return fmt.Errorf("update payment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}
