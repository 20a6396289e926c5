package notification

import (
	"context"
	"errors"

	"github.com/payflow/server/internal/shared/database"
	"gorm.io/gorm"
)

// ErrAlreadySent indicates a notification for this payment and status
// already exists.
var ErrAlreadySent = errors.New("notification already sent")

// Repository defines the notification persistence interface.
type Repository interface {
	CreateNotification(ctx context.Context, n *Notification) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a new notification repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// conn joins the transaction carried in ctx, if any. Notification writes
// commit atomically with the payment update that triggered them.
func (r *gormRepository) conn(ctx context.Context) *gorm.DB {
	return database.FromContext(ctx, r.db)
}

func (r *gormRepository) CreateNotification(ctx context.Context, n *Notification) error {
	if err := r.conn(ctx).WithContext(ctx).Create(n).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadySent
		}
		return err
	}
	return nil
}
