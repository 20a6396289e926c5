package database

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// WithinTransaction runs fn inside a single database transaction. The
// transaction handle travels in the context so that repositories across
// modules join the same unit of work.
func WithinTransaction(ctx context.Context, db *gorm.DB, fn func(ctx context.Context) error) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// FromContext returns the transaction bound to ctx, or fallback when the
// caller is not running inside WithinTransaction.
func FromContext(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return fallback
}
