package services

import (
	"context"
	"errors"
	"time"

	"ec-payment/models"
)

var (
	ErrValidation       = errors.New("invalid payment request")
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrDuplicatePayment = errors.New("order already has an active payment")
	ErrConflict         = errors.New("conflicting payment state")
	ErrVersionConflict  = errors.New("payment was modified concurrently")
)

// PaymentStore is the durable storage boundary for Payment records.
// GetByOrderID returns the most recent payment for the order.
// Insert fails with ErrDuplicatePayment when a non-terminal payment already
// exists for the same order_id. UpdateIfVersion persists the record only if
// its stored version still equals expectedVersion, failing with
// ErrVersionConflict otherwise; on success the stored version is advanced.
type PaymentStore interface {
	GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error)
	Insert(ctx context.Context, payment *models.Payment) error
	UpdateIfVersion(ctx context.Context, payment *models.Payment, expectedVersion int64) error
	FindStalePending(ctx context.Context, olderThan time.Time, limit int) ([]models.Payment, error)
}

// OrderStore exposes the read-only order reference data used to cross-check
// payment creation requests.
type OrderStore interface {
	GetOrderByID(ctx context.Context, orderID string) (*models.Order, error)
}

// Notifier receives fire-and-forget notifications about payments reaching a
// terminal status.
type Notifier interface {
	PaymentStatusChanged(payment *models.Payment)
}
