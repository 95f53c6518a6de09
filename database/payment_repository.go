package database

import (
	"context"
	"errors"
	"time"

	"ec-payment/models"
	"ec-payment/services"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentRepository is the GORM-backed Persistence Store. The version column
// on payments is the concurrency primitive: updates are compare-and-swap on
// it. Inserts are backed by the partial unique index on (order_id) for
// pending rows, so two concurrent creates for the same order cannot both
// succeed even when both pass the existence check.
type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) Insert(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var active []models.Payment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_id = ? AND status = ?", payment.OrderID, models.PaymentStatusPending).
			Find(&active).Error
		if err != nil {
			return err
		}
		if len(active) > 0 {
			return services.ErrDuplicatePayment
		}
		// The locking SELECT only serializes against rows that already
		// exist; a concurrent create that has not committed yet is invisible
		// to it. The partial unique index rejects the loser here.
		if err := tx.Create(payment).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return services.ErrDuplicatePayment
			}
			return err
		}
		return nil
	})
}

func (r *PaymentRepository) UpdateIfVersion(ctx context.Context, payment *models.Payment, expectedVersion int64) error {
	var updated models.Payment
	result := r.db.WithContext(ctx).
		Model(&updated).
		Clauses(clause.Returning{}).
		Where("id = ? AND version = ?", payment.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":         payment.Status,
			"method":         payment.Method,
			"transaction_id": payment.TransactionID,
			"redirect_url":   payment.RedirectURL,
			"version":        expectedVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return services.ErrVersionConflict
	}

	// Hand the caller the row as Postgres wrote it, in particular the
	// updated_at stamped by the update itself.
	*payment = updated
	return nil
}

func (r *PaymentRepository) FindStalePending(ctx context.Context, olderThan time.Time, limit int) ([]models.Payment, error) {
	var stale []models.Payment
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.PaymentStatusPending, olderThan).
		Order("created_at ASC").
		Limit(limit).
		Find(&stale).Error
	if err != nil {
		return nil, err
	}
	return stale, nil
}

func (r *PaymentRepository) GetOrderByID(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}
