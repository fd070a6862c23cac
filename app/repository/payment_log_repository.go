package repository

import (
	"github.com/RuanOosthuizen/StagePass/app/models"
	"gorm.io/gorm"
)

// paymentLogRepository implements the PaymentLogRepository interface
type paymentLogRepository struct {
	db *gorm.DB
}

// NewPaymentLogRepository creates a new payment log repository instance
func NewPaymentLogRepository(db *gorm.DB) PaymentLogRepository {
	return &paymentLogRepository{db: db}
}

// Append writes one audit row. The table is append-only; there are no
// update or delete operations on it.
func (r *paymentLogRepository) Append(logEntry *models.PaymentLog) error {
	return r.db.Create(logEntry).Error
}

// ListByPaymentID returns the most recent audit rows for a payment
func (r *paymentLogRepository) ListByPaymentID(paymentID string, limit int) ([]models.PaymentLog, error) {
	if limit <= 0 {
		limit = 20
	}
	var logs []models.PaymentLog
	err := r.db.Where("payment_id = ?", paymentID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
