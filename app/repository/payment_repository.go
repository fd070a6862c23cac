package repository

import (
	"github.com/RuanOosthuizen/StagePass/app/models"
	"gorm.io/gorm"
)

// paymentRepository implements the PaymentRepository interface
type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository instance
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// Create persists a new payment session
func (r *paymentRepository) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

// GetByPaymentID retrieves a payment session by its business key
func (r *paymentRepository) GetByPaymentID(paymentID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.Where("payment_id = ?", paymentID).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetByPaymentIDs retrieves all payment sessions matching the given ids
func (r *paymentRepository) GetByPaymentIDs(paymentIDs []string) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("payment_id IN ?", paymentIDs).Find(&payments).Error
	return payments, err
}

// TransitionStatus applies a notification's values in one guarded UPDATE.
// The WHERE clause excludes terminal rows, so concurrent re-deliveries for
// the same payment can never regress a final status: the second writer
// simply matches zero rows.
func (r *paymentRepository) TransitionStatus(paymentID string, update StatusUpdate) (*models.Payment, bool, error) {
	values := map[string]interface{}{
		"status":           update.Status,
		"provider_status":  update.ProviderStatus,
		"signature":        update.Signature,
		"raw_notification": update.RawNotification,
	}
	if update.ProviderPaymentID != nil {
		values["provider_payment_id"] = update.ProviderPaymentID
	}
	if update.AmountGross != nil {
		values["amount_gross"] = update.AmountGross
	}
	if update.AmountFee != nil {
		values["amount_fee"] = update.AmountFee
	}
	if update.AmountNet != nil {
		values["amount_net"] = update.AmountNet
	}
	if update.PaidAt != nil {
		values["paid_at"] = update.PaidAt
	}

	tx := r.db.Model(&models.Payment{}).
		Where("payment_id = ? AND status NOT IN ?", paymentID, []string{
			models.PaymentStatusCompleted,
			models.PaymentStatusFailed,
			models.PaymentStatusCancelled,
		}).
		Updates(values)
	if tx.Error != nil {
		return nil, false, tx.Error
	}

	stored, err := r.GetByPaymentID(paymentID)
	if err != nil {
		return nil, false, err
	}
	return stored, tx.RowsAffected > 0, nil
}

// SetPendingEntries stores the serialized batch entry specifications
func (r *paymentRepository) SetPendingEntries(paymentID string, pendingJSON string) error {
	return r.db.Model(&models.Payment{}).
		Where("payment_id = ?", paymentID).
		Update("pending_entries", pendingJSON).Error
}
