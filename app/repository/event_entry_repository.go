package repository

import (
	"time"

	"github.com/RuanOosthuizen/StagePass/app/models"
	"gorm.io/gorm"
)

// eventEntryRepository implements the EventEntryRepository interface
type eventEntryRepository struct {
	db *gorm.DB
}

// NewEventEntryRepository creates a new event entry repository instance
func NewEventEntryRepository(db *gorm.DB) EventEntryRepository {
	return &eventEntryRepository{db: db}
}

// Create persists a new competition entry
func (r *eventEntryRepository) Create(entry *models.EventEntry) error {
	return r.db.Create(entry).Error
}

// GetByID retrieves an entry by its ID
func (r *eventEntryRepository) GetByID(id uint) (*models.EventEntry, error) {
	var entry models.EventEntry
	err := r.db.First(&entry, id).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetByPaymentID retrieves all entries tagged with a payment id
func (r *eventEntryRepository) GetByPaymentID(paymentID string) ([]models.EventEntry, error) {
	var entries []models.EventEntry
	err := r.db.Where("payment_id = ?", paymentID).Find(&entries).Error
	return entries, err
}

// UpdatePaymentFields patches the payment-owned columns of one entry
func (r *eventEntryRepository) UpdatePaymentFields(entryID uint, paymentID *string, paymentStatus string) error {
	return r.db.Model(&models.EventEntry{}).
		Where("id = ?", entryID).
		Updates(map[string]interface{}{
			"payment_id":     paymentID,
			"payment_status": paymentStatus,
		}).Error
}

// MarkPaidByPaymentID cascades a completed payment to its entries. The
// values written are identical on every application, so re-delivery of a
// COMPLETE notification is idempotent at the value level.
func (r *eventEntryRepository) MarkPaidByPaymentID(paymentID string, approvedAt time.Time) error {
	return r.db.Model(&models.EventEntry{}).
		Where("payment_id = ?", paymentID).
		Updates(map[string]interface{}{
			"payment_status": models.EntryPaymentPaid,
			"approved":       true,
			"approved_at":    approvedAt,
		}).Error
}

// SetPaymentStatusByPaymentID cascades a non-completed status without
// touching approval
func (r *eventEntryRepository) SetPaymentStatusByPaymentID(paymentID string, paymentStatus string) error {
	return r.db.Model(&models.EventEntry{}).
		Where("payment_id = ?", paymentID).
		Update("payment_status", paymentStatus).Error
}
