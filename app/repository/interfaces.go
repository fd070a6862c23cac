package repository

import (
	"time"

	"github.com/RuanOosthuizen/StagePass/app/models"
	"gorm.io/gorm"
)

// StatusUpdate carries the provider-reported values applied to a payment in
// one guarded write.
type StatusUpdate struct {
	Status            string
	ProviderStatus    string
	ProviderPaymentID *string
	AmountGross       *string
	AmountFee         *string
	AmountNet         *string
	Signature         string
	RawNotification   string
	PaidAt            *time.Time
}

// PaymentRepository defines the database operations for payment sessions.
type PaymentRepository interface {
	Create(payment *models.Payment) error
	GetByPaymentID(paymentID string) (*models.Payment, error)
	GetByPaymentIDs(paymentIDs []string) ([]models.Payment, error)
	// TransitionStatus applies update to the payment in a single guarded
	// write: the row is only touched while its status is non-terminal.
	// It returns the stored payment and whether the update was applied;
	// applied == false means the session was already terminal (re-delivery).
	TransitionStatus(paymentID string, update StatusUpdate) (*models.Payment, bool, error)
	SetPendingEntries(paymentID string, pendingJSON string) error
}

// PaymentLogRepository defines the append-only audit trail operations.
type PaymentLogRepository interface {
	Append(logEntry *models.PaymentLog) error
	ListByPaymentID(paymentID string, limit int) ([]models.PaymentLog, error)
}

// EventEntryRepository defines the entry operations this subsystem needs.
type EventEntryRepository interface {
	Create(entry *models.EventEntry) error
	GetByID(id uint) (*models.EventEntry, error)
	GetByPaymentID(paymentID string) ([]models.EventEntry, error)
	// UpdatePaymentFields patches the payment-owned columns of one entry.
	UpdatePaymentFields(entryID uint, paymentID *string, paymentStatus string) error
	// MarkPaidByPaymentID sets every entry referencing paymentID to
	// paid/approved. Re-applying to already-paid entries is a no-op.
	MarkPaidByPaymentID(paymentID string, approvedAt time.Time) error
	// SetPaymentStatusByPaymentID cascades a non-completed status without
	// touching approval.
	SetPaymentStatusByPaymentID(paymentID string, paymentStatus string) error
}

// EventRepository defines the event lookups this subsystem needs.
type EventRepository interface {
	GetByID(id uint) (*models.Event, error)
}

// UserRepository defines the user lookups this subsystem needs.
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	Payment    PaymentRepository
	PaymentLog PaymentLogRepository
	EventEntry EventEntryRepository
	Event      EventRepository
	User       UserRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Payment:    NewPaymentRepository(db),
		PaymentLog: NewPaymentLogRepository(db),
		EventEntry: NewEventEntryRepository(db),
		Event:      NewEventRepository(db),
		User:       NewUserRepository(db),
	}
}
