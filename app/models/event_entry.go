package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Entry payment states as seen by the registration screens.
const (
	EntryPaymentUnpaid    = "unpaid"
	EntryPaymentPending   = "pending"
	EntryPaymentPaid      = "paid"
	EntryPaymentFailed    = "failed"
	EntryPaymentCancelled = "cancelled"
)

// EventEntry is one competition entry. The entry CRUD is owned elsewhere;
// the payment subsystem creates batch entries after payment completes and
// otherwise only touches payment_id, payment_status, approved, approved_at.
type EventEntry struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	EventID          uint       `gorm:"not null;index" json:"event_id" validate:"required"`
	UserID           uint       `gorm:"not null;index" json:"user_id" validate:"required"`
	ItemName         string     `gorm:"type:varchar(200);not null" json:"item_name" validate:"required,max=200"`
	ItemStyle        string     `gorm:"type:varchar(100);default:''" json:"item_style" validate:"max=100"`
	MasteryLevel     string     `gorm:"type:varchar(50);not null" json:"mastery_level" validate:"required,max=50"`
	PerformanceType  string     `gorm:"type:varchar(20);not null" json:"performance_type" validate:"required,oneof=Solo Duet Trio Group"`
	ParticipantNames string     `gorm:"type:text" json:"participant_names"`
	Fee              string     `gorm:"type:varchar(20);not null" json:"fee" validate:"required"`
	PaymentStatus    string     `gorm:"type:varchar(20);not null;default:'unpaid';index" json:"payment_status"`
	Approved         bool       `gorm:"default:false;index" json:"approved"`
	ApprovedAt       *time.Time `gorm:"type:timestamp;default:null" json:"approved_at,omitempty"`
	PaymentID        *string    `gorm:"type:varchar(100);default:null;index" json:"payment_id,omitempty"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (EventEntry) TableName() string {
	return "event_entries"
}

func (e *EventEntry) Validate() error {
	v := validator.New()

	return v.Struct(e)
}
