package models

import "time"

// Audit event types recorded per payment. One row per observable event;
// rows are never updated or deleted.
const (
	PaymentEventInitiated          = "initiated"
	PaymentEventRedirectSent       = "redirect_sent"
	PaymentEventWebhookReceived    = "webhook_received"
	PaymentEventVerificationFailed = "verification_failed"
	PaymentEventStatusUpdated      = "status_updated"
	PaymentEventCompleted          = "completed"
	PaymentEventFailed             = "failed"
	PaymentEventCancelled          = "cancelled"
	PaymentEventEntriesCreated     = "entries_created"
)

// PaymentLog is the append-only audit trail for a payment.
type PaymentLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PaymentID string    `gorm:"type:varchar(100);not null;index" json:"payment_id"`
	EventType string    `gorm:"type:varchar(40);not null;index" json:"event_type"`
	EventData string    `gorm:"type:text" json:"event_data"`
	SourceIP  string    `gorm:"type:varchar(45);default:''" json:"source_ip"`
	UserAgent string    `gorm:"type:varchar(255);default:''" json:"user_agent"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (PaymentLog) TableName() string {
	return "payment_logs"
}
