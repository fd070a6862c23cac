package models

import "time"

// Internal payment session states. Transitions are monotonic: once a payment
// reaches a terminal state it never leaves it.
const (
	PaymentStatusPending    = "pending"
	PaymentStatusProcessing = "processing"
	PaymentStatusCompleted  = "completed"
	PaymentStatusFailed     = "failed"
	PaymentStatusCancelled  = "cancelled"
)

const CurrencyZAR = "ZAR"

// Payment is one payment attempt. PaymentID is our own globally unique id
// (generated at initiation, echoed back by the provider as m_payment_id);
// ProviderPaymentID is the provider's id and only known once the first
// notification arrives.
type Payment struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	PaymentID         string     `gorm:"type:varchar(100);not null;uniqueIndex:ux_payments_payment_id" json:"payment_id"`
	ProviderPaymentID *string    `gorm:"type:varchar(100);default:null;index" json:"provider_payment_id,omitempty"`
	EntryID           *uint      `gorm:"default:null;index" json:"entry_id,omitempty"`
	EventID           uint       `gorm:"not null;index" json:"event_id"`
	UserID            uint       `gorm:"not null;index" json:"user_id"`
	Amount            string     `gorm:"type:varchar(20);not null" json:"amount"`
	Currency          string     `gorm:"type:varchar(3);not null;default:'ZAR'" json:"currency"`
	Status            string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ProviderStatus    string     `gorm:"type:varchar(40);default:''" json:"provider_status"`
	AmountGross       *string    `gorm:"type:varchar(20);default:null" json:"amount_gross,omitempty"`
	AmountFee         *string    `gorm:"type:varchar(20);default:null" json:"amount_fee,omitempty"`
	AmountNet         *string    `gorm:"type:varchar(20);default:null" json:"amount_net,omitempty"`
	Signature         string     `gorm:"type:varchar(64);default:''" json:"-"`
	RawNotification   string     `gorm:"type:longtext" json:"-"`
	PendingEntries    string     `gorm:"type:longtext" json:"-"`
	PaidAt            *time.Time `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	WebhookCount      uint64     `gorm:"not null;default:0" json:"webhook_count"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}

// IsTerminal reports whether the payment has reached a final state.
func (p *Payment) IsTerminal() bool {
	return IsTerminalPaymentStatus(p.Status)
}

// IsBatch reports whether this payment covers entries that did not exist yet
// at initiation time.
func (p *Payment) IsBatch() bool {
	return p.EntryID == nil
}

// IsTerminalPaymentStatus reports whether status is completed/failed/cancelled.
func IsTerminalPaymentStatus(status string) bool {
	switch status {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled:
		return true
	default:
		return false
	}
}
