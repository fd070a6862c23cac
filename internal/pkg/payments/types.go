package payments

import (
	"time"

	"github.com/RuanOosthuizen/StagePass/app/models"
	"github.com/RuanOosthuizen/StagePass/internal/pkg/fees"
	"github.com/RuanOosthuizen/StagePass/internal/pkg/payfast"
)

// Locker serializes reconciliation per payment id. The production
// implementation is backed by Redis; tests inject their own.
type Locker interface {
	Acquire(key string, ttl time.Duration) (bool, error)
	Release(key string)
}

// EntrySpec is one client-supplied pending entry for a batch payment,
// priced at initiation time and materialized at reconciliation.
type EntrySpec struct {
	EventID          uint     `json:"event_id" validate:"required"`
	UserID           uint     `json:"user_id" validate:"required"`
	ItemName         string   `json:"item_name" validate:"required,max=200"`
	ItemStyle        string   `json:"item_style" validate:"max=100"`
	MasteryLevel     string   `json:"mastery_level" validate:"required,max=50"`
	PerformanceType  string   `json:"performance_type" validate:"required,oneof=Solo Duet Trio Group"`
	ParticipantNames []string `json:"participant_names"`
	Fee              string   `json:"fee" validate:"required"`
}

// FeeParams describe an entry well enough to price it when the caller does
// not pass an explicit amount.
type FeeParams struct {
	MasteryLevel        string `json:"mastery_level"`
	PerformanceType     string `json:"performance_type"`
	ParticipantCount    int    `json:"participant_count"`
	SoloCount           int    `json:"solo_count"`
	IncludeRegistration bool   `json:"include_registration"`
}

// InitiateInput is everything the initiation service needs for one payment.
type InitiateInput struct {
	EntryID         *uint
	EventID         uint
	UserID          uint
	PayerFirstName  string
	PayerLastName   string
	PayerEmail      string
	Amount          string // base amount; empty means price via FeeParams
	FeeParams       *FeeParams
	ItemName        string
	ItemDescription string
	IsBatch         bool
	PendingEntries  []EntrySpec // optional; stored server-side for batch payments

	SourceIP  string
	UserAgent string
}

// InitiateResult carries the signed redirect payload back to the controller.
type InitiateResult struct {
	PaymentID  string
	ProcessURL string
	Fields     []payfast.Field
	Breakdown  fees.Breakdown
}

// WebhookInput is one inbound provider notification.
type WebhookInput struct {
	RawBody   []byte
	SourceIP  string
	UserAgent string
}

// WebhookResult reports the final session state acknowledged to the provider.
type WebhookResult struct {
	PaymentID string
	Status    string
	Duplicate bool // notification for a session already in a terminal state
}

// ItemError records one failed entry in a batch reconciliation.
type ItemError struct {
	Index    int    `json:"index"`
	ItemName string `json:"item_name"`
	Error    string `json:"error"`
}

// ReconcileResult is the outcome of materializing a batch payment's entries.
type ReconcileResult struct {
	Success          bool                `json:"success"`
	AlreadyProcessed bool                `json:"already_processed"`
	Created          []models.EventEntry `json:"created"`
	Errors           []ItemError         `json:"errors,omitempty"`
	Warning          string              `json:"warning,omitempty"`
}

// TimelineEntry is one human-readable audit event in a status response.
type TimelineEntry struct {
	EventType string    `json:"event_type"`
	EventData string    `json:"event_data,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// EntrySummary is the per-entry slice of a status response.
type EntrySummary struct {
	ID            uint   `json:"id"`
	ItemName      string `json:"item_name"`
	PaymentStatus string `json:"payment_status"`
	Approved      bool   `json:"approved"`
}

// StatusResult is the read-only projection served to polling clients.
type StatusResult struct {
	PaymentID         string          `json:"payment_id"`
	ProviderPaymentID *string         `json:"provider_payment_id,omitempty"`
	Status            string          `json:"status"`
	ProviderStatus    string          `json:"provider_status,omitempty"`
	Amount            string          `json:"amount"`
	Currency          string          `json:"currency"`
	AmountGross       *string         `json:"amount_gross,omitempty"`
	AmountFee         *string         `json:"amount_fee,omitempty"`
	AmountNet         *string         `json:"amount_net,omitempty"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	EventName         string          `json:"event_name,omitempty"`
	Entries           []EntrySummary  `json:"entries"`
	Timeline          []TimelineEntry `json:"timeline"`
}
