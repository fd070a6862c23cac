package payments

import (
	"errors"
	"fmt"

	"github.com/RuanOosthuizen/StagePass/app/models"
	"github.com/RuanOosthuizen/StagePass/app/repository"
	"github.com/RuanOosthuizen/StagePass/internal/pkg/payfast"
	"gorm.io/gorm"
)

// mapProviderStatus maps the provider's payment_status onto our internal
// session state. Unmapped values park the session in processing.
func mapProviderStatus(providerStatus string) string {
	switch providerStatus {
	case payfast.StatusComplete:
		return models.PaymentStatusCompleted
	case payfast.StatusFailed:
		return models.PaymentStatusFailed
	case payfast.StatusCancelled:
		return models.PaymentStatusCancelled
	default:
		return models.PaymentStatusProcessing
	}
}

// IngestWebhook processes one provider notification. Security checks come
// first, the audit row is written before any mutation, and the guarded
// status transition keeps re-deliveries idempotent.
func (s *Service) IngestWebhook(in WebhookInput) (*WebhookResult, error) {
	// Origin check. Sandbox/test mode bypasses the allow-list.
	if !s.client.Sandbox && !s.allow.Contains(in.SourceIP) {
		s.logEventBestEffort("", models.PaymentEventVerificationFailed, map[string]interface{}{
			"reason": "forbidden_origin",
		}, in.SourceIP, in.UserAgent)
		return nil, ErrForbiddenOrigin
	}

	fields, err := payfast.ParseITNBody(in.RawBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadNotification, err)
	}
	notification, err := payfast.NotificationFromFields(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadNotification, err)
	}

	// Signature verification precedes every state change. A mismatch is
	// logged and rejected without touching session or entries.
	if !payfast.VerifySignature(fields, notification.Signature, s.client.Passphrase) {
		s.logEventBestEffort(notification.PaymentID, models.PaymentEventVerificationFailed, map[string]interface{}{
			"reason":    "signature_mismatch",
			"signature": notification.Signature,
		}, in.SourceIP, in.UserAgent)
		return nil, ErrInvalidSignature
	}

	payment, err := s.repos.Payment.GetByPaymentID(notification.PaymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logEventBestEffort(notification.PaymentID, models.PaymentEventVerificationFailed, map[string]interface{}{
				"reason": "unknown_payment_id",
			}, in.SourceIP, in.UserAgent)
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	// Audit before mutate. If this row cannot be written we bail out with a
	// non-2xx so the provider retries.
	if err := s.logEvent(payment.PaymentID, models.PaymentEventWebhookReceived, map[string]interface{}{
		"provider_status":     notification.PaymentStatus,
		"provider_payment_id": notification.ProviderPaymentID,
		"amount_gross":        notification.AmountGross,
	}, in.SourceIP, in.UserAgent); err != nil {
		return nil, err
	}

	newStatus := mapProviderStatus(notification.PaymentStatus)
	update := repository.StatusUpdate{
		Status:          newStatus,
		ProviderStatus:  notification.PaymentStatus,
		Signature:       notification.Signature,
		RawNotification: string(in.RawBody),
	}
	if notification.ProviderPaymentID != "" {
		update.ProviderPaymentID = &notification.ProviderPaymentID
	}
	if notification.AmountGross != "" {
		update.AmountGross = &notification.AmountGross
	}
	if notification.AmountFee != "" {
		update.AmountFee = &notification.AmountFee
	}
	if notification.AmountNet != "" {
		update.AmountNet = &notification.AmountNet
	}
	if newStatus == models.PaymentStatusCompleted {
		now := s.now()
		update.PaidAt = &now
	}

	previousStatus := payment.Status
	stored, applied, err := s.repos.Payment.TransitionStatus(payment.PaymentID, update)
	if err != nil {
		return nil, err
	}
	if !applied {
		// The session was already terminal: the notification is logged
		// above and must not regress state. When the re-delivered status
		// matches the stored one the cascade values are identical, so they
		// are re-applied; a transition that outlived its cascade (the
		// provider retried a delivery that failed mid-way) is repaired by
		// exactly this path.
		if stored.Status == newStatus {
			if err := s.cascadeEntries(stored, newStatus); err != nil {
				return nil, err
			}
		}
		return &WebhookResult{
			PaymentID: stored.PaymentID,
			Status:    stored.Status,
			Duplicate: true,
		}, nil
	}

	if err := s.cascadeEntries(stored, newStatus); err != nil {
		return nil, err
	}

	// State is durably persisted from here on; audit failures must not turn
	// into a retry-triggering response.
	statusData := map[string]interface{}{
		"from": previousStatus,
		"to":   newStatus,
	}
	if notification.AmountGross != "" && notification.AmountGross != stored.Amount {
		// Quoted and notified gross amounts disagree. Recorded for the
		// operator; the provider's word on money received stands.
		statusData["amount_mismatch"] = fmt.Sprintf("expected %s, notified %s", stored.Amount, notification.AmountGross)
	}
	s.logEventBestEffort(stored.PaymentID, models.PaymentEventStatusUpdated, statusData, in.SourceIP, in.UserAgent)

	switch newStatus {
	case models.PaymentStatusCompleted:
		s.logEventBestEffort(stored.PaymentID, models.PaymentEventCompleted, nil, in.SourceIP, in.UserAgent)
	case models.PaymentStatusFailed:
		s.logEventBestEffort(stored.PaymentID, models.PaymentEventFailed, nil, in.SourceIP, in.UserAgent)
	case models.PaymentStatusCancelled:
		s.logEventBestEffort(stored.PaymentID, models.PaymentEventCancelled, nil, in.SourceIP, in.UserAgent)
	}

	return &WebhookResult{
		PaymentID: stored.PaymentID,
		Status:    stored.Status,
	}, nil
}

// cascadeEntries propagates a session status to its linked entries. On
// completion entries become paid and approved; other statuses propagate
// without touching approval. The values are idempotent: re-applying the same
// status writes the same columns, with the stored paid_at reused so retries
// never mint a second approval timestamp.
func (s *Service) cascadeEntries(payment *models.Payment, status string) error {
	if status == models.PaymentStatusCompleted {
		approvedAt := s.now()
		if payment.PaidAt != nil {
			approvedAt = *payment.PaidAt
		}
		return s.repos.EventEntry.MarkPaidByPaymentID(payment.PaymentID, approvedAt)
	}
	return s.repos.EventEntry.SetPaymentStatusByPaymentID(payment.PaymentID, status)
}
