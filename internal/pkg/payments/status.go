package payments

import (
	"errors"

	"gorm.io/gorm"
)

const statusTimelineLimit = 20

// Status projects one payment session plus linked event/entry metadata and
// its recent audit timeline. Read-only.
func (s *Service) Status(paymentID string) (*StatusResult, error) {
	payment, err := s.repos.Payment.GetByPaymentID(paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	result := &StatusResult{
		PaymentID:         payment.PaymentID,
		ProviderPaymentID: payment.ProviderPaymentID,
		Status:            payment.Status,
		ProviderStatus:    payment.ProviderStatus,
		Amount:            payment.Amount,
		Currency:          payment.Currency,
		AmountGross:       payment.AmountGross,
		AmountFee:         payment.AmountFee,
		AmountNet:         payment.AmountNet,
		PaidAt:            payment.PaidAt,
		CreatedAt:         payment.CreatedAt,
		Entries:           []EntrySummary{},
		Timeline:          []TimelineEntry{},
	}

	if event, err := s.repos.Event.GetByID(payment.EventID); err == nil {
		result.EventName = event.Name
	}

	entries, err := s.repos.EventEntry.GetByPaymentID(payment.PaymentID)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		result.Entries = append(result.Entries, EntrySummary{
			ID:            entry.ID,
			ItemName:      entry.ItemName,
			PaymentStatus: entry.PaymentStatus,
			Approved:      entry.Approved,
		})
	}

	logs, err := s.repos.PaymentLog.ListByPaymentID(payment.PaymentID, statusTimelineLimit)
	if err != nil {
		return nil, err
	}
	for _, entry := range logs {
		result.Timeline = append(result.Timeline, TimelineEntry{
			EventType: entry.EventType,
			EventData: entry.EventData,
			CreatedAt: entry.CreatedAt,
		})
	}

	return result, nil
}

// StatusBatch resolves several payment ids at once. Unknown ids are simply
// absent from the result, mirroring the single lookup's 404.
func (s *Service) StatusBatch(paymentIDs []string) ([]StatusResult, error) {
	stored, err := s.repos.Payment.GetByPaymentIDs(paymentIDs)
	if err != nil {
		return nil, err
	}

	results := make([]StatusResult, 0, len(stored))
	for _, payment := range stored {
		single, err := s.Status(payment.PaymentID)
		if err != nil {
			return nil, err
		}
		results = append(results, *single)
	}
	return results, nil
}
