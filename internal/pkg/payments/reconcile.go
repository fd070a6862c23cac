package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RuanOosthuizen/StagePass/app/models"
	"gorm.io/gorm"
)

const reconcileLockTTL = 30 * time.Second

func reconcileLockKey(paymentID string) string {
	return "payments:reconcile:" + paymentID
}

// ProcessEntries materializes the pending entries of a completed batch
// payment. It is idempotent: a second call for the same payment returns the
// first call's entries unchanged. Item failures are collected, not fatal.
func (s *Service) ProcessEntries(paymentID string, specs []EntrySpec, sourceIP, userAgent string) (*ReconcileResult, error) {
	locked, err := s.locker.Acquire(reconcileLockKey(paymentID), reconcileLockTTL)
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, ErrReconcileInProgress
	}
	defer s.locker.Release(reconcileLockKey(paymentID))

	payment, err := s.repos.Payment.GetByPaymentID(paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	if payment.Status != models.PaymentStatusCompleted {
		return nil, ErrPaymentNotCompleted
	}

	// Idempotency guard: entries already tagged with this payment id mean a
	// previous call (or the single-entry flow) did the work.
	existing, err := s.repos.EventEntry.GetByPaymentID(paymentID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return &ReconcileResult{
			Success:          true,
			AlreadyProcessed: true,
			Created:          existing,
		}, nil
	}

	// Client-supplied specs win; the copy stored at initiation time is the
	// fallback when the client session lost them.
	if len(specs) == 0 && payment.PendingEntries != "" {
		if err := json.Unmarshal([]byte(payment.PendingEntries), &specs); err != nil {
			return nil, fmt.Errorf("stored pending entries are unreadable: %w", err)
		}
	}
	if len(specs) == 0 {
		return nil, ErrNoEntrySpecs
	}

	approvedAt := s.now()
	result := &ReconcileResult{}
	for i, spec := range specs {
		entry, err := s.createEntryFromSpec(payment, spec, approvedAt)
		if err != nil {
			result.Errors = append(result.Errors, ItemError{
				Index:    i,
				ItemName: spec.ItemName,
				Error:    err.Error(),
			})
			continue
		}
		result.Created = append(result.Created, *entry)
	}

	result.Success = len(result.Created) > 0
	if result.Success && len(result.Errors) > 0 {
		names := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			names = append(names, e.ItemName)
		}
		result.Warning = fmt.Sprintf("created %d of %d entries; failed: %s; contact support for the rest",
			len(result.Created), len(specs), strings.Join(names, ", "))
	}

	s.logEventBestEffort(paymentID, models.PaymentEventEntriesCreated, map[string]interface{}{
		"requested": len(specs),
		"created":   len(result.Created),
		"failed":    len(result.Errors),
		"errors":    result.Errors,
	}, sourceIP, userAgent)

	return result, nil
}

// createEntryFromSpec validates and persists one entry as paid/approved.
func (s *Service) createEntryFromSpec(payment *models.Payment, spec EntrySpec, approvedAt time.Time) (*models.EventEntry, error) {
	if err := s.validate.Struct(spec); err != nil {
		return nil, err
	}

	paymentID := payment.PaymentID
	entry := &models.EventEntry{
		EventID:          spec.EventID,
		UserID:           spec.UserID,
		ItemName:         spec.ItemName,
		ItemStyle:        spec.ItemStyle,
		MasteryLevel:     spec.MasteryLevel,
		PerformanceType:  spec.PerformanceType,
		ParticipantNames: strings.Join(spec.ParticipantNames, ", "),
		Fee:              spec.Fee,
		PaymentStatus:    models.EntryPaymentPaid,
		Approved:         true,
		ApprovedAt:       &approvedAt,
		PaymentID:        &paymentID,
	}
	if err := s.repos.EventEntry.Create(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// ProcessedEntries returns the entries already created for a payment, for
// the idempotent GET check.
func (s *Service) ProcessedEntries(paymentID string) ([]models.EventEntry, error) {
	if _, err := s.repos.Payment.GetByPaymentID(paymentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return s.repos.EventEntry.GetByPaymentID(paymentID)
}
