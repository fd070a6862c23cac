package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/RuanOosthuizen/StagePass/app/models"
	"github.com/RuanOosthuizen/StagePass/internal/pkg/fees"
	"github.com/RuanOosthuizen/StagePass/internal/pkg/payfast"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NewPaymentID builds the globally unique payment id: it embeds the event
// and entry references for operator readability plus a random suffix so ids
// are not guessable from sequence.
func NewPaymentID(eventID uint, entryID *uint) string {
	entryRef := "BATCH"
	if entryID != nil {
		entryRef = fmt.Sprintf("%d", *entryID)
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("SP-%d-%s-%s", eventID, entryRef, suffix)
}

// Initiate creates a payment session and builds the signed provider payload
// the payer's browser submits.
func (s *Service) Initiate(in InitiateInput) (*InitiateResult, error) {
	event, err := s.repos.Event.GetByID(in.EventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if !event.RequiresPayment {
		return nil, ErrPaymentNotRequired
	}

	entryID := in.EntryID
	if in.IsBatch {
		// Batch payments must not reference an entry row that does not
		// exist yet.
		entryID = nil
	} else {
		if entryID == nil {
			return nil, ErrEntryNotFound
		}
		entry, err := s.repos.EventEntry.GetByID(*entryID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrEntryNotFound
			}
			return nil, err
		}
		if entry.PaymentStatus == models.EntryPaymentPaid {
			return nil, ErrAlreadyPaid
		}
	}

	breakdown, err := s.priceInitiation(in)
	if err != nil {
		return nil, err
	}

	payerFirst, payerLast, payerEmail := in.PayerFirstName, in.PayerLastName, in.PayerEmail
	if payerEmail == "" {
		if user, err := s.repos.User.GetByID(in.UserID); err == nil {
			payerFirst, payerLast, payerEmail = user.FirstName, user.LastName, user.Email
		}
	}

	paymentID := NewPaymentID(in.EventID, entryID)

	pendingJSON := ""
	if in.IsBatch && len(in.PendingEntries) > 0 {
		encoded, err := json.Marshal(in.PendingEntries)
		if err != nil {
			return nil, fmt.Errorf("could not encode pending entries: %w", err)
		}
		pendingJSON = string(encoded)
	}

	payment := &models.Payment{
		PaymentID:      paymentID,
		EntryID:        entryID,
		EventID:        in.EventID,
		UserID:         in.UserID,
		Amount:         breakdown.Total.String(),
		Currency:       models.CurrencyZAR,
		Status:         models.PaymentStatusPending,
		PendingEntries: pendingJSON,
	}
	if err := s.repos.Payment.Create(payment); err != nil {
		return nil, err
	}

	itemName := in.ItemName
	if itemName == "" {
		itemName = fmt.Sprintf("%s entry fees", event.Name)
	}
	fields := s.client.BuildPaymentFields(payfast.PaymentRequest{
		PaymentID:       paymentID,
		Amount:          breakdown.Total.String(),
		ItemName:        itemName,
		ItemDescription: in.ItemDescription,
		PayerFirstName:  payerFirst,
		PayerLastName:   payerLast,
		PayerEmail:      payerEmail,
	})

	if err := s.logEvent(paymentID, models.PaymentEventInitiated, map[string]interface{}{
		"event_id": in.EventID,
		"user_id":  in.UserID,
		"amount":   breakdown.Total.String(),
		"base":     breakdown.Base.String(),
		"fee":      breakdown.Processing.String(),
		"batch":    in.IsBatch,
	}, in.SourceIP, in.UserAgent); err != nil {
		return nil, err
	}

	if entryID != nil {
		if err := s.repos.EventEntry.UpdatePaymentFields(*entryID, &paymentID, models.EntryPaymentPending); err != nil {
			return nil, err
		}
	}

	s.logEventBestEffort(paymentID, models.PaymentEventRedirectSent, map[string]interface{}{
		"process_url": s.client.ProcessURL(),
	}, in.SourceIP, in.UserAgent)

	return &InitiateResult{
		PaymentID:  paymentID,
		ProcessURL: s.client.ProcessURL(),
		Fields:     fields,
		Breakdown:  breakdown,
	}, nil
}

// priceInitiation resolves the charged amount: an explicit base amount wins,
// otherwise the fee engine prices the described entry. Either way the
// provider surcharge is added on top.
func (s *Service) priceInitiation(in InitiateInput) (fees.Breakdown, error) {
	if strings.TrimSpace(in.Amount) != "" {
		base, err := fees.ParseAmount(in.Amount)
		if err != nil {
			return fees.Breakdown{}, err
		}
		if base <= 0 {
			return fees.Breakdown{}, fmt.Errorf("%w: amount must be positive", fees.ErrInvalidInput)
		}
		processing := fees.ProcessingFee(base)
		return fees.Breakdown{Base: base, Processing: processing, Total: base + processing}, nil
	}

	if in.FeeParams == nil {
		return fees.Breakdown{}, fmt.Errorf("%w: amount or fee parameters required", fees.ErrInvalidInput)
	}
	level, err := fees.ParseMasteryLevel(in.FeeParams.MasteryLevel)
	if err != nil {
		return fees.Breakdown{}, err
	}
	ptype, err := fees.ParsePerformanceType(in.FeeParams.PerformanceType)
	if err != nil {
		return fees.Breakdown{}, err
	}
	return fees.Calculate(level, ptype, in.FeeParams.ParticipantCount, fees.Options{
		SoloCount:           in.FeeParams.SoloCount,
		IncludeRegistration: in.FeeParams.IncludeRegistration,
	})
}
