package controllers

import (
	"errors"
	"log"
	"strings"

	"github.com/RuanOosthuizen/StagePass/internal/pkg/database"
	"github.com/RuanOosthuizen/StagePass/internal/pkg/fees"
	"github.com/RuanOosthuizen/StagePass/internal/pkg/metrics/counter"
	"github.com/RuanOosthuizen/StagePass/internal/pkg/payments"
	"github.com/gofiber/fiber/v2"
)

// InitiatePaymentRequest is the body of POST /payments/initiate.
type InitiatePaymentRequest struct {
	EntryID         *uint                `json:"entryId"`
	EventID         uint                 `json:"eventId" validate:"required"`
	UserID          uint                 `json:"userId" validate:"required"`
	UserFirstName   string               `json:"userFirstName"`
	UserLastName    string               `json:"userLastName"`
	UserEmail       string               `json:"userEmail" validate:"omitempty,email"`
	Amount          string               `json:"amount"`
	FeeParams       *payments.FeeParams  `json:"feeParams"`
	ItemName        string               `json:"itemName"`
	ItemDescription string               `json:"itemDescription"`
	IsBatchPayment  bool                 `json:"isBatchPayment"`
	Entries         []payments.EntrySpec `json:"entries"`
}

// ProcessEntriesRequest is the body of POST /payments/process-entries.
type ProcessEntriesRequest struct {
	PaymentID string               `json:"payment_id" validate:"required"`
	Entries   []payments.EntrySpec `json:"entries"`
}

// StatusBatchRequest is the body of POST /payments/status.
type StatusBatchRequest struct {
	PaymentIDs []string `json:"payment_ids" validate:"required,min=1"`
}

// HandleInitiatePayment creates a payment session and responds with a
// self-submitting redirect document, or the signed field map as JSON when
// the client asks for it.
func HandleInitiatePayment(c *fiber.Ctx) error {
	var req InitiatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid request body"})
	}
	if req.EventID == 0 || req.UserID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "eventId and userId are required"})
	}

	svc := payments.NewServiceFromDB(database.GetDB())
	result, err := svc.Initiate(payments.InitiateInput{
		EntryID:         req.EntryID,
		EventID:         req.EventID,
		UserID:          req.UserID,
		PayerFirstName:  req.UserFirstName,
		PayerLastName:   req.UserLastName,
		PayerEmail:      req.UserEmail,
		Amount:          req.Amount,
		FeeParams:       req.FeeParams,
		ItemName:        req.ItemName,
		ItemDescription: req.ItemDescription,
		IsBatch:         req.IsBatchPayment,
		PendingEntries:  req.Entries,
		SourceIP:        GetClientIP(c),
		UserAgent:       string(c.Request().Header.UserAgent()),
	})
	if err != nil {
		return initiateErrorResponse(c, err)
	}

	if wantsJSON(c) {
		fieldMap := make([]fiber.Map, 0, len(result.Fields))
		for _, f := range result.Fields {
			fieldMap = append(fieldMap, fiber.Map{"key": f.Key, "value": f.Value})
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"payment_id":  result.PaymentID,
			"process_url": result.ProcessURL,
			"fields":      fieldMap,
			"amount":      result.Breakdown.Total.String(),
		})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Render("payment_redirect", fiber.Map{
		"PaymentID":  result.PaymentID,
		"ProcessURL": result.ProcessURL,
		"Fields":     result.Fields,
	})
}

func initiateErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, payments.ErrEventNotFound), errors.Is(err, payments.ErrEntryNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": err.Error()})
	case errors.Is(err, payments.ErrAlreadyPaid):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "already_paid", "message": "This entry has already been paid."})
	case errors.Is(err, payments.ErrPaymentNotRequired):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "payment_not_required", "message": "This event does not require payment."})
	case errors.Is(err, fees.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_input", "message": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "initiation_failed"})
	}
}

// HandleWebhookProbe answers the provider's endpoint validation check.
func HandleWebhookProbe(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "endpoint": "payments-webhook"})
}

// HandleWebhook ingests one provider notification. Any non-2xx response
// makes the provider retry later, so errors after durable persistence are
// swallowed inside the service.
func HandleWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)

	// The origin check runs against the transport peer. c.IP() only honors
	// forwarding headers from configured trusted proxies; GetClientIP would
	// let any caller spoof an allow-listed address with one header.
	svc := payments.NewServiceFromDB(database.GetDB())
	result, err := svc.IngestWebhook(payments.WebhookInput{
		RawBody:   rawBody,
		SourceIP:  c.IP(),
		UserAgent: string(c.Request().Header.UserAgent()),
	})
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrForbiddenOrigin):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden_origin"})
		case errors.Is(err, payments.ErrInvalidSignature):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "invalid_signature"})
		case errors.Is(err, payments.ErrBadNotification):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
		case errors.Is(err, payments.ErrPaymentNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown_payment"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_failed"})
		}
	}

	// Delivery counter includes retries; flushed to the database in batches.
	if err := counter.AddWebhookDelivery(result.PaymentID); err != nil {
		log.Printf("failed to count webhook delivery for %s: %v", result.PaymentID, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":    true,
		"payment_id": result.PaymentID,
		"status":     result.Status,
	})
}

// HandleProcessEntries materializes the entries of a completed batch payment.
func HandleProcessEntries(c *fiber.Ctx) error {
	var req ProcessEntriesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid request body"})
	}
	if strings.TrimSpace(req.PaymentID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "payment_id is required"})
	}

	svc := payments.NewServiceFromDB(database.GetDB())
	result, err := svc.ProcessEntries(req.PaymentID, req.Entries, GetClientIP(c), string(c.Request().Header.UserAgent()))
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrPaymentNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown_payment"})
		case errors.Is(err, payments.ErrPaymentNotCompleted):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "payment_not_completed", "message": "Payment has not completed yet."})
		case errors.Is(err, payments.ErrReconcileInProgress):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "reconcile_in_progress", "message": "Entries are already being created for this payment."})
		case errors.Is(err, payments.ErrNoEntrySpecs):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "no_entries", "message": "No entry specifications supplied."})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "reconciliation_failed"})
		}
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// HandleGetProcessedEntries is the idempotent check for already-created
// entries of a payment.
func HandleGetProcessedEntries(c *fiber.Ctx) error {
	paymentID := strings.TrimSpace(c.Query("payment_id"))
	if paymentID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "payment_id is required"})
	}

	svc := payments.NewServiceFromDB(database.GetDB())
	entries, err := svc.ProcessedEntries(paymentID)
	if err != nil {
		if errors.Is(err, payments.ErrPaymentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown_payment"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"payment_id": paymentID,
		"processed":  len(entries) > 0,
		"entries":    entries,
	})
}

// HandleGetPaymentStatus serves the single-id status projection.
func HandleGetPaymentStatus(c *fiber.Ctx) error {
	paymentID := strings.TrimSpace(c.Query("payment_id"))
	if paymentID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "payment_id is required"})
	}

	svc := payments.NewServiceFromDB(database.GetDB())
	status, err := svc.Status(paymentID)
	if err != nil {
		if errors.Is(err, payments.ErrPaymentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown_payment"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "status_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(status)
}

// HandlePostPaymentStatus serves the batch status lookup.
func HandlePostPaymentStatus(c *fiber.Ctx) error {
	var req StatusBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid request body"})
	}
	if len(req.PaymentIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "payment_ids is required"})
	}

	svc := payments.NewServiceFromDB(database.GetDB())
	results, err := svc.StatusBatch(req.PaymentIDs)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "status_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"payments": results})
}
