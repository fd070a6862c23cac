package payments

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/RuanOosthuizen/StagePass/app/models"
	"github.com/RuanOosthuizen/StagePass/internal/pkg/payfast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedPendingPayment creates a pending session with one linked entry, as the
// single-entry initiation flow leaves things.
func seedPendingPayment(env *testEnv, paymentID string) {
	entryID := uint(1)
	env.payments.payments[paymentID] = &models.Payment{
		ID: 1, PaymentID: paymentID, EntryID: &entryID, EventID: 7, UserID: 42,
		Amount: "517.50", Currency: models.CurrencyZAR, Status: models.PaymentStatusPending,
	}
	env.entries.entries[entryID] = &models.EventEntry{
		ID: entryID, EventID: 7, UserID: 42, ItemName: "Moonlight",
		PaymentStatus: models.EntryPaymentPending, PaymentID: &paymentID,
	}
	env.entries.nextID = 2
}

func TestIngestWebhookComplete(t *testing.T) {
	env := newTestEnv()
	seedPendingPayment(env, "SP-7-1-abcd1234")

	result, err := env.svc.IngestWebhook(WebhookInput{
		RawBody:  env.signedITN("SP-7-1-abcd1234", "COMPLETE", "517.50"),
		SourceIP: "197.97.145.144",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, result.Status)
	assert.False(t, result.Duplicate)

	payment, err := env.payments.GetByPaymentID("SP-7-1-abcd1234")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
	assert.Equal(t, "COMPLETE", payment.ProviderStatus)
	require.NotNil(t, payment.PaidAt)
	assert.Equal(t, env.now, *payment.PaidAt)
	require.NotNil(t, payment.AmountGross)
	assert.Equal(t, "517.50", *payment.AmountGross)
	require.NotNil(t, payment.ProviderPaymentID)
	assert.Equal(t, "998877", *payment.ProviderPaymentID)
	assert.NotEmpty(t, payment.RawNotification, "raw payload kept for forensic replay")

	entry, err := env.entries.GetByID(1)
	require.NoError(t, err)
	assert.Equal(t, models.EntryPaymentPaid, entry.PaymentStatus)
	assert.True(t, entry.Approved)
	require.NotNil(t, entry.ApprovedAt)

	assert.Equal(t, 1, env.logs.countByType("SP-7-1-abcd1234", models.PaymentEventWebhookReceived))
	assert.Equal(t, 1, env.logs.countByType("SP-7-1-abcd1234", models.PaymentEventStatusUpdated))
	assert.Equal(t, 1, env.logs.countByType("SP-7-1-abcd1234", models.PaymentEventCompleted))
}

func TestIngestWebhookIsIdempotentOnRedelivery(t *testing.T) {
	env := newTestEnv()
	seedPendingPayment(env, "SP-7-1-abcd1234")
	body := env.signedITN("SP-7-1-abcd1234", "COMPLETE", "517.50")

	first, err := env.svc.IngestWebhook(WebhookInput{RawBody: body, SourceIP: "197.97.145.144"})
	require.NoError(t, err)
	payment, err := env.payments.GetByPaymentID("SP-7-1-abcd1234")
	require.NoError(t, err)
	firstPaidAt := *payment.PaidAt

	env.now = env.now.Add(5 * time.Minute)

	second, err := env.svc.IngestWebhook(WebhookInput{RawBody: body, SourceIP: "197.97.145.144"})
	require.NoError(t, err, "re-delivery must not be an error")
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Status, second.Status)

	payment, err = env.payments.GetByPaymentID("SP-7-1-abcd1234")
	require.NoError(t, err)
	assert.Equal(t, firstPaidAt, *payment.PaidAt, "exactly one paid_at timestamp")

	entry, err := env.entries.GetByID(1)
	require.NoError(t, err)
	assert.True(t, entry.Approved)
	assert.Equal(t, firstPaidAt, *entry.ApprovedAt, "re-delivery must not mint a second approval timestamp")

	// Both deliveries are logged, but only one transition.
	assert.Equal(t, 2, env.logs.countByType("SP-7-1-abcd1234", models.PaymentEventWebhookReceived))
	assert.Equal(t, 1, env.logs.countByType("SP-7-1-abcd1234", models.PaymentEventStatusUpdated))
	assert.Equal(t, 1, env.logs.countByType("SP-7-1-abcd1234", models.PaymentEventCompleted))
}

func TestIngestWebhookRetryRepairsFailedCascade(t *testing.T) {
	env := newTestEnv()
	seedPendingPayment(env, "SP-7-1-abcd1234")
	body := env.signedITN("SP-7-1-abcd1234", "COMPLETE", "517.50")

	// First delivery: transition persists, cascade dies. The non-2xx reply
	// makes the provider retry.
	env.entries.failMarkPaidOnce = true
	_, err := env.svc.IngestWebhook(WebhookInput{RawBody: body, SourceIP: "197.97.145.144"})
	require.Error(t, err)

	payment, err := env.payments.GetByPaymentID("SP-7-1-abcd1234")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
	firstPaidAt := *payment.PaidAt

	entry, err := env.entries.GetByID(1)
	require.NoError(t, err)
	assert.Equal(t, models.EntryPaymentPending, entry.PaymentStatus)
	assert.False(t, entry.Approved)

	// Retry: the guarded transition is a no-op, but the identical terminal
	// values are re-applied so the entry catches up.
	env.now = env.now.Add(10 * time.Minute)
	result, err := env.svc.IngestWebhook(WebhookInput{RawBody: body, SourceIP: "197.97.145.144"})
	require.NoError(t, err)
	assert.True(t, result.Duplicate)
	assert.Equal(t, models.PaymentStatusCompleted, result.Status)

	entry, err = env.entries.GetByID(1)
	require.NoError(t, err)
	assert.Equal(t, models.EntryPaymentPaid, entry.PaymentStatus)
	assert.True(t, entry.Approved)
	require.NotNil(t, entry.ApprovedAt)
	assert.Equal(t, firstPaidAt, *entry.ApprovedAt, "approval reuses the stored paid_at")

	// A re-delivered notification with a different status must not cascade.
	failedBody := env.signedITN("SP-7-1-abcd1234", "FAILED", "517.50")
	result, err = env.svc.IngestWebhook(WebhookInput{RawBody: failedBody, SourceIP: "197.97.145.144"})
	require.NoError(t, err)
	assert.True(t, result.Duplicate)
	entry, err = env.entries.GetByID(1)
	require.NoError(t, err)
	assert.Equal(t, models.EntryPaymentPaid, entry.PaymentStatus)
}

func TestIngestWebhookTamperedSignature(t *testing.T) {
	env := newTestEnv()
	seedPendingPayment(env, "SP-7-1-abcd1234")

	body := env.signedITN("SP-7-1-abcd1234", "COMPLETE", "517.50")
	tampered := []byte(strings.Replace(string(body), "amount_gross=517.50", "amount_gross=1.00", 1))

	_, err := env.svc.IngestWebhook(WebhookInput{RawBody: tampered, SourceIP: "197.97.145.144"})
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	// No state change, and the rejection is in the audit trail.
	payment, err := env.payments.GetByPaymentID("SP-7-1-abcd1234")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	entry, err := env.entries.GetByID(1)
	require.NoError(t, err)
	assert.Equal(t, models.EntryPaymentPending, entry.PaymentStatus)
	assert.False(t, entry.Approved)
	assert.Equal(t, 1, env.logs.countByType("SP-7-1-abcd1234", models.PaymentEventVerificationFailed))
	assert.Equal(t, 0, env.logs.countByType("SP-7-1-abcd1234", models.PaymentEventWebhookReceived))
}

func TestIngestWebhookForbiddenOrigin(t *testing.T) {
	env := newTestEnv()
	env.client.Sandbox = false
	seedPendingPayment(env, "SP-7-1-abcd1234")
	body := env.signedITN("SP-7-1-abcd1234", "COMPLETE", "517.50")

	_, err := env.svc.IngestWebhook(WebhookInput{RawBody: body, SourceIP: "203.0.113.50"})
	if !errors.Is(err, ErrForbiddenOrigin) {
		t.Fatalf("expected ErrForbiddenOrigin, got %v", err)
	}

	// Allow-listed addresses pass in live mode.
	_, err = env.svc.IngestWebhook(WebhookInput{RawBody: body, SourceIP: "41.74.179.99"})
	require.NoError(t, err)
}

func TestIngestWebhookSandboxBypassesOriginCheck(t *testing.T) {
	env := newTestEnv()
	seedPendingPayment(env, "SP-7-1-abcd1234")
	body := env.signedITN("SP-7-1-abcd1234", "COMPLETE", "517.50")

	_, err := env.svc.IngestWebhook(WebhookInput{RawBody: body, SourceIP: "203.0.113.50"})
	require.NoError(t, err)
}

func TestIngestWebhookFailedStatus(t *testing.T) {
	env := newTestEnv()
	seedPendingPayment(env, "SP-7-1-abcd1234")

	result, err := env.svc.IngestWebhook(WebhookInput{
		RawBody:  env.signedITN("SP-7-1-abcd1234", "FAILED", "517.50"),
		SourceIP: "197.97.145.144",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, result.Status)

	payment, err := env.payments.GetByPaymentID("SP-7-1-abcd1234")
	require.NoError(t, err)
	assert.Nil(t, payment.PaidAt, "paid_at only set on completion")

	entry, err := env.entries.GetByID(1)
	require.NoError(t, err)
	assert.Equal(t, models.EntryPaymentFailed, entry.PaymentStatus)
	assert.False(t, entry.Approved, "failure cascade must not touch approval")
	assert.Equal(t, 1, env.logs.countByType("SP-7-1-abcd1234", models.PaymentEventFailed))
}

func TestIngestWebhookCancelledStatus(t *testing.T) {
	env := newTestEnv()
	seedPendingPayment(env, "SP-7-1-abcd1234")

	result, err := env.svc.IngestWebhook(WebhookInput{
		RawBody:  env.signedITN("SP-7-1-abcd1234", "CANCELLED", "517.50"),
		SourceIP: "197.97.145.144",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCancelled, result.Status)
	assert.Equal(t, 1, env.logs.countByType("SP-7-1-abcd1234", models.PaymentEventCancelled))
}

func TestIngestWebhookUnknownPayment(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.IngestWebhook(WebhookInput{
		RawBody:  env.signedITN("SP-9-9-missing", "COMPLETE", "100.00"),
		SourceIP: "197.97.145.144",
	})
	if !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("expected ErrPaymentNotFound, got %v", err)
	}
}

func TestIngestWebhookBadPayloads(t *testing.T) {
	env := newTestEnv()

	for _, raw := range []string{
		"",
		"payment_status=COMPLETE&signature=cafe", // missing m_payment_id
		"m_payment_id=SP-1&signature=cafe",       // missing payment_status
		"m_payment_id=SP-1&payment_status=COMPLETE", // missing signature
		"m_payment_id=SP-1&payment_status=MAYBE&signature=cafe",
	} {
		if _, err := env.svc.IngestWebhook(WebhookInput{RawBody: []byte(raw), SourceIP: "197.97.145.144"}); !errors.Is(err, ErrBadNotification) {
			t.Fatalf("expected ErrBadNotification for %q, got %v", raw, err)
		}
	}
}

func TestMapProviderStatus(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: payfast.StatusComplete, want: models.PaymentStatusCompleted},
		{in: payfast.StatusFailed, want: models.PaymentStatusFailed},
		{in: payfast.StatusCancelled, want: models.PaymentStatusCancelled},
		{in: "PENDING", want: models.PaymentStatusProcessing},
	}
	for _, tt := range tests {
		if got := mapProviderStatus(tt.in); got != tt.want {
			t.Fatalf("mapProviderStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
