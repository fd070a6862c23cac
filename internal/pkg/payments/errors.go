package payments

import "errors"

// Typed failures surfaced to the HTTP layer. Controllers map these onto
// status codes; everything else is a persistence failure (500).
var (
	ErrEventNotFound       = errors.New("event not found")
	ErrEntryNotFound       = errors.New("entry not found")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrPaymentNotRequired  = errors.New("event does not require payment")
	ErrAlreadyPaid         = errors.New("entry is already paid")
	ErrForbiddenOrigin     = errors.New("notification origin not allow-listed")
	ErrInvalidSignature    = errors.New("notification signature mismatch")
	ErrBadNotification     = errors.New("notification payload invalid")
	ErrPaymentNotCompleted = errors.New("payment is not completed")
	ErrNoEntrySpecs        = errors.New("no entry specifications supplied")
	ErrReconcileInProgress = errors.New("reconciliation already in progress for this payment")
)
