package payfast

import (
	"strings"

	"github.com/RuanOosthuizen/StagePass/internal/pkg/env"
)

const (
	liveProcessURL    = "https://www.payfast.co.za/eng/process"
	sandboxProcessURL = "https://sandbox.payfast.co.za/eng/process"
)

// Client holds the merchant credentials and URL templates for building
// signed payment requests.
type Client struct {
	MerchantID  string
	MerchantKey string
	Passphrase  string
	Sandbox     bool

	ReturnURL string
	CancelURL string
	NotifyURL string
}

// NewClientFromEnv builds a Client from the PAYFAST_* environment variables.
// The return/cancel/notify URLs default to routes on PUBLIC_DOMAIN.
func NewClientFromEnv() *Client {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")

	returnURL := strings.TrimSpace(env.GetEnv("PAYFAST_RETURN_URL", ""))
	if returnURL == "" && base != "" {
		returnURL = base + "/payments/return"
	}
	cancelURL := strings.TrimSpace(env.GetEnv("PAYFAST_CANCEL_URL", ""))
	if cancelURL == "" && base != "" {
		cancelURL = base + "/payments/cancel"
	}
	notifyURL := strings.TrimSpace(env.GetEnv("PAYFAST_NOTIFY_URL", ""))
	if notifyURL == "" && base != "" {
		notifyURL = base + "/payments/webhook"
	}

	return &Client{
		MerchantID:  strings.TrimSpace(env.GetEnv("PAYFAST_MERCHANT_ID", "")),
		MerchantKey: strings.TrimSpace(env.GetEnv("PAYFAST_MERCHANT_KEY", "")),
		Passphrase:  strings.TrimSpace(env.GetEnv("PAYFAST_PASSPHRASE", "")),
		Sandbox:     env.GetEnv("PAYFAST_SANDBOX", "true") == "true",
		ReturnURL:   returnURL,
		CancelURL:   cancelURL,
		NotifyURL:   notifyURL,
	}
}

// ProcessURL returns the endpoint the payer's browser must POST the signed
// fields to.
func (c *Client) ProcessURL() string {
	if c.Sandbox {
		return sandboxProcessURL
	}
	return liveProcessURL
}

// PaymentRequest carries everything needed to build a signed redirect payload.
type PaymentRequest struct {
	PaymentID       string
	Amount          string
	ItemName        string
	ItemDescription string
	PayerFirstName  string
	PayerLastName   string
	PayerEmail      string
}

// BuildPaymentFields assembles the ordered provider payload and appends the
// computed signature as the final field. Field order matters: the provider
// recomputes the signature over the fields exactly as submitted.
func (c *Client) BuildPaymentFields(req PaymentRequest) []Field {
	fields := []Field{
		{Key: "merchant_id", Value: c.MerchantID},
		{Key: "merchant_key", Value: c.MerchantKey},
		{Key: "return_url", Value: c.ReturnURL},
		{Key: "cancel_url", Value: c.CancelURL},
		{Key: "notify_url", Value: c.NotifyURL},
		{Key: "name_first", Value: req.PayerFirstName},
		{Key: "name_last", Value: req.PayerLastName},
		{Key: "email_address", Value: req.PayerEmail},
		{Key: "m_payment_id", Value: req.PaymentID},
		{Key: "amount", Value: req.Amount},
		{Key: "item_name", Value: req.ItemName},
		{Key: "item_description", Value: req.ItemDescription},
	}
	return append(fields, Field{Key: "signature", Value: Sign(fields, c.Passphrase)})
}
