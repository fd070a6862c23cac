package payfast

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/RuanOosthuizen/StagePass/internal/pkg/env"
)

// Provider payment_status values carried by an ITN.
const (
	StatusComplete  = "COMPLETE"
	StatusFailed    = "FAILED"
	StatusCancelled = "CANCELLED"
)

var (
	ErrMissingField  = errors.New("itn payload missing required field")
	ErrUnknownStatus = errors.New("itn payload has unrecognized payment_status")
)

// Notification is the typed view of an ITN (Instant Transaction Notification)
// payload. Unrecognized form fields are ignored for forward compatibility.
type Notification struct {
	PaymentID         string // m_payment_id, our own id echoed back
	ProviderPaymentID string // pf_payment_id
	PaymentStatus     string // one of the Status* constants
	ItemName          string
	ItemDescription   string
	AmountGross       string
	AmountFee         string
	AmountNet         string
	EmailAddress      string
	MerchantID        string
	Signature         string
}

// ParseITNBody splits a raw form-encoded ITN body into ordered fields. The
// order is preserved because the signature is computed over the fields as
// they arrived, not sorted.
func ParseITNBody(raw []byte) ([]Field, error) {
	body := strings.TrimSpace(string(raw))
	if body == "" {
		return nil, errors.New("empty itn body")
	}

	parts := strings.Split(body, "&")
	fields := make([]Field, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		decodedKey, err := url.QueryUnescape(key)
		if err != nil {
			return nil, fmt.Errorf("malformed itn key %q: %w", key, err)
		}
		decodedValue, err := url.QueryUnescape(value)
		if err != nil {
			return nil, fmt.Errorf("malformed itn value for %q: %w", decodedKey, err)
		}
		fields = append(fields, Field{Key: decodedKey, Value: decodedValue})
	}
	return fields, nil
}

// NotificationFromFields builds the typed record from ordered ITN fields.
// m_payment_id, payment_status and signature are required; payment_status
// must be one of the closed provider enum values.
func NotificationFromFields(fields []Field) (*Notification, error) {
	n := &Notification{}
	for _, f := range fields {
		switch f.Key {
		case "m_payment_id":
			n.PaymentID = strings.TrimSpace(f.Value)
		case "pf_payment_id":
			n.ProviderPaymentID = strings.TrimSpace(f.Value)
		case "payment_status":
			n.PaymentStatus = strings.ToUpper(strings.TrimSpace(f.Value))
		case "item_name":
			n.ItemName = f.Value
		case "item_description":
			n.ItemDescription = f.Value
		case "amount_gross":
			n.AmountGross = strings.TrimSpace(f.Value)
		case "amount_fee":
			n.AmountFee = strings.TrimSpace(f.Value)
		case "amount_net":
			n.AmountNet = strings.TrimSpace(f.Value)
		case "email_address":
			n.EmailAddress = strings.TrimSpace(f.Value)
		case "merchant_id":
			n.MerchantID = strings.TrimSpace(f.Value)
		case "signature":
			n.Signature = strings.TrimSpace(f.Value)
		}
	}

	if n.PaymentID == "" {
		return nil, fmt.Errorf("%w: m_payment_id", ErrMissingField)
	}
	if n.PaymentStatus == "" {
		return nil, fmt.Errorf("%w: payment_status", ErrMissingField)
	}
	if n.Signature == "" {
		return nil, fmt.Errorf("%w: signature", ErrMissingField)
	}
	switch n.PaymentStatus {
	case StatusComplete, StatusFailed, StatusCancelled:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, n.PaymentStatus)
	}
	return n, nil
}

// AllowList holds the provider egress addresses that may deliver ITNs.
type AllowList struct {
	ips  []net.IP
	nets []*net.IPNet
}

// NewAllowListFromEnv parses PAYFAST_VALID_IPS, a comma-separated list of
// addresses and CIDR ranges.
func NewAllowListFromEnv() *AllowList {
	return ParseAllowList(env.GetEnv("PAYFAST_VALID_IPS", ""))
}

// ParseAllowList parses a comma-separated list of IPs and CIDRs. Invalid
// entries are skipped.
func ParseAllowList(csv string) *AllowList {
	list := &AllowList{}
	for _, entry := range strings.Split(csv, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			if _, network, err := net.ParseCIDR(entry); err == nil {
				list.nets = append(list.nets, network)
			}
			continue
		}
		if ip := net.ParseIP(entry); ip != nil {
			list.ips = append(list.ips, ip)
		}
	}
	return list
}

// Contains reports whether addr is an allow-listed provider address.
func (l *AllowList) Contains(addr string) bool {
	ip := net.ParseIP(strings.TrimSpace(addr))
	if ip == nil {
		return false
	}
	for _, allowed := range l.ips {
		if allowed.Equal(ip) {
			return true
		}
	}
	for _, network := range l.nets {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// Empty reports whether the allow-list has no entries.
func (l *AllowList) Empty() bool {
	return len(l.ips) == 0 && len(l.nets) == 0
}
