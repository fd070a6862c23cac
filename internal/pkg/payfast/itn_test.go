package payfast

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseITNBodyPreservesOrder(t *testing.T) {
	raw := []byte("m_payment_id=SP-1-2-abc&pf_payment_id=998877&payment_status=COMPLETE&item_name=Entry+Fees&amount_gross=517.50&signature=cafe")

	fields, err := ParseITNBody(raw)
	require.NoError(t, err)
	require.Len(t, fields, 6)

	assert.Equal(t, "m_payment_id", fields[0].Key)
	assert.Equal(t, "pf_payment_id", fields[1].Key)
	assert.Equal(t, "signature", fields[5].Key)
	assert.Equal(t, "Entry Fees", FieldValue(fields, "item_name"), "'+' must decode to a space")
}

func TestParseITNBodyRejectsGarbage(t *testing.T) {
	if _, err := ParseITNBody(nil); err == nil {
		t.Fatalf("expected error for empty body")
	}
	if _, err := ParseITNBody([]byte("a=%zz")); err == nil {
		t.Fatalf("expected error for malformed escape")
	}
}

func TestNotificationFromFields(t *testing.T) {
	fields := []Field{
		{Key: "m_payment_id", Value: "SP-1-2-abc"},
		{Key: "pf_payment_id", Value: "998877"},
		{Key: "payment_status", Value: "complete"},
		{Key: "amount_gross", Value: "517.50"},
		{Key: "amount_fee", Value: "-11.90"},
		{Key: "amount_net", Value: "505.60"},
		{Key: "custom_str1", Value: "ignored"},
		{Key: "signature", Value: "cafe"},
	}

	n, err := NotificationFromFields(fields)
	require.NoError(t, err)
	assert.Equal(t, "SP-1-2-abc", n.PaymentID)
	assert.Equal(t, "998877", n.ProviderPaymentID)
	assert.Equal(t, StatusComplete, n.PaymentStatus, "status is upper-cased into the closed enum")
	assert.Equal(t, "517.50", n.AmountGross)
	assert.Equal(t, "cafe", n.Signature)
}

func TestNotificationFromFieldsRequiredFields(t *testing.T) {
	complete := []Field{
		{Key: "m_payment_id", Value: "SP-1-2-abc"},
		{Key: "payment_status", Value: "COMPLETE"},
		{Key: "signature", Value: "cafe"},
	}

	for i := range complete {
		partial := make([]Field, 0, len(complete)-1)
		partial = append(partial, complete[:i]...)
		partial = append(partial, complete[i+1:]...)
		if _, err := NotificationFromFields(partial); !errors.Is(err, ErrMissingField) {
			t.Fatalf("expected ErrMissingField without %q, got %v", complete[i].Key, err)
		}
	}
}

func TestNotificationFromFieldsUnknownStatus(t *testing.T) {
	fields := []Field{
		{Key: "m_payment_id", Value: "SP-1-2-abc"},
		{Key: "payment_status", Value: "MAYBE"},
		{Key: "signature", Value: "cafe"},
	}
	if _, err := NotificationFromFields(fields); !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
}

func TestAllowList(t *testing.T) {
	list := ParseAllowList("197.97.145.144, 41.74.179.0/24, not-an-ip")

	assert.True(t, list.Contains("197.97.145.144"))
	assert.True(t, list.Contains("41.74.179.12"))
	assert.False(t, list.Contains("41.74.180.12"))
	assert.False(t, list.Contains("10.0.0.1"))
	assert.False(t, list.Contains("not-an-ip"))

	assert.True(t, ParseAllowList("").Empty())
	assert.False(t, list.Empty())
}
