package payfast

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"net/url"
	"strings"
)

// Field is one (key, value) pair of a provider payload. PayFast signs fields
// in the order they were constructed, so payloads are ordered slices rather
// than maps.
type Field struct {
	Key   string
	Value string
}

// FieldValue returns the value for key, or "" when absent.
func FieldValue(fields []Field, key string) string {
	for _, f := range fields {
		if f.Key == key {
			return f.Value
		}
	}
	return ""
}

// encodeValue applies PayFast's parameter encoding: trimmed, URL-encoded,
// spaces as '+'.
func encodeValue(v string) string {
	return url.QueryEscape(strings.TrimSpace(v))
}

// Sign computes the MD5 signature over the fields in their given order.
// Empty values and any pre-existing signature field are skipped; the
// passphrase, when configured, is appended last.
func Sign(fields []Field, passphrase string) string {
	var b strings.Builder
	for _, f := range fields {
		if f.Key == "signature" || f.Value == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(f.Key)
		b.WriteByte('=')
		b.WriteString(encodeValue(f.Value))
	}
	if pass := strings.TrimSpace(passphrase); pass != "" {
		b.WriteString("&passphrase=")
		b.WriteString(encodeValue(pass))
	}

	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// VerifySignature recomputes the signature over the received fields and
// compares it against the received value. The upstream protocol does not
// require constant-time comparison but it costs nothing here.
func VerifySignature(fields []Field, received, passphrase string) bool {
	want := Sign(fields, passphrase)
	got := strings.ToLower(strings.TrimSpace(received))
	if len(got) != len(want) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}
