package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test_secret"

func TestVerifySignature_RoundTrip(t *testing.T) {
	body := []byte(`{"type":"checkout.completed","payment_ref":"ref-1"}`)
	now := time.Now()
	header := SignatureHeader(testSecret, now, body)

	err := VerifySignature(testSecret, header, body, DefaultTolerance, now)
	require.NoError(t, err)
}

func TestVerifySignature_TamperedBody(t *testing.T) {
	body := []byte(`{"payment_ref":"ref-1"}`)
	now := time.Now()
	header := SignatureHeader(testSecret, now, body)

	err := VerifySignature(testSecret, header, []byte(`{"payment_ref":"ref-2"}`), DefaultTolerance, now)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestVerifySignature_WrongSecret(t *testing.T) {
	body := []byte(`{}`)
	now := time.Now()
	header := SignatureHeader("other_secret", now, body)

	err := VerifySignature(testSecret, header, body, DefaultTolerance, now)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestVerifySignature_StaleTimestamp(t *testing.T) {
	body := []byte(`{}`)
	signed := time.Now().Add(-10 * time.Minute)
	header := SignatureHeader(testSecret, signed, body)

	err := VerifySignature(testSecret, header, body, 5*time.Minute, time.Now())
	assert.ErrorIs(t, err, ErrSignatureExpired)
}

func TestVerifySignature_FutureTimestampWithinTolerance(t *testing.T) {
	body := []byte(`{}`)
	now := time.Now()
	header := SignatureHeader(testSecret, now.Add(2*time.Minute), body)

	// Small clock skew in either direction is fine.
	err := VerifySignature(testSecret, header, body, 5*time.Minute, now)
	require.NoError(t, err)
}

func TestVerifySignature_MalformedHeaders(t *testing.T) {
	body := []byte(`{}`)
	now := time.Now()
	for _, header := range []string{
		"",
		"garbage",
		"t=123",
		"v1=abcdef",
		"t=notanumber,v1=abcdef",
	} {
		err := VerifySignature(testSecret, header, body, DefaultTolerance, now)
		assert.ErrorIs(t, err, ErrBadSignatureHeader, "header %q", header)
	}
}

func TestParseEvent(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"type":"checkout.completed","payment_ref":"ref-9","amount_cents":1299,"session_id":"sess_2"}`))
	require.NoError(t, err)
	assert.Equal(t, EventCheckoutCompleted, ev.Type)
	assert.Equal(t, "ref-9", ev.Reference)
	assert.Equal(t, uint64(1299), ev.AmountCents)
	assert.Equal(t, "sess_2", ev.SessionID)

	_, err = ParseEvent([]byte(`not json`))
	assert.Error(t, err)

	_, err = ParseEvent([]byte(`{"payment_ref":"ref-9"}`))
	assert.Error(t, err)
}
