// Package payment integrates the hosted payment provider: creating checkout
// sessions on the request path and verifying the signatures of the webhook
// callbacks the provider sends back.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Webhook signatures follow the scheme used by hosted checkout providers:
// the X-Payment-Signature header carries "t=<unix>,v1=<hex>", where v1 is
// HMAC-SHA256 over "<t>.<raw body>" keyed with the shared webhook secret.
// The timestamp bounds replay: signatures older than the tolerance are
// rejected even when the MAC matches.

// DefaultTolerance is how far a webhook timestamp may lag before the
// delivery is considered a replay.
const DefaultTolerance = 5 * time.Minute

var (
	ErrBadSignatureHeader = errors.New("malformed signature header")
	ErrSignatureMismatch  = errors.New("signature mismatch")
	ErrSignatureExpired   = errors.New("signature timestamp outside tolerance")
)

// SignPayload computes the v1 signature for a timestamp and raw body.  The
// server uses it in tests; the provider uses the same construction on their
// side.
func SignPayload(secret string, ts time.Time, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts.Unix(), 10)))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureHeader renders the full header value for a timestamp and body.
func SignatureHeader(secret string, ts time.Time, body []byte) string {
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), SignPayload(secret, ts, body))
}

// VerifySignature checks a webhook delivery.  It returns nil only when the
// header parses, the MAC matches and the timestamp is within tolerance of
// now.  Constant-time comparison guards the MAC check.
func VerifySignature(secret, header string, body []byte, tolerance time.Duration, now time.Time) error {
	var (
		tsRaw string
		v1    string
	)
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			tsRaw = kv[1]
		case "v1":
			v1 = kv[1]
		}
	}
	if tsRaw == "" || v1 == "" {
		return ErrBadSignatureHeader
	}
	tsUnix, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		return ErrBadSignatureHeader
	}
	ts := time.Unix(tsUnix, 0)
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	diff := now.Sub(ts)
	if diff < 0 {
		diff = -diff
	}
	if diff > tolerance {
		return ErrSignatureExpired
	}
	expected := SignPayload(secret, ts, body)
	if !hmac.Equal([]byte(expected), []byte(v1)) {
		return ErrSignatureMismatch
	}
	return nil
}
