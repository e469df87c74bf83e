// Package razorpay implements the payment-provider side of the
// webhook: signature verification over the raw request body and
// extraction of the fields tollgate cares about from event payloads.
package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// SignatureHeader is the HTTP header carrying the webhook signature.
const SignatureHeader = "X-Razorpay-Signature"

// Sign computes the expected signature for a body:
// base64(HMAC-SHA256(body, secret)).
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the header value against the raw body in
// constant time. An empty configured secret rejects everything, so a
// misconfigured deployment fails closed.
func VerifySignature(body []byte, signature, secret string) bool {
	if secret == "" {
		return false
	}
	expected := Sign(body, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
