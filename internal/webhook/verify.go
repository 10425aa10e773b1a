package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignaturePrefix is the scheme tag GitHub prepends to the hex digest
const SignaturePrefix = "sha256="

// Sign computes the signature header value for a payload under the shared
// secret. Exported so tests and tooling can produce valid headers.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return SignaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature proves possession of secret for
// the given payload. The comparison is constant-time so signature guessing
// gains nothing from response timing. An empty signature or secret never
// verifies; the caller decides whether an unconfigured secret means
// verification is skipped entirely.
func VerifySignature(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	expected := Sign(body, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
