package webhook

import (
	"strings"
	"testing"
)

func TestVerifySignatureRoundTrip(t *testing.T) {
	body := []byte(`{"action":"opened"}`)
	secret := "test-secret"

	signature := Sign(body, secret)
	if !strings.HasPrefix(signature, SignaturePrefix) {
		t.Errorf("Expected signature prefixed with %s, got %s", SignaturePrefix, signature)
	}

	if !VerifySignature(body, signature, secret) {
		t.Error("Expected valid signature to verify")
	}
}

func TestVerifySignatureWrongSecret(t *testing.T) {
	body := []byte(`{"action":"opened"}`)
	signature := Sign(body, "right-secret")

	if VerifySignature(body, signature, "wrong-secret") {
		t.Error("Expected signature under a different secret to fail")
	}
}

func TestVerifySignatureTamperedBody(t *testing.T) {
	body := []byte(`{"action":"opened"}`)
	secret := "test-secret"
	signature := Sign(body, secret)

	tampered := []byte(`{"action":"closed"}`)
	if VerifySignature(tampered, signature, secret) {
		t.Error("Expected signature over a different body to fail")
	}
}

func TestVerifySignatureTamperedDigest(t *testing.T) {
	body := []byte(`{"action":"opened"}`)
	secret := "test-secret"
	signature := Sign(body, secret)

	// Flip the last hex character
	flipped := []byte(signature)
	if flipped[len(flipped)-1] == 'a' {
		flipped[len(flipped)-1] = 'b'
	} else {
		flipped[len(flipped)-1] = 'a'
	}
	if VerifySignature(body, string(flipped), secret) {
		t.Error("Expected a one-character digest change to fail")
	}
}

func TestVerifySignatureEmptyInputs(t *testing.T) {
	body := []byte("payload")

	if VerifySignature(body, "", "secret") {
		t.Error("Expected empty signature to fail")
	}
	if VerifySignature(body, Sign(body, "secret"), "") {
		t.Error("Expected empty secret to fail")
	}
	if VerifySignature(body, "not-a-signature", "secret") {
		t.Error("Expected malformed signature to fail")
	}
}
