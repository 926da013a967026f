package dispatch

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
)

func TestSign(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		secret  string
	}{
		{
			name:    "basic payload",
			payload: []byte(`{"event":"user.created","data":{"id":"u1"}}`),
			secret:  "abc123",
		},
		{
			name:    "empty payload",
			payload: []byte(`{}`),
			secret:  "secret",
		},
		{
			name:    "unicode payload",
			payload: []byte(`{"name":"café","price":"€10"}`),
			secret:  "unicode-key-日本語",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := Sign(tt.payload, tt.secret)

			if !strings.HasPrefix(sig, "sha256=") {
				t.Fatalf("signature missing sha256= prefix: %s", sig)
			}

			decoded, err := hex.DecodeString(strings.TrimPrefix(sig, "sha256="))
			if err != nil {
				t.Fatalf("signature is not valid hex: %v", err)
			}

			// HMAC-SHA256 always produces 32 bytes (64 hex chars)
			if len(decoded) != 32 {
				t.Fatalf("expected 32 bytes, got %d", len(decoded))
			}

			// Verify against standard library
			mac := hmac.New(sha256.New, []byte(tt.secret))
			mac.Write(tt.payload)
			expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))

			if sig != expected {
				t.Errorf("signature mismatch:\n  got:  %s\n  want: %s", sig, expected)
			}
		})
	}
}

func TestSign_Deterministic(t *testing.T) {
	payload := []byte(`{"event":"test"}`)
	secret := "test-secret"

	sig1 := Sign(payload, secret)
	sig2 := Sign(payload, secret)

	if sig1 != sig2 {
		t.Error("signing should be deterministic for the same input")
	}
}

func TestSign_OneByteChangesSignature(t *testing.T) {
	secret := "my-secret"
	payload := []byte(`{"a":1}`)

	changed := append([]byte(nil), payload...)
	changed[len(changed)-2] = '2'

	if Sign(payload, secret) == Sign(changed, secret) {
		t.Error("changing one byte of the payload should change the signature")
	}
}

func TestSign_DifferentSecrets(t *testing.T) {
	payload := []byte(`{"event":"test"}`)

	sig1 := Sign(payload, "secret-1")
	sig2 := Sign(payload, "secret-2")

	if sig1 == sig2 {
		t.Error("different secrets should produce different signatures")
	}
}

func TestVerify(t *testing.T) {
	payload := []byte(`{"order_id":"abc-123"}`)
	secret := "my-webhook-secret"

	sig := Sign(payload, secret)

	if !Verify(payload, secret, sig) {
		t.Error("Verify should accept a signature produced by Sign")
	}
	if Verify(payload, "wrong-secret", sig) {
		t.Error("Verify should reject a signature made with a different secret")
	}
	if Verify([]byte(`{"order_id":"abc-124"}`), secret, sig) {
		t.Error("Verify should reject a signature over a different payload")
	}
	if Verify(payload, secret, strings.TrimPrefix(sig, "sha256=")) {
		t.Error("Verify should reject a signature without the sha256= prefix")
	}
	if Verify(payload, secret, "sha256=not-hex") {
		t.Error("Verify should reject a non-hex signature")
	}
}
