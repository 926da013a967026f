package dispatch

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignaturePrefix is prepended to the hex HMAC in the X-Webhook-Signature
// header so subscribers can identify the scheme.
const SignaturePrefix = "sha256="

// Sign computes the webhook signature for a payload:
// "sha256=" + hex(HMAC-SHA256(secret, payload)).
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return SignaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature produced by Sign using a constant-time compare.
// Used by subscribers (and the mock-endpoints binary) to authenticate
// inbound deliveries.
func Verify(payload []byte, secret, signature string) bool {
	provided, ok := strings.CutPrefix(signature, SignaturePrefix)
	if !ok {
		return false
	}

	raw, err := hex.DecodeString(provided)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), raw)
}
