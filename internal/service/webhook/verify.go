package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifySignature checks a GitHub-style signature header against the HMAC of
// the payload. The payload must be the raw request body exactly as received;
// hashing a re-serialized JSON document breaks signatures from well-behaved
// senders. Empty payload, header or secret fails closed. The length check is a
// pre-check on the header shape, not a branch on secret-derived bytes; the
// comparison itself is constant-time.
func VerifySignature(payload []byte, signatureHeader, secret string) bool {
	if len(payload) == 0 || signatureHeader == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	if len(signatureHeader) != len(expected) {
		return false
	}
	return hmac.Equal([]byte(signatureHeader), []byte(expected))
}
