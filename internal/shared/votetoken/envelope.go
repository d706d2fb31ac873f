package votetoken

import (
	"encoding/base64"
	"strings"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/failures"
)

const (
	CiphertextPrefix   = "v1:"
	MaxCiphertextBytes = 8 * 1024
)

// ValidateCiphertext checks the agreed envelope: "v1:" followed by a non-empty
// unpadded base64url body. The body itself stays opaque.
func ValidateCiphertext(ciphertext string) error {
	if ciphertext == "" {
		return failures.Invalid("ciphertext", "is required")
	}
	if len(ciphertext) > MaxCiphertextBytes {
		return failures.Invalid("ciphertext", "exceeds maximum size")
	}
	if !strings.HasPrefix(ciphertext, CiphertextPrefix) {
		return failures.Invalid("ciphertext", "unsupported envelope version")
	}
	body := strings.TrimPrefix(ciphertext, CiphertextPrefix)
	if body == "" {
		return failures.Invalid("ciphertext", "empty envelope body")
	}
	if _, err := base64.RawURLEncoding.DecodeString(body); err != nil {
		return failures.Invalid("ciphertext", "envelope body is not base64url")
	}
	return nil
}

// OpenEnvelope returns the decoded body of a valid envelope.
func OpenEnvelope(ciphertext string) ([]byte, error) {
	if err := ValidateCiphertext(ciphertext); err != nil {
		return nil, err
	}
	return base64.RawURLEncoding.DecodeString(strings.TrimPrefix(ciphertext, CiphertextPrefix))
}

// SealEnvelope wraps raw bytes in the envelope. Clients and tests use it to
// produce well-formed ciphertext.
func SealEnvelope(body []byte) string {
	return CiphertextPrefix + base64.RawURLEncoding.EncodeToString(body)
}
