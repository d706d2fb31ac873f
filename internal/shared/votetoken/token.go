// Package votetoken defines the signed, weighted, time-bound token handed from
// the issuer to the ballot ledger, together with its canonical signing payload,
// the ciphertext envelope check, and per-ballot identity anonymization.
package votetoken

import (
	"encoding/binary"
	"math"
	"strings"
	"time"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/failures"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/tiers"
)

// DefaultTTL is how long an issued token stays valid for recording.
const DefaultTTL = 2 * time.Minute

type Token struct {
	TokenID            string    `json:"token_id"`
	BallotID           string    `json:"ballot_id"`
	AnonymizedIdentity string    `json:"anonymized_identity"`
	Ciphertext         string    `json:"ciphertext"`
	Weight             float64   `json:"weight"`
	IssuedAt           time.Time `json:"issued_at"`
	ExpiresAt          time.Time `json:"expires_at"`
	KeyID              string    `json:"key_id"`
	Signature          string    `json:"signature"`
}

// SigningPayload is the canonical byte form covered by the detached signature.
// Fields are length-prefixed in a fixed order and the weight is encoded by its
// IEEE-754 bits, so every token has exactly one encoding and no field can
// bleed into its neighbour.
func (t Token) SigningPayload() []byte {
	var buf []byte
	put := func(value string) {
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(value)))
		buf = append(buf, value...)
	}
	put("vote-token/v1")
	put(t.TokenID)
	put(t.BallotID)
	put(t.AnonymizedIdentity)
	put(t.Ciphertext)
	buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(t.Weight))
	buf = binary.BigEndian.AppendUint64(buf, uint64(t.IssuedAt.UTC().UnixMilli()))
	buf = binary.BigEndian.AppendUint64(buf, uint64(t.ExpiresAt.UTC().UnixMilli()))
	return buf
}

// CheckBounds validates the structural invariants every holder of a token can
// check without keys: ids present, weight in (0, MaxWeight], expiry after issue.
func (t Token) CheckBounds() error {
	switch {
	case strings.TrimSpace(t.TokenID) == "":
		return failures.Invalid("token_id", "is required")
	case strings.TrimSpace(t.BallotID) == "":
		return failures.Invalid("ballot_id", "is required")
	case strings.TrimSpace(t.AnonymizedIdentity) == "":
		return failures.Invalid("anonymized_identity", "is required")
	case !tiers.ValidWeight(t.Weight):
		return failures.Invalid("weight", "must be within (0, 5]")
	case !t.ExpiresAt.After(t.IssuedAt):
		return failures.Invalid("expires_at", "must be after issued_at")
	case strings.TrimSpace(t.Signature) == "":
		return failures.Invalid("signature", "is required")
	}
	return ValidateCiphertext(t.Ciphertext)
}

// Expired reports whether the token is no longer recordable at now. A token is
// still valid at exactly ExpiresAt.
func (t Token) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// NormalizeTime truncates to the millisecond precision carried by the signing
// payload so tokens survive storage round-trips unchanged.
func NormalizeTime(value time.Time) time.Time {
	return value.UTC().Truncate(time.Millisecond)
}
