package entities

import (
	"time"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/votetoken"
)

// LedgerEntry is a recorded token. Only Active and InactiveReason ever change.
type LedgerEntry struct {
	Position       int64
	Token          votetoken.Token
	Active         bool
	InactiveReason string
	RecordedAt     time.Time
	PrevDigest     string
	Digest         string
}

type RejectCause string

const (
	CauseDuplicateToken    RejectCause = "duplicate_token"
	CauseDuplicateIdentity RejectCause = "duplicate_identity"
	CauseExpired           RejectCause = "expired"
	CauseInvalidSignature  RejectCause = "invalid_signature"
	CauseInvalidPayload    RejectCause = "invalid_payload"
)

// Rejection is one refused Record call, kept for the audit trail.
type Rejection struct {
	TokenID  string
	BallotID string
	Cause    RejectCause
	At       time.Time
}
