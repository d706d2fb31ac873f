package entities

import (
	"time"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/tiers"
)

// Eligibility describes the ballot window and the lowest tier allowed to vote.
// Zero values mean unbounded and open to every tier.
type Eligibility struct {
	OpensAt     time.Time
	ClosesAt    time.Time
	MinimumTier tiers.Level
}

// Reservation occupies the (ballot, pseudonym) slot for an issued token.
type Reservation struct {
	BallotID           string
	AnonymizedIdentity string
	TokenID            string
	ExpiresAt          time.Time
	Committed          bool
	CreatedAt          time.Time
}

// Blocks reports whether the reservation still prevents a new token at now.
// A committed reservation means the ledger accepted the vote, so it blocks
// permanently; an uncommitted one blocks only until its token expires.
func (r Reservation) Blocks(now time.Time) bool {
	return r.Committed || !now.After(r.ExpiresAt)
}

func SlotKey(ballotID string, anonymizedIdentity string) string {
	return ballotID + "|" + anonymizedIdentity
}
