package ports

import (
	"context"
	"time"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/vote-issuance/domain/entities"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/outbox"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/tiers"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/votetoken"
)

// ReservationRegistry owns the one-live-token-per-slot rule.
type ReservationRegistry interface {
	// Claim stores candidate unless a reservation for the same slot still
	// blocks at now, in which case it returns that reservation and false.
	// The check and the insert are a single atomic step.
	Claim(ctx context.Context, candidate entities.Reservation, now time.Time) (entities.Reservation, bool, error)
	Commit(ctx context.Context, ballotID string, anonymizedIdentity string, tokenID string) error
	Release(ctx context.Context, ballotID string, anonymizedIdentity string, tokenID string) error
	PruneExpired(ctx context.Context, now time.Time, limit int) (int, error)
}

type Outbox interface {
	AppendOutbox(ctx context.Context, message outbox.Message) error
	ListPendingOutbox(ctx context.Context, limit int) ([]outbox.Message, error)
	MarkOutboxAttempt(ctx context.Context, id string, lastError string) error
	SettleOutbox(ctx context.Context, id string, status outbox.Status, reason string, at time.Time) error
}

// WeightResolver supplies the caller's tier and its weight at submission time.
type WeightResolver interface {
	ResolveTierWeight(ctx context.Context, identity string) (tiers.Level, float64, error)
}

// LedgerSink appends a token to the ballot ledger. Errors carry a failure kind.
type LedgerSink interface {
	Append(ctx context.Context, token votetoken.Token) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// Observer receives issuance measurements. A nil Observer disables them.
type Observer interface {
	ObserveIssue(kind string)
	ObserveRelay(outcome string)
	ObserveSweep(pruned int)
}
