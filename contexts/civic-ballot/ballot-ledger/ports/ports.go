package ports

import (
	"context"
	"time"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/domain/entities"
)

// LogStore is the durable append-only log behind the ledger. Append must
// refuse a position that already exists.
type LogStore interface {
	Append(ctx context.Context, entry entities.LedgerEntry) error
	LoadAll(ctx context.Context) ([]entities.LedgerEntry, error)
	SetActive(ctx context.Context, position int64, active bool, reason string) error
	RecordRejection(ctx context.Context, rejection entities.Rejection) error
	LoadRejections(ctx context.Context) ([]entities.Rejection, error)
	// Reset wipes the log. Only reachable through the admin clear path.
	Reset(ctx context.Context) error
}

// ChoiceResolver maps a token ciphertext to a choice label for tallying.
type ChoiceResolver interface {
	ResolveChoice(ctx context.Context, ciphertext string) (string, error)
}

type Clock interface {
	Now() time.Time
}

// Observer receives ledger measurements. A nil Observer disables them.
type Observer interface {
	ObserveRecord(outcome string)
	ObserveEntries(total int)
	ObserveAdmin(action string, allowed bool)
}
