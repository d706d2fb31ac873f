package ports

import (
	"context"
	"time"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-trust/reputation-engine/domain/entities"
)

// CredentialSource is one named provider of credential history. Sources fail
// independently; the engine skips a failing source.
type CredentialSource interface {
	Name() string
	Fetch(ctx context.Context, identity string) ([]entities.CredentialEntry, error)
}

// TierLookup is an externally supplied tier oracle. Its answers are untrusted
// strings and are validated against the known levels before use.
type TierLookup interface {
	LookupTier(ctx context.Context, identity string) (string, bool, error)
}

type Clock interface {
	Now() time.Time
}

// Observer receives engine measurements. A nil Observer disables them.
type Observer interface {
	ObserveScoreComputed(elapsed time.Duration, skippedSources int)
	ObserveExternalTier(accepted bool)
	ObserveScoreCache(hit bool)
}
