package ports

import (
	"context"
	"time"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/domain/entities"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/tiers"
)

type PollRepository interface {
	CreatePoll(ctx context.Context, poll entities.Poll) error
	GetPoll(ctx context.Context, pollID string) (entities.Poll, error)
	// AppendResponse returns ErrConflict when the responder already answered.
	AppendResponse(ctx context.Context, response entities.PollResponse) error
	FindResponse(ctx context.Context, pollID string, responderHash string) (entities.PollResponse, error)
	ListResponses(ctx context.Context, pollID string) ([]entities.PollResponse, error)
}

// WeightResolver supplies a responder's tier and weight at submission time.
type WeightResolver interface {
	ResolveTierWeight(ctx context.Context, identity string) (tiers.Level, float64, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// Observer receives polling measurements. A nil Observer disables them.
type Observer interface {
	ObserveResponse(outcome string)
	ObserveAnalytics(view string, outcome string)
	ObserveInvalidResponses(count int)
}
