package commands

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/vote-issuance/application"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/vote-issuance/domain/entities"
	domainerrors "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/vote-issuance/domain/errors"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/vote-issuance/ports"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/events"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/failures"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/keylock"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/outbox"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/tiers"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/votetoken"
)

const (
	sourceService  = "civic-ballot/vote-issuance"
	maxBallotIDLen = 128
)

// IssueCommand is the write-model input for a ballot submission.
type IssueCommand struct {
	BallotID       string
	IdentityDigest string
	Ciphertext     string
	Eligibility    entities.Eligibility
}

type IssueResult struct {
	Token votetoken.Token
	Tier  tiers.Level
}

// IssueUseCase issues signed, weighted, time-bound vote tokens and enforces
// one live token per (ballot, pseudonym).
type IssueUseCase struct {
	Registry   ports.ReservationRegistry
	Outbox     ports.Outbox
	Resolver   ports.WeightResolver
	Signer     votetoken.Signer
	Anonymizer *votetoken.Anonymizer
	Locks      *keylock.Locker
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	TokenTTL   time.Duration
	Observer   ports.Observer
	Logger     *slog.Logger
}

// Issue validates, claims the slot, signs and queues a token. Failures are
// typed: invalid_payload, duplicate_vote (with the existing token id),
// expired_ballot, access_denied for tier gating, processing_error otherwise.
func (uc IssueUseCase) Issue(ctx context.Context, cmd IssueCommand) (IssueResult, error) {
	result, err := uc.issue(ctx, cmd)
	kind := "issued"
	if err != nil {
		kind = string(failures.KindOf(err))
	}
	if uc.Observer != nil {
		uc.Observer.ObserveIssue(kind)
	}
	return result, err
}

func (uc IssueUseCase) issue(ctx context.Context, cmd IssueCommand) (IssueResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	if err := uc.configured(); err != nil {
		return IssueResult{}, failures.Processing("issue token", err)
	}

	ballotID := strings.TrimSpace(cmd.BallotID)
	identity := strings.TrimSpace(cmd.IdentityDigest)
	if err := validateCommand(ballotID, identity, cmd.Ciphertext); err != nil {
		logger.Warn("vote token validation failed",
			"event", "issuance_validation_failed",
			"module", "civic-ballot/vote-issuance",
			"layer", "application",
			"ballot_id", ballotID,
			"error", err.Error(),
		)
		return IssueResult{}, err
	}

	now := votetoken.NormalizeTime(uc.Clock.Now())
	if err := checkWindow(ballotID, cmd.Eligibility, now); err != nil {
		return IssueResult{}, err
	}

	// Resolved before taking the slot lock; the resolver may call out.
	level, weight, err := uc.Resolver.ResolveTierWeight(ctx, identity)
	if err != nil {
		return IssueResult{}, failures.Processing("resolve weight", err)
	}
	if cmd.Eligibility.MinimumTier != "" && !level.AtLeast(cmd.Eligibility.MinimumTier) {
		return IssueResult{}, &failures.AccessDeniedError{Subject: "ballot " + ballotID, Required: "tier " + string(cmd.Eligibility.MinimumTier)}
	}
	if !tiers.ValidWeight(weight) {
		return IssueResult{}, failures.Invalid("weight", "resolved weight outside (0, 5]")
	}

	anonymized := uc.Anonymizer.Anonymize(ballotID, identity)
	unlock := uc.Locks.Lock(entities.SlotKey(ballotID, anonymized))
	defer unlock()

	tokenID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return IssueResult{}, failures.Processing("generate token id", err)
	}
	expiresAt := now.Add(uc.ttl())

	existing, claimed, err := uc.Registry.Claim(ctx, entities.Reservation{
		BallotID:           ballotID,
		AnonymizedIdentity: anonymized,
		TokenID:            tokenID,
		ExpiresAt:          expiresAt,
		CreatedAt:          now,
	}, now)
	if err != nil {
		return IssueResult{}, failures.Processing("claim reservation", err)
	}
	if !claimed {
		logger.Info("duplicate vote rejected",
			"event", "issuance_duplicate_rejected",
			"module", "civic-ballot/vote-issuance",
			"layer", "application",
			"ballot_id", ballotID,
			"anonymized_identity", anonymized,
			"existing_token_id", existing.TokenID,
		)
		return IssueResult{}, &failures.DuplicateError{ExistingID: existing.TokenID}
	}

	token, err := votetoken.SignToken(uc.Signer, votetoken.Token{
		TokenID:            tokenID,
		BallotID:           ballotID,
		AnonymizedIdentity: anonymized,
		Ciphertext:         cmd.Ciphertext,
		Weight:             weight,
		IssuedAt:           now,
		ExpiresAt:          expiresAt,
	})
	if err != nil {
		uc.release(ctx, ballotID, anonymized, tokenID)
		return IssueResult{}, err
	}

	if err := uc.enqueue(ctx, token, now); err != nil {
		uc.release(ctx, ballotID, anonymized, tokenID)
		logger.Error("vote token enqueue failed",
			"event", "issuance_enqueue_failed",
			"module", "civic-ballot/vote-issuance",
			"layer", "application",
			"ballot_id", ballotID,
			"token_id", tokenID,
			"error", err.Error(),
		)
		return IssueResult{}, failures.Processing("enqueue token", err)
	}

	logger.Info("vote token issued",
		"event", "issuance_token_issued",
		"module", "civic-ballot/vote-issuance",
		"layer", "application",
		"ballot_id", ballotID,
		"token_id", tokenID,
		"anonymized_identity", anonymized,
		"tier", string(level),
		"weight", weight,
		"expires_at", expiresAt.Format(time.RFC3339Nano),
	)
	return IssueResult{Token: token, Tier: level}, nil
}

func (uc IssueUseCase) enqueue(ctx context.Context, token votetoken.Token, now time.Time) error {
	envelope, err := events.NewEnvelope(
		token.TokenID,
		events.TypeVoteTokenIssued,
		sourceService,
		token.BallotID,
		now,
		token,
	)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, outbox.Message{
		ID:        token.TokenID,
		EventType: events.TypeVoteTokenIssued,
		Payload:   payload,
		Status:    outbox.StatusPending,
		CreatedAt: now,
	})
}

func (uc IssueUseCase) release(ctx context.Context, ballotID string, anonymized string, tokenID string) {
	if err := uc.Registry.Release(ctx, ballotID, anonymized, tokenID); err != nil {
		application.ResolveLogger(uc.Logger).Error("reservation release failed",
			"event", "issuance_release_failed",
			"module", "civic-ballot/vote-issuance",
			"layer", "application",
			"ballot_id", ballotID,
			"token_id", tokenID,
			"error", err.Error(),
		)
	}
}

func (uc IssueUseCase) configured() error {
	if uc.Registry == nil || uc.Outbox == nil || uc.Resolver == nil || uc.Signer == nil ||
		uc.Anonymizer == nil || uc.Locks == nil || uc.Clock == nil || uc.IDGen == nil {
		return domainerrors.ErrMisconfigured
	}
	return nil
}

func (uc IssueUseCase) ttl() time.Duration {
	if uc.TokenTTL <= 0 {
		return votetoken.DefaultTTL
	}
	return uc.TokenTTL
}

func validateCommand(ballotID string, identity string, ciphertext string) error {
	switch {
	case ballotID == "":
		return failures.Invalid("ballot_id", "is required")
	case len(ballotID) > maxBallotIDLen:
		return failures.Invalid("ballot_id", "is too long")
	case strings.ContainsAny(ballotID, "|\n\r"):
		return failures.Invalid("ballot_id", "contains reserved characters")
	case identity == "":
		return failures.Invalid("identity_digest", "is required")
	}
	return votetoken.ValidateCiphertext(ciphertext)
}

func checkWindow(ballotID string, eligibility entities.Eligibility, now time.Time) error {
	if eligibility.MinimumTier != "" && !tiers.IsValid(eligibility.MinimumTier) {
		return failures.Invalid("eligibility.minimum_tier", "unknown level")
	}
	if !eligibility.OpensAt.IsZero() && !eligibility.ClosesAt.IsZero() && !eligibility.ClosesAt.After(eligibility.OpensAt) {
		return failures.Invalid("eligibility", "closes_at must be after opens_at")
	}
	if !eligibility.OpensAt.IsZero() && now.Before(eligibility.OpensAt) {
		return failures.Invalid("eligibility", "ballot is not open yet")
	}
	if !eligibility.ClosesAt.IsZero() && !now.Before(eligibility.ClosesAt) {
		return &failures.ExpiredError{Subject: "ballot " + ballotID}
	}
	return nil
}

// IsDuplicate reports whether err is a duplicate-vote rejection and returns the
// id of the token already holding the slot.
func IsDuplicate(err error) (string, bool) {
	var dup *failures.DuplicateError
	if errors.As(err, &dup) {
		return dup.ExistingID, true
	}
	return "", false
}
