package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	application "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/application"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/domain/entities"
	domainerrors "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/domain/errors"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/domain/services"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/ports"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/access"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/failures"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/keylock"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/tiers"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/votetoken"
)

const (
	maxPollIDLen     = 128
	maxTitleLen      = 300
	maxOptionLen     = 200
	maxCommentLength = 2000
)

type CreatePollCommand struct {
	PollID      string
	Title       string
	Options     []string
	MultiSelect bool
	Baseline    int
	ClosesAt    time.Time
}

type RecordResponseCommand struct {
	PollID         string
	IdentityDigest string
	Selected       []string
	Comment        string
}

// PollUseCase is the write side of polling: poll creation and signed,
// tier-weighted response capture.
type PollUseCase struct {
	Repo       ports.PollRepository
	Resolver   ports.WeightResolver
	Signer     votetoken.Signer
	Anonymizer *votetoken.Anonymizer
	Locks      *keylock.Locker
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	// CreatorTier is the lowest tier allowed to open a poll. Defaults to
	// moderator.
	CreatorTier tiers.Level
	Observer    ports.Observer
	Logger      *slog.Logger
}

func (uc PollUseCase) CreatePoll(ctx context.Context, capability access.Capability, cmd CreatePollCommand) (entities.Poll, error) {
	logger := application.ResolveLogger(uc.Logger)
	if err := uc.configured(); err != nil {
		return entities.Poll{}, failures.Processing("create poll", err)
	}
	if err := capability.RequireTier(uc.creatorTier()); err != nil {
		logger.Warn("poll creation denied",
			"event", "poll_create_denied",
			"module", "civic-polling/response-aggregator",
			"layer", "application",
			"subject", capability.Subject,
			"tier", string(capability.Tier),
		)
		return entities.Poll{}, err
	}

	now := uc.Clock.Now().UTC()
	poll, err := normalizePoll(cmd, now)
	if err != nil {
		return entities.Poll{}, err
	}
	if poll.PollID == "" {
		id, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return entities.Poll{}, failures.Processing("generate poll id", err)
		}
		poll.PollID = id
	}
	poll.CreatedBy = capability.Subject
	poll.CreatedAt = now

	if err := uc.Repo.CreatePoll(ctx, poll); err != nil {
		if errors.Is(err, domainerrors.ErrConflict) {
			return entities.Poll{}, failures.Invalid("poll_id", "already exists")
		}
		return entities.Poll{}, failures.Processing("create poll", err)
	}
	logger.Info("poll created",
		"event", "poll_created",
		"module", "civic-polling/response-aggregator",
		"layer", "application",
		"poll_id", poll.PollID,
		"options", len(poll.Options),
		"multi_select", poll.MultiSelect,
	)
	return poll, nil
}

// RecordResponse stores one signed response per (poll, pseudonym). The tier
// and weight are resolved now and frozen on the response.
func (uc PollUseCase) RecordResponse(ctx context.Context, cmd RecordResponseCommand) (entities.PollResponse, error) {
	response, err := uc.recordResponse(ctx, cmd)
	outcome := "recorded"
	if err != nil {
		outcome = string(failures.KindOf(err))
	}
	if uc.Observer != nil {
		uc.Observer.ObserveResponse(outcome)
	}
	return response, err
}

func (uc PollUseCase) recordResponse(ctx context.Context, cmd RecordResponseCommand) (entities.PollResponse, error) {
	logger := application.ResolveLogger(uc.Logger)
	if err := uc.configured(); err != nil {
		return entities.PollResponse{}, failures.Processing("record response", err)
	}

	pollID := strings.TrimSpace(cmd.PollID)
	identity := strings.TrimSpace(cmd.IdentityDigest)
	switch {
	case pollID == "":
		return entities.PollResponse{}, failures.Invalid("poll_id", "is required")
	case identity == "":
		return entities.PollResponse{}, failures.Invalid("identity_digest", "is required")
	case utf8.RuneCountInString(cmd.Comment) > maxCommentLength:
		return entities.PollResponse{}, failures.Invalid("comment", "is too long")
	}

	poll, err := uc.Repo.GetPoll(ctx, pollID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return entities.PollResponse{}, err
		}
		return entities.PollResponse{}, failures.Processing("load poll", err)
	}
	now := uc.Clock.Now().UTC()
	if poll.Closed(now) {
		return entities.PollResponse{}, &failures.ExpiredError{Subject: "poll " + pollID}
	}
	selected, err := validateSelection(poll, cmd.Selected)
	if err != nil {
		return entities.PollResponse{}, err
	}

	level, weight, err := uc.Resolver.ResolveTierWeight(ctx, identity)
	if err != nil {
		return entities.PollResponse{}, failures.Processing("resolve weight", err)
	}
	if !tiers.ValidWeight(weight) {
		return entities.PollResponse{}, failures.Invalid("weight", "resolved weight outside (0, 5]")
	}

	responderHash := uc.Anonymizer.Anonymize("poll:"+pollID, identity)
	unlock := uc.Locks.Lock(pollID + "|" + responderHash)
	defer unlock()

	if existing, err := uc.Repo.FindResponse(ctx, pollID, responderHash); err == nil {
		return entities.PollResponse{}, &failures.DuplicateError{ExistingID: existing.ResponseID}
	} else if !errors.Is(err, domainerrors.ErrNotFound) {
		return entities.PollResponse{}, failures.Processing("find response", err)
	}

	responseID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.PollResponse{}, failures.Processing("generate response id", err)
	}
	response := entities.PollResponse{
		ResponseID:    responseID,
		PollID:        pollID,
		ResponderHash: responderHash,
		Tier:          level,
		Weight:        weight,
		Selected:      selected,
		Comment:       strings.TrimSpace(cmd.Comment),
		SubmittedAt:   now,
		KeyID:         uc.Signer.KeyID(),
	}
	signature, err := uc.Signer.Sign(services.SigningPayload(response))
	if err != nil {
		return entities.PollResponse{}, failures.Processing("sign response", err)
	}
	response.Signature = signature

	if err := uc.Repo.AppendResponse(ctx, response); err != nil {
		if errors.Is(err, domainerrors.ErrConflict) {
			if existing, findErr := uc.Repo.FindResponse(ctx, pollID, responderHash); findErr == nil {
				return entities.PollResponse{}, &failures.DuplicateError{ExistingID: existing.ResponseID}
			}
		}
		logger.Error("poll response append failed",
			"event", "poll_response_append_failed",
			"module", "civic-polling/response-aggregator",
			"layer", "application",
			"poll_id", pollID,
			"error", err.Error(),
		)
		return entities.PollResponse{}, failures.Processing("append response", err)
	}

	logger.Info("poll response recorded",
		"event", "poll_response_recorded",
		"module", "civic-polling/response-aggregator",
		"layer", "application",
		"poll_id", pollID,
		"response_id", responseID,
		"responder_hash", responderHash,
		"tier", string(level),
		"weight", weight,
	)
	return response, nil
}

func (uc PollUseCase) configured() error {
	if uc.Repo == nil || uc.Resolver == nil || uc.Signer == nil || uc.Anonymizer == nil ||
		uc.Locks == nil || uc.Clock == nil || uc.IDGen == nil {
		return domainerrors.ErrMisconfigured
	}
	return nil
}

func (uc PollUseCase) creatorTier() tiers.Level {
	if uc.CreatorTier == "" {
		return tiers.LevelModerator
	}
	return uc.CreatorTier
}

func normalizePoll(cmd CreatePollCommand, now time.Time) (entities.Poll, error) {
	poll := entities.Poll{
		PollID:      strings.TrimSpace(cmd.PollID),
		Title:       strings.TrimSpace(cmd.Title),
		MultiSelect: cmd.MultiSelect,
		Baseline:    cmd.Baseline,
		ClosesAt:    cmd.ClosesAt.UTC(),
	}
	switch {
	case len(poll.PollID) > maxPollIDLen:
		return entities.Poll{}, failures.Invalid("poll_id", "is too long")
	case strings.ContainsAny(poll.PollID, "|\n\r"):
		return entities.Poll{}, failures.Invalid("poll_id", "contains reserved characters")
	case poll.Title == "":
		return entities.Poll{}, failures.Invalid("title", "is required")
	case utf8.RuneCountInString(poll.Title) > maxTitleLen:
		return entities.Poll{}, failures.Invalid("title", "is too long")
	case poll.Baseline < 0:
		return entities.Poll{}, failures.Invalid("baseline", "must not be negative")
	case !cmd.ClosesAt.IsZero() && !cmd.ClosesAt.After(now):
		return entities.Poll{}, failures.Invalid("closes_at", "must be in the future")
	}
	if poll.Baseline == 0 {
		poll.Baseline = entities.DefaultBaseline
	}

	seen := make(map[string]struct{}, len(cmd.Options))
	for _, raw := range cmd.Options {
		option := strings.TrimSpace(raw)
		switch {
		case option == "":
			return entities.Poll{}, failures.Invalid("options", "must not contain empty labels")
		case utf8.RuneCountInString(option) > maxOptionLen:
			return entities.Poll{}, failures.Invalid("options", "label is too long")
		}
		if _, ok := seen[option]; ok {
			return entities.Poll{}, failures.Invalid("options", "labels must be unique")
		}
		seen[option] = struct{}{}
		poll.Options = append(poll.Options, option)
	}
	if len(poll.Options) < entities.MinOptions || len(poll.Options) > entities.MaxOptions {
		return entities.Poll{}, failures.Invalid("options", "must list between 2 and 20 labels")
	}
	return poll, nil
}

func validateSelection(poll entities.Poll, raw []string) ([]string, error) {
	selected := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, item := range raw {
		option := strings.TrimSpace(item)
		if !poll.HasOption(option) {
			return nil, failures.Invalid("selected", "unknown option "+option)
		}
		if _, ok := seen[option]; ok {
			continue
		}
		seen[option] = struct{}{}
		selected = append(selected, option)
	}
	switch {
	case len(selected) == 0:
		return nil, failures.Invalid("selected", "at least one option is required")
	case !poll.MultiSelect && len(selected) > 1:
		return nil, failures.Invalid("selected", "poll accepts a single option")
	}
	return selected, nil
}
