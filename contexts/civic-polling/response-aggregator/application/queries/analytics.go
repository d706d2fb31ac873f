package queries

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/application"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/domain/entities"
	domainerrors "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/domain/errors"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/domain/services"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/ports"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/access"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/failures"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/tiers"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/votetoken"
)

// Service answers the analytics views of a poll. Every view is gated on the
// caller's capability and only counts responses whose signature verifies.
type Service struct {
	Repo     ports.PollRepository
	Verifier votetoken.Verifier
	Lexicon  services.Lexicon
	// MinimumTier is the lowest tier allowed to read analytics. Defaults to
	// moderator.
	MinimumTier  tiers.Level
	TableVersion string
	Clock        ports.Clock
	Observer     ports.Observer
	Logger       *slog.Logger
}

func (s Service) Aggregate(ctx context.Context, capability access.Capability, pollID string) (entities.Aggregate, error) {
	poll, responses, err := s.load(ctx, capability, pollID, access.PermissionPollAnalytics, "aggregate")
	if err != nil {
		return entities.Aggregate{}, err
	}
	return services.Aggregate(poll, responses), nil
}

func (s Service) Impact(ctx context.Context, capability access.Capability, pollID string) (entities.Impact, error) {
	poll, responses, err := s.load(ctx, capability, pollID, access.PermissionPollAnalytics, "impact")
	if err != nil {
		return entities.Impact{}, err
	}
	return services.Impact(poll, responses), nil
}

func (s Service) Alignment(ctx context.Context, capability access.Capability, pollID string) (entities.Alignment, error) {
	poll, responses, err := s.load(ctx, capability, pollID, access.PermissionPollAnalytics, "alignment")
	if err != nil {
		return entities.Alignment{}, err
	}
	return services.Alignment(poll, responses), nil
}

func (s Service) Pushback(ctx context.Context, capability access.Capability, pollID string) (entities.Pushback, error) {
	poll, responses, err := s.load(ctx, capability, pollID, access.PermissionPollAnalytics, "pushback")
	if err != nil {
		return entities.Pushback{}, err
	}
	return services.Pushback(poll, responses, s.lexicon()), nil
}

// ExportReport builds every view into one report and serializes it. Polls
// with fewer than MinReportResponses valid responses are refused.
func (s Service) ExportReport(ctx context.Context, capability access.Capability, pollID string, format entities.ReportFormat) (entities.ExportedReport, error) {
	logger := application.ResolveLogger(s.Logger)
	parsed, err := services.ParseFormat(string(format))
	if err != nil {
		return entities.ExportedReport{}, failures.Invalid("format", err.Error())
	}
	poll, responses, err := s.load(ctx, capability, pollID, access.PermissionPollExport, "report")
	if err != nil {
		return entities.ExportedReport{}, err
	}
	if len(responses) < services.MinReportResponses {
		return entities.ExportedReport{}, &failures.InsufficientResponsesError{
			Have: len(responses),
			Need: services.MinReportResponses,
		}
	}

	report := entities.Report{
		Metadata: entities.ReportMetadata{
			PollID:        poll.PollID,
			Title:         poll.Title,
			ResponseCount: len(responses),
			TableVersion:  s.TableVersion,
			GeneratedAt:   s.now(),
		},
		Aggregate: services.Aggregate(poll, responses),
		Impact:    services.Impact(poll, responses),
		Alignment: services.Alignment(poll, responses),
		Pushback:  services.Pushback(poll, responses, s.lexicon()),
	}
	exported, err := services.Encode(report, parsed)
	if err != nil {
		return entities.ExportedReport{}, failures.Processing("encode report", err)
	}
	logger.Info("poll report exported",
		"event", "poll_report_exported",
		"module", "civic-polling/response-aggregator",
		"layer", "application",
		"poll_id", poll.PollID,
		"format", string(exported.Format),
		"response_count", len(responses),
		"fingerprint", exported.Fingerprint,
	)
	return exported, nil
}

func (s Service) load(ctx context.Context, capability access.Capability, pollID string, permission access.Permission, view string) (entities.Poll, []entities.PollResponse, error) {
	poll, responses, err := s.loadVerified(ctx, capability, pollID, permission)
	if s.Observer != nil {
		outcome := "ok"
		if err != nil {
			outcome = string(failures.KindOf(err))
			if errors.Is(err, domainerrors.ErrNotFound) {
				outcome = "not_found"
			}
		}
		s.Observer.ObserveAnalytics(view, outcome)
	}
	return poll, responses, err
}

func (s Service) loadVerified(ctx context.Context, capability access.Capability, pollID string, permission access.Permission) (entities.Poll, []entities.PollResponse, error) {
	logger := application.ResolveLogger(s.Logger)
	if s.Repo == nil || s.Verifier == nil {
		return entities.Poll{}, nil, failures.Processing("load poll", domainerrors.ErrMisconfigured)
	}
	if err := s.authorize(capability, permission); err != nil {
		logger.Warn("poll analytics denied",
			"event", "poll_analytics_denied",
			"module", "civic-polling/response-aggregator",
			"layer", "application",
			"subject", capability.Subject,
			"tier", string(capability.Tier),
			"permission", string(permission),
		)
		return entities.Poll{}, nil, err
	}

	pollID = strings.TrimSpace(pollID)
	if pollID == "" {
		return entities.Poll{}, nil, failures.Invalid("poll_id", "is required")
	}
	poll, err := s.Repo.GetPoll(ctx, pollID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return entities.Poll{}, nil, err
		}
		return entities.Poll{}, nil, failures.Processing("load poll", err)
	}
	stored, err := s.Repo.ListResponses(ctx, pollID)
	if err != nil {
		return entities.Poll{}, nil, failures.Processing("list responses", err)
	}

	valid := make([]entities.PollResponse, 0, len(stored))
	invalid := 0
	for _, response := range stored {
		if !s.Verifier.Verify(response.KeyID, services.SigningPayload(response), response.Signature) {
			invalid++
			continue
		}
		valid = append(valid, response)
	}
	if invalid > 0 {
		logger.Warn("poll responses failed signature check",
			"event", "poll_responses_invalid_signature",
			"module", "civic-polling/response-aggregator",
			"layer", "application",
			"poll_id", pollID,
			"invalid", invalid,
		)
		if s.Observer != nil {
			s.Observer.ObserveInvalidResponses(invalid)
		}
	}
	return poll, valid, nil
}

func (s Service) authorize(capability access.Capability, permission access.Permission) error {
	minimum := s.MinimumTier
	if minimum == "" {
		minimum = tiers.LevelModerator
	}
	if err := capability.RequireTier(minimum); err != nil {
		return err
	}
	return capability.Require(permission)
}

func (s Service) lexicon() services.Lexicon {
	if len(s.Lexicon.Terms()) == 0 {
		return services.DefaultLexicon()
	}
	return s.Lexicon
}

func (s Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}
